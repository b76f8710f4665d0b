package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "leavedesk/internal/errors"
	"leavedesk/internal/leave"
	"leavedesk/internal/middleware"
	"leavedesk/internal/models"
	"leavedesk/internal/services"
	"leavedesk/internal/validator"
)

const (
	testAccountID = "0190b6c4-8d0e-7a4b-9c3d-000000000001"
	testAdminID   = "0190b6c4-8d0e-7a4b-9c3d-000000000002"
	testRecordID  = "0190b6c4-8d0e-7a4b-9c3d-000000000010"
)

// --- mock services ---

type mockAccountService struct {
	createAccountFn         func(input services.CreateAccountInput) (*models.Account, error)
	ensureAdminFn           func(username, password string) (*models.Account, bool, error)
	getAccountByIDFn        func(id string) (*models.Account, error)
	listAccountsFn          func(recentLimit int) ([]services.AccountSummary, error)
	updateBalancesFn        func(id string, balances leave.Balances) (*models.Account, error)
	updatePasswordFn        func(id, password string) error
	deleteAccountFn         func(id string) error
	attemptLoginFn          func(username, password string) (*models.Account, error)
	storeRefreshTokenHashFn func(id, tokenHash string) error
	getRefreshTokenHashFn   func(id string) (string, error)
}

func (m *mockAccountService) CreateAccount(input services.CreateAccountInput) (*models.Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(input)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) EnsureAdmin(username, password string) (*models.Account, bool, error) {
	if m.ensureAdminFn != nil {
		return m.ensureAdminFn(username, password)
	}
	return &models.Account{}, false, nil
}

func (m *mockAccountService) GetAccountByID(id string) (*models.Account, error) {
	if m.getAccountByIDFn != nil {
		return m.getAccountByIDFn(id)
	}
	return &models.Account{Base: models.Base{ID: id}}, nil
}

func (m *mockAccountService) ListAccounts(recentLimit int) ([]services.AccountSummary, error) {
	if m.listAccountsFn != nil {
		return m.listAccountsFn(recentLimit)
	}
	return nil, nil
}

func (m *mockAccountService) UpdateBalances(id string, balances leave.Balances) (*models.Account, error) {
	if m.updateBalancesFn != nil {
		return m.updateBalancesFn(id, balances)
	}
	return &models.Account{Base: models.Base{ID: id}, Balances: balances}, nil
}

func (m *mockAccountService) UpdatePassword(id, password string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(id, password)
	}
	return nil
}

func (m *mockAccountService) DeleteAccount(id string) error {
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(id)
	}
	return nil
}

func (m *mockAccountService) AttemptLogin(username, password string) (*models.Account, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(username, password)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) StoreRefreshTokenHash(id, tokenHash string) error {
	if m.storeRefreshTokenHashFn != nil {
		return m.storeRefreshTokenHashFn(id, tokenHash)
	}
	return nil
}

func (m *mockAccountService) GetRefreshTokenHash(id string) (string, error) {
	if m.getRefreshTokenHashFn != nil {
		return m.getRefreshTokenHashFn(id)
	}
	return "", nil
}

// verify interface compliance
var _ services.AccountServicer = (*mockAccountService)(nil)

type auditEntry struct {
	actorID, action, resourceType, resourceID string
	changes                                   map[string]any
}

type mockAuditService struct {
	entries []auditEntry
}

func (m *mockAuditService) Log(actorID, action, resourceType, resourceID, _ string, changes map[string]any) {
	m.entries = append(m.entries, auditEntry{actorID, action, resourceType, resourceID, changes})
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func newTestIssuer() *middleware.TokenIssuer {
	return middleware.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)
}

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/auth/login", handler.Login)
	r.POST("/auth/refresh", handler.RefreshToken)
	r.POST("/auth/logout", injectIdentity(testAccountID, false), handler.Logout)
	r.GET("/profile", injectIdentity(testAccountID, false), handler.GetProfile)
	return r
}

func injectIdentity(accountID string, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextAccountID, accountID)
		c.Set(middleware.ContextIsAdmin, isAdmin)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- tests ---

func TestAuthHandler_Login(t *testing.T) {
	t.Run("returns 200 with tokens", func(t *testing.T) {
		var storedHash string
		acctSvc := &mockAccountService{
			attemptLoginFn: func(username, _ string) (*models.Account, error) {
				return &models.Account{Base: models.Base{ID: testAccountID}, Username: username}, nil
			},
			storeRefreshTokenHashFn: func(_ string, hash string) error {
				storedHash = hash
				return nil
			},
		}
		handler := NewAuthHandler(acctSvc, newTestIssuer())
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/login", `{"username":"alice","password":"password123"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["access_token"] == nil || result["access_token"] == "" {
			t.Error("expected non-empty access_token")
		}
		refresh, _ := result["refresh_token"].(string)
		if refresh == "" {
			t.Fatal("expected non-empty refresh_token")
		}
		if storedHash != middleware.HashToken(refresh) {
			t.Error("expected the hash of the returned refresh token to be stored")
		}
		if result["expires_in"].(float64) != 3600 {
			t.Errorf("expected expires_in 3600, got %v", result["expires_in"])
		}
		account := result["account"].(map[string]interface{})
		if account["username"] != "alice" {
			t.Errorf("expected alice, got %v", account["username"])
		}
	})

	t.Run("returns 401 on invalid credentials", func(t *testing.T) {
		acctSvc := &mockAccountService{
			attemptLoginFn: func(_, _ string) (*models.Account, error) {
				return nil, apperrors.ErrInvalidCredentials
			},
		}
		r := setupAuthRouter(NewAuthHandler(acctSvc, newTestIssuer()))

		rec := doRequest(r, "POST", "/auth/login", `{"username":"alice","password":"wrong"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "INVALID_CREDENTIALS")
		if kind := result["error"].(map[string]interface{})["kind"]; kind != "auth" {
			t.Errorf("expected kind auth, got %v", kind)
		}
	})

	t.Run("returns 423 on locked account", func(t *testing.T) {
		acctSvc := &mockAccountService{
			attemptLoginFn: func(_, _ string) (*models.Account, error) {
				return nil, apperrors.ErrAccountLocked
			},
		}
		r := setupAuthRouter(NewAuthHandler(acctSvc, newTestIssuer()))

		rec := doRequest(r, "POST", "/auth/login", `{"username":"alice","password":"password123"}`)

		if rec.Code != http.StatusLocked {
			t.Fatalf("expected 423, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_LOCKED")
	})

	t.Run("returns 400 on missing fields", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockAccountService{}, newTestIssuer()))

		rec := doRequest(r, "POST", "/auth/login", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 500 when token storage fails", func(t *testing.T) {
		acctSvc := &mockAccountService{
			attemptLoginFn: func(username, _ string) (*models.Account, error) {
				return &models.Account{Base: models.Base{ID: testAccountID}, Username: username}, nil
			},
			storeRefreshTokenHashFn: func(_, _ string) error {
				return fmt.Errorf("db connection lost")
			},
		}
		r := setupAuthRouter(NewAuthHandler(acctSvc, newTestIssuer()))

		rec := doRequest(r, "POST", "/auth/login", `{"username":"alice","password":"password123"}`)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	issuer := newTestIssuer()
	account := &models.Account{Base: models.Base{ID: testAccountID}, Username: "alice"}
	refresh, err := issuer.GenerateRefreshToken(account)
	if err != nil {
		t.Fatalf("failed to sign refresh token: %v", err)
	}

	t.Run("returns new tokens for the stored refresh token", func(t *testing.T) {
		var rotated string
		acctSvc := &mockAccountService{
			getRefreshTokenHashFn: func(id string) (string, error) {
				if id != testAccountID {
					t.Errorf("unexpected account id %s", id)
				}
				return middleware.HashToken(refresh), nil
			},
			getAccountByIDFn: func(_ string) (*models.Account, error) {
				return account, nil
			},
			storeRefreshTokenHashFn: func(_, hash string) error {
				rotated = hash
				return nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(acctSvc, issuer))

		rec := doRequest(r, "POST", "/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["refresh_token"] == refresh {
			t.Error("expected a rotated refresh token")
		}
		if rotated == "" || rotated == middleware.HashToken(refresh) {
			t.Error("expected the new refresh token hash to be stored")
		}
	})

	t.Run("returns 401 for a revoked token", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getRefreshTokenHashFn: func(_ string) (string, error) { return "", nil },
		}
		r := setupAuthRouter(NewAuthHandler(acctSvc, issuer))

		rec := doRequest(r, "POST", "/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
	})

	t.Run("returns 401 for an access token", func(t *testing.T) {
		access, _ := issuer.GenerateAccessToken(account)
		r := setupAuthRouter(NewAuthHandler(&mockAccountService{}, issuer))

		rec := doRequest(r, "POST", "/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, access))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on missing token", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockAccountService{}, issuer))

		rec := doRequest(r, "POST", "/auth/refresh", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	cleared := false
	acctSvc := &mockAccountService{
		storeRefreshTokenHashFn: func(id, hash string) error {
			cleared = id == testAccountID && hash == ""
			return nil
		},
	}
	r := setupAuthRouter(NewAuthHandler(acctSvc, newTestIssuer()))

	rec := doRequest(r, "POST", "/auth/logout", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !cleared {
		t.Error("expected the refresh token hash to be cleared")
	}
}

func TestAuthHandler_GetProfile(t *testing.T) {
	t.Run("returns 200 with account and balances", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getAccountByIDFn: func(id string) (*models.Account, error) {
				return &models.Account{
					Base:     models.Base{ID: id},
					Username: "alice",
					Balances: leave.DefaultPolicy().Defaults,
				}, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(acctSvc, newTestIssuer()))

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		account := parseJSON(t, rec)["account"].(map[string]interface{})
		if account["username"] != "alice" {
			t.Errorf("expected alice, got %v", account["username"])
		}
		balances := account["balances"].(map[string]interface{})
		if balances["vacation"].(float64) != 10 || balances["family_care"].(float64) != 7 {
			t.Errorf("unexpected balances: %v", balances)
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewAuthHandler(&mockAccountService{}, newTestIssuer())
		r := gin.New()
		r.GET("/profile", handler.GetProfile)

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when account not found", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getAccountByIDFn: func(_ string) (*models.Account, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		r := setupAuthRouter(NewAuthHandler(acctSvc, newTestIssuer()))

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
