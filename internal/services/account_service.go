package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "leavedesk/internal/errors"
	"leavedesk/internal/leave"
	"leavedesk/internal/models"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// balanceColumns are the account columns holding leave balances.
var balanceColumns = func() []string {
	cols := make([]string, 0, len(leave.Categories))
	for _, c := range leave.Categories {
		cols = append(cols, c.Column())
	}
	return cols
}()

// accountService handles account-related business logic.
type accountService struct {
	db         *gorm.DB
	policy     leave.Policy
	now        func() time.Time
	bcryptCost int
}

// NewAccountService creates a new AccountServicer. New accounts receive the
// policy's default balances.
func NewAccountService(db *gorm.DB, policy leave.Policy) AccountServicer {
	return &accountService{db: db, policy: policy, now: time.Now, bcryptCost: bcrypt.DefaultCost}
}

// NormalizeUsername trims and lower-cases a username so that lookups are
// case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CreateAccount creates a new account.
func (s *accountService) CreateAccount(input CreateAccountInput) (*models.Account, error) {
	username := NormalizeUsername(input.Username)
	if username == "" || input.Password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "username and password are required")
	}

	balances := s.policy.Defaults
	if input.Balances != nil {
		balances = *input.Balances
	}
	for c, days := range input.Overrides {
		if err := balances.Set(c, days); err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrUnknownLeaveType, err.Error())
		}
	}
	if balances.AnyNegative() {
		return nil, apperrors.ErrNegativeBalance
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account := &models.Account{
		Username: username,
		Password: string(hashedPassword),
		IsAdmin:  input.IsAdmin,
		Balances: balances,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Account{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.ErrDuplicateUsername
		}
		return tx.Create(account).Error
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	return account, nil
}

// EnsureAdmin creates an administrator account unless one with the same
// username exists. It reports whether an account was created.
func (s *accountService) EnsureAdmin(username, password string) (*models.Account, bool, error) {
	existing, err := s.findByUsername(username)
	if err == nil {
		if !existing.IsAdmin {
			return nil, false, apperrors.WithMessage(apperrors.ErrDuplicateUsername,
				"a non-admin account with this username already exists")
		}
		return existing, false, nil
	}
	if err != apperrors.ErrAccountNotFound {
		return nil, false, err
	}

	account, err := s.CreateAccount(CreateAccountInput{
		Username: username,
		Password: password,
		IsAdmin:  true,
		Balances: &leave.Balances{},
	})
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

func (s *accountService) findByUsername(username string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("username = ?", NormalizeUsername(username)).First(&account).Error; err != nil {
		return nil, notFoundOr(err, apperrors.ErrAccountNotFound)
	}
	return &account, nil
}

// GetAccountByID retrieves an account by ID
func (s *accountService) GetAccountByID(id string) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, apperrors.ErrAccountNotFound)
	}
	return &account, nil
}

// ListAccounts returns every non-admin account, ordered by username, with up
// to recentLimit of its latest leave records.
func (s *accountService) ListAccounts(recentLimit int) ([]AccountSummary, error) {
	var accounts []models.Account
	if err := s.db.Where("is_admin = ?", false).Order("username ASC").Find(&accounts).Error; err != nil {
		return nil, persistenceError(err)
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		var records []models.LeaveRecord
		if err := s.db.Where("account_id = ?", account.ID).
			Order("start_date DESC, created_at DESC").
			Limit(recentLimit).
			Find(&records).Error; err != nil {
			return nil, persistenceError(err)
		}
		summaries = append(summaries, AccountSummary{Account: account, RecentRecords: records})
	}
	return summaries, nil
}

// UpdateBalances overwrites all six balances of an account.
func (s *accountService) UpdateBalances(id string, balances leave.Balances) (*models.Account, error) {
	if balances.AnyNegative() {
		return nil, apperrors.ErrNegativeBalance
	}

	var account models.Account
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&account, "id = ?", id).Error; err != nil {
			return notFoundOr(err, apperrors.ErrAccountNotFound)
		}
		account.Balances = balances
		return tx.Model(&account).Select(balanceColumns).Updates(&account).Error
	})
	if err != nil {
		return nil, persistenceError(err)
	}
	return &account, nil
}

// UpdatePassword replaces an account's password and revokes its refresh
// token.
func (s *accountService) UpdatePassword(id, password string) error {
	if password == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "password is required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := s.db.Model(&models.Account{}).Where("id = ?", id).Updates(map[string]any{
		"password":           string(hashedPassword),
		"refresh_token_hash": "",
	})
	if result.Error != nil {
		return persistenceError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

// DeleteAccount deletes a non-admin account together with its leave records.
func (s *accountService) DeleteAccount(id string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.First(&account, "id = ?", id).Error; err != nil {
			return notFoundOr(err, apperrors.ErrAccountNotFound)
		}
		if account.IsAdmin {
			return apperrors.ErrAdminUndeletable
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.LeaveRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&account).Error
	})
	if err != nil {
		return persistenceError(err)
	}
	return nil
}

// AttemptLogin verifies credentials. Repeated failures lock the account for
// a short period.
func (s *accountService) AttemptLogin(username, password string) (*models.Account, error) {
	account, err := s.findByUsername(username)
	if err != nil {
		if err == apperrors.ErrAccountNotFound {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if account.IsLocked(now) {
		return nil, apperrors.ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)) != nil {
		if err := s.recordFailedLogin(account.ID, now); err != nil {
			return nil, persistenceError(err)
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	account.FailedLoginAttempts = 0
	account.LockedUntil = nil
	account.LastLoginAt = &now
	if err := s.db.Model(account).Select("failed_login_attempts", "locked_until", "last_login_at").Updates(account).Error; err != nil {
		return nil, persistenceError(err)
	}
	return account, nil
}

// recordFailedLogin counts a failed attempt while holding the account row lock
// and starts a lockout once the limit is reached.
func (s *accountService) recordFailedLogin(accountID string, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var current models.Account
		if err := forUpdate(tx).Select("id", "failed_login_attempts").First(&current, "id = ?", accountID).Error; err != nil {
			return err
		}

		row := tx.Model(&models.Account{}).Where("id = ?", accountID)
		if current.FailedLoginAttempts+1 >= maxFailedLogins {
			return row.Updates(map[string]any{
				"failed_login_attempts": 0,
				"locked_until":          now.Add(lockoutDuration),
			}).Error
		}
		return row.UpdateColumn("failed_login_attempts", gorm.Expr("failed_login_attempts + ?", 1)).Error
	})
}

// StoreRefreshTokenHash saves the hash of the account's current refresh token.
func (s *accountService) StoreRefreshTokenHash(id, tokenHash string) error {
	if err := s.db.Model(&models.Account{}).Where("id = ?", id).Update("refresh_token_hash", tokenHash).Error; err != nil {
		return persistenceError(err)
	}
	return nil
}

// GetRefreshTokenHash returns the stored refresh token hash.
func (s *accountService) GetRefreshTokenHash(id string) (string, error) {
	account, err := s.GetAccountByID(id)
	if err != nil {
		return "", err
	}
	return account.RefreshTokenHash, nil
}
