package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "leavedesk/internal/errors"
	"leavedesk/internal/leave"
	"leavedesk/internal/services"
)

// recentRecordsPerAccount is how many records the account list shows.
const recentRecordsPerAccount = 5

// AdminHandler handles administrator requests.
type AdminHandler struct {
	accountService services.AccountServicer
	leaveService   services.LeaveServicer
	auditService   services.AuditServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accountService services.AccountServicer, leaveService services.LeaveServicer, auditService services.AuditServicer) *AdminHandler {
	return &AdminHandler{accountService: accountService, leaveService: leaveService, auditService: auditService}
}

// BalancesRequest carries leave balances. Missing fields are nil.
type BalancesRequest struct {
	Vacation      *decimal.Decimal `json:"vacation" swaggertype:"number"`
	Sick          *decimal.Decimal `json:"sick" swaggertype:"number"`
	Personal      *decimal.Decimal `json:"personal" swaggertype:"number"`
	Menstrual     *decimal.Decimal `json:"menstrual" swaggertype:"number"`
	FamilyCare    *decimal.Decimal `json:"family_care" swaggertype:"number"`
	Compassionate *decimal.Decimal `json:"compassionate" swaggertype:"number"`
}

func (r *BalancesRequest) fields() map[leave.Category]*decimal.Decimal {
	return map[leave.Category]*decimal.Decimal{
		leave.Vacation:      r.Vacation,
		leave.Sick:          r.Sick,
		leave.Personal:      r.Personal,
		leave.Menstrual:     r.Menstrual,
		leave.FamilyCare:    r.FamilyCare,
		leave.Compassionate: r.Compassionate,
	}
}

// overrides returns the provided fields keyed by category.
func (r *BalancesRequest) overrides() map[leave.Category]decimal.Decimal {
	out := map[leave.Category]decimal.Decimal{}
	for c, d := range r.fields() {
		if d != nil {
			out[c] = *d
		}
	}
	return out
}

// complete returns the balances when all six are provided.
func (r *BalancesRequest) complete() (leave.Balances, error) {
	var b leave.Balances
	for _, c := range leave.Categories {
		d := r.fields()[c]
		if d == nil {
			return b, apperrors.WithMessage(apperrors.ErrInvalidInput, "All six balances are required, missing "+string(c))
		}
		_ = b.Set(c, *d)
	}
	return b, nil
}

// CreateAccountRequest represents the request payload for creating an account.
type CreateAccountRequest struct {
	Username string           `json:"username" binding:"required,username"`
	Password string           `json:"password" binding:"required,min=8,max=128"`
	IsAdmin  bool             `json:"is_admin"`
	Balances *BalancesRequest `json:"balances"`
}

// UpdatePasswordRequest represents the request payload for resetting a password.
type UpdatePasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// OverrideDaysRequest represents the request payload for correcting a record.
type OverrideDaysRequest struct {
	Days decimal.Decimal `json:"days" swaggertype:"number"`
}

// AccountSummaryResponse is an account with its most recent leave records.
type AccountSummaryResponse struct {
	AccountResponse
	RecentRecords []LeaveRecordResponse `json:"recent_records"`
}

// CreateAccount handles account creation
// @Summary     Create an account
// @Description Create an employee (or administrator) account. Balances not given fall back to the configured defaults.
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} AccountResponse "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Administrator privileges required"
// @Failure     409 {object} ErrorResponse "Duplicate username"
// @Router      /admin/accounts [post]
func (h *AdminHandler) CreateAccount(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	input := services.CreateAccountInput{
		Username: req.Username,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	}
	if req.Balances != nil {
		input.Overrides = req.Balances.overrides()
	}

	account, err := h.accountService.CreateAccount(input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(identity.AccountID, services.ActionCreateAccount, services.ResourceAccount, account.ID, c.ClientIP(),
		map[string]any{"username": account.Username, "is_admin": account.IsAdmin})

	c.JSON(http.StatusCreated, gin.H{"account": newAccountResponse(account)})
}

// ListAccounts handles listing employee accounts
// @Summary     List accounts
// @Description List non-administrator accounts with their five most recent leave records
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} AccountSummaryResponse "Accounts"
// @Failure     403 {object} ErrorResponse "Administrator privileges required"
// @Router      /admin/accounts [get]
func (h *AdminHandler) ListAccounts(c *gin.Context) {
	summaries, err := h.accountService.ListAccounts(recentRecordsPerAccount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make([]AccountSummaryResponse, 0, len(summaries))
	for i := range summaries {
		out = append(out, AccountSummaryResponse{
			AccountResponse: newAccountResponse(&summaries[i].Account),
			RecentRecords:   newLeaveRecordResponses(summaries[i].RecentRecords),
		})
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

// GetAccount handles fetching an account
// @Summary     Get an account
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} AccountResponse "Account"
// @Failure     403 {object} ErrorResponse "Administrator privileges required"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /admin/accounts/{id} [get]
func (h *AdminHandler) GetAccount(c *gin.Context) {
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetAccountByID(accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": newAccountResponse(account)})
}

// UpdateBalances handles overwriting an account's balances
// @Summary     Update balances
// @Description Overwrite all six leave balances of an account
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string          true "Account ID"
// @Param       request body BalancesRequest true "New balances"
// @Success     200 {object} AccountResponse "Account updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Administrator privileges required"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /admin/accounts/{id}/balances [put]
func (h *AdminHandler) UpdateBalances(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BalancesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}
	balances, err := req.complete()
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.UpdateBalances(accountID, balances)
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]any{}
	for category, d := range balances.Map() {
		changes[string(category)] = d.String()
	}
	h.auditService.Log(identity.AccountID, services.ActionUpdateBalances, services.ResourceAccount, accountID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, gin.H{"account": newAccountResponse(account)})
}

// UpdatePassword handles resetting an account's password
// @Summary     Reset password
// @Description Set a new password and revoke the account's refresh token
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Account ID"
// @Param       request body UpdatePasswordRequest true "New password"
// @Success     200 {object} map[string]string "Password updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Administrator privileges required"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /admin/accounts/{id}/password [put]
func (h *AdminHandler) UpdatePassword(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	if err := h.accountService.UpdatePassword(accountID, req.Password); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(identity.AccountID, services.ActionUpdatePassword, services.ResourceAccount, accountID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// DeleteAccount handles deleting an account
// @Summary     Delete an account
// @Description Delete a non-administrator account together with its leave records
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} map[string]string "Account deleted"
// @Failure     403 {object} ErrorResponse "Administrator privileges required"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     409 {object} ErrorResponse "Administrator accounts cannot be deleted"
// @Router      /admin/accounts/{id} [delete]
func (h *AdminHandler) DeleteAccount(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.accountService.DeleteAccount(accountID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(identity.AccountID, services.ActionDeleteAccount, services.ResourceAccount, accountID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

// OverrideDays handles correcting the day count of a leave record
// @Summary     Override leave days
// @Description Set a record's day count; the difference is moved onto the owner's balance
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Leave record ID"
// @Param       request body OverrideDaysRequest true "New day count"
// @Success     200 {object} LeaveRecordResponse "Record updated"
// @Failure     400 {object} ErrorResponse "Invalid day count"
// @Failure     403 {object} ErrorResponse "Administrator privileges required"
// @Failure     404 {object} ErrorResponse "Leave record not found"
// @Router      /admin/leave/{id}/days [put]
func (h *AdminHandler) OverrideDays(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req OverrideDaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	record, previous, err := h.leaveService.OverrideDays(recordID, req.Days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(identity.AccountID, services.ActionOverrideDays, services.ResourceLeaveRecord, recordID, c.ClientIP(),
		map[string]any{"account_id": record.AccountID, "previous_days": previous.String(), "days": record.Days.String()})

	c.JSON(http.StatusOK, gin.H{
		"record":        newLeaveRecordResponse(record),
		"previous_days": days(previous),
	})
}
