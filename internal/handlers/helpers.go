package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "leavedesk/internal/errors"
	"leavedesk/internal/leave"
	"leavedesk/internal/logger"
	"leavedesk/internal/middleware"
	"leavedesk/internal/models"
	"leavedesk/internal/services"
	"leavedesk/internal/uuid"
)

// getIdentity extracts the authenticated caller from the Gin context.
// Returns ErrUnauthorized if not present.
func getIdentity(c *gin.Context) (services.Identity, error) {
	accountID := c.GetString(middleware.ContextAccountID)
	if accountID == "" {
		return services.Identity{}, apperrors.ErrUnauthorized
	}
	return services.Identity{
		AccountID: accountID,
		IsAdmin:   c.GetBool(middleware.ContextIsAdmin),
	}, nil
}

// parsePathID reads a UUID path parameter.
// Returns ErrInvalidInput if the parameter is not a valid UUID.
func parsePathID(c *gin.Context, param string) (string, error) {
	id := c.Param(param)
	if !uuid.IsValid(id) {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, kind, code, and message. Otherwise
// it logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
				"request_id", middleware.RequestID(c),
			)
		}
		c.JSON(appErr.StatusCode, errorResponse(appErr))
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"request_id", middleware.RequestID(c),
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, errorResponse(apperrors.ErrInternalServer))
}

func errorResponse(appErr *apperrors.AppError) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{
		Kind:    string(appErr.Kind),
		Code:    appErr.Code,
		Message: appErr.Message,
	}}
}

// invalidInput turns a binding error into an INVALID_INPUT AppError.
func invalidInput(err error) error {
	return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// BalancesResponse holds the six leave balances as plain numbers.
type BalancesResponse struct {
	Vacation      float64 `json:"vacation"`
	Sick          float64 `json:"sick"`
	Personal      float64 `json:"personal"`
	Menstrual     float64 `json:"menstrual"`
	FamilyCare    float64 `json:"family_care"`
	Compassionate float64 `json:"compassionate"`
}

func newBalancesResponse(b leave.Balances) BalancesResponse {
	return BalancesResponse{
		Vacation:      days(b.VacationDays),
		Sick:          days(b.SickDays),
		Personal:      days(b.PersonalDays),
		Menstrual:     days(b.MenstrualDays),
		FamilyCare:    days(b.FamilyCareDays),
		Compassionate: days(b.CompassionateDays),
	}
}

// days converts a half-step day count for JSON output. Half steps are exact
// in float64.
func days(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// AccountResponse represents an account in the response.
type AccountResponse struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	IsAdmin     bool             `json:"is_admin"`
	Balances    BalancesResponse `json:"balances"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func newAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Username:    a.Username,
		IsAdmin:     a.IsAdmin,
		Balances:    newBalancesResponse(a.Balances),
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}

// LeaveRecordResponse represents a leave record in the response.
type LeaveRecordResponse struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"account_id"`
	LeaveType        string    `json:"leave_type"`
	StartDate        string    `json:"start_date"`
	EndDate          string    `json:"end_date"`
	HalfDay          bool      `json:"half_day"`
	Reason           string    `json:"reason"`
	Days             float64   `json:"days"`
	ReceiptURL       string    `json:"receipt_url,omitempty"`
	CalendarEventURL string    `json:"calendar_event_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func newLeaveRecordResponse(r *models.LeaveRecord) LeaveRecordResponse {
	return LeaveRecordResponse{
		ID:               r.ID,
		AccountID:        r.AccountID,
		LeaveType:        string(r.LeaveType),
		StartDate:        r.StartDate.Format(leave.DateLayout),
		EndDate:          r.EndDate.Format(leave.DateLayout),
		HalfDay:          r.HalfDay,
		Reason:           r.Reason,
		Days:             days(r.Days),
		ReceiptURL:       r.ReceiptURL,
		CalendarEventURL: r.CalendarEventURL,
		CreatedAt:        r.CreatedAt,
	}
}

func newLeaveRecordResponses(records []models.LeaveRecord) []LeaveRecordResponse {
	out := make([]LeaveRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, newLeaveRecordResponse(&records[i]))
	}
	return out
}
