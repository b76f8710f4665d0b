package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"leavedesk/internal/leave"
	"leavedesk/internal/models"
	"leavedesk/internal/pagination"
)

// Identity is the authenticated caller of a service operation.
type Identity struct {
	AccountID string
	IsAdmin   bool
}

// CanAccess reports whether the caller may read or modify data owned by
// accountID.
func (i Identity) CanAccess(accountID string) bool {
	return i.IsAdmin || (i.AccountID != "" && i.AccountID == accountID)
}

// CreateAccountInput holds the fields of a new account. Nil balances fall
// back to the policy defaults; Overrides then replace single categories.
type CreateAccountInput struct {
	Username  string
	Password  string
	IsAdmin   bool
	Balances  *leave.Balances
	Overrides map[leave.Category]decimal.Decimal
}

// AccountSummary is an account with its most recent leave records.
type AccountSummary struct {
	Account       models.Account
	RecentRecords []models.LeaveRecord
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(input CreateAccountInput) (*models.Account, error)
	EnsureAdmin(username, password string) (*models.Account, bool, error)
	GetAccountByID(id string) (*models.Account, error)
	ListAccounts(recentLimit int) ([]AccountSummary, error)
	UpdateBalances(id string, balances leave.Balances) (*models.Account, error)
	UpdatePassword(id, password string) error
	DeleteAccount(id string) error
	AttemptLogin(username, password string) (*models.Account, error)
	StoreRefreshTokenHash(id, tokenHash string) error
	GetRefreshTokenHash(id string) (string, error)
}

// Receipt is an uploaded file attached to a leave request.
type Receipt struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SubmitLeaveInput is a leave request as submitted by the form.
type SubmitLeaveInput struct {
	LeaveType string
	StartDate string
	EndDate   string
	HalfDay   bool
	Reason    string
	Receipt   *Receipt
}

// SubmitResult is a committed leave record plus any side effect that
// failed after the commit.
type SubmitResult struct {
	Record   *models.LeaveRecord
	Label    string
	Warnings []string
}

// Dashboard is an account's balances, records and usage for one year.
type Dashboard struct {
	Account *models.Account
	Records []models.LeaveRecord
	Year    int
	Used    leave.Balances
}

// LeaveServicer defines the contract for leave requests and records.
type LeaveServicer interface {
	SubmitLeave(ctx context.Context, actor Identity, input SubmitLeaveInput) (*SubmitResult, error)
	DeleteLeaveRecord(actor Identity, recordID string, restore bool) (string, error)
	OverrideDays(recordID string, days decimal.Decimal) (*models.LeaveRecord, decimal.Decimal, error)
	GetLeaveRecord(actor Identity, recordID string) (*models.LeaveRecord, error)
	ListRecords(actor Identity, accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.LeaveRecord], error)
	GetDashboard(actor Identity, accountID string, year int) (*Dashboard, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(actorID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}

// DependencyStatus reports one dependency in a detailed health check.
type DependencyStatus struct {
	Status         string  `json:"status"`
	ResponseTimeMs float64 `json:"response_time_ms,omitempty"`
	Detail         string  `json:"detail,omitempty"`
}

// HealthReport is the result of a detailed health check.
type HealthReport struct {
	Status         string                      `json:"status"`
	Timestamp      time.Time                   `json:"timestamp"`
	ResponseTimeMs float64                     `json:"response_time_ms"`
	Checks         map[string]DependencyStatus `json:"checks"`
	AccountCount   int64                       `json:"account_count"`
	RecordCount    int64                       `json:"leave_record_count"`
}

// Metrics are coarse usage counters.
type Metrics struct {
	Timestamp       time.Time `json:"timestamp"`
	Accounts        int64     `json:"accounts"`
	Administrators  int64     `json:"administrators"`
	LeaveRecords    int64     `json:"leave_records"`
	RecordsThisYear int64     `json:"leave_records_this_year"`
	Uptime          string    `json:"uptime"`
}

// HealthServicer defines the contract for health checks and metrics.
type HealthServicer interface {
	Ping(ctx context.Context) error
	Detailed(ctx context.Context) (*HealthReport, error)
	Metrics(ctx context.Context) (*Metrics, error)
}
