package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"leavedesk/internal/leave"
	"leavedesk/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the password of every fixture account.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestAccount creates a non-admin account with the default balances.
func CreateTestAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalances(t, db, leave.DefaultPolicy().Defaults)
}

// CreateTestAccountWithBalances creates a non-admin account holding balances.
func CreateTestAccountWithBalances(t *testing.T, db *gorm.DB, balances leave.Balances) *models.Account {
	t.Helper()
	return createAccount(t, db, fmt.Sprintf("user%d", nextID()), false, balances)
}

// CreateTestAdmin creates an administrator account with zero balances.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()
	return createAccount(t, db, fmt.Sprintf("admin%d", nextID()), true, leave.Balances{})
}

func createAccount(t *testing.T, db *gorm.DB, username string, isAdmin bool, balances leave.Balances) *models.Account {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	account := &models.Account{
		Username: username,
		Password: string(hash),
		IsAdmin:  isAdmin,
		Balances: balances,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestLeaveRecord inserts a record directly, without touching the
// account's balance.
func CreateTestLeaveRecord(t *testing.T, db *gorm.DB, accountID string, category leave.Category, start time.Time, days string) *models.LeaveRecord {
	t.Helper()

	d := decimal.RequireFromString(days)
	span := int(d.Ceil().IntPart())
	record := &models.LeaveRecord{
		AccountID: accountID,
		LeaveType: category,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, span-1),
		HalfDay:   !d.Equal(d.Ceil()),
		Reason:    fmt.Sprintf("fixture %d", nextID()),
		Days:      d,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create test leave record: %v", err)
	}
	return record
}

// Date returns the UTC midnight of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ReloadAccount reads the account back from the database.
func ReloadAccount(t *testing.T, db *gorm.DB, id string) *models.Account {
	t.Helper()

	var account models.Account
	if err := db.First(&account, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload account %s: %v", id, err)
	}
	return &account
}
