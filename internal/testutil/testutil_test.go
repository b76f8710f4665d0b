package testutil_test

import (
	"testing"

	"leavedesk/internal/errors"
	"leavedesk/internal/leave"
	"leavedesk/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"accounts", "leave_records", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDB_Isolated(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	testutil.CreateTestAccount(t, first)

	var count int64
	second.Table("accounts").Count(&count)
	if count != 0 {
		t.Errorf("expected second database to be empty, found %d accounts", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	account := testutil.CreateTestAccount(t, db)
	if account.ID == "" {
		t.Fatal("account should have an ID")
	}
	reloaded := testutil.ReloadAccount(t, db, account.ID)
	testutil.AssertDays(t, reloaded.VacationDays, "10", "vacation_days")
	testutil.AssertDays(t, reloaded.CompassionateDays, "3", "compassionate_days")

	admin := testutil.CreateTestAdmin(t, db)
	if !admin.IsAdmin {
		t.Error("expected admin fixture to be an administrator")
	}

	record := testutil.CreateTestLeaveRecord(t, db, account.ID, leave.Sick, testutil.Date(2024, 3, 1), "2.5")
	if !record.HalfDay {
		t.Error("expected 2.5 day record to be a half-day record")
	}
	if got := record.EndDate.Format(leave.DateLayout); got != "2024-03-03" {
		t.Errorf("expected end date 2024-03-03, got %s", got)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrAccountNotFound, "custom message")
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
