package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"leavedesk/internal/calendar"
	"leavedesk/internal/leave"
	"leavedesk/internal/models"
	"leavedesk/internal/pagination"
	"leavedesk/internal/storage"
	"leavedesk/internal/testutil"
)

type fakeReceiptStore struct {
	url      string
	err      error
	calls    int
	filename string
}

func (f *fakeReceiptStore) Upload(_ context.Context, _ []byte, filename, _ string) (string, error) {
	f.calls++
	f.filename = filename
	return f.url, f.err
}

func (f *fakeReceiptStore) Name() string { return "fake" }

type fakeMirror struct {
	url         string
	err         error
	calls       int
	title       string
	description string
	start       time.Time
	end         time.Time
}

func (f *fakeMirror) CreateAllDayEvent(_ context.Context, title, description string, start, end time.Time) (string, error) {
	f.calls++
	f.title, f.description, f.start, f.end = title, description, start, end
	return f.url, f.err
}

func (f *fakeMirror) Enabled() bool { return true }

// today is the fixed "now" of leave service tests.
var today = time.Date(2024, 2, 20, 10, 30, 0, 0, time.UTC)

func newTestLeaveService(db *gorm.DB, receipts storage.ReceiptStore, mirror calendar.Mirror) *leaveService {
	svc := NewLeaveService(db, leave.DefaultPolicy(), receipts, mirror, time.Second).(*leaveService)
	svc.now = func() time.Time { return today }
	return svc
}

func owner(account *models.Account) Identity {
	return Identity{AccountID: account.ID, IsAdmin: account.IsAdmin}
}

func TestSubmitLeave(t *testing.T) {
	t.Run("deducts_balance_and_stores_record", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		account := testutil.CreateTestAccount(t, db)

		result, err := svc.SubmitLeave(context.Background(), owner(account), SubmitLeaveInput{
			LeaveType: "vacation",
			StartDate: "2024-03-01",
			EndDate:   "2024-03-03",
			Reason:    "family trip",
		})
		testutil.AssertNoError(t, err)

		if len(result.Warnings) != 0 {
			t.Errorf("expected no warnings, got %v", result.Warnings)
		}
		testutil.AssertDays(t, result.Record.Days, "3", "record days")
		if result.Record.LeaveType != leave.Vacation {
			t.Errorf("expected vacation record, got %s", result.Record.LeaveType)
		}
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).VacationDays, "7", "vacation_days")

		var stored models.LeaveRecord
		testutil.AssertNoError(t, db.First(&stored, "id = ?", result.Record.ID).Error)
		if stored.Reason != "family trip" || stored.AccountID != account.ID {
			t.Errorf("unexpected stored record: %+v", stored)
		}
	})

	t.Run("label_and_half_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		account := testutil.CreateTestAccount(t, db)

		result, err := svc.SubmitLeave(context.Background(), owner(account), SubmitLeaveInput{
			LeaveType: "病假",
			StartDate: "2024-02-20",
			EndDate:   "2024-02-20",
			HalfDay:   true,
			Reason:    "clinic",
		})
		testutil.AssertNoError(t, err)

		testutil.AssertDays(t, result.Record.Days, "0.5", "record days")
		if result.Record.LeaveType != leave.Sick {
			t.Errorf("expected sick record, got %s", result.Record.LeaveType)
		}
		if result.Record.Reason != "Half day - clinic" {
			t.Errorf("expected half-day reason prefix, got %q", result.Record.Reason)
		}
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).SickDays, "4.5", "sick_days")
	})

	t.Run("future_window_boundary", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		account := testutil.CreateTestAccount(t, db)

		boundary := leave.DateOf(today).AddDate(0, 0, 60).Format(leave.DateLayout)
		_, err := svc.SubmitLeave(context.Background(), owner(account), SubmitLeaveInput{
			LeaveType: "personal", StartDate: boundary, EndDate: boundary,
		})
		testutil.AssertNoError(t, err)

		beyond := leave.DateOf(today).AddDate(0, 0, 61).Format(leave.DateLayout)
		_, err = svc.SubmitLeave(context.Background(), owner(account), SubmitLeaveInput{
			LeaveType: "personal", StartDate: beyond, EndDate: beyond,
		})
		testutil.AssertAppError(t, err, "BEYOND_FUTURE_WINDOW")
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).PersonalDays, "13", "personal_days")
	})

	rejections := []struct {
		name  string
		input SubmitLeaveInput
		code  string
	}{
		{"bad_date_format", SubmitLeaveInput{LeaveType: "sick", StartDate: "03/01/2024", EndDate: "2024-03-01"}, "INVALID_INPUT"},
		{"missing_end_date", SubmitLeaveInput{LeaveType: "sick", StartDate: "2024-03-01"}, "INVALID_INPUT"},
		{"start_after_end", SubmitLeaveInput{LeaveType: "sick", StartDate: "2024-03-05", EndDate: "2024-03-01"}, "INVALID_DATE_RANGE"},
		{"exceeds_cap", SubmitLeaveInput{LeaveType: "personal", StartDate: "2024-03-01", EndDate: "2024-03-06"}, "EXCEEDS_REQUEST_CAP"},
		{"unknown_category", SubmitLeaveInput{LeaveType: "sabbatical", StartDate: "2024-03-01", EndDate: "2024-03-01"}, "UNKNOWN_LEAVE_TYPE"},
		{"insufficient_balance", SubmitLeaveInput{LeaveType: "compassionate", StartDate: "2024-03-01", EndDate: "2024-03-04"}, "INSUFFICIENT_BALANCE"},
	}
	for _, tt := range rejections {
		t.Run("rejects_"+tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			defer testutil.TeardownTestDB(t, db)
			receipts := &fakeReceiptStore{url: "https://example.com/r"}
			mirror := &fakeMirror{url: "https://example.com/e"}
			svc := newTestLeaveService(db, receipts, mirror)
			account := testutil.CreateTestAccount(t, db)
			before := testutil.ReloadAccount(t, db, account.ID).Balances

			input := tt.input
			input.Receipt = &Receipt{Filename: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}
			_, err := svc.SubmitLeave(context.Background(), owner(account), input)
			testutil.AssertAppError(t, err, tt.code)

			if after := testutil.ReloadAccount(t, db, account.ID).Balances; !balancesEqual(before, after) {
				t.Errorf("balances changed on rejection: before %v after %v", before.Map(), after.Map())
			}
			var count int64
			db.Model(&models.LeaveRecord{}).Count(&count)
			if count != 0 {
				t.Errorf("expected no records after rejection, found %d", count)
			}
			if receipts.calls != 0 || mirror.calls != 0 {
				t.Errorf("expected no side effects, got %d uploads and %d events", receipts.calls, mirror.calls)
			}
		})
	}

	t.Run("unknown_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)

		_, err := svc.SubmitLeave(context.Background(), Identity{AccountID: "0190b6c4-8d0e-7a4b-9c3d-1234567890ab"}, SubmitLeaveInput{
			LeaveType: "sick", StartDate: "2024-03-01", EndDate: "2024-03-01",
		})
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func balancesEqual(a, b leave.Balances) bool {
	am, bm := a.Map(), b.Map()
	for _, c := range leave.Categories {
		if !am[c].Equal(bm[c]) {
			return false
		}
	}
	return true
}

func TestSubmitLeave_SideEffects(t *testing.T) {
	input := func() SubmitLeaveInput {
		return SubmitLeaveInput{
			LeaveType: "特休",
			StartDate: "2024-03-01",
			EndDate:   "2024-03-03",
			Reason:    "family trip",
			Receipt:   &Receipt{Filename: "ticket.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")},
		}
	}

	t.Run("receipt_and_calendar_recorded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		receipts := &fakeReceiptStore{url: "https://drive.google.com/uc?export=view&id=f1"}
		mirror := &fakeMirror{url: "https://calendar.google.com/event?eid=e1"}
		svc := newTestLeaveService(db, receipts, mirror)
		account := testutil.CreateTestAccount(t, db)

		result, err := svc.SubmitLeave(context.Background(), owner(account), input())
		testutil.AssertNoError(t, err)

		if len(result.Warnings) != 0 {
			t.Errorf("expected no warnings, got %v", result.Warnings)
		}
		if receipts.filename != "ticket.pdf" {
			t.Errorf("expected receipt filename ticket.pdf, got %q", receipts.filename)
		}
		if mirror.title != account.Username+" - 特休" {
			t.Errorf("unexpected event title %q", mirror.title)
		}
		if mirror.description != "family trip" {
			t.Errorf("unexpected event description %q", mirror.description)
		}
		if got := mirror.end.Format(leave.DateLayout); got != "2024-03-04" {
			t.Errorf("expected exclusive end 2024-03-04, got %s", got)
		}

		var stored models.LeaveRecord
		testutil.AssertNoError(t, db.First(&stored, "id = ?", result.Record.ID).Error)
		if stored.ReceiptURL != receipts.url || stored.CalendarEventURL != mirror.url {
			t.Errorf("expected urls to be stored, got receipt=%q event=%q", stored.ReceiptURL, stored.CalendarEventURL)
		}
	})

	t.Run("failures_become_warnings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		receipts := &fakeReceiptStore{err: errors.New("quota exceeded")}
		mirror := &fakeMirror{err: errors.New("calendar unavailable")}
		svc := newTestLeaveService(db, receipts, mirror)
		account := testutil.CreateTestAccount(t, db)

		result, err := svc.SubmitLeave(context.Background(), owner(account), input())
		testutil.AssertNoError(t, err)

		if len(result.Warnings) != 2 {
			t.Fatalf("expected 2 warnings, got %v", result.Warnings)
		}
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).VacationDays, "7", "vacation_days")

		var stored models.LeaveRecord
		testutil.AssertNoError(t, db.First(&stored, "id = ?", result.Record.ID).Error)
		if stored.ReceiptURL != "" || stored.CalendarEventURL != "" {
			t.Errorf("expected no urls, got receipt=%q event=%q", stored.ReceiptURL, stored.CalendarEventURL)
		}
	})

	t.Run("receipt_without_storage", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, storage.NoopStore{}, calendar.NoopMirror{})
		account := testutil.CreateTestAccount(t, db)

		result, err := svc.SubmitLeave(context.Background(), owner(account), input())
		testutil.AssertNoError(t, err)
		if len(result.Warnings) != 1 {
			t.Errorf("expected one receipt warning, got %v", result.Warnings)
		}
	})
}

func TestSubmitLeave_PersistenceFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm over sqlmock: %v", err)
	}

	const accountID = "0190b6c4-8d0e-7a4b-9c3d-1234567890ab"
	rows := sqlmock.NewRows([]string{"id", "username", "is_admin", "vacation_days", "sick_days", "personal_days", "menstrual_days", "family_care_days", "compassionate_days"}).
		AddRow(accountID, "alice", false, "10", "5", "14", "5", "7", "3")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts"`) + `.*FOR UPDATE`).WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "accounts"`)).WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	mirror := &fakeMirror{url: "https://example.com/e"}
	svc := newTestLeaveService(db, nil, mirror)

	_, err = svc.SubmitLeave(context.Background(), Identity{AccountID: accountID}, SubmitLeaveInput{
		LeaveType: "vacation", StartDate: "2024-03-01", EndDate: "2024-03-03",
	})
	testutil.AssertAppError(t, err, "PERSISTENCE_FAILURE")

	if mirror.calls != 0 {
		t.Error("expected no calendar event after a failed commit")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestDeleteLeaveRecord(t *testing.T) {
	t.Run("round_trip_restores_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		account := testutil.CreateTestAccount(t, db)

		result, err := svc.SubmitLeave(context.Background(), owner(account), SubmitLeaveInput{
			LeaveType: "vacation", StartDate: "2024-03-01", EndDate: "2024-03-03",
		})
		testutil.AssertNoError(t, err)
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).VacationDays, "7", "vacation_days")

		accountID, err := svc.DeleteLeaveRecord(owner(account), result.Record.ID, true)
		testutil.AssertNoError(t, err)
		if accountID != account.ID {
			t.Errorf("expected owning account %s, got %s", account.ID, accountID)
		}
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).VacationDays, "10", "vacation_days")

		_, err = svc.GetLeaveRecord(owner(account), result.Record.ID)
		testutil.AssertAppError(t, err, "LEAVE_RECORD_NOT_FOUND")
	})

	t.Run("without_restore", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		account := testutil.CreateTestAccount(t, db)
		record := testutil.CreateTestLeaveRecord(t, db, account.ID, leave.Sick, testutil.Date(2024, 3, 1), "2")

		_, err := svc.DeleteLeaveRecord(owner(account), record.ID, false)
		testutil.AssertNoError(t, err)
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).SickDays, "5", "sick_days")
	})

	t.Run("restore_is_not_capped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		account := testutil.CreateTestAccount(t, db)
		record := testutil.CreateTestLeaveRecord(t, db, account.ID, leave.Sick, testutil.Date(2024, 3, 1), "4.5")

		_, err := svc.DeleteLeaveRecord(owner(account), record.ID, true)
		testutil.AssertNoError(t, err)
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).SickDays, "9.5", "sick_days")
	})

	t.Run("admin_may_delete_any", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		account := testutil.CreateTestAccount(t, db)
		admin := testutil.CreateTestAdmin(t, db)
		record := testutil.CreateTestLeaveRecord(t, db, account.ID, leave.Personal, testutil.Date(2024, 3, 1), "1")

		_, err := svc.DeleteLeaveRecord(owner(admin), record.ID, true)
		testutil.AssertNoError(t, err)
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).PersonalDays, "15", "personal_days")
	})

	t.Run("other_user_forbidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		account := testutil.CreateTestAccount(t, db)
		intruder := testutil.CreateTestAccount(t, db)
		record := testutil.CreateTestLeaveRecord(t, db, account.ID, leave.Personal, testutil.Date(2024, 3, 1), "1")

		_, err := svc.DeleteLeaveRecord(owner(intruder), record.ID, true)
		testutil.AssertAppError(t, err, "FORBIDDEN")
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).PersonalDays, "14", "personal_days")

		var count int64
		db.Model(&models.LeaveRecord{}).Where("id = ?", record.ID).Count(&count)
		if count != 1 {
			t.Error("expected record to survive a forbidden delete")
		}
	})

	t.Run("missing_record", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		admin := testutil.CreateTestAdmin(t, db)

		_, err := svc.DeleteLeaveRecord(owner(admin), "0190b6c4-8d0e-7a4b-9c3d-1234567890ab", true)
		testutil.AssertAppError(t, err, "LEAVE_RECORD_NOT_FOUND")
	})
}

func TestOverrideDays(t *testing.T) {
	t.Run("reconciles_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		account := testutil.CreateTestAccountWithBalances(t, db, leave.Balances{FamilyCareDays: decimal.NewFromInt(4)})
		record := testutil.CreateTestLeaveRecord(t, db, account.ID, leave.FamilyCare, testutil.Date(2024, 3, 1), "3")

		updated, previous, err := svc.OverrideDays(record.ID, decimal.RequireFromString("1.5"))
		testutil.AssertNoError(t, err)
		testutil.AssertDays(t, previous, "3", "previous days")
		testutil.AssertDays(t, updated.Days, "1.5", "updated days")
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).FamilyCareDays, "5.5", "family_care_days")

		_, _, err = svc.OverrideDays(record.ID, decimal.NewFromInt(4))
		testutil.AssertNoError(t, err)
		testutil.AssertDays(t, testutil.ReloadAccount(t, db, account.ID).FamilyCareDays, "3", "family_care_days")
	})

	t.Run("rejects_invalid_counts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestLeaveService(db, nil, nil)
		account := testutil.CreateTestAccount(t, db)
		record := testutil.CreateTestLeaveRecord(t, db, account.ID, leave.Sick, testutil.Date(2024, 3, 1), "1")

		for _, d := range []string{"0", "-1", "0.25"} {
			_, _, err := svc.OverrideDays(record.ID, decimal.RequireFromString(d))
			testutil.AssertAppError(t, err, "INVALID_DAY_COUNT")
		}
		_, _, err := svc.OverrideDays("0190b6c4-8d0e-7a4b-9c3d-1234567890ab", decimal.NewFromInt(1))
		testutil.AssertAppError(t, err, "LEAVE_RECORD_NOT_FOUND")
	})
}

func TestListRecordsAndDashboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestLeaveService(db, nil, nil)
	account := testutil.CreateTestAccount(t, db)
	other := testutil.CreateTestAccount(t, db)
	admin := testutil.CreateTestAdmin(t, db)

	testutil.CreateTestLeaveRecord(t, db, account.ID, leave.Vacation, testutil.Date(2023, 12, 28), "2")
	testutil.CreateTestLeaveRecord(t, db, account.ID, leave.Vacation, testutil.Date(2024, 1, 10), "1.5")
	testutil.CreateTestLeaveRecord(t, db, account.ID, leave.Sick, testutil.Date(2024, 2, 5), "1")
	testutil.CreateTestLeaveRecord(t, db, other.ID, leave.Sick, testutil.Date(2024, 2, 6), "1")

	page, err := svc.ListRecords(owner(account), account.ID, pagination.PageRequest{Page: 1, PageSize: 2})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 3 || page.TotalPages != 2 || len(page.Data) != 2 {
		t.Fatalf("unexpected page: total=%d pages=%d len=%d", page.TotalItems, page.TotalPages, len(page.Data))
	}
	if got := page.Data[0].StartDate.Format(leave.DateLayout); got != "2024-02-05" {
		t.Errorf("expected newest record first, got %s", got)
	}

	_, err = svc.ListRecords(owner(other), account.ID, pagination.PageRequest{})
	testutil.AssertAppError(t, err, "FORBIDDEN")

	dash, err := svc.GetDashboard(owner(admin), account.ID, 0)
	testutil.AssertNoError(t, err)
	if dash.Year != 2024 || len(dash.Records) != 3 {
		t.Fatalf("unexpected dashboard: year=%d records=%d", dash.Year, len(dash.Records))
	}
	testutil.AssertDays(t, dash.Used.VacationDays, "1.5", "vacation used in 2024")
	testutil.AssertDays(t, dash.Used.SickDays, "1", "sick used in 2024")

	dash, err = svc.GetDashboard(owner(account), account.ID, 2023)
	testutil.AssertNoError(t, err)
	testutil.AssertDays(t, dash.Used.VacationDays, "2", "vacation used in 2023")

	_, err = svc.GetDashboard(owner(other), account.ID, 0)
	testutil.AssertAppError(t, err, "FORBIDDEN")
}
