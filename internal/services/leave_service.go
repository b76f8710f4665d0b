package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leavedesk/internal/calendar"
	apperrors "leavedesk/internal/errors"
	"leavedesk/internal/leave"
	"leavedesk/internal/logger"
	"leavedesk/internal/models"
	"leavedesk/internal/pagination"
	"leavedesk/internal/storage"
)

// leaveService handles leave requests and records.
type leaveService struct {
	db              *gorm.DB
	policy          leave.Policy
	receipts        storage.ReceiptStore
	mirror          calendar.Mirror
	externalTimeout time.Duration
	now             func() time.Time
}

// NewLeaveService creates a new LeaveServicer. receipts and mirror may be
// the no-op implementations when the integrations are not configured.
func NewLeaveService(db *gorm.DB, policy leave.Policy, receipts storage.ReceiptStore, mirror calendar.Mirror, externalTimeout time.Duration) LeaveServicer {
	if receipts == nil {
		receipts = storage.NoopStore{}
	}
	if mirror == nil {
		mirror = calendar.NoopMirror{}
	}
	return &leaveService{
		db:              db,
		policy:          policy,
		receipts:        receipts,
		mirror:          mirror,
		externalTimeout: externalTimeout,
		now:             time.Now,
	}
}

// forUpdate locks the selected account row until the transaction ends.
// SQLite has no row locks and serialises writers instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// SubmitLeave validates a leave request against the caller's balance and, if
// accepted, deducts the days and stores the record in one transaction. The
// receipt upload and calendar event happen after the commit; their failures
// are returned as warnings.
func (s *leaveService) SubmitLeave(ctx context.Context, actor Identity, input SubmitLeaveInput) (*SubmitResult, error) {
	if actor.AccountID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	start, err := leave.ParseDate("start_date", input.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := leave.ParseDate("end_date", input.EndDate)
	if err != nil {
		return nil, err
	}
	days, err := leave.ComputeDays(start, end, input.HalfDay)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	if input.HalfDay {
		reason = leave.HalfDayReason(reason)
	}

	req := leave.Request{Start: start, End: end, Days: days, LeaveType: input.LeaveType}
	var (
		record  *models.LeaveRecord
		account models.Account
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&account, "id = ?", actor.AccountID).Error; err != nil {
			return notFoundOr(err, apperrors.ErrAccountNotFound)
		}

		category, err := s.policy.Validate(req, account.Balances, s.now())
		if err != nil {
			return err
		}

		remaining, _ := account.Balances.Get(category)
		if err := tx.Model(&models.Account{}).
			Where("id = ?", account.ID).
			Update(category.Column(), remaining.Sub(days)).Error; err != nil {
			return err
		}
		_ = account.Balances.Add(category, days.Neg())

		record = &models.LeaveRecord{
			AccountID: account.ID,
			LeaveType: category,
			StartDate: start,
			EndDate:   end,
			HalfDay:   input.HalfDay,
			Reason:    reason,
			Days:      days,
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	logger.Get().Infow("leave granted",
		"account_id", account.ID,
		"record_id", record.ID,
		"leave_type", record.LeaveType,
		"start_date", start.Format(leave.DateLayout),
		"end_date", end.Format(leave.DateLayout),
		"days", days.String(),
	)

	result := &SubmitResult{Record: record, Label: strings.TrimSpace(input.LeaveType)}
	if input.Receipt != nil && len(input.Receipt.Data) > 0 {
		if w := s.attachReceipt(ctx, record, input.Receipt); w != "" {
			result.Warnings = append(result.Warnings, w)
		}
	}
	if w := s.mirrorToCalendar(ctx, &account, record, result.Label); w != "" {
		result.Warnings = append(result.Warnings, w)
	}
	return result, nil
}

func (s *leaveService) attachReceipt(ctx context.Context, record *models.LeaveRecord, receipt *Receipt) string {
	ctx, cancel := context.WithTimeout(ctx, s.externalTimeout)
	defer cancel()

	url, err := s.receipts.Upload(ctx, receipt.Data, receipt.Filename, receipt.ContentType)
	if err != nil {
		logger.Get().Warnw("receipt upload failed",
			"record_id", record.ID,
			"store", s.receipts.Name(),
			"error", err,
		)
		return apperrors.ErrReceiptUpload.Message
	}

	if err := s.db.Model(record).Update("receipt_url", url).Error; err != nil {
		logger.Get().Warnw("failed to save receipt url", "record_id", record.ID, "error", err)
		return apperrors.ErrReceiptUpload.Message
	}
	record.ReceiptURL = url
	return ""
}

func (s *leaveService) mirrorToCalendar(ctx context.Context, account *models.Account, record *models.LeaveRecord, label string) string {
	if !s.mirror.Enabled() {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.externalTimeout)
	defer cancel()

	if label == "" {
		label = string(record.LeaveType)
	}
	title := fmt.Sprintf("%s - %s", account.Username, label)
	url, err := s.mirror.CreateAllDayEvent(ctx, title, record.Reason, record.StartDate, record.EndDate.AddDate(0, 0, 1))
	if err != nil {
		logger.Get().Warnw("calendar mirroring failed", "record_id", record.ID, "error", err)
		return apperrors.ErrCalendarMirror.Message
	}
	if url == "" {
		return ""
	}

	if err := s.db.Model(record).Update("calendar_event_url", url).Error; err != nil {
		logger.Get().Warnw("failed to save calendar event url", "record_id", record.ID, "error", err)
		return apperrors.ErrCalendarMirror.Message
	}
	record.CalendarEventURL = url
	return ""
}

// DeleteLeaveRecord deletes a record owned by the caller (or any record, for
// an administrator). With restore, the record's days are added back to the
// owning account's balance. It returns the owning account's ID.
func (s *leaveService) DeleteLeaveRecord(actor Identity, recordID string, restore bool) (string, error) {
	var record models.LeaveRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, "id = ?", recordID).Error; err != nil {
			return notFoundOr(err, apperrors.ErrLeaveRecordNotFound)
		}
		if !actor.CanAccess(record.AccountID) {
			return apperrors.ErrForbidden
		}

		if restore {
			if err := s.adjustBalance(tx, record.AccountID, record.LeaveType, record.Days); err != nil {
				return err
			}
		}

		return tx.Delete(&record).Error
	})
	if err != nil {
		return "", persistenceError(err)
	}

	logger.Get().Infow("leave record deleted",
		"record_id", record.ID,
		"account_id", record.AccountID,
		"restored", restore,
		"days", record.Days.String(),
	)
	return record.AccountID, nil
}

// adjustBalance adds delta to one balance of a locked account row.
func (s *leaveService) adjustBalance(tx *gorm.DB, accountID string, category leave.Category, delta decimal.Decimal) error {
	var account models.Account
	if err := forUpdate(tx).First(&account, "id = ?", accountID).Error; err != nil {
		return notFoundOr(err, apperrors.ErrAccountNotFound)
	}

	current, err := account.Balances.Get(category)
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrUnknownLeaveType,
			fmt.Sprintf("record has unknown leave category %q", category))
	}
	return tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update(category.Column(), current.Add(delta)).Error
}

// OverrideDays sets a record's day count, moving the difference between the
// old and new count onto the owning account's balance. It returns the updated
// record and the previous count.
func (s *leaveService) OverrideDays(recordID string, days decimal.Decimal) (*models.LeaveRecord, decimal.Decimal, error) {
	if !leave.IsHalfStep(days) {
		return nil, decimal.Zero, apperrors.ErrInvalidDayCount
	}

	var (
		record   models.LeaveRecord
		previous decimal.Decimal
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, "id = ?", recordID).Error; err != nil {
			return notFoundOr(err, apperrors.ErrLeaveRecordNotFound)
		}
		previous = record.Days

		if err := s.adjustBalance(tx, record.AccountID, record.LeaveType, previous.Sub(days)); err != nil {
			return err
		}

		record.Days = days
		return tx.Model(&record).Update("days", days).Error
	})
	if err != nil {
		return nil, decimal.Zero, persistenceError(err)
	}

	logger.Get().Infow("leave days overridden",
		"record_id", record.ID,
		"account_id", record.AccountID,
		"previous_days", previous.String(),
		"days", days.String(),
	)
	return &record, previous, nil
}

// GetLeaveRecord returns a record the caller may access.
func (s *leaveService) GetLeaveRecord(actor Identity, recordID string) (*models.LeaveRecord, error) {
	var record models.LeaveRecord
	if err := s.db.First(&record, "id = ?", recordID).Error; err != nil {
		return nil, notFoundOr(err, apperrors.ErrLeaveRecordNotFound)
	}
	if !actor.CanAccess(record.AccountID) {
		// Do not reveal records owned by others.
		return nil, apperrors.ErrLeaveRecordNotFound
	}
	return &record, nil
}

// ListRecords returns an account's records, newest first.
func (s *leaveService) ListRecords(actor Identity, accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.LeaveRecord], error) {
	if !actor.CanAccess(accountID) {
		return nil, apperrors.ErrForbidden
	}
	page.Defaults()

	var total int64
	base := s.db.Model(&models.LeaveRecord{}).Where("account_id = ?", accountID)
	if err := base.Count(&total).Error; err != nil {
		return nil, persistenceError(err)
	}

	var records []models.LeaveRecord
	if err := base.Scopes(pagination.Paginate(page)).
		Order("start_date DESC, created_at DESC").
		Find(&records).Error; err != nil {
		return nil, persistenceError(err)
	}

	resp := pagination.NewPageResponse(records, page.Page, page.PageSize, total)
	return &resp, nil
}

// GetDashboard returns an account's balances, all its records newest first
// and the days used per category in year. A zero year means the current one.
func (s *leaveService) GetDashboard(actor Identity, accountID string, year int) (*Dashboard, error) {
	if !actor.CanAccess(accountID) {
		return nil, apperrors.ErrForbidden
	}
	if year == 0 {
		year = s.now().Year()
	}

	var account models.Account
	if err := s.db.First(&account, "id = ?", accountID).Error; err != nil {
		return nil, notFoundOr(err, apperrors.ErrAccountNotFound)
	}

	var records []models.LeaveRecord
	if err := s.db.Where("account_id = ?", accountID).
		Order("start_date DESC, created_at DESC").
		Find(&records).Error; err != nil {
		return nil, persistenceError(err)
	}

	usages := make([]leave.Usage, 0, len(records))
	for i := range records {
		usages = append(usages, records[i].Usage())
	}

	return &Dashboard{
		Account: &account,
		Records: records,
		Year:    year,
		Used:    leave.AnnualTotals(usages, year),
	}, nil
}
