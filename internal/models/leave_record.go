package models

import (
	"time"

	"leavedesk/internal/leave"

	"github.com/shopspring/decimal"
)

// LeaveRecord is one granted leave request. Days is fixed when the record is
// created and only changes through an administrator override.
type LeaveRecord struct {
	Base
	AccountID        string          `gorm:"type:uuid;not null;index" json:"account_id"`
	LeaveType        leave.Category  `gorm:"size:32;not null" json:"leave_type"`
	StartDate        time.Time       `gorm:"type:date;not null;index" json:"start_date"`
	EndDate          time.Time       `gorm:"type:date;not null" json:"end_date"`
	HalfDay          bool            `gorm:"not null;default:false" json:"half_day"`
	Reason           string          `gorm:"size:500" json:"reason"`
	ReceiptURL       string          `json:"receipt_url,omitempty"`
	CalendarEventURL string          `json:"calendar_event_url,omitempty"`
	Days             decimal.Decimal `gorm:"type:numeric(6,1);not null" json:"days"`
}

// Usage returns the part of the record that counts toward yearly totals.
func (r *LeaveRecord) Usage() leave.Usage {
	return leave.Usage{Category: r.LeaveType, Start: r.StartDate, Days: r.Days}
}
