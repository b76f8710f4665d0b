package models

import (
	"time"

	"leavedesk/internal/leave"
)

// Account is an employee (or administrator) login holding the six leave
// balances.
type Account struct {
	Base
	Username            string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Password            string     `gorm:"not null" json:"-"`
	IsAdmin             bool       `gorm:"not null;default:false" json:"is_admin"`
	RefreshTokenHash    string     `gorm:"size:64" json:"-"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`

	leave.Balances `gorm:"embedded"`

	// Relationships
	LeaveRecords []LeaveRecord `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"leave_records,omitempty"`
}

// IsLocked reports whether logins are refused until LockedUntil.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
