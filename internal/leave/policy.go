package leave

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "leavedesk/internal/errors"
)

// Policy holds the tunable limits applied to every leave request.
type Policy struct {
	// MaxFutureDays is how far past today a request may reach.
	MaxFutureDays int
	// MaxLeaveDays caps a single request regardless of category.
	MaxLeaveDays decimal.Decimal
	// Labels maps submitted leave_type labels to categories. Category codes
	// themselves are always accepted.
	Labels map[string]Category
	// Defaults are the balances given to a newly created account.
	Defaults Balances
}

// DefaultLabels are the form labels used by the front end.
func DefaultLabels() map[string]Category {
	return map[string]Category{
		"annual": Vacation,
		"特休":     Vacation,
		"病假":     Sick,
		"事假":     Personal,
		"生理假":    Menstrual,
		"家庭照顧假":  FamilyCare,
		"同情假":    Compassionate,
	}
}

// DefaultPolicy returns the stock limits: 60 days ahead, 5 days per request
// and 10/5/14/5/7/3 initial days.
func DefaultPolicy() Policy {
	return Policy{
		MaxFutureDays: 60,
		MaxLeaveDays:  decimal.NewFromInt(5),
		Labels:        DefaultLabels(),
		Defaults: Balances{
			VacationDays:      decimal.NewFromInt(10),
			SickDays:          decimal.NewFromInt(5),
			PersonalDays:      decimal.NewFromInt(14),
			MenstrualDays:     decimal.NewFromInt(5),
			FamilyCareDays:    decimal.NewFromInt(7),
			CompassionateDays: decimal.NewFromInt(3),
		},
	}
}

// Resolve maps a submitted leave_type to its category.
func (p Policy) Resolve(label string) (Category, error) {
	label = strings.TrimSpace(label)
	if c := Category(strings.ToLower(label)); c.Valid() {
		return c, nil
	}
	for _, key := range []string{label, strings.ToLower(label)} {
		if c, ok := p.Labels[key]; ok && c.Valid() {
			return c, nil
		}
	}
	return "", apperrors.ErrUnknownLeaveType
}

// Request is a parsed leave request awaiting validation.
type Request struct {
	Start     time.Time
	End       time.Time
	Days      decimal.Decimal
	LeaveType string
}

// Validate applies the policy to req against the account's current balances,
// stopping at the first violation. It returns the resolved category.
func (p Policy) Validate(req Request, balances Balances, now time.Time) (Category, error) {
	start, end := DateOf(req.Start), DateOf(req.End)
	if start.After(end) {
		return "", apperrors.ErrInvalidDateRange
	}

	limit := DateOf(now).AddDate(0, 0, p.MaxFutureDays)
	if start.After(limit) || end.After(limit) {
		return "", apperrors.WithMessage(apperrors.ErrBeyondFutureWindow,
			fmt.Sprintf("Leave dates cannot be more than %d days ahead", p.MaxFutureDays))
	}

	if req.Days.GreaterThan(p.MaxLeaveDays) {
		return "", apperrors.WithMessage(apperrors.ErrExceedsRequestCap,
			fmt.Sprintf("A single request cannot exceed %s days", p.MaxLeaveDays.String()))
	}

	category, err := p.Resolve(req.LeaveType)
	if err != nil {
		return "", err
	}

	remaining, err := balances.Get(category)
	if err != nil {
		return "", apperrors.ErrUnknownLeaveType
	}
	if req.Days.GreaterThan(remaining) {
		return "", apperrors.WithMessage(apperrors.ErrInsufficientBalance,
			fmt.Sprintf("Insufficient %s balance: %s days remaining", category, remaining.String()))
	}

	return category, nil
}
