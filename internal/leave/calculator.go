package leave

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "leavedesk/internal/errors"
)

// DateLayout is the wire format of every date field.
const DateLayout = "2006-01-02"

// HalfDayPrefix marks the reason of a half-day request.
const HalfDayPrefix = "Half day"

var (
	half = decimal.NewFromFloat(0.5)
	one  = decimal.NewFromInt(1)
	two  = decimal.NewFromInt(2)
)

// ParseDate parses a YYYY-MM-DD string into a UTC calendar date.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, field+" is required")
	}
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must use the YYYY-MM-DD format")
	}
	return d, nil
}

// DateOf drops the time-of-day of t, keeping its calendar date in t's own
// location, and returns it as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ComputeDays converts an inclusive date range and a half-day flag into a
// day count. A single day counts 1 (0.5 with the flag); a longer range
// counts its span, minus 0.5 with the flag.
func ComputeDays(start, end time.Time, halfDay bool) (decimal.Decimal, error) {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return decimal.Zero, apperrors.ErrInvalidDateRange
	}

	span := int64(end.Sub(start)/(24*time.Hour)) + 1
	if span == 1 {
		if halfDay {
			return half, nil
		}
		return one, nil
	}

	days := decimal.NewFromInt(span)
	if halfDay {
		days = days.Sub(half)
	}
	return days, nil
}

// IsHalfStep reports whether d is a positive multiple of 0.5.
func IsHalfStep(d decimal.Decimal) bool {
	if !d.IsPositive() {
		return false
	}
	doubled := d.Mul(two)
	return doubled.Equal(doubled.Truncate(0))
}

// HalfDayReason prefixes reason so half-day requests are recognisable in
// listings.
func HalfDayReason(reason string) string {
	reason = strings.TrimSpace(reason)
	switch {
	case reason == "":
		return HalfDayPrefix
	case strings.HasPrefix(reason, HalfDayPrefix):
		return reason
	default:
		return HalfDayPrefix + " - " + reason
	}
}
