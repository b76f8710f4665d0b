// Package leave holds the leave-day arithmetic and the request validation
// rules. It has no dependency on storage, transport or the wall clock: callers
// pass "now" in explicitly.
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Category identifies one of the six leave balances an account holds.
type Category string

const (
	Vacation      Category = "vacation"
	Sick          Category = "sick"
	Personal      Category = "personal"
	Menstrual     Category = "menstrual"
	FamilyCare    Category = "family_care"
	Compassionate Category = "compassionate"
)

// Categories lists every known category in display order.
var Categories = []Category{Vacation, Sick, Personal, Menstrual, FamilyCare, Compassionate}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Vacation, Sick, Personal, Menstrual, FamilyCare, Compassionate:
		return true
	}
	return false
}

// Column returns the accounts table column holding the balance for c.
func (c Category) Column() string {
	switch c {
	case Vacation:
		return "vacation_days"
	case Sick:
		return "sick_days"
	case Personal:
		return "personal_days"
	case Menstrual:
		return "menstrual_days"
	case FamilyCare:
		return "family_care_days"
	case Compassionate:
		return "compassionate_days"
	}
	return ""
}

// Balances holds one decimal day count per category. It is embedded in the
// account model and also reused for per-year usage totals.
type Balances struct {
	VacationDays      decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0" json:"vacation_days"`
	SickDays          decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0" json:"sick_days"`
	PersonalDays      decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0" json:"personal_days"`
	MenstrualDays     decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0" json:"menstrual_days"`
	FamilyCareDays    decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0" json:"family_care_days"`
	CompassionateDays decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0" json:"compassionate_days"`
}

func (b *Balances) slot(c Category) *decimal.Decimal {
	switch c {
	case Vacation:
		return &b.VacationDays
	case Sick:
		return &b.SickDays
	case Personal:
		return &b.PersonalDays
	case Menstrual:
		return &b.MenstrualDays
	case FamilyCare:
		return &b.FamilyCareDays
	case Compassionate:
		return &b.CompassionateDays
	}
	return nil
}

// Get returns the balance held for c.
func (b Balances) Get(c Category) (decimal.Decimal, error) {
	p := b.slot(c)
	if p == nil {
		return decimal.Zero, fmt.Errorf("unknown leave category %q", c)
	}
	return *p, nil
}

// Set overwrites the balance held for c.
func (b *Balances) Set(c Category, days decimal.Decimal) error {
	p := b.slot(c)
	if p == nil {
		return fmt.Errorf("unknown leave category %q", c)
	}
	*p = days
	return nil
}

// Add adds days (which may be negative) to the balance held for c.
func (b *Balances) Add(c Category, days decimal.Decimal) error {
	p := b.slot(c)
	if p == nil {
		return fmt.Errorf("unknown leave category %q", c)
	}
	*p = p.Add(days)
	return nil
}

// AnyNegative reports whether any balance is below zero.
func (b Balances) AnyNegative() bool {
	for _, c := range Categories {
		if b.slot(c).IsNegative() {
			return true
		}
	}
	return false
}

// Map returns the balances keyed by category.
func (b Balances) Map() map[Category]decimal.Decimal {
	m := make(map[Category]decimal.Decimal, len(Categories))
	for _, c := range Categories {
		m[c] = *b.slot(c)
	}
	return m
}
