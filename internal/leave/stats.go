package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// Usage is the part of a leave record that counts toward yearly totals.
type Usage struct {
	Category Category
	Start    time.Time
	Days     decimal.Decimal
}

// AnnualTotals sums the days taken per category for records starting in
// year. Records with an unknown category are skipped.
func AnnualTotals(usages []Usage, year int) Balances {
	var totals Balances
	for _, u := range usages {
		if u.Start.Year() != year {
			continue
		}
		_ = totals.Add(u.Category, u.Days)
	}
	return totals
}
