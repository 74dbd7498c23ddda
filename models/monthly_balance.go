package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyBalance is one materialized cache row: the end-of-month balance for
// an account. Actual covers only cleared (is_paid) transactions; Projected
// covers all of them, including forecasted rows for future months. Unique
// per (account_id, year_month).
type MonthlyBalance struct {
	ID               int             `json:"id"`
	AccountID        int             `json:"account_id"`
	YearMonth        string          `json:"year_month"` // YYYY-MM
	ActualBalance    decimal.Decimal `json:"actual_balance"`
	ProjectedBalance decimal.Decimal `json:"projected_balance"`
	LastCalculated   time.Time       `json:"last_calculated"`
}
