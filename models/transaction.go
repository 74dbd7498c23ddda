package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format for all ledger dates.
const DateLayout = "2006-01-02"

// Transaction represents one posting against a bank account.
//
// Sign convention: negative amount = inflow (income, credit), positive
// amount = outflow (expense, debit). The account balance is the negated sum
// of its transaction amounts.
//
// CreditCardID marks this row as the bank side of a credit card payment;
// the card side points back via its bank_transaction_id.
type Transaction struct {
	ID              int             `json:"id"`
	AccountID       int             `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate string          `json:"transaction_date"`
	Description     *string         `json:"description"`
	CategoryID      *int            `json:"category_id"` // opaque to the engine
	VendorID        *int            `json:"vendor_id"`   // opaque to the engine
	IsPaid          bool            `json:"is_paid"`
	IsFixed         bool            `json:"is_fixed"`
	IsForecasted    bool            `json:"is_forecasted"`
	CreditCardID    *int            `json:"credit_card_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TransactionInput is used for creating/updating bank transactions.
type TransactionInput struct {
	AccountID       int             `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate string          `json:"transaction_date"`
	Description     *string         `json:"description"`
	CategoryID      *int            `json:"category_id"`
	VendorID        *int            `json:"vendor_id"`
	IsPaid          bool            `json:"is_paid"`
	IsFixed         bool            `json:"is_fixed"`
	IsForecasted    bool            `json:"is_forecasted"`
}

func (t *TransactionInput) Validate() string {
	if t.AccountID <= 0 {
		return "account_id is required"
	}
	if t.Amount.IsZero() {
		return "amount must be non-zero"
	}
	if _, err := time.Parse(DateLayout, t.TransactionDate); err != nil {
		return "transaction_date must be YYYY-MM-DD"
	}
	return ""
}
