package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Card transaction types.
const (
	CardTxnPurchase        = "Purchase"
	CardTxnPayment         = "Payment"
	CardTxnInterest        = "Interest"
	CardTxnBalanceTransfer = "BalanceTransfer"
	CardTxnReward          = "Reward"
	CardTxnFee             = "Fee"
)

// CardTransaction represents one posting against a credit card.
//
// Sign convention: negative amount = debt increase (purchase, interest,
// fee), positive amount = debt decrease (payment, reward). The card balance
// is the plain sum of its transaction amounts, so negative balance = owed.
//
// BalanceAfter/AvailableAfter are the running figures after this row in
// (date, id) order; the recalculator rewrites them on every mutation.
type CardTransaction struct {
	ID                int              `json:"id"`
	CreditCardID      int              `json:"credit_card_id"`
	Date              string           `json:"date"`
	Amount            decimal.Decimal  `json:"amount"`
	Type              string           `json:"type"`
	Description       *string          `json:"description"`
	AppliedRate       *decimal.Decimal `json:"applied_rate"`
	IsPromotionalRate bool             `json:"is_promotional_rate"`
	IsPaid            bool             `json:"is_paid"`
	IsFixed           bool             `json:"is_fixed"`
	BalanceAfter      *decimal.Decimal `json:"balance_after"`
	AvailableAfter    *decimal.Decimal `json:"available_after"`
	BankTransactionID *int             `json:"bank_transaction_id"`
	StatementID       *int             `json:"statement_id"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// CardTransactionInput is used for creating/updating card transactions.
type CardTransactionInput struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description *string         `json:"description"`
	IsPaid      bool            `json:"is_paid"`
	IsFixed     bool            `json:"is_fixed"`
}

func (c *CardTransactionInput) Validate() string {
	switch c.Type {
	case CardTxnPurchase, CardTxnPayment, CardTxnInterest,
		CardTxnBalanceTransfer, CardTxnReward, CardTxnFee:
	default:
		return "type must be one of: Purchase, Payment, Interest, BalanceTransfer, Reward, Fee"
	}
	if c.Amount.IsZero() && c.Type != CardTxnInterest {
		return "amount must be non-zero"
	}
	if _, err := time.Parse(DateLayout, c.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	return ""
}
