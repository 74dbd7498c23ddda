package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditCard represents a revolving-debt instrument with its own statement
// cycle. CurrentBalance and AvailableCredit are derived; negative balance
// means money owed. All rates are fractions (0.05 = 5%).
type CreditCard struct {
	ID                int              `json:"id"`
	Name              string           `json:"name"`
	CreditLimit       decimal.Decimal  `json:"credit_limit"`
	AnnualRate        decimal.Decimal  `json:"annual_rate"`
	MonthlyRate       decimal.Decimal  `json:"monthly_rate"`
	MinPaymentPercent decimal.Decimal  `json:"min_payment_percent"`
	SetPayment        *decimal.Decimal `json:"set_payment"`
	StatementDay      int              `json:"statement_day"` // 1-31, clipped to short months
	PaymentAccountID  *int             `json:"payment_account_id"`
	StartDate         *string          `json:"start_date"`
	IsActive          bool             `json:"is_active"`
	CurrentBalance    decimal.Decimal  `json:"current_balance"`
	AvailableCredit   decimal.Decimal  `json:"available_credit"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// CreditCardInput is used for creating/updating credit cards.
type CreditCardInput struct {
	Name              string           `json:"name"`
	CreditLimit       decimal.Decimal  `json:"credit_limit"`
	AnnualRate        decimal.Decimal  `json:"annual_rate"`
	MonthlyRate       decimal.Decimal  `json:"monthly_rate"`
	MinPaymentPercent decimal.Decimal  `json:"min_payment_percent"`
	SetPayment        *decimal.Decimal `json:"set_payment"`
	StatementDay      int              `json:"statement_day"`
	PaymentAccountID  *int             `json:"payment_account_id"`
	StartDate         *string          `json:"start_date"`
	IsActive          *bool            `json:"is_active"`
}

func (c *CreditCardInput) Validate() string {
	if c.Name == "" {
		return "name is required"
	}
	if c.CreditLimit.IsNegative() || c.CreditLimit.IsZero() {
		return "credit_limit must be positive"
	}
	if c.StatementDay < 1 || c.StatementDay > 31 {
		return "statement_day must be between 1 and 31"
	}
	if c.MonthlyRate.IsNegative() || c.MinPaymentPercent.IsNegative() {
		return "rates must not be negative"
	}
	if c.SetPayment != nil && !c.SetPayment.IsPositive() {
		return "set_payment must be positive when provided"
	}
	if c.StartDate != nil {
		if _, err := time.Parse(DateLayout, *c.StartDate); err != nil {
			return "start_date must be YYYY-MM-DD"
		}
	}
	return ""
}

// Active returns the is_active flag, defaulting to true when omitted.
func (c *CreditCardInput) Active() bool {
	if c.IsActive == nil {
		return true
	}
	return *c.IsActive
}

// Promotion types.
const (
	PromoPurchase        = "purchase"
	PromoBalanceTransfer = "balance_transfer"
)

// CardPromotion is a promotional interest window on a credit card. A window
// covers a date d when start_date <= d <= end_date.
type CardPromotion struct {
	ID           int             `json:"id"`
	CreditCardID int             `json:"credit_card_id"`
	PromoType    string          `json:"promo_type"`
	Rate         decimal.Decimal `json:"rate"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	Notes        *string         `json:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CardPromotionInput is used for creating promotional windows.
type CardPromotionInput struct {
	PromoType string          `json:"promo_type"`
	Rate      decimal.Decimal `json:"rate"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Notes     *string         `json:"notes"`
}

func (p *CardPromotionInput) Validate() string {
	switch p.PromoType {
	case PromoPurchase, PromoBalanceTransfer:
	default:
		return "promo_type must be one of: purchase, balance_transfer"
	}
	if p.Rate.IsNegative() {
		return "rate must not be negative"
	}
	start, err := time.Parse(DateLayout, p.StartDate)
	if err != nil {
		return "start_date must be YYYY-MM-DD"
	}
	end, err := time.Parse(DateLayout, p.EndDate)
	if err != nil {
		return "end_date must be YYYY-MM-DD"
	}
	if end.Before(start) {
		return "end_date must not be before start_date"
	}
	return ""
}
