package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a money-holding bank account. Balance is derived from
// the account's transactions and is only ever written by the recalculator.
type Account struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"` // current, savings, joint, personal
	Balance   decimal.Decimal `json:"balance"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AccountInput is used for creating/updating accounts.
type AccountInput struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive *bool  `json:"is_active"`
}

func (a *AccountInput) Validate() string {
	if a.Name == "" {
		return "name is required"
	}
	switch a.Type {
	case "current", "savings", "joint", "personal":
	default:
		return "type must be one of: current, savings, joint, personal"
	}
	return ""
}

// Active returns the is_active flag, defaulting to true when omitted.
func (a *AccountInput) Active() bool {
	if a.IsActive == nil {
		return true
	}
	return *a.IsActive
}
