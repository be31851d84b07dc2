package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	// Checking accounts carry a higher maintenance fee.
	Checking AccountType = "checking"

	// Savings accounts carry a lower maintenance fee.
	Savings AccountType = "savings"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == Checking || t == Savings
}

// FeeForType returns the maintenance fee derived from the account type.
// The fee is recomputed on create and update only, never on balance mutations.
func FeeForType(t AccountType) decimal.Decimal {
	switch t {
	case Savings:
		return decimal.NewFromInt(5)
	case Checking:
		return decimal.NewFromInt(10)
	default:
		return decimal.Zero
	}
}

// Account represents a bank account. Balance must never be negative
// after a committed operation.
type Account struct {
	ID           string          `json:"id" db:"id"`
	Owner        string          `json:"owner" db:"owner"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	AccountType  AccountType     `json:"account_type" db:"account_type"`
	Fee          decimal.Decimal `json:"fee" db:"fee"`
	InterestRate decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

type CreateAccountRequest struct {
	Owner        string          `json:"owner" validate:"required"`
	Balance      decimal.Decimal `json:"balance"`
	AccountType  AccountType     `json:"account_type" validate:"required,oneof=checking savings"`
	InterestRate decimal.Decimal `json:"interest_rate"`
}

type UpdateAccountRequest struct {
	Balance     decimal.Decimal `json:"balance"`
	AccountType AccountType     `json:"account_type" validate:"required,oneof=checking savings"`
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type TransferRequest struct {
	FromAccountID string          `json:"from_account_id" validate:"required"`
	ToAccountID   string          `json:"to_account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

// StatementResponse is the owner/balance view of an account.
type StatementResponse struct {
	Owner   string          `json:"owner"`
	Balance decimal.Decimal `json:"balance"`
}

type BalanceResponse struct {
	Message    string          `json:"message"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type TransferResponse struct {
	Message     string          `json:"message"`
	FromBalance decimal.Decimal `json:"from_balance"`
	ToBalance   decimal.Decimal `json:"to_balance"`
}

type TotalBalanceResponse struct {
	TotalBalance decimal.Decimal `json:"total_balance"`
}
