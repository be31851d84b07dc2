package models

import "errors"

// Stable error kinds surfaced by the services. Callers match with errors.Is;
// the API layer maps each kind to an HTTP status.
var (
	// ErrAccountNotFound is returned when a referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNoTransactions is returned when a history query matches nothing,
	// including the case of an existing account with no entries.
	ErrNoTransactions = errors.New("no transactions found")

	// ErrInvalidArgument is returned for malformed amounts, dates, unknown
	// account types and identity-equal transfer endpoints.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientFunds is returned when a withdrawal or transfer would
	// drive the balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict is returned after a concurrent-mutation race persisted
	// through the bounded retry loop.
	ErrConflict = errors.New("concurrent update conflict")
)
