package service

import (
	"context"
	"time"

	"github.com/abkawan/account-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Store is the durable ledger the services operate on. Every mutating
// operation is atomic: the balance change and its ledger entries either all
// commit or none do, and no partial state is ever observable.
type Store interface {
	CreateAccount(ctx context.Context, owner string, balance decimal.Decimal, accountType models.AccountType, fee, interestRate decimal.Decimal) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	UpdateAccount(ctx context.Context, id string, balance decimal.Decimal, accountType models.AccountType, fee decimal.Decimal) (*models.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	ApplyEntry(ctx context.Context, accountID string, delta decimal.Decimal) (*models.Transaction, decimal.Decimal, error)
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*models.TransferResult, error)
	AccrueInterest(ctx context.Context, accountID string) (*models.Transaction, decimal.Decimal, error)

	TotalBalance(ctx context.Context) (decimal.Decimal, error)
	TransactionsByAccount(ctx context.Context, accountID string, from, to *time.Time) ([]*models.Transaction, error)
}

// EventPublisher receives committed ledger events for archiving.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *models.LedgerEvent) error
}

// ArchiveStore holds the archived copy of committed ledger events.
type ArchiveStore interface {
	ArchiveEvent(ctx context.Context, event *models.LedgerEvent) error
	EventsByAccount(ctx context.Context, accountID string, limit int64) ([]*models.LedgerEvent, error)
}
