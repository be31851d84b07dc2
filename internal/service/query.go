package service

import (
	"context"
	"time"

	"github.com/abkawan/account-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// QueryService serves the read-only operations: statement, total balance
// and transaction history. archive may be nil when no archive store is
// configured.
type QueryService struct {
	store   Store
	archive ArchiveStore
}

func NewQueryService(store Store, archive ArchiveStore) *QueryService {
	return &QueryService{
		store:   store,
		archive: archive,
	}
}

// GetStatement returns the owner/balance view of an account.
func (s *QueryService) GetStatement(ctx context.Context, accountID string) (*models.StatementResponse, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &models.StatementResponse{
		Owner:   account.Owner,
		Balance: account.Balance,
	}, nil
}

// GetTotalBalance sums all account balances; zero when no accounts exist.
func (s *QueryService) GetTotalBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.store.TotalBalance(ctx)
}

// GetTransactionHistory returns an account's entries ordered by timestamp
// ascending, bounded inclusively by from/to when non-nil. An empty result is
// ErrNoTransactions even when the account exists: the original service
// reported empty history as not-found and clients depend on it.
func (s *QueryService) GetTransactionHistory(ctx context.Context, accountID string, from, to *time.Time) ([]*models.Transaction, error) {
	txs, err := s.store.TransactionsByAccount(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, models.ErrNoTransactions
	}
	return txs, nil
}

// GetArchivedEvents reads the audit archive for an account. Returns
// ErrNoTransactions when the archive is not configured or holds nothing for
// the account.
func (s *QueryService) GetArchivedEvents(ctx context.Context, accountID string, limit int64) ([]*models.LedgerEvent, error) {
	if s.archive == nil {
		return nil, models.ErrNoTransactions
	}

	events, err := s.archive.EventsByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, models.ErrNoTransactions
	}
	return events, nil
}
