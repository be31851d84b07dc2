// Package ledgertest provides in-memory doubles for the ledger store, the
// event publisher and the archive store. They mirror the Postgres store's
// semantics (not-found, insufficient funds, cascade delete, inclusive range
// bounds) closely enough for service and handler tests.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abkawan/account-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is an in-memory ledger store.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	entries  map[string][]*models.Transaction
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*models.Account),
		entries:  make(map[string][]*models.Transaction),
	}
}

func (s *Store) CreateAccount(_ context.Context, owner string, balance decimal.Decimal, accountType models.AccountType, fee, interestRate decimal.Decimal) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	account := &models.Account{
		ID:           uuid.New().String(),
		Owner:        owner,
		Balance:      balance,
		AccountType:  accountType,
		Fee:          fee,
		InterestRate: interestRate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.accounts[account.ID] = account

	copied := *account
	return &copied, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *Store) UpdateAccount(_ context.Context, id string, balance decimal.Decimal, accountType models.AccountType, fee decimal.Decimal) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	account.Balance = balance
	account.AccountType = accountType
	account.Fee = fee
	account.UpdatedAt = time.Now().UTC()

	copied := *account
	return &copied, nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return models.ErrAccountNotFound
	}
	delete(s.accounts, id)
	delete(s.entries, id)
	return nil
}

func (s *Store) ApplyEntry(_ context.Context, accountID string, delta decimal.Decimal) (*models.Transaction, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, decimal.Zero, models.ErrAccountNotFound
	}

	newBalance := account.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, decimal.Zero, models.ErrInsufficientFunds
	}

	account.Balance = newBalance
	entry := s.record(accountID, delta, time.Now().UTC())
	return entry, newBalance, nil
}

func (s *Store) Transfer(_ context.Context, fromID, toID string, amount decimal.Decimal) (*models.TransferResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.accounts[fromID]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	to, ok := s.accounts[toID]
	if !ok {
		return nil, models.ErrAccountNotFound
	}

	fromBalance := from.Balance.Sub(amount)
	if fromBalance.IsNegative() {
		return nil, models.ErrInsufficientFunds
	}

	from.Balance = fromBalance
	to.Balance = to.Balance.Add(amount)

	now := time.Now().UTC()
	return &models.TransferResult{
		FromBalance: from.Balance,
		ToBalance:   to.Balance,
		Debit:       s.record(fromID, amount.Neg(), now),
		Credit:      s.record(toID, amount, now),
	}, nil
}

func (s *Store) AccrueInterest(_ context.Context, accountID string) (*models.Transaction, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, decimal.Zero, models.ErrAccountNotFound
	}

	interest := account.Balance.Mul(account.InterestRate).Div(decimal.NewFromInt(100))
	account.Balance = account.Balance.Add(interest)

	entry := s.record(accountID, interest, time.Now().UTC())
	return entry, account.Balance, nil
}

func (s *Store) TotalBalance(_ context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, account := range s.accounts {
		total = total.Add(account.Balance)
	}
	return total, nil
}

func (s *Store) TransactionsByAccount(_ context.Context, accountID string, from, to *time.Time) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var txs []*models.Transaction
	for _, entry := range s.entries[accountID] {
		if from != nil && entry.Timestamp.Before(*from) {
			continue
		}
		if to != nil && entry.Timestamp.After(*to) {
			continue
		}
		copied := *entry
		txs = append(txs, &copied)
	}

	sort.Slice(txs, func(i, j int) bool { return txs[i].Timestamp.Before(txs[j].Timestamp) })
	return txs, nil
}

// SeedEntry inserts an entry with a caller-chosen timestamp, bypassing
// balance checks. For range-query tests.
func (s *Store) SeedEntry(accountID string, amount decimal.Decimal, ts time.Time) *models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(accountID, amount, ts)
}

// Entries returns the recorded entries for an account in insert order.
func (s *Store) Entries(accountID string) []*models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Transaction, 0, len(s.entries[accountID]))
	for _, entry := range s.entries[accountID] {
		copied := *entry
		out = append(out, &copied)
	}
	return out
}

func (s *Store) record(accountID string, amount decimal.Decimal, ts time.Time) *models.Transaction {
	entry := &models.Transaction{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Amount:    amount,
		Timestamp: ts,
	}
	s.entries[accountID] = append(s.entries[accountID], entry)

	copied := *entry
	return &copied
}

// Publisher records published events in order.
type Publisher struct {
	mu     sync.Mutex
	events []*models.LedgerEvent
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishEvent(_ context.Context, event *models.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *Publisher) Events() []*models.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.LedgerEvent(nil), p.events...)
}

// Archive is an in-memory archive store.
type Archive struct {
	mu     sync.Mutex
	events map[string][]*models.LedgerEvent
}

func NewArchive() *Archive {
	return &Archive{events: make(map[string][]*models.LedgerEvent)}
}

func (a *Archive) ArchiveEvent(_ context.Context, event *models.LedgerEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, existing := range a.events[event.AccountID] {
		if existing.TransactionID == event.TransactionID {
			return nil
		}
	}
	a.events[event.AccountID] = append(a.events[event.AccountID], event)
	return nil
}

func (a *Archive) EventsByAccount(_ context.Context, accountID string, limit int64) ([]*models.LedgerEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	events := a.events[accountID]
	if int64(len(events)) > limit {
		events = events[:limit]
	}
	return append([]*models.LedgerEvent(nil), events...), nil
}
