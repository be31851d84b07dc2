package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abkawan/account-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// AccountService validates and applies balance-affecting operations against
// the ledger store. The store handle is injected; there is no shared global
// session.
type AccountService struct {
	store  Store
	events EventPublisher
	logger *slog.Logger
}

// NewAccountService creates an AccountService. events may be nil when no
// archive pipeline is configured.
func NewAccountService(store Store, events EventPublisher, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		store:  store,
		events: events,
		logger: logger,
	}
}

// creates a new account
func (s *AccountService) CreateAccount(ctx context.Context, owner string, balance decimal.Decimal, accountType models.AccountType, interestRate decimal.Decimal) (*models.Account, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: owner must not be empty", models.ErrInvalidArgument)
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance cannot be negative", models.ErrInvalidArgument)
	}
	if !accountType.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", models.ErrInvalidArgument, accountType)
	}

	fee := models.FeeForType(accountType)
	account, err := s.store.CreateAccount(ctx, owner, balance, accountType, fee, interestRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account created", "account_id", account.ID, "owner", account.Owner)
	return account, nil
}

// Deposit credits amount to the account and records the entry in the same
// commit. Returns the new balance.
func (s *AccountService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: deposit amount must be positive", models.ErrInvalidArgument)
	}

	entry, newBalance, err := s.store.ApplyEntry(ctx, accountID, amount)
	if err != nil {
		return decimal.Zero, err
	}

	s.publish(ctx, models.NewLedgerEvent(models.OpDeposit, entry, newBalance))
	return newBalance, nil
}

// Withdraw debits amount from the account. Fails with ErrInsufficientFunds
// when the balance cannot cover it, leaving the account untouched.
func (s *AccountService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: withdrawal amount must be positive", models.ErrInvalidArgument)
	}

	entry, newBalance, err := s.store.ApplyEntry(ctx, accountID, amount.Neg())
	if err != nil {
		return decimal.Zero, err
	}

	s.publish(ctx, models.NewLedgerEvent(models.OpWithdrawal, entry, newBalance))
	return newBalance, nil
}

// Transfer moves amount between two accounts as one atomic unit; both
// entries and both balance updates commit together or not at all.
func (s *AccountService) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*models.TransferResult, error) {
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", models.ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: transfer amount must be positive", models.ErrInvalidArgument)
	}

	result, err := s.store.Transfer(ctx, fromID, toID, amount)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.NewLedgerEvent(models.OpTransferOut, result.Debit, result.FromBalance))
	s.publish(ctx, models.NewLedgerEvent(models.OpTransferIn, result.Credit, result.ToBalance))
	return result, nil
}

// ApplyInterest credits balance * interest_rate / 100. A zero rate still
// records a zero-amount entry.
func (s *AccountService) ApplyInterest(ctx context.Context, accountID string) (decimal.Decimal, error) {
	entry, newBalance, err := s.store.AccrueInterest(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	s.publish(ctx, models.NewLedgerEvent(models.OpInterest, entry, newBalance))
	return newBalance, nil
}

// UpdateAccount overwrites balance and type on the admin correction path and
// recomputes the fee. No ledger entry is written.
func (s *AccountService) UpdateAccount(ctx context.Context, accountID string, balance decimal.Decimal, accountType models.AccountType) (*models.Account, error) {
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: balance cannot be negative", models.ErrInvalidArgument)
	}
	if !accountType.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", models.ErrInvalidArgument, accountType)
	}

	fee := models.FeeForType(accountType)
	return s.store.UpdateAccount(ctx, accountID, balance, accountType, fee)
}

// DeleteAccount removes the account and its transactions.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID string) error {
	if err := s.store.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	s.logger.Info("account deleted", "account_id", accountID)
	return nil
}

// publish sends a committed event to the archive queue. The ledger commit is
// already durable, so a publish failure is logged and the call still
// succeeds.
func (s *AccountService) publish(ctx context.Context, event *models.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish ledger event",
			"transaction_id", event.TransactionID, "op", event.Op, "error", err)
	}
}
