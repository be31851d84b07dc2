package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/abkawan/account-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// maxAttempts bounds the conflict retry loop for read-modify-write
// operations before surfacing ErrConflict.
const maxAttempts = 3

// Postgres is the ledger store. Accounts and their transactions live in the
// same database so that every balance change commits atomically with the
// entry that documents it.
type Postgres struct {
	db *sql.DB
}

// creates a new Postgres instance
func NewPostgres(connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an existing connection. Used by tests to inject a
// mocked *sql.DB.
func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

// initialize the database schema
func (p *Postgres) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR(36) PRIMARY KEY,
		owner TEXT NOT NULL,
		balance DECIMAL(20, 2) NOT NULL CHECK (balance >= 0),
		account_type VARCHAR(16) NOT NULL,
		fee DECIMAL(10, 2) NOT NULL DEFAULT 0,
		interest_rate DECIMAL(8, 4) NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id VARCHAR(36) PRIMARY KEY,
		account_id VARCHAR(36) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		amount DECIMAL(20, 2) NOT NULL,
		timestamp TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account_ts
		ON transactions (account_id, timestamp);`

	_, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// creates a new account
func (p *Postgres) CreateAccount(ctx context.Context, owner string, balance decimal.Decimal, accountType models.AccountType, fee, interestRate decimal.Decimal) (*models.Account, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	query := `
	INSERT INTO accounts (id, owner, balance, account_type, fee, interest_rate, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, owner, balance, account_type, fee, interest_rate, created_at, updated_at`

	var account models.Account
	err := p.db.QueryRowContext(
		ctx, query, id, owner, balance, string(accountType), fee, interestRate, now, now,
	).Scan(
		&account.ID, &account.Owner, &account.Balance, &account.AccountType,
		&account.Fee, &account.InterestRate, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &account, nil
}

// retrieves an account by ID
func (p *Postgres) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	query := `
	SELECT id, owner, balance, account_type, fee, interest_rate, created_at, updated_at
	FROM accounts
	WHERE id = $1`

	var account models.Account
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.Owner, &account.Balance, &account.AccountType,
		&account.Fee, &account.InterestRate, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// UpdateAccount overwrites balance, type and fee on the admin correction
// path. No ledger entry is written: this is not a monetary movement.
func (p *Postgres) UpdateAccount(ctx context.Context, id string, balance decimal.Decimal, accountType models.AccountType, fee decimal.Decimal) (*models.Account, error) {
	query := `
	UPDATE accounts
	SET balance = $1, account_type = $2, fee = $3, updated_at = $4
	WHERE id = $5
	RETURNING id, owner, balance, account_type, fee, interest_rate, created_at, updated_at`

	var account models.Account
	err := p.db.QueryRowContext(
		ctx, query, balance, string(accountType), fee, time.Now().UTC(), id,
	).Scan(
		&account.ID, &account.Owner, &account.Balance, &account.AccountType,
		&account.Fee, &account.InterestRate, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return &account, nil
}

// DeleteAccount removes an account and cascades its transactions in the
// same commit. The explicit entry delete keeps the disposition visible even
// though the schema FK would cascade on its own.
func (p *Postgres) DeleteAccount(ctx context.Context, id string) error {
	return p.runTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE account_id = $1", id); err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		if n == 0 {
			return models.ErrAccountNotFound
		}
		return nil
	})
}

// ApplyEntry atomically shifts the balance by delta (signed) and records the
// matching ledger entry. A delta that would drive the balance negative fails
// with ErrInsufficientFunds and leaves the account untouched.
func (p *Postgres) ApplyEntry(ctx context.Context, accountID string, delta decimal.Decimal) (*models.Transaction, decimal.Decimal, error) {
	var (
		entry      *models.Transaction
		newBalance decimal.Decimal
	)

	err := p.withRetry(ctx, func(tx *sql.Tx) error {
		balance, _, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		newBalance = balance.Add(delta)
		if newBalance.IsNegative() {
			return models.ErrInsufficientFunds
		}

		now := time.Now().UTC()
		if err := updateBalance(ctx, tx, accountID, newBalance, now); err != nil {
			return err
		}

		entry, err = insertEntry(ctx, tx, accountID, delta, now)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	return entry, newBalance, nil
}

// Transfer debits from and credits to as one atomic unit: both account rows
// are locked (in id order, so concurrent opposing transfers cannot deadlock)
// and verified before either is mutated, then both updates and both entries
// commit together.
func (p *Postgres) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*models.TransferResult, error) {
	var result *models.TransferResult

	err := p.withRetry(ctx, func(tx *sql.Tx) error {
		first, second := fromID, toID
		if second < first {
			first, second = second, first
		}

		balances := make(map[string]decimal.Decimal, 2)
		for _, id := range []string{first, second} {
			balance, _, err := lockAccount(ctx, tx, id)
			if err != nil {
				return err
			}
			balances[id] = balance
		}

		fromBalance := balances[fromID].Sub(amount)
		if fromBalance.IsNegative() {
			return models.ErrInsufficientFunds
		}
		toBalance := balances[toID].Add(amount)

		now := time.Now().UTC()
		if err := updateBalance(ctx, tx, fromID, fromBalance, now); err != nil {
			return err
		}
		if err := updateBalance(ctx, tx, toID, toBalance, now); err != nil {
			return err
		}

		debit, err := insertEntry(ctx, tx, fromID, amount.Neg(), now)
		if err != nil {
			return err
		}
		credit, err := insertEntry(ctx, tx, toID, amount, now)
		if err != nil {
			return err
		}

		result = &models.TransferResult{
			FromBalance: fromBalance,
			ToBalance:   toBalance,
			Debit:       debit,
			Credit:      credit,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// AccrueInterest credits balance * interest_rate / 100 and records the entry
// in the same commit. A zero rate still records a zero-amount entry so every
// interest application shows up in the history.
func (p *Postgres) AccrueInterest(ctx context.Context, accountID string) (*models.Transaction, decimal.Decimal, error) {
	var (
		entry      *models.Transaction
		newBalance decimal.Decimal
	)

	err := p.withRetry(ctx, func(tx *sql.Tx) error {
		balance, rate, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		interest := balance.Mul(rate).Div(decimal.NewFromInt(100))
		newBalance = balance.Add(interest)

		now := time.Now().UTC()
		if err := updateBalance(ctx, tx, accountID, newBalance, now); err != nil {
			return err
		}

		entry, err = insertEntry(ctx, tx, accountID, interest, now)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	return entry, newBalance, nil
}

// TotalBalance sums all account balances, zero when no accounts exist.
func (p *Postgres) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := p.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(balance), 0) FROM accounts").Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum balances: %w", err)
	}
	return total, nil
}

// TransactionsByAccount returns an account's entries ordered by timestamp
// ascending. from/to bound the range inclusively when non-nil.
func (p *Postgres) TransactionsByAccount(ctx context.Context, accountID string, from, to *time.Time) ([]*models.Transaction, error) {
	query := "SELECT id, account_id, amount, timestamp FROM transactions WHERE account_id = $1"
	args := []interface{}{accountID}

	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND timestamp <= $%d", len(args))
	}
	query += " ORDER BY timestamp ASC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	return txs, nil
}

// runTx executes fn inside a transaction, rolling back on error.
func (p *Postgres) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// withRetry re-runs fn when the commit lost a concurrency race. Row locks
// make lost updates impossible; serialization and deadlock errors are
// transient and retried a bounded number of times.
func (p *Postgres) withRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.runTx(ctx, fn)
		if !isRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %v", models.ErrConflict, err)
}

// isRetryable reports whether err is a serialization failure (40001) or a
// deadlock (40P01), the two transient conflict classes Postgres raises.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// lockAccount reads balance and interest rate under a row lock, pinning the
// row for the remainder of the enclosing transaction.
func lockAccount(ctx context.Context, tx *sql.Tx, id string) (balance, interestRate decimal.Decimal, err error) {
	err = tx.QueryRowContext(
		ctx,
		"SELECT balance, interest_rate FROM accounts WHERE id = $1 FOR UPDATE",
		id,
	).Scan(&balance, &interestRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, decimal.Zero, models.ErrAccountNotFound
		}
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to lock account: %w", err)
	}
	return balance, interestRate, nil
}

func updateBalance(ctx context.Context, tx *sql.Tx, id string, balance decimal.Decimal, now time.Time) error {
	_, err := tx.ExecContext(
		ctx,
		"UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3",
		balance, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, accountID string, amount decimal.Decimal, ts time.Time) (*models.Transaction, error) {
	entry := &models.Transaction{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Amount:    amount,
		Timestamp: ts,
	}

	_, err := tx.ExecContext(
		ctx,
		"INSERT INTO transactions (id, account_id, amount, timestamp) VALUES ($1, $2, $3, $4)",
		entry.ID, entry.AccountID, entry.Amount, entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return entry, nil
}
