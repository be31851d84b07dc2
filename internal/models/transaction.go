package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one immutable ledger entry. Amount is signed: positive
// for a credit, negative for a debit. The timestamp is assigned by the
// store inside the same commit as the balance change it documents.
type Transaction struct {
	ID        string          `json:"id" db:"id"`
	AccountID string          `json:"account_id" db:"account_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// TransferResult reports both post-commit balances and the paired entries
// of a committed transfer.
type TransferResult struct {
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
	Debit       *Transaction
	Credit      *Transaction
}

type LedgerOp string

const (
	OpDeposit     LedgerOp = "deposit"
	OpWithdrawal  LedgerOp = "withdrawal"
	OpTransferOut LedgerOp = "transfer_out"
	OpTransferIn  LedgerOp = "transfer_in"
	OpInterest    LedgerOp = "interest"
)

// LedgerEvent is published to the queue after an entry commits and is
// archived by the processor. Amounts travel as strings so the event
// round-trips JSON and BSON without precision loss.
type LedgerEvent struct {
	TransactionID string    `json:"transaction_id" bson:"_id"`
	AccountID     string    `json:"account_id" bson:"account_id"`
	Op            LedgerOp  `json:"op" bson:"op"`
	Amount        string    `json:"amount" bson:"amount"`
	Balance       string    `json:"balance" bson:"balance"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
}

// NewLedgerEvent builds the archive event for a committed entry.
func NewLedgerEvent(op LedgerOp, tx *Transaction, balance decimal.Decimal) *LedgerEvent {
	return &LedgerEvent{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Op:            op,
		Amount:        tx.Amount.String(),
		Balance:       balance.String(),
		Timestamp:     tx.Timestamp,
	}
}
