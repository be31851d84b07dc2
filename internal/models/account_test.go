package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFeeForType(t *testing.T) {
	assert.True(t, FeeForType(Savings).Equal(decimal.NewFromInt(5)))
	assert.True(t, FeeForType(Checking).Equal(decimal.NewFromInt(10)))
	assert.True(t, FeeForType(AccountType("unknown")).Equal(decimal.Zero))
}

func TestAccountTypeValid(t *testing.T) {
	assert.True(t, Checking.Valid())
	assert.True(t, Savings.Valid())
	assert.False(t, AccountType("").Valid())
	assert.False(t, AccountType("premium").Valid())
}

func TestNewLedgerEvent(t *testing.T) {
	tx := &Transaction{
		ID:        "tx-1",
		AccountID: "acc-1",
		Amount:    decimal.NewFromInt(-30),
	}

	event := NewLedgerEvent(OpTransferOut, tx, decimal.NewFromInt(70))
	assert.Equal(t, "tx-1", event.TransactionID)
	assert.Equal(t, "acc-1", event.AccountID)
	assert.Equal(t, OpTransferOut, event.Op)
	assert.Equal(t, "-30", event.Amount)
	assert.Equal(t, "70", event.Balance)
}
