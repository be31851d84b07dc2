package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/abkawan/account-ledger/internal/ledgertest"
	"github.com/abkawan/account-ledger/internal/models"
	"github.com/abkawan/account-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelSource struct {
	ch chan models.LedgerEvent
}

func (s *channelSource) ConsumeEvents(ctx context.Context) (<-chan models.LedgerEvent, error) {
	return s.ch, nil
}

func TestArchiverArchivesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &channelSource{ch: make(chan models.LedgerEvent, 3)}
	archive := ledgertest.NewArchive()
	archiver := service.NewArchiver(source, archive, discardLogger())

	require.NoError(t, archiver.Start(ctx))

	source.ch <- models.LedgerEvent{TransactionID: "tx-1", AccountID: "acc-1", Op: models.OpDeposit, Amount: "10"}
	source.ch <- models.LedgerEvent{TransactionID: "tx-2", AccountID: "acc-1", Op: models.OpWithdrawal, Amount: "-5"}
	// redelivery of tx-1 must not duplicate the archive row
	source.ch <- models.LedgerEvent{TransactionID: "tx-1", AccountID: "acc-1", Op: models.OpDeposit, Amount: "10"}

	require.Eventually(t, func() bool {
		events, err := archive.EventsByAccount(ctx, "acc-1", 10)
		return err == nil && len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)

	events, err := archive.EventsByAccount(ctx, "acc-1", 10)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", events[0].TransactionID)
	assert.Equal(t, "tx-2", events[1].TransactionID)
}
