package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abkawan/account-ledger/internal/models"
)

// EventSource delivers committed ledger events, typically from the queue.
type EventSource interface {
	ConsumeEvents(ctx context.Context) (<-chan models.LedgerEvent, error)
}

// Archiver copies committed ledger events from the queue into the archive
// store. It is read-side only: the ledger in Postgres is already durable
// before an event ever reaches the queue.
type Archiver struct {
	source  EventSource
	archive ArchiveStore
	logger  *slog.Logger
}

func NewArchiver(source EventSource, archive ArchiveStore, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		source:  source,
		archive: archive,
		logger:  logger,
	}
}

// Start consumes events in a background goroutine until ctx is done.
func (a *Archiver) Start(ctx context.Context) error {
	eventChan, err := a.source.ConsumeEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume events: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-eventChan:
				if !ok {
					return
				}

				if err := a.archive.ArchiveEvent(ctx, &event); err != nil {
					a.logger.Error("failed to archive event",
						"transaction_id", event.TransactionID, "error", err)
				} else {
					a.logger.Debug("archived ledger event",
						"transaction_id", event.TransactionID, "op", event.Op)
				}
			}
		}
	}()

	return nil
}
