// Package events delivers committed ledger changes to presentation layers.
package events

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, e models.LedgerEvent) error
	Close() error
}

// LogPublisher writes events to a slog logger. Used when no broker is configured.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) Publish(_ context.Context, e models.LedgerEvent) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("ledger event",
		"event_id", e.ID,
		"kind", e.Kind,
		"user_id", e.UserID,
		"transaction_ids", e.TransactionIDs,
		"balance", int64(e.Balance),
	)
	return nil
}

func (LogPublisher) Close() error { return nil }
