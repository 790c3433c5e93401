package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/strichliste-backend/internal/metrics"
	"github.com/baharkarakas/strichliste-backend/internal/models"
	repo "github.com/baharkarakas/strichliste-backend/internal/repository"
)

const DefaultOperationTimeout = 5 * time.Second

// runner executes one operation as a single unit of work against the store and
// turns every non-domain failure into a *models.StorageError.
type runner struct {
	store   repo.Store
	timeout time.Duration
}

func (r runner) write(ctx context.Context, op string, fn func(repo.Tx) error) error {
	ctx, cancel := r.deadline(ctx)
	defer cancel()
	return r.finish(op, r.store.WithTx(ctx, fn))
}

func (r runner) read(ctx context.Context, op string, fn func(repo.Tx) error) error {
	ctx, cancel := r.deadline(ctx)
	defer cancel()
	return r.finish(op, r.store.ReadTx(ctx, fn))
}

func (r runner) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	d := r.timeout
	if d <= 0 {
		d = DefaultOperationTimeout
	}
	return context.WithTimeout(ctx, d)
}

func (r runner) finish(op string, err error) error {
	if err == nil {
		metrics.LedgerOperationsTotal.WithLabelValues(op).Inc()
		return nil
	}
	err = models.AsStorage(op, err)
	return reject(op, err)
}

// reject records a failed operation. Validation failures go through here
// without ever reaching the store.
func reject(op string, err error) error {
	code := models.Code(err)
	metrics.LedgerOperationsFailed.WithLabelValues(op, code).Inc()
	if code == models.CodeStorageFailure {
		slog.Error("operation failed", "op", op, "err", err)
	} else {
		slog.Debug("operation rejected", "op", op, "reason", code)
	}
	return err
}
