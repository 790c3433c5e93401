package repository

import (
	"context"
	"errors"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

// ErrConflict is returned (wrapped) when the store gave up on a lock or
// aborted the transaction because of a concurrent writer.
var ErrConflict = errors.New("concurrent modification")

type Users interface {
	Create(ctx context.Context, nickname string, cardNumber *string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	// GetForUpdate loads the user and holds its row until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (models.User, error)
	GetByCardNumber(ctx context.Context, cardNumber string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, id int64, nickname string, cardNumber *string) (models.User, error)
	SetBalance(ctx context.Context, id int64, balance models.Money) error
}

type Transactions interface {
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id int64) (models.Transaction, error)
	GetForUpdate(ctx context.Context, id int64) (models.Transaction, error)
	// ListByUser returns newest first; limit <= 0 means the whole history.
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
	LinkPair(ctx context.Context, a, b int64) error
	MarkUndone(ctx context.Context, id int64) error
}

type Articles interface {
	Create(ctx context.Context, name string, price models.Money) (models.Article, error)
	GetByID(ctx context.Context, id int64) (models.Article, error)
	List(ctx context.Context) ([]models.Article, error)
	Update(ctx context.Context, a models.Article) (models.Article, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Tx is one unit of work. Changes made through it become visible together on
// commit or not at all.
type Tx interface {
	Users() Users
	Transactions() Transactions
	Articles() Articles
	AuditLogs() AuditLogs
}

type Store interface {
	// WithTx runs fn in a read-write transaction, rolling back if fn returns an error.
	// fn's error is returned unchanged.
	WithTx(ctx context.Context, fn func(Tx) error) error
	// ReadTx runs fn against a consistent read-only snapshot.
	ReadTx(ctx context.Context, fn func(Tx) error) error
	Close() error
}
