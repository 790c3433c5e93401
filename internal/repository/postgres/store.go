package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/strichliste-backend/internal/repository"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// New builds a store on pool. A positive lockTimeout bounds how long a
// transaction waits for a row lock before failing with repository.ErrConflict.
func New(pool *pgxpool.Pool, lockTimeout time.Duration) *Store {
	return &Store{pool: pool, lockTimeout: lockTimeout}
}

var _ repository.Store = (*Store)(nil)

type repos struct{ q dbtx }

func (r repos) Users() repository.Users               { return &usersRepo{r.q} }
func (r repos) Transactions() repository.Transactions { return &transactionsRepo{r.q} }
func (r repos) Articles() repository.Articles         { return &articlesRepo{r.q} }
func (r repos) AuditLogs() repository.AuditLogs       { return &auditLogsRepo{r.q} }

// WithTx runs fn at READ COMMITTED. Writers serialize on the users rows they
// lock with SELECT ... FOR UPDATE, so disjoint users never block each other.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return wrap("begin", err)
	}
	if s.lockTimeout > 0 {
		ms := strconv.FormatInt(s.lockTimeout.Milliseconds(), 10) + "ms"
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
			_ = tx.Rollback(ctx)
			return wrap("set lock_timeout", err)
		}
	}
	if err := fn(repos{tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("commit", err)
	}
	return nil
}

func (s *Store) ReadTx(ctx context.Context, fn func(repository.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return wrap("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	return fn(repos{tx})
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeSerializationFail   = "40001"
	codeDeadlockDetected    = "40P01"
	codeLockNotAvailable    = "55P03"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func wrap(op string, err error) error {
	switch pgCode(err) {
	case codeSerializationFail, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%s: %w: %v", op, repository.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// notFound maps pgx.ErrNoRows to the domain sentinel and wraps anything else.
func notFound(op string, err error, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return wrap(op, err)
}
