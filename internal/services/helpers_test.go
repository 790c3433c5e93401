package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baharkarakas/strichliste-backend/internal/models"
	repo "github.com/baharkarakas/strichliste-backend/internal/repository"
	"github.com/baharkarakas/strichliste-backend/internal/repository/bolt"
)

func newTestStore(t *testing.T) *bolt.Store {
	t.Helper()
	s, err := bolt.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errInjected = errors.New("injected failure")

// faultyStore counts transactions and can fail the n-th transaction row written inside one unit of work.
type faultyStore struct {
	repo.Store
	failOnCreate int
	writes       atomic.Int32
	reads        atomic.Int32
}

func (f *faultyStore) WithTx(ctx context.Context, fn func(repo.Tx) error) error {
	f.writes.Add(1)
	return f.Store.WithTx(ctx, func(tx repo.Tx) error {
		return fn(&faultyTx{Tx: tx, failOn: f.failOnCreate})
	})
}

func (f *faultyStore) ReadTx(ctx context.Context, fn func(repo.Tx) error) error {
	f.reads.Add(1)
	return f.Store.ReadTx(ctx, fn)
}

type faultyTx struct {
	repo.Tx
	failOn  int
	creates int
}

func (t *faultyTx) Transactions() repo.Transactions {
	return &faultyTxns{Transactions: t.Tx.Transactions(), tx: t}
}

type faultyTxns struct {
	repo.Transactions
	tx *faultyTx
}

func (f *faultyTxns) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	f.tx.creates++
	if f.tx.creates == f.tx.failOn {
		return models.Transaction{}, errInjected
	}
	return f.Transactions.Create(ctx, t)
}

type fixture struct {
	store  *faultyStore
	clock  *fakeClock
	ledger *LedgerService
	users  *UserService
	items  *ArticleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := &faultyStore{Store: newTestStore(t)}
	clock := newFakeClock()
	return &fixture{
		store:  fs,
		clock:  clock,
		ledger: NewLedgerService(fs, clock, GracePolicy{Period: DefaultGracePeriod}),
		users:  NewUserService(fs, time.Second),
		items:  NewArticleService(fs, time.Second),
	}
}

func (f *fixture) user(t *testing.T, nickname string) models.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), nickname, "")
	if err != nil {
		t.Fatalf("create user %s: %v", nickname, err)
	}
	return u
}

func (f *fixture) balance(t *testing.T, id int64) models.Money {
	t.Helper()
	u, err := f.users.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %d: %v", id, err)
	}
	return u.Balance
}

func (f *fixture) history(t *testing.T, id int64) []models.Transaction {
	t.Helper()
	txs, err := f.ledger.GetUserTransactions(context.Background(), id, 1000)
	if err != nil {
		t.Fatalf("history %d: %v", id, err)
	}
	return txs
}

// assertInvariant checks the cached balance against both readings of the history.
func (f *fixture) assertInvariant(t *testing.T, id int64) {
	t.Helper()
	txs := f.history(t, id)
	active, err := models.SumActive(txs)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	all, err := models.SumAll(txs)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if got := f.balance(t, id); got != active || got != all {
		t.Fatalf("user %d: balance %d, active sum %d, total sum %d", id, got, active, all)
	}
}
