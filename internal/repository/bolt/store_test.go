package bolt_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/baharkarakas/strichliste-backend/internal/models"
	"github.com/baharkarakas/strichliste-backend/internal/repository"
	"github.com/baharkarakas/strichliste-backend/internal/repository/bolt"
)

func newTestStore(t *testing.T) *bolt.Store {
	t.Helper()
	s, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strp(s string) *string { return &s }

func TestRollbackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Users().Create(ctx, "alice", strp("111")); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("expected fn error unchanged, got %v", err)
	}

	err = s.ReadTx(ctx, func(tx repository.Tx) error {
		users, err := tx.Users().List(ctx)
		if err != nil {
			return err
		}
		if len(users) != 0 {
			t.Fatalf("expected no users after rollback, got %d", len(users))
		}
		if _, err := tx.Users().GetByCardNumber(ctx, "111"); err != models.ErrUserNotFound {
			t.Fatalf("expected card index rolled back, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCardNumberIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var a, b models.User
	err := s.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		if a, err = tx.Users().Create(ctx, "alice", strp("12345")); err != nil {
			return err
		}
		b, err = tx.Users().Create(ctx, "bob", nil)
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = s.WithTx(ctx, func(tx repository.Tx) error {
		_, err := tx.Users().UpdateProfile(ctx, b.ID, "bob", strp("12345"))
		return err
	})
	if err != models.ErrCardNumberInUse {
		t.Fatalf("expected ErrCardNumberInUse, got %v", err)
	}

	err = s.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Users().UpdateProfile(ctx, a.ID, "alice", nil); err != nil {
			return err
		}
		_, err := tx.Users().UpdateProfile(ctx, b.ID, "bob", strp("12345"))
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = s.ReadTx(ctx, func(tx repository.Tx) error {
		u, err := tx.Users().GetByCardNumber(ctx, "12345")
		if err != nil || u.ID != b.ID {
			t.Fatalf("expected card held by bob, got %+v, %v", u, err)
		}
		return nil
	})
}

func TestListByUserNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var u models.User
	err := s.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		if u, err = tx.Users().Create(ctx, "alice", nil); err != nil {
			return err
		}
		for i := 0; i < 5; i++ {
			_, err := tx.Transactions().Create(ctx, models.Transaction{
				UserID:    u.ID,
				Type:      models.TxnDeposit,
				Money:     models.Money(100 * (i + 1)),
				Timestamp: base.Add(time.Duration(i) * time.Second),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = s.ReadTx(ctx, func(tx repository.Tx) error {
		txs, err := tx.Transactions().ListByUser(ctx, u.ID, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(txs) != 3 {
			t.Fatalf("expected 3 transactions, got %d", len(txs))
		}
		for i, want := range []models.Money{500, 400, 300} {
			if txs[i].Money != want {
				t.Fatalf("position %d: expected %d, got %d", i, want, txs[i].Money)
			}
		}
		return nil
	})
}

func TestReadTxIsReadOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.ReadTx(ctx, func(tx repository.Tx) error {
		_, err := tx.Users().Create(ctx, "alice", nil)
		return err
	})
	if err == nil {
		t.Fatal("expected write in read-only transaction to fail")
	}
}

func TestSingleCompensationPerOriginal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.WithTx(ctx, func(tx repository.Tx) error {
		u, err := tx.Users().Create(ctx, "alice", nil)
		if err != nil {
			return err
		}
		orig, err := tx.Transactions().Create(ctx, models.Transaction{UserID: u.ID, Type: models.TxnDeposit, Money: 100})
		if err != nil {
			return err
		}
		rev := models.Transaction{UserID: u.ID, Type: models.TxnDeposit, Money: -100, ReversesID: &orig.ID}
		if _, err := tx.Transactions().Create(ctx, rev); err != nil {
			return err
		}
		if _, err := tx.Transactions().Create(ctx, rev); err != models.ErrAlreadyUndone {
			t.Fatalf("expected ErrAlreadyUndone for second compensation, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
