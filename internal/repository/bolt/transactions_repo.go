package bolt

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	bolt "github.com/boltdb/bolt"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

type transactionsRepo struct{ tx *bolt.Tx }

func (r *transactionsRepo) get(id int64) (models.Transaction, error) {
	var t models.Transaction
	ok, err := getJSON(r.tx.Bucket(bucketTransactions), itob(id), &t)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("decode transaction %d: %w", id, err)
	}
	if !ok {
		return models.Transaction{}, models.ErrTransactionNotFound
	}
	return t, nil
}

func (r *transactionsRepo) put(t models.Transaction) error {
	if err := putJSON(r.tx.Bucket(bucketTransactions), itob(t.ID), t); err != nil {
		return fmt.Errorf("put transaction %d: %w", t.ID, err)
	}
	return nil
}

func (r *transactionsRepo) Create(_ context.Context, t models.Transaction) (models.Transaction, error) {
	if r.tx.Bucket(bucketUsers).Get(itob(t.UserID)) == nil {
		return models.Transaction{}, models.ErrUserNotFound
	}
	if t.ReversesID != nil {
		// at most one compensation per original
		reversed, err := r.isReversed(*t.ReversesID)
		if err != nil {
			return models.Transaction{}, err
		}
		if reversed {
			return models.Transaction{}, models.ErrAlreadyUndone
		}
	}
	id, err := nextID(r.tx.Bucket(bucketTransactions))
	if err != nil {
		return models.Transaction{}, err
	}
	t.ID = id
	if err := r.put(t); err != nil {
		return models.Transaction{}, err
	}
	key := append(itob(t.UserID), itob(t.ID)...)
	if err := r.tx.Bucket(bucketUserTxns).Put(key, nil); err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

// isReversed scans the original's owner history for a compensation of it.
func (r *transactionsRepo) isReversed(original int64) (bool, error) {
	orig, err := r.get(original)
	if err != nil {
		return false, err
	}
	history, err := r.byUser(orig.UserID)
	if err != nil {
		return false, err
	}
	for _, t := range history {
		if t.ReversesID != nil && *t.ReversesID == original {
			return true, nil
		}
	}
	return false, nil
}

func (r *transactionsRepo) byUser(userID int64) ([]models.Transaction, error) {
	prefix := itob(userID)
	out := []models.Transaction{}
	c := r.tx.Bucket(bucketUserTxns).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		t, err := r.get(btoi(k[8:]))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *transactionsRepo) GetByID(_ context.Context, id int64) (models.Transaction, error) {
	return r.get(id)
}

func (r *transactionsRepo) GetForUpdate(_ context.Context, id int64) (models.Transaction, error) {
	return r.get(id)
}

func (r *transactionsRepo) ListByUser(_ context.Context, userID int64, limit int) ([]models.Transaction, error) {
	out, err := r.byUser(userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *transactionsRepo) LinkPair(_ context.Context, a, b int64) error {
	ta, err := r.get(a)
	if err != nil {
		return err
	}
	tb, err := r.get(b)
	if err != nil {
		return err
	}
	if ta.PairID != nil || tb.PairID != nil {
		return fmt.Errorf("link pair %d/%d: already paired", a, b)
	}
	ta.PairID, tb.PairID = &b, &a
	if err := r.put(ta); err != nil {
		return err
	}
	return r.put(tb)
}

func (r *transactionsRepo) MarkUndone(_ context.Context, id int64) error {
	t, err := r.get(id)
	if err != nil {
		return err
	}
	if t.Undone {
		return models.ErrAlreadyUndone
	}
	t.Undone = true
	return r.put(t)
}
