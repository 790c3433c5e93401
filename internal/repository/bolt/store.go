// Package bolt stores the ledger in a single BoltDB file.
//
// Bolt allows a single read-write transaction at a time, so every WithTx call
// is serialized against all other writers. Readers run concurrently on
// snapshots. Values are JSON documents keyed by big-endian ids, which keeps
// cursor order equal to id order.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/baharkarakas/strichliste-backend/internal/repository"
)

var (
	bucketUsers        = []byte("users")
	bucketCards        = []byte("card_numbers")
	bucketTransactions = []byte("transactions")
	bucketUserTxns     = []byte("user_transactions")
	bucketArticles     = []byte("articles")
	bucketAuditLogs    = []byte("audit_logs")
)

type Store struct {
	db *bolt.DB
}

var _ repository.Store = (*Store)(nil)

// Open opens (or creates) the database file at path and makes sure all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketCards, bucketTransactions, bucketUserTxns, bucketArticles, bucketAuditLogs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type repos struct{ tx *bolt.Tx }

func (r repos) Users() repository.Users               { return &usersRepo{r.tx} }
func (r repos) Transactions() repository.Transactions { return &transactionsRepo{r.tx} }
func (r repos) Articles() repository.Articles         { return &articlesRepo{r.tx} }
func (r repos) AuditLogs() repository.AuditLogs       { return &auditLogsRepo{r.tx} }

func (s *Store) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var fnErr error
	err := s.db.Update(func(tx *bolt.Tx) error {
		if fnErr = fn(repos{tx}); fnErr != nil {
			return fnErr
		}
		// a caller that gave up must not see its work committed afterwards
		return ctx.Err()
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("bolt update: %w", err)
	}
	return nil
}

func (s *Store) ReadTx(ctx context.Context, fn func(repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error { return fn(repos{tx}) })
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 { return int64(binary.BigEndian.Uint64(b)) }

// nextID hands out monotonically increasing ids per bucket.
func nextID(b *bolt.Bucket) (int64, error) {
	seq, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	return int64(seq), nil
}

func getJSON(b *bolt.Bucket, key []byte, v any) (bool, error) {
	data := b.Get(key)
	if data == nil {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func now() time.Time { return time.Now().UTC() }
