package bolt

import (
	"context"

	bolt "github.com/boltdb/bolt"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

type auditLogsRepo struct{ tx *bolt.Tx }

func (r *auditLogsRepo) Create(_ context.Context, l models.AuditLog) error {
	b := r.tx.Bucket(bucketAuditLogs)
	id, err := nextID(b)
	if err != nil {
		return err
	}
	l.ID = id
	l.CreatedAt = now()
	return putJSON(b, itob(id), l)
}
