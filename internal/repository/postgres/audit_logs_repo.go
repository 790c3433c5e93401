package postgres

import (
	"context"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

type auditLogsRepo struct{ q dbtx }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO audit_logs(entity_type, entity_id, action, details) VALUES($1,$2,$3,$4)`,
		l.EntityType, l.EntityID, l.Action, l.Details,
	)
	if err != nil {
		return wrap("create audit log", err)
	}
	return nil
}
