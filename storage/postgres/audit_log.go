package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/nexus-universe/nexus-auth/audit"
)

// AuditLog implements audit.Log on the audit_log table. Feed it to an
// audit.Dispatcher so request handling never waits on the insert.
type AuditLog struct {
	db *sql.DB
}

func NewAuditLog(db *sql.DB) *AuditLog {
	return &AuditLog{db: db}
}

func (l *AuditLog) Record(ctx context.Context, entry audit.Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_log (action, entity_type, entity_id, user_id, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.Action, entry.EntityType, entry.EntityID, entry.AccountID,
		entry.IP, entry.UserAgent, entry.At,
	)
	return errors.Wrap(err, "[AuditLog.Record] insert")
}
