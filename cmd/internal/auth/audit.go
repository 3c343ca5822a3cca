package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent is one security-relevant account action.
type AuditEvent struct {
	Action    string
	UserID    string
	SessionID string
	IP        string
	UserAgent string
	Meta      map[string]any
}

// AuditRecorder persists audit events. Recording is best-effort: failures
// are logged, never surfaced to the request path.
type AuditRecorder interface {
	Record(ctx context.Context, ev AuditEvent)
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, AuditEvent) {}

// PostgresAuditLog appends audit events to the audit_log table.
type PostgresAuditLog struct {
	log    *slog.Logger
	pool   *pgxpool.Pool
	schema string
}

// NewPostgresAuditLog builds an audit recorder writing to schema.audit_log.
func NewPostgresAuditLog(log *slog.Logger, pool *pgxpool.Pool, schema string) (*PostgresAuditLog, error) {
	if log == nil {
		log = slog.Default()
	}
	if pool == nil {
		return nil, errors.New("auth: nil db pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "vows"
	}
	return &PostgresAuditLog{log: log, pool: pool, schema: schema}, nil
}

func (a *PostgresAuditLog) Record(ctx context.Context, ev AuditEvent) {
	action := strings.TrimSpace(ev.Action)
	if action == "" {
		return
	}

	var meta any
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			meta = string(b)
		}
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO `+pgx.Identifier{a.schema, "audit_log"}.Sanitize()+` (
			user_id, session_id, action, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, now(), $4, $5, $6::jsonb)
	`, trimOrNil(ev.UserID), trimOrNil(ev.SessionID), action,
		trimOrNil(ev.IP), trimOrNil(ev.UserAgent), meta)
	if err != nil {
		a.log.Error("auth audit insert failed", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
