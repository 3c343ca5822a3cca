package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplySchema creates the schema and all tables if they do not exist.
// It is idempotent and safe to run on every startup; production
// deployments that manage DDL elsewhere disable it via
// VOWS_DB_APPLY_SCHEMA=false.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	ident := pgx.Identifier{schema}.Sanitize()
	table := func(name string) string {
		return pgx.Identifier{schema, name}.Sanitize()
	}

	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + ident,

		`CREATE TABLE IF NOT EXISTS ` + table("users") + ` (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			display_name  TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS ` + table("sessions") + ` (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES ` + table("users") + `(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS ` + table("audit_log") + ` (
			id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			user_id    TEXT,
			session_id TEXT,
			action     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			ip         TEXT,
			user_agent TEXT,
			meta       JSONB
		)`,

		`CREATE INDEX IF NOT EXISTS audit_log_action_idx
			ON ` + table("audit_log") + ` (action, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS ` + table("invitations") + ` (
			id               TEXT PRIMARY KEY,
			owner_id         TEXT NOT NULL REFERENCES ` + table("users") + `(id) ON DELETE CASCADE,
			slug             TEXT,
			status           TEXT NOT NULL CHECK (status IN ('draft', 'paid', 'published', 'expired')),
			plan             TEXT NOT NULL,
			template_id      TEXT NOT NULL,
			partner1_name    TEXT NOT NULL,
			partner2_name    TEXT NOT NULL,
			wedding_date     TEXT NOT NULL,
			wedding_time     TEXT,
			headline         TEXT,
			dresscode        TEXT,
			dresscode_colors JSONB,
			rsvp_config      JSONB,
			styling          JSONB,
			gift_config      JSONB,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL,
			paid_at          TIMESTAMPTZ,
			published_at     TIMESTAMPTZ,
			expires_at       TIMESTAMPTZ
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS invitations_slug_idx
			ON ` + table("invitations") + ` (slug) WHERE slug IS NOT NULL`,

		`CREATE TABLE IF NOT EXISTS ` + table("invitation_locations") + ` (
			id            TEXT PRIMARY KEY,
			invitation_id TEXT NOT NULL REFERENCES ` + table("invitations") + `(id) ON DELETE CASCADE,
			name          TEXT NOT NULL,
			address       TEXT NOT NULL,
			time          TEXT NOT NULL,
			type          TEXT NOT NULL,
			icon          TEXT NOT NULL,
			notes         TEXT,
			maps_url      TEXT,
			sort_order    INT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS invitation_locations_invitation_idx
			ON ` + table("invitation_locations") + ` (invitation_id, sort_order)`,

		`CREATE TABLE IF NOT EXISTS ` + table("invitation_timeline") + ` (
			id            TEXT PRIMARY KEY,
			invitation_id TEXT NOT NULL REFERENCES ` + table("invitations") + `(id) ON DELETE CASCADE,
			title         TEXT NOT NULL,
			time          TEXT NOT NULL,
			description   TEXT,
			icon          TEXT,
			icon_type     TEXT NOT NULL,
			sort_order    INT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS invitation_timeline_invitation_idx
			ON ` + table("invitation_timeline") + ` (invitation_id, sort_order)`,

		`CREATE TABLE IF NOT EXISTS ` + table("rsvps") + ` (
			id            TEXT PRIMARY KEY,
			invitation_id TEXT NOT NULL REFERENCES ` + table("invitations") + `(id) ON DELETE CASCADE,
			guest_name    TEXT NOT NULL,
			email         TEXT NOT NULL,
			attending     BOOLEAN NOT NULL,
			guest_count   INT NOT NULL,
			dietary       TEXT NOT NULL,
			message       TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS rsvps_invitation_idx
			ON ` + table("rsvps") + ` (invitation_id, created_at DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
