package rsvp

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists guest responses in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "vows").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("rsvp: empty schema")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "vows"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("rsvp: nil db pool")
	}
	return st, nil
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) table(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

func (s *PostgresStore) Create(ctx context.Context, resp Response) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table("rsvps")+`
		   (id, invitation_id, guest_name, email, attending, guest_count, dietary, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		resp.ID, resp.InvitationID, resp.GuestName, resp.Email,
		resp.Attending, resp.GuestCount, resp.Dietary, resp.Message, resp.CreatedAt)
	return err
}

func (s *PostgresStore) ListByInvitation(ctx context.Context, invitationID string) ([]Response, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, invitation_id, guest_name, email, attending, guest_count, dietary, message, created_at
		   FROM `+s.table("rsvps")+`
		  WHERE invitation_id = $1
		  ORDER BY created_at DESC, id DESC`,
		invitationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Response, 0, 16)
	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.ID, &r.InvitationID, &r.GuestName, &r.Email,
			&r.Attending, &r.GuestCount, &r.Dietary, &r.Message, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
