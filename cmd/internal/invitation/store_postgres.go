package invitation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists invitations in PostgreSQL.
//
// Updates run inside a single transaction: ownership precheck (FOR UPDATE),
// optional delete-then-recreate per child collection, partial parent update,
// ordered refetch. A failure anywhere rolls the whole write back.
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
			return ErrInvalidInput
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
		return nil, ErrInvalidInput
	}
	return st, nil
}

var _ Store = (*PostgresStore)(nil)

const invitationColumns = `id, owner_id, slug, status, plan, template_id,
	partner1_name, partner2_name, wedding_date, wedding_time, headline, dresscode,
	dresscode_colors, rsvp_config, styling, gift_config,
	created_at, updated_at, paid_at, published_at, expires_at`

// Create inserts a new draft row plus any provided children in one transaction.
func (s *PostgresStore) Create(ctx context.Context, ownerID string, up Update) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	if strings.TrimSpace(ownerID) == "" || !validCreate(up) {
		return Invitation{}, ErrInvalidInput
	}

	now := time.Now().UTC()
	inv := Invitation{
		ID:        newRowID(now),
		OwnerID:   ownerID,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyScalars(&inv, up)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Invitation{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO `+s.table("invitations")+` (`+invitationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		inv.ID, inv.OwnerID, nilIfEmpty(inv.Slug), inv.Status, inv.Plan, inv.TemplateID,
		inv.Partner1Name, inv.Partner2Name, inv.WeddingDate, inv.WeddingTime, inv.Headline, inv.Dresscode,
		inv.DresscodeColors, inv.RSVPConfig, inv.Styling, inv.GiftConfig,
		inv.CreatedAt, inv.UpdatedAt, inv.PaidAt, inv.PublishedAt, inv.ExpiresAt,
	)
	if err != nil {
		return Invitation{}, err
	}

	if up.Locations != nil {
		if err := s.insertLocationsTx(ctx, tx, inv.ID, *up.Locations, now); err != nil {
			return Invitation{}, err
		}
	}
	if up.Timeline != nil {
		if err := s.insertTimelineTx(ctx, tx, inv.ID, *up.Timeline, now); err != nil {
			return Invitation{}, err
		}
	}

	out, err := s.fetchTx(ctx, tx, inv.ID)
	if err != nil {
		return Invitation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Invitation{}, err
	}
	return out, nil
}

// Get fetches an owned invitation with ordered children.
func (s *PostgresStore) Get(ctx context.Context, ownerID, id string) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	if ownerID == "" || id == "" {
		return Invitation{}, ErrInvalidInput
	}

	inv, err := s.scanOne(ctx, s.pool,
		`SELECT `+invitationColumns+` FROM `+s.table("invitations")+` WHERE id = $1 AND owner_id = $2`,
		id, ownerID)
	if err != nil {
		return Invitation{}, err
	}
	if err := s.loadChildren(ctx, &inv); err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

// GetBySlug fetches by public slug with ordered children.
func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	if slug == "" {
		return Invitation{}, ErrInvalidInput
	}
	inv, err := s.scanOne(ctx, s.pool,
		`SELECT `+invitationColumns+` FROM `+s.table("invitations")+` WHERE slug = $1`,
		slug)
	if err != nil {
		return Invitation{}, err
	}
	if err := s.loadChildren(ctx, &inv); err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

// List returns the owner's invitations, newest first, without children.
func (s *PostgresStore) List(ctx context.Context, ownerID string) ([]Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, ErrInvalidInput
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+invitationColumns+` FROM `+s.table("invitations")+`
		  WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Update applies a partial update and replaces provided child collections,
// all inside one transaction. Ownership is checked with a locking fetch
// before anything is mutated.
func (s *PostgresStore) Update(ctx context.Context, ownerID, id string, up Update) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	if ownerID == "" || id == "" {
		return Invitation{}, ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Invitation{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx,
		`SELECT status FROM `+s.table("invitations")+` WHERE id = $1 AND owner_id = $2 FOR UPDATE`,
		id, ownerID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invitation{}, ErrNotFound
	}
	if err != nil {
		return Invitation{}, err
	}
	if status != StatusDraft {
		return Invitation{}, ErrNotEditable
	}

	now := time.Now().UTC()

	if up.Locations != nil {
		if _, err := tx.Exec(ctx,
			`DELETE FROM `+s.table("invitation_locations")+` WHERE invitation_id = $1`, id); err != nil {
			return Invitation{}, err
		}
		if err := s.insertLocationsTx(ctx, tx, id, *up.Locations, now); err != nil {
			return Invitation{}, err
		}
	}
	if up.Timeline != nil {
		if _, err := tx.Exec(ctx,
			`DELETE FROM `+s.table("invitation_timeline")+` WHERE invitation_id = $1`, id); err != nil {
			return Invitation{}, err
		}
		if err := s.insertTimelineTx(ctx, tx, id, *up.Timeline, now); err != nil {
			return Invitation{}, err
		}
	}

	set, args := buildParentSet(up, now)
	args = append(args, id)
	_, err = tx.Exec(ctx,
		`UPDATE `+s.table("invitations")+` SET `+strings.Join(set, ", ")+
			fmt.Sprintf(` WHERE id = $%d`, len(args)),
		args...)
	if err != nil {
		return Invitation{}, err
	}

	out, err := s.fetchTx(ctx, tx, id)
	if err != nil {
		return Invitation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Invitation{}, err
	}
	return out, nil
}

// Delete removes an owned invitation; children cascade via FK constraints.
func (s *PostgresStore) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ownerID == "" || id == "" {
		return ErrInvalidInput
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+s.table("invitations")+` WHERE id = $1 AND owner_id = $2`,
		id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPaid transitions draft -> paid.
func (s *PostgresStore) MarkPaid(ctx context.Context, id string, paidAt, expiresAt time.Time) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	if id == "" {
		return Invitation{}, ErrInvalidInput
	}
	inv, err := s.scanOne(ctx, s.pool,
		`UPDATE `+s.table("invitations")+`
		    SET status = $2, paid_at = $3, expires_at = $4, updated_at = $3
		  WHERE id = $1 AND status = $5
		RETURNING `+invitationColumns,
		id, StatusPaid, paidAt, expiresAt, StatusDraft)
	if errors.Is(err, ErrNotFound) {
		// Distinguish missing row from wrong status.
		var status Status
		selErr := s.pool.QueryRow(ctx,
			`SELECT status FROM `+s.table("invitations")+` WHERE id = $1`, id).Scan(&status)
		if errors.Is(selErr, pgx.ErrNoRows) {
			return Invitation{}, ErrNotFound
		}
		if selErr != nil {
			return Invitation{}, selErr
		}
		return Invitation{}, ErrNotEditable
	}
	if err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

// Publish transitions paid -> published under the given slug.
func (s *PostgresStore) Publish(ctx context.Context, ownerID, id, slug string, now time.Time) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	if ownerID == "" || id == "" || slug == "" {
		return Invitation{}, ErrInvalidInput
	}
	inv, err := s.scanOne(ctx, s.pool,
		`UPDATE `+s.table("invitations")+`
		    SET status = $3, slug = $4, published_at = $5, updated_at = $5
		  WHERE id = $1 AND owner_id = $2 AND status = $6
		RETURNING `+invitationColumns,
		id, ownerID, StatusPublished, slug, now, StatusPaid)
	if errors.Is(err, ErrNotFound) {
		var status Status
		selErr := s.pool.QueryRow(ctx,
			`SELECT status FROM `+s.table("invitations")+` WHERE id = $1 AND owner_id = $2`,
			id, ownerID).Scan(&status)
		if errors.Is(selErr, pgx.ErrNoRows) {
			return Invitation{}, ErrNotFound
		}
		if selErr != nil {
			return Invitation{}, selErr
		}
		return Invitation{}, ErrNotPublishable
	}
	if err != nil {
		return Invitation{}, err
	}
	if err := s.loadChildren(ctx, &inv); err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

// ---- internals ----

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) table(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

func (s *PostgresStore) scanOne(ctx context.Context, q pgQuerier, sql string, args ...any) (Invitation, error) {
	inv, err := scanInvitation(q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invitation{}, ErrNotFound
	}
	return inv, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (Invitation, error) {
	var inv Invitation
	var slug *string
	err := row.Scan(
		&inv.ID, &inv.OwnerID, &slug, &inv.Status, &inv.Plan, &inv.TemplateID,
		&inv.Partner1Name, &inv.Partner2Name, &inv.WeddingDate, &inv.WeddingTime, &inv.Headline, &inv.Dresscode,
		&inv.DresscodeColors, &inv.RSVPConfig, &inv.Styling, &inv.GiftConfig,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.PaidAt, &inv.PublishedAt, &inv.ExpiresAt,
	)
	if err != nil {
		return Invitation{}, err
	}
	if slug != nil {
		inv.Slug = *slug
	}
	return inv, nil
}

func (s *PostgresStore) fetchTx(ctx context.Context, tx pgx.Tx, id string) (Invitation, error) {
	inv, err := s.scanOne(ctx, tx,
		`SELECT `+invitationColumns+` FROM `+s.table("invitations")+` WHERE id = $1`, id)
	if err != nil {
		return Invitation{}, err
	}
	if err := s.loadChildrenQ(ctx, tx, &inv); err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

func (s *PostgresStore) loadChildren(ctx context.Context, inv *Invitation) error {
	return s.loadChildrenQ(ctx, s.pool, inv)
}

func (s *PostgresStore) loadChildrenQ(ctx context.Context, q pgQuerier, inv *Invitation) error {
	rows, err := q.Query(ctx,
		`SELECT id, invitation_id, name, address, time, type, icon, notes, maps_url, sort_order
		   FROM `+s.table("invitation_locations")+`
		  WHERE invitation_id = $1 ORDER BY sort_order ASC`,
		inv.ID)
	if err != nil {
		return err
	}
	inv.Locations = make([]Location, 0, 4)
	for rows.Next() {
		var l Location
		var notes, mapsURL *string
		if err := rows.Scan(&l.ID, &l.InvitationID, &l.Name, &l.Address, &l.Time, &l.Type, &l.Icon, &notes, &mapsURL, &l.Order); err != nil {
			rows.Close()
			return err
		}
		if notes != nil {
			l.Notes = *notes
		}
		if mapsURL != nil {
			l.MapsURL = *mapsURL
		}
		inv.Locations = append(inv.Locations, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx,
		`SELECT id, invitation_id, title, time, description, icon, icon_type, sort_order
		   FROM `+s.table("invitation_timeline")+`
		  WHERE invitation_id = $1 ORDER BY sort_order ASC`,
		inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	inv.Timeline = make([]TimelineItem, 0, 4)
	for rows.Next() {
		var it TimelineItem
		var desc, icon *string
		if err := rows.Scan(&it.ID, &it.InvitationID, &it.Title, &it.Time, &desc, &icon, &it.IconType, &it.Order); err != nil {
			return err
		}
		if desc != nil {
			it.Description = *desc
		}
		if icon != nil {
			it.Icon = *icon
		}
		inv.Timeline = append(inv.Timeline, it)
	}
	return rows.Err()
}

func (s *PostgresStore) insertLocationsTx(ctx context.Context, tx pgx.Tx, invitationID string, in []ChildLocation, now time.Time) error {
	if len(in) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(in))
	for _, c := range in {
		rows = append(rows, []any{
			newRowID(now), invitationID, c.Name, c.Address, c.Time, c.Type, c.Icon,
			nilIfEmpty(c.Notes), nilIfEmpty(c.MapsURL), c.Order,
		})
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{s.schema, "invitation_locations"},
		[]string{"id", "invitation_id", "name", "address", "time", "type", "icon", "notes", "maps_url", "sort_order"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (s *PostgresStore) insertTimelineTx(ctx context.Context, tx pgx.Tx, invitationID string, in []ChildTimelineItem, now time.Time) error {
	if len(in) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(in))
	for _, c := range in {
		rows = append(rows, []any{
			newRowID(now), invitationID, c.Title, c.Time,
			nilIfEmpty(c.Description), nilIfEmpty(c.Icon), c.IconType, c.Order,
		})
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{s.schema, "invitation_timeline"},
		[]string{"id", "invitation_id", "title", "time", "description", "icon", "icon_type", "sort_order"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// buildParentSet collects SET clauses for fields present in the update.
// Absent pointers leave the column untouched; empty strings clear nullable
// columns via nilIfEmpty.
func buildParentSet(up Update, now time.Time) ([]string, []any) {
	set := make([]string, 0, 14)
	args := make([]any, 0, 14)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if up.Plan != nil {
		add("plan", *up.Plan)
	}
	if up.TemplateID != nil {
		add("template_id", *up.TemplateID)
	}
	if up.Partner1Name != nil {
		add("partner1_name", *up.Partner1Name)
	}
	if up.Partner2Name != nil {
		add("partner2_name", *up.Partner2Name)
	}
	if up.WeddingDate != nil {
		add("wedding_date", *up.WeddingDate)
	}
	if up.WeddingTime != nil {
		add("wedding_time", nilIfEmpty(*up.WeddingTime))
	}
	if up.Headline != nil {
		add("headline", nilIfEmpty(*up.Headline))
	}
	if up.Dresscode != nil {
		add("dresscode", nilIfEmpty(*up.Dresscode))
	}
	if up.DresscodeColors != nil {
		add("dresscode_colors", up.DresscodeColors)
	}
	if up.RSVPConfig != nil {
		add("rsvp_config", up.RSVPConfig)
	}
	if up.Styling != nil {
		add("styling", up.Styling)
	}
	if up.GiftConfig != nil {
		add("gift_config", up.GiftConfig)
	}
	add("updated_at", now)
	return set, args
}
