package invitation

import (
	"context"
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryStore is the no-DB fallback used in dev mode and handler tests.
// It mirrors the PostgresStore semantics, including the whole-collection
// replace on update.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[string]*Invitation
	bySlug map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[string]*Invitation),
		bySlug: make(map[string]string),
	}
}

var _ Store = (*MemoryStore)(nil)

// Create inserts a new draft.
func (s *MemoryStore) Create(ctx context.Context, ownerID string, up Update) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	if ownerID == "" || !validCreate(up) {
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
	if up.Locations != nil {
		inv.Locations = buildLocations(inv.ID, *up.Locations, now)
	}
	if up.Timeline != nil {
		inv.Timeline = buildTimeline(inv.ID, *up.Timeline, now)
	}

	s.mu.Lock()
	s.rows[inv.ID] = &inv
	s.mu.Unlock()
	return inv.deepCopy(), nil
}

// Get fetches an owned invitation.
func (s *MemoryStore) Get(ctx context.Context, ownerID, id string) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.ownedLocked(ownerID, id)
	if err != nil {
		return Invitation{}, err
	}
	return inv.deepCopy(), nil
}

// GetBySlug fetches by public slug.
func (s *MemoryStore) GetBySlug(ctx context.Context, slug string) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	if slug == "" {
		return Invitation{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySlug[slug]
	if !ok {
		return Invitation{}, ErrNotFound
	}
	return s.rows[id].deepCopy(), nil
}

// List returns the owner's invitations, newest first, without children.
func (s *MemoryStore) List(ctx context.Context, ownerID string) ([]Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Invitation
	for _, inv := range s.rows {
		if inv.OwnerID != ownerID {
			continue
		}
		cp := inv.deepCopy()
		cp.Locations = nil
		cp.Timeline = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update applies a partial update, replacing any child collection present.
func (s *MemoryStore) Update(ctx context.Context, ownerID, id string, up Update) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.ownedLocked(ownerID, id)
	if err != nil {
		return Invitation{}, err
	}
	if !inv.Editable() {
		return Invitation{}, ErrNotEditable
	}

	now := time.Now().UTC()
	applyScalars(inv, up)
	if up.Locations != nil {
		inv.Locations = buildLocations(inv.ID, *up.Locations, now)
	}
	if up.Timeline != nil {
		inv.Timeline = buildTimeline(inv.ID, *up.Timeline, now)
	}
	inv.UpdatedAt = now
	return inv.deepCopy(), nil
}

// Delete removes the invitation and its children.
func (s *MemoryStore) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.ownedLocked(ownerID, id)
	if err != nil {
		return err
	}
	if inv.Slug != "" {
		delete(s.bySlug, inv.Slug)
	}
	delete(s.rows, id)
	return nil
}

// MarkPaid transitions draft -> paid.
func (s *MemoryStore) MarkPaid(ctx context.Context, id string, paidAt, expiresAt time.Time) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.rows[id]
	if !ok {
		return Invitation{}, ErrNotFound
	}
	if inv.Status != StatusDraft {
		return Invitation{}, ErrNotEditable
	}
	inv.Status = StatusPaid
	inv.PaidAt = &paidAt
	inv.ExpiresAt = &expiresAt
	inv.UpdatedAt = paidAt
	return inv.deepCopy(), nil
}

// Publish transitions paid -> published under the given slug.
func (s *MemoryStore) Publish(ctx context.Context, ownerID, id, slug string, now time.Time) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	if slug == "" {
		return Invitation{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.ownedLocked(ownerID, id)
	if err != nil {
		return Invitation{}, err
	}
	if inv.Status != StatusPaid {
		return Invitation{}, ErrNotPublishable
	}
	if other, taken := s.bySlug[slug]; taken && other != id {
		return Invitation{}, ErrSlugTaken
	}
	inv.Status = StatusPublished
	inv.Slug = slug
	inv.PublishedAt = &now
	inv.UpdatedAt = now
	s.bySlug[slug] = id
	return inv.deepCopy(), nil
}

func (s *MemoryStore) ownedLocked(ownerID, id string) (*Invitation, error) {
	if ownerID == "" || id == "" {
		return nil, ErrInvalidInput
	}
	inv, ok := s.rows[id]
	if !ok || inv.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return inv, nil
}

// ---- shared row helpers (memory + postgres) ----

func applyScalars(inv *Invitation, up Update) {
	if up.Plan != nil {
		inv.Plan = *up.Plan
	}
	if up.TemplateID != nil {
		inv.TemplateID = *up.TemplateID
	}
	if up.Partner1Name != nil {
		inv.Partner1Name = *up.Partner1Name
	}
	if up.Partner2Name != nil {
		inv.Partner2Name = *up.Partner2Name
	}
	if up.WeddingDate != nil {
		inv.WeddingDate = *up.WeddingDate
	}
	if up.WeddingTime != nil {
		inv.WeddingTime = nilIfEmpty(*up.WeddingTime)
	}
	if up.Headline != nil {
		inv.Headline = nilIfEmpty(*up.Headline)
	}
	if up.Dresscode != nil {
		inv.Dresscode = nilIfEmpty(*up.Dresscode)
	}
	if up.DresscodeColors != nil {
		inv.DresscodeColors = up.DresscodeColors
	}
	if up.RSVPConfig != nil {
		inv.RSVPConfig = up.RSVPConfig
	}
	if up.Styling != nil {
		inv.Styling = up.Styling
	}
	if up.GiftConfig != nil {
		inv.GiftConfig = up.GiftConfig
	}
}

func buildLocations(invitationID string, in []ChildLocation, now time.Time) []Location {
	out := make([]Location, 0, len(in))
	for _, c := range in {
		out = append(out, Location{
			ID:           newRowID(now),
			InvitationID: invitationID,
			Name:         c.Name,
			Address:      c.Address,
			Time:         c.Time,
			Type:         c.Type,
			Icon:         c.Icon,
			Notes:        c.Notes,
			MapsURL:      c.MapsURL,
			Order:        c.Order,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func buildTimeline(invitationID string, in []ChildTimelineItem, now time.Time) []TimelineItem {
	out := make([]TimelineItem, 0, len(in))
	for _, c := range in {
		out = append(out, TimelineItem{
			ID:           newRowID(now),
			InvitationID: invitationID,
			Title:        c.Title,
			Time:         c.Time,
			Description:  c.Description,
			Icon:         c.Icon,
			IconType:     c.IconType,
			Order:        c.Order,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newRowID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

func (i *Invitation) deepCopy() Invitation {
	out := *i
	out.Locations = append([]Location(nil), i.Locations...)
	out.Timeline = append([]TimelineItem(nil), i.Timeline...)
	return out
}
