package invitation

import (
	"context"
	"time"
)

// Store is the persistence boundary for invitations.
//
// Every owner-scoped method treats "exists but belongs to someone else"
// exactly like "does not exist" (ErrNotFound), so the API never leaks which
// ids are taken.
type Store interface {
	// Create inserts a new draft owned by ownerID. The minimum viable record
	// (template, both partner names, wedding date) must be present in up.
	Create(ctx context.Context, ownerID string, up Update) (Invitation, error)

	// Get fetches an owned invitation with children ordered ascending.
	Get(ctx context.Context, ownerID, id string) (Invitation, error)

	// GetBySlug fetches by public slug regardless of owner. Callers decide
	// whether the status permits showing it.
	GetBySlug(ctx context.Context, slug string) (Invitation, error)

	// List returns all invitations owned by ownerID, newest first,
	// without children.
	List(ctx context.Context, ownerID string) ([]Invitation, error)

	// Update applies a partial update and replaces any child collection
	// present in up, all inside one transaction. Fails with ErrNotEditable
	// unless the record is a draft.
	Update(ctx context.Context, ownerID, id string, up Update) (Invitation, error)

	// Delete removes the invitation and, via relational constraints, its
	// children and responses.
	Delete(ctx context.Context, ownerID, id string) error

	// MarkPaid transitions draft -> paid. Driven by the checkout webhook,
	// hence not owner-scoped.
	MarkPaid(ctx context.Context, id string, paidAt, expiresAt time.Time) (Invitation, error)

	// Publish transitions paid -> published under the given public slug.
	Publish(ctx context.Context, ownerID, id, slug string, now time.Time) (Invitation, error)
}

func validCreate(up Update) bool {
	return strPresent(up.TemplateID) &&
		strPresent(up.Partner1Name) &&
		strPresent(up.Partner2Name) &&
		strPresent(up.WeddingDate)
}

func strPresent(p *string) bool {
	return p != nil && *p != ""
}
