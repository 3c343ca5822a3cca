package rsvp

import (
	"context"
	"sort"
	"sync"
)

// Store persists guest responses.
type Store interface {
	// Create appends one validated response.
	Create(ctx context.Context, resp Response) error
	// ListByInvitation returns all responses for an invitation, newest first.
	ListByInvitation(ctx context.Context, invitationID string) ([]Response, error)
}

// MemoryStore is the in-memory Store used when no database is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string][]Response
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]Response)}
}

func (s *MemoryStore) Create(ctx context.Context, resp Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[resp.InvitationID] = append(s.rows[resp.InvitationID], resp)
	return nil
}

func (s *MemoryStore) ListByInvitation(ctx context.Context, invitationID string) ([]Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Response, len(s.rows[invitationID]))
	copy(out, s.rows[invitationID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
