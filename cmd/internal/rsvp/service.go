package rsvp

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"vows/cmd/internal/app/metrics"
	"vows/cmd/internal/invitation"

	"github.com/google/uuid"
)

const (
	maxNameLen    = 200
	maxMessageLen = 2000
)

// FeedPublisher receives every accepted response for live owner dashboards.
// Implementations must not block.
type FeedPublisher interface {
	PublishRSVP(invitationID string, resp Response)
}

// Service validates guest submissions against the invitation's form config
// and fans accepted responses out to storage and the dashboard feed.
type Service struct {
	log         *slog.Logger
	invitations invitation.Store
	responses   Store
	feed        FeedPublisher

	now func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithFeed attaches a live feed publisher.
func WithFeed(feed FeedPublisher) ServiceOption {
	return func(s *Service) { s.feed = feed }
}

// NewService constructs an RSVP Service.
func NewService(log *slog.Logger, invitations invitation.Store, responses Store, opts ...ServiceOption) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if invitations == nil || responses == nil {
		return nil, errors.New("rsvp: nil store")
	}
	s := &Service{
		log:         log,
		invitations: invitations,
		responses:   responses,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// PublishedBySlug resolves the public page payload. Anything other than a
// published, unexpired invitation reads as not found so drafts and expired
// pages are indistinguishable from absent ones.
func (s *Service) PublishedBySlug(ctx context.Context, slug string) (invitation.Invitation, error) {
	inv, err := s.invitations.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, invitation.ErrNotFound) {
			return invitation.Invitation{}, ErrNotFound
		}
		return invitation.Invitation{}, err
	}
	if inv.EffectiveStatus(s.now()) != invitation.StatusPublished {
		return invitation.Invitation{}, ErrNotFound
	}
	inv.Status = invitation.StatusPublished
	return inv, nil
}

// Submit validates and stores one guest response against the invitation's
// form config, then publishes it to the dashboard feed.
func (s *Service) Submit(ctx context.Context, slug string, sub Submission) (Response, error) {
	inv, err := s.PublishedBySlug(ctx, slug)
	if err != nil {
		return Response{}, err
	}

	cfg := parseFormConfig(inv.RSVPConfig)
	if !cfg.Enabled {
		return Response{}, ErrDisabled
	}
	if deadlinePassed(cfg.Deadline, s.now()) {
		return Response{}, ErrDeadlinePassed
	}

	resp, err := buildResponse(inv.ID, cfg, sub, s.now())
	if err != nil {
		return Response{}, err
	}

	if err := s.responses.Create(ctx, resp); err != nil {
		return Response{}, err
	}

	s.log.Info("rsvp accepted",
		"invitation_id", inv.ID, "rsvp_id", resp.ID, "attending", resp.Attending)
	metrics.RecordRSVPSubmission(resp.Attending)
	if s.feed != nil {
		s.feed.PublishRSVP(inv.ID, resp)
	}
	return resp, nil
}

// ListForOwner returns all responses for one of the owner's invitations.
func (s *Service) ListForOwner(ctx context.Context, ownerID, invitationID string) ([]Response, error) {
	if _, err := s.invitations.Get(ctx, ownerID, invitationID); err != nil {
		if errors.Is(err, invitation.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.responses.ListByInvitation(ctx, invitationID)
}

// deadlinePassed treats the deadline date as inclusive: replies are accepted
// through the end of that day (UTC).
func deadlinePassed(deadline string, now time.Time) bool {
	deadline = strings.TrimSpace(deadline)
	if deadline == "" {
		return false
	}
	day, err := time.Parse("2006-01-02", deadline)
	if err != nil {
		return false
	}
	return !now.Before(day.Add(24 * time.Hour))
}

func buildResponse(invitationID string, cfg formConfig, sub Submission, now time.Time) (Response, error) {
	name := strings.TrimSpace(sub.GuestName)
	if name == "" || len(name) > maxNameLen {
		return Response{}, ErrInvalidSubmission
	}
	if len(sub.Message) > maxMessageLen || len(sub.Dietary) > maxMessageLen {
		return Response{}, ErrInvalidSubmission
	}

	resp := Response{
		ID:           uuid.NewString(),
		InvitationID: invitationID,
		GuestName:    name,
		Attending:    sub.Attending,
		CreatedAt:    now,
	}

	// Fields the owner did not enable are dropped, not rejected; older
	// published pages may still render them.
	if cfg.Fields.Email {
		resp.Email = strings.TrimSpace(sub.Email)
	}
	if cfg.Fields.Dietary {
		resp.Dietary = strings.TrimSpace(sub.Dietary)
	}
	if cfg.Fields.Message {
		resp.Message = strings.TrimSpace(sub.Message)
	}

	if sub.Attending {
		count := sub.GuestCount
		if !cfg.Fields.GuestCount {
			count = 1
		}
		if count < 1 {
			return Response{}, ErrInvalidSubmission
		}
		if cfg.Fields.MaxGuests > 0 && count > cfg.Fields.MaxGuests {
			return Response{}, ErrInvalidSubmission
		}
		resp.GuestCount = count
	}

	return resp, nil
}
