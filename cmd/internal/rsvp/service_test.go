package rsvp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"vows/cmd/internal/invitation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedInvitation creates a draft for owner-1 with the given RSVP config blob
// and walks it to published under the given slug.
func seedInvitation(t *testing.T, store invitation.Store, slug, rsvpConfig string) invitation.Invitation {
	t.Helper()
	ctx := context.Background()

	up := invitation.Update{
		TemplateID:   strPtr("botanical"),
		Partner1Name: strPtr("June"),
		Partner2Name: strPtr("Theo"),
		WeddingDate:  strPtr("2027-06-12"),
	}
	if rsvpConfig != "" {
		up.RSVPConfig = json.RawMessage(rsvpConfig)
	}
	inv, err := store.Create(ctx, "owner-1", up)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC()
	if _, err := store.MarkPaid(ctx, inv.ID, now, now.Add(365*24*time.Hour)); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	pub, err := store.Publish(ctx, "owner-1", inv.ID, slug, now)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return pub
}

func strPtr(s string) *string { return &s }

func newTestService(t *testing.T, invStore invitation.Store, opts ...ServiceOption) (*Service, *MemoryStore) {
	t.Helper()
	responses := NewMemoryStore()
	svc, err := NewService(discardLogger(), invStore, responses, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, responses
}

func TestPublishedBySlug_OnlyPublishedUnexpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := invitation.NewMemoryStore()
	svc, _ := newTestService(t, store)

	if _, err := svc.PublishedBySlug(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown slug: expected ErrNotFound, got %v", err)
	}

	// A draft has no slug and must stay invisible.
	if _, err := store.Create(ctx, "owner-1", invitation.Update{
		TemplateID:   strPtr("botanical"),
		Partner1Name: strPtr("June"),
		Partner2Name: strPtr("Theo"),
		WeddingDate:  strPtr("2027-06-12"),
	}); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	pub := seedInvitation(t, store, "june-theo", "")
	got, err := svc.PublishedBySlug(ctx, "June-Theo ")
	if err != nil {
		t.Fatalf("published slug: %v", err)
	}
	if got.ID != pub.ID || got.Status != invitation.StatusPublished {
		t.Fatalf("unexpected page payload: %+v", got)
	}
}

func TestPublishedBySlug_ExpiredReadsAsNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := invitation.NewMemoryStore()
	svc, _ := newTestService(t, store)

	inv, err := store.Create(ctx, "owner-1", invitation.Update{
		TemplateID:   strPtr("botanical"),
		Partner1Name: strPtr("June"),
		Partner2Name: strPtr("Theo"),
		WeddingDate:  strPtr("2027-06-12"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	past := time.Now().UTC().Add(-time.Hour)
	if _, err := store.MarkPaid(ctx, inv.ID, past.Add(-time.Hour), past); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if _, err := store.Publish(ctx, "owner-1", inv.ID, "short-lived", past.Add(-30*time.Minute)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if _, err := svc.PublishedBySlug(ctx, "short-lived"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired page: expected ErrNotFound, got %v", err)
	}
}

func TestSubmit_StoresAndPublishesToFeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := invitation.NewMemoryStore()

	feed := &captureFeed{}
	svc, responses := newTestService(t, store, WithFeed(feed))
	inv := seedInvitation(t, store, "june-theo", "")

	resp, err := svc.Submit(ctx, "june-theo", Submission{
		GuestName:  "  Ada Lovelace ",
		Email:      "ada@example.com",
		Attending:  true,
		GuestCount: 2,
		Dietary:    "vegetarian",
		Message:    "see you there",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.ID == "" || resp.GuestName != "Ada Lovelace" || resp.GuestCount != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	stored, err := responses.ListByInvitation(ctx, inv.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != resp.ID {
		t.Fatalf("response not stored: %+v", stored)
	}
	if len(feed.published) != 1 || feed.published[0].invitationID != inv.ID {
		t.Fatalf("feed not notified: %+v", feed.published)
	}
}

func TestSubmit_ValidatesAgainstFormConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := invitation.NewMemoryStore()
	svc, _ := newTestService(t, store)

	seedInvitation(t, store, "capped", `{"enabled":true,"fields":{"email":false,"guest_count":true,"max_guests":3,"dietary":false,"message":true}}`)

	if _, err := svc.Submit(ctx, "capped", Submission{GuestName: "", Attending: true, GuestCount: 1}); !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("empty name: expected ErrInvalidSubmission, got %v", err)
	}
	if _, err := svc.Submit(ctx, "capped", Submission{GuestName: "Ada", Attending: true, GuestCount: 4}); !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("over cap: expected ErrInvalidSubmission, got %v", err)
	}
	if _, err := svc.Submit(ctx, "capped", Submission{GuestName: "Ada", Attending: true, GuestCount: 0}); !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("zero guests while attending: expected ErrInvalidSubmission, got %v", err)
	}

	// Disabled fields are dropped rather than rejected.
	resp, err := svc.Submit(ctx, "capped", Submission{
		GuestName: "Ada", Email: "ada@example.com", Attending: true, GuestCount: 3, Dietary: "vegan", Message: "hi",
	})
	if err != nil {
		t.Fatalf("submit at cap: %v", err)
	}
	if resp.Email != "" || resp.Dietary != "" {
		t.Fatalf("disabled fields must be dropped: %+v", resp)
	}
	if resp.Message != "hi" {
		t.Fatalf("enabled field lost: %+v", resp)
	}

	// A decline carries no guest count.
	decline, err := svc.Submit(ctx, "capped", Submission{GuestName: "Grace", Attending: false, GuestCount: 5})
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if decline.Attending || decline.GuestCount != 0 {
		t.Fatalf("unexpected decline row: %+v", decline)
	}
}

func TestSubmit_DisabledAndDeadline(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := invitation.NewMemoryStore()
	svc, _ := newTestService(t, store)

	seedInvitation(t, store, "closed", `{"enabled":false}`)
	if _, err := svc.Submit(ctx, "closed", Submission{GuestName: "Ada", Attending: true, GuestCount: 1}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled: expected ErrDisabled, got %v", err)
	}

	seedInvitation(t, store, "too-late", `{"enabled":true,"deadline":"2020-01-01"}`)
	if _, err := svc.Submit(ctx, "too-late", Submission{GuestName: "Ada", Attending: true, GuestCount: 1}); !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("deadline: expected ErrDeadlinePassed, got %v", err)
	}

	// A future deadline still accepts.
	future := time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02")
	seedInvitation(t, store, "in-time", `{"enabled":true,"deadline":"`+future+`"}`)
	if _, err := svc.Submit(ctx, "in-time", Submission{GuestName: "Ada", Attending: true, GuestCount: 1}); err != nil {
		t.Fatalf("future deadline: %v", err)
	}
}

func TestListForOwner_ChecksOwnership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := invitation.NewMemoryStore()
	svc, _ := newTestService(t, store)
	inv := seedInvitation(t, store, "june-theo", "")

	if _, err := svc.Submit(ctx, "june-theo", Submission{GuestName: "Ada", Attending: true, GuestCount: 1}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := svc.ListForOwner(ctx, "owner-1", inv.ID)
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 response, got %d", len(got))
	}

	if _, err := svc.ListForOwner(ctx, "owner-2", inv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stranger list: expected ErrNotFound, got %v", err)
	}
}

func TestDeadlinePassed(t *testing.T) {
	t.Parallel()

	now := time.Date(2027, 6, 10, 12, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		deadline string
		want     bool
	}{
		{"", false},
		{"not-a-date", false},
		{"2027-06-09", true},
		{"2027-06-10", false}, // inclusive through end of day
		{"2027-06-11", false},
	} {
		if got := deadlinePassed(tc.deadline, now); got != tc.want {
			t.Errorf("deadlinePassed(%q) = %v, want %v", tc.deadline, got, tc.want)
		}
	}
}

type captureFeed struct {
	published []struct {
		invitationID string
		resp         Response
	}
}

func (c *captureFeed) PublishRSVP(invitationID string, resp Response) {
	c.published = append(c.published, struct {
		invitationID string
		resp         Response
	}{invitationID, resp})
}
