// Package dashboard fans accepted RSVPs out to connected owner sessions over
// WebSocket, one feed per invitation.
package dashboard

import (
	"log/slog"
	"sync"
	"time"

	"vows/cmd/internal/app/metrics"
	"vows/cmd/internal/rsvp"
)

// Event is one wire message on a dashboard feed.
type Event struct {
	Type         string        `json:"type"`
	InvitationID string        `json:"invitation_id"`
	RSVP         rsvp.Response `json:"rsvp"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Subscriber is one connected owner session on a feed.
//
// Send is intentionally NOT closed by the hub to keep concurrent publishes
// panic-safe; Done signals teardown instead.
type Subscriber struct {
	SessionID string
	Send      chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// Done returns a channel closed when the subscriber is shutting down.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Close signals teardown (idempotent). It does NOT close Send.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Hub owns per-invitation feeds.
//
// Concurrency guarantees:
// - Subscribe/Unsubscribe are safe under concurrent PublishRSVP.
// - PublishRSVP never blocks (drops under backpressure).
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	feeds map[string]map[string]*Subscriber
}

var _ rsvp.FeedPublisher = (*Hub)(nil)

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log,
		feeds: make(map[string]map[string]*Subscriber),
	}
}

// Subscribe attaches a new session to the invitation's feed.
func (h *Hub) Subscribe(invitationID, sessionID string, queueSize int) *Subscriber {
	if queueSize <= 0 {
		queueSize = 64
	}
	sub := &Subscriber{
		SessionID: sessionID,
		Send:      make(chan Event, queueSize),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	feed, ok := h.feeds[invitationID]
	if !ok {
		feed = make(map[string]*Subscriber)
		h.feeds[invitationID] = feed
	}
	feed[sessionID] = sub
	h.mu.Unlock()

	metrics.DashboardSubscriberOpened()
	h.log.Info("dashboard.subscribe", "invitation_id", invitationID, "session_id", sessionID)
	return sub
}

// Unsubscribe removes a session from the feed and signals its shutdown.
// Removal happens before Close so a concurrent publish never holds a pointer
// to a subscriber that is mid-teardown.
func (h *Hub) Unsubscribe(invitationID, sessionID string) {
	var sub *Subscriber

	h.mu.Lock()
	if feed, ok := h.feeds[invitationID]; ok {
		sub = feed[sessionID]
		delete(feed, sessionID)
		if len(feed) == 0 {
			delete(h.feeds, invitationID)
		}
	}
	h.mu.Unlock()

	if sub != nil {
		sub.Close()
		metrics.DashboardSubscriberClosed()
	}
	h.log.Info("dashboard.unsubscribe", "invitation_id", invitationID, "session_id", sessionID)
}

// PublishRSVP fans one accepted response out to every session on the
// invitation's feed. Full queues are dropped rather than blocking the
// submitting guest.
func (h *Hub) PublishRSVP(invitationID string, resp rsvp.Response) {
	ev := Event{
		Type:         "rsvp.created",
		InvitationID: invitationID,
		RSVP:         resp,
		Timestamp:    time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.feeds[invitationID] {
		if sub == nil {
			continue
		}
		select {
		case <-sub.Done():
			continue
		default:
		}

		select {
		case sub.Send <- ev:
		default:
			metrics.RecordDashboardEventDropped()
			h.log.Info("dashboard.drop", "invitation_id", invitationID, "session_id", sub.SessionID)
		}
	}
}
