package builder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordedRequest struct {
	Method  string
	Path    string
	Payload savePayload
}

// newSyncTestServer returns a server answering every save with the given id,
// recording requests as they arrive.
func newSyncTestServer(t *testing.T, id string) (*httptest.Server, *[]recordedRequest, *sync.Mutex) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p savePayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		reqs = append(reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Payload: p})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs, &mu
}

func validDraftStore() *Store {
	s := NewStore(nil)
	s.SetPlan(PlanBasic)
	s.SetTemplate("botanical")
	s.SetPartner1Name("June")
	s.SetPartner2Name("Theo")
	s.SetWeddingDate("2027-06-12")
	return s
}

func TestSyncer_CreateThenUpdate(t *testing.T) {
	t.Parallel()

	srv, reqs, mu := newSyncTestServer(t, "abc123")
	store := validDraftStore()
	syncer := NewSyncer(store, srv.URL)

	if err := syncer.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	doc := store.Document()
	if doc.InvitationID != "abc123" {
		t.Fatalf("expected adopted id abc123, got %q", doc.InvitationID)
	}
	if doc.IsDirty {
		t.Fatalf("expected clean document after save")
	}
	if doc.LastSaved.IsZero() {
		t.Fatalf("expected LastSaved stamp")
	}

	store.SetHeadline("We are getting married")
	if err := syncer.Save(context.Background()); err != nil {
		t.Fatalf("second save: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(*reqs))
	}
	first, second := (*reqs)[0], (*reqs)[1]
	if first.Method != http.MethodPost || first.Path != "/api/invitations" {
		t.Fatalf("expected POST /api/invitations, got %s %s", first.Method, first.Path)
	}
	if second.Method != http.MethodPut || second.Path != "/api/invitations/abc123" {
		t.Fatalf("expected PUT /api/invitations/abc123, got %s %s", second.Method, second.Path)
	}
	if second.Payload.Headline == nil || *second.Payload.Headline != "We are getting married" {
		t.Fatalf("headline missing from update payload")
	}
}

func TestSyncer_IdempotentWhenClean(t *testing.T) {
	t.Parallel()

	srv, reqs, mu := newSyncTestServer(t, "abc123")
	store := validDraftStore()
	syncer := NewSyncer(store, srv.URL)

	if err := syncer.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	// No intervening mutation: must be a no-op.
	if err := syncer.Save(context.Background()); err != nil {
		t.Fatalf("second save: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*reqs) != 1 {
		t.Fatalf("expected exactly 1 request, got %d", len(*reqs))
	}
}

func TestSyncer_MinimumViableRecordGuard(t *testing.T) {
	t.Parallel()

	srv, reqs, mu := newSyncTestServer(t, "abc123")
	store := NewStore(nil)
	store.SetTemplate("botanical")
	store.SetPartner2Name("Theo")
	store.SetWeddingDate("2027-06-12")
	// Partner1Name deliberately empty.

	syncer := NewSyncer(store, srv.URL)
	if err := syncer.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	mu.Lock()
	count := len(*reqs)
	mu.Unlock()
	if count != 0 {
		t.Fatalf("expected zero requests, got %d", count)
	}
	if !store.Document().IsDirty {
		t.Fatalf("guarded save must leave the dirty flag untouched")
	}
}

func TestSyncer_ReentrancyGuard(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "abc123"})
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	store := validDraftStore()
	syncer := NewSyncer(store, srv.URL)

	done := make(chan error, 1)
	go func() { done <- syncer.Save(context.Background()) }()

	// Wait until the first request is in flight.
	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("first save never reached the server")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// The second save must be rejected, not queued.
	if err := syncer.Save(context.Background()); err != nil {
		t.Fatalf("concurrent save should no-op, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 request in flight, got %d", got)
	}

	release <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}
}

func TestSyncer_ErrorKeepsDirtyForRetry(t *testing.T) {
	t.Parallel()

	var status atomic.Int64
	status.Store(http.StatusInternalServerError)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		if code != http.StatusOK {
			http.Error(w, "boom", code)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "abc123"})
	}))
	t.Cleanup(srv.Close)

	store := validDraftStore()
	syncer := NewSyncer(store, srv.URL)

	if err := syncer.Save(context.Background()); err == nil {
		t.Fatalf("expected save error")
	}
	doc := store.Document()
	if !doc.IsDirty {
		t.Fatalf("failed save must keep the document dirty")
	}
	if doc.IsSaving {
		t.Fatalf("failed save must clear the in-flight flag")
	}
	if doc.SaveError == "" {
		t.Fatalf("expected a recorded save error")
	}

	// Retry against a healthy server succeeds with the same payload.
	status.Store(http.StatusOK)
	if err := syncer.Save(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	doc = store.Document()
	if doc.IsDirty || doc.SaveError != "" {
		t.Fatalf("successful retry must clear dirty and error state: %+v", doc)
	}
}

func TestSyncer_TimeoutClearsSavingFlag(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	store := validDraftStore()
	syncer := NewSyncer(store, srv.URL, WithSaveTimeout(50*time.Millisecond))

	if err := syncer.Save(context.Background()); err == nil {
		t.Fatalf("expected timeout error")
	}
	doc := store.Document()
	if doc.IsSaving {
		t.Fatalf("timed-out save left the store wedged in saving state")
	}
	if !doc.IsDirty || doc.SaveError == "" {
		t.Fatalf("timed-out save must keep dirty and record an error")
	}
}

func TestSyncer_PayloadExcludesClientOnlyState(t *testing.T) {
	t.Parallel()

	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "abc123"})
	}))
	t.Cleanup(srv.Close)

	store := validDraftStore()
	store.AddGuestGroup(GuestGroup{Name: "Family"})
	store.AddFAQItem(FAQItem{Question: "Parking?", Answer: "Yes"})
	store.SetMusicConfig(MusicConfig{Enabled: true, Source: "catalog", Volume: 40})

	if err := NewSyncer(store, srv.URL).Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, key := range []string{"guest_groups", "faq_items", "music_config"} {
		if _, ok := raw[key]; ok {
			t.Fatalf("client-only field %q leaked into the save payload", key)
		}
	}
	if _, ok := raw["locations"]; !ok {
		t.Fatalf("expected locations in payload")
	}
}
