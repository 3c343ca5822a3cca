package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultSaveTimeout = 15 * time.Second

// Syncer translates the current draft into the invitations API payload and
// reconciles the response back into the Store.
//
// Save is safe to call on every step transition: its guards (clean document,
// in-flight save, missing minimum fields) make redundant calls a no-op
// instead of queueing duplicate requests.
type Syncer struct {
	store   *Store
	baseURL string
	token   string

	hc      *http.Client
	timeout time.Duration
}

// SyncOption configures a Syncer.
type SyncOption func(*Syncer)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) SyncOption {
	return func(s *Syncer) {
		if hc != nil {
			s.hc = hc
		}
	}
}

// WithSaveTimeout bounds each save request. A stuck request can therefore
// never wedge the store in the saving state.
func WithSaveTimeout(d time.Duration) SyncOption {
	return func(s *Syncer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithAuthToken sets the bearer token sent on every save.
func WithAuthToken(token string) SyncOption {
	return func(s *Syncer) { s.token = token }
}

// NewSyncer constructs a Syncer for the given API base URL.
func NewSyncer(store *Store, baseURL string, opts ...SyncOption) *Syncer {
	s := &Syncer{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{},
		timeout: defaultSaveTimeout,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// savePayload is the wire shape of a full-document save. The clearable
// fields travel as pointers: absent means "leave untouched" server-side,
// present-but-empty means "clear". The builder always sends them, so a
// builder save is a whole-document write.
//
// Guest groups, FAQ items, and music config are deliberately absent here;
// they are client-preview-only state.
type savePayload struct {
	Plan         string  `json:"plan,omitempty"`
	TemplateID   string  `json:"template_id"`
	Partner1Name string  `json:"partner1_name"`
	Partner2Name string  `json:"partner2_name"`
	WeddingDate  string  `json:"wedding_date"`
	WeddingTime  *string `json:"wedding_time,omitempty"`
	Headline     *string `json:"headline,omitempty"`
	Dresscode    *string `json:"dresscode,omitempty"`

	DresscodeColors []DresscodeColor  `json:"dresscode_colors"`
	Locations       []locationPayload `json:"locations"`
	Timeline        []timelinePayload `json:"timeline"`
	RSVPConfig      *RSVPConfig       `json:"rsvp_config,omitempty"`
	Styling         *Styling          `json:"styling,omitempty"`
	GiftConfig      *GiftConfig       `json:"gift_config,omitempty"`
}

// Child items travel without ids; the server regenerates them on replace.
type locationPayload struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Time    string `json:"time"`
	Type    string `json:"type"`
	Icon    string `json:"icon"`
	Notes   string `json:"notes,omitempty"`
	MapsURL string `json:"maps_url,omitempty"`
	Order   int    `json:"order"`
}

type timelinePayload struct {
	Title       string `json:"title"`
	Time        string `json:"time"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	IconType    string `json:"icon_type"`
	Order       int    `json:"order"`
}

type savedInvitation struct {
	ID string `json:"id"`
}

// Save pushes the current draft to the API if there is anything to push.
//
// It silently no-ops when the document is clean, when a save is already in
// flight, or when the minimum viable record (template, both names, date) is
// incomplete. On success it adopts the server id, clears the dirty flag, and
// stamps LastSaved. On failure it records SaveError and leaves the dirty
// flag set so the next save retries the same state.
func (s *Syncer) Save(ctx context.Context) error {
	doc, ok := s.store.beginSave()
	if !ok {
		return nil
	}

	payload := buildPayload(doc)
	body, err := json.Marshal(payload)
	if err != nil {
		s.store.finishSaveErr(fmt.Sprintf("serialize draft: %v", err))
		return err
	}

	method := http.MethodPost
	url := s.baseURL + "/api/invitations"
	if doc.InvitationID != "" {
		method = http.MethodPut
		url += "/" + doc.InvitationID
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		s.store.finishSaveErr(fmt.Sprintf("build request: %v", err))
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		s.store.finishSaveErr(fmt.Sprintf("save failed: %v", err))
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("save failed: server returned %d", resp.StatusCode)
		s.store.finishSaveErr(msg)
		return fmt.Errorf("%s", msg)
	}

	var saved savedInvitation
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&saved); err != nil {
		s.store.finishSaveErr(fmt.Sprintf("decode response: %v", err))
		return err
	}

	s.store.finishSaveOK(saved.ID, time.Now().UTC())
	return nil
}

func buildPayload(doc Document) savePayload {
	p := savePayload{
		Plan:            string(doc.SelectedPlan),
		TemplateID:      doc.TemplateID,
		Partner1Name:    doc.Partner1Name,
		Partner2Name:    doc.Partner2Name,
		WeddingDate:     doc.WeddingDate,
		WeddingTime:     &doc.WeddingTime,
		Headline:        &doc.Headline,
		Dresscode:       &doc.Dresscode,
		DresscodeColors: doc.DresscodeColors,
		Locations:       make([]locationPayload, 0, len(doc.Locations)),
		Timeline:        make([]timelinePayload, 0, len(doc.Timeline)),
		RSVPConfig:      &doc.RSVP,
		Styling:         &doc.Styling,
		GiftConfig:      &doc.Gift,
	}
	for _, l := range doc.Locations {
		p.Locations = append(p.Locations, locationPayload{
			Name:    l.Name,
			Address: l.Address,
			Time:    l.Time,
			Type:    l.Type,
			Icon:    l.Icon,
			Notes:   l.Notes,
			MapsURL: l.MapsURL,
			Order:   l.Order,
		})
	}
	for _, it := range doc.Timeline {
		p.Timeline = append(p.Timeline, timelinePayload{
			Title:       it.Title,
			Time:        it.Time,
			Description: it.Description,
			Icon:        it.Icon,
			IconType:    it.IconType,
			Order:       it.Order,
		})
	}
	return p
}

// ---- store-side save transitions ----

// beginSave atomically checks the save guards and flips IsSaving. The
// returned copy is the exact state that will reach the server.
func (s *Store) beginSave() (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &s.doc
	if !d.IsDirty || d.IsSaving {
		return Document{}, false
	}
	if d.TemplateID == "" ||
		strings.TrimSpace(d.Partner1Name) == "" ||
		strings.TrimSpace(d.Partner2Name) == "" ||
		d.WeddingDate == "" {
		return Document{}, false
	}

	d.IsSaving = true
	d.SaveError = ""
	return d.clone(), true
}

func (s *Store) finishSaveOK(invitationID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.InvitationID == "" && invitationID != "" {
		s.doc.InvitationID = invitationID
	}
	s.doc.IsSaving = false
	s.doc.IsDirty = false
	s.doc.SaveError = ""
	s.doc.LastSaved = at
	s.persistLocked()
}

func (s *Store) finishSaveErr(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.IsSaving = false
	s.doc.SaveError = msg
	// IsDirty stays true so the same payload is retried on the next save.
}
