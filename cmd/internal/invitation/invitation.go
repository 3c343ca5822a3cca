// Package invitation owns the durable invitation record, its child
// collections, and the status machine a record moves through between the
// first draft save and expiry.
package invitation

import (
	"encoding/json"
	"time"
)

// Status is the server-observed lifecycle state.
//
// draft -> paid -> published, with expired terminal from paid/published once
// the expiry timestamp elapses. The builder only ever writes drafts; the
// transition to paid is driven by the external checkout webhook.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPaid      Status = "paid"
	StatusPublished Status = "published"
	StatusExpired   Status = "expired"
)

// Location is a persisted venue row.
type Location struct {
	ID           string `json:"id"`
	InvitationID string `json:"-"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Time         string `json:"time"`
	Type         string `json:"type"`
	Icon         string `json:"icon"`
	Notes        string `json:"notes,omitempty"`
	MapsURL      string `json:"maps_url,omitempty"`
	Order        int    `json:"order"`
}

// TimelineItem is a persisted day-program row.
type TimelineItem struct {
	ID           string `json:"id"`
	InvitationID string `json:"-"`
	Title        string `json:"title"`
	Time         string `json:"time"`
	Description  string `json:"description,omitempty"`
	Icon         string `json:"icon,omitempty"`
	IconType     string `json:"icon_type"`
	Order        int    `json:"order"`
}

// Invitation is the durable record behind one builder document.
//
// The config blobs (dresscode colors, RSVP, styling, gift) are stored as the
// client sent them; the server validates shape at the JSON layer and passes
// them through otherwise.
type Invitation struct {
	ID      string `json:"id"`
	OwnerID string `json:"-"`
	Slug    string `json:"slug,omitempty"`
	Status  Status `json:"status"`

	Plan         string `json:"plan,omitempty"`
	TemplateID   string `json:"template_id"`
	Partner1Name string `json:"partner1_name"`
	Partner2Name string `json:"partner2_name"`
	WeddingDate  string `json:"wedding_date"`

	WeddingTime *string `json:"wedding_time,omitempty"`
	Headline    *string `json:"headline,omitempty"`
	Dresscode   *string `json:"dresscode,omitempty"`

	DresscodeColors json.RawMessage `json:"dresscode_colors,omitempty"`
	RSVPConfig      json.RawMessage `json:"rsvp_config,omitempty"`
	Styling         json.RawMessage `json:"styling,omitempty"`
	GiftConfig      json.RawMessage `json:"gift_config,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`

	Locations []Location     `json:"locations"`
	Timeline  []TimelineItem `json:"timeline"`
}

// EffectiveStatus folds expiry into the stored status.
func (i Invitation) EffectiveStatus(now time.Time) Status {
	if i.ExpiresAt != nil && !i.ExpiresAt.After(now) {
		switch i.Status {
		case StatusPaid, StatusPublished:
			return StatusExpired
		}
	}
	return i.Status
}

// Editable reports whether the builder may still write this record.
func (i Invitation) Editable() bool {
	return i.Status == StatusDraft
}

// ChildLocation is an incoming location without a persisted id; ids are
// regenerated on every replace.
type ChildLocation struct {
	Name    string
	Address string
	Time    string
	Type    string
	Icon    string
	Notes   string
	MapsURL string
	Order   int
}

// ChildTimelineItem is an incoming program entry without a persisted id.
type ChildTimelineItem struct {
	Title       string
	Time        string
	Description string
	Icon        string
	IconType    string
	Order       int
}

// Update is a partial write against an invitation.
//
// Scalar pointers: nil leaves the column untouched; present-but-empty clears
// it (for nullable columns). Child slices: nil leaves the collection
// untouched; a non-nil slice (even empty) replaces it wholesale.
type Update struct {
	Plan         *string
	TemplateID   *string
	Partner1Name *string
	Partner2Name *string
	WeddingDate  *string
	WeddingTime  *string
	Headline     *string
	Dresscode    *string

	DresscodeColors json.RawMessage
	RSVPConfig      json.RawMessage
	Styling         json.RawMessage
	GiftConfig      json.RawMessage

	Locations *[]ChildLocation
	Timeline  *[]ChildTimelineItem
}
