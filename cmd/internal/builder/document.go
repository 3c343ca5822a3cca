package builder

import "time"

// Plan is the purchased package tier.
type Plan string

const (
	PlanBasic     Plan = "basic"
	PlanSignature Plan = "signature"
	PlanPremium   Plan = "premium"
)

// Wizard step bounds.
const (
	StepMin = 1
	StepMax = 9
)

// MaxDresscodeColors caps the dresscode palette.
const MaxDresscodeColors = 3

// DresscodeColor is one palette entry.
type DresscodeColor struct {
	Hex  string `json:"hex"`
	Name string `json:"name"`
}

// Location is a venue or ceremony place shown on the invitation.
type Location struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Time    string `json:"time"`
	Type    string `json:"type"`
	Icon    string `json:"icon"`
	Notes   string `json:"notes,omitempty"`
	MapsURL string `json:"maps_url,omitempty"`
	Order   int    `json:"order"`
}

// TimelineItem is one entry of the day program.
type TimelineItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Time        string `json:"time"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	IconType    string `json:"icon_type"`
	Order       int    `json:"order"`
}

// RSVPFields toggles which inputs the guest RSVP form shows.
type RSVPFields struct {
	Email      bool `json:"email"`
	GuestCount bool `json:"guest_count"`
	MaxGuests  int  `json:"max_guests"`
	Dietary    bool `json:"dietary"`
	Message    bool `json:"message"`
	Events     bool `json:"events"`
}

// CustomQuestion is an owner-defined extra RSVP question.
type CustomQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Required bool   `json:"required"`
}

// RSVPConfig controls guest response collection.
type RSVPConfig struct {
	Enabled         bool             `json:"enabled"`
	Deadline        string           `json:"deadline,omitempty"`
	Fields          RSVPFields       `json:"fields"`
	CustomQuestions []CustomQuestion `json:"custom_questions,omitempty"`
}

// Background describes the page background.
type Background struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// EnvelopeConfig styles the envelope opening animation.
type EnvelopeConfig struct {
	Enabled            bool   `json:"enabled"`
	Color              string `json:"color"`
	LinerPattern       string `json:"liner_pattern"`
	PersonalizedText   string `json:"personalized_text"`
	ShowDateOnEnvelope bool   `json:"show_date_on_envelope"`
}

// Styling is the visual configuration of the published page.
type Styling struct {
	SealColor   string         `json:"seal_color"`
	SealFont    string         `json:"seal_font"`
	Monogram    string         `json:"monogram"`
	AccentColor string         `json:"accent_color,omitempty"`
	FontPairing string         `json:"font_pairing"`
	Background  Background     `json:"background"`
	Envelope    EnvelopeConfig `json:"envelope"`
}

// GiftConfig holds registry / money-gift preferences.
type GiftConfig struct {
	Enabled       bool   `json:"enabled"`
	Message       string `json:"message"`
	PreferMoney   bool   `json:"prefer_money"`
	RegistryURL   string `json:"registry_url,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	AccountHolder string `json:"account_holder,omitempty"`
}

// GroupRSVPFields narrows the RSVP form per guest group.
type GroupRSVPFields struct {
	Dietary    bool `json:"dietary"`
	Message    bool `json:"message"`
	GuestCount bool `json:"guest_count"`
}

// GuestGroup scopes which events a set of guests is invited to.
// Groups are client-preview-only: they are never part of the save payload.
type GuestGroup struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	IncludedEvents []string        `json:"included_events"`
	RSVPFields     GroupRSVPFields `json:"rsvp_fields"`
}

// FAQItem is one question/answer pair on the invitation page.
type FAQItem struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Order    int    `json:"order"`
}

// MusicConfig controls background music on the published page.
type MusicConfig struct {
	Enabled     bool   `json:"enabled"`
	Source      string `json:"source"`
	TrackID     string `json:"track_id,omitempty"`
	UploadedURL string `json:"uploaded_url,omitempty"`
	AutoPlay    bool   `json:"auto_play"`
	Volume      int    `json:"volume"`
}

// Document is the full draft state of one invitation-in-progress.
// An empty InvitationID means the draft has never been saved remotely.
type Document struct {
	InvitationID string `json:"invitation_id,omitempty"`
	CurrentStep  int    `json:"current_step"`

	SelectedPlan Plan   `json:"selected_plan,omitempty"`
	TemplateID   string `json:"template_id,omitempty"`

	Partner1Name string `json:"partner1_name"`
	Partner2Name string `json:"partner2_name"`
	WeddingDate  string `json:"wedding_date"`
	WeddingTime  string `json:"wedding_time,omitempty"`
	Headline     string `json:"headline,omitempty"`
	Dresscode    string `json:"dresscode,omitempty"`

	DresscodeColors []DresscodeColor `json:"dresscode_colors"`
	Locations       []Location       `json:"locations"`
	Timeline        []TimelineItem   `json:"timeline"`
	RSVP            RSVPConfig       `json:"rsvp_config"`
	Styling         Styling          `json:"styling"`
	Gift            GiftConfig       `json:"gift_config"`
	GuestGroups     []GuestGroup     `json:"guest_groups"`
	FAQItems        []FAQItem        `json:"faq_items"`
	Music           MusicConfig      `json:"music_config"`

	LastSaved time.Time `json:"last_saved,omitzero"`

	// Transient meta; excluded from snapshots.
	IsDirty   bool   `json:"-"`
	IsSaving  bool   `json:"-"`
	SaveError string `json:"-"`
}

// DefaultDocument returns the exact state a fresh wizard visit starts with.
func DefaultDocument() Document {
	return Document{
		CurrentStep: StepMin,
		RSVP: RSVPConfig{
			Enabled: true,
			Fields: RSVPFields{
				Email:      true,
				GuestCount: true,
				MaxGuests:  2,
				Dietary:    true,
				Message:    true,
			},
		},
		Styling: Styling{
			SealColor:   "#8B0000",
			SealFont:    "serif",
			FontPairing: "classic",
			Background:  Background{Type: "color", Value: "#FFFFFF"},
			Envelope: EnvelopeConfig{
				Enabled:            true,
				Color:              "#F5F0E8",
				ShowDateOnEnvelope: true,
			},
		},
		Music: MusicConfig{Volume: 50},
	}
}

// clone returns a deep copy so callers can never alias store-internal slices.
func (d Document) clone() Document {
	out := d
	out.DresscodeColors = append([]DresscodeColor(nil), d.DresscodeColors...)
	out.Locations = append([]Location(nil), d.Locations...)
	out.Timeline = append([]TimelineItem(nil), d.Timeline...)
	out.FAQItems = append([]FAQItem(nil), d.FAQItems...)
	out.RSVP.CustomQuestions = append([]CustomQuestion(nil), d.RSVP.CustomQuestions...)
	out.GuestGroups = make([]GuestGroup, len(d.GuestGroups))
	for i, g := range d.GuestGroups {
		g.IncludedEvents = append([]string(nil), g.IncludedEvents...)
		out.GuestGroups[i] = g
	}
	return out
}
