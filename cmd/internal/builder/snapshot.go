package builder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// SnapshotVersion tags the on-disk shape so later field changes can migrate
// old drafts instead of silently corrupting them.
const SnapshotVersion = 1

// snapshotDoc is the explicit whitelist of persisted fields. Transient meta
// (IsDirty, IsSaving, SaveError) never reaches disk, and a field added to
// Document later stays out of the snapshot until it is listed here.
type snapshotDoc struct {
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

	DresscodeColors []DresscodeColor `json:"dresscode_colors,omitempty"`
	Locations       []Location       `json:"locations,omitempty"`
	Timeline        []TimelineItem   `json:"timeline,omitempty"`
	RSVP            RSVPConfig       `json:"rsvp_config"`
	Styling         Styling          `json:"styling"`
	Gift            GiftConfig       `json:"gift_config"`
	GuestGroups     []GuestGroup     `json:"guest_groups,omitempty"`
	FAQItems        []FAQItem        `json:"faq_items,omitempty"`
	Music           MusicConfig      `json:"music_config"`

	LastSaved time.Time `json:"last_saved,omitzero"`
}

type snapshotFile struct {
	Version  int         `json:"version"`
	Document snapshotDoc `json:"document"`
}

// Snapshot persists the whitelisted draft subset to a single JSON file.
type Snapshot struct {
	path string
}

// NewSnapshot targets the given file path. The parent directory is created
// on first write.
func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

// Write serializes the whitelisted subset of doc.
func (s *Snapshot) Write(doc Document) error {
	if s == nil || s.path == "" {
		return nil
	}
	out := snapshotFile{
		Version:  SnapshotVersion,
		Document: toSnapshotDoc(doc),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Load restores a document from disk. A missing file is not an error: it
// returns ok=false and the caller starts from defaults. Fields absent from
// the snapshot keep their default values, so drafts written by an older
// build restore cleanly.
func (s *Snapshot) Load() (Document, bool, error) {
	if s == nil || s.path == "" {
		return DefaultDocument(), false, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultDocument(), false, nil
		}
		return DefaultDocument(), false, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return DefaultDocument(), false, nil
	}

	var file snapshotFile
	file.Document = toSnapshotDoc(DefaultDocument())
	if err := json.Unmarshal(data, &file); err != nil {
		return DefaultDocument(), false, fmt.Errorf("decode snapshot: %w", err)
	}
	if file.Version != SnapshotVersion {
		// Unknown shape: discard rather than guess at a migration.
		return DefaultDocument(), false, fmt.Errorf("%w: %d", ErrSnapshotVersion, file.Version)
	}
	return fromSnapshotDoc(file.Document), true, nil
}

// Remove deletes the snapshot file, tolerating its absence.
func (s *Snapshot) Remove() error {
	if s == nil || s.path == "" {
		return nil
	}
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func toSnapshotDoc(d Document) snapshotDoc {
	return snapshotDoc{
		InvitationID:    d.InvitationID,
		CurrentStep:     d.CurrentStep,
		SelectedPlan:    d.SelectedPlan,
		TemplateID:      d.TemplateID,
		Partner1Name:    d.Partner1Name,
		Partner2Name:    d.Partner2Name,
		WeddingDate:     d.WeddingDate,
		WeddingTime:     d.WeddingTime,
		Headline:        d.Headline,
		Dresscode:       d.Dresscode,
		DresscodeColors: d.DresscodeColors,
		Locations:       d.Locations,
		Timeline:        d.Timeline,
		RSVP:            d.RSVP,
		Styling:         d.Styling,
		Gift:            d.Gift,
		GuestGroups:     d.GuestGroups,
		FAQItems:        d.FAQItems,
		Music:           d.Music,
		LastSaved:       d.LastSaved,
	}
}

func fromSnapshotDoc(sd snapshotDoc) Document {
	doc := DefaultDocument()
	doc.InvitationID = sd.InvitationID
	doc.CurrentStep = sd.CurrentStep
	if doc.CurrentStep < StepMin {
		doc.CurrentStep = StepMin
	}
	if doc.CurrentStep > StepMax {
		doc.CurrentStep = StepMax
	}
	doc.SelectedPlan = sd.SelectedPlan
	doc.TemplateID = sd.TemplateID
	doc.Partner1Name = sd.Partner1Name
	doc.Partner2Name = sd.Partner2Name
	doc.WeddingDate = sd.WeddingDate
	doc.WeddingTime = sd.WeddingTime
	doc.Headline = sd.Headline
	doc.Dresscode = sd.Dresscode
	doc.DresscodeColors = sd.DresscodeColors
	doc.Locations = sd.Locations
	doc.Timeline = sd.Timeline
	doc.RSVP = sd.RSVP
	doc.Styling = sd.Styling
	doc.Gift = sd.Gift
	doc.GuestGroups = sd.GuestGroups
	doc.FAQItems = sd.FAQItems
	doc.Music = sd.Music
	doc.LastSaved = sd.LastSaved
	return doc
}
