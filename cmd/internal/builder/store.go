package builder

import (
	"crypto/rand"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Store is the authoritative in-memory draft document plus its meta flags.
//
// Every mutator is a synchronous state transition: take the lock, compute the
// next document, mark it dirty, write the local snapshot, notify subscribers.
// No mutator performs network I/O; that is the Syncer's job.
type Store struct {
	log *slog.Logger

	mu   sync.Mutex
	doc  Document
	snap *Snapshot

	subs    map[int]func(Document)
	nextSub int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSnapshot attaches a local snapshot target. The store restores from it
// at construction and rewrites it after every mutation.
func WithSnapshot(snap *Snapshot) StoreOption {
	return func(s *Store) { s.snap = snap }
}

// NewStore constructs a Store seeded from the snapshot when one is attached,
// otherwise from DefaultDocument.
func NewStore(log *slog.Logger, opts ...StoreOption) *Store {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	s := &Store{
		log:  log,
		doc:  DefaultDocument(),
		subs: make(map[int]func(Document)),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.snap != nil {
		doc, ok, err := s.snap.Load()
		if err != nil {
			s.log.Warn("builder.snapshot.restore_fail", "err", err)
		} else if ok {
			s.doc = doc
		}
	}
	return s
}

// Document returns a deep copy of the current draft.
func (s *Store) Document() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.clone()
}

// Subscribe registers a change listener and returns a cancel func.
// Listeners receive a deep copy after every committed mutation.
func (s *Store) Subscribe(fn func(Document)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// mutate runs fn under the lock, marks the draft dirty, snapshots, notifies.
func (s *Store) mutate(fn func(*Document)) {
	s.mu.Lock()
	fn(&s.doc)
	s.doc.IsDirty = true
	s.persistLocked()
	snap := s.doc.clone()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) listenersLocked() []func(Document) {
	out := make([]func(Document), 0, len(s.subs))
	for _, l := range s.subs {
		out = append(out, l)
	}
	return out
}

func (s *Store) persistLocked() {
	if s.snap == nil {
		return
	}
	if err := s.snap.Write(s.doc); err != nil {
		s.log.Warn("builder.snapshot.write_fail", "err", err)
	}
}

// ---- wizard navigation ----

// SetCurrentStep moves the wizard position, clamped to the valid range.
func (s *Store) SetCurrentStep(step int) {
	if step < StepMin {
		step = StepMin
	}
	if step > StepMax {
		step = StepMax
	}
	s.mutate(func(d *Document) { d.CurrentStep = step })
}

// StepComplete reports whether the data a wizard step requires is present.
// Steps without required input are always complete.
func (s *Store) StepComplete(step int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &s.doc
	switch step {
	case 1:
		return d.SelectedPlan != ""
	case 2:
		return d.TemplateID != ""
	case 3:
		return strings.TrimSpace(d.Partner1Name) != "" &&
			strings.TrimSpace(d.Partner2Name) != "" &&
			d.WeddingDate != ""
	case 4:
		return len(d.Locations) > 0
	default:
		return true
	}
}

// ---- scalar setters ----

func (s *Store) SetPlan(p Plan)             { s.mutate(func(d *Document) { d.SelectedPlan = p }) }
func (s *Store) SetTemplate(id string)      { s.mutate(func(d *Document) { d.TemplateID = id }) }
func (s *Store) SetPartner1Name(v string)   { s.mutate(func(d *Document) { d.Partner1Name = v }) }
func (s *Store) SetPartner2Name(v string)   { s.mutate(func(d *Document) { d.Partner2Name = v }) }
func (s *Store) SetWeddingDate(v string)    { s.mutate(func(d *Document) { d.WeddingDate = v }) }
func (s *Store) SetWeddingTime(v string)    { s.mutate(func(d *Document) { d.WeddingTime = v }) }
func (s *Store) SetHeadline(v string)       { s.mutate(func(d *Document) { d.Headline = v }) }
func (s *Store) SetDresscode(v string)      { s.mutate(func(d *Document) { d.Dresscode = v }) }
func (s *Store) SetRSVPConfig(c RSVPConfig) { s.mutate(func(d *Document) { d.RSVP = c }) }
func (s *Store) SetStyling(st Styling)      { s.mutate(func(d *Document) { d.Styling = st }) }
func (s *Store) SetGiftConfig(g GiftConfig) { s.mutate(func(d *Document) { d.Gift = g }) }
func (s *Store) SetMusicConfig(m MusicConfig) {
	if m.Volume < 0 {
		m.Volume = 0
	}
	if m.Volume > 100 {
		m.Volume = 100
	}
	s.mutate(func(d *Document) { d.Music = m })
}

// ---- dresscode colors ----

// AddDresscodeColor appends a palette entry. The hex format, the palette cap,
// and case-insensitive hex uniqueness are enforced here, not by callers.
func (s *Store) AddDresscodeColor(c DresscodeColor) error {
	if !hexColorRe.MatchString(c.Hex) {
		return ErrInvalidColor
	}
	s.mu.Lock()
	if len(s.doc.DresscodeColors) >= MaxDresscodeColors {
		s.mu.Unlock()
		return ErrTooManyColors
	}
	for _, have := range s.doc.DresscodeColors {
		if strings.EqualFold(have.Hex, c.Hex) {
			s.mu.Unlock()
			return ErrDuplicateColor
		}
	}
	s.doc.DresscodeColors = append(s.doc.DresscodeColors, c)
	s.doc.IsDirty = true
	s.persistLocked()
	snap := s.doc.clone()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return nil
}

// RemoveDresscodeColor drops the entry matching hex (case-insensitive).
func (s *Store) RemoveDresscodeColor(hex string) {
	s.mutate(func(d *Document) {
		dst := d.DresscodeColors[:0]
		for _, c := range d.DresscodeColors {
			if !strings.EqualFold(c.Hex, hex) {
				dst = append(dst, c)
			}
		}
		d.DresscodeColors = dst
	})
}

// SetDresscodeColors replaces the palette wholesale, applying the same
// invariants as AddDresscodeColor.
func (s *Store) SetDresscodeColors(colors []DresscodeColor) error {
	if len(colors) > MaxDresscodeColors {
		return ErrTooManyColors
	}
	for i, c := range colors {
		if !hexColorRe.MatchString(c.Hex) {
			return ErrInvalidColor
		}
		for _, prev := range colors[:i] {
			if strings.EqualFold(prev.Hex, c.Hex) {
				return ErrDuplicateColor
			}
		}
	}
	s.mutate(func(d *Document) {
		d.DresscodeColors = append([]DresscodeColor(nil), colors...)
	})
	return nil
}

// ---- locations ----

// AddLocation appends a location, assigns it an id, and renumbers.
func (s *Store) AddLocation(loc Location) string {
	loc.ID = newItemID()
	s.mutate(func(d *Document) {
		d.Locations = append(d.Locations, loc)
		renumberLocations(d)
	})
	return loc.ID
}

// UpdateLocation replaces the location with the given id, keeping its position.
func (s *Store) UpdateLocation(id string, loc Location) bool {
	found := false
	s.mutate(func(d *Document) {
		for i := range d.Locations {
			if d.Locations[i].ID == id {
				loc.ID = id
				loc.Order = d.Locations[i].Order
				d.Locations[i] = loc
				found = true
				return
			}
		}
	})
	return found
}

// RemoveLocation deletes by id and renumbers the remainder.
func (s *Store) RemoveLocation(id string) {
	s.mutate(func(d *Document) {
		dst := d.Locations[:0]
		for _, l := range d.Locations {
			if l.ID != id {
				dst = append(dst, l)
			}
		}
		d.Locations = dst
		renumberLocations(d)
	})
}

// ReorderLocations replaces the collection; slice position becomes the order.
func (s *Store) ReorderLocations(locs []Location) {
	s.mutate(func(d *Document) {
		d.Locations = append([]Location(nil), locs...)
		renumberLocations(d)
	})
}

// ---- timeline ----

// AddTimelineItem appends a program entry, assigns an id, and renumbers.
func (s *Store) AddTimelineItem(item TimelineItem) string {
	item.ID = newItemID()
	s.mutate(func(d *Document) {
		d.Timeline = append(d.Timeline, item)
		renumberTimeline(d)
	})
	return item.ID
}

// UpdateTimelineItem replaces the entry with the given id, keeping its position.
func (s *Store) UpdateTimelineItem(id string, item TimelineItem) bool {
	found := false
	s.mutate(func(d *Document) {
		for i := range d.Timeline {
			if d.Timeline[i].ID == id {
				item.ID = id
				item.Order = d.Timeline[i].Order
				d.Timeline[i] = item
				found = true
				return
			}
		}
	})
	return found
}

// RemoveTimelineItem deletes by id and renumbers the remainder.
func (s *Store) RemoveTimelineItem(id string) {
	s.mutate(func(d *Document) {
		dst := d.Timeline[:0]
		for _, it := range d.Timeline {
			if it.ID != id {
				dst = append(dst, it)
			}
		}
		d.Timeline = dst
		renumberTimeline(d)
	})
}

// ReorderTimeline replaces the collection; slice position becomes the order.
func (s *Store) ReorderTimeline(items []TimelineItem) {
	s.mutate(func(d *Document) {
		d.Timeline = append([]TimelineItem(nil), items...)
		renumberTimeline(d)
	})
}

// ---- FAQ ----

// AddFAQItem appends a question/answer pair, assigns an id, and renumbers.
func (s *Store) AddFAQItem(item FAQItem) string {
	item.ID = newItemID()
	s.mutate(func(d *Document) {
		d.FAQItems = append(d.FAQItems, item)
		renumberFAQ(d)
	})
	return item.ID
}

// RemoveFAQItem deletes by id and renumbers the remainder.
func (s *Store) RemoveFAQItem(id string) {
	s.mutate(func(d *Document) {
		dst := d.FAQItems[:0]
		for _, it := range d.FAQItems {
			if it.ID != id {
				dst = append(dst, it)
			}
		}
		d.FAQItems = dst
		renumberFAQ(d)
	})
}

// ReorderFAQItems replaces the collection; slice position becomes the order.
func (s *Store) ReorderFAQItems(items []FAQItem) {
	s.mutate(func(d *Document) {
		d.FAQItems = append([]FAQItem(nil), items...)
		renumberFAQ(d)
	})
}

// ---- guest groups ----

// AddGuestGroup appends a client-side guest group and assigns it an id.
func (s *Store) AddGuestGroup(g GuestGroup) string {
	g.ID = newItemID()
	s.mutate(func(d *Document) { d.GuestGroups = append(d.GuestGroups, g) })
	return g.ID
}

// RemoveGuestGroup deletes a guest group by id.
func (s *Store) RemoveGuestGroup(id string) {
	s.mutate(func(d *Document) {
		dst := d.GuestGroups[:0]
		for _, g := range d.GuestGroups {
			if g.ID != id {
				dst = append(dst, g)
			}
		}
		d.GuestGroups = dst
	})
}

// ---- lifecycle ----

// MarkSaved stamps a successful remote save without going through the Syncer.
func (s *Store) MarkSaved(invitationID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.InvitationID == "" {
		s.doc.InvitationID = invitationID
	}
	s.doc.IsDirty = false
	s.doc.SaveError = ""
	s.doc.LastSaved = at
	s.persistLocked()
}

// ResetBuilder restores the exact default document, discarding the remote id.
// It refuses while a save is in flight. Subscribers see the reset document
// like any other change.
func (s *Store) ResetBuilder() error {
	s.mu.Lock()
	if s.doc.IsSaving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	s.doc = DefaultDocument()
	s.persistLocked()
	snap := s.doc.clone()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return nil
}

// ---- order invariant ----

func renumberLocations(d *Document) {
	for i := range d.Locations {
		d.Locations[i].Order = i
	}
}

func renumberTimeline(d *Document) {
	for i := range d.Timeline {
		d.Timeline[i].Order = i
	}
}

func renumberFAQ(d *Document) {
	for i := range d.FAQItems {
		d.FAQItems[i].Order = i
	}
}

func newItemID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}
