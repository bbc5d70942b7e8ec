// Package captions keeps the caption overlay aligned with local playback.
package captions

import (
	"math"

	"Tandem/authority"
	"Tandem/events"
	"Tandem/station"

	"github.com/Strum355/log"
)

// Minimum change in playback time before the active segment is recomputed
const tickResolution = 0.25

// CurrentSegment returns the first segment covering t, if any
func CurrentSegment(segments []station.CaptionSegment, t float64) (station.CaptionSegment, bool) {
	for _, s := range segments {
		if s.Start <= t && t <= s.End {
			return s, true
		}
	}
	return station.CaptionSegment{}, false
}

// Sync owns the caption state of the store and the derived active segment
type Sync struct {
	store *station.Store
	gate  *authority.Gate
	pub   events.Publisher

	active     *station.CaptionSegment
	lastTick   float64
	ticked     bool
	dirty      bool // Segments changed since the last tick
	translated bool
}

func NewSync(store *station.Store, gate *authority.Gate, pub events.Publisher) *Sync {
	return &Sync{store: store, gate: gate, pub: pub}
}

// Enable asks the relay to start caption generation (host only)
func (s *Sync) Enable() error {
	if !s.gate.Allow("captions.enable") {
		return nil
	}
	if err := s.pub.Publish(events.DestSubtitleEnable, events.CaptionRequest{SenderID: s.gate.SelfID()}); err != nil {
		return err
	}
	s.store.Captions.Enabled = true
	s.store.Captions.Processing = !s.store.Captions.Available
	return nil
}

// Disable turns captions off for the station (host only)
func (s *Sync) Disable() error {
	if !s.gate.Allow("captions.disable") {
		return nil
	}
	if err := s.pub.Publish(events.DestSubtitleDisable, events.CaptionRequest{SenderID: s.gate.SelfID()}); err != nil {
		return err
	}
	s.applyDisabled()
	return nil
}

// RequestStatus asks the relay for the current caption state. Any participant may ask.
func (s *Sync) RequestStatus() error {
	return s.pub.Publish(events.DestSubtitleStatus, events.CaptionRequest{SenderID: s.gate.SelfID()})
}

func (s *Sync) ApplyEnabled(*events.SubtitleEnabled) {
	s.store.Captions.Enabled = true
	if !s.store.Captions.Available {
		s.store.Captions.Processing = true
	}
}

func (s *Sync) ApplyDisabled(*events.SubtitleDisabled) {
	s.applyDisabled()
}

// ApplyReady handles a finished generation. Unavailable captions hide the overlay.
func (s *Sync) ApplyReady(evt *events.SubtitleReady) {
	c := &s.store.Captions
	c.Processing = false
	c.Available = evt.Available && len(evt.Segments) > 0
	if !c.Available {
		log.WithFields(log.Fields{
			"title": s.store.Playback.Title,
		}).Info("Captions unavailable for track")
		c.Segments = nil
		c.OriginalLanguage = ""
		s.clearActive()
		return
	}
	c.OriginalLanguage = evt.OriginalLanguage
	c.Segments = append([]station.CaptionSegment(nil), evt.Segments...)
	s.dirty = true
}

// ApplyBundle replaces the caption state from a status reply or snapshot
func (s *Sync) ApplyBundle(b events.CaptionBundle) {
	s.store.Captions = station.CaptionState{
		Enabled:          b.Enabled,
		Available:        b.Available,
		Processing:       b.Processing,
		OriginalLanguage: b.OriginalLanguage,
		Segments:         append([]station.CaptionSegment(nil), b.Segments...),
	}
	s.dirty = true
	if !b.Enabled || !b.Available {
		s.clearActive()
	}
}

// ApplyStatus handles a subtitle_status reply
func (s *Sync) ApplyStatus(evt *events.SubtitleStatus) {
	s.ApplyBundle(evt.CaptionBundle)
}

// Reset drops segments when the track changes
func (s *Sync) Reset() {
	c := &s.store.Captions
	c.Available = false
	c.Processing = c.Enabled
	c.Segments = nil
	c.OriginalLanguage = ""
	s.clearActive()
}

// Tick recomputes the active segment for playback time t (seconds) and
// reports whether it changed. Small time steps are ignored.
func (s *Sync) Tick(t float64) bool {
	if s.ticked && !s.dirty && math.Abs(t-s.lastTick) < tickResolution {
		return false
	}
	s.ticked = true
	s.dirty = false
	s.lastTick = t

	c := s.store.Captions
	if !c.Enabled || !c.Available {
		return s.clearActive()
	}

	seg, ok := CurrentSegment(c.Segments, t)
	if !ok {
		return s.clearActive()
	}
	if s.active != nil && *s.active == seg {
		return false
	}
	s.active = &seg
	return true
}

// Active returns the segment currently shown
func (s *Sync) Active() (station.CaptionSegment, bool) {
	if s.active == nil {
		return station.CaptionSegment{}, false
	}
	return *s.active, true
}

// Text returns the overlay text in the preferred language
func (s *Sync) Text() string {
	if s.active == nil {
		return ""
	}
	if s.translated && s.active.Translated != "" {
		return s.active.Translated
	}
	return s.active.Text
}

// ShowTranslated sets the local display preference. It is never broadcast.
func (s *Sync) ShowTranslated(on bool) {
	s.translated = on
}

func (s *Sync) Translated() bool {
	return s.translated
}

func (s *Sync) applyDisabled() {
	s.store.Captions.Enabled = false
	s.store.Captions.Processing = false
	s.clearActive()
}

func (s *Sync) clearActive() bool {
	changed := s.active != nil
	s.active = nil
	return changed
}
