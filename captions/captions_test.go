package captions

import (
	"io"
	"os"
	"testing"

	"Tandem/authority"
	"Tandem/events"
	"Tandem/station"

	"github.com/Strum355/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitSimpleLogger(&log.Config{Output: io.Discard})
	os.Exit(m.Run())
}

type recorder struct {
	dests []events.Destination
}

func (r *recorder) Publish(dest events.Destination, _ any) error {
	r.dests = append(r.dests, dest)
	return nil
}

var segments = []station.CaptionSegment{
	{Start: 0, End: 2, Text: "hello", Translated: "hola"},
	{Start: 2, End: 4, Text: "world", Translated: "mundo"},
	{Start: 6, End: 8, Text: "again"},
}

func newTestSync(selfID string) (*Sync, *station.Store, *recorder) {
	store := station.NewStore(station.Station{ID: "st", Host: station.UserRef{ID: "host"}})
	pub := &recorder{}
	return NewSync(store, authority.NewGate(store, selfID), pub), store, pub
}

type segmentTestCase struct {
	t        float64
	expected string
	found    bool
}

func TestCurrentSegment(t *testing.T) {
	tests := []segmentTestCase{
		{0, "hello", true},
		{1.5, "hello", true},
		{2, "hello", true},
		{3, "world", true},
		{4, "world", true},
		{5, "", false},
		{8, "again", true},
		{8.01, "", false},
		{-1, "", false},
	}

	for _, tt := range tests {
		seg, ok := CurrentSegment(segments, tt.t)
		assert.Equal(t, tt.found, ok, "t=%v", tt.t)
		assert.Equal(t, tt.expected, seg.Text, "t=%v", tt.t)
	}
}

func TestEnable_HostOnly(t *testing.T) {
	s, store, pub := newTestSync("follower")

	require.NoError(t, s.Enable())
	require.NoError(t, s.Disable())
	assert.Empty(t, pub.dests)
	assert.False(t, store.Captions.Enabled)

	s, store, pub = newTestSync("host")
	require.NoError(t, s.Enable())
	assert.Equal(t, []events.Destination{events.DestSubtitleEnable}, pub.dests)
	assert.True(t, store.Captions.Enabled)
	assert.True(t, store.Captions.Processing)
}

func TestRequestStatus_AnyParticipant(t *testing.T) {
	s, _, pub := newTestSync("follower")

	require.NoError(t, s.RequestStatus())

	assert.Equal(t, []events.Destination{events.DestSubtitleStatus}, pub.dests)
}

func TestReadyThenTick(t *testing.T) {
	s, store, _ := newTestSync("follower")
	s.ApplyEnabled(&events.SubtitleEnabled{})
	assert.True(t, store.Captions.Processing)

	s.ApplyReady(&events.SubtitleReady{Available: true, OriginalLanguage: "en", Segments: segments})
	assert.False(t, store.Captions.Processing)
	assert.True(t, store.Captions.Available)

	assert.True(t, s.Tick(1))
	assert.Equal(t, "hello", s.Text())

	// Below the resolution nothing is recomputed
	assert.False(t, s.Tick(1.1))

	assert.False(t, s.Tick(1.5))
	assert.True(t, s.Tick(3))
	assert.Equal(t, "world", s.Text())

	assert.True(t, s.Tick(5))
	_, ok := s.Active()
	assert.False(t, ok)
	assert.Equal(t, "", s.Text())
}

func TestTick_SegmentsChangedForcesRecompute(t *testing.T) {
	s, _, _ := newTestSync("follower")
	s.ApplyEnabled(&events.SubtitleEnabled{})
	assert.False(t, s.Tick(1))

	s.ApplyReady(&events.SubtitleReady{Available: true, Segments: segments})

	assert.True(t, s.Tick(1.05))
	assert.Equal(t, "hello", s.Text())
}

func TestApplyReady_Unavailable(t *testing.T) {
	s, store, _ := newTestSync("follower")
	s.ApplyEnabled(&events.SubtitleEnabled{})
	s.ApplyReady(&events.SubtitleReady{Available: true, Segments: segments})
	s.Tick(1)

	s.ApplyReady(&events.SubtitleReady{Available: false})

	assert.False(t, store.Captions.Available)
	assert.False(t, store.Captions.Processing)
	_, ok := s.Active()
	assert.False(t, ok)
}

func TestShowTranslated_LocalOnly(t *testing.T) {
	s, _, pub := newTestSync("host")
	s.ApplyBundle(events.CaptionBundle{Enabled: true, Available: true, Segments: segments})
	s.Tick(3)

	s.ShowTranslated(true)

	assert.Equal(t, "mundo", s.Text())
	assert.Empty(t, pub.dests)

	s.Tick(7)
	assert.Equal(t, "again", s.Text())
}

func TestDisabled_HidesOverlay(t *testing.T) {
	s, store, _ := newTestSync("follower")
	s.ApplyBundle(events.CaptionBundle{Enabled: true, Available: true, Segments: segments})
	s.Tick(1)

	s.ApplyDisabled(&events.SubtitleDisabled{})

	assert.False(t, store.Captions.Enabled)
	assert.Equal(t, "", s.Text())
	assert.False(t, s.Tick(3))
}
