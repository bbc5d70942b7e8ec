package playback

import (
	"testing"
	"time"

	"Tandem/station"

	"github.com/stretchr/testify/assert"
)

type targetTestCase struct {
	name     string
	state    station.PlaybackState
	now      int64
	expected int64
}

func TestTarget(t *testing.T) {
	tests := []targetTestCase{
		{"paused stays put", station.PlaybackState{Position: 5000, ServerTime: 1000}, 9000, 5000},
		{"playing advances", station.PlaybackState{Position: 0, IsPlaying: true, ServerTime: 1000}, 4000, 3000},
		{"clock behind sender", station.PlaybackState{Position: 2000, IsPlaying: true, ServerTime: 5000}, 4000, 2000},
		{"clamped to duration", station.PlaybackState{Position: 0, IsPlaying: true, ServerTime: 0, Duration: 10}, 60000, 10000},
		{"unknown duration", station.PlaybackState{Position: 0, IsPlaying: true, ServerTime: 0}, 60000, 60000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Target(tt.state, time.UnixMilli(tt.now)), tt.name)
	}
}

type seekTestCase struct {
	current  int64
	expected bool
}

func TestNeedsSeek(t *testing.T) {
	tests := []seekTestCase{
		{1799, true},
		{1800, false},
		{3000, false},
		{4200, false},
		{4201, true},
		{0, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NeedsSeek(tt.current, 3000, 1200*time.Millisecond), "current=%d", tt.current)
	}
}
