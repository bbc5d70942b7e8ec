// Package playback keeps the local media engine in step with the host's
// broadcast playback state.
package playback

import (
	"context"

	"Tandem/station"
)

// Engine is the control surface of the embedded media player. Only the
// Reconciler calls it.
type Engine interface {
	Load(ref string)
	Play()
	Pause()
	CurrentTime() float64 // Seconds
	Duration() float64    // Seconds
	SeekTo(seconds float64, allowAhead bool)
	SetVolume(volume int) // 0-100
	Mute()
	Unmute()
}

// EngineState is reported by the engine on playback transitions
type EngineState int

const (
	EnginePlaying EngineState = iota
	EnginePaused
	EngineEnded
)

func (s EngineState) String() string {
	switch s {
	case EnginePlaying:
		return "playing"
	case EnginePaused:
		return "paused"
	case EngineEnded:
		return "ended"
	}
	return "unknown"
}

// Media engine error codes
const (
	ErrCodeInvalidParam  = 2
	ErrCodeHTML5         = 5
	ErrCodeNotFound      = 100
	ErrCodeEmbedBlocked  = 101
	ErrCodeEmbedBlocked2 = 150
)

// IsEmbedBlocked reports whether an engine error means the source refused
// embedding, which an alternative source may not.
func IsEmbedBlocked(code int) bool {
	return code == ErrCodeEmbedBlocked || code == ErrCodeEmbedBlocked2
}

// Listener receives engine callbacks
type Listener interface {
	OnReady()
	OnStateChange(state EngineState)
	OnError(code int)
}

// Resolver maps track metadata to a playable media reference. An empty
// reference with a nil error means nothing was found.
type Resolver interface {
	Resolve(ctx context.Context, title, artist string) (string, error)
	ResolveAlternative(ctx context.Context, title, artist string, exclude []string) (string, error)
}

// Advancer hands out the next queued track
type Advancer interface {
	Next() (station.QueueItem, bool)
	Len() int
}

// Runner executes task off the session loop and runs the returned
// continuation back on it.
type Runner func(task func() func())
