package media

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"Tandem/playback"

	"github.com/Strum355/log"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitSimpleLogger(&log.Config{Output: io.Discard})
	os.Exit(m.Run())
}

type listener struct {
	ready  chan struct{}
	states chan playback.EngineState
	errors chan int
}

func newListener() *listener {
	return &listener{
		ready:  make(chan struct{}, 4),
		states: make(chan playback.EngineState, 8),
		errors: make(chan int, 4),
	}
}

func (l *listener) OnReady() { l.ready <- struct{}{} }
func (l *listener) OnStateChange(s playback.EngineState) { l.states <- s }
func (l *listener) OnError(code int) { l.errors <- code }

func wait[T any](t *testing.T, ch chan T) T {
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for engine callback")
	}
	var zero T
	return zero
}

func fixedLength(d time.Duration) Prober {
	return func(context.Context, string) (time.Duration, int) {
		return d, 0
	}
}

func TestVirtual_PlaysWithClock(t *testing.T) {
	mock := clock.NewMock()
	v := NewVirtual(mock, fixedLength(10*time.Second))
	l := newListener()
	v.SetListener(l)

	v.Load("abc")
	wait(t, l.ready)
	assert.Equal(t, 10.0, v.Duration())

	v.Play()
	assert.Equal(t, playback.EnginePlaying, wait(t, l.states))

	mock.Add(3 * time.Second)
	assert.InDelta(t, 3.0, v.CurrentTime(), 0.001)

	v.Pause()
	assert.Equal(t, playback.EnginePaused, wait(t, l.states))
	mock.Add(5 * time.Second)
	assert.InDelta(t, 3.0, v.CurrentTime(), 0.001)

	v.SeekTo(7, true)
	assert.InDelta(t, 7.0, v.CurrentTime(), 0.001)
}

func TestVirtual_EndedAtDuration(t *testing.T) {
	mock := clock.NewMock()
	v := NewVirtual(mock, fixedLength(4*time.Second))
	l := newListener()
	v.SetListener(l)

	v.Load("abc")
	wait(t, l.ready)
	v.Play()
	wait(t, l.states)

	mock.Add(5 * time.Second)

	assert.Equal(t, playback.EngineEnded, wait(t, l.states))
	assert.InDelta(t, 4.0, v.CurrentTime(), 0.001)
	assert.False(t, v.Playing())
}

func TestVirtual_ProbeErrorReported(t *testing.T) {
	v := NewVirtual(clock.NewMock(), func(context.Context, string) (time.Duration, int) {
		return 0, playback.ErrCodeEmbedBlocked2
	})
	l := newListener()
	v.SetListener(l)

	v.Load("blocked")

	assert.Equal(t, playback.ErrCodeEmbedBlocked2, wait(t, l.errors))
}

func TestVirtual_VolumeAndMute(t *testing.T) {
	v := NewVirtual(nil, nil)

	v.SetVolume(40)
	v.Mute()

	assert.Equal(t, 40, v.Volume())
	assert.True(t, v.Muted())

	v.Unmute()
	require.False(t, v.Muted())
}
