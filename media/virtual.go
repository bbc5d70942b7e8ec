// Package media provides a media engine that plays nothing but keeps time,
// so the headless client and tests can run the full synchronization loop.
package media

import (
	"context"
	"sync"
	"time"

	"Tandem/playback"

	"github.com/Strum355/log"
	"github.com/benbjohnson/clock"
)

// Prober looks up the length of a media reference. A non-zero code is
// reported to the listener as a playback error.
type Prober func(ctx context.Context, ref string) (time.Duration, int)

// Virtual is a clock-driven playback.Engine
type Virtual struct {
	clock    clock.Clock
	probe    Prober
	listener playback.Listener

	mu        sync.Mutex
	ref       string
	duration  float64 // Seconds, zero while unknown
	base      float64 // Position when playback last started or stopped
	startedAt time.Time
	playing   bool
	volume    int
	muted     bool
	loadGen   int
	endTimer  *clock.Timer
}

func NewVirtual(clk clock.Clock, probe Prober) *Virtual {
	if clk == nil {
		clk = clock.New()
	}
	return &Virtual{clock: clk, probe: probe, volume: 100}
}

// SetListener registers the callbacks. Callbacks run on engine goroutines.
func (v *Virtual) SetListener(l playback.Listener) {
	v.listener = l
}

// Load cues a reference paused at zero and reports ready once probed
func (v *Virtual) Load(ref string) {
	v.mu.Lock()
	v.stopTimer()
	v.loadGen++
	gen := v.loadGen
	v.ref = ref
	v.duration = 0
	v.base = 0
	v.playing = false
	v.mu.Unlock()

	go func() {
		var (
			d    time.Duration
			code int
		)
		if v.probe != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			d, code = v.probe(ctx, ref)
			cancel()
		}

		v.mu.Lock()
		if gen != v.loadGen {
			v.mu.Unlock()
			return
		}
		v.duration = d.Seconds()
		v.mu.Unlock()

		if v.listener == nil {
			return
		}
		if code != 0 {
			log.WithFields(log.Fields{"ref": ref, "code": code}).Debug("Virtual engine failed to load")
			v.listener.OnError(code)
			return
		}
		v.listener.OnReady()
	}()
}

func (v *Virtual) Play() {
	v.mu.Lock()
	if v.playing || v.ref == "" {
		v.mu.Unlock()
		return
	}
	v.playing = true
	v.startedAt = v.clock.Now()
	v.scheduleEnd()
	v.mu.Unlock()

	v.notify(playback.EnginePlaying)
}

func (v *Virtual) Pause() {
	v.mu.Lock()
	if !v.playing {
		v.mu.Unlock()
		return
	}
	v.base = v.position()
	v.playing = false
	v.stopTimer()
	v.mu.Unlock()

	v.notify(playback.EnginePaused)
}

func (v *Virtual) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position()
}

func (v *Virtual) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.duration
}

func (v *Virtual) SeekTo(seconds float64, _ bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if v.duration > 0 && seconds > v.duration {
		seconds = v.duration
	}
	v.base = seconds
	v.startedAt = v.clock.Now()
	if v.playing {
		v.scheduleEnd()
	}
}

func (v *Virtual) SetVolume(volume int) {
	v.mu.Lock()
	v.volume = volume
	v.mu.Unlock()
}

func (v *Virtual) Volume() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.volume
}

func (v *Virtual) Mute() {
	v.mu.Lock()
	v.muted = true
	v.mu.Unlock()
}

func (v *Virtual) Unmute() {
	v.mu.Lock()
	v.muted = false
	v.mu.Unlock()
}

func (v *Virtual) Muted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.muted
}

func (v *Virtual) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

// position must be called with mu held
func (v *Virtual) position() float64 {
	pos := v.base
	if v.playing {
		pos += v.clock.Since(v.startedAt).Seconds()
	}
	if v.duration > 0 && pos > v.duration {
		pos = v.duration
	}
	return pos
}

// scheduleEnd must be called with mu held
func (v *Virtual) scheduleEnd() {
	v.stopTimer()
	if v.duration <= 0 {
		return
	}
	remaining := time.Duration((v.duration - v.position()) * float64(time.Second))
	gen := v.loadGen
	v.endTimer = v.clock.AfterFunc(remaining, func() {
		v.mu.Lock()
		if gen != v.loadGen || !v.playing {
			v.mu.Unlock()
			return
		}
		v.base = v.duration
		v.playing = false
		v.endTimer = nil
		v.mu.Unlock()

		v.notify(playback.EngineEnded)
	})
}

func (v *Virtual) stopTimer() {
	if v.endTimer != nil {
		v.endTimer.Stop()
		v.endTimer = nil
	}
}

func (v *Virtual) notify(s playback.EngineState) {
	if v.listener != nil {
		v.listener.OnStateChange(s)
	}
}
