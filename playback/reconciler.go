package playback

import (
	"context"
	"time"

	"Tandem/authority"
	"Tandem/events"
	"Tandem/station"

	"github.com/Strum355/log"
	"github.com/benbjohnson/clock"
)

// State of the local media engine relative to the authoritative track
type State int

const (
	NoTrack State = iota
	Loaded        // Track handed to the engine, not ready yet
	Ready         // Engine ready and being kept in sync
)

type Options struct {
	SeekThreshold   time.Duration // Drift tolerated before seeking
	ResolveTimeout  time.Duration // Per-attempt timeout for track resolution
	MaxAlternatives int           // Alternative lookups after an embedding failure
}

func DefaultOptions() Options {
	return Options{
		SeekThreshold:   1200 * time.Millisecond,
		ResolveTimeout:  12 * time.Second,
		MaxAlternatives: 5,
	}
}

// Reconciler drives the media engine toward the host's playback state. On
// the host it is also the only publisher of playback and volume changes.
type Reconciler struct {
	engine   Engine
	clock    clock.Clock
	store    *station.Store
	gate     *authority.Gate
	pub      events.Publisher
	resolver Resolver
	queue    Advancer
	run      Runner
	opts     Options
	onTrack  func() // Called whenever the authoritative track changes

	state      State
	trackKey   string                 // Identity of the authoritative track
	loadedRef  string                 // Reference actually loaded, may be an alternative
	pending    *station.PlaybackState // Applied once the engine reports ready
	failedRefs []string               // References that refused embedding for this track
	attempts   int                    // Alternative lookups spent on this track
	unplayable bool
	muted      bool
	generation int // Bumped on every track change so stale lookups are dropped
	seq        int64
}

func NewReconciler(engine Engine, clk clock.Clock, store *station.Store, gate *authority.Gate, pub events.Publisher, resolver Resolver, run Runner, opts Options) *Reconciler {
	if clk == nil {
		clk = clock.New()
	}
	if run == nil {
		run = func(task func() func()) { task()() }
	}
	return &Reconciler{
		engine:   engine,
		clock:    clk,
		store:    store,
		gate:     gate,
		pub:      pub,
		resolver: resolver,
		run:      run,
		opts:     opts,
	}
}

// SetQueue wires the queue used for auto-advance
func (r *Reconciler) SetQueue(q Advancer) {
	r.queue = q
}

// OnTrackChange registers fn to run when the track changes, whether the
// change came from the relay or from a local host action
func (r *Reconciler) OnTrackChange(fn func()) {
	r.onTrack = fn
}

func (r *Reconciler) State() State {
	return r.state
}

// Unplayable is true once every source for the current track has failed
func (r *Reconciler) Unplayable() bool {
	return r.unplayable
}

// LoadedRef returns the media reference currently loaded in the engine
func (r *Reconciler) LoadedRef() string {
	return r.loadedRef
}

// Position returns the local playback position in milliseconds
func (r *Reconciler) Position() int64 {
	if r.state == Ready && !r.unplayable {
		return int64(r.engine.CurrentTime() * 1000)
	}
	return Target(r.store.Playback, r.clock.Now())
}

// Apply handles an authoritative playback state from the relay
func (r *Reconciler) Apply(evt *events.PlaybackUpdate) bool {
	if r.gate.IsEcho(evt.SenderID) {
		return false
	}
	ps := evt.State()
	if ps.ServerTime == 0 {
		ps.ServerTime = r.clock.Now().UnixMilli()
	}
	r.store.SetPlayback(ps)
	r.sync(ps)
	return true
}

// ApplySnapshot handles the playback part of a station_detail
func (r *Reconciler) ApplySnapshot(ps station.PlaybackState) {
	if ps.ServerTime == 0 {
		ps.ServerTime = r.clock.Now().UnixMilli()
	}
	r.store.SetPlayback(ps)
	r.sync(ps)
}

// ApplyVolume handles an inbound volume_update
func (r *Reconciler) ApplyVolume(evt *events.VolumeUpdate) bool {
	if r.gate.IsEcho(evt.SenderID) {
		return false
	}
	r.setLocalVolume(evt.Volume)
	return true
}

func (r *Reconciler) sync(ps station.PlaybackState) {
	if !ps.HasTrack() {
		r.reset()
		r.engine.Pause()
		return
	}

	if key := keyOf(ps); key != r.trackKey {
		r.newTrack(key)
		if ps.VideoRef == "" {
			r.pending = &ps
			r.resolve(ps)
			return
		}
		r.load(ps.VideoRef)
	}

	if r.unplayable {
		return
	}
	if r.state != Ready {
		r.pending = &ps
		return
	}
	r.reconcile(ps)
}

// reconcile seeks only when drift exceeds the threshold, and always matches play state
func (r *Reconciler) reconcile(ps station.PlaybackState) {
	target := Target(ps, r.clock.Now())
	current := int64(r.engine.CurrentTime() * 1000)

	if NeedsSeek(current, target, r.opts.SeekThreshold) {
		log.WithFields(log.Fields{
			"current_ms": current,
			"target_ms":  target,
		}).Debug("Correcting playback drift")
		r.engine.SeekTo(float64(target)/1000, true)
	}

	if ps.IsPlaying {
		r.engine.Play()
	} else {
		r.engine.Pause()
	}
}

// OnReady is called by the engine once a loaded track can be controlled
func (r *Reconciler) OnReady() {
	if r.state != Loaded {
		return
	}
	r.state = Ready
	r.engine.SetVolume(r.store.Volume)
	if r.muted {
		r.engine.Mute()
	}

	if r.pending != nil {
		r.pending = nil
		r.reconcile(r.store.Playback)
	}
}

// OnStateChange is called by the engine on play/pause/ended transitions
func (r *Reconciler) OnStateChange(s EngineState) {
	if s == EngineEnded {
		r.OnEnded()
	}
}

// OnError handles an engine playback error for the loaded reference
func (r *Reconciler) OnError(code int) {
	ps := r.store.Playback
	fields := log.Fields{
		"code":      code,
		"video_ref": r.loadedRef,
		"title":     ps.Title,
	}

	if !IsEmbedBlocked(code) {
		log.WithFields(fields).Warn("Media engine cannot play track")
		r.giveUp()
		return
	}

	log.WithFields(fields).Info("Source refused embedding, looking for an alternative")
	if r.loadedRef != "" && !contains(r.failedRefs, r.loadedRef) {
		r.failedRefs = append(r.failedRefs, r.loadedRef)
	}
	r.state = NoTrack
	r.nextAlternative()
}

// OnEnded advances the queue on the host. Followers wait for the host's broadcast.
func (r *Reconciler) OnEnded() {
	if !r.gate.IsHost() {
		return
	}
	if r.queue != nil {
		if item, ok := r.queue.Next(); ok {
			r.PlayItem(item)
			return
		}
	}

	ps := r.store.Playback
	ps.Position = 0
	ps.IsPlaying = false
	r.commit(ps)
}

func (r *Reconciler) nextAlternative() {
	if r.resolver == nil || r.attempts >= r.opts.MaxAlternatives {
		r.giveUp()
		return
	}
	r.attempts++

	gen := r.generation
	ps := r.store.Playback
	exclude := append([]string(nil), r.failedRefs...)
	attempt := r.attempts

	r.run(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.ResolveTimeout)
		defer cancel()
		ref, err := r.resolver.ResolveAlternative(ctx, ps.Title, ps.Artist, exclude)

		return func() {
			if gen != r.generation {
				return
			}
			if err != nil || ref == "" || contains(r.failedRefs, ref) {
				fields := log.Fields{"attempt": attempt, "title": ps.Title}
				if err != nil {
					fields["error"] = err.Error()
				}
				log.WithFields(fields).Debug("No alternative source found")
				r.nextAlternative()
				return
			}
			r.loadedRef = ""
			r.load(ref)
			current := r.store.Playback
			r.pending = &current
		}
	})
}

// resolve looks up a media reference for a track that was broadcast without one
func (r *Reconciler) resolve(ps station.PlaybackState) {
	if r.resolver == nil {
		r.giveUp()
		return
	}
	gen := r.generation

	r.run(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.ResolveTimeout)
		defer cancel()
		ref, err := r.resolver.Resolve(ctx, ps.Title, ps.Artist)

		return func() {
			if gen != r.generation {
				return
			}
			if err != nil || ref == "" {
				if err != nil {
					log.WithError(err).Warn("Track resolution failed")
				}
				r.giveUp()
				return
			}
			r.load(ref)
			if r.gate.IsHost() {
				r.trackKey = ref
				current := r.store.Playback
				current.VideoRef = ref
				r.store.SetPlayback(current)
				r.publish(current)
			}
		}
	})
}

// giveUp marks the track as having no playable source. The host moves on.
func (r *Reconciler) giveUp() {
	r.unplayable = true
	r.pending = nil
	r.state = NoTrack
	log.WithFields(log.Fields{
		"title":    r.store.Playback.Title,
		"attempts": r.attempts,
	}).Warn("No playable source for track")

	if r.gate.IsHost() && r.queue != nil && r.queue.Len() > 0 {
		r.OnEnded()
	}
}

func (r *Reconciler) newTrack(key string) {
	r.generation++
	r.trackKey = key
	r.loadedRef = ""
	r.failedRefs = nil
	r.attempts = 0
	r.unplayable = false
	r.pending = nil
	r.state = NoTrack
	r.trackChanged()
}

func (r *Reconciler) load(ref string) {
	if ref == r.loadedRef && r.state != NoTrack {
		return
	}
	r.loadedRef = ref
	r.state = Loaded
	r.engine.Load(ref)
}

func (r *Reconciler) reset() {
	if r.trackKey != "" {
		r.trackChanged()
	}
	r.generation++
	r.trackKey = ""
	r.loadedRef = ""
	r.failedRefs = nil
	r.attempts = 0
	r.unplayable = false
	r.pending = nil
	r.state = NoTrack
}

// Stop discards buffered commands and in-flight lookups and pauses the engine
func (r *Reconciler) Stop() {
	r.reset()
	r.engine.Pause()
}

// PlayItem switches playback to a queue item from the start (host only)
func (r *Reconciler) PlayItem(item station.QueueItem) {
	if !r.gate.Allow("playback.change") {
		return
	}
	r.commit(station.PlaybackState{
		Title:     item.Title,
		Artist:    item.Artist,
		AlbumArt:  item.AlbumArt,
		Duration:  int(item.Duration / 1000),
		Position:  0,
		IsPlaying: true,
		VideoRef:  item.VideoRef,
	})
}

// Play resumes from the current position (host only)
func (r *Reconciler) Play() {
	if !r.gate.Allow("playback.play") || !r.store.Playback.HasTrack() {
		return
	}
	ps := r.store.Playback
	ps.Position = r.Position()
	ps.IsPlaying = true
	r.commit(ps)
}

// Pause stops at the current position (host only)
func (r *Reconciler) Pause() {
	if !r.gate.Allow("playback.pause") || !r.store.Playback.HasTrack() {
		return
	}
	ps := r.store.Playback
	ps.Position = r.Position()
	ps.IsPlaying = false
	r.commit(ps)
}

// Seek moves playback to positionMs keeping the play state (host only)
func (r *Reconciler) Seek(positionMs int64) {
	if !r.gate.Allow("playback.seek") || !r.store.Playback.HasTrack() {
		return
	}
	if positionMs < 0 {
		positionMs = 0
	}
	ps := r.store.Playback
	ps.Position = positionMs
	r.commit(ps)
}

// SetVolume changes the shared volume (host only)
func (r *Reconciler) SetVolume(volume int) {
	if !r.gate.Allow("playback.volume") {
		return
	}
	volume = r.setLocalVolume(volume)
	if err := r.pub.Publish(events.DestVolumeUpdate, events.NewVolumeUpdate(volume, r.gate.SelfID())); err != nil {
		log.WithError(err).Debug("Volume update not published")
	}
}

// Heartbeat republishes the current state so followers keep reconciling.
// Only the host publishes, and only while playing.
func (r *Reconciler) Heartbeat() {
	if !r.gate.IsHost() || !r.store.Playback.IsPlaying {
		return
	}
	ps := r.store.Playback
	ps.Position = r.Position()
	ps.ServerTime = r.clock.Now().UnixMilli()
	r.store.SetPlayback(ps)
	r.publish(ps)
}

// Mute silences local output without affecting anyone else
func (r *Reconciler) Mute() {
	r.muted = true
	r.engine.Mute()
}

func (r *Reconciler) Unmute() {
	r.muted = false
	r.engine.Unmute()
}

func (r *Reconciler) Muted() bool {
	return r.muted
}

func (r *Reconciler) setLocalVolume(volume int) int {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	r.store.Volume = volume
	r.engine.SetVolume(volume)
	return volume
}

// commit applies a host state locally and broadcasts it
func (r *Reconciler) commit(ps station.PlaybackState) {
	ps.ServerTime = r.clock.Now().UnixMilli()
	r.store.SetPlayback(ps)
	r.sync(ps)
	r.publish(r.store.Playback)
}

func (r *Reconciler) publish(ps station.PlaybackState) {
	r.seq++
	if err := r.pub.Publish(events.DestPlaybackUpdate, events.NewPlaybackUpdate(ps, r.gate.SelfID(), r.seq)); err != nil {
		log.WithError(err).Debug("Playback update not published")
	}
}

func (r *Reconciler) trackChanged() {
	if r.onTrack != nil {
		r.onTrack()
	}
}

func keyOf(ps station.PlaybackState) string {
	if ps.VideoRef != "" {
		return ps.VideoRef
	}
	return ps.Title + "\x00" + ps.Artist
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
