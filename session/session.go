// Package session ties the station components together. A Controller owns
// the store and every component and runs them on a single loop goroutine:
// inbound frames, engine callbacks, lookup results and timer ticks are all
// posted to that loop, so nothing below it needs locking.
package session

import (
	"context"
	"errors"
	"time"

	"Tandem/authority"
	"Tandem/captions"
	"Tandem/chat"
	"Tandem/events"
	"Tandem/membership"
	"Tandem/playback"
	"Tandem/queue"
	"Tandem/relay"
	"Tandem/station"

	"github.com/Strum355/log"
	"github.com/benbjohnson/clock"
)

var (
	ErrStationClosed = errors.New("station is closed")
	ErrExited        = errors.New("session has ended")
)

// Exit reasons
const (
	ReasonLeft     = membership.ReasonLeft
	ReasonClosed   = membership.ReasonClosed
	ReasonKicked   = "kicked"
	ReasonBanned   = "banned"
	ReasonShutdown = "shutdown"
)

// Transport is the relay connection used by the session
type Transport interface {
	Connect(ctx context.Context, stationID, userID string) error
	Disconnect()
	Resync() error
	Connected() bool
	State() relay.State
	OnState(func(relay.State))
	OnMessage(func(topic string, data []byte))
	Publisher() events.Publisher
}

// Engine is a media engine that reports back through a listener
type Engine interface {
	playback.Engine
	SetListener(l playback.Listener)
}

// Hooks let a front end observe the session. They run on the session loop
// and must not block.
type Hooks struct {
	Event      func(evt events.Event)
	Caption    func(text string)
	Connection func(state relay.State)
	Exit       func(reason string)
}

type Options struct {
	Self      station.UserRef
	StationID string
	Heartbeat time.Duration // Host playback rebroadcast interval
	Tick      time.Duration // Caption tick interval
	Playback  playback.Options
	Clock     clock.Clock
	Hooks     Hooks
}

type Controller struct {
	opts      Options
	clock     clock.Clock
	dir       membership.Directory
	transport Transport
	engine    Engine

	store    *station.Store
	gate     *authority.Gate
	queue    *queue.Manager
	player   *playback.Reconciler
	members  *membership.Controller
	captions *captions.Sync
	chat     *chat.Channel

	handlers map[string]func(events.Event)

	tasks       chan func()
	quit        chan struct{} // Closed by exit, stops accepting work
	finished    chan struct{} // Closed once teardown is complete
	exited      bool
	reason      string
	stopTimers  context.CancelFunc
	lastCaption string
}

func New(opts Options, dir membership.Directory, transport Transport, engine Engine, resolver playback.Resolver) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 2 * time.Second
	}
	if opts.Tick <= 0 {
		opts.Tick = 250 * time.Millisecond
	}

	c := &Controller{
		opts:      opts,
		clock:     opts.Clock,
		dir:       dir,
		transport: transport,
		engine:    engine,
		store:     station.NewStore(station.Station{ID: opts.StationID}),
		tasks:     make(chan func(), 256),
		quit:      make(chan struct{}),
		finished:  make(chan struct{}),
	}

	pub := transport.Publisher()
	c.gate = authority.NewGate(c.store, opts.Self.ID)
	c.queue = queue.NewManager(c.store, c.gate, pub)
	c.player = playback.NewReconciler(engine, c.clock, c.store, c.gate, pub, resolver, c.runOffLoop, opts.Playback)
	c.player.SetQueue(c.queue)
	c.queue.SetPlayer(c.player)
	c.captions = captions.NewSync(c.store, c.gate, pub)
	c.player.OnTrackChange(c.onTrackChange)
	c.chat = chat.NewChannel(c.store, c.gate, pub, transport)
	c.members = membership.NewController(c.store, c.gate, dir, func(f func()) { c.call(f) })
	c.members.SetExit(c.exitAndWait)

	engine.SetListener(engineListener{c})
	transport.OnMessage(c.onMessage)
	transport.OnState(func(s relay.State) {
		c.post(func() { c.onConnection(s) })
	})

	c.handlers = map[string]func(events.Event){
		events.TypeStationDetail:      c.onStationDetail,
		events.TypeParticipantsUpdate: c.onParticipants,
		events.TypePlaybackUpdate:     c.onPlayback,
		events.TypePlaybackState:      c.onPlayback,
		events.TypeChat:               c.onChat,
		events.TypeKicked:             c.onKicked,
		events.TypeStationClosed:      c.onClosed,
		events.TypeVolumeUpdate:       c.onVolume,
		events.TypeQueueUpdate:        c.onQueueUpdate,
		events.TypeQueueAdd:           c.onQueueAdd,
		events.TypeHostChanged:        c.onHostChanged,
		events.TypeSubtitleEnabled:    c.onSubtitleEnabled,
		events.TypeSubtitleDisabled:   c.onSubtitleDisabled,
		events.TypeSubtitleReady:      c.onSubtitleReady,
		events.TypeSubtitleStatus:     c.onSubtitleStatus,
		events.TypeTitleChanged:       c.onTitleChanged,
		events.TypePong:               func(events.Event) {},
	}
	return c
}

// Run executes the session loop until the session exits or ctx is cancelled.
// It returns the exit reason.
func (c *Controller) Run(ctx context.Context) string {
	defer close(c.finished)

	for !c.exited {
		select {
		case <-ctx.Done():
			c.exit(ReasonShutdown)
		case f := <-c.tasks:
			f()
		}
	}

	c.transport.Disconnect()
	log.WithFields(log.Fields{
		"station_id": c.opts.StationID,
		"reason":     c.reason,
	}).Info("Left station")
	return c.reason
}

// Done is closed once the session has exited and released the transport
func (c *Controller) Done() <-chan struct{} {
	return c.finished
}

// Reason returns why the session exited. Only valid after Done is closed.
func (c *Controller) Reason() string {
	<-c.finished
	return c.reason
}

// Enter fetches the station, joins it if needed and connects to the relay.
// Run must already be running.
func (c *Controller) Enter(ctx context.Context) error {
	ctx = context.WithValue(ctx, log.Key, log.Fields{
		"station_id": c.opts.StationID,
		"user_id":    c.opts.Self.ID,
	})

	s, err := c.dir.Fetch(ctx, c.opts.StationID)
	if err != nil {
		return err
	}
	if s.Status == station.StatusClosed {
		return ErrStationClosed
	}
	if s.IsBanned(c.opts.Self.ID) {
		return membership.ErrBanned
	}
	if !c.call(func() { c.store.ReplaceStation(s) }) {
		return ErrExited
	}

	if !s.HasParticipant(c.opts.Self.ID) {
		log.WithContext(ctx).Info("Joining station")
		if err := c.members.Join(ctx); err != nil {
			return err
		}
	}

	if err := c.transport.Connect(ctx, c.opts.StationID, c.opts.Self.ID); err != nil {
		return err
	}
	c.call(c.startTimers)

	log.WithContext(ctx).Info("Entered station")
	return nil
}

// post queues f on the loop. Work posted after exit is dropped.
func (c *Controller) post(f func()) {
	select {
	case c.tasks <- f:
	case <-c.quit:
	}
}

// call runs f on the loop and waits for it. It reports false if the session
// exited before f ran. Must not be called from the loop.
func (c *Controller) call(f func()) bool {
	done := make(chan struct{})
	c.post(func() {
		f()
		close(done)
	})
	select {
	case <-done:
		return true
	case <-c.quit:
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

// do runs an erroring operation on the loop
func (c *Controller) do(f func() error) error {
	var err error
	if !c.call(func() { err = f() }) {
		return ErrExited
	}
	return err
}

// runOffLoop executes a reconciler task on its own goroutine and posts the
// continuation back
func (c *Controller) runOffLoop(task func() func()) {
	go func() {
		cont := task()
		c.post(cont)
	}()
}

func (c *Controller) startTimers() {
	if c.stopTimers != nil || c.exited {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.stopTimers = cancel

	go c.every(ctx, c.clock.Ticker(c.opts.Heartbeat), c.player.Heartbeat)
	go c.every(ctx, c.clock.Ticker(c.opts.Tick), c.tick)
}

func (c *Controller) every(ctx context.Context, ticker *clock.Ticker, f func()) {
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.post(func() {
				if ctx.Err() == nil {
					f()
				}
			})
		}
	}
}

func (c *Controller) tick() {
	if c.captions.Tick(float64(c.player.Position()) / 1000) {
		c.showCaption(c.captions.Text())
	}
}

func (c *Controller) showCaption(text string) {
	if text == c.lastCaption {
		return
	}
	c.lastCaption = text
	if c.opts.Hooks.Caption != nil {
		c.opts.Hooks.Caption(text)
	}
}

// onTrackChange drops the previous track's captions
func (c *Controller) onTrackChange() {
	c.captions.Reset()
	c.showCaption("")
}

// exit tears the session down. It runs on the loop and is idempotent.
func (c *Controller) exit(reason string) {
	if c.exited {
		return
	}
	c.exited = true
	c.reason = reason
	close(c.quit)

	if c.stopTimers != nil {
		c.stopTimers()
	}
	c.player.Stop()

	if c.opts.Hooks.Exit != nil {
		c.opts.Hooks.Exit(reason)
	}
}

// exitAndWait is the membership exit hook. It returns once the transport is released.
func (c *Controller) exitAndWait(reason string) {
	c.call(func() { c.exit(reason) })
	<-c.finished
}

func (c *Controller) onConnection(s relay.State) {
	if c.opts.Hooks.Connection != nil {
		c.opts.Hooks.Connection(s)
	}
}

func (c *Controller) onMessage(topic string, data []byte) {
	evt, err := events.Decode(data)
	if err != nil {
		log.WithError(err).Warn("Discarding malformed station message")
		return
	}
	c.post(func() { c.dispatch(evt) })
}

func (c *Controller) dispatch(evt events.Event) {
	h, ok := c.handlers[evt.Type()]
	if !ok {
		log.WithFields(log.Fields{"type": evt.Type()}).Debug("Ignoring unknown station message")
		return
	}
	h(evt)
	if c.opts.Hooks.Event != nil && !c.exited {
		c.opts.Hooks.Event(evt)
	}
}

func (c *Controller) onStationDetail(e events.Event) {
	d := e.(*events.StationDetail)
	c.store.ReplaceStation(d.Station)

	if d.Queue != nil {
		c.store.ReplaceQueue(d.Queue)
	}
	if d.Volume != nil {
		c.player.ApplyVolume(&events.VolumeUpdate{Volume: *d.Volume})
	}
	// Playback first: a track change resets captions, and the bundle belongs to the new track
	if d.Playback != nil {
		ps := *d.Playback
		if d.VideoRef != "" {
			ps.VideoRef = d.VideoRef
		}
		c.player.ApplySnapshot(ps)
	}
	if d.Captions != nil {
		c.captions.ApplyBundle(*d.Captions)
	}

	switch {
	case c.store.Closed():
		c.exit(ReasonClosed)
	case c.store.Station.IsBanned(c.opts.Self.ID):
		c.exit(ReasonBanned)
	}
}

func (c *Controller) onParticipants(e events.Event) {
	p := e.(*events.ParticipantsUpdate)
	c.store.PatchParticipants(p.Participants, p.Host, p.Status)

	if p.AffectedUser != nil {
		affected := *p.AffectedUser
		switch p.Action {
		case events.ActionKick:
			c.store.Station.RemoveParticipant(affected.ID)
		case events.ActionBan:
			c.store.Station.Ban(affected)
		case events.ActionUnban:
			c.store.Station.Unban(affected.ID)
		case events.ActionClose:
			c.store.Station.Status = station.StatusClosed
		default:
			log.WithFields(log.Fields{
				"action":  p.Action,
				"user_id": affected.ID,
			}).Debug("Membership change")
		}

		if affected.ID == c.opts.Self.ID {
			switch p.Action {
			case events.ActionKick:
				c.exit(ReasonKicked)
				return
			case events.ActionBan:
				c.exit(ReasonBanned)
				return
			}
		}
	}

	if c.store.Closed() {
		c.exit(ReasonClosed)
	}
}

func (c *Controller) onPlayback(e events.Event) {
	c.player.Apply(e.(*events.PlaybackUpdate))
}

func (c *Controller) onChat(e events.Event) {
	c.chat.Append(e.(*events.Chat))
}

func (c *Controller) onKicked(e events.Event) {
	k := e.(*events.Kicked)
	log.WithFields(log.Fields{"reason": k.Reason}).Warn("Removed from station by host")
	c.exit(ReasonKicked)
}

func (c *Controller) onClosed(events.Event) {
	c.store.Station.Status = station.StatusClosed
	c.exit(ReasonClosed)
}

func (c *Controller) onVolume(e events.Event) {
	c.player.ApplyVolume(e.(*events.VolumeUpdate))
}

func (c *Controller) onQueueUpdate(e events.Event) {
	c.queue.ApplyReplace(e.(*events.QueueUpdate))
}

func (c *Controller) onQueueAdd(e events.Event) {
	c.queue.ApplyAdd(e.(*events.QueueAdd))
}

func (c *Controller) onHostChanged(e events.Event) {
	h := e.(*events.HostChanged)
	c.store.SetHost(h.Host)
	log.WithFields(log.Fields{"host_id": h.Host.ID}).Info("Host changed")
}

func (c *Controller) onSubtitleEnabled(e events.Event) {
	c.captions.ApplyEnabled(e.(*events.SubtitleEnabled))
}

func (c *Controller) onSubtitleDisabled(e events.Event) {
	c.captions.ApplyDisabled(e.(*events.SubtitleDisabled))
}

func (c *Controller) onSubtitleReady(e events.Event) {
	c.captions.ApplyReady(e.(*events.SubtitleReady))
}

func (c *Controller) onSubtitleStatus(e events.Event) {
	c.captions.ApplyStatus(e.(*events.SubtitleStatus))
}

func (c *Controller) onTitleChanged(e events.Event) {
	c.store.SetTitle(e.(*events.TitleChanged).Title)
}

// engineListener moves engine callbacks onto the loop
type engineListener struct {
	c *Controller
}

func (l engineListener) OnReady() {
	l.c.post(l.c.player.OnReady)
}

func (l engineListener) OnStateChange(s playback.EngineState) {
	l.c.post(func() { l.c.player.OnStateChange(s) })
}

func (l engineListener) OnError(code int) {
	l.c.post(func() { l.c.player.OnError(code) })
}
