// Package relay is the websocket client for the station message relay. It
// keeps one connection alive, subscribes to the station topics and hands
// inbound payloads to the session.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"Tandem/events"

	"github.com/Strum355/log"
	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

var (
	ErrNotConnected     = errors.New("relay not connected")
	ErrAlreadyConnected = errors.New("relay connection already started")
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

type Options struct {
	URL       string
	Reconnect time.Duration // Fixed delay between connection attempts
	Heartbeat time.Duration // Ping interval; two missed windows drop the connection
	Header    http.Header
	Clock     clock.Clock
}

// Conn is a self-healing relay connection for one station and user
type Conn struct {
	opts   Options
	dialer *websocket.Dialer

	mu        sync.Mutex
	ws        *websocket.Conn
	state     State
	stationID string
	userID    string
	cancel    context.CancelFunc
	done      chan struct{}

	writeMu sync.Mutex // gorilla allows one concurrent writer

	onState   func(State)
	onMessage func(topic string, data []byte)
}

func New(opts Options) *Conn {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Reconnect <= 0 {
		opts.Reconnect = 5 * time.Second
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 4 * time.Second
	}
	return &Conn{
		opts:      opts,
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		onState:   func(State) {},
		onMessage: func(string, []byte) {},
	}
}

// OnState registers the connection state callback. It is called from relay goroutines.
func (c *Conn) OnState(f func(State)) {
	c.onState = f
}

// OnMessage registers the inbound payload callback. It is called from the read goroutine.
func (c *Conn) OnMessage(f func(topic string, data []byte)) {
	c.onMessage = f
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) Connected() bool {
	return c.State() == Connected
}

// Connect starts the connection loop for a station. Dial failures are
// retried at the reconnect delay until Disconnect is called.
func (c *Conn) Connect(ctx context.Context, stationID, userID string) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	ctx, cancel := context.WithCancel(ctx)
	c.stationID = stationID
	c.userID = userID
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(ctx)
	return nil
}

// Disconnect stops reconnection and closes the socket. Safe to call more than once.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	cancel, done, ws := c.cancel, c.done, c.ws
	c.cancel = nil
	if cancel != nil {
		// Under the lock so a session that has not stored its socket yet sees it
		cancel()
	}
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	if ws != nil {
		c.writeMu.Lock()
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		ws.Close()
	}
	<-done
	c.setState(Disconnected)
}

// Publish sends payload to a relay topic. Nothing is queued while disconnected.
func (c *Conn) Publish(topic string, payload any) error {
	c.mu.Lock()
	ws, state := c.ws, c.state
	c.mu.Unlock()

	if ws == nil || state != Connected {
		return ErrNotConnected
	}
	return c.write(ws, opPublish, topic, payload)
}

// Resync asks the relay for a fresh station snapshot
func (c *Conn) Resync() error {
	c.mu.Lock()
	stationID, userID := c.stationID, c.userID
	c.mu.Unlock()
	return c.Publish(DestinationTopic(stationID, events.DestSyncRequest), events.SyncRequest{UserID: userID})
}

// Publisher returns an events.Publisher scoped to the connected station
func (c *Conn) Publisher() events.Publisher {
	return stationPublisher{c}
}

type stationPublisher struct {
	c *Conn
}

func (p stationPublisher) Publish(dest events.Destination, payload any) error {
	p.c.mu.Lock()
	stationID := p.c.stationID
	p.c.mu.Unlock()
	return p.c.Publish(DestinationTopic(stationID, dest), payload)
}

func (c *Conn) run(ctx context.Context) {
	defer close(c.done)

	for {
		c.setState(Connecting)
		err := c.session(ctx)
		c.setState(Disconnected)

		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Warn("Relay connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-c.opts.Clock.After(c.opts.Reconnect):
		}
	}
}

// session dials, subscribes and reads until the connection drops
func (c *Conn) session(ctx context.Context) error {
	ws, _, err := c.dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
	if err != nil {
		return fmt.Errorf("dialing relay: %w", err)
	}
	defer ws.Close()

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return ctx.Err()
	}
	c.ws = ws
	stationID, userID := c.stationID, c.userID
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
	}()

	if err := c.subscribe(ws, stationID, userID); err != nil {
		return err
	}

	pongWait := 2 * c.opts.Heartbeat
	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.setState(Connected)
	log.WithFields(log.Fields{
		"station_id": stationID,
		"url":        c.opts.URL,
	}).Info("Connected to relay")

	stop := make(chan struct{})
	defer close(stop)
	go c.ping(ws, stop)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))
		c.handleFrame(data)
	}
}

func (c *Conn) subscribe(ws *websocket.Conn, stationID, userID string) error {
	for _, topic := range []string{StationTopic(stationID), UserTopic(userID, stationID)} {
		if err := c.write(ws, opSubscribe, topic, nil); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return c.write(ws, opPublish, DestinationTopic(stationID, events.DestSyncRequest), events.SyncRequest{UserID: userID})
}

func (c *Conn) ping(ws *websocket.Conn, stop <-chan struct{}) {
	ticker := c.opts.Clock.Ticker(c.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				log.WithError(err).Debug("Relay ping failed")
				return
			}
		}
	}
}

func (c *Conn) handleFrame(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		log.WithError(err).Warn("Discarding malformed relay frame")
		return
	}

	switch f.Op {
	case opMessage:
		c.onMessage(f.Topic, f.Data)
	default:
		log.WithFields(log.Fields{"op": f.Op}).Debug("Ignoring relay frame")
	}
}

func (c *Conn) write(ws *websocket.Conn, op, topic string, payload any) error {
	f := frame{Op: op, Topic: topic}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding payload for %s: %w", topic, err)
		}
		f.Data = data
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(f)
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	c.onState(s)
}
