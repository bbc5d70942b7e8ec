package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"Tandem/events"

	"github.com/Strum355/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitSimpleLogger(&log.Config{Output: io.Discard})
	os.Exit(m.Run())
}

// fakeRelay records client frames and lets tests push frames or drop connections
type fakeRelay struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	frames []frame
	conns  []*websocket.Conn
	got    chan frame
}

func newFakeRelay(t *testing.T) *fakeRelay {
	r := &fakeRelay{got: make(chan frame, 64)}
	r.srv = httptest.NewServer(http.HandlerFunc(r.handle))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http")
}

func (r *fakeRelay) handle(w http.ResponseWriter, req *http.Request) {
	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.conns = append(r.conns, ws)
	r.mu.Unlock()

	for {
		var f frame
		if err := ws.ReadJSON(&f); err != nil {
			return
		}
		r.mu.Lock()
		r.frames = append(r.frames, f)
		r.mu.Unlock()
		r.got <- f
	}
}

func (r *fakeRelay) last() *websocket.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[len(r.conns)-1]
}

func (r *fakeRelay) expect(t *testing.T) frame {
	select {
	case f := <-r.got:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client frame")
	}
	return frame{}
}

func newTestConn(r *fakeRelay) *Conn {
	return New(Options{
		URL:       r.url(),
		Reconnect: 20 * time.Millisecond,
		Heartbeat: time.Second,
	})
}

func expectHandshake(t *testing.T, r *fakeRelay) {
	sub1 := r.expect(t)
	assert.Equal(t, opSubscribe, sub1.Op)
	assert.Equal(t, "station.st1", sub1.Topic)

	sub2 := r.expect(t)
	assert.Equal(t, opSubscribe, sub2.Op)
	assert.Equal(t, "user.u1.station.st1", sub2.Topic)

	syncFrame := r.expect(t)
	assert.Equal(t, opPublish, syncFrame.Op)
	assert.Equal(t, "app.station.st1.sync-request", syncFrame.Topic)

	var req events.SyncRequest
	require.NoError(t, json.Unmarshal(syncFrame.Data, &req))
	assert.Equal(t, "u1", req.UserID)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "station.abc", StationTopic("abc"))
	assert.Equal(t, "user.u.station.abc", UserTopic("u", "abc"))
	assert.Equal(t, "app.station.abc.queue-add", DestinationTopic("abc", events.DestQueueAdd))
}

func TestConnect_SubscribesAndRequestsSync(t *testing.T) {
	r := newFakeRelay(t)
	c := newTestConn(r)
	defer c.Disconnect()

	require.NoError(t, c.Connect(context.Background(), "st1", "u1"))
	expectHandshake(t, r)

	assert.Eventually(t, c.Connected, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, c.Connect(context.Background(), "st1", "u1"), ErrAlreadyConnected)
}

func TestInboundMessagesDelivered(t *testing.T) {
	r := newFakeRelay(t)
	c := newTestConn(r)
	defer c.Disconnect()

	received := make(chan string, 4)
	c.OnMessage(func(topic string, data []byte) {
		received <- topic + " " + string(data)
	})

	require.NoError(t, c.Connect(context.Background(), "st1", "u1"))
	expectHandshake(t, r)

	ws := r.last()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, ws.WriteJSON(frame{Op: opMessage, Topic: "station.st1", Data: json.RawMessage(`{"type":"pong"}`)}))

	select {
	case got := <-received:
		assert.Equal(t, `station.st1 {"type":"pong"}`, got)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPublish(t *testing.T) {
	r := newFakeRelay(t)
	c := newTestConn(r)
	defer c.Disconnect()

	assert.ErrorIs(t, c.Publish("anything", nil), ErrNotConnected)

	require.NoError(t, c.Connect(context.Background(), "st1", "u1"))
	expectHandshake(t, r)
	require.Eventually(t, c.Connected, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Publisher().Publish(events.DestChat, events.ChatSend{ID: "m1", Message: "hi", SenderID: "u1"}))

	f := r.expect(t)
	assert.Equal(t, opPublish, f.Op)
	assert.Equal(t, "app.station.st1.chat", f.Topic)
	assert.JSONEq(t, `{"id":"m1","message":"hi","senderId":"u1"}`, string(f.Data))

	require.NoError(t, c.Resync())
	assert.Equal(t, "app.station.st1.sync-request", r.expect(t).Topic)
}

func TestReconnectResubscribes(t *testing.T) {
	r := newFakeRelay(t)
	c := newTestConn(r)
	defer c.Disconnect()

	var (
		mu     sync.Mutex
		states []State
	)
	c.OnState(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	require.NoError(t, c.Connect(context.Background(), "st1", "u1"))
	expectHandshake(t, r)

	r.last().Close()

	expectHandshake(t, r)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 5
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Connecting, Connected, Disconnected, Connecting, Connected}, states)
}

func TestDisconnect_Idempotent(t *testing.T) {
	r := newFakeRelay(t)
	c := newTestConn(r)

	require.NoError(t, c.Connect(context.Background(), "st1", "u1"))
	expectHandshake(t, r)

	c.Disconnect()
	c.Disconnect()

	assert.Equal(t, Disconnected, c.State())
	assert.ErrorIs(t, c.Publish("x", nil), ErrNotConnected)
}

func TestInitialDialFailureRetries(t *testing.T) {
	c := New(Options{URL: "ws://127.0.0.1:1/unreachable", Reconnect: 10 * time.Millisecond})

	require.NoError(t, c.Connect(context.Background(), "st1", "u1"))
	time.Sleep(50 * time.Millisecond)

	assert.NotEqual(t, Connected, c.State())
	c.Disconnect()
	assert.Equal(t, Disconnected, c.State())
}
