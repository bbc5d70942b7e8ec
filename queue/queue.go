package queue

import (
	"errors"

	"Tandem/authority"
	"Tandem/events"
	"Tandem/relay"
	"Tandem/station"

	"github.com/Strum355/log"
	"github.com/google/uuid"
)

var (
	ErrItemNotFound = errors.New("queue item not found")
	ErrEmptyTrack   = errors.New("track has no title or media reference")
)

// Player starts playback of a queue item. Implemented by the playback reconciler.
type Player interface {
	PlayItem(item station.QueueItem)
}

// Manager keeps the ordered list of pending tracks for a station. Only the
// host reorders or removes; anyone may append.
type Manager struct {
	store  *station.Store   // Shared station snapshot holding the queue
	gate   *authority.Gate  // Host checks and echo suppression
	pub    events.Publisher // Outbound relay publisher
	player Player           // Receives play-now items
}

func NewManager(store *station.Store, gate *authority.Gate, pub events.Publisher) *Manager {
	return &Manager{
		store: store,
		gate:  gate,
		pub:   pub,
	}
}

// SetPlayer wires the component that starts playback
func (m *Manager) SetPlayer(p Player) {
	m.player = p
}

// Items returns a copy of the pending tracks
func (m *Manager) Items() []station.QueueItem {
	return append([]station.QueueItem(nil), m.store.Queue...)
}

func (m *Manager) Len() int {
	return len(m.store.Queue)
}

// Add asks the relay to append a track. The local queue only changes when
// the relay echoes the addition back.
func (m *Manager) Add(track station.QueueItem) (station.QueueItem, error) {
	if track.Title == "" && track.VideoRef == "" {
		return station.QueueItem{}, ErrEmptyTrack
	}
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	if err := m.pub.Publish(events.DestQueueAdd, events.NewQueueAdd(track, m.gate.SelfID())); err != nil {
		return station.QueueItem{}, err
	}
	return track, nil
}

// Remove drops a track from the queue (host only)
func (m *Manager) Remove(id string) error {
	if !m.gate.Allow("queue.remove") {
		return nil
	}
	i := m.indexOf(id)
	if i < 0 {
		return ErrItemNotFound
	}

	next := m.Items()
	next = append(next[:i], next[i+1:]...)
	return m.commit(next)
}

// Reorder moves the item fromID into the position currently held by toID (host only)
func (m *Manager) Reorder(fromID, toID string) error {
	if !m.gate.Allow("queue.reorder") {
		return nil
	}
	from, to := m.indexOf(fromID), m.indexOf(toID)
	if from < 0 || to < 0 {
		return ErrItemNotFound
	}
	if from == to {
		return nil
	}

	next := m.Items()
	item := next[from]
	next = append(next[:from], next[from+1:]...)
	next = append(next[:to], append([]station.QueueItem{item}, next[to:]...)...)
	return m.commit(next)
}

// PlayNow removes the item from the queue and starts it from the beginning (host only)
func (m *Manager) PlayNow(id string) error {
	if !m.gate.Allow("queue.play_now") {
		return nil
	}
	i := m.indexOf(id)
	if i < 0 {
		return ErrItemNotFound
	}

	next := m.Items()
	item := next[i]
	next = append(next[:i], next[i+1:]...)
	if err := m.commit(next); err != nil {
		return err
	}

	if m.player != nil {
		m.player.PlayItem(item)
	}
	return nil
}

// Next dequeues the head of the queue for auto-advance and republishes the
// shortened queue. Only the host advances.
func (m *Manager) Next() (station.QueueItem, bool) {
	if !m.gate.IsHost() || len(m.store.Queue) == 0 {
		return station.QueueItem{}, false
	}

	next := m.Items()
	item := next[0]
	if err := m.commit(next[1:]); err != nil {
		log.WithError(err).Warn("Failed to publish queue after advancing")
		return station.QueueItem{}, false
	}
	return item, true
}

// ApplyReplace handles an inbound queue_update
func (m *Manager) ApplyReplace(evt *events.QueueUpdate) bool {
	if m.gate.IsEcho(evt.SenderID) {
		return false
	}
	m.store.ReplaceQueue(evt.Queue)
	return true
}

// ApplyAdd handles an inbound queue_add, including our own
func (m *Manager) ApplyAdd(evt *events.QueueAdd) bool {
	return m.store.AppendQueue(evt.Item)
}

// commit republishes a new sequence in full and applies it locally. While
// the relay is down the change is local only. Any other publish failure
// leaves the queue untouched.
func (m *Manager) commit(next []station.QueueItem) error {
	err := m.pub.Publish(events.DestQueueUpdate, events.NewQueueUpdate(next, m.gate.SelfID()))
	switch {
	case errors.Is(err, relay.ErrNotConnected):
		log.WithFields(log.Fields{"queue_len": len(next)}).Debug("Queue change not published, relay is down")
	case err != nil:
		return err
	}
	m.store.ReplaceQueue(next)
	return nil
}

func (m *Manager) indexOf(id string) int {
	for i, item := range m.store.Queue {
		if item.ID == id {
			return i
		}
	}
	return -1
}
