package chat

import (
	"errors"
	"strings"
	"unicode/utf8"

	"Tandem/authority"
	"Tandem/events"
	"Tandem/station"

	"github.com/google/uuid"
)

// MaxLength is the longest message accepted, in characters
const MaxLength = 500

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrDisconnected   = errors.New("not connected to the station")
	ErrMessageTooLong = errors.New("message is too long")
)

// Link reports whether the transport can currently publish
type Link interface {
	Connected() bool
}

// Channel is the station's append-only chat feed
type Channel struct {
	store *station.Store
	gate  *authority.Gate
	pub   events.Publisher
	link  Link
}

func NewChannel(store *station.Store, gate *authority.Gate, pub events.Publisher, link Link) *Channel {
	return &Channel{store: store, gate: gate, pub: pub, link: link}
}

// Send publishes a message. It shows up in the feed once the relay echoes it.
func (c *Channel) Send(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxLength {
		return "", ErrMessageTooLong
	}
	if c.link != nil && !c.link.Connected() {
		return "", ErrDisconnected
	}

	id := uuid.NewString()
	err := c.pub.Publish(events.DestChat, events.ChatSend{
		ID:       id,
		Message:  text,
		SenderID: c.gate.SelfID(),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Append handles an inbound chat message. Duplicates are dropped.
func (c *Channel) Append(evt *events.Chat) bool {
	return c.store.AppendChat(evt.Message)
}

// Messages returns the feed in arrival order
func (c *Channel) Messages() []station.ChatMessage {
	return append([]station.ChatMessage(nil), c.store.Chat...)
}
