package chat

import (
	"strings"
	"testing"

	"Tandem/authority"
	"Tandem/events"
	"Tandem/station"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sent []events.ChatSend
}

func (r *recorder) Publish(_ events.Destination, payload any) error {
	r.sent = append(r.sent, payload.(events.ChatSend))
	return nil
}

type link bool

func (l link) Connected() bool { return bool(l) }

func newTestChannel(connected bool) (*Channel, *recorder) {
	store := station.NewStore(station.Station{ID: "st"})
	pub := &recorder{}
	return NewChannel(store, authority.NewGate(store, "me"), pub, link(connected)), pub
}

type sendTestCase struct {
	text     string
	expected error
}

func TestSend_Validation(t *testing.T) {
	tests := []sendTestCase{
		{"", ErrEmptyMessage},
		{"   \t ", ErrEmptyMessage},
		{strings.Repeat("a", MaxLength+1), ErrMessageTooLong},
		{strings.Repeat("é", MaxLength), nil},
		{"hi", nil},
	}

	for _, tt := range tests {
		c, _ := newTestChannel(true)
		_, err := c.Send(tt.text)
		if tt.expected == nil {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, tt.expected)
		}
	}
}

func TestSend_Disconnected(t *testing.T) {
	c, pub := newTestChannel(false)

	_, err := c.Send("hello")

	assert.ErrorIs(t, err, ErrDisconnected)
	assert.Empty(t, pub.sent)
}

func TestSend_PublishesTrimmed(t *testing.T) {
	c, pub := newTestChannel(true)

	id, err := c.Send("  hello there ")

	require.NoError(t, err)
	require.Equal(t, 1, len(pub.sent))
	assert.Equal(t, "hello there", pub.sent[0].Message)
	assert.Equal(t, "me", pub.sent[0].SenderID)
	assert.Equal(t, id, pub.sent[0].ID)
	assert.Empty(t, c.Messages())
}

func TestAppend_ArrivalOrderAndDedup(t *testing.T) {
	c, _ := newTestChannel(true)

	assert.True(t, c.Append(&events.Chat{Message: station.ChatMessage{ID: "2", Text: "second", SentAt: 20}}))
	assert.True(t, c.Append(&events.Chat{Message: station.ChatMessage{ID: "1", Text: "first", SentAt: 10}}))
	assert.False(t, c.Append(&events.Chat{Message: station.ChatMessage{ID: "2", Text: "second"}}))

	msgs := c.Messages()
	require.Equal(t, 2, len(msgs))
	assert.Equal(t, "second", msgs[0].Text)
	assert.Equal(t, "first", msgs[1].Text)
}
