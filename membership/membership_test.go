package membership

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"Tandem/authority"
	"Tandem/station"

	"github.com/Strum355/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitSimpleLogger(&log.Config{Output: io.Discard})
	os.Exit(m.Run())
}

type fakeDirectory struct {
	calls  []string
	err    error
	joined station.Station
}

func (d *fakeDirectory) record(call string) error {
	d.calls = append(d.calls, call)
	return d.err
}

func (d *fakeDirectory) Fetch(_ context.Context, id string) (station.Station, error) {
	return d.joined, d.record("fetch " + id)
}

func (d *fakeDirectory) Join(_ context.Context, id string) (station.Station, error) {
	return d.joined, d.record("join " + id)
}

func (d *fakeDirectory) Leave(_ context.Context, id string) error {
	return d.record("leave " + id)
}

func (d *fakeDirectory) Kick(_ context.Context, _, user string) error {
	return d.record("kick " + user)
}

func (d *fakeDirectory) Ban(_ context.Context, _, user string) error {
	return d.record("ban " + user)
}

func (d *fakeDirectory) Unban(_ context.Context, _, user string) error {
	return d.record("unban " + user)
}

func (d *fakeDirectory) TransferHost(_ context.Context, _, user string) error {
	return d.record("transfer " + user)
}

func (d *fakeDirectory) Close(_ context.Context, id string) error {
	return d.record("close " + id)
}

func (d *fakeDirectory) UpdateTitle(_ context.Context, _, title string) error {
	return d.record("title " + title)
}

func newTestController(selfID string) (*Controller, *station.Store, *fakeDirectory, *[]string) {
	store := station.NewStore(station.Station{
		ID:     "st",
		Title:  "Old",
		Status: station.StatusActive,
		Host:   station.UserRef{ID: "host", Nickname: "Host"},
		Participants: []station.UserRef{
			{ID: "host", Nickname: "Host"},
			{ID: "amy", Nickname: "Amy"},
			{ID: "bob", Nickname: "Bob"},
		},
		Banned: []station.UserRef{{ID: "eve", Nickname: "Eve"}},
	})
	dir := &fakeDirectory{}
	exits := []string{}
	c := NewController(store, authority.NewGate(store, selfID), dir, nil)
	c.SetExit(func(reason string) { exits = append(exits, reason) })
	return c, store, dir, &exits
}

func participantIDs(s station.Station) []string {
	out := []string{}
	for _, u := range s.Participants {
		out = append(out, u.ID)
	}
	return out
}

func TestJoin_BannedRejectedWithoutMutation(t *testing.T) {
	c, store, dir, _ := newTestController("eve")

	err := c.Join(context.Background())

	assert.ErrorIs(t, err, ErrBanned)
	assert.Empty(t, dir.calls)
	assert.Equal(t, []string{"host", "amy", "bob"}, participantIDs(store.Station))
}

func TestJoin_ReplacesSnapshot(t *testing.T) {
	c, store, dir, _ := newTestController("zed")
	dir.joined = station.Station{
		ID:           "st",
		Title:        "Old",
		Host:         station.UserRef{ID: "host"},
		Participants: []station.UserRef{{ID: "host"}, {ID: "zed"}},
	}

	require.NoError(t, c.Join(context.Background()))

	assert.Equal(t, []string{"join st"}, dir.calls)
	assert.True(t, store.Station.HasParticipant("zed"))
}

func TestBanThenJoinRejected(t *testing.T) {
	host, store, _, _ := newTestController("host")
	require.NoError(t, host.Ban(context.Background(), "bob"))

	assert.False(t, store.Station.HasParticipant("bob"))
	assert.True(t, store.Station.IsBanned("bob"))

	dir := &fakeDirectory{}
	bob := NewController(store, authority.NewGate(store, "bob"), dir, nil)
	assert.ErrorIs(t, bob.Join(context.Background()), ErrBanned)
	assert.Empty(t, dir.calls)
}

func TestKick(t *testing.T) {
	c, store, dir, _ := newTestController("host")

	require.NoError(t, c.Kick(context.Background(), "amy"))

	assert.Equal(t, []string{"kick amy"}, dir.calls)
	assert.Equal(t, []string{"host", "bob"}, participantIDs(store.Station))
	assert.False(t, store.Station.IsBanned("amy"))
}

type targetTestCase struct {
	name     string
	run      func(c *Controller) error
	expected error
}

func TestTargetValidation(t *testing.T) {
	ctx := context.Background()
	tests := []targetTestCase{
		{"kick stranger", func(c *Controller) error { return c.Kick(ctx, "nobody") }, ErrNotParticipant},
		{"ban stranger", func(c *Controller) error { return c.Ban(ctx, "nobody") }, ErrNotParticipant},
		{"kick self", func(c *Controller) error { return c.Kick(ctx, "host") }, ErrSelf},
		{"unban not banned", func(c *Controller) error { return c.Unban(ctx, "amy") }, ErrNotBanned},
		{"transfer unconfirmed", func(c *Controller) error { return c.TransferHost(ctx, "amy", false) }, ErrNotConfirmed},
		{"transfer stranger", func(c *Controller) error { return c.TransferHost(ctx, "nobody", true) }, ErrNotParticipant},
		{"blank title", func(c *Controller) error { return c.SetTitle(ctx, "   ") }, ErrEmptyTitle},
	}

	for _, tt := range tests {
		c, _, dir, _ := newTestController("host")
		assert.ErrorIs(t, tt.run(c), tt.expected, tt.name)
		assert.Empty(t, dir.calls, tt.name)
	}
}

func TestHostOnly_NonHostSilentlyIgnored(t *testing.T) {
	c, store, dir, exits := newTestController("amy")
	ctx := context.Background()

	assert.NoError(t, c.Kick(ctx, "bob"))
	assert.NoError(t, c.Ban(ctx, "bob"))
	assert.NoError(t, c.Unban(ctx, "eve"))
	assert.NoError(t, c.TransferHost(ctx, "bob", true))
	assert.NoError(t, c.Close(ctx))
	assert.NoError(t, c.SetTitle(ctx, "Mine now"))

	assert.Empty(t, dir.calls)
	assert.Empty(t, *exits)
	assert.Equal(t, "Old", store.Station.Title)
	assert.Equal(t, "host", store.Station.Host.ID)
	assert.Equal(t, []string{"host", "amy", "bob"}, participantIDs(store.Station))
}

func TestDirectoryRejection_NoMutation(t *testing.T) {
	c, store, dir, _ := newTestController("host")
	dir.err = errors.New("conflict")

	assert.Error(t, c.Ban(context.Background(), "amy"))

	assert.True(t, store.Station.HasParticipant("amy"))
	assert.False(t, store.Station.IsBanned("amy"))
}

func TestUnban(t *testing.T) {
	c, store, _, _ := newTestController("host")

	require.NoError(t, c.Unban(context.Background(), "eve"))

	assert.False(t, store.Station.IsBanned("eve"))
	assert.False(t, store.Station.HasParticipant("eve"))
}

func TestTransferHost(t *testing.T) {
	c, store, _, _ := newTestController("host")

	require.NoError(t, c.TransferHost(context.Background(), "amy", true))

	assert.Equal(t, "amy", store.Station.Host.ID)
	assert.Equal(t, "Amy", store.Station.Host.Nickname)
}

func TestClose(t *testing.T) {
	c, store, _, exits := newTestController("host")

	require.NoError(t, c.Close(context.Background()))

	assert.True(t, store.Closed())
	assert.Equal(t, []string{ReasonClosed}, *exits)
}

func TestSetTitle_Trimmed(t *testing.T) {
	c, store, dir, _ := newTestController("host")

	require.NoError(t, c.SetTitle(context.Background(), "  Sunday  "))

	assert.Equal(t, "Sunday", store.Station.Title)
	assert.Equal(t, []string{"title Sunday"}, dir.calls)
}

func TestLeave_BestEffort(t *testing.T) {
	c, _, dir, exits := newTestController("amy")
	dir.err = errors.New("offline")

	assert.NoError(t, c.Leave(context.Background()))

	assert.Equal(t, []string{"leave st"}, dir.calls)
	assert.Equal(t, []string{ReasonLeft}, *exits)
}
