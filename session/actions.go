package session

import (
	"context"

	"Tandem/relay"
	"Tandem/station"
)

// View is a copy of the session state safe to read off the loop
type View struct {
	Station    station.Station
	Playback   station.PlaybackState
	Position   int64 // Local position in milliseconds
	Queue      []station.QueueItem
	Chat       []station.ChatMessage
	Captions   station.CaptionState
	Caption    string
	Volume     int
	Muted      bool
	IsHost     bool
	Unplayable bool
	Connection relay.State
}

func (c *Controller) View() (View, error) {
	var v View
	err := c.do(func() error {
		v = View{
			Station:    c.store.Station.Clone(),
			Playback:   c.store.Playback,
			Position:   c.player.Position(),
			Queue:      c.queue.Items(),
			Chat:       c.chat.Messages(),
			Captions:   c.store.Captions,
			Caption:    c.captions.Text(),
			Volume:     c.store.Volume,
			Muted:      c.player.Muted(),
			IsHost:     c.gate.IsHost(),
			Unplayable: c.player.Unplayable(),
			Connection: c.transport.State(),
		}
		v.Captions.Segments = append([]station.CaptionSegment(nil), v.Captions.Segments...)
		return nil
	})
	return v, err
}

func (c *Controller) Play() error {
	return c.do(func() error { c.player.Play(); return nil })
}

func (c *Controller) Pause() error {
	return c.do(func() error { c.player.Pause(); return nil })
}

func (c *Controller) Seek(positionMs int64) error {
	return c.do(func() error { c.player.Seek(positionMs); return nil })
}

func (c *Controller) SetVolume(volume int) error {
	return c.do(func() error { c.player.SetVolume(volume); return nil })
}

func (c *Controller) Mute() error {
	return c.do(func() error { c.player.Mute(); return nil })
}

func (c *Controller) Unmute() error {
	return c.do(func() error { c.player.Unmute(); return nil })
}

// Resync asks the relay for a fresh snapshot
func (c *Controller) Resync() error {
	return c.transport.Resync()
}

func (c *Controller) AddToQueue(track station.QueueItem) (station.QueueItem, error) {
	var item station.QueueItem
	err := c.do(func() error {
		var err error
		item, err = c.queue.Add(track)
		return err
	})
	return item, err
}

func (c *Controller) RemoveFromQueue(id string) error {
	return c.do(func() error { return c.queue.Remove(id) })
}

func (c *Controller) MoveInQueue(fromID, toID string) error {
	return c.do(func() error { return c.queue.Reorder(fromID, toID) })
}

func (c *Controller) PlayNow(id string) error {
	return c.do(func() error { return c.queue.PlayNow(id) })
}

func (c *Controller) SendChat(text string) error {
	return c.do(func() error {
		_, err := c.chat.Send(text)
		return err
	})
}

func (c *Controller) EnableCaptions() error {
	return c.do(c.captions.Enable)
}

func (c *Controller) DisableCaptions() error {
	return c.do(c.captions.Disable)
}

func (c *Controller) RequestCaptionStatus() error {
	return c.do(c.captions.RequestStatus)
}

func (c *Controller) ShowTranslated(on bool) error {
	return c.do(func() error {
		c.captions.ShowTranslated(on)
		c.lastCaption = ""
		return nil
	})
}

// Kick removes a participant. Membership actions block on the directory.
func (c *Controller) Kick(ctx context.Context, userID string) error {
	return c.members.Kick(ctx, userID)
}

func (c *Controller) Ban(ctx context.Context, userID string) error {
	return c.members.Ban(ctx, userID)
}

func (c *Controller) Unban(ctx context.Context, userID string) error {
	return c.members.Unban(ctx, userID)
}

func (c *Controller) TransferHost(ctx context.Context, userID string, confirmed bool) error {
	return c.members.TransferHost(ctx, userID, confirmed)
}

func (c *Controller) SetTitle(ctx context.Context, title string) error {
	return c.members.SetTitle(ctx, title)
}

// Close ends the station for everyone. The session exits.
func (c *Controller) Close(ctx context.Context) error {
	return c.members.Close(ctx)
}

// Leave notifies the directory and returns once the session is torn down
func (c *Controller) Leave(ctx context.Context) error {
	select {
	case <-c.finished:
		return nil
	default:
	}
	return c.members.Leave(ctx)
}
