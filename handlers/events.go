package handlers

import (
	"fmt"
	"io"

	"Tandem/events"
	"Tandem/relay"
	"Tandem/session"
	"Tandem/utils"
)

// Hooks prints what happens in the station to out
func Hooks(out io.Writer, selfID string) session.Hooks {
	return session.Hooks{
		Event: func(evt events.Event) {
			if line := describe(evt, selfID); line != "" {
				fmt.Fprintln(out, line)
			}
		},
		Caption: func(text string) {
			if text != "" {
				fmt.Fprintln(out, "💬 "+text)
			}
		},
		Connection: func(state relay.State) {
			switch state {
			case relay.Connected:
				fmt.Fprintln(out, "🟢 Connected")
			case relay.Connecting:
				fmt.Fprintln(out, "🟡 Connecting...")
			default:
				fmt.Fprintln(out, "🔴 Disconnected")
			}
		},
		Exit: func(reason string) {
			fmt.Fprintln(out, exitMessage(reason))
		},
	}
}

func describe(evt events.Event, selfID string) string {
	switch e := evt.(type) {
	case *events.Chat:
		if e.Message.Author.ID == selfID {
			return ""
		}
		return fmt.Sprintf("<%s> %s", e.Message.Author.Nickname, e.Message.Text)
	case *events.PlaybackUpdate:
		ps := e.State()
		if !ps.HasTrack() {
			return ""
		}
		state := "▶️"
		if !ps.IsPlaying {
			state = "⏸️"
		}
		return fmt.Sprintf("%s %s @ %s", state, utils.TrackLabel(ps.Title, ps.Artist), utils.FormatPosition(ps.Position))
	case *events.ParticipantsUpdate:
		if e.AffectedUser == nil || e.Action == "" {
			return ""
		}
		return fmt.Sprintf("👥 %s: %s", e.Action, e.AffectedUser.Nickname)
	case *events.HostChanged:
		return fmt.Sprintf("👑 %s is now the host", e.Host.Nickname)
	case *events.TitleChanged:
		return fmt.Sprintf("📝 Station renamed to %s", e.Title)
	case *events.QueueAdd:
		return fmt.Sprintf("🎶 Queued %s", utils.TrackLabel(e.Item.Title, e.Item.Artist))
	case *events.SubtitleEnabled:
		return "💬 Captions turned on"
	case *events.SubtitleDisabled:
		return "💬 Captions turned off"
	}
	return ""
}

func exitMessage(reason string) string {
	switch reason {
	case session.ReasonKicked:
		return "👢 You were removed from the station"
	case session.ReasonBanned:
		return "🚫 You were banned from the station"
	case session.ReasonClosed:
		return "The host closed the station"
	case session.ReasonLeft:
		return "👋 Left the station"
	}
	return "Session ended"
}
