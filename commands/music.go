package commands

import (
	"context"
	"io"
	"strconv"

	"Tandem/utils"
)

func registerPlayback(c *Commands) {
	c.Add(&Command{Name: "play", Description: "Resume playback for everyone.", HostOnly: true}, playMusic)
	c.Add(&Command{Name: "pause", Description: "Pause playback for everyone.", HostOnly: true}, pauseMusic)
	c.Add(&Command{Name: "seek", Usage: "<m:ss>", Description: "Jump to a position in the current track.", HostOnly: true}, seekMusic)
	c.Add(&Command{Name: "volume", Usage: "<0-100>", Description: "Set the station volume.", HostOnly: true}, setVolume)
	c.Add(&Command{Name: "mute", Description: "Silence your own output."}, muteMusic)
	c.Add(&Command{Name: "unmute", Description: "Restore your own output."}, unmuteMusic)
	c.Add(&Command{Name: "np", Description: "Show the track that's now playing."}, nowPlaying)
	c.Add(&Command{Name: "resync", Description: "Ask the relay for a fresh snapshot."}, resync)
}

func playMusic(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if err := st.Play(); err != nil {
		return failed(err)
	}
	reply(out, "▶️ Resumed")
	return nil
}

func pauseMusic(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if err := st.Pause(); err != nil {
		return failed(err)
	}
	reply(out, "⏸️ Paused")
	return nil
}

func seekMusic(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) != 1 {
		return usage("seek", "<m:ss>")
	}
	ms, err := utils.ParsePosition(args[0])
	if err != nil {
		return failed(err)
	}
	if err := st.Seek(ms); err != nil {
		return failed(err)
	}
	reply(out, "⏩ Seeked to %s", utils.FormatPosition(ms))
	return nil
}

func setVolume(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) != 1 {
		return usage("volume", "<0-100>")
	}
	volume, err := strconv.Atoi(args[0])
	if err != nil {
		return &commandError{err, "Volume must be a number between 0 and 100"}
	}
	if err := st.SetVolume(volume); err != nil {
		return failed(err)
	}
	v, err := st.View()
	if err != nil {
		return failed(err)
	}
	reply(out, "🔊 Volume %d", v.Volume)
	return nil
}

func muteMusic(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if err := st.Mute(); err != nil {
		return failed(err)
	}
	reply(out, "🔇 Muted")
	return nil
}

func unmuteMusic(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if err := st.Unmute(); err != nil {
		return failed(err)
	}
	reply(out, "🔈 Unmuted")
	return nil
}

func nowPlaying(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	v, err := st.View()
	if err != nil {
		return failed(err)
	}
	p := v.Playback
	if !p.HasTrack() {
		reply(out, "Nothing is playing")
		return nil
	}

	state := "▶️"
	if !p.IsPlaying {
		state = "⏸️"
	}
	label := utils.TrackLabel(p.Title, p.Artist)
	if label == "" {
		label = p.VideoRef
	}
	if p.Duration > 0 {
		reply(out, "%s %s [%s / %s]", state, label, utils.FormatPosition(v.Position), utils.FormatPosition(int64(p.Duration)*1000))
	} else {
		reply(out, "%s %s [%s]", state, label, utils.FormatPosition(v.Position))
	}
	if v.Unplayable {
		reply(out, "⚠️ No playable source for this track")
	}
	if v.Muted {
		reply(out, "🔇 You are muted")
	}
	return nil
}

func resync(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if err := st.Resync(); err != nil {
		return failed(err)
	}
	reply(out, "🔄 Resync requested")
	return nil
}
