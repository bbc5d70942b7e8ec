package commands

import (
	"context"
	"io"
)

func registerCaptions(c *Commands) {
	c.Add(&Command{Name: "cc", Usage: "<on | off | status>", Description: "Turn captions on or off for the station, or ask for their status."}, captions)
	c.Add(&Command{Name: "translate", Usage: "<on | off>", Description: "Show translated captions when available."}, translate)
}

func captions(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) != 1 {
		return usage("cc", "<on | off | status>")
	}

	switch args[0] {
	case "on", "off":
		if cErr := requireHost(st); cErr != nil {
			return cErr
		}
		enable := st.EnableCaptions
		if args[0] == "off" {
			enable = st.DisableCaptions
		}
		if err := enable(); err != nil {
			return failed(err)
		}
		reply(out, "💬 Captions %s", args[0])
	case "status":
		if err := st.RequestCaptionStatus(); err != nil {
			return failed(err)
		}
		v, err := st.View()
		if err != nil {
			return failed(err)
		}
		c := v.Captions
		switch {
		case !c.Enabled:
			reply(out, "💬 Captions are off")
		case c.Processing:
			reply(out, "💬 Captions are being prepared")
		case c.Available:
			reply(out, "💬 Captions are on (%s, %d lines)", c.OriginalLanguage, len(c.Segments))
		default:
			reply(out, "💬 No captions for this track")
		}
	default:
		return usage("cc", "<on | off | status>")
	}
	return nil
}

func translate(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return usage("translate", "<on | off>")
	}
	if err := st.ShowTranslated(args[0] == "on"); err != nil {
		return failed(err)
	}
	reply(out, "🌐 Translation %s", args[0])
	return nil
}
