package commands

import (
	"context"
	"io"
	"strings"

	"Tandem/station"
	"Tandem/utils"
	"Tandem/yt"
)

func registerQueue(c *Commands) {
	c.Add(&Command{Name: "add", Usage: "<title - artist | youtube link>", Description: "Add a track to the end of the queue."}, addSong)
	c.Add(&Command{Name: "remove", Usage: "<position | id>", Description: "Remove a track from the queue.", HostOnly: true}, removeSong)
	c.Add(&Command{Name: "move", Usage: "<from> <to>", Description: "Move a track to another place in the queue.", HostOnly: true}, moveSong)
	c.Add(&Command{Name: "playnow", Usage: "<position | id>", Description: "Play a queued track immediately.", HostOnly: true}, playNow)
	c.Add(&Command{Name: "queue", Description: "Show the upcoming tracks."}, showQueue)
}

// trackFromInput builds a queue item from a YouTube link or "Title - Artist"
func trackFromInput(input string) station.QueueItem {
	input = strings.TrimSpace(input)
	if strings.Contains(input, "youtu") {
		if id, err := yt.NormalizeID(input); err == nil {
			return station.QueueItem{Title: id, VideoRef: id}
		}
	}
	title, artist := utils.ParseTrack(input)
	return station.QueueItem{Title: title, Artist: artist}
}

func addSong(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) == 0 {
		return usage("add", "<title - artist | youtube link>")
	}
	item, err := st.AddToQueue(trackFromInput(strings.Join(args, " ")))
	if err != nil {
		return failed(err)
	}
	reply(out, "🎶 Queued %s", utils.TrackLabel(item.Title, item.Artist))
	return nil
}

func removeSong(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) != 1 {
		return usage("remove", "<position | id>")
	}
	v, err := st.View()
	if err != nil {
		return failed(err)
	}
	id, ok := queueItemID(v, args[0])
	if !ok {
		return &commandError{nil, "No such track in the queue"}
	}
	if err := st.RemoveFromQueue(id); err != nil {
		return failed(err)
	}
	reply(out, "🗑️ Removed from queue")
	return nil
}

func moveSong(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) != 2 {
		return usage("move", "<from> <to>")
	}
	v, err := st.View()
	if err != nil {
		return failed(err)
	}
	from, ok := queueItemID(v, args[0])
	if !ok {
		return &commandError{nil, "No such track in the queue"}
	}
	to, ok := queueItemID(v, args[1])
	if !ok {
		return &commandError{nil, "No such track in the queue"}
	}
	if err := st.MoveInQueue(from, to); err != nil {
		return failed(err)
	}
	reply(out, "↕️ Queue reordered")
	return nil
}

func playNow(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) != 1 {
		return usage("playnow", "<position | id>")
	}
	v, err := st.View()
	if err != nil {
		return failed(err)
	}
	id, ok := queueItemID(v, args[0])
	if !ok {
		return &commandError{nil, "No such track in the queue"}
	}
	if err := st.PlayNow(id); err != nil {
		return failed(err)
	}
	reply(out, "▶️ Playing now")
	return nil
}

func showQueue(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	v, err := st.View()
	if err != nil {
		return failed(err)
	}
	if len(v.Queue) == 0 {
		reply(out, "The queue is empty")
		return nil
	}
	for i, item := range v.Queue {
		line := utils.TrackLabel(item.Title, item.Artist)
		if item.Duration > 0 {
			line += " (" + utils.FormatPosition(item.Duration) + ")"
		}
		reply(out, "%2d. %s", i+1, line)
	}
	return nil
}
