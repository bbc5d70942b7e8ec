package commands

import (
	"context"
	"io"
	"sort"

	"Tandem/session"
	"Tandem/station"

	"github.com/Strum355/log"
)

// Station is the session surface driven by console commands
type Station interface {
	View() (session.View, error)

	Play() error
	Pause() error
	Seek(positionMs int64) error
	SetVolume(volume int) error
	Mute() error
	Unmute() error
	Resync() error

	AddToQueue(track station.QueueItem) (station.QueueItem, error)
	RemoveFromQueue(id string) error
	MoveInQueue(fromID, toID string) error
	PlayNow(id string) error

	SendChat(text string) error
	EnableCaptions() error
	DisableCaptions() error
	RequestCaptionStatus() error
	ShowTranslated(on bool) error

	Kick(ctx context.Context, userID string) error
	Ban(ctx context.Context, userID string) error
	Unban(ctx context.Context, userID string) error
	TransferHost(ctx context.Context, userID string, confirmed bool) error
	SetTitle(ctx context.Context, title string) error
	Close(ctx context.Context) error
	Leave(ctx context.Context) error
}

type Command struct {
	Name        string
	Usage       string // Argument synopsis, empty if none
	Description string
	HostOnly    bool
}

type CommandHandler func(ctx context.Context, st Station, args []string, out io.Writer) *commandError

type Commands struct {
	commands []*Command
	handlers map[string]CommandHandler
}

// New builds the console command set
func New() *Commands {
	c := &Commands{}
	registerPlayback(c)
	registerQueue(c)
	registerCaptions(c)
	registerMembers(c)
	return c
}

// Adds a command to the registry
func (c *Commands) Add(com *Command, handler CommandHandler) {
	c.commands = append(c.commands, com)
	if c.handlers == nil {
		c.handlers = map[string]CommandHandler{}
	}
	c.handlers[com.Name] = handler
}

// List returns the registered commands sorted by name
func (c *Commands) List() []*Command {
	out := append([]*Command(nil), c.commands...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Commands) Lookup(name string) (*Command, bool) {
	for _, com := range c.commands {
		if com.Name == name {
			return com, true
		}
	}
	return nil, false
}

// Call runs the named command. It reports false if no such command exists.
func (c *Commands) Call(ctx context.Context, st Station, name string, args []string, out io.Writer) bool {
	handler, ok := c.handlers[name]
	if !ok {
		return false
	}

	ctx = context.WithValue(ctx, log.Key, log.Fields{
		"command": name,
		"args":    len(args),
	})
	log.WithContext(ctx).Debug("Invoking console command")

	if com, _ := c.Lookup(name); com.HostOnly {
		if cErr := requireHost(st); cErr != nil {
			cErr.Handle(out)
			return true
		}
	}
	if cErr := handler(ctx, st, args, out); cErr != nil {
		cErr.Handle(out)
	}
	return true
}
