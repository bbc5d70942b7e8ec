package handlers

import (
	"bufio"
	"context"
	"io"

	"Tandem/commands"

	"github.com/Strum355/log"
)

// Console reads lines from in and routes them to the session
type Console struct {
	In      io.Reader
	Out     io.Writer
	Prefix  string
	Station commands.Station
	Cmds    *commands.Commands
}

// Run handles input until it is exhausted or ctx is cancelled
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(c.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if err != nil {
				log.WithError(err).Error("Failed to read console input")
			}
			return err
		case line := <-lines:
			MessageHandler(ctx, line, c.Prefix, c.Cmds, c.Station, c.Out)
		}
	}
}
