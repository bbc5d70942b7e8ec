package commands

import (
	"errors"
	"fmt"
	"io"

	"Tandem/chat"
	"Tandem/directory"
	"Tandem/membership"
	"Tandem/queue"
	"Tandem/session"
	"Tandem/utils"

	"github.com/Strum355/log"
)

type commandError struct {
	err     error
	message string
}

// Handle logs the underlying error and tells the user what went wrong
func (e *commandError) Handle(out io.Writer) {
	if e.err != nil {
		log.WithError(e.err).Warn(e.message)
	}
	fmt.Fprintln(out, "❌ "+e.message)
}

// usage reports a malformed invocation
func usage(name, synopsis string) *commandError {
	return &commandError{nil, fmt.Sprintf("Usage: %s %s", name, synopsis)}
}

// failed converts an operation error into a user-facing message
func failed(err error) *commandError {
	if err == nil {
		return nil
	}
	var message string
	switch {
	case errors.Is(err, session.ErrExited):
		message = "You are no longer in the station"
	case errors.Is(err, chat.ErrDisconnected):
		message = "Not connected, message not sent"
	case errors.Is(err, chat.ErrMessageTooLong):
		message = fmt.Sprintf("Messages are limited to %d characters", chat.MaxLength)
	case errors.Is(err, queue.ErrItemNotFound):
		message = "No such track in the queue"
	case errors.Is(err, membership.ErrNotParticipant):
		message = "That user is not in the station"
	case errors.Is(err, membership.ErrNotBanned):
		message = "That user is not banned"
	case errors.Is(err, membership.ErrSelf):
		message = "You can't do that to yourself"
	case errors.Is(err, membership.ErrNotConfirmed):
		message = "Add 'confirm' to hand over host"
	case errors.Is(err, directory.ErrForbidden):
		message = "The directory refused the request"
	case errors.Is(err, directory.ErrNotFound):
		message = "The station no longer exists"
	case errors.Is(err, utils.ErrInvalidPosition):
		message = utils.ErrInvalidPosition.Error()
	default:
		message = err.Error()
	}
	return &commandError{err, message}
}
