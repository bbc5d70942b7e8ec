// Package membership applies roster and lifecycle changes to a station once
// the directory has confirmed them.
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Tandem/authority"
	"Tandem/station"

	"github.com/Strum355/log"
)

var (
	ErrBanned         = errors.New("you are banned from this station")
	ErrNotParticipant = errors.New("user is not in the station")
	ErrNotBanned      = errors.New("user is not banned")
	ErrNotConfirmed   = errors.New("host transfer must be confirmed")
	ErrEmptyTitle     = errors.New("title cannot be empty")
	ErrSelf           = errors.New("cannot target yourself")
)

// Directory is the backend that owns station membership
type Directory interface {
	Fetch(ctx context.Context, stationID string) (station.Station, error)
	Join(ctx context.Context, stationID string) (station.Station, error)
	Leave(ctx context.Context, stationID string) error
	Kick(ctx context.Context, stationID, userID string) error
	Ban(ctx context.Context, stationID, userID string) error
	Unban(ctx context.Context, stationID, userID string) error
	TransferHost(ctx context.Context, stationID, userID string) error
	Close(ctx context.Context, stationID string) error
	UpdateTitle(ctx context.Context, stationID, title string) error
}

// Exit reasons passed to the exit hook
const (
	ReasonLeft   = "left"
	ReasonClosed = "closed"
)

// Controller runs membership operations. Each call checks the local snapshot,
// waits for the directory and then applies the change, so it blocks and must
// not be called from the session loop. Store access goes through onLoop.
type Controller struct {
	store  *station.Store
	gate   *authority.Gate
	dir    Directory
	onLoop func(func())
	exit   func(reason string)
}

func NewController(store *station.Store, gate *authority.Gate, dir Directory, onLoop func(func())) *Controller {
	if onLoop == nil {
		onLoop = func(f func()) { f() }
	}
	return &Controller{
		store:  store,
		gate:   gate,
		dir:    dir,
		onLoop: onLoop,
		exit:   func(string) {},
	}
}

// SetExit sets the hook that tears the session down after leave or close
func (c *Controller) SetExit(exit func(reason string)) {
	c.exit = exit
}

// Join adds the local user to the station. A banned user is refused without
// contacting the directory.
func (c *Controller) Join(ctx context.Context) error {
	var (
		stationID string
		banned    bool
	)
	c.onLoop(func() {
		stationID = c.store.Station.ID
		banned = c.store.Station.IsBanned(c.gate.SelfID())
	})
	if banned {
		return ErrBanned
	}

	s, err := c.dir.Join(ctx, stationID)
	if err != nil {
		return fmt.Errorf("joining station: %w", err)
	}
	c.onLoop(func() {
		c.store.ReplaceStation(s)
	})
	return nil
}

// Leave notifies the directory and exits. A directory failure does not keep
// the user in the station.
func (c *Controller) Leave(ctx context.Context) error {
	stationID := c.stationID()
	if err := c.dir.Leave(ctx, stationID); err != nil {
		log.WithError(err).Warn("Failed to notify directory of leave")
	}
	c.exit(ReasonLeft)
	return nil
}

// Kick removes a participant (host only)
func (c *Controller) Kick(ctx context.Context, userID string) error {
	stationID, ok, err := c.checkTarget("membership.kick", userID)
	if !ok || err != nil {
		return err
	}
	if err := c.dir.Kick(ctx, stationID, userID); err != nil {
		return fmt.Errorf("kicking %s: %w", userID, err)
	}
	c.onLoop(func() {
		c.store.Station.RemoveParticipant(userID)
	})
	return nil
}

// Ban removes a participant and keeps them out (host only)
func (c *Controller) Ban(ctx context.Context, userID string) error {
	stationID, ok, err := c.checkTarget("membership.ban", userID)
	if !ok || err != nil {
		return err
	}
	if err := c.dir.Ban(ctx, stationID, userID); err != nil {
		return fmt.Errorf("banning %s: %w", userID, err)
	}
	c.onLoop(func() {
		c.store.Station.Ban(station.UserRef{ID: userID})
	})
	return nil
}

// Unban lifts a ban. The user is not re-added to the roster. (host only)
func (c *Controller) Unban(ctx context.Context, userID string) error {
	var (
		stationID string
		allowed   bool
		banned    bool
	)
	c.onLoop(func() {
		stationID = c.store.Station.ID
		allowed = c.gate.Allow("membership.unban")
		banned = c.store.Station.IsBanned(userID)
	})
	if !allowed {
		return nil
	}
	if !banned {
		return ErrNotBanned
	}

	if err := c.dir.Unban(ctx, stationID, userID); err != nil {
		return fmt.Errorf("unbanning %s: %w", userID, err)
	}
	c.onLoop(func() {
		c.store.Station.Unban(userID)
	})
	return nil
}

// TransferHost hands host authority to another participant (host only).
// The change is applied locally as soon as the directory accepts it.
func (c *Controller) TransferHost(ctx context.Context, userID string, confirmed bool) error {
	stationID, ok, err := c.checkTarget("membership.transfer", userID)
	if !ok || err != nil {
		return err
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := c.dir.TransferHost(ctx, stationID, userID); err != nil {
		return fmt.Errorf("transferring host to %s: %w", userID, err)
	}
	c.onLoop(func() {
		c.store.SetHost(station.UserRef{ID: userID})
	})
	log.WithFields(log.Fields{"new_host": userID}).Info("Host transferred")
	return nil
}

// Close ends the station for everyone (host only)
func (c *Controller) Close(ctx context.Context) error {
	var (
		stationID string
		allowed   bool
	)
	c.onLoop(func() {
		stationID = c.store.Station.ID
		allowed = c.gate.Allow("membership.close")
	})
	if !allowed {
		return nil
	}

	if err := c.dir.Close(ctx, stationID); err != nil {
		return fmt.Errorf("closing station: %w", err)
	}
	c.onLoop(func() {
		c.store.Station.Status = station.StatusClosed
	})
	c.exit(ReasonClosed)
	return nil
}

// SetTitle renames the station (host only)
func (c *Controller) SetTitle(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)

	var (
		stationID string
		allowed   bool
	)
	c.onLoop(func() {
		stationID = c.store.Station.ID
		allowed = c.gate.Allow("membership.title")
	})
	if !allowed {
		return nil
	}
	if title == "" {
		return ErrEmptyTitle
	}

	if err := c.dir.UpdateTitle(ctx, stationID, title); err != nil {
		return fmt.Errorf("updating title: %w", err)
	}
	c.onLoop(func() {
		c.store.SetTitle(title)
	})
	return nil
}

// checkTarget runs the host check and target validation shared by
// kick, ban and transfer. ok is false for a silent non-host refusal.
func (c *Controller) checkTarget(action, userID string) (stationID string, ok bool, err error) {
	c.onLoop(func() {
		stationID = c.store.Station.ID
		if !c.gate.Allow(action) {
			return
		}
		ok = true
		switch {
		case userID == c.gate.SelfID():
			err = ErrSelf
		case !c.store.Station.HasParticipant(userID):
			err = ErrNotParticipant
		}
	})
	return stationID, ok, err
}

func (c *Controller) stationID() string {
	var id string
	c.onLoop(func() {
		id = c.store.Station.ID
	})
	return id
}
