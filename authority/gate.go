// Package authority decides who may mutate shared station state.
package authority

import (
	"Tandem/station"

	"github.com/Strum355/log"
)

// Gate answers host checks for the local user against the live store
type Gate struct {
	store  *station.Store
	selfID string
}

func NewGate(store *station.Store, selfID string) *Gate {
	return &Gate{store: store, selfID: selfID}
}

// SelfID returns the local user id
func (g *Gate) SelfID() string {
	return g.selfID
}

// IsHost reports whether the local user currently holds host authority
func (g *Gate) IsHost() bool {
	return g.selfID != "" && g.store.Station.Host.ID == g.selfID
}

// Allow is the check used by host-only publishers. Non-hosts get a silent
// refusal; the attempt is only visible in debug logs.
func (g *Gate) Allow(action string) bool {
	if g.IsHost() {
		return true
	}
	log.WithFields(log.Fields{
		"action":  action,
		"user_id": g.selfID,
		"host_id": g.store.Station.Host.ID,
	}).Debug("Ignoring host-only action from non-host")
	return false
}

// IsEcho reports whether an inbound event was published by this client
func (g *Gate) IsEcho(senderID string) bool {
	return senderID != "" && senderID == g.selfID
}
