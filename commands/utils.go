package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"Tandem/session"
	"Tandem/station"
)

// requireHost refuses commands the local user has no authority for. The
// session would drop them silently, the console says so instead.
func requireHost(st Station) *commandError {
	v, err := st.View()
	if err != nil {
		return failed(err)
	}
	if !v.IsHost {
		return &commandError{nil, "Only the host can do that 🙅"}
	}
	return nil
}

// findUser matches a user by id, or by nickname ignoring case, among
// participants and banned users
func findUser(v session.View, token string) (station.UserRef, bool) {
	groups := [][]station.UserRef{v.Station.Participants, v.Station.Banned}
	for _, users := range groups {
		for _, u := range users {
			if u.ID == token {
				return u, true
			}
		}
	}
	for _, users := range groups {
		for _, u := range users {
			if strings.EqualFold(u.Nickname, token) {
				return u, true
			}
		}
	}
	return station.UserRef{}, false
}

// queueItemID accepts a 1-based queue position or an item id
func queueItemID(v session.View, token string) (string, bool) {
	if n, err := strconv.Atoi(token); err == nil {
		if n < 1 || n > len(v.Queue) {
			return "", false
		}
		return v.Queue[n-1].ID, true
	}
	for _, item := range v.Queue {
		if item.ID == token {
			return item.ID, true
		}
	}
	return "", false
}

func reply(out io.Writer, format string, a ...any) {
	fmt.Fprintf(out, format+"\n", a...)
}
