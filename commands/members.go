package commands

import (
	"context"
	"io"
	"strings"

	"Tandem/station"
)

func registerMembers(c *Commands) {
	c.Add(&Command{Name: "who", Description: "List the people in the station."}, who)
	c.Add(&Command{Name: "kick", Usage: "<user>", Description: "Remove someone from the station.", HostOnly: true}, kick)
	c.Add(&Command{Name: "ban", Usage: "<user>", Description: "Remove someone and keep them out.", HostOnly: true}, ban)
	c.Add(&Command{Name: "unban", Usage: "<user>", Description: "Let a banned user back in.", HostOnly: true}, unban)
	c.Add(&Command{Name: "transfer", Usage: "<user> confirm", Description: "Hand host over to someone else.", HostOnly: true}, transfer)
	c.Add(&Command{Name: "title", Usage: "<text>", Description: "Rename the station.", HostOnly: true}, setTitle)
	c.Add(&Command{Name: "close", Description: "End the station for everyone.", HostOnly: true}, closeStation)
	c.Add(&Command{Name: "leave", Description: "Leave the station."}, leave)
}

func who(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	v, err := st.View()
	if err != nil {
		return failed(err)
	}
	reply(out, "📻 %s (%d/%d)", v.Station.Title, len(v.Station.Participants), v.Station.MaxParticipants)
	for _, u := range v.Station.Participants {
		marker := "  "
		if u.ID == v.Station.Host.ID {
			marker = "👑"
		}
		reply(out, "%s %s (%s)", marker, u.Nickname, u.ID)
	}
	if len(v.Station.Banned) > 0 {
		names := []string{}
		for _, u := range v.Station.Banned {
			names = append(names, u.Nickname)
		}
		reply(out, "🚫 Banned: %s", strings.Join(names, ", "))
	}
	return nil
}

// target resolves the user argument of a membership command
func target(st Station, token string) (station.UserRef, *commandError) {
	v, err := st.View()
	if err != nil {
		return station.UserRef{}, failed(err)
	}
	u, ok := findUser(v, token)
	if !ok {
		return station.UserRef{}, &commandError{nil, "No user called " + token}
	}
	return u, nil
}

func kick(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) != 1 {
		return usage("kick", "<user>")
	}
	u, cErr := target(st, args[0])
	if cErr != nil {
		return cErr
	}
	if err := st.Kick(ctx, u.ID); err != nil {
		return failed(err)
	}
	reply(out, "👢 Kicked %s", u.Nickname)
	return nil
}

func ban(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) != 1 {
		return usage("ban", "<user>")
	}
	u, cErr := target(st, args[0])
	if cErr != nil {
		return cErr
	}
	if err := st.Ban(ctx, u.ID); err != nil {
		return failed(err)
	}
	reply(out, "🚫 Banned %s", u.Nickname)
	return nil
}

func unban(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) != 1 {
		return usage("unban", "<user>")
	}
	u, cErr := target(st, args[0])
	if cErr != nil {
		return cErr
	}
	if err := st.Unban(ctx, u.ID); err != nil {
		return failed(err)
	}
	reply(out, "✅ Unbanned %s", u.Nickname)
	return nil
}

func transfer(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if len(args) < 1 || len(args) > 2 {
		return usage("transfer", "<user> confirm")
	}
	u, cErr := target(st, args[0])
	if cErr != nil {
		return cErr
	}
	confirmed := len(args) == 2 && args[1] == "confirm"
	if err := st.TransferHost(ctx, u.ID, confirmed); err != nil {
		return failed(err)
	}
	reply(out, "👑 %s is now the host", u.Nickname)
	return nil
}

func setTitle(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		return usage("title", "<text>")
	}
	if err := st.SetTitle(ctx, title); err != nil {
		return failed(err)
	}
	reply(out, "📝 Station renamed")
	return nil
}

func closeStation(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if err := st.Close(ctx); err != nil {
		return failed(err)
	}
	reply(out, "Station closed")
	return nil
}

func leave(ctx context.Context, st Station, args []string, out io.Writer) *commandError {
	if err := st.Leave(ctx); err != nil {
		return failed(err)
	}
	reply(out, "👋 Left the station")
	return nil
}
