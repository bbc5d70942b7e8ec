package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"

	"Tandem/commands"
)

// Parse splits a prefixed console line into a command name and arguments.
// ok is false when the line does not start with the prefix.
func Parse(line, prefix string) (name string, args []string, ok bool) {
	line = strings.TrimSpace(line)
	if len(line) == 0 || len(prefix) == 0 || !strings.HasPrefix(line, prefix) {
		return "", nil, false
	}

	fields := strings.Fields(line[len(prefix):])
	if len(fields) == 0 {
		return "", nil, true
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// MessageHandler handles one line of console input. Prefixed lines are
// commands, anything else is sent as chat.
func MessageHandler(ctx context.Context, line, prefix string, cmds *commands.Commands, st commands.Station, out io.Writer) {
	if strings.TrimSpace(line) == "" {
		return
	}

	name, args, ok := Parse(line, prefix)
	if !ok {
		if err := st.SendChat(line); err != nil {
			fmt.Fprintln(out, "❌ "+err.Error())
		}
		return
	}

	switch name {
	case "":
		fmt.Fprintln(out, "type `"+prefix+"help` to open help menu.")
	case "help":
		Help(out, prefix, cmds, args)
	default:
		if !cmds.Call(ctx, st, name, args, out) {
			fmt.Fprintln(out, "Unknown command, type `"+prefix+"help` for a list.")
		}
	}
}
