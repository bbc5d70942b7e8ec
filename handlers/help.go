package handlers

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"Tandem/commands"
)

// Help writes the command menu, or the details of one command
func Help(out io.Writer, prefix string, cmds *commands.Commands, args []string) {
	if len(args) > 0 {
		com, ok := cmds.Lookup(strings.TrimPrefix(strings.ToLower(args[0]), prefix))
		if !ok {
			fmt.Fprintln(out, "No command called "+args[0])
			return
		}
		fmt.Fprintf(out, "%s%s %s\n  %s\n", prefix, com.Name, com.Usage, com.Description)
		if com.HostOnly {
			fmt.Fprintln(out, "  Host only.")
		}
		return
	}

	fmt.Fprintln(out, "Tandem Help")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, com := range cmds.List() {
		host := ""
		if com.HostOnly {
			host = "👑"
		}
		fmt.Fprintf(w, "  %s%s %s\t%s\t%s\n", prefix, com.Name, com.Usage, host, com.Description)
	}
	w.Flush()
	fmt.Fprintln(out, "Anything not starting with "+prefix+" is sent as chat.")
}
