package tui

import (
	"fmt"
	"io"
)

// fallbackCommands lists the CLI equivalents of each screen.
var fallbackCommands = []struct{ cmd, desc string }{
	{"csvstats login --email <email>", "sign in"},
	{"csvstats upload <file.csv>", "upload a CSV file"},
	{"csvstats uploads", "list your uploads"},
	{"csvstats logout", "sign out"},
}

// runFallback handles non-TTY execution by pointing users at the CLI commands.
func runFallback(w io.Writer) error {
	fmt.Fprintln(w, "Non-TTY environment detected.")
	fmt.Fprintln(w, "Use the subcommands for non-interactive work:")
	for _, c := range fallbackCommands {
		fmt.Fprintf(w, "  %-32s %s\n", c.cmd, c.desc)
	}
	return nil
}
