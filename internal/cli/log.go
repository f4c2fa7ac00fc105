// log.go implements the "csvstats log" command showing recent events.
package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/csvstats/csvstats/internal/config"
	"github.com/csvstats/csvstats/internal/log"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent events",
	Long:  `Show the most recent entries of .csvstats/log.jsonl.`,
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

var limitFlag int

func init() {
	logCmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Number of events to show (0 = all)")
}

func runLog(cmd *cobra.Command, args []string) error {
	home, err := config.ResolveHome(homeFlag)
	if err != nil {
		return err
	}

	events, err := log.ReadFile(log.LogPath(config.Dir(home)))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No events logged yet.")
		return nil
	}
	if limitFlag > 0 && len(events) > limitFlag {
		events = events[len(events)-limitFlag:]
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ev.Time.Local().Format("2006-01-02 15:04:05"), ev.Event, describeEvent(ev))
	}
	return tw.Flush()
}

// describeEvent summarizes the fields set on ev.
func describeEvent(ev log.LogEvent) string {
	var parts []string
	add := func(format string, a ...any) {
		parts = append(parts, fmt.Sprintf(format, a...))
	}

	if ev.Email != "" {
		add("email=%s", ev.Email)
	}
	if ev.Filename != "" {
		add("file=%s", ev.Filename)
	}
	if ev.UploadID != 0 {
		add("id=%d", ev.UploadID)
	}
	if ev.Status != "" {
		add("status=%s", ev.Status)
	}
	if ev.Count != 0 {
		add("count=%d", ev.Count)
	}
	if ev.DurationMs != 0 {
		add("took=%dms", ev.DurationMs)
	}
	if ev.Error != "" {
		add("error=%q", ev.Error)
	}
	return strings.Join(parts, " ")
}
