// uploads.go implements the "csvstats uploads" command and its "show" subcommand.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/csvstats/csvstats/internal/api"
)

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List your uploads and their validation status",
	Long: `List uploads newest first. When the server cannot be reached the last
fetched list is shown instead, with a warning.`,
	Args: cobra.NoArgs,
	RunE: runUploads,
}

var uploadsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one upload",
	Args:  cobra.ExactArgs(1),
	RunE:  runUploadsShow,
}

var jsonFlag bool

func init() {
	uploadsCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of a table")
	uploadsCmd.AddCommand(uploadsShowCmd)
}

func runUploads(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireSession(); err != nil {
		return err
	}

	email := e.store.CurrentEmail()
	records, err := e.pipeline.ListUploads(commandContext(cmd))
	if err != nil {
		if e.cache == nil {
			return err
		}
		cached, savedAt, ok, cacheErr := e.cache.Load(email)
		if cacheErr != nil || !ok {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\nShowing the list cached at %s.\n",
			err, savedAt.Local().Format(time.RFC3339))
		records = cached
	} else if e.cache != nil {
		if err := e.cache.Save(email, records); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: caching history: %v\n", err)
		}
	}

	if jsonFlag {
		return writeJSON(cmd.OutOrStdout(), records)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No uploads yet.")
		return nil
	}
	return writeTable(cmd.OutOrStdout(), records)
}

func runUploadsShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid upload id %q", args[0])
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireSession(); err != nil {
		return err
	}

	record, err := e.pipeline.GetUpload(commandContext(cmd), id)
	if err != nil {
		if msg, ok := api.ServerMessage(err); ok {
			return errors.New(msg)
		}
		return err
	}

	if jsonFlag {
		return writeJSON(cmd.OutOrStdout(), record)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %d\n", record.ID)
	fmt.Fprintf(out, "File:     %s\n", record.Filename)
	fmt.Fprintf(out, "Status:   %s\n", record.Status.Label())
	fmt.Fprintf(out, "Key:      %s\n", record.StorageKey)
	fmt.Fprintf(out, "Created:  %s\n", formatTimestamp(record.CreatedAt))
	fmt.Fprintf(out, "Updated:  %s\n", formatTimestamp(record.UpdatedAt))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, records []api.UploadRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tCREATED\tUPDATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.Filename, r.Status.Label(), formatTimestamp(r.CreatedAt), formatTimestamp(r.UpdatedAt))
	}
	return tw.Flush()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
