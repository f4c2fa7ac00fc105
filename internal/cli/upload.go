// upload.go implements the "csvstats upload" command.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/csvstats/csvstats/internal/ui"
	"github.com/csvstats/csvstats/internal/upload"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload one or more CSV files",
	Long: `Upload CSV files to the pipeline. Files are sent one at a time and
each successful upload prints its tracking number.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

// stdoutIsTerminal is replaced in tests.
var stdoutIsTerminal = func() bool { return ui.IsTerminal(os.Stdout) }

func runUpload(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireSession(); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	display := ui.NewProgressDisplay(cmd.OutOrStdout(), stdoutIsTerminal())
	for _, path := range args {
		display.AddFile(filepath.Base(path))
	}
	display.Start()

	// One upload at a time, like the uploads page.
	for i, path := range args {
		f, err := upload.OpenFile(path)
		if err != nil {
			display.Fail(i, upload.FailureMessage(err))
			continue
		}

		display.Begin(i)
		stream := e.pipeline.UploadFile(ctx, f)
		for ev := range stream.Events() {
			switch ev.Kind {
			case upload.KindProgress:
				display.Progress(i, ev.Progress)
			case upload.KindSuccess:
				display.Done(i, ev.Upload.ID)
			}
		}
		if err := stream.Err(); err != nil {
			display.Fail(i, upload.FailureMessage(err))
		}
	}

	if failed := display.Finish(); failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(args))
	}
	return nil
}
