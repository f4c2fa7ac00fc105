// whoami.go implements the "csvstats whoami" command.
package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/csvstats/csvstats/internal/api"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Long: `Show the stored session, when its token expires, and what the server
reports for it along with the number of uploads on the account.`,
	Args: cobra.NoArgs,
	RunE: runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireSession(); err != nil {
		return err
	}

	var (
		me      string
		uploads int
	)
	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.Go(func() error {
		var err error
		me, err = e.client.Me(ctx)
		return err
	})
	g.Go(func() error {
		records, err := e.pipeline.ListUploads(ctx)
		uploads = len(records)
		return err
	})
	if err := g.Wait(); err != nil {
		if api.IsUnauthorized(err) {
			return errors.New("the server rejected the stored session; run: csvstats login")
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Email:   %s\n", e.store.CurrentEmail())
	fmt.Fprintf(out, "Expires: %s\n", formatExpiry(e.store.ExpiresAt()))
	fmt.Fprintf(out, "Server:  %s\n", me)
	fmt.Fprintf(out, "Uploads: %d\n", uploads)
	return nil
}

func formatExpiry(at time.Time, ok bool) string {
	if !ok {
		return "unknown"
	}
	left := time.Until(at).Round(time.Minute)
	if left <= 0 {
		return at.Local().Format(time.RFC3339) + " (expired)"
	}
	return fmt.Sprintf("%s (in %s)", at.Local().Format(time.RFC3339), left)
}
