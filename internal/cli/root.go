// Package cli defines Cobra command definitions for the csvstats CLI.
// This file contains the root command, global flags, and the TUI launch.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/csvstats/csvstats/internal/tui"
	"github.com/csvstats/csvstats/internal/tui/app"
)

var (
	homeFlag   string
	apiURLFlag string
	verbose    bool
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "csvstats",
	Short: "Terminal client for the CSV upload pipeline",
	Long: `csvstats signs in to the CSV upload pipeline API, uploads CSV files
and tracks their validation status.

Run without a subcommand in a terminal to open the interactive client.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runRoot,
}

func runRoot(cmd *cobra.Command, args []string) error {
	// Without a terminal there is nothing to draw on.
	if !tui.IsTTY() {
		return cmd.Help()
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	// Follow sign-ins and sign-outs made by other csvstats processes.
	if err := e.store.Watch(ctx); err != nil {
		e.logger.Zap().Warn("session watch unavailable", zap.Error(err))
	}

	tuiApp := app.New(e.deps(ctx))
	defer tuiApp.Close()

	return tui.Run(ctx, tuiApp)
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Verbose returns true if --verbose flag is set.
func Verbose() bool {
	return verbose
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "Directory holding .csvstats/ (default $CSVSTATS_HOME or your home directory)")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "API base URL (overrides config and $CSVSTATS_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Also write log events to stderr")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(uploadsCmd)
	rootCmd.AddCommand(logCmd)
}
