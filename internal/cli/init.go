// init.go implements the "csvstats init" command that writes a config file.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csvstats/csvstats/internal/config"
	"github.com/csvstats/csvstats/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .csvstats/config.yaml",
	Long: `Create the .csvstats/ directory and a config file with defaults.
Use --api-url and --storage to set the API address and where the
session token is kept.`,
	RunE: runInit,
}

var (
	storageFlag string
	refreshFlag int
	forceFlag   bool
)

func init() {
	initCmd.Flags().StringVar(&storageFlag, "storage", storage.BackendFile, "Session storage backend: file, sqlite or memory")
	initCmd.Flags().IntVar(&refreshFlag, "refresh", 0, "Uploads auto-refresh interval in seconds (0 = off)")
	initCmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing config without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	home, err := config.ResolveHome(homeFlag)
	if err != nil {
		return err
	}

	switch storageFlag {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", storageFlag)
	}

	path := filepath.Join(config.Dir(home), "config.yaml")
	if _, statErr := os.Stat(path); statErr == nil && !forceFlag {
		fmt.Fprintf(out, "Warning: %s already exists.\n", path)
		fmt.Fprint(out, "Overwrite? [y/N]: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if apiURLFlag != "" {
		cfg.API.BaseURL = strings.TrimRight(apiURLFlag, "/")
	}
	cfg.Storage.Backend = storageFlag
	cfg.Uploads.RefreshInterval = refreshFlag

	if err := config.WriteConfig(home, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintf(out, "  API:     %s\n", cfg.API.BaseURL)
	fmt.Fprintf(out, "  Storage: %s\n", cfg.Storage.Backend)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next: csvstats login")
	return nil
}
