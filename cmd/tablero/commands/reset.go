package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/tablero/internal/cache"
	"github.com/dyluth/tablero/internal/printer"
	"github.com/spf13/cobra"
)

var (
	resetRemote bool
	resetYes    bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the local board cache",
	Long: `Clear the local cache of the workspace. The next 'show' or 'serve' rebuilds it
from the shared store.

With --remote the workspace is also deleted from the shared store, for
everyone. This requires --yes.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetRemote, "remote", false, "Also delete the workspace from the shared store")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm --remote")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	if resetRemote && !resetYes {
		return printer.Error(
			"confirmation required",
			fmt.Sprintf("--remote deletes workspace '%s' from the shared store for every user.", cfg.Workspace),
			[]string{fmt.Sprintf("Run again with --yes:\n  tablero reset --remote --yes -w %s", cfg.Workspace)},
		)
	}

	backend, err := cache.Open(cfg.Cache.Backend, cfg.Cache.Path, logger)
	if err != nil {
		return printer.Error("cannot open local cache", err.Error(), []string{"Stop 'tablero serve' for this directory and retry"})
	}
	defer backend.Close()

	if err := cache.NewStore(backend, cfg.Workspace).Clear(); err != nil {
		return fmt.Errorf("failed to clear local cache: %w", err)
	}
	printer.Success("Cleared local cache of '%s'\n", cfg.Workspace)

	if !resetRemote {
		return nil
	}

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	removed, err := client.ClearWorkspace(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear shared store: %w", err)
	}
	printer.Success("Deleted %d key(s) of '%s' from the shared store\n", removed, cfg.Workspace)
	return nil
}
