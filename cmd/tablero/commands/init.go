package commands

import (
	"fmt"
	"os"

	"github.com/dyluth/tablero/internal/config"
	"github.com/dyluth/tablero/internal/scaffold"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a board in the current directory",
	Long: `Initialize a board in the current directory.

Creates:
  • tablero.yml - board configuration with the default catalog
  • .tablero/   - local cache directory (git-ignored)

Use --force to reinitialize (WARNING: replaces tablero.yml and clears the local cache).`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Force reinitialization (removes existing tablero.yml and .tablero/)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	if !forceInit {
		if err := scaffold.CheckExisting(dir); err != nil {
			return err
		}
	}

	workspace := workspaceFlag
	if workspace == "" {
		workspace = os.Getenv(config.EnvWorkspace)
	}
	params := scaffold.DefaultParams(workspace)
	if redisURLFlag != "" {
		params.RedisURL = redisURLFlag
	}

	if err := scaffold.Initialize(dir, params, forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(params)
	return nil
}
