package commands

import (
	"context"

	dockerpkg "github.com/dyluth/tablero/internal/docker"
	"github.com/dyluth/tablero/internal/printer"
	"github.com/spf13/cobra"
)

var storeImage string

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage a local development store",
	Long: `Run the shared store as a local Redis container, one per workspace.

For a team, point store.redis_url at a Redis everyone can reach instead.`,
}

var storeUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the development store of the workspace",
	Args:  cobra.NoArgs,
	RunE:  runStoreUp,
}

var storeDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove the development store of the workspace",
	Args:  cobra.NoArgs,
	RunE:  runStoreDown,
}

func init() {
	storeUpCmd.Flags().StringVar(&storeImage, "image", dockerpkg.DefaultRedisImage, "Redis image")
	storeCmd.AddCommand(storeUpCmd, storeDownCmd)
	rootCmd.AddCommand(storeCmd)
}

func runStoreUp(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return printer.Error("Docker unavailable", err.Error(), nil)
	}
	defer cli.Close()

	printer.Step("Starting store for '%s'...\n", cfg.Workspace)
	info, err := dockerpkg.StartRedis(ctx, cli, cfg.Workspace, storeImage)
	if err != nil {
		return printer.Error("failed to start store", err.Error(), []string{"Check 'docker ps -a' for a conflicting container"})
	}

	if info.Created {
		printer.Success("Started %s on port %d\n", info.Name, info.Port)
	} else {
		printer.Success("%s already running on port %d\n", info.Name, info.Port)
	}
	printer.Println("\nPoint this directory at it:")
	printer.Printf("  export REDIS_URL=%s\n", info.URL())
	return nil
}

func runStoreDown(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return printer.Error("Docker unavailable", err.Error(), nil)
	}
	defer cli.Close()

	removed, err := dockerpkg.StopRedis(ctx, cli, cfg.Workspace)
	if err != nil {
		return printer.Error("failed to stop store", err.Error(), nil)
	}
	if !removed {
		printer.Warning("No store running for '%s'\n", cfg.Workspace)
		return nil
	}
	printer.Success("Removed %s\n", dockerpkg.RedisContainerName(cfg.Workspace))
	return nil
}
