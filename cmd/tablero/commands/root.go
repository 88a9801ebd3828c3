package commands

import (
	"fmt"

	"github.com/dyluth/tablero/internal/config"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath    string
	workspaceFlag string
	redisURLFlag  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tablero",
	Short: "tablero - shared equipment status board for drilling platforms",
	Long: `tablero keeps an equipment-by-platform status board in sync between everyone
working on the same workspace.

Every edit is applied locally first, cached on disk, and pushed to a shared
Redis store; edits made elsewhere stream back in and are merged field by field.`,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Called once by main.main().
func Execute() error {
	// Errors are printed by the printer package; cobra must not print them again
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = versionString()
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFilename, "Path to tablero.yml (defaults apply if it does not exist)")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace to use (overrides config and "+config.EnvWorkspace+")")
	rootCmd.PersistentFlags().StringVar(&redisURLFlag, "redis-url", "", "Shared store URL (overrides config and "+config.EnvRedisURL+")")
}
