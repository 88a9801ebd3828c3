package commands

import (
	"github.com/dyluth/tablero/internal/printer"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer.Printf("tablero %s\n", versionString())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
