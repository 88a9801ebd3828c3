package commands

import (
	"context"

	"github.com/dyluth/tablero/internal/printer"
	"github.com/dyluth/tablero/internal/render"
	"github.com/dyluth/tablero/internal/subscriber"
	"github.com/spf13/cobra"
)

var (
	showOffline  bool
	showMeta     bool
	showComments bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the board",
	Long: `Print the status grid of the workspace.

The shared store is read first and merged into the local cache, so the output
is current. With --offline only the local cache is used.

Cells with a comment are marked with '*'; use --comments to list them.`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showOffline, "offline", false, "Use the local cache only")
	showCmd.Flags().BoolVar(&showMeta, "platforms", false, "Also print the platform wells and stages")
	showCmd.Flags().BoolVar(&showComments, "comments", false, "Also list every comment")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, cfg, sessionOptions{offline: showOffline})
	if err != nil {
		return err
	}
	defer sess.Close()

	if !showOffline {
		replayer := subscriber.New(sess.client, sess.engine, subscriber.Options{Logger: sess.logger})
		if err := replayer.Replay(ctx); err != nil {
			return printer.Error("failed to read the shared store", err.Error(), []string{"Retry, or use --offline to print the cached board"})
		}
	}

	snap := sess.engine.Snapshot()
	printer.Println(render.Board(snap, cfg.Catalog))
	if showMeta {
		printer.Println(render.Meta(snap, cfg.Catalog))
	}
	if showComments {
		printer.Println(render.Comments(snap, cfg.Catalog))
	}
	return nil
}
