package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/tablero/internal/filter"
	"github.com/dyluth/tablero/internal/printer"
	"github.com/dyluth/tablero/internal/subscriber"
	"github.com/dyluth/tablero/internal/timespec"
	"github.com/dyluth/tablero/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchSnapshot     bool
	watchSince        string
	watchUntil        string
	watchPlatform     string
	watchItem         string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream changes of the workspace",
	Long: `Print every change written to the workspace as it happens.

Filters (combined with AND) apply to snapshot and live events alike:
  --since/--until  Server time window: a duration ago ("2h") or RFC3339
  --platform       Glob over platform names ("RIG-*")
  --item           Glob over item names; excludes platform field events

Output Formats:
  default - One human-readable line per change
  json    - Line-delimited JSON for programmatic processing

Examples:
  tablero watch
  tablero watch --snapshot --output=json > board.jsonl
  tablero watch --snapshot --since 24h --platform "RIG-*"`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().BoolVar(&watchSnapshot, "snapshot", false, "Print every stored document before live changes")
	watchCmd.Flags().StringVar(&watchSince, "since", "", "Only events written after this time")
	watchCmd.Flags().StringVar(&watchUntil, "until", "", "Only events written before this time")
	watchCmd.Flags().StringVar(&watchPlatform, "platform", "", "Only events of matching platforms")
	watchCmd.Flags().StringVar(&watchItem, "item", "", "Only cell events of matching items")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, json"})
	}

	window, err := timespec.ParseRange(watchSince, watchUntil, time.Now())
	if err != nil {
		return printer.Error("invalid time filter", err.Error(), nil)
	}
	criteria := &filter.Criteria{Window: window, PlatformGlob: watchPlatform, ItemGlob: watchItem}
	if err := criteria.Validate(); err != nil {
		return printer.Error("invalid filter pattern", err.Error(), []string{"Patterns use shell glob syntax: * ? [a-z]"})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	sink := watch.NewSink(os.Stdout, format, cfg.Catalog).WithFilter(criteria)
	if criteria.HasFilters() {
		logger.Debug("Filtering events", "since_ms", window.SinceMs, "until_ms", window.UntilMs, "platform", watchPlatform, "item", watchItem)
	}
	sub := subscriber.New(client, sink, subscriber.Options{
		Logger:       logger,
		SkipSnapshot: !watchSnapshot,
	})

	if err := sub.Run(ctx); err != nil {
		return printer.Error("watch stopped", err.Error(), []string{"Check the shared store and run 'tablero watch' again"})
	}
	return nil
}
