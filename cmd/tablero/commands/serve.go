package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dyluth/tablero/internal/console"
	"github.com/dyluth/tablero/internal/health"
	"github.com/dyluth/tablero/internal/metrics"
	"github.com/dyluth/tablero/internal/printer"
	"github.com/dyluth/tablero/internal/render"
	"github.com/dyluth/tablero/internal/subscriber"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveNoInput    bool
	serveHealthAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a live session of the board",
	Long: `Run a live session: load the local cache, replay the shared store, then
stream changes both ways until interrupted.

Remote changes are printed as they arrive. The console below them takes
commands that edit the board (type 'help'); Tab opens one input per platform
field. With --no-input the session only follows the store.

While running, /healthz and /metrics are served on health.addr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoInput, "no-input", false, "Do not read commands from stdin")
	serveCmd.Flags().StringVar(&serveHealthAddr, "health-addr", "", "Health and metrics address (overrides health.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	view := console.NewView(os.Stdout, cfg.Catalog)

	sess, err := openSession(ctx, cfg, sessionOptions{view: view, metrics: m})
	if err != nil {
		return err
	}
	defer sess.Close()
	view.Bind(sess.engine)

	addr := sess.cfg.Health.Addr
	if serveHealthAddr != "" {
		addr = serveHealthAddr
	}
	if addr != "" {
		hs := health.NewServer(addr, sess.cfg.Workspace, sess.client, reg, sess.logger)
		if err := hs.Start(); err != nil {
			return printer.Error("health server failed", err.Error(), []string{"Pick another address with --health-addr or health.addr"})
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			hs.Shutdown(shutdownCtx)
		}()
	}

	sub := subscriber.New(sess.client, sess.engine, subscriber.Options{Logger: sess.logger})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sub.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-sub.Ready():
			view.Println(render.Board(sess.engine.Snapshot(), sess.cfg.Catalog))
			view.Println(printer.SuccessText("Live on workspace '%s' (type 'help' for commands)", sess.cfg.Workspace))
		case <-gctx.Done():
		}
		return nil
	})
	if !serveNoInput {
		// Signals cancel gctx, which stops the program
		con := console.New(sess.engine, view, sess.cfg.Catalog, sess.logger,
			tea.WithOutput(os.Stdout),
			tea.WithoutSignalHandler())
		g.Go(func() error {
			return con.Run(gctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, console.ErrQuit) {
		err = nil
	}
	if err != nil {
		return printer.Error("session ended", err.Error(), []string{"Check the shared store and run 'tablero serve' again"})
	}

	if n := sess.engine.PendingPushes(); n > 0 {
		printer.Step("Sending %d pending change(s)...\n", n)
	}
	return nil
}
