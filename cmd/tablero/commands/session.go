package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dyluth/tablero/internal/cache"
	"github.com/dyluth/tablero/internal/config"
	"github.com/dyluth/tablero/internal/logging"
	"github.com/dyluth/tablero/internal/metrics"
	"github.com/dyluth/tablero/internal/printer"
	"github.com/dyluth/tablero/internal/reconcile"
	"github.com/dyluth/tablero/pkg/board"
	"github.com/redis/go-redis/v9"
)

// errOffline is returned for pushes attempted by an offline session.
var errOffline = errors.New("offline: no shared store")

// loadConfig reads the config file (or defaults) and applies the global flags.
func loadConfig() (*config.TableroConfig, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{"Fix the file, or regenerate it:\n  tablero init --force"},
		)
	}

	if workspaceFlag != "" {
		cfg.Workspace = workspaceFlag
	}
	if redisURLFlag != "" {
		cfg.Store.RedisURL = redisURLFlag
	}
	return cfg, nil
}

func newLogger(cfg *config.TableroConfig) (*slog.Logger, error) {
	logger, err := logging.New(cfg.Logging.Format, cfg.Logging.Level, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// connect opens the shared store client and checks that it answers.
func connect(ctx context.Context, cfg *config.TableroConfig) (*board.Client, error) {
	opts, err := redis.ParseURL(cfg.Store.RedisURL)
	if err != nil {
		return nil, printer.Error(
			"invalid Redis URL",
			fmt.Sprintf("Cannot parse %q: %v", cfg.Store.RedisURL, err),
			[]string{"Use the form redis://host:port/db"},
		)
	}

	client, err := board.NewClient(opts, cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to create store client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to the shared store at %s", cfg.Store.RedisURL),
			map[string]string{"Workspace": cfg.Workspace, "Error": err.Error()},
			[]string{
				"Start a local store:\n  tablero store up",
				"Point --redis-url, " + config.EnvRedisURL + " or store.redis_url at a reachable Redis",
			},
		)
	}

	return client, nil
}

// session is an engine over the local cache, optionally connected to the shared store.
type session struct {
	cfg     *config.TableroConfig
	logger  *slog.Logger
	client  *board.Client // nil when offline
	backend cache.Backend
	engine  *reconcile.Engine
}

type sessionOptions struct {
	offline bool
	view    reconcile.View
	metrics *metrics.Metrics
}

func openSession(ctx context.Context, cfg *config.TableroConfig, opts sessionOptions) (*session, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}

	var store reconcile.Store = offlineStore{}
	if !opts.offline {
		if s.client, err = connect(ctx, cfg); err != nil {
			return nil, err
		}
		store = s.client
	}

	s.backend, err = cache.Open(cfg.Cache.Backend, cfg.Cache.Path, logger)
	if err != nil {
		s.Close()
		return nil, printer.ErrorWithContext(
			"cannot open local cache",
			err.Error(),
			map[string]string{"Backend": cfg.Cache.Backend, "Path": cfg.Cache.Path},
			[]string{
				"If 'tablero serve' is running here, make the change from its console instead",
				"Or switch cache.backend to 'file' in tablero.yml",
			},
		)
	}

	// Pushes outlive the command context so a final flush still reaches the store
	s.engine, err = reconcile.New(context.Background(), reconcile.Options{
		Workspace:    cfg.Workspace,
		Store:        store,
		Cache:        cache.NewStore(s.backend, cfg.Workspace),
		View:         opts.view,
		Logger:       logger,
		Metrics:      opts.metrics,
		MetaDebounce: cfg.Sync.MetaDebounce.Std(),
		PushTimeout:  cfg.Store.PushTimeout.Std(),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	return s, nil
}

// Close flushes pending pushes and releases the cache and the store connection.
func (s *session) Close() {
	if s.engine != nil {
		s.engine.Close()
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Warn("Failed to close cache", "error", err)
		}
	}
	if s.client != nil {
		s.client.Close()
	}
}

// offlineStore rejects every push.
type offlineStore struct{}

func (offlineStore) MergeCell(context.Context, *board.CellDocument) error { return errOffline }
func (offlineStore) MergeMeta(context.Context, *board.MetaDocument) error { return errOffline }

// resolveCell maps user input to catalog spellings and a stage valid for the board.
func resolveCell(catalog *config.CatalogConfig, item, platform, stage string) (board.CellKey, error) {
	i, ok := catalog.ResolveItem(item)
	if !ok {
		return board.CellKey{}, printer.Error(
			"unknown item",
			fmt.Sprintf("%q is not an item of this board.", item),
			[]string{"Quote names with spaces, e.g. \"MOTOR DE FONDO / RSS\"; 'tablero show' lists them"},
		)
	}
	p, ok := catalog.ResolvePlatform(platform)
	if !ok {
		return board.CellKey{}, printer.Error(
			"unknown platform",
			fmt.Sprintf("%q is not a platform of this board.", platform),
			[]string{"Check catalog.platforms in tablero.yml"},
		)
	}

	st := board.Stage(stage)
	if err := st.Validate(); err != nil {
		return board.CellKey{}, printer.Error("invalid stage", err.Error(), []string{"Use 'actual' or 'siguiente'"})
	}
	st = st.Normalize()
	if !catalog.Staged && st != board.StageActual {
		return board.CellKey{}, printer.Error("invalid stage", "This board has a single stage per platform.", nil)
	}

	return board.CellKey{Item: i, Platform: p, Stage: st}, nil
}
