package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dyluth/tablero/internal/config"
	"github.com/dyluth/tablero/internal/logging"
	"github.com/dyluth/tablero/internal/reconcile"
	"github.com/dyluth/tablero/internal/render"
	"github.com/dyluth/tablero/internal/writer"
	"github.com/dyluth/tablero/pkg/board"
	"github.com/google/shlex"
)

// ErrQuit is returned by Run when the user asked to end the session.
var ErrQuit = errors.New("quit")

// Editor is the part of the engine the console drives.
type Editor interface {
	Reader
	SetLocalStatus(item, platform string, stage board.Stage, value board.Status) (*writer.Task, error)
	SetLocalComment(item, platform string, stage board.Stage, text string) (*writer.Task, error)
	SetLocalMeta(platform string, field board.MetaField, value string) (*writer.Task, error)
	Snapshot() reconcile.Snapshot
	Reset()
	PendingPushes() int
}

const helpText = `Commands:
  set ITEM PLATFORM [STAGE] STATUS     set a cell status (key or label)
  comment ITEM PLATFORM [STAGE] TEXT   set a cell comment (empty TEXT clears it)
  meta PLATFORM FIELD VALUE            set a platform field (actual, futuro, etapaActual, etapaSiguiente)
  edit PLATFORM FIELD                  move the cursor to a platform field
  show | platforms | comments          print the board, the platform fields or the comments
  pending                              number of debounced pushes not yet sent
  reset                                clear the local board
  help | quit
Tab opens the platform fields: up/down move, enter saves, esc reverts.
Quote names that contain spaces: set "MOTOR DE FONDO / RSS" NJORD siguiente verde`

// Console runs the interactive program of a live session.
type Console struct {
	engine  Editor
	view    *View
	catalog *config.CatalogConfig
	logger  *slog.Logger
	opts    []tea.ProgramOption

	// Model returned by the last Run
	final Model
}

// New creates a console. opts are passed to the bubbletea program, e.g. tea.WithOutput.
func New(engine Editor, view *View, catalog *config.CatalogConfig, logger *slog.Logger, opts ...tea.ProgramOption) *Console {
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Console{
		engine:  engine,
		view:    view,
		catalog: catalog,
		logger:  logger.With("component", "console"),
		opts:    opts,
	}
}

// Run shows the console until ctx is done or the user quits, in which case it returns ErrQuit.
// Engine refreshes reach the program through the view while Run is active.
func (c *Console) Run(ctx context.Context) error {
	m := NewModel(c.engine, c.view, c.catalog)
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, c.opts...)...)

	c.view.Attach(p)
	defer c.view.Attach(nil)

	c.logger.Debug("Console started", "fields", len(m.fields))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		c.final = fm
	}
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("console: %w", err)
	}
	if c.final.quitting {
		return ErrQuit
	}
	return nil
}

// action is an engine call made off the event loop. It returns the text to print.
type action func() (string, error)

// commands turns command lines into engine actions.
type commands struct {
	engine  Editor
	catalog *config.CatalogConfig
}

// parse validates a command and returns the engine call it stands for.
func (c commands) parse(verb string, args []string) (action, error) {
	switch verb {
	case "set":
		return c.set(args)
	case "comment":
		return c.comment(args)
	case "meta":
		return c.meta(args)
	case "show":
		return func() (string, error) { return render.Board(c.engine.Snapshot(), c.catalog), nil }, nil
	case "platforms":
		return func() (string, error) { return render.Meta(c.engine.Snapshot(), c.catalog), nil }, nil
	case "comments":
		return func() (string, error) { return render.Comments(c.engine.Snapshot(), c.catalog), nil }, nil
	case "pending":
		return func() (string, error) { return fmt.Sprintf("%d pending", c.engine.PendingPushes()), nil }, nil
	case "reset":
		return func() (string, error) {
			c.engine.Reset()
			return "local board cleared", nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown command %q (try 'help')", verb)
	}
}

func (c commands) set(args []string) (action, error) {
	if len(args) < 3 || len(args) > 4 {
		return nil, fmt.Errorf("usage: set ITEM PLATFORM [STAGE] STATUS")
	}
	item, platform, err := c.cell(args[0], args[1])
	if err != nil {
		return nil, err
	}
	stage := board.StageActual
	if len(args) == 4 {
		if stage, err = c.stage(args[2]); err != nil {
			return nil, err
		}
	}
	opt, ok := c.catalog.ResolveStatus(args[len(args)-1])
	if !ok {
		return nil, fmt.Errorf("unknown status %q", args[len(args)-1])
	}

	return func() (string, error) {
		_, err := c.engine.SetLocalStatus(item, platform, stage, board.Status(opt.Key))
		return "", err
	}, nil
}

func (c commands) comment(args []string) (action, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: comment ITEM PLATFORM [STAGE] TEXT")
	}
	item, platform, err := c.cell(args[0], args[1])
	if err != nil {
		return nil, err
	}
	rest := args[2:]
	stage := board.StageActual
	if len(rest) > 0 {
		if s := board.Stage(strings.ToLower(rest[0])); s.Validate() == nil && s != "" {
			stage, rest = s, rest[1:]
		}
	}
	text := strings.Join(rest, " ")

	return func() (string, error) {
		_, err := c.engine.SetLocalComment(item, platform, stage, text)
		return "", err
	}, nil
}

func (c commands) meta(args []string) (action, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: meta PLATFORM FIELD VALUE")
	}
	key, err := c.field(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return c.setMeta(key, strings.Join(args[2:], " ")), nil
}

func (c commands) setMeta(key fieldKey, value string) action {
	return func() (string, error) {
		if _, err := c.engine.SetLocalMeta(key.platform, key.field, value); err != nil {
			return "", err
		}
		return fmt.Sprintf("✎ %s %s = %q", key.platform, key.field, value), nil
	}
}

func (c commands) cell(item, platform string) (string, string, error) {
	i, ok := c.catalog.ResolveItem(item)
	if !ok {
		return "", "", fmt.Errorf("unknown item %q", item)
	}
	p, ok := c.catalog.ResolvePlatform(platform)
	if !ok {
		return "", "", fmt.Errorf("unknown platform %q", platform)
	}
	return i, p, nil
}

func (c commands) stage(s string) (board.Stage, error) {
	stage := board.Stage(strings.ToLower(s))
	if err := stage.Validate(); err != nil {
		return "", err
	}
	if !c.catalog.Staged && stage.Normalize() != board.StageActual {
		return "", fmt.Errorf("board has no %s stage", stage)
	}
	return stage.Normalize(), nil
}

func (c commands) field(platform, field string) (fieldKey, error) {
	p, ok := c.catalog.ResolvePlatform(platform)
	if !ok {
		return fieldKey{}, fmt.Errorf("unknown platform %q", platform)
	}
	f, err := board.ParseMetaField(field)
	if err != nil {
		return fieldKey{}, err
	}
	return fieldKey{p, f}, nil
}

// splitArgs splits a command line into words, honouring quotes and backslash escapes.
func splitArgs(line string) ([]string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("cannot parse command: %w", err)
	}
	return args, nil
}
