package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/tablero/internal/printer"
	"github.com/dyluth/tablero/internal/watch"
	"github.com/dyluth/tablero/internal/writer"
	"github.com/dyluth/tablero/pkg/board"
	"github.com/spf13/cobra"
)

var (
	editStage   string
	editConfirm time.Duration
)

var setCmd = &cobra.Command{
	Use:   "set ITEM PLATFORM STATUS",
	Short: "Set the status of a cell",
	Long: `Set the status of one cell. STATUS is a status key or label from the catalog
(green/Verde, red/Rojo, yellow/Amarillo, blue/Azul, none).

Examples:
  tablero set CABEZAL NJORD green
  tablero set "MOTOR DE FONDO / RSS" GRID rojo --stage siguiente`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

var commentCmd = &cobra.Command{
	Use:   "comment ITEM PLATFORM [TEXT...]",
	Short: "Set the comment of a cell",
	Long: `Set the comment of one cell. Omitting TEXT saves an empty comment.

Example:
  tablero comment CEDAZOS PAE llega el lunes --stage siguiente`,
	Args: cobra.MinimumNArgs(2),
	RunE: runComment,
}

var metaCmd = &cobra.Command{
	Use:   "meta PLATFORM FIELD [VALUE...]",
	Short: "Set a well or stage field of a platform",
	Long: `Set one of the free-text fields of a platform:
  actual          current well
  futuro          next well
  etapaActual     hole section of the current well
  etapaSiguiente  hole section of the next well

Example:
  tablero meta NJORD etapaActual 12 1/4`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMeta,
}

func init() {
	for _, c := range []*cobra.Command{setCmd, commentCmd} {
		c.Flags().StringVar(&editStage, "stage", string(board.StageActual), "Stage of the cell (actual or siguiente)")
	}
	setCmd.Flags().DurationVar(&editConfirm, "confirm", 0, "Wait up to this long for the store to return the new status")
	rootCmd.AddCommand(setCmd, commentCmd, metaCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	key, err := resolveCell(cfg.Catalog, args[0], args[1], editStage)
	if err != nil {
		return err
	}
	opt, ok := cfg.Catalog.ResolveStatus(args[2])
	if !ok {
		return printer.Error(
			"unknown status",
			fmt.Sprintf("%q is neither a status key nor a label.", args[2]),
			[]string{"Check catalog.statuses in tablero.yml"},
		)
	}

	sess, err := openSession(ctx, cfg, sessionOptions{})
	if err != nil {
		return err
	}
	defer sess.Close()

	task, err := sess.engine.SetLocalStatus(key.Item, key.Platform, key.Stage, board.Status(opt.Key))
	if err := pushed(task, err, key.String()); err != nil {
		return err
	}

	if editConfirm > 0 {
		_, err := watch.PollForCell(ctx, sess.client, key, func(d *board.CellDocument) bool {
			return d.Status != nil && board.Status(*d.Status).OrNone() == board.Status(opt.Key)
		}, editConfirm)
		if err != nil {
			return printer.Error("not confirmed", err.Error(), nil)
		}
	}

	printer.Success("%s → %s\n", key, printer.Swatch(opt.Color, " "+opt.Label+" "))
	return nil
}

func runComment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	key, err := resolveCell(cfg.Catalog, args[0], args[1], editStage)
	if err != nil {
		return err
	}

	sess, err := openSession(context.Background(), cfg, sessionOptions{})
	if err != nil {
		return err
	}
	defer sess.Close()

	text := strings.Join(args[2:], " ")
	task, err := sess.engine.SetLocalComment(key.Item, key.Platform, key.Stage, text)
	if err := pushed(task, err, key.String()); err != nil {
		return err
	}

	printer.Success("%s 💬 %q\n", key, sess.engine.Comment(key.Item, key.Platform, key.Stage))
	return nil
}

func runMeta(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	platform, ok := cfg.Catalog.ResolvePlatform(args[0])
	if !ok {
		return printer.Error("unknown platform", fmt.Sprintf("%q is not a platform of this board.", args[0]), nil)
	}
	field, err := board.ParseMetaField(args[1])
	if err != nil {
		return printer.Error("unknown field", err.Error(), []string{"Use actual, futuro, etapaActual or etapaSiguiente"})
	}

	sess, err := openSession(context.Background(), cfg, sessionOptions{})
	if err != nil {
		return err
	}
	defer sess.Close()

	value := strings.Join(args[2:], " ")
	task, err := sess.engine.SetLocalMeta(platform, field, value)
	if err == nil {
		// A one-shot command has nothing to coalesce with
		sess.engine.Flush()
	}
	if err := pushed(task, err, platform+" "+string(field)); err != nil {
		return err
	}

	printer.Success("%s %s = %q\n", platform, field, value)
	return nil
}

// pushed waits for a push and turns its failure into a printed error.
// The edit is already in the local cache either way.
func pushed(task *writer.Task, err error, what string) error {
	if err != nil {
		return printer.Error("invalid edit", err.Error(), nil)
	}
	if err := task.Err(); err != nil {
		return printer.ErrorWithContext(
			"push failed",
			fmt.Sprintf("%s was saved locally but did not reach the shared store.", what),
			map[string]string{"Error": err.Error()},
			[]string{"Repeat the edit once the store is reachable; edits are not retried"},
		)
	}
	return nil
}
