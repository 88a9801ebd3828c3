// Package render draws the board, the platform descriptors and the comment list as terminal
// tables.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dyluth/tablero/internal/config"
	"github.com/dyluth/tablero/internal/reconcile"
	"github.com/dyluth/tablero/pkg/board"
)

// commentMark is appended to cells that carry a non-empty comment.
const commentMark = "*"

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Align(lipgloss.Center)
	itemStyle   = lipgloss.NewStyle().Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Center)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Catalog colour names to cell backgrounds
	swatchColors = map[string]lipgloss.Color{
		"green":  lipgloss.Color("2"),
		"red":    lipgloss.Color("1"),
		"yellow": lipgloss.Color("3"),
		"blue":   lipgloss.Color("4"),
	}
)

// column is one rendered status column.
type column struct {
	platform string
	stage    board.Stage
}

func columns(catalog *config.CatalogConfig) []column {
	var cols []column
	for _, p := range catalog.Platforms {
		if catalog.Staged {
			for _, s := range board.Stages {
				cols = append(cols, column{platform: p, stage: s})
			}
		} else {
			cols = append(cols, column{platform: p, stage: board.StageActual})
		}
	}
	return cols
}

// Abbrev returns the short cell text of a status: the first three runes of its label,
// upper-cased. Statuses the catalog does not know and StatusNone render as "·".
func Abbrev(catalog *config.CatalogConfig, status board.Status) string {
	opt, ok := catalog.Status(string(status))
	if !ok || status.OrNone() == board.StatusNone {
		return "·"
	}
	r := []rune(strings.ToUpper(opt.Label))
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

// Board renders the status grid: one row per item, one column per platform and stage.
func Board(snap reconcile.Snapshot, catalog *config.CatalogConfig) string {
	cols := columns(catalog)

	headers := make([]string, 0, len(cols)+1)
	headers = append(headers, "EQUIPO")
	for _, c := range cols {
		if catalog.Staged {
			headers = append(headers, c.platform+"\n"+string(c.stage))
		} else {
			headers = append(headers, c.platform)
		}
	}

	// Kept alongside the rows so StyleFunc can colour by status
	statuses := make([][]board.Status, len(catalog.Items))
	rows := make([][]string, len(catalog.Items))
	for i, item := range catalog.Items {
		statuses[i] = make([]board.Status, len(cols))
		row := make([]string, 0, len(cols)+1)
		row = append(row, item)
		for j, c := range cols {
			status := snap.Status[item][c.platform].Get(c.stage)
			statuses[i][j] = status

			text := Abbrev(catalog, status)
			if comment, _ := snap.Comments[item][c.platform].Get(c.stage); comment != "" {
				text += commentMark
			}
			row = append(row, text)
		}
		rows[i] = row
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return itemStyle
			}
			return statusStyle(catalog, statuses[row][col-1])
		})

	return t.String()
}

func statusStyle(catalog *config.CatalogConfig, status board.Status) lipgloss.Style {
	opt, ok := catalog.Status(string(status))
	if !ok {
		return cellStyle.Foreground(lipgloss.Color("241"))
	}
	bg, ok := swatchColors[opt.Color]
	if !ok {
		return cellStyle.Foreground(lipgloss.Color("241"))
	}
	return cellStyle.Background(bg).Foreground(lipgloss.Color("0"))
}

// Meta renders the free-text descriptors of every platform.
func Meta(snap reconcile.Snapshot, catalog *config.CatalogConfig) string {
	rows := make([][]string, 0, len(catalog.Platforms))
	for _, p := range catalog.Platforms {
		m := snap.Meta[p]
		rows = append(rows, []string{p, m.Actual, m.EtapaActual, m.Futuro, m.EtapaSiguiente})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("PLATAFORMA", "POZO ACTUAL", "ETAPA", "POZO FUTURO", "ETAPA").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return itemStyle
		})

	return t.String()
}

// Comments lists every non-empty comment, ordered by item and platform as in the catalog.
// Comments on cells outside the catalog follow, sorted.
func Comments(snap reconcile.Snapshot, catalog *config.CatalogConfig) string {
	var lines []string
	seen := make(map[board.CellKey]bool)

	add := func(item, platform string, stage board.Stage) {
		key := board.CellKey{Item: item, Platform: platform, Stage: stage}
		if seen[key] {
			return
		}
		seen[key] = true
		if text, _ := snap.Comments[item][platform].Get(stage); text != "" {
			lines = append(lines, fmt.Sprintf("%s %s", mutedStyle.Render(key.String()+":"), text))
		}
	}

	for _, item := range catalog.Items {
		for _, c := range columns(catalog) {
			add(item, c.platform, c.stage)
		}
	}

	var extra []board.CellKey
	for item, row := range snap.Comments {
		for platform := range row {
			for _, stage := range board.Stages {
				key := board.CellKey{Item: item, Platform: platform, Stage: stage}
				if !seen[key] {
					extra = append(extra, key)
				}
			}
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].String() < extra[j].String() })
	for _, k := range extra {
		add(k.Item, k.Platform, k.Stage)
	}

	if len(lines) == 0 {
		return mutedStyle.Render("(no comments)")
	}
	return strings.Join(lines, "\n")
}
