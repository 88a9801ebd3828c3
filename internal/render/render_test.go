package render

import (
	"strings"
	"testing"

	"github.com/dyluth/tablero/internal/config"
	"github.com/dyluth/tablero/internal/reconcile"
	"github.com/dyluth/tablero/pkg/board"
	"github.com/stretchr/testify/assert"
)

func smallCatalog(staged bool) *config.CatalogConfig {
	return &config.CatalogConfig{
		Staged:    staged,
		Platforms: []string{"NJORD", "GRID"},
		Items:     []string{"CABEZAL", "MPD"},
		Statuses:  config.DefaultStatuses(),
	}
}

func sampleSnapshot() reconcile.Snapshot {
	return reconcile.Snapshot{
		Status: board.StatusMatrix{
			"CABEZAL": {
				"NJORD": {Actual: board.StatusGreen, Siguiente: board.StatusRed},
			},
			"MPD": {
				"GRID": {Actual: "purple"},
			},
		},
		Comments: board.CommentMatrix{
			"CABEZAL": {
				"NJORD": board.StagedComment{}.With(board.StageSiguiente, "llega el lunes"),
			},
			"OTRO": {
				"PAE": board.StagedComment{}.With(board.StageActual, "fuera del catálogo"),
			},
		},
		Meta: board.MetaMatrix{
			"NJORD": {Actual: "POZO-12", EtapaActual: "12 1/4"},
		},
	}
}

func TestAbbrev(t *testing.T) {
	catalog := config.DefaultCatalog()

	assert.Equal(t, "VER", Abbrev(catalog, board.StatusGreen))
	assert.Equal(t, "ROJ", Abbrev(catalog, board.StatusRed))
	assert.Equal(t, "AMA", Abbrev(catalog, board.StatusYellow))
	assert.Equal(t, "AZU", Abbrev(catalog, board.StatusBlue))
	assert.Equal(t, "·", Abbrev(catalog, board.StatusNone))
	assert.Equal(t, "·", Abbrev(catalog, ""))
	assert.Equal(t, "·", Abbrev(catalog, "purple"), "unknown statuses render as none")

	custom := &config.CatalogConfig{Statuses: []config.StatusOption{{Key: "ok", Label: "ok"}}}
	assert.Equal(t, "OK", Abbrev(custom, "ok"))
}

func TestBoard_Staged(t *testing.T) {
	out := Board(sampleSnapshot(), smallCatalog(true))

	assert.Contains(t, out, "EQUIPO")
	assert.Contains(t, out, "NJORD")
	assert.Contains(t, out, "siguiente")

	var cabezal, mpd string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "CABEZAL"):
			cabezal = line
		case strings.Contains(line, "MPD"):
			mpd = line
		}
	}
	assert.Contains(t, cabezal, "VER")
	assert.Contains(t, cabezal, "ROJ"+commentMark)
	assert.NotContains(t, mpd, "VER")
	assert.Equal(t, 4, strings.Count(mpd, "·"), "all four MPD cells are none")
}

func TestBoard_Unstaged(t *testing.T) {
	out := Board(sampleSnapshot(), smallCatalog(false))

	assert.NotContains(t, out, "siguiente")
	assert.NotContains(t, out, "ROJ", "siguiente column is not shown")
	assert.Contains(t, out, "VER")
}

func TestMeta(t *testing.T) {
	out := Meta(sampleSnapshot(), smallCatalog(true))

	assert.Contains(t, out, "POZO ACTUAL")
	assert.Contains(t, out, "POZO-12")
	assert.Contains(t, out, "12 1/4")
	assert.Contains(t, out, "GRID")
}

func TestComments(t *testing.T) {
	out := Comments(sampleSnapshot(), smallCatalog(true))

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "CABEZAL@NJORD/siguiente:")
	assert.Contains(t, lines[0], "llega el lunes")
	assert.Contains(t, lines[1], "OTRO@PAE/actual:")

	empty := Comments(reconcile.Snapshot{}, smallCatalog(true))
	assert.Contains(t, empty, "(no comments)")
}
