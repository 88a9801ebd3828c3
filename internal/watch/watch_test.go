package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/tablero/internal/config"
	"github.com/dyluth/tablero/internal/filter"
	"github.com/dyluth/tablero/pkg/board"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatDefault, f)

	f, err = ParseOutputFormat("json")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSON, f)

	_, err = ParseOutputFormat("yaml")
	assert.ErrorContains(t, err, "invalid output format")
}

func TestFormatCell(t *testing.T) {
	noColor(t)
	catalog := config.DefaultCatalog()
	ms := time.Date(2026, 3, 1, 14, 3, 22, 0, time.UTC).UnixMilli()

	tests := []struct {
		name     string
		doc      *board.CellDocument
		expected string
	}{
		{
			name: "status with known label",
			doc: &board.CellDocument{
				Item: "CABEZAL", Platform: "NJORD", Stage: board.StageActual,
				Status:      board.StringPtr("green"),
				UpdatedAtMs: ms,
				Origin:      "1a2b3c4d-0000-4000-8000-000000000000",
			},
			expected: "[14:03:22] CABEZAL@NJORD/actual →  Verde   (by 1a2b3c4d)",
		},
		{
			name: "unknown status shown raw",
			doc: &board.CellDocument{
				Item: "MPD", Platform: "GRID", Stage: board.StageSiguiente,
				Status: board.StringPtr("purple"),
			},
			expected: "[--:--:--] MPD@GRID/siguiente →  purple ",
		},
		{
			name: "empty status reads as none",
			doc: &board.CellDocument{
				Item: "MPD", Platform: "GRID",
				Status: board.StringPtr(""),
			},
			expected: "[--:--:--] MPD@GRID/actual →  Sin estatus ",
		},
		{
			name: "comment only",
			doc: &board.CellDocument{
				Item: "COPLES", Platform: "PAE",
				Comment: board.StringPtr("en camino"),
			},
			expected: `[--:--:--] COPLES@PAE/actual 💬 "en camino"`,
		},
		{
			name: "cleared comment",
			doc: &board.CellDocument{
				Item: "COPLES", Platform: "PAE",
				Comment: board.StringPtr(""),
			},
			expected: "[--:--:--] COPLES@PAE/actual 💬 (cleared)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCell(tt.doc, catalog))
		})
	}
}

func TestFormatMeta(t *testing.T) {
	doc := &board.MetaDocument{
		Platform:    "NJORD",
		Actual:      board.StringPtr("POZO-12"),
		EtapaActual: board.StringPtr("12 1/4"),
		Etapa:       board.StringPtr("legacy"),
	}
	assert.Equal(t, `[--:--:--] 📋 NJORD: actual="POZO-12", etapaActual="12 1/4", etapa="legacy"`, FormatMeta(doc))

	assert.Equal(t, "[--:--:--] 📋 GRID", FormatMeta(&board.MetaDocument{Platform: "GRID"}))
}

func TestSink_Default(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	sink := NewSink(&buf, OutputFormatDefault, nil)

	require.NoError(t, sink.ApplyRemoteCellChange(&board.CellDocument{Item: "MAV", Platform: "GALAR", Status: board.StringPtr("red")}))
	require.NoError(t, sink.ApplyRemoteMetaChange(&board.MetaDocument{Platform: "GALAR", Futuro: board.StringPtr("P-9")}))
	assert.Error(t, sink.ApplyRemoteCellChange(nil))
	assert.Error(t, sink.ApplyRemoteMetaChange(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "MAV@GALAR/actual")
	assert.Contains(t, lines[0], "Rojo")
	assert.Contains(t, lines[1], `futuro="P-9"`)
}

func TestSink_JSON(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, OutputFormatJSON, nil)

	require.NoError(t, sink.ApplyRemoteCellChange(&board.CellDocument{Item: "MAV", Platform: "GALAR", Status: board.StringPtr("red")}))
	require.NoError(t, sink.ApplyRemoteMetaChange(&board.MetaDocument{Platform: "GALAR", EtapaSiguiente: board.StringPtr("8 1/2")}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var cell struct {
		Kind string             `json:"kind"`
		Doc  board.CellDocument `json:"doc"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &cell))
	assert.Equal(t, "cell", cell.Kind)
	assert.Equal(t, "MAV", cell.Doc.Item)
	require.NotNil(t, cell.Doc.Status)
	assert.Equal(t, "red", *cell.Doc.Status)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &meta))
	assert.Equal(t, "meta", meta["kind"])
	assert.Equal(t, "8 1/2", meta["doc"].(map[string]interface{})["etapa_siguiente"])
}

func TestSink_Filter(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	sink := NewSink(&buf, OutputFormatDefault, nil).WithFilter(&filter.Criteria{PlatformGlob: "RIG-*"})

	require.NoError(t, sink.ApplyRemoteCellChange(&board.CellDocument{Item: "MAV", Platform: "GALAR", Status: board.StringPtr("red")}))
	require.NoError(t, sink.ApplyRemoteCellChange(&board.CellDocument{Item: "MAV", Platform: "RIG-703", Status: board.StringPtr("blue")}))
	require.NoError(t, sink.ApplyRemoteMetaChange(&board.MetaDocument{Platform: "NJORD", Actual: board.StringPtr("X-1")}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "MAV@RIG-703/actual")
}

func TestPollForCell(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, "test-workspace")
	require.NoError(t, err)
	defer client.Close()

	key := board.CellKey{Item: "CABEZAL", Platform: "NJORD", Stage: board.StageActual}
	isGreen := func(d *board.CellDocument) bool { return d.Status != nil && *d.Status == "green" }

	t.Run("returns document when already matching", func(t *testing.T) {
		require.NoError(t, client.MergeCell(ctx, &board.CellDocument{Item: key.Item, Platform: key.Platform, Status: board.StringPtr("green")}))

		doc, err := PollForCell(ctx, client, key, isGreen, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "green", *doc.Status)
	})

	t.Run("waits for a later write", func(t *testing.T) {
		other := board.CellKey{Item: "MPD", Platform: "NJORD", Stage: board.StageSiguiente}
		go func() {
			time.Sleep(300 * time.Millisecond)
			client.MergeCell(ctx, &board.CellDocument{Item: other.Item, Platform: other.Platform, Stage: other.Stage, Status: board.StringPtr("green")})
		}()

		doc, err := PollForCell(ctx, client, other, isGreen, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, board.StageSiguiente, doc.Stage)
	})

	t.Run("times out when never matching", func(t *testing.T) {
		missing := board.CellKey{Item: "MAV", Platform: "PAE"}
		_, err := PollForCell(ctx, client, missing, isGreen, 300*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for cell")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()
		_, err := PollForCell(cctx, client, board.CellKey{Item: "X", Platform: "Y"}, isGreen, 5*time.Second)
		assert.Error(t, err)
	})
}
