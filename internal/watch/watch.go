// Package watch prints change events of a workspace as they arrive and polls the store for
// a write to land.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/tablero/internal/config"
	"github.com/dyluth/tablero/internal/filter"
	"github.com/dyluth/tablero/internal/printer"
	"github.com/dyluth/tablero/pkg/board"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	// OutputFormatDefault is one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON is line-delimited JSON
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatDefault:
		return OutputFormatDefault, nil
	case OutputFormatJSON:
		return OutputFormatJSON, nil
	default:
		return "", fmt.Errorf("invalid output format '%s' (must be 'default' or 'json')", s)
	}
}

// Sink writes every change it receives. It satisfies the subscriber's sink contract, so a
// watch session is a subscriber with printing in place of reconciliation.
type Sink struct {
	mu      sync.Mutex
	w       io.Writer
	format  OutputFormat
	catalog *config.CatalogConfig
	filter  *filter.Criteria
}

// NewSink creates a sink writing to w. The catalog supplies status labels and colours.
func NewSink(w io.Writer, format OutputFormat, catalog *config.CatalogConfig) *Sink {
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	return &Sink{w: w, format: format, catalog: catalog}
}

// WithFilter drops events that do not match c. A nil c passes everything.
func (s *Sink) WithFilter(c *filter.Criteria) *Sink {
	s.filter = c
	return s
}

// jsonEvent is the line written in JSON mode.
type jsonEvent struct {
	Kind string      `json:"kind"`
	Doc  interface{} `json:"doc"`
}

// ApplyRemoteCellChange writes a cell event.
func (s *Sink) ApplyRemoteCellChange(doc *board.CellDocument) error {
	if doc == nil {
		return fmt.Errorf("nil cell event")
	}
	if !s.filter.MatchesCell(doc) {
		return nil
	}
	if s.format == OutputFormatJSON {
		return s.writeJSON("cell", doc)
	}
	return s.writeLine(FormatCell(doc, s.catalog))
}

// ApplyRemoteMetaChange writes a meta event.
func (s *Sink) ApplyRemoteMetaChange(doc *board.MetaDocument) error {
	if doc == nil {
		return fmt.Errorf("nil meta event")
	}
	if !s.filter.MatchesMeta(doc) {
		return nil
	}
	if s.format == OutputFormatJSON {
		return s.writeJSON("meta", doc)
	}
	return s.writeLine(FormatMeta(doc))
}

func (s *Sink) writeJSON(kind string, doc interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.w).Encode(jsonEvent{Kind: kind, Doc: doc})
}

func (s *Sink) writeLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, line)
	return err
}

// FormatCell renders a cell event as a single line, e.g.
//
//	[14:03:22] CABEZAL@NJORD/actual →  Verde   (by 1a2b3c4d)
func FormatCell(doc *board.CellDocument, catalog *config.CatalogConfig) string {
	var b strings.Builder
	b.WriteString(stamp(doc.UpdatedAtMs))
	b.WriteString(doc.Key().String())

	if doc.Status != nil {
		status := board.Status(*doc.Status).OrNone()
		label, colour := string(status), ""
		if opt, ok := catalog.Status(string(status)); ok {
			label, colour = opt.Label, opt.Color
		}
		fmt.Fprintf(&b, " → %s", printer.Swatch(colour, " "+label+" "))
	}
	if doc.Comment != nil {
		if *doc.Comment == "" {
			b.WriteString(" 💬 (cleared)")
		} else {
			fmt.Fprintf(&b, " 💬 %q", *doc.Comment)
		}
	}

	b.WriteString(by(doc.Origin))
	return b.String()
}

// FormatMeta renders a meta event as a single line listing the fields it carries.
func FormatMeta(doc *board.MetaDocument) string {
	var b strings.Builder
	b.WriteString(stamp(doc.UpdatedAtMs))
	fmt.Fprintf(&b, "📋 %s", doc.Platform)

	var fields []string
	for _, f := range board.MetaFields {
		if v, ok := doc.Field(f); ok {
			fields = append(fields, fmt.Sprintf("%s=%q", f, v))
		}
	}
	if doc.Etapa != nil {
		fields = append(fields, fmt.Sprintf("etapa=%q", *doc.Etapa))
	}
	if len(fields) > 0 {
		b.WriteString(": " + strings.Join(fields, ", "))
	}

	b.WriteString(by(doc.Origin))
	return b.String()
}

func stamp(ms int64) string {
	if ms <= 0 {
		return "[--:--:--] "
	}
	return "[" + time.UnixMilli(ms).UTC().Format("15:04:05") + "] "
}

func by(origin string) string {
	if origin == "" {
		return ""
	}
	if len(origin) > 8 {
		origin = origin[:8]
	}
	return "  (by " + origin + ")"
}

// CellReader is the read side PollForCell needs.
type CellReader interface {
	GetCell(ctx context.Context, key board.CellKey) (*board.CellDocument, error)
}

// PollForCell polls until the stored document of key satisfies match.
// Polls every 200ms for at most timeout.
func PollForCell(ctx context.Context, client CellReader, key board.CellKey, match func(*board.CellDocument) bool, timeout time.Duration) (*board.CellDocument, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		doc, err := client.GetCell(ctx, key)
		switch {
		case err == nil && match(doc):
			return doc, nil
		case err != nil && !board.IsNotFound(err):
			return nil, fmt.Errorf("failed to query cell %s: %w", key, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for cell %s after %v", key, timeout)
		case <-ticker.C:
		}
	}
}
