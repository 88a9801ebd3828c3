// Package filter selects which change events a watch session prints.
package filter

import (
	"path/filepath"

	"github.com/dyluth/tablero/internal/timespec"
	"github.com/dyluth/tablero/pkg/board"
)

// Criteria are ANDed together. Zero values match everything.
type Criteria struct {
	Window       timespec.Range
	PlatformGlob string // Glob over the platform name, e.g. "RIG-*"
	ItemGlob     string // Glob over the item name; meta events never match a non-empty ItemGlob
}

// MatchesCell reports whether a cell event passes every criterion.
func (c *Criteria) MatchesCell(doc *board.CellDocument) bool {
	if c == nil {
		return true
	}
	if !c.Window.Contains(doc.UpdatedAtMs) {
		return false
	}
	return glob(c.PlatformGlob, doc.Platform) && glob(c.ItemGlob, doc.Item)
}

// MatchesMeta reports whether a meta event passes every criterion.
func (c *Criteria) MatchesMeta(doc *board.MetaDocument) bool {
	if c == nil {
		return true
	}
	if c.ItemGlob != "" || !c.Window.Contains(doc.UpdatedAtMs) {
		return false
	}
	return glob(c.PlatformGlob, doc.Platform)
}

// HasFilters returns true if any criterion is set.
func (c *Criteria) HasFilters() bool {
	return c != nil && (c.Window != timespec.Range{} || c.PlatformGlob != "" || c.ItemGlob != "")
}

// Validate rejects malformed glob patterns up front, so a typo does not silently hide every event.
func (c *Criteria) Validate() error {
	for _, p := range []string{c.PlatformGlob, c.ItemGlob} {
		if p == "" {
			continue
		}
		if _, err := filepath.Match(p, ""); err != nil {
			return err
		}
	}
	return nil
}

func glob(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	matched, err := filepath.Match(pattern, name)
	return err == nil && matched
}
