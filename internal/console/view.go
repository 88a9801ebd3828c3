// Package console is the terminal front end of a live session: a View the engine reports refreshes
// to, and a bubbletea Model with a command prompt and one text input per platform meta field.
package console

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dyluth/tablero/internal/config"
	"github.com/dyluth/tablero/internal/printer"
	"github.com/dyluth/tablero/pkg/board"
)

// Reader is the read side of the engine the view reads refreshed values from.
type Reader interface {
	Status(item, platform string, stage board.Stage) board.Status
	Comment(item, platform string, stage board.Stage) string
	Meta(platform string) board.PlatformMeta
}

type fieldKey struct {
	platform string
	field    board.MetaField
}

// View receives engine refreshes. While a program is attached every refresh is sent to it as a
// message; otherwise it is printed as one line.
// It must be bound to the engine with Bind before the engine starts delivering changes.
type View struct {
	mu      sync.Mutex
	out     io.Writer
	catalog *config.CatalogConfig
	reader  Reader
	program *tea.Program

	// Mirror of the model's focused input, read from the engine's goroutines
	focused    fieldKey
	hasFocused bool
}

// NewView creates a view printing to out when no program is attached.
func NewView(out io.Writer, catalog *config.CatalogConfig) *View {
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	return &View{out: out, catalog: catalog}
}

// Bind sets the engine the view reads refreshed values from.
func (v *View) Bind(r Reader) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reader = r
}

// Attach routes refreshes to p. A nil p detaches the program and clears the focus mirror.
func (v *View) Attach(p *tea.Program) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.program = p
	if p == nil {
		v.hasFocused = false
	}
}

func (v *View) state() (Reader, *tea.Program) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reader, v.program
}

// RefreshCell reports the current status and comment of a cell.
func (v *View) RefreshCell(key board.CellKey) {
	r, p := v.state()
	if r == nil {
		return
	}

	msg := cellRefreshMsg{
		key:     key,
		status:  r.Status(key.Item, key.Platform, key.Stage),
		comment: r.Comment(key.Item, key.Platform, key.Stage),
	}
	if p != nil {
		p.Send(msg)
		return
	}
	v.println(formatCell(v.catalog, msg))
}

// RefreshMeta reports the current value of a meta field.
func (v *View) RefreshMeta(platform string, field board.MetaField) {
	r, p := v.state()
	if r == nil {
		return
	}

	msg := metaRefreshMsg{
		key:   fieldKey{platform, field},
		value: r.Meta(platform).Get(field),
	}
	if p != nil {
		p.Send(msg)
		return
	}
	v.println(formatMeta(msg))
}

// Focused reports whether the field's input holds the cursor in the console.
func (v *View) Focused(platform string, field board.MetaField) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hasFocused && v.focused == fieldKey{platform, field}
}

// setFocus is called by the model after every update with the input that reports Focused.
func (v *View) setFocus(key fieldKey, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.focused, v.hasFocused = key, ok
}

// Println prints text above the prompt of the attached program, or as a plain line.
func (v *View) Println(text string) {
	_, p := v.state()
	if p != nil {
		p.Send(printMsg{text: text})
		return
	}
	v.println(text)
}

func (v *View) println(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, text)
}

func formatCell(catalog *config.CatalogConfig, msg cellRefreshMsg) string {
	label, colour := string(msg.status), ""
	if opt, ok := catalog.Status(string(msg.status)); ok {
		label, colour = opt.Label, opt.Color
	}

	line := fmt.Sprintf("↻ %s %s", msg.key, printer.Swatch(colour, " "+label+" "))
	if msg.comment != "" {
		line += fmt.Sprintf(" 💬 %q", msg.comment)
	}
	return line
}

func formatMeta(msg metaRefreshMsg) string {
	return fmt.Sprintf("↻ %s %s = %q", msg.key.platform, msg.key.field, msg.value)
}
