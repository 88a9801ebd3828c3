package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dyluth/tablero/internal/config"
	"github.com/dyluth/tablero/pkg/board"
)

// historyLimit bounds the printed lines kept by the model.
const historyLimit = 200

type mode int

const (
	modeCommand mode = iota
	modeFields
)

type (
	cellRefreshMsg struct {
		key     board.CellKey
		status  board.Status
		comment string
	}

	metaRefreshMsg struct {
		key   fieldKey
		value string
	}

	// reloadMsg carries field values read from the engine. They are applied without printing.
	reloadMsg struct {
		values []metaRefreshMsg
	}

	printMsg struct {
		text string
	}

	resultMsg struct {
		text string
		err  error
	}
)

var (
	platformStyle = lipgloss.NewStyle().Width(10).Bold(true)
	columnStyle   = lipgloss.NewStyle().Width(18)
	focusStyle    = columnStyle.Foreground(lipgloss.Color("205"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type fieldInput struct {
	key   fieldKey
	input textinput.Model
	value string // Last value known from the engine or saved from this input
}

// Model is the bubbletea model of a live session: a command prompt plus one text input per
// platform meta field. Engine calls run in commands, never in Update, because the engine may be
// blocked in Program.Send waiting for the event loop.
type Model struct {
	cmds    commands
	catalog *config.CatalogConfig
	view    *View

	command textinput.Model
	fields  []fieldInput
	mode    mode
	cursor  int

	history  []string
	quitting bool
}

// NewModel creates the model with the current meta values of the engine.
func NewModel(engine Editor, view *View, catalog *config.CatalogConfig) Model {
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}

	command := textinput.New()
	command.Prompt = "> "
	command.Placeholder = "type 'help'"
	command.Focus()

	m := Model{
		cmds:    commands{engine: engine, catalog: catalog},
		catalog: catalog,
		view:    view,
		command: command,
	}
	for _, platform := range catalog.Platforms {
		meta := engine.Meta(platform)
		for _, f := range board.MetaFields {
			in := textinput.New()
			in.Prompt = ""
			in.Width = 16
			in.CharLimit = 64
			in.SetValue(meta.Get(f))
			m.fields = append(m.fields, fieldInput{
				key:   fieldKey{platform, f},
				input: in,
				value: meta.Get(f),
			})
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	keys := make([]fieldKey, len(m.fields))
	for i, f := range m.fields {
		keys[i] = f.key
	}
	return tea.Batch(textinput.Blink, m.reload(keys...))
}

// Update handles one message and publishes the focused field input to the view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	key, ok := m.focusedField()
	m.view.setFocus(key, ok)
	return m, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case cellRefreshMsg:
		return m.print(formatCell(m.catalog, msg))

	case metaRefreshMsg:
		return m.applyMeta(msg, true)

	case reloadMsg:
		for _, v := range msg.values {
			m, _ = m.applyMeta(v, false)
		}
		return m, nil

	case printMsg:
		return m.print(msg.text)

	case resultMsg:
		if msg.err != nil {
			return m.print("error: " + msg.err.Error())
		}
		if msg.text == "" {
			return m, nil
		}
		return m.print(msg.text)
	}

	return m.updateInput(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab:
		if m.mode == modeCommand {
			return m.focusField(m.cursor)
		}
		return m.focusCommand()

	case tea.KeyEnter:
		if m.mode == modeCommand {
			line := m.command.Value()
			m.command.Reset()
			return m.execute(line)
		}
		return m.save()

	case tea.KeyEsc:
		if m.mode == modeFields {
			return m.focusCommand()
		}

	case tea.KeyUp:
		if m.mode == modeFields {
			return m.focusField(m.cursor - 1)
		}

	case tea.KeyDown:
		if m.mode == modeFields {
			return m.focusField(m.cursor + 1)
		}
	}

	return m.updateInput(msg)
}

func (m Model) updateInput(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.mode == modeFields {
		f := &m.fields[m.cursor]
		f.input, cmd = f.input.Update(msg)
		return m, cmd
	}
	m.command, cmd = m.command.Update(msg)
	return m, cmd
}

// execute runs a command line typed at the prompt.
func (m Model) execute(line string) (Model, tea.Cmd) {
	args, err := splitArgs(line)
	if err != nil {
		return m.print("error: " + err.Error())
	}
	if len(args) == 0 {
		return m, nil
	}

	verb, rest := strings.ToLower(args[0]), args[1:]
	switch verb {
	case "quit", "exit":
		m.quitting = true
		return m, tea.Quit
	case "help", "?":
		return m.print(helpText)
	case "edit":
		if len(rest) != 2 {
			return m.print("error: usage: edit PLATFORM FIELD")
		}
		key, err := m.cmds.field(rest[0], rest[1])
		if err != nil {
			return m.print("error: " + err.Error())
		}
		return m.focusField(m.fieldIndex(key))
	}

	act, err := m.cmds.parse(verb, rest)
	if err != nil {
		return m.print("error: " + err.Error())
	}
	return m, run(act)
}

// focusField moves the cursor to field i, wrapping around the list.
func (m Model) focusField(i int) (Model, tea.Cmd) {
	n := len(m.fields)
	if n == 0 {
		return m, nil
	}
	i = (i%n + n) % n

	var cmds []tea.Cmd
	if m.mode == modeFields {
		cmds = append(cmds, m.blurField(m.cursor))
	} else {
		m.command.Blur()
	}
	m.mode = modeFields
	m.cursor = i

	f := &m.fields[i]
	cmds = append(cmds, f.input.Focus())
	f.input.CursorEnd()
	return m, tea.Batch(cmds...)
}

func (m Model) focusCommand() (Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.mode == modeFields {
		cmd = m.blurField(m.cursor)
	}
	m.mode = modeCommand
	return m, tea.Batch(cmd, m.command.Focus())
}

// blurField leaves field i without saving it. Remote changes were not shown while it was
// focused, so its value is read again from the engine.
func (m Model) blurField(i int) tea.Cmd {
	f := &m.fields[i]
	f.input.Blur()
	f.input.SetValue(f.value)
	return m.reload(f.key)
}

// save stores the focused field and moves to the next one.
func (m Model) save() (Model, tea.Cmd) {
	f := &m.fields[m.cursor]
	value := strings.TrimSpace(f.input.Value())
	f.input.SetValue(value)
	f.input.Blur()

	var cmd tea.Cmd
	if value != f.value {
		f.value = value
		cmd = run(m.cmds.setMeta(f.key, value))
	}

	m.cursor = (m.cursor + 1) % len(m.fields)
	next := &m.fields[m.cursor]
	focus := next.input.Focus()
	next.input.CursorEnd()
	return m, tea.Batch(cmd, focus)
}

// applyMeta records a value read from the engine. A focused input keeps the text being typed.
func (m Model) applyMeta(msg metaRefreshMsg, announce bool) (Model, tea.Cmd) {
	changed := true
	if i := m.fieldIndex(msg.key); i >= 0 {
		f := &m.fields[i]
		changed = f.value != msg.value
		f.value = msg.value
		if !f.input.Focused() {
			f.input.SetValue(msg.value)
		}
	}
	if announce && changed {
		return m.print(formatMeta(msg))
	}
	return m, nil
}

func (m Model) reload(keys ...fieldKey) tea.Cmd {
	engine := m.cmds.engine
	return func() tea.Msg {
		msg := reloadMsg{values: make([]metaRefreshMsg, 0, len(keys))}
		for _, k := range keys {
			msg.values = append(msg.values, metaRefreshMsg{key: k, value: engine.Meta(k.platform).Get(k.field)})
		}
		return msg
	}
}

func (m Model) print(text string) (Model, tea.Cmd) {
	m.history = append(m.history, text)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
	return m, tea.Println(text)
}

func (m Model) fieldIndex(key fieldKey) int {
	for i, f := range m.fields {
		if f.key == key {
			return i
		}
	}
	return -1
}

func (m Model) focusedField() (fieldKey, bool) {
	for _, f := range m.fields {
		if f.input.Focused() {
			return f.key, true
		}
	}
	return fieldKey{}, false
}

func run(act action) tea.Cmd {
	return func() tea.Msg {
		text, err := act()
		return resultMsg{text: text, err: err}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.mode == modeFields {
		m.writeFields(&b)
	}
	b.WriteString(m.command.View())
	b.WriteString("\n")
	if m.mode == modeFields {
		b.WriteString(hintStyle.Render("↑/↓ move · enter save · esc back · ctrl+c quit"))
	} else {
		b.WriteString(hintStyle.Render("tab platform fields · enter run · ctrl+c quit"))
	}
	return b.String()
}

func (m Model) writeFields(b *strings.Builder) {
	header := []string{platformStyle.Render("")}
	for _, f := range board.MetaFields {
		header = append(header, columnStyle.Render(string(f)))
	}
	b.WriteString(hintStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, header...)))
	b.WriteString("\n")

	n := len(board.MetaFields)
	for start := 0; start+n <= len(m.fields); start += n {
		row := []string{platformStyle.Render(m.fields[start].key.platform)}
		for i := start; i < start+n; i++ {
			style := columnStyle
			if m.mode == modeFields && i == m.cursor {
				style = focusStyle
			}
			row = append(row, style.Render(m.fields[i].input.View()))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
		b.WriteString("\n")
	}
}
