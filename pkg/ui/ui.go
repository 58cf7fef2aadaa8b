package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/loganalyzer/lvx/pkg/config"
	"github.com/loganalyzer/lvx/pkg/export"
	"github.com/loganalyzer/lvx/pkg/highlighter"
	"github.com/loganalyzer/lvx/pkg/models"
	"github.com/loganalyzer/lvx/pkg/session"
	"github.com/loganalyzer/lvx/pkg/watcher"
	"github.com/mattn/go-runewidth"
)

// Model represents the main TUI model
type Model struct {
	// Core components
	config      *config.Config
	session     *session.Session
	highlighter *highlighter.Highlighter
	exporter    *export.Exporter
	watcher     *watcher.Watcher
	keys        KeyMap

	// UI State
	width    int
	height   int
	ready    bool
	quitting bool
	mode     Mode

	// Table
	cursor  int
	scrollY int

	// Editors
	filterEditor *Editor
	searchEditor *Editor
	debounceSeq  int

	// Status
	statusMessage string
	statusTimeout time.Time

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// Mode selects what has keyboard focus
type Mode int

const (
	ModeTable Mode = iota
	ModeFilter
	ModeSearch
	ModeDetail
	ModeHelp
)

// NewModel creates a new TUI model over a loaded session. w may be nil.
func NewModel(ctx context.Context, cfg *config.Config, sess *session.Session, w *watcher.Watcher) (*Model, error) {
	if sess == nil {
		return nil, fmt.Errorf("no session")
	}

	ctx, cancel := context.WithCancel(ctx)

	model := &Model{
		config:       cfg,
		session:      sess,
		highlighter:  highlighter.New(cfg.UI.Theme),
		exporter:     export.New(),
		watcher:      w,
		keys:         NewKeyMap(cfg),
		filterEditor: NewEditor("Filter"),
		searchEditor: NewEditor("Search"),
		ctx:          ctx,
		cancel:       cancel,
	}

	model.filterEditor.Load(sess.FilterState().Predicate)
	model.searchEditor.Load(sess.SearchState().Predicate)

	return model, nil
}

// Init implements the bubbletea.Model interface
func (m *Model) Init() tea.Cmd {
	if m.watcher != nil {
		return m.listenForFileEvents()
	}
	return nil
}

// Update implements the bubbletea.Model interface
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.clampCursor()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case FileEventMsg:
		return m.handleFileEvent(msg.Event)

	case debounceMsg:
		if int(msg) == m.debounceSeq {
			m.applyFilterText()
		}
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	switch m.mode {
	case ModeFilter, ModeSearch:
		return m.updateEditor(msg)

	case ModeDetail, ModeHelp:
		if key.Matches(msg, m.keys.Escape, m.keys.Details, m.keys.Help, m.keys.Quit) {
			m.mode = ModeTable
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Filter):
		m.mode = ModeFilter
		m.filterEditor.Load(m.session.FilterState().Predicate)
		return m, m.filterEditor.Open()

	case key.Matches(msg, m.keys.Search):
		m.mode = ModeSearch
		m.searchEditor.Load(m.session.SearchState().Predicate)
		return m, m.searchEditor.Open()

	case key.Matches(msg, m.keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, m.keys.Details):
		if m.session.VisibleCount() > 0 {
			m.mode = ModeDetail
		}

	case key.Matches(msg, m.keys.NextMatch):
		m.navigate(models.Next)
	case key.Matches(msg, m.keys.PrevMatch):
		m.navigate(models.Previous)
	case key.Matches(msg, m.keys.FirstMatch):
		m.navigate(models.First)
	case key.Matches(msg, m.keys.LastMatch):
		m.navigate(models.Last)

	case key.Matches(msg, m.keys.Select):
		m.toggleSelection()
	case key.Matches(msg, m.keys.Copy):
		m.copySelection()
	case key.Matches(msg, m.keys.Export):
		m.exportSelection()

	case key.Matches(msg, m.keys.Reload):
		m.reload()
	case key.Matches(msg, m.keys.ResetFilter):
		m.session.ResetFilter()
		m.filterEditor.Load(m.session.FilterState().Predicate)
		m.clampCursor()
		m.setStatusMessage("Filter reset")
	case key.Matches(msg, m.keys.ClearSearch):
		m.session.ClearSearch()
		m.searchEditor.Load(m.session.SearchState().Predicate)
		m.setStatusMessage("Search cleared")

	case key.Matches(msg, m.keys.ScrollDown):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.ScrollUp):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.tableHeight())
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.tableHeight())
	case key.Matches(msg, m.keys.GotoTop):
		m.moveCursor(-m.session.VisibleCount())
	case key.Matches(msg, m.keys.GotoBottom):
		m.moveCursor(m.session.VisibleCount())
	}

	return m, nil
}

// updateEditor routes a key to the open editor and applies the resulting edit
func (m *Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	editor := m.filterEditor
	if m.mode == ModeSearch {
		editor = m.searchEditor
	}

	if key.Matches(msg, m.keys.Escape) {
		if m.mode == ModeFilter {
			m.applyFilterText()
		}
		editor.Close()
		m.mode = ModeTable
		return m, nil
	}

	e, cmd := editor.Update(msg, m.keys)

	switch {
	case e.kind == editNone:
	case m.mode == ModeSearch && e.kind == editLevel:
		m.session.ToggleSearchLevel(e.level)
	case m.mode == ModeSearch:
		m.session.SetSearch(e.field, e.value)
	case e.kind == editLevel:
		m.session.ToggleFilterLevel(e.level)
		m.clampCursor()
	default:
		if d := m.debounce(); d > 0 {
			m.debounceSeq++
			seq := m.debounceSeq
			return m, tea.Batch(cmd, tea.Tick(d, func(time.Time) tea.Msg { return debounceMsg(seq) }))
		}
		m.session.SetFilter(e.field, e.value)
		m.clampCursor()
	}

	return m, cmd
}

// View implements the bubbletea.Model interface
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.quitting {
		return ""
	}

	switch m.mode {
	case ModeHelp:
		return m.renderHelp()
	case ModeDetail:
		return m.renderDetail()
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	switch m.mode {
	case ModeFilter:
		sections = append(sections, m.filterEditor.View(m.session.FilterState().Predicate, m.highlighter, m.width))
	case ModeSearch:
		sections = append(sections, m.searchEditor.View(m.session.SearchState().Predicate, m.highlighter, m.width))
	}

	sections = append(sections, m.renderTable(), m.renderFooter())

	return strings.Join(sections, "\n")
}

// renderHeader renders the counts line
func (m *Model) renderHeader() string {
	counts := fmt.Sprintf("Filtered %s from total %s",
		humanize.Comma(int64(m.session.VisibleCount())),
		humanize.Comma(int64(m.session.TotalCount())))

	parts := []string{counts}

	if result := m.session.Search(); result.Len() > 0 {
		parts = append(parts, fmt.Sprintf("Match %d/%d", result.Cursor+1, result.Len()))
	} else if !m.session.SearchState().IsIdle() {
		parts = append(parts, "No matches")
	}

	if n := len(m.session.Selection()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}

	parts = append(parts, m.session.Path())

	header := runewidth.Truncate(strings.Join(parts, "  |  "), max(m.width, 1), "…")
	return m.highlighter.Style("header").Render(header)
}

// column widths of the fixed columns
const (
	markerWidth = 2
	levelWidth  = 5
)

// renderTable renders the visible window of rows plus a column header
func (m *Model) renderTable() string {
	height := m.tableHeight()
	visible := m.session.Visible()

	cols := m.columnWidths()
	header := m.renderRow(" ", "#", "Time", "Level", "Message", "Payload", "Caller", cols)
	lines := []string{m.highlighter.Style("header").Render(header)}

	if len(visible) == 0 {
		lines = append(lines, "No records")
	}

	result := m.session.Search()
	searchState := m.session.SearchState()

	end := min(m.scrollY+height, len(visible))
	for i := m.scrollY; i < end; i++ {
		r := &visible[i]

		marker := " "
		switch {
		case m.session.IsSelected(i):
			marker = "*"
		case result.IsMatch(i):
			marker = "•"
		}

		row := m.renderRow(marker,
			fmt.Sprintf("%d", r.Line),
			m.formatTime(r.Timestamp),
			r.Level.String(),
			r.Message, r.Payload, r.Caller,
			cols)

		switch {
		case i == m.cursor:
			row = m.highlighter.Style("cursor").Render(row)
		case m.session.IsSelected(i):
			row = m.highlighter.Style("selected").Render(row)
		case result.IsMatch(i):
			row = m.highlightRow(row, searchState)
		}
		lines = append(lines, row)
	}

	for len(lines) < height+1 {
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// highlightRow marks every search needle inside an already laid out row
func (m *Model) highlightRow(row string, state models.SearchState) string {
	var needles []string
	for _, field := range models.Fields {
		if needle := state.Text(field); needle != "" {
			needles = append(needles, needle)
		}
	}
	if len(needles) == 0 {
		return m.highlighter.Style("match").Render(row)
	}
	return m.highlighter.Mark(row, lipgloss.NewStyle(), needles...)
}

type columns struct {
	line, time, message, payload, caller int
}

func (m *Model) columnWidths() columns {
	c := columns{
		time:   runewidth.StringWidth(m.formatTime(models.DefaultTimestamp)),
		caller: 20,
	}
	if m.config.UI.ShowLineNumbers {
		c.line = 6
	}

	fixed := markerWidth + c.line + c.time + levelWidth + c.caller + 5
	flex := m.width - fixed
	if flex < 20 {
		flex = 20
	}
	c.message = flex * 6 / 10
	c.payload = flex - c.message
	return c
}

func (m *Model) renderRow(marker, line, ts, level, msg, payload, caller string, c columns) string {
	cells := []string{cell(marker, markerWidth-1)}
	if c.line > 0 {
		cells = append(cells, cell(line, c.line))
	}
	cells = append(cells,
		cell(ts, c.time),
		cell(level, levelWidth),
		cell(msg, c.message),
		cell(payload, c.payload),
		cell(caller, c.caller),
	)
	return strings.Join(cells, " ")
}

// cell truncates or pads s to exactly width terminal columns
func cell(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

func (m *Model) formatTime(t time.Time) string {
	if m.config.UI.LocalTime {
		t = t.Local()
	}
	return t.Format(m.config.UI.TimeFormat)
}

// renderDetail renders the record under the cursor with its payload highlighted
func (m *Model) renderDetail() string {
	visible := m.session.Visible()
	if m.cursor >= len(visible) {
		return "No record"
	}
	r := visible[m.cursor]

	label := m.highlighter.Style("header")
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", label.Render("Line:   "), r.Line)
	fmt.Fprintf(&b, "%s %s\n", label.Render("Time:   "), m.highlighter.Style("timestamp").Render(m.formatTime(r.Timestamp)))
	fmt.Fprintf(&b, "%s %s\n", label.Render("Level:  "), m.highlighter.RenderLevel(r.Level))
	fmt.Fprintf(&b, "%s %s\n", label.Render("Message:"), r.Message)
	fmt.Fprintf(&b, "%s %s\n", label.Render("Caller: "), m.highlighter.Style("caller").Render(r.Caller))
	if r.Payload != "" {
		fmt.Fprintf(&b, "%s\n%s\n", label.Render("Payload:"), m.highlighter.RenderPayload(r.Payload))
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.highlighter.Theme().Colors["border"]).
		Padding(0, 1)

	return style.Width(max(m.width-4, 10)).Render(b.String()) + "\n" + m.renderFooter()
}

// renderFooter renders the status footer
func (m *Model) renderFooter() string {
	style := lipgloss.NewStyle().
		Foreground(m.highlighter.Theme().Colors["status"]).
		Padding(0, 1)

	left := ""
	if m.statusMessage != "" && time.Now().Before(m.statusTimeout) {
		left = m.statusMessage
	}

	var right string
	switch {
	case m.mode == ModeSearch && !m.searchLevelsEnabled():
		right = noLevelsHint
	case m.mode == ModeFilter, m.mode == ModeSearch:
		right = "tab next field | space toggle level | esc close"
	case m.mode == ModeDetail, m.mode == ModeHelp:
		right = "esc back"
	default:
		right = "? help | f filter | / search | n/N match | space select | q quit"
	}

	spacing := m.width - runewidth.StringWidth(left) - runewidth.StringWidth(right) - 2
	if spacing < 1 {
		spacing = 1
	}

	return style.Render(left + strings.Repeat(" ", spacing) + right)
}

// noLevelsHint is shown while a search has every level toggle off
const noLevelsHint = "no levels toggled: only N/A records can match"

func (m *Model) searchLevelsEnabled() bool {
	state := m.session.SearchState()
	for _, level := range models.KnownLevels {
		if state.LevelEnabled(level) {
			return true
		}
	}
	return false
}

// renderHelp renders the help screen from the active key bindings
func (m *Model) renderHelp() string {
	bindings := []key.Binding{
		m.keys.ScrollDown, m.keys.ScrollUp, m.keys.PageDown, m.keys.PageUp, m.keys.GotoTop, m.keys.GotoBottom,
		m.keys.Filter, m.keys.ResetFilter, m.keys.Search, m.keys.ClearSearch,
		m.keys.NextMatch, m.keys.PrevMatch, m.keys.FirstMatch, m.keys.LastMatch,
		m.keys.Select, m.keys.Copy, m.keys.Export, m.keys.Details, m.keys.Reload,
		m.keys.Help, m.keys.Quit,
	}

	var b strings.Builder
	b.WriteString("lvx - Help\n\n")
	for _, binding := range bindings {
		h := binding.Help()
		fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
	}
	b.WriteString("\nIn the filter and search editors, tab moves between the level\n")
	b.WriteString("toggles and the message, payload and caller fields. Text matches\n")
	b.WriteString("are case-insensitive substrings.\n\nPress Esc or ? to close help.\n")

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.highlighter.Theme().Colors["border"]).
		Padding(1, 2)

	return style.Width(max(m.width-4, 10)).Render(b.String())
}
