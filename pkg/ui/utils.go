package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/loganalyzer/lvx/pkg/export"
	"github.com/loganalyzer/lvx/pkg/models"
	"github.com/loganalyzer/lvx/pkg/watcher"
	"github.com/rs/zerolog/log"
)

// FileEventMsg carries a watcher event into the update loop
type FileEventMsg struct {
	Event watcher.Event
}

// debounceMsg fires after filter typing pauses; stale sequence numbers are ignored
type debounceMsg int

// listenForFileEvents waits for the next watcher event
func (m *Model) listenForFileEvents() tea.Cmd {
	events := m.watcher.Events()
	return func() tea.Msg {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			return FileEventMsg{Event: ev}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// handleFileEvent reacts to a change of the loaded file
func (m *Model) handleFileEvent(ev watcher.Event) (tea.Model, tea.Cmd) {
	switch ev.Type {
	case watcher.EventChanged:
		if m.config.General.AutoReload {
			m.reload()
		} else {
			m.setStatusMessage("File changed, press " + m.config.GetKeybinding("reload") + " to reload")
		}
	case watcher.EventRemoved:
		m.setStatusMessage("File removed: " + ev.Path)
	case watcher.EventError:
		m.setStatusMessage(fmt.Sprintf("Watch error: %v", ev.Error))
	}
	return m, m.listenForFileEvents()
}

func (m *Model) debounce() time.Duration {
	return time.Duration(m.config.UI.FilterDebounceMs) * time.Millisecond
}

// applyFilterText pushes typed filter text into the session, one field at a time
func (m *Model) applyFilterText() {
	current := m.session.FilterState()
	changed := false
	for _, field := range models.Fields {
		if text := m.filterEditor.Text(field); text != current.Text(field) {
			m.session.SetFilter(field, text)
			changed = true
		}
	}
	if changed {
		m.clampCursor()
	}
}

// navigate moves the search cursor and scrolls the table to the match
func (m *Model) navigate(dir models.Direction) {
	if result := m.session.Search(); result.Len() == 0 {
		if m.session.SearchState().IsIdle() {
			m.setStatusMessage("No search active")
		} else {
			m.setStatusMessage("No matches")
		}
		return
	}

	m.session.Navigate(dir)
	if target, ok := m.session.TakeScrollTarget(); ok {
		m.scrollTo(target)
	}
}

func (m *Model) toggleSelection() {
	if m.session.VisibleCount() == 0 {
		return
	}
	m.session.ToggleSelection(m.cursor)
}

// copySelection copies the selected records, or the one under the cursor,
// to the system clipboard
func (m *Model) copySelection() {
	records := m.session.SelectedRecords()
	if len(records) == 0 {
		visible := m.session.Visible()
		if m.cursor >= len(visible) {
			m.setStatusMessage("Nothing to copy")
			return
		}
		records = visible[m.cursor : m.cursor+1]
	}

	lines := make([]string, 0, len(records))
	for i := range records {
		lines = append(lines, export.FormatRecord(&records[i], m.config.UI.TimeFormat))
	}

	if err := clipboard.WriteAll(strings.Join(lines, "\n")); err != nil {
		log.Warn().Err(err).Msg("Clipboard write failed")
		m.setStatusMessage(fmt.Sprintf("Copy failed: %v", err))
		return
	}
	m.setStatusMessage(fmt.Sprintf("Copied %d records", len(records)))
}

// exportSelection writes the selected records, or the whole visible set,
// to a timestamped JSON file in the export directory
func (m *Model) exportSelection() {
	records := m.session.SelectedRecords()
	if len(records) == 0 {
		records = m.session.Visible()
	}
	if len(records) == 0 {
		m.setStatusMessage("Nothing to export")
		return
	}

	path := m.exporter.DefaultFileName(m.config.General.ExportDir, export.FormatJSON)
	options := m.exporter.GenerateDefaultOptions(path, export.FormatJSON)
	options.Metadata["session"] = m.session.ID()
	options.Metadata["source"] = m.session.Path()

	if err := m.exporter.ExportRecords(records, options); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Export failed")
		m.setStatusMessage(fmt.Sprintf("Export failed: %v", err))
		return
	}
	m.setStatusMessage(fmt.Sprintf("Exported %d records to %s", len(records), path))
}

// reload re-reads the file; on failure the current view is kept
func (m *Model) reload() {
	if err := m.session.Reload(); err != nil {
		log.Error().Err(err).Msg("Reload failed")
		m.setStatusMessage(fmt.Sprintf("Reload failed: %v", err))
		return
	}

	m.filterEditor.Load(m.session.FilterState().Predicate)
	m.searchEditor.Load(m.session.SearchState().Predicate)
	m.clampCursor()
	m.setStatusMessage(fmt.Sprintf("Reloaded %d records", m.session.TotalCount()))
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

// clampCursor keeps cursor and scroll offset inside the visible set
func (m *Model) clampCursor() {
	n := m.session.VisibleCount()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureVisible()
}

// tableHeight returns the number of record rows that fit on screen
func (m *Model) tableHeight() int {
	// header, column header, footer
	h := m.height - 3
	if m.mode == ModeFilter || m.mode == ModeSearch {
		h -= 4
	}
	if h < 1 {
		h = 1
	}
	return h
}

// scrollTo moves the cursor to a visible row
func (m *Model) scrollTo(index int) {
	m.cursor = index
	m.clampCursor()
}

func (m *Model) ensureVisible() {
	height := m.tableHeight()
	if m.cursor < m.scrollY {
		m.scrollY = m.cursor
	}
	if m.cursor >= m.scrollY+height {
		m.scrollY = m.cursor - height + 1
	}

	maxScroll := m.session.VisibleCount() - height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scrollY > maxScroll {
		m.scrollY = maxScroll
	}
	if m.scrollY < 0 {
		m.scrollY = 0
	}
}

// setStatusMessage sets a temporary status message
func (m *Model) setStatusMessage(message string) {
	m.statusMessage = message
	m.statusTimeout = time.Now().Add(3 * time.Second)
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.Stop()
	return m, tea.Quit
}

// Stop stops the model and its watcher
func (m *Model) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

// SetTheme changes the UI theme
func (m *Model) SetTheme(themeName string) {
	m.highlighter.SetTheme(themeName)
	m.config.UI.Theme = themeName
}

// Cursor returns the visible index under the cursor
func (m *Model) Cursor() int {
	return m.cursor
}
