package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/loganalyzer/lvx/pkg/config"
	"github.com/loganalyzer/lvx/pkg/models"
	"github.com/loganalyzer/lvx/pkg/session"
)

const fixture = `{"level":"INFO","ts":"2024-01-02T15:04:05+00:00","msg":"boot"}
{"level":"INFO","ts":"2024-01-02T15:04:06+00:00","msg":"start http","caller":"http.go:1"}
{"level":"DEBUG","ts":"2024-01-02T15:04:07+00:00","msg":"config loaded","file":"app.yaml"}
{"level":"WARN","ts":"2024-01-02T15:04:08+00:00","msg":"restart scheduled"}
{"level":"ERROR","ts":"2024-01-02T15:04:09+00:00","msg":"stop","caller":"main.go:9"}
`

func newTestModel(t *testing.T) *Model {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte(fixture), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	sess := session.New()
	if err := sess.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.General.ExportDir = filepath.Join(dir, "exports")

	m, err := NewModel(context.Background(), cfg, sess, nil)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	t.Cleanup(m.Stop)

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 20})
	return m
}

func press(m *Model, keys ...tea.KeyMsg) {
	for _, k := range keys {
		m.Update(k)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestHeaderCounts(t *testing.T) {
	m := newTestModel(t)

	view := m.View()
	if !strings.Contains(view, "Filtered 5 from total 5") {
		t.Errorf("Expected counts in header, got:\n%s", view)
	}
	if !strings.Contains(view, "restart scheduled") {
		t.Errorf("Expected rows in view, got:\n%s", view)
	}
}

func TestFilterEditor(t *testing.T) {
	m := newTestModel(t)

	press(m, runes("f"))
	if m.mode != ModeFilter {
		t.Fatalf("Expected filter mode, got %v", m.mode)
	}

	// toggle DEBUG off
	press(m, tea.KeyMsg{Type: tea.KeySpace})
	if m.session.VisibleCount() != 4 {
		t.Errorf("Expected 4 visible after disabling DEBUG, got %d", m.session.VisibleCount())
	}

	// five level toggles precede the message input
	for i := 0; i < len(models.KnownLevels); i++ {
		press(m, tea.KeyMsg{Type: tea.KeyTab})
	}
	press(m, runes("STOP"))
	if m.session.VisibleCount() != 1 {
		t.Errorf("Expected 1 visible after message filter, got %d", m.session.VisibleCount())
	}

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != ModeTable {
		t.Errorf("Expected table mode after esc, got %v", m.mode)
	}
	if !strings.Contains(m.View(), "Filtered 1 from total 5") {
		t.Errorf("Unexpected header:\n%s", m.View())
	}

	press(m, runes("c"))
	if m.session.VisibleCount() != 5 {
		t.Errorf("Expected reset filter to show 5, got %d", m.session.VisibleCount())
	}
}

func TestSearchNavigation(t *testing.T) {
	m := newTestModel(t)

	m.session.SetSearch(models.FieldMessage, "start")
	m.session.SetSearchLevel(models.LevelInfo, true)
	m.session.SetSearchLevel(models.LevelWarning, true)

	press(m, runes("n"))
	if m.cursor != 3 {
		t.Errorf("Expected cursor on second match (3), got %d", m.cursor)
	}

	press(m, runes("<"))
	if m.cursor != 1 {
		t.Errorf("Expected cursor on first match (1), got %d", m.cursor)
	}

	// previous at the first match is a no-op
	press(m, runes("N"))
	if m.cursor != 1 {
		t.Errorf("Expected cursor to stay at 1, got %d", m.cursor)
	}

	if !strings.Contains(m.View(), "Match 1/2") {
		t.Errorf("Expected match counter, got:\n%s", m.View())
	}
}

func TestSelectionAndExport(t *testing.T) {
	m := newTestModel(t)

	press(m, runes("j"), tea.KeyMsg{Type: tea.KeySpace}, runes("j"), tea.KeyMsg{Type: tea.KeySpace})
	if got := m.session.Selection(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Expected selection [1 2], got %v", got)
	}

	press(m, runes("e"))
	entries, err := os.ReadDir(m.config.General.ExportDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Expected one export file, got %v (%v)", entries, err)
	}
	data, err := os.ReadFile(filepath.Join(m.config.General.ExportDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("Expected 2 exported lines, got %d", n)
	}
}

func TestDetailAndHelp(t *testing.T) {
	m := newTestModel(t)

	press(m, runes("j"), runes("j"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != ModeDetail {
		t.Fatalf("Expected detail mode, got %v", m.mode)
	}
	if !strings.Contains(m.View(), "app.yaml") {
		t.Errorf("Expected payload in detail view, got:\n%s", m.View())
	}

	press(m, tea.KeyMsg{Type: tea.KeyEsc}, runes("?"))
	if m.mode != ModeHelp {
		t.Errorf("Expected help mode, got %v", m.mode)
	}
}

func TestSearchEditorLevelHint(t *testing.T) {
	m := newTestModel(t)

	press(m, runes("/"))
	for i := 0; i < len(models.KnownLevels); i++ {
		press(m, tea.KeyMsg{Type: tea.KeyTab})
	}
	press(m, runes("start"))

	if m.session.Search().Len() != 0 {
		t.Fatalf("Expected no matches with every level off, got %v", m.session.Search().Matches)
	}
	if !strings.Contains(m.View(), noLevelsHint) {
		t.Errorf("Expected level hint in view, got:\n%s", m.View())
	}

	// back to the INFO toggle
	for i := 0; i < len(models.KnownLevels)-1; i++ {
		press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	}
	press(m, tea.KeyMsg{Type: tea.KeySpace})

	if got := m.session.Search().Matches; len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected match [1], got %v", got)
	}
	if strings.Contains(m.View(), noLevelsHint) {
		t.Error("Expected hint to disappear once a level is enabled")
	}
}
