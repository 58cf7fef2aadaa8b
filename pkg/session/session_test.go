package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/loganalyzer/lvx/pkg/models"
)

const fixture = `{"level":"INFO","ts":"2024-01-02T15:04:05+00:00","msg":"boot"}
{"level":"INFO","ts":"2024-01-02T15:04:06+00:00","msg":"start http","caller":"http.go:1"}
{"level":"DEBUG","ts":"2024-01-02T15:04:07+00:00","msg":"config loaded","file":"app.yaml"}
{"level":"WARN","ts":"2024-01-02T15:04:08+00:00","msg":"restart scheduled"}
{"level":"ERROR","ts":"2024-01-02T15:04:09+00:00","msg":"stop","caller":"main.go:9"}
broken line
`

func loadedSession(t *testing.T) (*Session, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(fixture), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	s := New()
	if err := s.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	return s, path
}

func TestLoadFile(t *testing.T) {
	s, path := loadedSession(t)

	if s.Path() != path {
		t.Errorf("Expected path %s, got %s", path, s.Path())
	}
	if s.TotalCount() != 5 || s.VisibleCount() != 5 {
		t.Errorf("Expected 5 total and visible, got %d/%d", s.TotalCount(), s.VisibleCount())
	}
	if s.Stats().Dropped != 1 {
		t.Errorf("Expected 1 dropped line, got %d", s.Stats().Dropped)
	}
	if s.Search().Len() != 0 {
		t.Errorf("Expected idle search to have no matches, got %d", s.Search().Len())
	}
	if s.ID() == "" {
		t.Error("Expected a session ID")
	}
}

func TestReloadWithoutFile(t *testing.T) {
	s := New()

	if err := s.Reload(); !errors.Is(err, ErrNoFile) {
		t.Errorf("Expected ErrNoFile, got %v", err)
	}
}

func TestReloadFailurePreservesState(t *testing.T) {
	s, path := loadedSession(t)
	s.SetFilterLevel(models.LevelDebug, false)
	s.ToggleSelection(0)

	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove fixture: %v", err)
	}

	if err := s.Reload(); err == nil {
		t.Fatal("Expected reload of a removed file to fail")
	}

	if s.TotalCount() != 5 || s.VisibleCount() != 4 {
		t.Errorf("Expected prior state 5/4, got %d/%d", s.TotalCount(), s.VisibleCount())
	}
	if s.FilterState().Debug {
		t.Error("Expected filter to be untouched by the failed reload")
	}
	if !s.IsSelected(0) {
		t.Error("Expected selection to be untouched by the failed reload")
	}
}

func TestReloadResetsFilterAndKeepsSearch(t *testing.T) {
	s, _ := loadedSession(t)
	s.SetFilter(models.FieldMessage, "stop")
	s.SetSearchLevel(models.LevelError, true)
	s.ToggleSelection(0)

	if err := s.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if s.FilterState() != models.DefaultFilterState() {
		t.Errorf("Expected default filter after reload, got %+v", s.FilterState())
	}
	if !s.SearchState().Error {
		t.Error("Expected search state to survive reload")
	}
	if got := s.Search().Matches; len(got) != 1 || got[0] != 4 {
		t.Errorf("Expected search re-run against the new visible set, got %v", got)
	}
	if len(s.Selection()) != 0 {
		t.Errorf("Expected selection cleared on reload, got %v", s.Selection())
	}
}

func TestFilterCascadesToSearch(t *testing.T) {
	s, _ := loadedSession(t)
	s.SetSearch(models.FieldMessage, "st")
	s.SetSearchLevel(models.LevelInfo, true)
	s.SetSearchLevel(models.LevelWarning, true)
	s.SetSearchLevel(models.LevelError, true)

	// start http(1), restart scheduled(3), stop(4)
	if got := s.Search().Matches; len(got) != 3 {
		t.Fatalf("Expected 3 matches, got %v", got)
	}

	if _, ok := s.Navigate(models.Last); !ok {
		t.Fatal("Expected last to move the cursor")
	}

	s.ToggleFilterLevel(models.LevelInfo)

	if s.Search().Cursor != 0 {
		t.Errorf("Expected filter change to rerun the search and reset the cursor, got %d", s.Search().Cursor)
	}
	if s.VisibleCount() != 3 {
		t.Errorf("Expected 3 visible records, got %d", s.VisibleCount())
	}
	// config loaded(0), restart scheduled(1), stop(2)
	if got := s.Search().Matches; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Expected matches [1 2], got %v", got)
	}
}

func TestSearchDoesNotRecomputeVisible(t *testing.T) {
	s, _ := loadedSession(t)

	before := &s.Visible()[0]
	s.ToggleSelection(2)
	s.SetSearch(models.FieldCaller, "main")

	if &s.Visible()[0] != before {
		t.Error("Expected search change to leave the visible set alone")
	}
	if !s.IsSelected(2) {
		t.Error("Expected search change to keep the selection")
	}
	if s.SearchState().Caller != "main" {
		t.Errorf("Expected caller needle to be stored, got %q", s.SearchState().Caller)
	}

	// with every level flag off only Unknown records can match
	if s.Search().Len() != 0 {
		t.Errorf("Expected no matches, got %v", s.Search().Matches)
	}

	s.ToggleSearchLevel(models.LevelError)
	if got := s.Search().Matches; len(got) != 1 || got[0] != 4 {
		t.Errorf("Expected match [4], got %v", got)
	}

	s.ClearSearch()
	if s.Search().Len() != 0 || !s.SearchState().IsIdle() {
		t.Error("Expected cleared search to be idle")
	}
}

func TestNavigateAndScrollTarget(t *testing.T) {
	s, _ := loadedSession(t)
	s.SetSearch(models.FieldMessage, "start")
	s.SetSearchLevel(models.LevelInfo, true)
	s.SetSearchLevel(models.LevelWarning, true)

	target, ok := s.Navigate(models.Next)
	if !ok || target != 3 {
		t.Errorf("Expected next to target 3, got %d (ok=%v)", target, ok)
	}
	if got, ok := s.TakeScrollTarget(); !ok || got != 3 {
		t.Errorf("Expected scroll target 3, got %d (ok=%v)", got, ok)
	}
	if _, ok := s.TakeScrollTarget(); ok {
		t.Error("Expected scroll target to be consumed once")
	}
	if _, ok := s.Navigate(models.Next); ok {
		t.Error("Expected next at the last match to be a no-op")
	}
}

func TestSelection(t *testing.T) {
	s, _ := loadedSession(t)

	if !s.ToggleSelection(3) || !s.ToggleSelection(1) {
		t.Fatal("Expected rows to become selected")
	}
	if s.ToggleSelection(99) {
		t.Error("Expected out of range selection to be ignored")
	}

	got := s.Selection()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Expected selection [1 3], got %v", got)
	}

	records := s.SelectedRecords()
	if len(records) != 2 || records[0].Message != "start http" || records[1].Message != "restart scheduled" {
		t.Errorf("Unexpected selected records %+v", records)
	}

	s.SetSearchLevel(models.LevelInfo, true)
	if len(s.Selection()) != 2 {
		t.Error("Expected search change to keep the selection")
	}

	if s.ToggleSelection(3) {
		t.Error("Expected second toggle to deselect")
	}

	s.SetFilter(models.FieldPayload, "")
	if len(s.Selection()) != 0 {
		t.Error("Expected filter change to clear the selection")
	}

	s.ToggleSelection(0)
	s.ClearSelection()
	if s.IsSelected(0) {
		t.Error("Expected ClearSelection to deselect every row")
	}
}

func TestResetFilter(t *testing.T) {
	s, _ := loadedSession(t)
	s.SetFilter(models.FieldCaller, "go")
	if s.VisibleCount() != 2 {
		t.Errorf("Expected 2 visible records, got %d", s.VisibleCount())
	}

	s.ResetFilter()
	if s.VisibleCount() != 5 {
		t.Errorf("Expected all records visible after reset, got %d", s.VisibleCount())
	}
}
