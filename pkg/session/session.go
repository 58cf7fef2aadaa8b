package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/loganalyzer/lvx/pkg/filter"
	"github.com/loganalyzer/lvx/pkg/loader"
	"github.com/loganalyzer/lvx/pkg/models"
	"github.com/loganalyzer/lvx/pkg/search"
	"github.com/rs/zerolog/log"
)

// ErrNoFile is returned by Reload before any file has been loaded
var ErrNoFile = errors.New("no file loaded")

// Session owns the viewer state: the loaded records, the filter and the
// visible set it derives, the search over that visible set, and the user's
// row selection. It is not safe for concurrent use.
type Session struct {
	id    string
	path  string
	stats loader.Stats

	records []models.LogRecord
	filter  models.FilterState
	visible []models.LogRecord
	search  models.SearchState
	result  *search.Result

	selection map[int]struct{}
}

// New creates an empty session with the default filter and an idle search
func New() *Session {
	return &Session{
		id:        uuid.NewString(),
		filter:    models.DefaultFilterState(),
		result:    &search.Result{},
		selection: make(map[int]struct{}),
	}
}

// ID returns the session identifier used in logs and export metadata
func (s *Session) ID() string {
	return s.id
}

// LoadFile replaces the records with the contents of path and resets the
// filter. The search state is kept and re-run. On error nothing changes.
func (s *Session) LoadFile(path string) error {
	records, stats, err := loader.Load(path)
	if err != nil {
		log.Warn().Err(err).Str("session", s.id).Str("path", path).Msg("load failed")
		return err
	}

	filterState := models.DefaultFilterState()
	visible := filter.Visible(records, filterState)
	result := search.Find(visible, s.search)

	s.path = path
	s.stats = stats
	s.records = records
	s.filter = filterState
	s.visible = visible
	s.result = result
	s.selection = make(map[int]struct{})

	log.Info().
		Str("session", s.id).
		Str("path", path).
		Int("records", len(records)).
		Int("dropped", stats.Dropped).
		Msg("file loaded")

	return nil
}

// Reload loads the current path again
func (s *Session) Reload() error {
	if s.path == "" {
		return ErrNoFile
	}
	if err := s.LoadFile(s.path); err != nil {
		return fmt.Errorf("reload %s: %w", s.path, err)
	}
	return nil
}

// SetFilter sets one substring predicate of the filter
func (s *Session) SetFilter(field models.Field, value string) {
	next := s.filter
	next.SetText(field, value)
	s.applyFilter(next)
}

// SetFilterLevel sets one level flag of the filter
func (s *Session) SetFilterLevel(level models.Level, on bool) {
	next := s.filter
	next.SetLevel(level, on)
	s.applyFilter(next)
}

// ToggleFilterLevel flips one level flag of the filter
func (s *Session) ToggleFilterLevel(level models.Level) {
	s.SetFilterLevel(level, !s.filter.LevelEnabled(level))
}

// ResetFilter restores the match-everything filter
func (s *Session) ResetFilter() {
	s.applyFilter(models.DefaultFilterState())
}

// SetSearch sets one substring predicate of the search
func (s *Session) SetSearch(field models.Field, value string) {
	next := s.search
	next.SetText(field, value)
	s.applySearch(next)
}

// SetSearchLevel sets one level flag of the search
func (s *Session) SetSearchLevel(level models.Level, on bool) {
	next := s.search
	next.SetLevel(level, on)
	s.applySearch(next)
}

// ToggleSearchLevel flips one level flag of the search
func (s *Session) ToggleSearchLevel(level models.Level) {
	s.SetSearchLevel(level, !s.search.LevelEnabled(level))
}

// ClearSearch returns the search to its idle state
func (s *Session) ClearSearch() {
	s.applySearch(models.SearchState{})
}

// applyFilter derives the visible set and cascades into the search
func (s *Session) applyFilter(state models.FilterState) {
	visible := filter.Visible(s.records, state)
	result := search.Find(visible, s.search)

	s.filter = state
	s.visible = visible
	s.result = result
	s.selection = make(map[int]struct{})
}

func (s *Session) applySearch(state models.SearchState) {
	result := search.Find(s.visible, state)

	s.search = state
	s.result = result
}

// Navigate moves the search cursor; see search.Result.Navigate
func (s *Session) Navigate(dir models.Direction) (int, bool) {
	return s.result.Navigate(dir)
}

// TakeScrollTarget returns the pending scroll target once
func (s *Session) TakeScrollTarget() (int, bool) {
	return s.result.TakeScrollTarget()
}

// ToggleSelection flips the selection of a visible row and reports whether
// it is now selected. Out of range indices are ignored.
func (s *Session) ToggleSelection(visibleIndex int) bool {
	if visibleIndex < 0 || visibleIndex >= len(s.visible) {
		return false
	}
	if _, ok := s.selection[visibleIndex]; ok {
		delete(s.selection, visibleIndex)
		return false
	}
	s.selection[visibleIndex] = struct{}{}
	return true
}

// IsSelected reports whether a visible row is selected
func (s *Session) IsSelected(visibleIndex int) bool {
	_, ok := s.selection[visibleIndex]
	return ok
}

// Selection returns the selected visible indices in ascending order
func (s *Session) Selection() []int {
	indices := make([]int, 0, len(s.selection))
	for i := range s.selection {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// SelectedRecords returns the selected records in visible order
func (s *Session) SelectedRecords() []models.LogRecord {
	indices := s.Selection()
	records := make([]models.LogRecord, 0, len(indices))
	for _, i := range indices {
		records = append(records, s.visible[i])
	}
	return records
}

// ClearSelection deselects every row
func (s *Session) ClearSelection() {
	if len(s.selection) > 0 {
		s.selection = make(map[int]struct{})
	}
}

// Visible returns the visible set. The slice must not be modified.
func (s *Session) Visible() []models.LogRecord { return s.visible }

// Records returns every loaded record. The slice must not be modified.
func (s *Session) Records() []models.LogRecord { return s.records }

// Search returns a snapshot of the current search result
func (s *Session) Search() search.Result { return *s.result }

func (s *Session) TotalCount() int                 { return len(s.records) }
func (s *Session) VisibleCount() int               { return len(s.visible) }
func (s *Session) Path() string                    { return s.path }
func (s *Session) Stats() loader.Stats             { return s.stats }
func (s *Session) FilterState() models.FilterState { return s.filter }
func (s *Session) SearchState() models.SearchState { return s.search }
