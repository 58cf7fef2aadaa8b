package search

import (
	"github.com/loganalyzer/lvx/pkg/filter"
	"github.com/loganalyzer/lvx/pkg/models"
)

// Result holds the visible-set indices matching a search plus a cursor
// into them. Cursor is 0 when there are no matches.
type Result struct {
	Matches []int
	Cursor  int

	target  int
	pending bool
}

// Find runs state against the visible set. An idle state yields an empty result.
func Find(visible []models.LogRecord, state models.SearchState) *Result {
	if state.IsIdle() {
		return &Result{}
	}
	return &Result{Matches: filter.Indices(visible, state.Predicate)}
}

// Len returns the number of matches
func (r Result) Len() int {
	return len(r.Matches)
}

// Current returns the visible index under the cursor
func (r Result) Current() (int, bool) {
	if len(r.Matches) == 0 {
		return 0, false
	}
	return r.Matches[r.Cursor], true
}

// IsMatch reports whether a visible index is one of the matches
func (r Result) IsMatch(visibleIndex int) bool {
	lo, hi := 0, len(r.Matches)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		switch {
		case r.Matches[mid] == visibleIndex:
			return true
		case r.Matches[mid] < visibleIndex:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}

// Navigate moves the cursor. It returns the visible index to scroll to and
// false when the move was a no-op; a no-op also drops any pending target.
func (r *Result) Navigate(dir models.Direction) (int, bool) {
	n := len(r.Matches)
	moved := false

	switch dir {
	case models.First:
		if n > 0 {
			r.Cursor = 0
			moved = true
		}
	case models.Last:
		if n > 0 {
			r.Cursor = n - 1
			moved = true
		}
	case models.Next:
		if n > 0 && r.Cursor < n-1 {
			r.Cursor++
			moved = true
		}
	case models.Previous:
		if n > 0 && r.Cursor > 0 {
			r.Cursor--
			moved = true
		}
	}

	if !moved {
		r.pending = false
		return 0, false
	}

	r.target = r.Matches[r.Cursor]
	r.pending = true
	return r.target, true
}

// TakeScrollTarget returns the pending scroll target once
func (r *Result) TakeScrollTarget() (int, bool) {
	if !r.pending {
		return 0, false
	}
	r.pending = false
	return r.target, true
}
