package filter

import (
	"strings"

	"github.com/loganalyzer/lvx/pkg/models"
)

// CompiledQuery is a predicate prepared for repeated matching
type CompiledQuery struct {
	levels  models.Predicate
	message string
	payload string
	caller  string
}

// Compile lower-cases the substring predicates once so that matching a whole
// store does not repeat the work per record
func Compile(p models.Predicate) *CompiledQuery {
	return &CompiledQuery{
		levels:  p,
		message: strings.ToLower(p.Message),
		payload: strings.ToLower(p.Payload),
		caller:  strings.ToLower(p.Caller),
	}
}

// Match reports whether the record passes the level gate and every
// substring predicate
func (q *CompiledQuery) Match(r *models.LogRecord) bool {
	if !q.levels.LevelEnabled(r.Level) {
		return false
	}
	return containsFold(r.Message, q.message) &&
		containsFold(r.Payload, q.payload) &&
		containsFold(r.Caller, q.caller)
}

// Matches evaluates a single record against p
func Matches(r *models.LogRecord, p models.Predicate) bool {
	return Compile(p).Match(r)
}

// Visible returns the records that satisfy state, in store order
func Visible(records []models.LogRecord, state models.FilterState) []models.LogRecord {
	q := Compile(state.Predicate)

	visible := make([]models.LogRecord, 0, len(records))
	for i := range records {
		if q.Match(&records[i]) {
			visible = append(visible, records[i])
		}
	}
	return visible
}

// Indices returns the positions of the records that satisfy p, ascending
func Indices(records []models.LogRecord, p models.Predicate) []int {
	q := Compile(p)

	var indices []int
	for i := range records {
		if q.Match(&records[i]) {
			indices = append(indices, i)
		}
	}
	return indices
}

// containsFold reports whether s contains the already lower-cased needle
func containsFold(s, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), needle)
}
