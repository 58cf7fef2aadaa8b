package models

import (
	"time"
)

// Level is the closed set of record severities plus Unknown
type Level int

const (
	LevelUnknown Level = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelPanic
)

// KnownLevels lists the levels that have a filter/search flag, in display order
var KnownLevels = []Level{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelPanic}

// ParseLevel maps a level token to a Level. Matching is exact and case-sensitive.
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN":
		return LevelWarning
	case "ERROR":
		return LevelError
	case "PANIC":
		return LevelPanic
	default:
		return LevelUnknown
	}
}

// String returns the level token, or "N/A" for Unknown
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelPanic:
		return "PANIC"
	default:
		return "N/A"
	}
}

// DefaultTimestamp is assigned when a record's ts field cannot be parsed
var DefaultTimestamp = time.Unix(0, 0).UTC()

// LogRecord represents one parsed log line. Records are never mutated after ingestion.
type LogRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Caller    string    `json:"caller"`
	Payload   string    `json:"payload"` // normalized extra fields, "" when none
	Line      int       `json:"line"`    // 1-based line number in the source file
}

// HasDefaultTimestamp reports whether the record's timestamp failed to parse
func (r *LogRecord) HasDefaultTimestamp() bool {
	return r.Timestamp.Equal(DefaultTimestamp)
}

// Field names a text predicate of FilterState/SearchState
type Field int

const (
	FieldMessage Field = iota
	FieldPayload
	FieldCaller
)

// Fields lists the text predicates in display order
var Fields = []Field{FieldMessage, FieldPayload, FieldCaller}

func (f Field) String() string {
	switch f {
	case FieldMessage:
		return "Message"
	case FieldPayload:
		return "Payload"
	case FieldCaller:
		return "Caller"
	default:
		return "Unknown"
	}
}

// Predicate holds per-level flags and case-insensitive substrings.
// FilterState and SearchState share this shape but not their defaults.
type Predicate struct {
	Debug   bool `json:"debug"`
	Info    bool `json:"info"`
	Warning bool `json:"warning"`
	Error   bool `json:"error"`
	Panic   bool `json:"panic"`

	Message string `json:"message"`
	Payload string `json:"payload"`
	Caller  string `json:"caller"`
}

// LevelEnabled reports whether records of the given level pass the level gate.
// Unknown always passes.
func (p Predicate) LevelEnabled(l Level) bool {
	switch l {
	case LevelDebug:
		return p.Debug
	case LevelInfo:
		return p.Info
	case LevelWarning:
		return p.Warning
	case LevelError:
		return p.Error
	case LevelPanic:
		return p.Panic
	default:
		return true
	}
}

// SetLevel sets the flag of a known level; Unknown is ignored
func (p *Predicate) SetLevel(l Level, on bool) {
	switch l {
	case LevelDebug:
		p.Debug = on
	case LevelInfo:
		p.Info = on
	case LevelWarning:
		p.Warning = on
	case LevelError:
		p.Error = on
	case LevelPanic:
		p.Panic = on
	}
}

// Text returns the substring predicate for a field
func (p Predicate) Text(f Field) string {
	switch f {
	case FieldMessage:
		return p.Message
	case FieldPayload:
		return p.Payload
	case FieldCaller:
		return p.Caller
	default:
		return ""
	}
}

// SetText sets the substring predicate for a field
func (p *Predicate) SetText(f Field, value string) {
	switch f {
	case FieldMessage:
		p.Message = value
	case FieldPayload:
		p.Payload = value
	case FieldCaller:
		p.Caller = value
	}
}

// IsIdle reports whether every flag is off and every substring is empty
func (p Predicate) IsIdle() bool {
	return !p.Debug && !p.Info && !p.Warning && !p.Error && !p.Panic &&
		p.Message == "" && p.Payload == "" && p.Caller == ""
}

// FilterState is the primary predicate deriving the visible set
type FilterState struct {
	Predicate
}

// DefaultFilterState returns the "match everything" filter
func DefaultFilterState() FilterState {
	return FilterState{Predicate{Debug: true, Info: true, Warning: true, Error: true, Panic: true}}
}

// SearchState is the secondary predicate applied to the visible set.
// The zero value is the idle "match nothing" search.
type SearchState struct {
	Predicate
}

// Direction is a search navigation command
type Direction int

const (
	First Direction = iota
	Previous
	Next
	Last
)

func (d Direction) String() string {
	switch d {
	case First:
		return "first"
	case Previous:
		return "previous"
	case Next:
		return "next"
	case Last:
		return "last"
	default:
		return "unknown"
	}
}
