package parser

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loganalyzer/lvx/pkg/models"
	"github.com/valyala/fastjson"
)

// Reserved keys of a log line. Every other key belongs to the payload.
const (
	KeyLevel   = "level"
	KeyTime    = "ts"
	KeyMessage = "msg"
	KeyCaller  = "caller"
)

// timestampLayouts accept an optional fractional second after the seconds
// field; the offset must be numeric.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05-0700",
}

// LogParser turns JSON lines into log records. A LogParser reuses its decoder
// between calls and must not be shared between goroutines.
type LogParser struct {
	json fastjson.Parser
	buf  []byte
}

// New creates a new LogParser
func New() *LogParser {
	return &LogParser{}
}

// ParseLine decodes one line. It returns false when the line is not a JSON
// object or when a reserved field is missing or not a string.
func (p *LogParser) ParseLine(text string) (models.LogRecord, bool) {
	text = strings.TrimSuffix(text, "\r")

	v, err := p.json.Parse(text)
	if err != nil {
		return models.LogRecord{}, false
	}

	obj, err := v.Object()
	if err != nil {
		return models.LogRecord{}, false
	}

	level, ok := stringField(obj, KeyLevel)
	if !ok {
		return models.LogRecord{}, false
	}
	ts, ok := stringField(obj, KeyTime)
	if !ok {
		return models.LogRecord{}, false
	}
	msg, ok := stringField(obj, KeyMessage)
	if !ok {
		return models.LogRecord{}, false
	}

	var caller string
	if obj.Get(KeyCaller) != nil {
		if caller, ok = stringField(obj, KeyCaller); !ok {
			return models.LogRecord{}, false
		}
	}

	return models.LogRecord{
		Timestamp: ParseTimestamp(ts),
		Level:     models.ParseLevel(level),
		Message:   msg,
		Caller:    caller,
		Payload:   p.payload(obj),
	}, true
}

// payload renders the non-reserved members of obj, or "" when there are none
func (p *LogParser) payload(obj *fastjson.Object) string {
	ms := members(obj, isReserved)
	if len(ms) == 0 {
		return ""
	}
	p.buf = appendMembers(p.buf[:0], ms)
	return string(p.buf)
}

// ParseTimestamp parses a ts value, falling back to models.DefaultTimestamp
func ParseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return models.DefaultTimestamp
}

// Normalize renders a JSON object with its keys sorted at every depth.
// An empty object renders as "".
func Normalize(raw string) (string, error) {
	var p fastjson.Parser
	v, err := p.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	obj, err := v.Object()
	if err != nil {
		return "", fmt.Errorf("not a JSON object: %w", err)
	}

	ms := members(obj, nil)
	if len(ms) == 0 {
		return "", nil
	}
	return string(appendMembers(nil, ms)), nil
}

func isReserved(key string) bool {
	switch key {
	case KeyLevel, KeyTime, KeyMessage, KeyCaller:
		return true
	}
	return false
}

func stringField(obj *fastjson.Object, key string) (string, bool) {
	v := obj.Get(key)
	if v == nil || v.Type() != fastjson.TypeString {
		return "", false
	}
	b, err := v.StringBytes()
	if err != nil {
		return "", false
	}
	return string(b), true
}

type member struct {
	key   string
	value *fastjson.Value
}

// members collects the object's key/value pairs sorted by key bytes.
// A repeated key keeps its last value.
func members(obj *fastjson.Object, skip func(string) bool) []member {
	index := make(map[string]int, obj.Len())
	ms := make([]member, 0, obj.Len())

	obj.Visit(func(key []byte, v *fastjson.Value) {
		k := string(key)
		if skip != nil && skip(k) {
			return
		}
		if i, exists := index[k]; exists {
			ms[i].value = v
			return
		}
		index[k] = len(ms)
		ms = append(ms, member{key: k, value: v})
	})

	sort.Slice(ms, func(i, j int) bool { return ms[i].key < ms[j].key })
	return ms
}

func appendMembers(dst []byte, ms []member) []byte {
	dst = append(dst, '{')
	for i, m := range ms {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = AppendQuoted(dst, m.key)
		dst = append(dst, ':')
		dst = appendValue(dst, m.value)
	}
	return append(dst, '}')
}

func appendValue(dst []byte, v *fastjson.Value) []byte {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		return appendMembers(dst, members(obj, nil))

	case fastjson.TypeArray:
		items, _ := v.Array()
		dst = append(dst, '[')
		for i, item := range items {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendValue(dst, item)
		}
		return append(dst, ']')

	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return AppendQuoted(dst, string(b))

	default:
		// numbers keep their literal text
		return v.MarshalTo(dst)
	}
}

const hexDigits = "0123456789abcdef"

// AppendQuoted appends s as a JSON string literal. Only quotes, backslashes
// and control characters are escaped.
func AppendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			dst = append(dst, '\\', c)
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		default:
			if c < 0x20 {
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			} else {
				dst = append(dst, c)
			}
		}
	}
	return append(dst, '"')
}
