package highlighter

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/loganalyzer/lvx/pkg/models"
)

// Highlighter provides the styles used to render records
type Highlighter struct {
	theme  Theme
	styles map[string]lipgloss.Style
}

// Theme represents a color theme
type Theme struct {
	Name       string
	Background lipgloss.Color
	Foreground lipgloss.Color
	Colors     map[string]lipgloss.Color
	// Syntax is the chroma style used for payloads; empty disables highlighting
	Syntax string
}

// Predefined themes
var (
	DarkTheme = Theme{
		Name:       "dark",
		Background: lipgloss.Color("#1e1e1e"),
		Foreground: lipgloss.Color("#d4d4d4"),
		Syntax:     "monokai",
		Colors: map[string]lipgloss.Color{
			"timestamp":   lipgloss.Color("#4fc1ff"),
			"level_na":    lipgloss.Color("#505050"),
			"level_debug": lipgloss.Color("#0a0af0"),
			"level_info":  lipgloss.Color("#0af00a"),
			"level_warn":  lipgloss.Color("#f0f00a"),
			"level_error": lipgloss.Color("#f03c0a"),
			"level_panic": lipgloss.Color("#f00a0a"),
			"caller":      lipgloss.Color("#ce9178"),
			"payload":     lipgloss.Color("#6a9955"),
			"header":      lipgloss.Color("#569cd6"),
			"match":       lipgloss.Color("#dcdcaa"),
			"cursor":      lipgloss.Color("#264f78"),
			"selected":    lipgloss.Color("#3a3d41"),
			"status":      lipgloss.Color("#9cdcfe"),
			"error_text":  lipgloss.Color("#f44747"),
			"border":      lipgloss.Color("#404040"),
		},
	}

	LightTheme = Theme{
		Name:       "light",
		Background: lipgloss.Color("#ffffff"),
		Foreground: lipgloss.Color("#333333"),
		Syntax:     "github",
		Colors: map[string]lipgloss.Color{
			"timestamp":   lipgloss.Color("#0969da"),
			"level_na":    lipgloss.Color("#656d76"),
			"level_debug": lipgloss.Color("#0550ae"),
			"level_info":  lipgloss.Color("#1f883d"),
			"level_warn":  lipgloss.Color("#9a6700"),
			"level_error": lipgloss.Color("#bc4c00"),
			"level_panic": lipgloss.Color("#d1242f"),
			"caller":      lipgloss.Color("#6639ba"),
			"payload":     lipgloss.Color("#0a3069"),
			"header":      lipgloss.Color("#0969da"),
			"match":       lipgloss.Color("#bf8700"),
			"cursor":      lipgloss.Color("#ddf4ff"),
			"selected":    lipgloss.Color("#eaeef2"),
			"status":      lipgloss.Color("#0550ae"),
			"error_text":  lipgloss.Color("#d1242f"),
			"border":      lipgloss.Color("#d0d7de"),
		},
	}

	MonochromeTheme = Theme{
		Name:       "monochrome",
		Background: lipgloss.Color("#000000"),
		Foreground: lipgloss.Color("#ffffff"),
		Colors: map[string]lipgloss.Color{
			"timestamp":   lipgloss.Color("#ffffff"),
			"level_na":    lipgloss.Color("#808080"),
			"level_debug": lipgloss.Color("#ffffff"),
			"level_info":  lipgloss.Color("#ffffff"),
			"level_warn":  lipgloss.Color("#ffffff"),
			"level_error": lipgloss.Color("#ffffff"),
			"level_panic": lipgloss.Color("#ffffff"),
			"caller":      lipgloss.Color("#ffffff"),
			"payload":     lipgloss.Color("#ffffff"),
			"header":      lipgloss.Color("#ffffff"),
			"match":       lipgloss.Color("#ffffff"),
			"cursor":      lipgloss.Color("#808080"),
			"selected":    lipgloss.Color("#404040"),
			"status":      lipgloss.Color("#ffffff"),
			"error_text":  lipgloss.Color("#ffffff"),
			"border":      lipgloss.Color("#808080"),
		},
	}
)

// New creates a new Highlighter with the named theme; unknown names fall back to dark
func New(themeName string) *Highlighter {
	h := &Highlighter{}
	h.SetTheme(themeName)
	return h
}

// SetTheme changes the current theme
func (h *Highlighter) SetTheme(themeName string) {
	switch themeName {
	case "light":
		h.theme = LightTheme
	case "monochrome":
		h.theme = MonochromeTheme
	default:
		h.theme = DarkTheme
	}
	h.buildStyles()
}

// Theme returns the active theme
func (h *Highlighter) Theme() Theme {
	return h.theme
}

// GetAvailableThemes returns the list of available themes
func (h *Highlighter) GetAvailableThemes() []string {
	return []string{"dark", "light", "monochrome"}
}

func (h *Highlighter) buildStyles() {
	h.styles = make(map[string]lipgloss.Style, len(h.theme.Colors))
	for key, color := range h.theme.Colors {
		h.styles[key] = lipgloss.NewStyle().Foreground(color)
	}

	for _, key := range []string{"level_na", "level_debug", "level_info", "level_warn", "level_error", "level_panic", "header"} {
		h.styles[key] = h.styles[key].Bold(true)
	}
	h.styles["match"] = h.styles["match"].Bold(true).Underline(true)
	h.styles["cursor"] = lipgloss.NewStyle().Background(h.theme.Colors["cursor"])
	h.styles["selected"] = lipgloss.NewStyle().Background(h.theme.Colors["selected"])
}

// Style returns the style registered under key, or the plain foreground style
func (h *Highlighter) Style(key string) lipgloss.Style {
	if style, ok := h.styles[key]; ok {
		return style
	}
	return lipgloss.NewStyle().Foreground(h.theme.Foreground)
}

// LevelStyle returns the style of a level badge
func (h *Highlighter) LevelStyle(l models.Level) lipgloss.Style {
	return h.Style(levelKey(l))
}

// RenderLevel renders the level token in its color
func (h *Highlighter) RenderLevel(l models.Level) string {
	return h.LevelStyle(l).Render(l.String())
}

func levelKey(l models.Level) string {
	switch l {
	case models.LevelDebug:
		return "level_debug"
	case models.LevelInfo:
		return "level_info"
	case models.LevelWarning:
		return "level_warn"
	case models.LevelError:
		return "level_error"
	case models.LevelPanic:
		return "level_panic"
	default:
		return "level_na"
	}
}

// span is a byte range of text to be styled
type span struct {
	start, end int
}

// Mark renders text with base, emphasising every case-insensitive
// occurrence of any of the needles with the match style
func (h *Highlighter) Mark(text string, base lipgloss.Style, needles ...string) string {
	spans := findSpans(text, needles...)
	if len(spans) == 0 {
		return base.Render(text)
	}
	return h.applyStyles(text, spans, base, h.Style("match"))
}

// findSpans locates the needles in text ignoring case and returns sorted,
// non-overlapping spans. Texts whose lower-cased form changes length are
// left unmarked since offsets would not line up.
func findSpans(text string, needles ...string) []span {
	if text == "" {
		return nil
	}

	lowerText := strings.ToLower(text)
	if len(lowerText) != len(text) {
		return nil
	}

	var spans []span
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		lowerNeedle := strings.ToLower(needle)
		offset := 0
		for {
			i := strings.Index(lowerText[offset:], lowerNeedle)
			if i < 0 {
				break
			}
			start := offset + i
			end := start + len(lowerNeedle)
			spans = append(spans, span{start: start, end: end})
			offset = end
		}
	}

	if len(spans) < 2 {
		return spans
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			last.end = max(last.end, s.end)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// applyStyles renders text with base between spans and hl inside them
func (h *Highlighter) applyStyles(text string, spans []span, base, hl lipgloss.Style) string {
	var result strings.Builder
	lastEnd := 0

	for _, s := range spans {
		if s.start > lastEnd {
			result.WriteString(base.Render(text[lastEnd:s.start]))
		}
		result.WriteString(hl.Render(text[s.start:s.end]))
		lastEnd = s.end
	}

	if lastEnd < len(text) {
		result.WriteString(base.Render(text[lastEnd:]))
	}

	return result.String()
}

// RenderPayload pretty-prints a normalized payload and highlights it as JSON
func (h *Highlighter) RenderPayload(payload string) string {
	if payload == "" {
		return ""
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, []byte(payload), "", "  "); err != nil {
		return payload
	}

	if h.theme.Syntax == "" {
		return indented.String()
	}

	var out bytes.Buffer
	if err := quick.Highlight(&out, indented.String(), "json", "terminal16m", h.theme.Syntax); err != nil {
		return indented.String()
	}
	return strings.TrimRight(out.String(), "\n")
}
