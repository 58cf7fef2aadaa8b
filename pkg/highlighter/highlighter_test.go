package highlighter

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/loganalyzer/lvx/pkg/models"
)

func TestSetTheme(t *testing.T) {
	h := New("light")
	if h.Theme().Name != "light" {
		t.Errorf("Expected light theme, got '%s'", h.Theme().Name)
	}

	h.SetTheme("neon")
	if h.Theme().Name != "dark" {
		t.Errorf("Expected unknown theme to fall back to dark, got '%s'", h.Theme().Name)
	}
}

func TestLevelColors(t *testing.T) {
	h := New("dark")

	tests := []struct {
		level models.Level
		color lipgloss.Color
	}{
		{models.LevelUnknown, "#505050"},
		{models.LevelDebug, "#0a0af0"},
		{models.LevelInfo, "#0af00a"},
		{models.LevelWarning, "#f0f00a"},
		{models.LevelError, "#f03c0a"},
		{models.LevelPanic, "#f00a0a"},
	}

	for _, tt := range tests {
		got := h.Theme().Colors[levelKey(tt.level)]
		if got != tt.color {
			t.Errorf("Expected %v to use %s, got %s", tt.level, tt.color, got)
		}
	}
}

func TestFindSpans(t *testing.T) {
	spans := findSpans("Start, restart, START", "start")
	want := []span{{0, 5}, {9, 14}, {16, 21}}

	if len(spans) != len(want) {
		t.Fatalf("Expected %d spans, got %v", len(want), spans)
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("Span %d: expected %v, got %v", i, want[i], spans[i])
		}
	}

	if spans := findSpans("anything", ""); spans != nil {
		t.Errorf("Expected no spans for empty needle, got %v", spans)
	}
}

func TestFindSpansSeveralNeedles(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		needles []string
		want    []span
	}{
		{"message and caller", " 5 stop main.go:9", []string{"stop", "main"}, []span{{3, 7}, {8, 12}}},
		{"needles out of order", "main stop", []string{"stop", "main"}, []span{{0, 4}, {5, 9}}},
		{"overlapping needles merge", "restart", []string{"start", "rest"}, []span{{0, 7}}},
		{"empty needles skipped", "stop", []string{"", "STOP"}, []span{{0, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findSpans(tt.text, tt.needles...)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Span %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestMarkKeepsText(t *testing.T) {
	h := New("monochrome")

	out := h.Mark("connection refused", lipgloss.NewStyle(), "REFUSED")
	if !strings.Contains(out, "connection") || !strings.Contains(out, "refused") {
		t.Errorf("Expected marked text to keep its content, got %q", out)
	}
}

func TestRenderPayloadMonochrome(t *testing.T) {
	h := New("monochrome")

	got := h.RenderPayload(`{"a":1,"b":{"c":"d"}}`)
	want := "{\n  \"a\": 1,\n  \"b\": {\n    \"c\": \"d\"\n  }\n}"
	if got != want {
		t.Errorf("Expected indented payload:\n%s\ngot:\n%s", want, got)
	}

	if h.RenderPayload("") != "" {
		t.Error("Expected empty payload to render empty")
	}
}

func TestRenderPayloadHighlighted(t *testing.T) {
	h := New("dark")

	got := h.RenderPayload(`{"key":"value"}`)
	if !strings.Contains(got, "key") || !strings.Contains(got, "value") {
		t.Errorf("Expected highlighted payload to keep its content, got %q", got)
	}
}
