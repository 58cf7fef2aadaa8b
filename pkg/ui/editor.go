package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/loganalyzer/lvx/pkg/highlighter"
	"github.com/loganalyzer/lvx/pkg/models"
)

// editKind tells the model which session operation an edit maps to
type editKind int

const (
	editNone editKind = iota
	editLevel
	editText
)

type edit struct {
	kind  editKind
	level models.Level
	field models.Field
	value string
}

// Editor edits one predicate: five level toggles followed by the three
// substring inputs. Level flags are owned by the session and passed in
// when rendering; the editor only holds the text being typed.
type Editor struct {
	title  string
	inputs []textinput.Model
	focus  int
}

// NewEditor creates an editor titled title
func NewEditor(title string) *Editor {
	e := &Editor{title: title}
	for _, field := range models.Fields {
		ti := textinput.New()
		ti.Prompt = field.String() + ": "
		ti.Placeholder = "any"
		ti.CharLimit = 256
		ti.Width = 20
		e.inputs = append(e.inputs, ti)
	}
	return e
}

func (e *Editor) itemCount() int {
	return len(models.KnownLevels) + len(e.inputs)
}

// focusedInput returns the index of the focused text input, or -1 when a
// level toggle has focus
func (e *Editor) focusedInput() int {
	if e.focus < len(models.KnownLevels) {
		return -1
	}
	return e.focus - len(models.KnownLevels)
}

// Load copies the substring predicates of p into the inputs
func (e *Editor) Load(p models.Predicate) {
	for i, field := range models.Fields {
		e.inputs[i].SetValue(p.Text(field))
	}
}

// Text returns the typed value of a field
func (e *Editor) Text(field models.Field) string {
	return e.inputs[int(field)].Value()
}

// Open focuses the first item
func (e *Editor) Open() tea.Cmd {
	e.focus = 0
	return e.refocus()
}

// Close blurs every input
func (e *Editor) Close() {
	for i := range e.inputs {
		e.inputs[i].Blur()
	}
}

func (e *Editor) move(delta int) tea.Cmd {
	n := e.itemCount()
	e.focus = (e.focus + delta + n) % n
	return e.refocus()
}

func (e *Editor) refocus() tea.Cmd {
	var cmd tea.Cmd
	active := e.focusedInput()
	for i := range e.inputs {
		if i == active {
			cmd = e.inputs[i].Focus()
		} else {
			e.inputs[i].Blur()
		}
	}
	return cmd
}

// Update handles a key while the editor is open
func (e *Editor) Update(msg tea.KeyMsg, keys KeyMap) (edit, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.NextField):
		return edit{}, e.move(1)
	case key.Matches(msg, keys.PrevField):
		return edit{}, e.move(-1)
	}

	if idx := e.focusedInput(); idx >= 0 {
		before := e.inputs[idx].Value()
		var cmd tea.Cmd
		e.inputs[idx], cmd = e.inputs[idx].Update(msg)

		if after := e.inputs[idx].Value(); after != before {
			return edit{kind: editText, field: models.Fields[idx], value: after}, cmd
		}
		return edit{}, cmd
	}

	switch msg.String() {
	case " ", "space", "enter", "x":
		return edit{kind: editLevel, level: models.KnownLevels[e.focus]}, nil
	case "left", "h":
		return edit{}, e.move(-1)
	case "right", "l":
		return edit{}, e.move(1)
	}

	return edit{}, nil
}

// View renders the editor panel for the given predicate
func (e *Editor) View(p models.Predicate, h *highlighter.Highlighter, width int) string {
	focused := lipgloss.NewStyle().Reverse(true)

	var toggles []string
	for i, level := range models.KnownLevels {
		box := "[ ]"
		if p.LevelEnabled(level) {
			box = "[x]"
		}
		item := box + " " + h.RenderLevel(level)
		if i == e.focus {
			item = focused.Render(box) + " " + h.RenderLevel(level)
		}
		toggles = append(toggles, item)
	}

	var fields []string
	for i := range e.inputs {
		fields = append(fields, e.inputs[i].View())
	}

	title := h.Style("header").Render(e.title)
	body := title + "  " + strings.Join(toggles, "  ") + "\n" + strings.Join(fields, "   ")

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(h.Theme().Colors["border"]).
		Padding(0, 1).
		Width(max(width-2, 10)).
		Render(body)
}
