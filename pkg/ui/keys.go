package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/loganalyzer/lvx/pkg/config"
)

// KeyMap holds the table-mode bindings
type KeyMap struct {
	Quit        key.Binding
	Filter      key.Binding
	Search      key.Binding
	Escape      key.Binding
	NextMatch   key.Binding
	PrevMatch   key.Binding
	FirstMatch  key.Binding
	LastMatch   key.Binding
	Select      key.Binding
	Copy        key.Binding
	Export      key.Binding
	Details     key.Binding
	Reload      key.Binding
	ResetFilter key.Binding
	ClearSearch key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	GotoTop     key.Binding
	GotoBottom  key.Binding
	NextField   key.Binding
	PrevField   key.Binding
	Help        key.Binding
}

// NewKeyMap builds the bindings from the configured keys
func NewKeyMap(cfg *config.Config) KeyMap {
	bind := func(action, help string, extra ...string) key.Binding {
		k := cfg.GetKeybinding(action)
		keys := append(aliases(k), extra...)
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(k, help))
	}

	return KeyMap{
		Quit:        bind("quit", "quit", "ctrl+c"),
		Filter:      bind("filter", "edit filter"),
		Search:      bind("search", "edit search"),
		Escape:      bind("escape", "close"),
		NextMatch:   bind("next_match", "next match"),
		PrevMatch:   bind("prev_match", "previous match"),
		FirstMatch:  bind("first_match", "first match"),
		LastMatch:   bind("last_match", "last match"),
		Select:      bind("select", "toggle selection"),
		Copy:        bind("copy", "copy selection"),
		Export:      bind("export", "export selection"),
		Details:     bind("details", "show details"),
		Reload:      bind("reload", "reload file"),
		ResetFilter: bind("reset_filter", "reset filter"),
		ClearSearch: bind("clear_search", "clear search"),
		ScrollUp:    bind("scroll_up", "up", "up"),
		ScrollDown:  bind("scroll_down", "down", "down"),
		PageUp:      bind("page_up", "page up", "pgup"),
		PageDown:    bind("page_down", "page down", "pgdown"),
		GotoTop:     bind("goto_top", "top", "home"),
		GotoBottom:  bind("goto_bottom", "bottom", "end"),
		NextField:   bind("next_field", "next field"),
		PrevField:   bind("prev_field", "previous field"),
		Help:        bind("help", "toggle help"),
	}
}

// aliases maps configured names to the strings bubbletea reports
func aliases(k string) []string {
	if k == "space" {
		return []string{" ", "space"}
	}
	return []string{k}
}
