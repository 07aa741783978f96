package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings handled by the app itself. The views keep their
// own bindings for screen specific keys.
type KeyMap struct {
	Quit  key.Binding
	Help  key.Binding
	Back  key.Binding
	Theme key.Binding
	Lang  key.Binding
}

// DefaultKeyMap returns the default vim-like key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("Esc", "back"),
		),
		Theme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "theme"),
		),
		Lang: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "traditional script"),
		),
	}
}
