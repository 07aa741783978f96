package views

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keys shared by the screens
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Enter    key.Binding

	// Home
	Search      key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	Categories  []key.Binding
	LoadMore    key.Binding
	ClearRecent key.Binding

	// Book detail
	Continue key.Binding

	// Chapter
	NextChapter key.Binding
	PrevChapter key.Binding
	Detail      key.Binding
	Retry       key.Binding
	GiveUp      key.Binding
}

// DefaultKeyMap returns the default vim-like key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/^u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d", " "),
			key.WithHelp("PgDn/^d", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("Home/g", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("End/G", "bottom"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "select"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next category"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-Tab", "prev category"),
		),
		Categories: []key.Binding{
			key.NewBinding(key.WithKeys("1")),
			key.NewBinding(key.WithKeys("2")),
			key.NewBinding(key.WithKeys("3")),
			key.NewBinding(key.WithKeys("4")),
		},
		LoadMore: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "more"),
		),
		ClearRecent: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "clear history"),
		),
		Continue: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "continue"),
		),
		NextChapter: key.NewBinding(
			key.WithKeys("n", "l", "right"),
			key.WithHelp("n/l", "next chapter"),
		),
		PrevChapter: key.NewBinding(
			key.WithKeys("p", "h", "left"),
			key.WithHelp("p/h", "prev chapter"),
		),
		Detail: key.NewBinding(
			key.WithKeys("i", "t"),
			key.WithHelp("i", "book"),
		),
		Retry: key.NewBinding(
			key.WithKeys("y", "r"),
			key.WithHelp("y", "reload"),
		),
		GiveUp: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "go back"),
		),
	}
}
