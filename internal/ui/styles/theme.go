package styles

import "github.com/charmbracelet/lipgloss"

// Theme represents a color scheme for the application
type Theme struct {
	Name string

	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color

	Border        lipgloss.Color
	Selection     lipgloss.Color
	SelectionText lipgloss.Color
	BadgeText     lipgloss.Color
}

var (
	// DarkTheme is the default theme. Body text is off-white on a near-black
	// ground to keep long chapters easy on the eyes.
	DarkTheme = Theme{
		Name:          "dark",
		Primary:       lipgloss.Color("#2F6FB3"),
		Secondary:     lipgloss.Color("#5FA8D3"),
		Background:    lipgloss.Color("#1B1D22"),
		Foreground:    lipgloss.Color("#D7D3CA"),
		Success:       lipgloss.Color("#7FB069"),
		Warning:       lipgloss.Color("#E0A458"),
		Error:         lipgloss.Color("#D9685F"),
		Muted:         lipgloss.Color("#7A7F88"),
		Border:        lipgloss.Color("#33373F"),
		Selection:     lipgloss.Color("#2F6FB3"),
		SelectionText: lipgloss.Color("#F2EFE8"),
		BadgeText:     lipgloss.Color("#1B1D22"),
	}

	LightTheme = Theme{
		Name:          "light",
		Primary:       lipgloss.Color("#108EE9"),
		Secondary:     lipgloss.Color("#1C6CA8"),
		Background:    lipgloss.Color("#FAFAF7"),
		Foreground:    lipgloss.Color("#2B2B2B"),
		Success:       lipgloss.Color("#3F8F4E"),
		Warning:       lipgloss.Color("#B7701C"),
		Error:         lipgloss.Color("#C0392B"),
		Muted:         lipgloss.Color("#8E8E8A"),
		Border:        lipgloss.Color("#E3E1DA"),
		Selection:     lipgloss.Color("#108EE9"),
		SelectionText: lipgloss.Color("#FFFFFF"),
		BadgeText:     lipgloss.Color("#FFFFFF"),
	}

	// SepiaTheme is a warm paper-like scheme for long reading sessions
	SepiaTheme = Theme{
		Name:          "sepia",
		Primary:       lipgloss.Color("#8B5E34"),
		Secondary:     lipgloss.Color("#A0522D"),
		Background:    lipgloss.Color("#F4ECD8"),
		Foreground:    lipgloss.Color("#433422"),
		Success:       lipgloss.Color("#6B8E23"),
		Warning:       lipgloss.Color("#CD853F"),
		Error:         lipgloss.Color("#B22222"),
		Muted:         lipgloss.Color("#8C7B65"),
		Border:        lipgloss.Color("#D8C8A8"),
		Selection:     lipgloss.Color("#8B5E34"),
		SelectionText: lipgloss.Color("#F4ECD8"),
		BadgeText:     lipgloss.Color("#F4ECD8"),
	}

	BuiltinThemes = []Theme{DarkTheme, LightTheme, SepiaTheme}

	currentTheme = DarkTheme
)

// GetTheme returns a theme by name, or the default theme if not found
func GetTheme(name string) Theme {
	for _, t := range BuiltinThemes {
		if t.Name == name {
			return t
		}
	}
	return DarkTheme
}

// ThemeNames returns the names of the built-in themes
func ThemeNames() []string {
	names := make([]string, len(BuiltinThemes))
	for i, t := range BuiltinThemes {
		names[i] = t.Name
	}
	return names
}

// CurrentTheme returns the active theme
func CurrentTheme() Theme {
	return currentTheme
}

// SetCurrentTheme activates the theme called name
func SetCurrentTheme(name string) {
	ApplyTheme(GetTheme(name))
}

// NextTheme cycles to the next theme and returns its name
func NextTheme() string {
	for i, t := range BuiltinThemes {
		if t.Name == currentTheme.Name {
			next := BuiltinThemes[(i+1)%len(BuiltinThemes)]
			ApplyTheme(next)
			return next.Name
		}
	}
	return currentTheme.Name
}

// ApplyTheme rebuilds all global styles from the theme's colors
func ApplyTheme(theme Theme) {
	currentTheme = theme
	base := lipgloss.NewStyle()

	TitleBar = base.Foreground(theme.Foreground).Background(theme.Primary).Padding(0, 1).Bold(true)
	StatusBar = base.Foreground(theme.Muted).Background(theme.Background).Padding(0, 1)

	Help = base.Foreground(theme.Muted)
	HelpKey = base.Foreground(theme.Secondary).Bold(true)

	MutedText = base.Foreground(theme.Muted)
	SecondaryText = base.Foreground(theme.Secondary)

	ErrorStyle = base.Foreground(theme.Error).Bold(true).Padding(0, 1)
	SuccessStyle = base.Foreground(theme.Success).Bold(true).Padding(0, 1)

	InputField = base.
		Foreground(theme.Foreground).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)
	InputFieldFocused = InputField.BorderForeground(theme.Primary)

	Tab = base.Foreground(theme.Muted).Padding(0, 1)
	TabActive = base.Foreground(theme.SelectionText).Background(theme.Primary).Padding(0, 1).Bold(true)

	ListItem = base.Foreground(theme.Foreground).Padding(0, 2)
	ListItemSelected = base.
		Foreground(theme.SelectionText).
		Background(theme.Selection).
		Padding(0, 2).
		Bold(true)
	ListItemDimmed = base.Foreground(theme.Muted).Padding(0, 2)

	ReaderContent = base.Foreground(theme.Foreground).Padding(0, 2)
	ReaderHeader = base.Foreground(theme.Foreground).Background(theme.Primary).Padding(0, 1).Bold(true)
	ReaderProgress = base.Foreground(theme.Secondary).Align(lipgloss.Right)

	Dialog = base.Border(lipgloss.RoundedBorder()).BorderForeground(theme.Primary).Padding(1, 2)
	DialogTitle = base.Foreground(theme.Primary).Bold(true).MarginBottom(1)

	BookTitle = base.Foreground(theme.Foreground).Bold(true)
	BookAuthor = base.Foreground(theme.Secondary)
	BookMeta = base.Foreground(theme.Muted).Italic(true)

	BadgeHot = base.Foreground(theme.BadgeText).Background(theme.Warning).Padding(0, 1).Bold(true)
	BadgeDone = base.Foreground(theme.BadgeText).Background(theme.Success).Padding(0, 1).Bold(true)
}

func init() {
	ApplyTheme(DarkTheme)
}
