package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used across the views. They are rebuilt by ApplyTheme.
var (
	TitleBar  lipgloss.Style
	StatusBar lipgloss.Style

	Help    lipgloss.Style
	HelpKey lipgloss.Style

	MutedText     lipgloss.Style
	SecondaryText lipgloss.Style

	ErrorStyle   lipgloss.Style
	SuccessStyle lipgloss.Style

	InputField        lipgloss.Style
	InputFieldFocused lipgloss.Style

	// Category tabs on the home view
	Tab       lipgloss.Style
	TabActive lipgloss.Style

	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListItemDimmed   lipgloss.Style

	ReaderContent  lipgloss.Style
	ReaderHeader   lipgloss.Style
	ReaderProgress lipgloss.Style

	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style

	BookTitle  lipgloss.Style
	BookAuthor lipgloss.Style
	BookMeta   lipgloss.Style

	// Badges next to list entries
	BadgeHot  lipgloss.Style
	BadgeDone lipgloss.Style
)

// TruncateText shortens s to at most width cells, ending in "…" when cut
func TruncateText(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if w+rw > width-1 {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String() + "…"
}

// KeyHelp renders "key desc" pairs the way every footer shows them
func KeyHelp(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, HelpKey.Render(pairs[i])+Help.Render(" "+pairs[i+1]))
	}
	return strings.Join(parts, "  ")
}
