package views

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justyntemme/wsl-t/internal/query"
)

// View is the interface that all screens implement
type View interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (View, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// Capturer is implemented by views that sometimes need every key, such as
// while a text input is focused. The app skips its global keys meanwhile.
type Capturer interface {
	Capturing() bool
}

// Message types for inter-view communication

// NavigateMsg asks the app to show a location. With Replace the current
// entry of the back stack is swapped instead of pushing a new one.
type NavigateMsg struct {
	Location query.Location
	Replace  bool
}

// BackMsg asks the app to return to the previous location
type BackMsg struct{}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// ClearErrorMsg clears the current error
type ClearErrorMsg struct{}

// ErrorDisplayTime is how long a transient error stays in the status bar
const ErrorDisplayTime = 4 * time.Second

// SendError creates an error message command
func SendError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}

// ClearError creates a command to clear errors
func ClearError() tea.Cmd {
	return func() tea.Msg {
		return ClearErrorMsg{}
	}
}

// Navigate creates a command that pushes loc
func Navigate(loc query.Location) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Location: loc}
	}
}

// Replace creates a command that swaps the current location for loc
func Replace(loc query.Location) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Location: loc, Replace: true}
	}
}

// Back creates a command that pops the current location
func Back() tea.Cmd {
	return func() tea.Msg {
		return BackMsg{}
	}
}
