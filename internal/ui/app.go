package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/justyntemme/wsl-t/internal/books"
	"github.com/justyntemme/wsl-t/internal/logging"
	"github.com/justyntemme/wsl-t/internal/query"
	"github.com/justyntemme/wsl-t/internal/ui/styles"
	"github.com/justyntemme/wsl-t/internal/ui/views"
	"github.com/justyntemme/wsl-t/pkg/models"
)

// expireErrorMsg hides the status bar error it was scheduled for
type expireErrorMsg struct {
	seq int
}

// App is the main application model. It keeps a stack of visited
// locations and shows the view of the top one.
type App struct {
	svc    *books.Service
	keys   KeyMap
	logger *log.Logger

	stack   []query.Location
	current views.View
	langTC  bool

	refreshSession bool

	// Window dimensions
	width  int
	height int

	err      error
	errSeq   int
	showHelp bool
}

// Option configures an App
type Option func(*App)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithSessionRefresh makes the app extend the login session on start
func WithSessionRefresh(on bool) Option {
	return func(a *App) {
		a.refreshSession = on
	}
}

// NewApp creates the application showing start
func NewApp(svc *books.Service, start query.Location, opts ...Option) *App {
	a := &App{
		svc:    svc,
		keys:   DefaultKeyMap(),
		logger: logging.Discard(),
		width:  80,
		height: 24,
	}
	for _, opt := range opts {
		opt(a)
	}
	if start.LangTC {
		a.setLang(true)
	}
	a.stack = []query.Location{start}
	a.current = a.buildView(start)
	return a
}

// Location returns the location on screen
func (a *App) Location() query.Location {
	return a.stack[len(a.stack)-1]
}

// Depth returns the number of locations on the back stack
func (a *App) Depth() int {
	return len(a.stack)
}

// Current returns the active view
func (a *App) Current() views.View {
	return a.current
}

// Err returns the error shown in the status bar
func (a *App) Err() error {
	return a.err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.current.Init(), tea.SetWindowTitle("wsl-t")}
	if a.refreshSession {
		cmds = append(cmds, a.refreshSessionCmd())
	}
	return tea.Batch(cmds...)
}

// refreshSessionCmd extends the session; failures only reach the log
func (a *App) refreshSessionCmd() tea.Cmd {
	client, logger := a.svc.Client(), a.logger
	return func() tea.Msg {
		if err := client.RefreshSession(context.Background()); err != nil {
			logger.Warn("session refresh failed", "err", err)
		}
		return nil
	}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.current.SetSize(a.width, a.viewHeight())
		return a, nil

	case tea.KeyMsg:
		if c, ok := a.current.(views.Capturer); ok && c.Capturing() {
			if msg.String() == "ctrl+c" {
				return a, tea.Quit
			}
			break
		}
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Help):
			a.showHelp = !a.showHelp
			return a, nil
		case key.Matches(msg, a.keys.Back):
			if a.showHelp {
				a.showHelp = false
				return a, nil
			}
			return a, a.back()
		case key.Matches(msg, a.keys.Theme):
			name := styles.NextTheme()
			a.logger.Debug("theme changed", "theme", name)
			return a, nil
		case key.Matches(msg, a.keys.Lang):
			a.setLang(!a.langTC)
			return a, a.reload()
		}
		if a.showHelp {
			return a, nil
		}

	case views.NavigateMsg:
		return a, a.navigate(msg.Location, msg.Replace)

	case views.BackMsg:
		return a, a.back()

	case views.ErrorMsg:
		a.err = msg.Err
		a.errSeq++
		seq := a.errSeq
		a.logger.Error("request failed", "location", a.Location().String(), "err", msg.Err)
		return a, tea.Tick(views.ErrorDisplayTime, func(time.Time) tea.Msg {
			return expireErrorMsg{seq: seq}
		})

	case expireErrorMsg:
		if msg.seq == a.errSeq {
			a.err = nil
		}
		return a, nil

	case views.ClearErrorMsg:
		a.err = nil
		return a, nil
	}

	var cmd tea.Cmd
	a.current, cmd = a.current.Update(msg)
	return a, cmd
}

// navigate pushes loc and opens its view. A replace only records loc as
// the current location: the view already shows it.
func (a *App) navigate(loc query.Location, replace bool) tea.Cmd {
	loc.LangTC = a.langTC
	if replace {
		a.stack[len(a.stack)-1] = loc
		return nil
	}
	a.logger.Debug("navigate", "location", loc.String())
	a.stack = append(a.stack, loc)
	return a.open(loc)
}

// back pops the current location. The first location is never popped.
func (a *App) back() tea.Cmd {
	if len(a.stack) <= 1 {
		return nil
	}
	a.stack = a.stack[:len(a.stack)-1]
	loc := a.Location()
	a.logger.Debug("back", "location", loc.String())
	return a.open(loc)
}

// reload rebuilds the current view, used after switching the script
func (a *App) reload() tea.Cmd {
	for i := range a.stack {
		a.stack[i].LangTC = a.langTC
	}
	return a.open(a.Location())
}

func (a *App) open(loc query.Location) tea.Cmd {
	a.err = nil
	a.current = a.buildView(loc)
	return a.current.Init()
}

func (a *App) setLang(tc bool) {
	a.langTC = tc
	lang := ""
	if tc {
		lang = models.LangTC
	}
	a.svc.SetLang(lang)
}

func (a *App) buildView(loc query.Location) views.View {
	var v views.View
	switch loc.Route {
	case query.RouteBook:
		v = views.NewBookDetailView(a.svc, loc.BookID)
	case query.RouteChapter:
		v = views.NewChapterView(a.svc, loc.BookID, loc.ChapterNo)
	default:
		v = views.NewHomeView(a.svc, loc.Query())
	}
	v.SetSize(a.width, a.viewHeight())
	return v
}

// viewHeight leaves the last row to the status bar
func (a *App) viewHeight() int {
	return max(a.height-1, 1)
}

// View implements tea.Model
func (a *App) View() string {
	if a.showHelp {
		return a.renderHelp()
	}
	return lipgloss.JoinVertical(lipgloss.Left, a.current.View(), a.renderStatusBar())
}

func (a *App) renderStatusBar() string {
	if a.err != nil {
		return styles.ErrorStyle.Render("Error: " + a.err.Error())
	}
	loc := styles.StatusBar.Render(a.Location().String())
	right := ""
	if a.langTC {
		right = styles.SecondaryText.Render(" 繁 ")
	}
	gap := max(a.width-lipgloss.Width(loc)-lipgloss.Width(right), 0)
	return loc + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help overlay
func (a *App) renderHelp() string {
	help := styles.Dialog.Width(60).Render(
		styles.DialogTitle.Render("Keyboard Shortcuts") + "\n\n" +
			styles.HelpKey.Render("Navigation") + "\n" +
			"  j/↓     Move down\n" +
			"  k/↑     Move up\n" +
			"  g/G     Top / bottom\n" +
			"  Ctrl+d  Page down\n" +
			"  Ctrl+u  Page up\n\n" +
			styles.HelpKey.Render("Books") + "\n" +
			"  1-4     All / Hot / Search / Recently read\n" +
			"  Tab     Next category\n" +
			"  /       Search\n" +
			"  m       Load more\n" +
			"  X       Clear reading history\n" +
			"  Enter   Open\n" +
			"  c       Continue reading\n\n" +
			styles.HelpKey.Render("Reader") + "\n" +
			"  n/l     Next chapter\n" +
			"  p/h     Previous chapter\n" +
			"  i       Book details\n" +
			"  y/n     Reload / go back after a failed load\n\n" +
			styles.HelpKey.Render("General") + "\n" +
			"  T       Cycle theme\n" +
			"  L       Toggle traditional script\n" +
			"  Esc     Back\n" +
			"  q       Quit\n" +
			"  ?       Toggle help\n",
	)

	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Center,
		lipgloss.Center,
		help,
	)
}
