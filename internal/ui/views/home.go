package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/justyntemme/wsl-t/internal/books"
	"github.com/justyntemme/wsl-t/internal/query"
	"github.com/justyntemme/wsl-t/internal/ui/styles"
)

// LoadMoreMargin is how close to the last row the cursor has to get before
// the next page is requested.
const LoadMoreMargin = 3

// listingLoadedMsg carries the outcome of one LoadNext call
type listingLoadedMsg struct {
	listing *books.Listing
	start   int
	loaded  bool
	err     error
}

// recentClearedMsg is sent after the reading history was cleared
type recentClearedMsg struct {
	err error
}

// HomeView lists books by category with infinite scrolling
type HomeView struct {
	svc  *books.Service
	keys KeyMap

	width  int
	height int

	query   query.Query
	listing *books.Listing
	entries []books.Entry
	list    cursorList

	// restoreTo is the page offset to reload up to when opened from a location
	restoreTo int
	loading   bool
	err       error

	searching   bool
	searchInput textinput.Model
	spinner     spinner.Model
}

// NewHomeView creates the home view for query q
func NewHomeView(svc *books.Service, q query.Query) *HomeView {
	ti := textinput.New()
	ti.Placeholder = "Search books..."
	ti.CharLimit = 100
	ti.Width = 40
	ti.SetValue(q.Keyword)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SecondaryText

	v := &HomeView{
		svc:         svc,
		keys:        DefaultKeyMap(),
		query:       q,
		restoreTo:   q.Offset,
		searchInput: ti,
		spinner:     sp,
		width:       80,
		height:      24,
	}
	v.listing = svc.Listing(q)
	v.list.visible = v.visibleLines()
	return v
}

// Query returns the navigation state shown by the view
func (v *HomeView) Query() query.Query {
	return v.query
}

// Entries returns the rows loaded so far
func (v *HomeView) Entries() []books.Entry {
	return v.entries
}

// Loading reports whether a page request is in flight
func (v *HomeView) Loading() bool {
	return v.loading
}

// Capturing implements Capturer
func (v *HomeView) Capturing() bool {
	return v.searching
}

// Init implements View
func (v *HomeView) Init() tea.Cmd {
	if v.query.Category == query.CategorySearch && v.query.Keyword == "" {
		return v.setSearching(true)
	}
	return v.loadMore()
}

// Update implements View
func (v *HomeView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case listingLoadedMsg:
		return v, v.handleLoaded(msg)

	case recentClearedMsg:
		if msg.err != nil {
			return v, SendError(msg.err)
		}
		return v, v.switchQuery(v.query)

	case spinner.TickMsg:
		if !v.loading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		if v.searching {
			return v, v.updateSearch(msg)
		}
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *HomeView) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		v.setSearching(false)
		return nil
	case "enter":
		v.setSearching(false)
		keyword := strings.TrimSpace(v.searchInput.Value())
		if keyword == "" {
			return nil
		}
		q := query.Query{Category: query.CategorySearch, Keyword: keyword}
		return v.switchQuery(q)
	}
	var cmd tea.Cmd
	v.searchInput, cmd = v.searchInput.Update(msg)
	return cmd
}

func (v *HomeView) handleKey(msg tea.KeyMsg) tea.Cmd {
	for i, b := range v.keys.Categories {
		if key.Matches(msg, b) && i < len(query.Categories) {
			return v.selectCategory(query.Categories[i])
		}
	}

	switch {
	case key.Matches(msg, v.keys.Down):
		v.list.move(1)
		return v.maybeLoadMore()
	case key.Matches(msg, v.keys.Up):
		v.list.move(-1)
	case key.Matches(msg, v.keys.PageDown):
		v.list.move(v.visibleLines() / 2)
		return v.maybeLoadMore()
	case key.Matches(msg, v.keys.PageUp):
		v.list.move(-v.visibleLines() / 2)
	case key.Matches(msg, v.keys.Home):
		v.list.top()
	case key.Matches(msg, v.keys.End):
		v.list.bottom()
		return v.maybeLoadMore()
	case key.Matches(msg, v.keys.LoadMore):
		return v.loadMore()
	case key.Matches(msg, v.keys.NextTab):
		return v.selectCategory(v.shiftCategory(1))
	case key.Matches(msg, v.keys.PrevTab):
		return v.selectCategory(v.shiftCategory(-1))
	case key.Matches(msg, v.keys.Search):
		return v.setSearching(true)
	case key.Matches(msg, v.keys.ClearRecent):
		if v.query.Category == query.CategoryRecentlyRead {
			return v.clearRecent()
		}
	case key.Matches(msg, v.keys.Enter):
		return v.openSelected()
	}
	return nil
}

func (v *HomeView) shiftCategory(delta int) query.Category {
	n := len(query.Categories)
	for i, c := range query.Categories {
		if c == v.query.Category {
			return query.Categories[((i+delta)%n+n)%n]
		}
	}
	return query.CategoryHome
}

// setSearching focuses or blurs the search input
func (v *HomeView) setSearching(on bool) tea.Cmd {
	v.searching = on
	v.list.visible = v.visibleLines()
	v.list.updateOffset()
	if !on {
		v.searchInput.Blur()
		return nil
	}
	return tea.Batch(v.searchInput.Focus(), textinput.Blink)
}

// selectCategory switches to category c, keeping the keyword when
// switching to search.
func (v *HomeView) selectCategory(c query.Category) tea.Cmd {
	if c == v.query.Category {
		return nil
	}
	q := query.ForCategory(c)
	if c == query.CategorySearch {
		q.Keyword = strings.TrimSpace(v.searchInput.Value())
		if q.Keyword == "" {
			cmd := v.switchQuery(q)
			return tea.Batch(cmd, v.setSearching(true))
		}
	}
	return v.switchQuery(q)
}

// switchQuery replaces the listing with a fresh one for q and records q in
// the app location.
func (v *HomeView) switchQuery(q query.Query) tea.Cmd {
	v.query = q
	v.restoreTo = 0
	v.listing = v.svc.Listing(q)
	v.entries = nil
	v.list = cursorList{visible: v.visibleLines()}
	v.loading = false
	v.err = nil
	return tea.Batch(Replace(query.Home(q)), v.loadMore())
}

// maybeLoadMore requests the next page once the cursor nears the end
func (v *HomeView) maybeLoadMore() tea.Cmd {
	if !v.list.nearEnd(LoadMoreMargin) {
		return nil
	}
	return v.loadMore()
}

// loadMore issues one LoadNext. It is a no-op while a request is pending or
// after the listing is exhausted.
func (v *HomeView) loadMore() tea.Cmd {
	if v.loading || v.listing.Done() {
		return nil
	}
	v.loading = true
	listing := v.listing
	start := listing.Offset()
	load := func() tea.Msg {
		loaded, err := listing.LoadNext(context.Background())
		return listingLoadedMsg{listing: listing, start: start, loaded: loaded, err: err}
	}
	return tea.Batch(load, v.spinner.Tick)
}

func (v *HomeView) handleLoaded(msg listingLoadedMsg) tea.Cmd {
	if msg.listing != v.listing {
		return nil
	}
	v.loading = false

	if msg.err != nil {
		// a broken progress store reads as an empty history
		if v.query.Category == query.CategoryRecentlyRead && books.IsUnavailable(msg.err) {
			return nil
		}
		v.err = msg.err
		return SendError(msg.err)
	}
	v.err = nil
	if !msg.loaded {
		return nil
	}

	v.entries = v.listing.Items()
	v.list.setLen(len(v.entries))

	var cmds []tea.Cmd
	if msg.start != v.query.Offset {
		v.query.Offset = msg.start
		cmds = append(cmds, Replace(query.Home(v.query)))
	}
	if msg.start < v.restoreTo {
		cmds = append(cmds, v.loadMore())
	}
	return tea.Batch(cmds...)
}

func (v *HomeView) clearRecent() tea.Cmd {
	return func() tea.Msg {
		return recentClearedMsg{err: v.svc.ClearRead(context.Background())}
	}
}

func (v *HomeView) openSelected() tea.Cmd {
	if len(v.entries) == 0 {
		return nil
	}
	e := v.entries[v.list.cursor]
	if e.LastRead != nil {
		return Navigate(query.ChapterLocation(e.Book.ID, e.LastRead.ChapterNo))
	}
	return Navigate(query.BookLocation(e.Book.ID))
}

// View implements View
func (v *HomeView) View() string {
	var b strings.Builder

	b.WriteString(v.renderHeader() + "\n")
	b.WriteString(v.renderTabs() + "\n")

	if v.searching {
		b.WriteString(styles.InputFieldFocused.Render(v.searchInput.View()) + "\n")
	}

	switch {
	case len(v.entries) == 0 && v.loading:
		b.WriteString(v.place(v.spinner.View() + styles.MutedText.Render(" Loading books...")))
		return b.String()
	case len(v.entries) == 0 && v.err != nil:
		b.WriteString(v.place(styles.ErrorStyle.Render("Error: "+v.err.Error()) + "\n" +
			styles.KeyHelp("m", "retry")))
		return b.String()
	case len(v.entries) == 0:
		b.WriteString(v.place(styles.MutedText.Render(v.emptyText())))
		b.WriteString("\n" + v.renderFooter())
		return b.String()
	}

	from, to := v.list.window()
	for i := from; i < to; i++ {
		b.WriteString(v.renderEntry(v.entries[i], i == v.list.cursor) + "\n")
	}
	for i := to - from; i < v.visibleLines(); i++ {
		b.WriteString("\n")
	}

	b.WriteString(v.renderStatus() + "\n")
	b.WriteString(v.renderFooter())
	return b.String()
}

func (v *HomeView) place(content string) string {
	return lipgloss.Place(v.width, max(v.visibleLines(), 1), lipgloss.Center, lipgloss.Center, content)
}

func (v *HomeView) emptyText() string {
	switch v.query.Category {
	case query.CategorySearch:
		if v.query.Keyword == "" {
			return "Type a keyword to search"
		}
		return "No books match " + fmt.Sprintf("%q", v.query.Keyword)
	case query.CategoryRecentlyRead:
		return "Nothing read yet"
	}
	return "No books found"
}

// SetSize implements View
func (v *HomeView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.searchInput.Width = min(40, width-10)
	v.list.visible = v.visibleLines()
	v.list.updateOffset()
}

func (v *HomeView) renderHeader() string {
	title := styles.TitleBar.Render(" wsl ")

	searchInfo := ""
	if v.query.Keyword != "" {
		searchInfo = styles.SecondaryText.Render(fmt.Sprintf(" [Search: %s]", v.query.Keyword))
	}

	count := ""
	if total := v.listing.Total(); total > 0 {
		count = fmt.Sprintf(" %s/%s books ", humanize.Comma(int64(len(v.entries))), humanize.Comma(int64(total)))
	}
	right := styles.Help.Render(count)

	left := title + searchInfo
	gap := max(v.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + strings.Repeat(" ", gap) + right
}

func (v *HomeView) renderTabs() string {
	tabs := make([]string, len(query.Categories))
	for i, c := range query.Categories {
		label := fmt.Sprintf("%d %s", i+1, c.Label())
		if c == v.query.Category {
			tabs[i] = styles.TabActive.Render(label)
		} else {
			tabs[i] = styles.Tab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (v *HomeView) renderEntry(e books.Entry, selected bool) string {
	badge := ""
	if e.LastRead != nil && e.LastRead.Done {
		badge = styles.BadgeDone.Render("done") + " "
	} else if v.query.Category == query.CategoryHot && e.Book.Hot > 0 {
		badge = styles.BadgeHot.Render(humanize.Comma(int64(e.Book.Hot))) + " "
	}

	line := e.Book.Name
	if e.Book.Author != "" {
		line += " - " + e.Book.Author
	}
	switch {
	case e.LastRead != nil:
		line += fmt.Sprintf(" · ch. %d %s · %s", e.LastRead.ChapterNo+1, e.LastRead.ChapterTitle,
			humanize.Time(e.LastRead.UpdatedAt))
	case e.Book.WordCount > 0:
		line += fmt.Sprintf(" · %s words", humanize.Comma(int64(e.Book.WordCount)))
	}

	maxWidth := v.width - 6 - lipgloss.Width(badge)
	line = styles.TruncateText(line, maxWidth)

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + badge + line)
	}
	return styles.ListItem.Render("  " + badge + line)
}

func (v *HomeView) renderStatus() string {
	switch {
	case v.loading:
		return styles.MutedText.Render("  ") + v.spinner.View() + styles.MutedText.Render(" loading more...")
	case v.listing.Done():
		return styles.MutedText.Render("  end of list")
	}
	return styles.MutedText.Render("  scroll down or press m for more")
}

func (v *HomeView) renderFooter() string {
	pairs := []string{"j/k", "nav", "enter", "open", "tab", "category", "/", "search"}
	if v.query.Category == query.CategoryRecentlyRead {
		pairs = append(pairs, "X", "clear")
	} else if !v.listing.Done() {
		pairs = append(pairs, "m", "more")
	}
	pairs = append(pairs, "?", "help", "q", "quit")
	return styles.KeyHelp(pairs...)
}

// visibleLines returns the number of visible book lines
func (v *HomeView) visibleLines() int {
	// header, tabs, status, footer and margin
	lines := v.height - 5
	if v.searching {
		lines -= 3
	}
	return max(lines, 1)
}
