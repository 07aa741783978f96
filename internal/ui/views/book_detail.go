package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/justyntemme/wsl-t/internal/books"
	"github.com/justyntemme/wsl-t/internal/pager"
	"github.com/justyntemme/wsl-t/internal/query"
	"github.com/justyntemme/wsl-t/internal/ui/styles"
	"github.com/justyntemme/wsl-t/pkg/models"
)

type bookLoadedMsg struct {
	id     int64
	detail *books.Detail
	err    error
}

type chapterListLoadedMsg struct {
	list   *pager.Controller[models.Chapter]
	loaded bool
	err    error
}

// BookDetailView shows a book with its table of contents
type BookDetailView struct {
	svc  *books.Service
	keys KeyMap

	width  int
	height int

	bookID int64
	detail *books.Detail
	err    error

	toc      *pager.Controller[models.Chapter]
	chapters []models.Chapter
	list     cursorList
	// tocLoading is set while a table of contents page is pending
	tocLoading bool

	spinner spinner.Model
}

// NewBookDetailView creates the detail view of book id
func NewBookDetailView(svc *books.Service, id int64) *BookDetailView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SecondaryText

	v := &BookDetailView{
		svc:     svc,
		keys:    DefaultKeyMap(),
		bookID:  id,
		toc:     svc.ChapterList(id),
		spinner: sp,
		width:   80,
		height:  24,
	}
	v.list.visible = v.visibleLines()
	return v
}

// Detail returns the loaded book, nil until it arrived
func (v *BookDetailView) Detail() *books.Detail {
	return v.detail
}

// Chapters returns the table of contents rows loaded so far
func (v *BookDetailView) Chapters() []models.Chapter {
	return v.chapters
}

// Init implements View
func (v *BookDetailView) Init() tea.Cmd {
	id := v.bookID
	load := func() tea.Msg {
		detail, err := v.svc.LoadBook(context.Background(), id)
		return bookLoadedMsg{id: id, detail: detail, err: err}
	}
	return tea.Batch(load, v.loadMoreChapters(), v.spinner.Tick)
}

// Update implements View
func (v *BookDetailView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case bookLoadedMsg:
		if msg.id != v.bookID {
			return v, nil
		}
		if msg.err != nil {
			v.err = msg.err
			return v, SendError(msg.err)
		}
		v.detail = msg.detail
		v.list.visible = v.visibleLines()
		v.list.updateOffset()
		return v, nil

	case chapterListLoadedMsg:
		if msg.list != v.toc {
			return v, nil
		}
		v.tocLoading = false
		if msg.err != nil {
			return v, SendError(msg.err)
		}
		if msg.loaded {
			v.chapters = v.toc.Items()
			v.list.setLen(len(v.chapters))
		}
		return v, nil

	case spinner.TickMsg:
		if v.detail != nil && !v.tocLoading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *BookDetailView) handleKey(msg tea.KeyMsg) tea.Cmd {
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
		return v.loadMoreChapters()
	case key.Matches(msg, v.keys.Continue):
		no := 0
		if v.detail != nil && v.detail.LastRead != nil {
			no = v.detail.LastRead.ChapterNo
		}
		return Navigate(query.ChapterLocation(v.bookID, no))
	case key.Matches(msg, v.keys.Enter):
		if len(v.chapters) == 0 {
			return nil
		}
		return Navigate(query.ChapterLocation(v.bookID, v.chapters[v.list.cursor].No))
	}
	return nil
}

func (v *BookDetailView) maybeLoadMore() tea.Cmd {
	if !v.list.nearEnd(LoadMoreMargin) {
		return nil
	}
	return v.loadMoreChapters()
}

func (v *BookDetailView) loadMoreChapters() tea.Cmd {
	if v.tocLoading || v.toc.Done() {
		return nil
	}
	v.tocLoading = true
	toc := v.toc
	return func() tea.Msg {
		loaded, err := toc.LoadNext(context.Background())
		return chapterListLoadedMsg{list: toc, loaded: loaded, err: err}
	}
}

// View implements View
func (v *BookDetailView) View() string {
	if v.detail == nil {
		text := v.spinner.View() + styles.MutedText.Render(" Loading book...")
		if v.err != nil {
			text = styles.ErrorStyle.Render("Error: "+v.err.Error()) + "\n" + styles.KeyHelp("esc", "back")
		}
		return lipgloss.Place(v.width, v.height-1, lipgloss.Center, lipgloss.Center, text)
	}

	var b strings.Builder
	b.WriteString(v.renderSummary())

	from, to := v.list.window()
	for i := from; i < to; i++ {
		b.WriteString(v.renderChapterLine(v.chapters[i], i == v.list.cursor) + "\n")
	}
	switch {
	case v.tocLoading:
		b.WriteString("  " + v.spinner.View() + styles.MutedText.Render(" loading chapters...") + "\n")
	case len(v.chapters) == 0:
		b.WriteString(styles.MutedText.Render("  No chapters") + "\n")
	}

	b.WriteString("\n" + v.renderFooter())
	return b.String()
}

func (v *BookDetailView) renderSummary() string {
	book := v.detail.Book
	var b strings.Builder

	title := styles.TitleBar.Render(" " + styles.TruncateText(book.Name, max(v.width-4, 10)) + " ")
	b.WriteString(title + "\n")

	if book.Author != "" {
		b.WriteString(v.renderField("Author", styles.BookAuthor.Render(book.Author)))
	}
	stats := fmt.Sprintf("%s chapters · %s words", humanize.Comma(int64(book.ChapterCount)), humanize.Comma(int64(book.WordCount)))
	if book.Hot > 0 {
		stats += fmt.Sprintf(" · %s hot", humanize.Comma(int64(book.Hot)))
	}
	b.WriteString(v.renderField("Stats", stats))

	if rec := v.detail.LastRead; rec != nil {
		last := fmt.Sprintf("ch. %d %s, %s", rec.ChapterNo+1, rec.ChapterTitle, humanize.Time(rec.UpdatedAt))
		if rec.Done {
			last += " " + styles.BadgeDone.Render("done")
		}
		b.WriteString(v.renderField("Last read", last))
	} else {
		b.WriteString(v.renderField("Last read", styles.MutedText.Render("not started")))
	}

	if book.Summary != "" {
		summary := lipgloss.NewStyle().Width(max(v.width-4, 20)).Render(book.Summary)
		lines := strings.Split(summary, "\n")
		if len(lines) > summaryLines {
			lines = lines[:summaryLines]
			lines[summaryLines-1] = strings.TrimRight(lines[summaryLines-1], " ") + "…"
		}
		b.WriteString(styles.MutedText.Render(strings.Join(lines, "\n")) + "\n")
	}
	b.WriteString(styles.HelpKey.Render("Chapters") + "\n")
	return b.String()
}

// summaryLines caps the summary so the chapter list keeps the screen
const summaryLines = 3

func (v *BookDetailView) renderField(label, value string) string {
	labelStyle := styles.MutedText.Width(12)
	return labelStyle.Render(label+":") + " " + value + "\n"
}

func (v *BookDetailView) renderChapterLine(ch models.Chapter, selected bool) string {
	marker := "  "
	if rec := v.detail.LastRead; rec != nil && rec.ChapterNo == ch.No {
		marker = "● "
	}
	line := fmt.Sprintf("%4d  %s", ch.No+1, ch.Title)
	if ch.WordCount > 0 {
		line += styles.MutedText.Render(fmt.Sprintf("  %s words", humanize.Comma(int64(ch.WordCount))))
	}
	line = styles.TruncateText(line, max(v.width-8, 10))
	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + marker + line)
	}
	return styles.ListItem.Render("  " + marker + line)
}

func (v *BookDetailView) renderFooter() string {
	pairs := []string{"j/k", "nav", "enter", "read", "c", "continue"}
	if !v.toc.Done() {
		pairs = append(pairs, "m", "more")
	}
	pairs = append(pairs, "esc", "back", "q", "quit")
	return styles.KeyHelp(pairs...)
}

// SetSize implements View
func (v *BookDetailView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.list.visible = v.visibleLines()
	v.list.updateOffset()
}

// visibleLines returns the number of chapter rows that fit under the summary
func (v *BookDetailView) visibleLines() int {
	// title, author, stats, last read, summary, "Chapters", status, footer
	used := 8 + summaryLines
	return max(v.height-used, 1)
}
