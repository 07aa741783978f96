package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/justyntemme/wsl-t/internal/books"
	"github.com/justyntemme/wsl-t/internal/chapters"
	"github.com/justyntemme/wsl-t/internal/query"
	"github.com/justyntemme/wsl-t/internal/ui/styles"
	"github.com/justyntemme/wsl-t/pkg/models"
)

// MinSpinnerTime keeps the loading spinner up long enough to be seen even
// when the chapter comes from cache.
const MinSpinnerTime = 300 * time.Millisecond

type chapterLoadedMsg struct {
	bookID  int64
	no      int
	book    *models.Book
	chapter *models.Chapter
	err     error
}

// ChapterView displays the text of one chapter
type ChapterView struct {
	svc  *books.Service
	keys KeyMap

	bookID int64
	no     int
	book   *models.Book

	chapter    *models.Chapter
	lines      []string
	lineOffset int

	loading bool
	// failed holds the error behind the reload prompt
	failed     error
	minSpinner time.Duration
	spinner    spinner.Model

	width  int
	height int
}

// NewChapterView creates the view of chapter no of book id
func NewChapterView(svc *books.Service, id int64, no int) *ChapterView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SecondaryText

	return &ChapterView{
		svc:        svc,
		keys:       DefaultKeyMap(),
		bookID:     id,
		no:         no,
		minSpinner: MinSpinnerTime,
		spinner:    sp,
		width:      80,
		height:     24,
	}
}

// SetMinSpinner overrides the minimum time the loading state is shown
func (v *ChapterView) SetMinSpinner(d time.Duration) {
	v.minSpinner = d
}

// Chapter returns the chapter on screen, nil while loading
func (v *ChapterView) Chapter() *models.Chapter {
	return v.chapter
}

// Loading reports whether a chapter request is in flight
func (v *ChapterView) Loading() bool {
	return v.loading
}

// Failed returns the error of the last load, nil when it succeeded
func (v *ChapterView) Failed() error {
	return v.failed
}

// Init implements View
func (v *ChapterView) Init() tea.Cmd {
	return v.loadChapter(v.no)
}

// loadChapter fetches chapter no, along with the book on first use, and
// records it as read. Only one load runs at a time.
func (v *ChapterView) loadChapter(no int) tea.Cmd {
	if v.loading {
		return nil
	}
	v.loading = true
	v.failed = nil
	v.no = no

	id, book, wait := v.bookID, v.book, v.minSpinner
	load := func() tea.Msg {
		start := time.Now()
		defer func() {
			if d := wait - time.Since(start); d > 0 {
				time.Sleep(d)
			}
		}()

		ctx := context.Background()
		msg := chapterLoadedMsg{bookID: id, no: no, book: book}
		if msg.book == nil {
			b, err := v.svc.Client().GetBook(ctx, id)
			if err != nil {
				msg.err = err
				return msg
			}
			msg.book = b
		}
		ch, err := v.svc.ChapterContent(ctx, id, no)
		if err != nil {
			msg.err = err
			return msg
		}
		msg.chapter = ch
		// the service logs progress failures; reading goes on without them
		_ = v.svc.SetRead(ctx, msg.book, ch)
		return msg
	}
	return tea.Batch(load, v.spinner.Tick)
}

// Update implements View
func (v *ChapterView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case chapterLoadedMsg:
		if msg.bookID != v.bookID || msg.no != v.no {
			return v, nil
		}
		v.loading = false
		if msg.book != nil {
			v.book = msg.book
		}
		if msg.err != nil {
			v.failed = msg.err
			if errors.Is(msg.err, chapters.ErrContentUnavailable) {
				return v, nil
			}
			return v, SendError(msg.err)
		}
		v.chapter = msg.chapter
		v.lineOffset = 0
		v.wrapContent()
		return v, Replace(query.ChapterLocation(v.bookID, v.no))

	case spinner.TickMsg:
		if !v.loading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		if v.failed != nil && !v.loading {
			return v, v.handlePrompt(msg)
		}
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *ChapterView) handlePrompt(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Retry):
		return v.loadChapter(v.no)
	case key.Matches(msg, v.keys.GiveUp):
		return Back()
	}
	return nil
}

func (v *ChapterView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Down):
		v.scroll(1)
	case key.Matches(msg, v.keys.Up):
		v.scroll(-1)
	case key.Matches(msg, v.keys.PageDown):
		if v.atEnd() {
			return v.goTo(v.no + 1)
		}
		v.scroll(v.visibleLines() - 1)
	case key.Matches(msg, v.keys.PageUp):
		v.scroll(-(v.visibleLines() - 1))
	case key.Matches(msg, v.keys.Home):
		v.lineOffset = 0
	case key.Matches(msg, v.keys.End):
		v.scroll(len(v.lines))
	case key.Matches(msg, v.keys.NextChapter):
		return v.goTo(v.no + 1)
	case key.Matches(msg, v.keys.PrevChapter):
		return v.goTo(v.no - 1)
	case key.Matches(msg, v.keys.Detail):
		return Navigate(query.BookLocation(v.bookID))
	}
	return nil
}

// HasNext reports whether a chapter follows the current one
func (v *ChapterView) HasNext() bool {
	if v.book == nil || v.book.ChapterCount == 0 {
		return false
	}
	return v.no+1 < v.book.ChapterCount
}

// HasPrev reports whether a chapter precedes the current one
func (v *ChapterView) HasPrev() bool {
	return v.no > 0
}

// goTo opens chapter no if it exists
func (v *ChapterView) goTo(no int) tea.Cmd {
	if v.loading {
		return nil
	}
	switch {
	case no > v.no && !v.HasNext():
		return nil
	case no < v.no && !v.HasPrev():
		return nil
	}
	return v.loadChapter(no)
}

// View implements View
func (v *ChapterView) View() string {
	var b strings.Builder
	b.WriteString(v.renderHeader() + "\n")

	switch {
	case v.loading:
		b.WriteString(v.place(v.spinner.View() + styles.MutedText.Render(" Loading chapter...")))
		return b.String()
	case v.failed != nil:
		b.WriteString(v.place(v.renderPrompt()))
		return b.String()
	case v.chapter == nil:
		return b.String()
	}

	visible := v.visibleLines()
	for i := v.lineOffset; i < min(v.lineOffset+visible, len(v.lines)); i++ {
		b.WriteString(styles.ReaderContent.Render(v.lines[i]) + "\n")
	}
	for i := len(v.lines) - v.lineOffset; i < visible; i++ {
		b.WriteString("\n")
	}

	b.WriteString("\n" + v.renderFooter())
	return b.String()
}

func (v *ChapterView) place(content string) string {
	return lipgloss.Place(v.width, max(v.height-3, 1), lipgloss.Center, lipgloss.Center, content)
}

func (v *ChapterView) renderPrompt() string {
	text := "This chapter could not be loaded."
	if !errors.Is(v.failed, chapters.ErrContentUnavailable) {
		text = v.failed.Error()
	}
	body := styles.DialogTitle.Render("Reload?") + "\n" +
		styles.ErrorStyle.Render(text) + "\n\n" +
		styles.KeyHelp("y", "reload", "n", "go back")
	return styles.Dialog.Width(min(50, max(v.width-4, 20))).Render(body)
}

// SetSize implements View
func (v *ChapterView) SetSize(width, height int) {
	v.width = width
	v.height = height
	if v.chapter != nil {
		v.wrapContent()
		v.scroll(0)
	}
}

// renderHeader renders the book and chapter titles with the progress
func (v *ChapterView) renderHeader() string {
	name := "…"
	count := 0
	if v.book != nil {
		name = v.book.Name
		count = v.book.ChapterCount
	}
	titlePart := styles.ReaderHeader.Render(" " + styles.TruncateText(name, max(v.width/3, 10)) + " ")

	chapterTitle := ""
	if v.chapter != nil {
		chapterTitle = styles.TruncateText(v.chapter.Title, 24)
	}
	chapterPart := styles.Help.Render(fmt.Sprintf(" Ch %d/%d %s ", v.no+1, count, chapterTitle))

	progress := v.calculateBookProgress()
	right := styles.MutedText.Render("Book:") + renderProgressBar(10, float64(progress)/100) +
		styles.ReaderProgress.Render(fmt.Sprintf(" %d%%", progress))

	left := titlePart + chapterPart
	gap := max(v.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + strings.Repeat(" ", gap) + right
}

func (v *ChapterView) renderFooter() string {
	pairs := []string{"j/k", "scroll", "space", "page"}
	if v.HasPrev() {
		pairs = append(pairs, "p", "prev")
	}
	if v.HasNext() {
		pairs = append(pairs, "n", "next")
	}
	pairs = append(pairs, "i", "book", "esc", "back")
	help := styles.KeyHelp(pairs...)

	pos := styles.MutedText.Render(fmt.Sprintf("%d%% ", v.calculateProgress()))
	gap := max(v.width-lipgloss.Width(help)-lipgloss.Width(pos), 0)
	return help + strings.Repeat(" ", gap) + pos
}

// calculateProgress returns reading progress within the chapter
func (v *ChapterView) calculateProgress() int {
	if len(v.lines) == 0 {
		return 0
	}
	if v.atEnd() {
		return 100
	}
	return (v.lineOffset * 100) / len(v.lines)
}

// calculateBookProgress weighs each chapter equally
func (v *ChapterView) calculateBookProgress() int {
	if v.book == nil || v.book.ChapterCount == 0 {
		return 0
	}
	weight := 100.0 / float64(v.book.ChapterCount)
	done := float64(v.no)*weight + float64(v.calculateProgress())/100*weight
	return min(int(done), 100)
}

// renderProgressBar renders a bar of width cells filled to progress (0-1)
func renderProgressBar(width int, progress float64) string {
	width = max(width, 3)
	progress = min(max(progress, 0), 1)

	const (
		empty    = "░"
		filled   = "█"
		partials = "▏▎▍▌▋▊▉"
	)

	full := progress * float64(width)
	blocks := int(full)

	var bar strings.Builder
	bar.WriteString(strings.Repeat(filled, min(blocks, width)))
	if blocks < width {
		if i := int((full - float64(blocks)) * 8); i > 0 {
			bar.WriteRune([]rune(partials)[min(i, 7)-1])
			blocks++
		}
	}
	if blocks < width {
		bar.WriteString(strings.Repeat(empty, width-blocks))
	}
	return bar.String()
}

// wrapContent splits the chapter text into screen lines
func (v *ChapterView) wrapContent() {
	v.lines = nil
	if v.chapter == nil {
		return
	}
	maxWidth := max(v.width-4, 20)

	v.lines = append(v.lines, styles.BookTitle.Render(v.chapter.Title), "")
	for _, paragraph := range strings.Split(v.chapter.Content, "\n") {
		v.lines = append(v.lines, wrapParagraph(paragraph, maxWidth)...)
	}
}

// wrapParagraph breaks one paragraph into lines of at most width cells.
// Words are kept whole where possible; text without spaces, such as Chinese,
// is broken between characters.
func wrapParagraph(paragraph string, width int) []string {
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, word := range words {
		w := runewidth.StringWidth(word)
		if lineWidth > 0 && lineWidth+1+w <= width {
			line.WriteByte(' ')
			line.WriteString(word)
			lineWidth += 1 + w
			continue
		}
		if lineWidth > 0 {
			flush()
		}
		for _, r := range word {
			rw := runewidth.RuneWidth(r)
			if lineWidth+rw > width {
				flush()
			}
			line.WriteRune(r)
			lineWidth += rw
		}
	}
	if lineWidth > 0 {
		flush()
	}
	return lines
}

// scroll scrolls the content by delta lines
func (v *ChapterView) scroll(delta int) {
	v.lineOffset += delta
	maxOffset := max(len(v.lines)-v.visibleLines(), 0)
	v.lineOffset = min(max(v.lineOffset, 0), maxOffset)
}

func (v *ChapterView) atEnd() bool {
	return v.lineOffset+v.visibleLines() >= len(v.lines)
}

// visibleLines returns the number of visible content lines
func (v *ChapterView) visibleLines() int {
	// header, footer, margins
	return max(v.height-4, 1)
}
