package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/justyntemme/wsl-t/internal/books"
	"github.com/justyntemme/wsl-t/internal/query"
	"github.com/justyntemme/wsl-t/internal/ui/terminal"
	"github.com/justyntemme/wsl-t/pkg/models"
)

// ErrUsage marks invalid arguments
var ErrUsage = errors.New("invalid usage")

// bookRow is a listing entry as printed with --json
type bookRow struct {
	models.Book
	LastRead *models.ReadingProgressRecord `json:"lastRead,omitempty"`
}

func rows(entries []books.Entry) []bookRow {
	out := make([]bookRow, len(entries))
	for i, e := range entries {
		out[i] = bookRow{Book: e.Book, LastRead: e.LastRead}
	}
	return out
}

func intArg(cmd *cli.Command, i int, name string) (int64, error) {
	raw := cmd.Args().Get(i)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrUsage, name)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative number, got %q", ErrUsage, name, raw)
	}
	return n, nil
}

// BooksList prints one page of a category
func (r *Runner) BooksList(ctx context.Context, cmd *cli.Command) error {
	q := query.ForCategory(query.Category(cmd.String("category")))
	if !q.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrUsage, q.Category)
	}
	if k := cmd.String("keyword"); k != "" {
		q = query.ForCategory(query.CategorySearch)
		q.Keyword = k
	}
	q.Offset = max(cmd.Int("offset"), 0)

	svc, err := r.Service(cmd)
	if err != nil {
		return err
	}

	r.logger.Debug("listing books", "query", query.Encode(q), "limit", cmd.Int("limit"))
	page, err := svc.Page(ctx, q, cmd.Int("limit"))
	if err != nil {
		if q.Category == query.CategoryRecentlyRead && books.IsUnavailable(err) {
			r.logger.Warn("reading progress unavailable", "err", err)
		} else {
			return fmt.Errorf("listing %s: %w", q.Category, err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"books": rows(page.Items), "count": page.Total}, cmd.Bool("pretty"))
	}

	title := q.Category.Label()
	if q.Keyword != "" {
		title += fmt.Sprintf(" %q", q.Keyword)
	}
	if page.Total > 0 {
		title += fmt.Sprintf(" (%s books)", humanize.Comma(int64(page.Total)))
	}
	r.writePlainHeader(title)
	if len(page.Items) == 0 {
		return r.writePlain("no books\n")
	}
	for _, e := range page.Items {
		r.writePlain("%6d  %s\n", e.Book.ID, bookLine(e))
	}
	return nil
}

func bookLine(e books.Entry) string {
	var parts []string
	parts = append(parts, e.Book.Name)
	if e.Book.Author != "" {
		parts = append(parts, e.Book.Author)
	}
	if e.Book.WordCount > 0 {
		parts = append(parts, humanize.Comma(int64(e.Book.WordCount))+" words")
	}
	if e.LastRead != nil {
		parts = append(parts, fmt.Sprintf("ch. %d %s, %s", e.LastRead.ChapterNo, e.LastRead.ChapterTitle, humanize.Time(e.LastRead.UpdatedAt)))
	}
	return strings.Join(parts, "  ·  ")
}

// BooksShow prints a book, its read record and optionally its chapters
func (r *Runner) BooksShow(ctx context.Context, cmd *cli.Command) error {
	id, err := intArg(cmd, 0, "book id")
	if err != nil {
		return err
	}
	svc, err := r.Service(cmd)
	if err != nil {
		return err
	}

	detail, err := svc.LoadBook(ctx, id)
	if err != nil {
		return fmt.Errorf("loading book %d: %w", id, err)
	}
	var chs []models.Chapter
	if cmd.Bool("chapters") {
		if chs, err = svc.AllChapters(ctx, id); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		out := map[string]any{"book": detail.Book}
		if detail.LastRead != nil {
			out["lastRead"] = detail.LastRead
		}
		if chs != nil {
			out["chapters"] = chs
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	b := detail.Book
	if cmd.Bool("cover") && b.Cover != "" {
		if err := r.writeCover(ctx, svc, b.Cover, cmd.String("image-mode")); err != nil {
			return err
		}
	}
	r.writePlainHeader(b.Name)
	r.writePlain("Author:   %s\n", b.Author)
	r.writePlain("Chapters: %s\n", humanize.Comma(int64(b.ChapterCount)))
	r.writePlain("Words:    %s\n", humanize.Comma(int64(b.WordCount)))
	r.writePlain("Hot:      %d\n", b.Hot)
	if rec := detail.LastRead; rec != nil {
		status := ""
		if rec.Done {
			status = " (finished)"
		}
		r.writePlain("Read:     ch. %d %s, %s%s\n", rec.ChapterNo, rec.ChapterTitle, humanize.Time(rec.UpdatedAt), status)
	}
	if b.Summary != "" {
		r.writePlain("\n%s\n", b.Summary)
	}
	if len(chs) > 0 {
		r.writePlain("\n")
		for _, ch := range chs {
			r.writePlain("%5d  %s\n", ch.No, ch.Title)
		}
	}
	return nil
}

// writeCover draws the cover, or prints its URL when the terminal cannot
// show images. A cover that fails to load is only logged.
func (r *Runner) writeCover(ctx context.Context, svc *books.Service, cover, imageMode string) error {
	mode, err := terminal.ParseMode(imageMode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if mode == terminal.ModeNone {
		return r.writePlain("Cover: %s\n", cover)
	}

	data, err := svc.Client().FetchCover(ctx, cover)
	if err != nil {
		r.logger.Warn("cover unavailable", "cover", cover, "err", err)
		return nil
	}
	img, err := terminal.Decode(data)
	if err != nil {
		r.logger.Warn("cover unreadable", "cover", cover, "err", err)
		return nil
	}
	if err := terminal.Write(r.output, img, mode); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return r.writePlain("\n")
}

// ChapterRead prints the content of one chapter and records it as read
func (r *Runner) ChapterRead(ctx context.Context, cmd *cli.Command) error {
	id, err := intArg(cmd, 0, "book id")
	if err != nil {
		return err
	}
	no, err := intArg(cmd, 1, "chapter no")
	if err != nil {
		return err
	}
	svc, err := r.Service(cmd)
	if err != nil {
		return err
	}

	book, err := svc.Client().GetBook(ctx, id)
	if err != nil {
		return fmt.Errorf("loading book %d: %w", id, err)
	}
	ch, err := svc.ChapterContent(ctx, id, int(no))
	if err != nil {
		return fmt.Errorf("loading chapter %d of book %d: %w", no, id, err)
	}
	// the service logs the failure; reading goes on without a record
	_ = svc.SetRead(ctx, book, ch)

	if cmd.Bool("json") {
		return r.writeJSON(ch, cmd.Bool("pretty"))
	}
	r.writePlainHeader(fmt.Sprintf("%s  ·  %s", book.Name, ch.Title))
	return r.writePlain("%s\n", ch.Content)
}

// RecentList prints the read records, most recent first
func (r *Runner) RecentList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.Service(cmd)
	if err != nil {
		return err
	}
	records, err := svc.ListRead(ctx)
	if err != nil {
		if !books.IsUnavailable(err) {
			return err
		}
		r.logger.Warn("reading progress unavailable", "err", err)
		records = nil
	}

	if cmd.Bool("json") {
		if records == nil {
			records = []models.ReadingProgressRecord{}
		}
		return r.writeJSON(records, cmd.Bool("pretty"))
	}
	if len(records) == 0 {
		return r.writePlain("nothing read yet\n")
	}
	for _, rec := range records {
		e := books.Entry{Book: models.Book{ID: rec.BookID, Name: rec.BookName}, LastRead: &rec}
		r.writePlain("%6d  %s\n", rec.BookID, bookLine(e))
	}
	return nil
}

// RecentClear forgets every read record
func (r *Runner) RecentClear(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.Service(cmd)
	if err != nil {
		return err
	}
	if err := svc.ClearRead(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Reading history cleared\n")
}

// AdminUpdateBook changes the flagged fields of a book
func (r *Runner) AdminUpdateBook(ctx context.Context, cmd *cli.Command) error {
	id, err := intArg(cmd, 0, "book id")
	if err != nil {
		return err
	}

	var update models.BookUpdate
	if cmd.IsSet("hot") {
		hot := cmd.Int("hot")
		update.Hot = &hot
	}
	if cmd.IsSet("summary") {
		summary := cmd.String("summary")
		update.Summary = &summary
	}
	if cmd.IsSet("cover") {
		cover := cmd.String("cover")
		update.Cover = &cover
	}
	if err := update.Validate(); err != nil {
		return err
	}

	svc, err := r.Service(cmd)
	if err != nil {
		return err
	}
	if err := svc.UpdateBook(ctx, id, update); err != nil {
		return err
	}
	return r.writePlain("✓ Book %d updated\n", id)
}

// Me prints the account behind the configured token
func (r *Runner) Me(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.Service(cmd)
	if err != nil {
		return err
	}
	user, err := svc.Me(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}
	if user.Account == "" {
		return r.writePlain("not logged in\n")
	}
	r.writePlain("Account: %s\n", user.Account)
	if len(user.Roles) > 0 {
		r.writePlain("Roles:   %s\n", strings.Join(user.Roles, ", "))
	}
	return r.writePlain("Admin:   %v\n", user.IsAdmin())
}

// Ping checks the server
func (r *Runner) Ping(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.Service(cmd)
	if err != nil {
		return err
	}
	if err := svc.Client().Ping(ctx); err != nil {
		return fmt.Errorf("%s unreachable: %w", svc.Client().BaseURL(), err)
	}
	return r.writePlain("✓ %s is up\n", svc.Client().BaseURL())
}
