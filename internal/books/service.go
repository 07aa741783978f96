// Package books ties the API client, the chapter cache and the reading
// progress store together behind the operations the views need.
package books

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/wsl-t/internal/api"
	"github.com/justyntemme/wsl-t/internal/chapters"
	"github.com/justyntemme/wsl-t/internal/pager"
	"github.com/justyntemme/wsl-t/internal/progress"
	"github.com/justyntemme/wsl-t/internal/query"
	"github.com/justyntemme/wsl-t/pkg/models"
)

// Default page sizes
const (
	DefaultBookPageSize        = 10
	DefaultChapterListPageSize = 20
)

// ChapterListFields are requested when listing a book's table of contents
var ChapterListFields = []string{"id", "no", "title", "word_count"}

// Entry is one row of a listing. LastRead is set for books the reader has
// opened before.
type Entry struct {
	Book     models.Book
	LastRead *models.ReadingProgressRecord
}

// Listing pages through one category of the home screen
type Listing = pager.Controller[Entry]

// Detail is everything the book screen shows
type Detail struct {
	Book     *models.Book
	LastRead *models.ReadingProgressRecord
}

// Service is the book service
type Service struct {
	client   *api.Client
	cache    *chapters.Cache
	progress *progress.Store
	logger   *log.Logger

	bookPageSize        int
	chapterListPageSize int
	chapterPageSize     int
}

// Option configures a Service
type Option func(*Service)

// WithBookPageSize sets the number of books per listing page
func WithBookPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bookPageSize = n
		}
	}
}

// WithChapterListPageSize sets the page size used to walk a table of contents
func WithChapterListPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.chapterListPageSize = n
		}
	}
}

// WithChapterPageSize sets how many chapters one content request caches
func WithChapterPageSize(n int) Option {
	return func(s *Service) { s.chapterPageSize = n }
}

// WithCache replaces the chapter content cache
func WithCache(c *chapters.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a book service. Unless WithCache is given, chapter content
// is cached in pages of the chapter page size (chapters.DefaultPageSize
// when unset).
func New(client *api.Client, store *progress.Store, opts ...Option) *Service {
	s := &Service{
		client:              client,
		progress:            store,
		logger:              log.New(io.Discard),
		bookPageSize:        DefaultBookPageSize,
		chapterListPageSize: DefaultChapterListPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = chapters.New(s.ChapterFetcher(), s.chapterPageSize)
	}
	return s
}

// ChapterFetcher adapts the client to the chapter cache
func (s *Service) ChapterFetcher() chapters.Fetcher {
	return chapters.FetcherFunc(func(ctx context.Context, bookID int64, offset, limit int) ([]models.Chapter, error) {
		return s.client.ListChapters(ctx, bookID, api.ChapterQuery{
			Limit:  limit,
			Offset: offset,
			Fields: chapters.ContentFields,
		})
	})
}

// Client returns the underlying API client
func (s *Service) Client() *api.Client {
	return s.client
}

// Cache returns the chapter content cache
func (s *Service) Cache() *chapters.Cache {
	return s.cache
}

// SetLang switches the text variant and drops content cached in the old one
func (s *Service) SetLang(lang string) {
	if s.client.Lang() == lang {
		return
	}
	s.client.SetLang(lang)
	s.cache.Invalidate()
}

// Listing returns a fresh listing for q. Searching with an empty keyword
// never fetches; the recently read category lists the progress store.
func (s *Service) Listing(q query.Query) *Listing {
	if q.Category == query.CategoryRecentlyRead {
		return pager.New(s.fetchRecent, pager.WithLimit(progress.Capacity))
	}

	bq := bookQuery(q)
	if q.Category == query.CategorySearch {
		keyword := q.Keyword
		return pager.New(s.fetchBooks(bq), pager.WithLimit(s.bookPageSize),
			pager.WithGuard(func() bool { return keyword != "" }))
	}
	return pager.New(s.fetchBooks(bq), pager.WithLimit(s.bookPageSize))
}

// Page fetches the single page of q starting at q.Offset. A limit <= 0
// selects the book page size.
func (s *Service) Page(ctx context.Context, q query.Query, limit int) (pager.Page[Entry], error) {
	if limit <= 0 {
		limit = s.bookPageSize
	}
	switch {
	case q.Category == query.CategoryRecentlyRead:
		page, err := s.fetchRecent(ctx, 0, 0)
		if err != nil {
			return page, err
		}
		from := min(max(q.Offset, 0), len(page.Items))
		to := min(from+limit, len(page.Items))
		page.Items = page.Items[from:to]
		return page, nil
	case q.Category == query.CategorySearch && q.Keyword == "":
		return pager.Page[Entry]{}, nil
	}
	return s.fetchBooks(bookQuery(q))(ctx, max(q.Offset, 0), limit)
}

func bookQuery(q query.Query) api.BookQuery {
	bq := api.BookQuery{Keyword: q.Keyword, Sort: q.Sort}
	if q.Category == query.CategoryHot {
		bq.Sort = query.SortHot
	}
	return bq
}

func (s *Service) fetchBooks(bq api.BookQuery) pager.FetchFunc[Entry] {
	return func(ctx context.Context, offset, limit int) (pager.Page[Entry], error) {
		bq.Offset = offset
		bq.Limit = limit
		resp, err := s.client.ListBooks(ctx, bq)
		if err != nil {
			return pager.Page[Entry]{}, err
		}
		entries := make([]Entry, len(resp.Books))
		for i, b := range resp.Books {
			entries[i] = Entry{Book: b}
		}
		return pager.Page[Entry]{Items: entries, Total: resp.Count}, nil
	}
}

func (s *Service) fetchRecent(ctx context.Context, offset, limit int) (pager.Page[Entry], error) {
	records, err := s.ListRead(ctx)
	if err != nil {
		return pager.Page[Entry]{}, err
	}
	entries := make([]Entry, len(records))
	for i := range records {
		r := records[i]
		entries[i] = Entry{
			Book:     models.Book{ID: r.BookID, Name: r.BookName},
			LastRead: &r,
		}
	}
	return pager.Page[Entry]{Items: entries, Total: len(entries)}, nil
}

// LoadBook fetches a book and looks up its read record at the same time. A
// broken progress store only costs the "continue reading" link.
func (s *Service) LoadBook(ctx context.Context, id int64) (*Detail, error) {
	var detail Detail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		book, err := s.client.GetBook(gctx, id)
		if err != nil {
			return err
		}
		detail.Book = book
		return nil
	})
	g.Go(func() error {
		rec, err := s.GetRead(gctx, id)
		if err != nil {
			s.logger.Warn("reading progress unavailable", "book", id, "err", err)
			return nil
		}
		detail.LastRead = rec
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ChapterList returns a listing of a book's table of contents in pages of
// the chapter list page size. A short page ends the listing.
func (s *Service) ChapterList(id int64) *pager.Controller[models.Chapter] {
	return pager.New(func(ctx context.Context, offset, limit int) (pager.Page[models.Chapter], error) {
		chs, err := s.client.ListChapters(ctx, id, api.ChapterQuery{
			Limit:  limit,
			Offset: offset,
			Fields: ChapterListFields,
		})
		if err != nil {
			return pager.Page[models.Chapter]{}, err
		}
		return pager.Page[models.Chapter]{Items: chs}, nil
	}, pager.WithLimit(s.chapterListPageSize), pager.WithShortPageEnd())
}

// AllChapters walks the whole table of contents
func (s *Service) AllChapters(ctx context.Context, id int64) ([]models.Chapter, error) {
	var all []models.Chapter
	for offset := 0; ; offset += s.chapterListPageSize {
		chs, err := s.client.ListChapters(ctx, id, api.ChapterQuery{
			Limit:  s.chapterListPageSize,
			Offset: offset,
			Fields: ChapterListFields,
		})
		if err != nil {
			return all, fmt.Errorf("listing chapters of book %d: %w", id, err)
		}
		all = append(all, chs...)
		if len(chs) != s.chapterListPageSize {
			return all, nil
		}
	}
}

// ChapterContent returns one chapter with its text, from cache when possible
func (s *Service) ChapterContent(ctx context.Context, id int64, no int) (*models.Chapter, error) {
	return s.cache.Chapter(ctx, id, no)
}

// SetRead records that chapter of book was opened
func (s *Service) SetRead(ctx context.Context, book *models.Book, chapter *models.Chapter) error {
	rec := models.ReadingProgressRecord{
		BookID:       book.ID,
		BookName:     book.Name,
		ChapterNo:    chapter.No,
		ChapterTitle: chapter.Title,
		Done:         book.ChapterCount > 0 && chapter.No >= book.ChapterCount-1,
	}
	if err := s.progress.Upsert(ctx, rec); err != nil {
		s.logger.Warn("saving reading progress", "book", book.ID, "chapter", chapter.No, "err", err)
		return err
	}
	return nil
}

// GetRead returns the read record of a book, nil when there is none
func (s *Service) GetRead(ctx context.Context, id int64) (*models.ReadingProgressRecord, error) {
	rec, ok, err := s.progress.Get(ctx, id)
	if err != nil || !ok {
		return nil, err
	}
	return rec, nil
}

// ListRead returns the read records, most recent first
func (s *Service) ListRead(ctx context.Context) ([]models.ReadingProgressRecord, error) {
	return s.progress.Recent(ctx)
}

// ClearRead forgets every read record
func (s *Service) ClearRead(ctx context.Context) error {
	return s.progress.Clear(ctx)
}

// UpdateBook changes a book. The update is validated before anything is sent.
func (s *Service) UpdateBook(ctx context.Context, id int64, update models.BookUpdate) error {
	if err := s.client.UpdateBook(ctx, id, update); err != nil {
		return fmt.Errorf("updating book %d: %w", id, err)
	}
	s.logger.Info("book updated", "book", id)
	return nil
}

// Me returns the current user
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	return s.client.GetCurrentUser(ctx)
}

// IsUnavailable reports whether err only means local progress is unavailable
func IsUnavailable(err error) bool {
	return errors.Is(err, progress.ErrUnavailable)
}
