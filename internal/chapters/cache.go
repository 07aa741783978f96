// Package chapters caches the most recently fetched page of chapter content.
//
// Only one page is held at a time. Reading forward or backward through a book
// hits the cache until the reader crosses a page boundary; switching books or
// jumping far always refetches.
package chapters

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/justyntemme/wsl-t/pkg/models"
)

// DefaultPageSize is the number of chapters fetched per cache fill
const DefaultPageSize = 5

// ContentFields are the chapter fields requested when filling the cache
var ContentFields = []string{"no", "title", "content"}

// ErrContentUnavailable is returned when a freshly fetched page does not
// contain the requested chapter
var ErrContentUnavailable = errors.New("chapter content unavailable")

// Fetcher loads limit chapters of a book starting at offset
type Fetcher interface {
	FetchChapters(ctx context.Context, bookID int64, offset, limit int) ([]models.Chapter, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, bookID int64, offset, limit int) ([]models.Chapter, error)

// FetchChapters calls f
func (f FetcherFunc) FetchChapters(ctx context.Context, bookID int64, offset, limit int) ([]models.Chapter, error) {
	return f(ctx, bookID, offset, limit)
}

// Cache is a single-slot chapter page cache. The zero value is not usable;
// create caches with New.
//
// The mutex only keeps the slot consistent. Two concurrent fills both hit
// the backend and the last one to finish wins. A fill started before
// Invalidate still returns its chapter but leaves the slot empty.
type Cache struct {
	fetcher  Fetcher
	pageSize int

	mu   sync.Mutex
	page *models.ChapterPage
	gen  uint64
}

// New creates an empty cache. A pageSize below 1 selects DefaultPageSize.
func New(fetcher Fetcher, pageSize int) *Cache {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Cache{fetcher: fetcher, pageSize: pageSize}
}

// PageSize returns the page size used by Chapter
func (c *Cache) PageSize() int {
	return c.pageSize
}

// Get returns chapter no of book bookID if the cached page holds it
func (c *Cache) Get(bookID int64, no int) (*models.Chapter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page == nil || c.page.BookID != bookID {
		return nil, false
	}
	return c.page.Find(no)
}

// Page returns a copy of the cached page, if any
func (c *Cache) Page() (models.ChapterPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page == nil {
		return models.ChapterPage{}, false
	}
	page := *c.page
	page.Chapters = append([]models.Chapter(nil), c.page.Chapters...)
	return page, true
}

// PageOffset returns the offset of the page of size pageSize holding chapter no
func PageOffset(no, pageSize int) int {
	if no < 0 || pageSize < 1 {
		return 0
	}
	return no / pageSize * pageSize
}

// FetchAndCache fetches the page of size pageSize that contains chapter no,
// replaces the cached page with it and returns the requested chapter.
func (c *Cache) FetchAndCache(ctx context.Context, bookID int64, no, pageSize int) (*models.Chapter, error) {
	if pageSize < 1 {
		pageSize = c.pageSize
	}
	offset := PageOffset(no, pageSize)

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	chapters, err := c.fetcher.FetchChapters(ctx, bookID, offset, pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching chapters %d-%d of book %d: %w", offset, offset+pageSize-1, bookID, err)
	}

	page := &models.ChapterPage{
		BookID:   bookID,
		Offset:   offset,
		Chapters: make([]models.Chapter, len(chapters)),
	}
	for i, ch := range chapters {
		ch.Content = NormalizeContent(ch.Content)
		page.Chapters[i] = ch
	}

	c.mu.Lock()
	if gen == c.gen {
		c.page = page
	}
	c.mu.Unlock()

	ch, ok := page.Find(no)
	if !ok {
		return nil, fmt.Errorf("%w: book %d chapter %d", ErrContentUnavailable, bookID, no)
	}
	return ch, nil
}

// Chapter returns chapter no from the cache, fetching its page on a miss
func (c *Cache) Chapter(ctx context.Context, bookID int64, no int) (*models.Chapter, error) {
	if ch, ok := c.Get(bookID, no); ok {
		return ch, nil
	}
	return c.FetchAndCache(ctx, bookID, no, c.pageSize)
}

// Invalidate drops the cached page and any fill still running
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.page = nil
	c.mu.Unlock()
}

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// NormalizeContent collapses runs of two or more whitespace characters. A
// run containing a line break becomes one newline, any other run one space.
func NormalizeContent(s string) string {
	return whitespaceRun.ReplaceAllStringFunc(s, func(run string) string {
		if strings.ContainsAny(run, "\r\n") {
			return "\n"
		}
		return " "
	})
}
