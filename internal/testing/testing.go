// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/justyntemme/wsl-t/pkg/models"
)

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// Request is what the fake backend saw of one call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Backend is an in-process fake of the book API
type Backend struct {
	// AdminToken authorizes book updates and resolves to an admin user
	AdminToken string
	// Delay is slept before every response
	Delay time.Duration

	mu       sync.Mutex
	books    []models.Book
	chapters map[int64][]models.Chapter
	requests []Request
	failures []failure
	sessions int
}

type failure struct {
	status  int
	message string
}

// NewBackend starts a fake backend serving books, each with the given
// chapters. The server is closed when the test ends.
func NewBackend(t *testing.T, books []models.Book, chapters map[int64][]models.Chapter) (*Backend, *httptest.Server) {
	t.Helper()
	if chapters == nil {
		chapters = map[int64][]models.Chapter{}
	}
	b := &Backend{
		AdminToken: "admin-token",
		books:      books,
		chapters:   chapters,
	}
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv
}

// Handler returns the routes of the fake backend
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	r.Get("/books/v1", b.handleListBooks)
	r.Get("/books/v1/{id}", b.handleGetBook)
	r.Patch("/books/v1/{id}", b.handleUpdateBook)
	r.Get("/books/v1/{id}/chapters", b.handleListChapters)
	r.Get("/users/v1/me", b.handleMe)
	r.Get("/covers/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(CoverPNG())
	})
	r.Patch("/users/v1/me", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.sessions++
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

// FailNext makes the next request answer with status and message. An empty
// message produces a body the client cannot decode.
func (b *Backend) FailNext(status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, failure{status, message})
}

// Requests returns every request seen so far
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

// RequestsTo returns the requests whose path equals path
func (b *Backend) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Book returns the current state of a book
func (b *Backend) Book(id int64) (models.Book, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, book := range b.books {
		if book.ID == id {
			return book, true
		}
	}
	return models.Book{}, false
}

// SessionRefreshes counts PATCH /users/v1/me calls
func (b *Backend) SessionRefreshes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		var fail *failure
		if len(b.failures) > 0 {
			f := b.failures[0]
			fail = &f
			b.failures = b.failures[1:]
		}
		delay := b.Delay
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if fail != nil {
			if fail.message == "" {
				w.WriteHeader(fail.status)
				w.Write([]byte("<html>bad gateway</html>"))
				return
			}
			writeError(w, fail.status, fail.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := intParam(q, "limit", 10)
	offset := intParam(q, "offset", 0)
	keyword := q.Get("keyword")

	b.mu.Lock()
	var matched []models.Book
	for _, book := range b.books {
		if keyword == "" || strings.Contains(book.Name, keyword) || strings.Contains(book.Author, keyword) {
			matched = append(matched, book)
		}
	}
	b.mu.Unlock()

	if q.Get("sort") == "-hot" {
		slices.SortStableFunc(matched, func(a, b models.Book) int { return b.Hot - a.Hot })
	}

	resp := map[string]any{"books": page(matched, offset, limit)}
	if offset == 0 {
		resp["count"] = len(matched)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	book, ok := b.Book(id)
	if !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (b *Backend) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	if !b.isAdmin(r) {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	var update models.BookUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if err := update.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.books {
		if b.books[i].ID == id {
			update.Apply(&b.books[i])
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "book not found")
}

func (b *Backend) handleListChapters(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	q := r.URL.Query()
	limit := intParam(q, "limit", 10)
	offset := intParam(q, "offset", 0)
	fields := strings.Split(q.Get("fields"), ",")
	withContent := slices.Contains(fields, "content")

	b.mu.Lock()
	chapters := page(b.chapters[id], offset, limit)
	b.mu.Unlock()

	// the real backend omits zero values, chapter 0 included
	out := make([]map[string]any, 0, len(chapters))
	for _, ch := range chapters {
		item := map[string]any{"title": ch.Title}
		if ch.No != 0 {
			item["no"] = ch.No
		}
		if ch.WordCount != 0 {
			item["wordCount"] = ch.WordCount
		}
		if withContent {
			item["content"] = ch.Content
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapters": out})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	if b.isAdmin(r) {
		writeJSON(w, http.StatusOK, models.User{Account: "admin", Roles: []string{models.RoleSu}})
		return
	}
	if r.Header.Get("Authorization") != "" {
		writeJSON(w, http.StatusOK, models.User{Account: "reader"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (b *Backend) isAdmin(r *http.Request) bool {
	return b.AdminToken != "" && r.Header.Get("Authorization") == "Bearer "+b.AdminToken
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

func intParam(q url.Values, key string, fallback int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{
		StatusCode: status,
		Category:   "wsl",
		Message:    message,
	})
}

// Books returns n books named "Book 1".."Book n" with ids 1..n and
// decreasing hotness
func Books(n int) []models.Book {
	books := make([]models.Book, n)
	for i := range books {
		books[i] = models.Book{
			ID:           int64(i + 1),
			Name:         fmt.Sprintf("Book %d", i+1),
			Author:       "Author",
			Summary:      "summary",
			ChapterCount: 12,
			Hot:          n - i,
		}
	}
	return books
}

// Chapters returns n chapters numbered from 0 whose content contains
// runs of whitespace
func Chapters(n int) []models.Chapter {
	chapters := make([]models.Chapter, n)
	for i := range chapters {
		chapters[i] = models.Chapter{
			No:        i,
			Title:     fmt.Sprintf("Ch%d", i),
			Content:   fmt.Sprintf("chapter  %d\n\n\nbody", i),
			WordCount: 100 + i,
		}
	}
	return chapters
}

// CoverPNG returns a small solid PNG image, served by the fake backend
// under /covers/
func CoverPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	for x := range 4 {
		for y := range 6 {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}
