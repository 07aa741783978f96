package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	tu "github.com/justyntemme/wsl-t/internal/testing"
	"github.com/justyntemme/wsl-t/pkg/models"
)

func TestListBooks(t *testing.T) {
	ctx := context.Background()
	backend, srv := tu.NewBackend(t, tu.Books(35), nil)
	client := NewClient(srv.URL+"/", "")

	t.Run("First Page Carries Count", func(t *testing.T) {
		resp, err := client.ListBooks(ctx, BookQuery{Limit: 10})
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if len(resp.Books) != 10 || resp.Count != 35 {
			t.Errorf("expected 10 books of 35, got %d of %d", len(resp.Books), resp.Count)
		}
	})

	t.Run("Later Page Omits Count", func(t *testing.T) {
		resp, err := client.ListBooks(ctx, BookQuery{Limit: 10, Offset: 30})
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if len(resp.Books) != 5 || resp.Count != 0 {
			t.Errorf("expected 5 books and no count, got %d and %d", len(resp.Books), resp.Count)
		}
	})

	t.Run("Query Parameters", func(t *testing.T) {
		_, err := client.ListBooks(ctx, BookQuery{
			Limit: 10, Offset: 20, Keyword: "Book 3", Sort: "-hot", Fields: []string{"id", "name"},
		})
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		reqs := backend.RequestsTo("/books/v1")
		q := reqs[len(reqs)-1].Query
		want := map[string]string{
			"limit": "10", "offset": "20", "keyword": "Book 3", "sort": "-hot", "fields": "id,name",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("%s: expected %q, got %q", k, v, q.Get(k))
			}
		}
		if q.Has("lang") {
			t.Error("lang must not be sent unless configured")
		}
	})

	t.Run("Headers", func(t *testing.T) {
		authed := NewClient(srv.URL, "secret")
		authed.ListBooks(ctx, BookQuery{})
		reqs := backend.Requests()
		h := reqs[len(reqs)-1].Header
		if h.Get("Authorization") != "Bearer secret" {
			t.Errorf("unexpected Authorization %q", h.Get("Authorization"))
		}
		if _, err := uuid.Parse(h.Get(RequestIDHeader)); err != nil {
			t.Errorf("expected a uuid request id, got %q", h.Get(RequestIDHeader))
		}
	})
}

func TestLang(t *testing.T) {
	backend, srv := tu.NewBackend(t, tu.Books(2), nil)
	client := NewClient(srv.URL, "", WithLang(models.LangTC))

	if _, err := client.GetBook(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	reqs := backend.RequestsTo("/books/v1/1")
	if got := reqs[0].Query.Get("lang"); got != models.LangTC {
		t.Errorf("expected lang %q, got %q", models.LangTC, got)
	}

	client.SetLang("")
	client.GetBook(context.Background(), 1)
	reqs = backend.RequestsTo("/books/v1/1")
	if reqs[1].Query.Has("lang") {
		t.Error("expected lang to be dropped")
	}
}

func TestSessionSwitchDuringRequests(t *testing.T) {
	backend, srv := tu.NewBackend(t, tu.Books(3), nil)
	client := NewClient(srv.URL, "")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := client.ListBooks(context.Background(), BookQuery{Limit: 1}); err != nil {
					t.Errorf("unexpected error %v", err)
					return
				}
			}
		}()
	}
	for j := 0; j < 10; j++ {
		client.SetLang(models.LangTC)
		client.SetToken(backend.AdminToken)
		client.SetLang("")
	}
	wg.Wait()

	client.SetLang(models.LangTC)
	if client.Lang() != models.LangTC {
		t.Errorf("expected lang %q, got %q", models.LangTC, client.Lang())
	}
	for _, req := range backend.RequestsTo("/books/v1") {
		if lang := req.Query.Get("lang"); lang != "" && lang != models.LangTC {
			t.Errorf("unexpected lang %q", lang)
		}
	}
}

func TestGetBook(t *testing.T) {
	ctx := context.Background()
	_, srv := tu.NewBackend(t, tu.Books(3), nil)
	client := NewClient(srv.URL, "")

	t.Run("Found", func(t *testing.T) {
		book, err := client.GetBook(ctx, 2)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if book.ID != 2 || book.Name != "Book 2" || book.ChapterCount != 12 {
			t.Errorf("unexpected book %+v", book)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		_, err := client.GetBook(ctx, 99)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.Message != "book not found" {
			t.Errorf("expected server message, got %v", err)
		}
	})
}

func TestListChapters(t *testing.T) {
	ctx := context.Background()
	backend, srv := tu.NewBackend(t, tu.Books(1), map[int64][]models.Chapter{1: tu.Chapters(12)})
	client := NewClient(srv.URL, "")

	chapters, err := client.ListChapters(ctx, 1, ChapterQuery{Limit: 5, Offset: 0, Fields: []string{"no", "title", "content"}})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(chapters) != 5 {
		t.Fatalf("expected 5 chapters, got %d", len(chapters))
	}
	if chapters[0].No != 0 || chapters[0].Title != "Ch0" {
		t.Errorf("expected chapter 0 decoded from a missing no, got %+v", chapters[0])
	}
	if chapters[4].No != 4 || chapters[4].Content == "" {
		t.Errorf("unexpected chapter %+v", chapters[4])
	}

	q := backend.RequestsTo("/books/v1/1/chapters")[0].Query
	if q.Get("fields") != "no,title,content" || q.Get("limit") != "5" || q.Get("offset") != "0" {
		t.Errorf("unexpected query %v", q)
	}

	empty, err := client.ListChapters(ctx, 1, ChapterQuery{Limit: 5, Offset: 20})
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty page, got %d chapters and %v", len(empty), err)
	}
}

func TestUpdateBook(t *testing.T) {
	ctx := context.Background()
	backend, srv := tu.NewBackend(t, tu.Books(2), nil)
	hot := 88
	summary := "new summary"

	t.Run("Admin", func(t *testing.T) {
		client := NewClient(srv.URL, backend.AdminToken)
		err := client.UpdateBook(ctx, 1, models.BookUpdate{Hot: &hot, Summary: &summary})
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		book, _ := backend.Book(1)
		if book.Hot != 88 || book.Summary != "new summary" {
			t.Errorf("update not applied: %+v", book)
		}
	})

	t.Run("Forbidden", func(t *testing.T) {
		client := NewClient(srv.URL, "reader")
		err := client.UpdateBook(ctx, 1, models.BookUpdate{Hot: &hot})
		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %v", err)
		}
	})

	t.Run("Invalid Update Sends Nothing", func(t *testing.T) {
		before := len(backend.Requests())
		bad := 101
		client := NewClient(srv.URL, backend.AdminToken)
		if err := client.UpdateBook(ctx, 1, models.BookUpdate{Hot: &bad}); !errors.Is(err, models.ErrInvalidUpdate) {
			t.Errorf("expected ErrInvalidUpdate, got %v", err)
		}
		if len(backend.Requests()) != before {
			t.Error("expected no request for an invalid update")
		}
	})
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	backend, srv := tu.NewBackend(t, nil, nil)

	t.Run("Anonymous", func(t *testing.T) {
		user, err := NewClient(srv.URL, "").GetCurrentUser(ctx)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if user.Account != "" || user.IsAdmin() {
			t.Errorf("expected anonymous user, got %+v", user)
		}
	})

	t.Run("Admin", func(t *testing.T) {
		user, err := NewClient(srv.URL, backend.AdminToken).GetCurrentUser(ctx)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if !user.IsAdmin() {
			t.Errorf("expected admin, got %+v", user)
		}
	})

	t.Run("Refresh Session", func(t *testing.T) {
		if err := NewClient(srv.URL, "").RefreshSession(ctx); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if backend.SessionRefreshes() != 1 {
			t.Errorf("expected one refresh, got %d", backend.SessionRefreshes())
		}
	})
}

func TestErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Server Message", func(t *testing.T) {
		backend, srv := tu.NewBackend(t, tu.Books(1), nil)
		backend.FailNext(http.StatusBadRequest, "keyword is too long")
		_, err := NewClient(srv.URL, "").ListBooks(ctx, BookQuery{})
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if apiErr.StatusCode != 400 || apiErr.Message != "keyword is too long" || apiErr.Category != "wsl" {
			t.Errorf("unexpected error %+v", apiErr)
		}
	})

	t.Run("Unknown Error", func(t *testing.T) {
		backend, srv := tu.NewBackend(t, tu.Books(1), nil)
		backend.FailNext(http.StatusBadGateway, "")
		_, err := NewClient(srv.URL, "").ListBooks(ctx, BookQuery{})
		if err == nil || err.Error() != "unknown error [502]" {
			t.Errorf("expected unknown error [502], got %v", err)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		backend, srv := tu.NewBackend(t, nil, nil)
		backend.FailNext(http.StatusUnauthorized, "please login first")
		_, err := NewClient(srv.URL, "").GetCurrentUser(ctx)
		if !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		backend, srv := tu.NewBackend(t, tu.Books(1), nil)
		backend.Delay = 200 * time.Millisecond
		_, err := NewClient(srv.URL, "", WithTimeout(20*time.Millisecond)).ListBooks(ctx, BookQuery{})
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("Context Deadline", func(t *testing.T) {
		backend, srv := tu.NewBackend(t, tu.Books(1), nil)
		backend.Delay = 200 * time.Millisecond
		dctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := NewClient(srv.URL, "").ListBooks(dctx, BookQuery{})
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		hc := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		err := NewClient("http://example.invalid", "", WithHTTPClient(hc)).Ping(ctx)
		if err == nil || !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("expected transport error, got %v", err)
		}
	})

	t.Run("Body Read Failure", func(t *testing.T) {
		resp := &http.Response{StatusCode: 200, Body: &tu.FCloser{}, Header: http.Header{}}
		hc := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		_, err := NewClient("http://example.invalid", "", WithHTTPClient(hc)).GetBook(ctx, 1)
		if err == nil || !strings.Contains(err.Error(), "read failed") {
			t.Errorf("expected read failure, got %v", err)
		}
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		resp := &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("{")), Header: http.Header{}}
		hc := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		_, err := NewClient("http://example.invalid", "", WithHTTPClient(hc)).GetBook(ctx, 1)
		if err == nil || !strings.Contains(err.Error(), "decoding response") {
			t.Errorf("expected decode error, got %v", err)
		}
	})
}

func TestPing(t *testing.T) {
	_, srv := tu.NewBackend(t, nil, nil)
	if err := NewClient(srv.URL, "", WithRateLimit(100)).Ping(context.Background()); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestFetchCover(t *testing.T) {
	ctx := context.Background()
	backend, srv := tu.NewBackend(t, nil, nil)

	t.Run("Relative To Base URL", func(t *testing.T) {
		client := NewClient(srv.URL, "tok", WithLang(models.LangTC))
		data, err := client.FetchCover(ctx, "covers/1.png?v=2")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if !bytes.Equal(data, tu.CoverPNG()) {
			t.Error("unexpected cover bytes")
		}
		req := backend.RequestsTo("/covers/1.png")[0]
		if req.Query.Get("v") != "2" || req.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("unexpected request %+v", req)
		}
	})

	t.Run("Absolute Without Token", func(t *testing.T) {
		client := NewClient("http://example.invalid", "tok")
		if _, err := client.FetchCover(ctx, srv.URL+"/covers/2.png"); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		req := backend.RequestsTo("/covers/2.png")[0]
		if req.Header.Get("Authorization") != "" {
			t.Error("the token must not leave the book API")
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		client := NewClient(srv.URL, "")
		if _, err := client.FetchCover(ctx, "/missing/cover.png"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if _, err := NewClient(srv.URL, "").FetchCover(ctx, ""); err == nil {
			t.Error("expected an error")
		}
	})
}
