package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justyntemme/wsl-t/internal/api"
	"github.com/justyntemme/wsl-t/internal/books"
	"github.com/justyntemme/wsl-t/internal/config"
	"github.com/justyntemme/wsl-t/internal/logging"
	"github.com/justyntemme/wsl-t/internal/progress"
	"github.com/justyntemme/wsl-t/internal/storage"
	tu "github.com/justyntemme/wsl-t/internal/testing"
	"github.com/justyntemme/wsl-t/pkg/models"
)

// newRunner returns a runner whose service talks to a fake backend with n
// books of 12 chapters each
func newRunner(t *testing.T, n int, token string) (*Runner, *bytes.Buffer, *tu.Backend) {
	t.Helper()
	chs := map[int64][]models.Chapter{}
	for id := int64(1); id <= int64(n); id++ {
		chs[id] = tu.Chapters(12)
	}
	backend, srv := tu.NewBackend(t, tu.Books(n), chs)
	if token == "admin" {
		token = backend.AdminToken
	}
	svc := books.New(api.NewClient(srv.URL, token), progress.New(storage.NewMemory()))

	output := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{
		Config:  config.DefaultConfig(),
		Service: svc,
		Logger:  logging.Discard(),
		Output:  output,
	})
	return r, output, backend
}

func run(r *Runner, args ...string) error {
	return r.Command().Run(context.Background(), append([]string{"wsl-t"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil logger and output uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected stdout to be the default output")
			}
			if runner.config != nil || runner.service != nil {
				t.Error("expected config and service to be built lazily")
			}
		})

		t.Run("registers every command", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			var names []string
			for _, c := range runner.Command().Commands {
				names = append(names, c.Name)
			}
			want := "books chapter recent admin me ping config"
			if got := strings.Join(names, " "); got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		if err := runner.writeJSON(map[string]int{"a": 1}, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.String() != "{\"a\":1}\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Config From File", func(t *testing.T) {
		backend, srv := tu.NewBackend(t, tu.Books(3), nil)
		path := filepath.Join(t.TempDir(), "config.toml")
		conf := fmt.Sprintf("[server]\nurl = %q\n\n[storage]\nbackend = \"memory\"\n\n[reader]\nbook_page_size = 2\n", srv.URL)
		if err := os.WriteFile(path, []byte(conf), 0o600); err != nil {
			t.Fatal(err)
		}

		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Logger: logging.Discard(), Output: output})
		if err := run(r, "--config", path, "--lang", models.LangTC, "books", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		reqs := backend.RequestsTo("/books/v1")
		if len(reqs) != 1 {
			t.Fatalf("expected 1 request, got %d", len(reqs))
		}
		if reqs[0].Query.Get("limit") != "2" || reqs[0].Query.Get("lang") != models.LangTC {
			t.Errorf("expected configured page size and lang, got %v", reqs[0].Query)
		}
		if !strings.Contains(output.String(), "Book 2") || strings.Contains(output.String(), "Book 3") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Invalid Lang", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		r := NewRunner(RunnerOpts{Logger: logging.Discard(), Output: &bytes.Buffer{}})
		err := run(r, "--config", path, "--lang", "fr", "ping")
		if !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("expected invalid config, got %v", err)
		}
	})
}

func TestBooksCommands(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		r, output, backend := newRunner(t, 25, "")
		if err := run(r, "books", "list", "--category", "hot", "--limit", "3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		req := backend.RequestsTo("/books/v1")[0]
		if req.Query.Get("sort") != "-hot" || req.Query.Get("limit") != "3" {
			t.Errorf("unexpected query %v", req.Query)
		}
		out := output.String()
		if !strings.Contains(out, "Hot (25 books)") || !strings.Contains(out, "Book 1") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("List JSON At Offset", func(t *testing.T) {
		r, output, _ := newRunner(t, 25, "")
		if err := run(r, "books", "list", "--offset", "20", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got struct {
			Books []models.Book `json:"books"`
		}
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if len(got.Books) != 5 || got.Books[0].ID != 21 {
			t.Errorf("expected books 21-25, got %+v", got.Books)
		}
	})

	t.Run("Keyword Implies Search", func(t *testing.T) {
		r, output, backend := newRunner(t, 5, "")
		if err := run(r, "books", "list", "-k", "Book 4"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := backend.RequestsTo("/books/v1")[0].Query.Get("keyword"); got != "Book 4" {
			t.Errorf("expected keyword param, got %q", got)
		}
		if !strings.Contains(output.String(), "Search \"Book 4\"") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Unknown Category", func(t *testing.T) {
		r, _, backend := newRunner(t, 5, "")
		if err := run(r, "books", "list", "--category", "new"); !errors.Is(err, ErrUsage) {
			t.Errorf("expected usage error, got %v", err)
		}
		if len(backend.Requests()) != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("Show With Chapters", func(t *testing.T) {
		r, output, _ := newRunner(t, 2, "")
		if err := run(r, "books", "show", "--chapters", "2"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := output.String()
		for _, want := range []string{"Book 2", "Author:   Author", "Ch0", "Ch11"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output %q", want, out)
			}
		}
	})

	t.Run("Show Cover", func(t *testing.T) {
		list := tu.Books(1)
		list[0].Cover = "/covers/1.png"
		backend, srv := tu.NewBackend(t, list, nil)
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{
			Config:  config.DefaultConfig(),
			Service: books.New(api.NewClient(srv.URL, ""), progress.New(storage.NewMemory())),
			Logger:  logging.Discard(),
			Output:  output,
		})

		if err := run(r, "books", "show", "--cover", "--image-mode", "iterm", "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(backend.RequestsTo("/covers/1.png")) != 1 {
			t.Error("expected the cover to be downloaded")
		}
		if out := output.String(); !strings.HasPrefix(out, "\x1b") || !strings.Contains(out, "Book 1") {
			t.Errorf("expected the image before the details, got %q", out)
		}

		output.Reset()
		if err := run(r, "books", "show", "--cover", "--image-mode", "none", "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(output.String(), "Cover: /covers/1.png\n") {
			t.Errorf("expected the cover url, got %q", output.String())
		}
		if err := run(r, "books", "show", "--cover", "--image-mode", "ascii", "1"); !errors.Is(err, ErrUsage) {
			t.Errorf("expected usage error, got %v", err)
		}
	})

	t.Run("Show Missing Book", func(t *testing.T) {
		r, _, _ := newRunner(t, 2, "")
		if err := run(r, "books", "show", "9"); !errors.Is(err, api.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("Show Needs Id", func(t *testing.T) {
		r, _, _ := newRunner(t, 2, "")
		if err := run(r, "books", "show"); !errors.Is(err, ErrUsage) {
			t.Errorf("expected usage error, got %v", err)
		}
		if err := run(r, "books", "show", "abc"); !errors.Is(err, ErrUsage) {
			t.Errorf("expected usage error, got %v", err)
		}
	})
}

func TestReadingCommands(t *testing.T) {
	r, output, _ := newRunner(t, 3, "")

	t.Run("Read Records Progress", func(t *testing.T) {
		if err := run(r, "chapter", "read", "2", "4"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := output.String()
		if !strings.Contains(out, "Book 2  ·  Ch4") || !strings.Contains(out, "chapter 4\nbody") {
			t.Errorf("unexpected output %q", out)
		}
		rec, err := r.service.GetRead(context.Background(), 2)
		if err != nil || rec == nil || rec.ChapterNo != 4 {
			t.Errorf("expected read record of chapter 4, got %+v err=%v", rec, err)
		}
	})

	t.Run("Recent List", func(t *testing.T) {
		output.Reset()
		if err := run(r, "chapter", "read", "1", "0"); err != nil {
			t.Fatal(err)
		}
		output.Reset()
		if err := run(r, "recent", "list", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var records []models.ReadingProgressRecord
		if err := json.Unmarshal(output.Bytes(), &records); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if len(records) != 2 || records[0].BookID != 1 || records[1].BookID != 2 {
			t.Errorf("expected most recent first, got %+v", records)
		}
	})

	t.Run("Recently Read Category", func(t *testing.T) {
		output.Reset()
		if err := run(r, "books", "list", "--category", "recentlyRead"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "ch. 4 Ch4") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Recent Clear", func(t *testing.T) {
		output.Reset()
		if err := run(r, "recent", "clear"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output.Reset()
		if err := run(r, "recent", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.String() != "nothing read yet\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Missing Chapter", func(t *testing.T) {
		if err := run(r, "chapter", "read", "1", "40"); err == nil {
			t.Error("expected an error for a chapter past the end")
		}
	})

	t.Run("Recent List Without Storage", func(t *testing.T) {
		_, srv := tu.NewBackend(t, tu.Books(1), nil)
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{
			Config:  config.DefaultConfig(),
			Service: books.New(api.NewClient(srv.URL, ""), progress.New(lockedKV{})),
			Logger:  logging.Discard(),
			Output:  output,
		})
		if err := run(r, "recent", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.String() != "nothing read yet\n" {
			t.Errorf("unexpected output %q", output.String())
		}
		output.Reset()
		if err := run(r, "recent", "list", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(output.String()) != "[]" {
			t.Errorf("expected an empty JSON list, got %q", output.String())
		}
	})
}

// lockedKV fails every storage operation
type lockedKV struct{}

func (lockedKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("locked") }
func (lockedKV) Set(context.Context, string, []byte) error   { return errors.New("locked") }
func (lockedKV) Remove(context.Context, string) error        { return errors.New("locked") }
func (lockedKV) Close() error                                { return nil }

func TestAccountCommands(t *testing.T) {
	t.Run("Admin Update", func(t *testing.T) {
		r, output, backend := newRunner(t, 2, "admin")
		if err := run(r, "admin", "update-book", "--hot", "42", "--summary", "new", "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		book, _ := backend.Book(1)
		if book.Hot != 42 || book.Summary != "new" || book.Cover != "" {
			t.Errorf("unexpected book %+v", book)
		}
		if !strings.Contains(output.String(), "Book 1 updated") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Admin Update Validates First", func(t *testing.T) {
		r, _, backend := newRunner(t, 2, "admin")
		err := run(r, "admin", "update-book", "--hot", "0", "1")
		if !errors.Is(err, models.ErrInvalidUpdate) {
			t.Errorf("expected invalid update, got %v", err)
		}
		if err := run(r, "admin", "update-book", "1"); !errors.Is(err, models.ErrInvalidUpdate) {
			t.Errorf("expected empty update to be rejected, got %v", err)
		}
		if len(backend.Requests()) != 0 {
			t.Error("expected nothing to be sent")
		}
	})

	t.Run("Admin Update Forbidden", func(t *testing.T) {
		r, _, _ := newRunner(t, 2, "reader-token")
		err := run(r, "admin", "update-book", "--hot", "5", "1")
		var apiErr *api.Error
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 403 {
			t.Errorf("expected 403, got %v", err)
		}
	})

	t.Run("Me", func(t *testing.T) {
		r, output, _ := newRunner(t, 1, "admin")
		if err := run(r, "me"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := output.String()
		if !strings.Contains(out, "Account: admin") || !strings.Contains(out, "Admin:   true") {
			t.Errorf("unexpected output %q", out)
		}

		r, output, _ = newRunner(t, 1, "")
		if err := run(r, "me"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.String() != "not logged in\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Ping", func(t *testing.T) {
		r, output, backend := newRunner(t, 1, "")
		if err := run(r, "ping"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "is up") {
			t.Errorf("unexpected output %q", output.String())
		}

		backend.FailNext(502, "")
		if err := run(r, "ping"); err == nil {
			t.Error("expected an error from a failing server")
		}
	})
}

func TestConfigCommands(t *testing.T) {
	// keeps the default file storage out of the real config directory
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "wsl-t", "config.toml")

	t.Run("Init", func(t *testing.T) {
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Logger: logging.Discard(), Output: output})
		if err := run(r, "--config", path, "config", "init"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected config file: %v", err)
		}

		r = NewRunner(RunnerOpts{Logger: logging.Discard(), Output: output})
		if err := run(r, "--config", path, "config", "init"); !errors.Is(err, config.ErrConfigExists) {
			t.Errorf("expected existing config error, got %v", err)
		}
	})

	t.Run("Set Token", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Logger: logging.Discard(), Output: &bytes.Buffer{}})
		if err := run(r, "--config", path, "config", "set-token", "secret"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, err := config.Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Auth.Token != "secret" {
			t.Errorf("expected saved token, got %q", cfg.Auth.Token)
		}
	})

	t.Run("Show Masks Token", func(t *testing.T) {
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Logger: logging.Discard(), Output: output})
		if err := run(r, "--config", path, "config", "show"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := output.String()
		if strings.Contains(out, "secret") || !strings.Contains(out, `token = "********"`) {
			t.Errorf("expected masked token, got %q", out)
		}
		if !strings.HasPrefix(out, "# "+path) {
			t.Errorf("expected the config path first, got %q", out)
		}
	})

	t.Run("URL Override Is Saved", func(t *testing.T) {
		_, srv := tu.NewBackend(t, tu.Books(1), nil)
		r := NewRunner(RunnerOpts{Logger: logging.Discard(), Output: &bytes.Buffer{}})
		if err := run(r, "--config", path, "--url", srv.URL, "ping"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		r.close(context.Background(), nil)

		cfg, err := config.Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Server.URL != srv.URL || cfg.Auth.Token != "secret" {
			t.Errorf("expected url saved next to the token, got %+v", cfg.Server)
		}
	})
}
