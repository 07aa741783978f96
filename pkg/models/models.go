package models

import (
	"errors"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"
)

// User roles that grant access to the admin endpoints
const (
	RoleSu    = "su"
	RoleAdmin = "admin"
)

// LangTC selects the traditional-script variant of all text served by the backend
const LangTC = "zh-Hant"

// User represents the logged in account
type User struct {
	Account string   `json:"account"`
	Roles   []string `json:"roles,omitempty"`
}

// IsAdmin returns true if the user may update books
func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	for _, role := range u.Roles {
		if role == RoleSu || role == RoleAdmin {
			return true
		}
	}
	return false
}

// Book represents a book as returned by the list and detail endpoints
type Book struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	Author       string `json:"author,omitempty"`
	Summary      string `json:"summary,omitempty"`
	WordCount    int    `json:"wordCount,omitempty"`
	ChapterCount int    `json:"chapterCount,omitempty"`
	Hot          int    `json:"hot,omitempty"`
	Cover        string `json:"cover,omitempty"`
}

// Chapter is one numbered section of a book. The backend omits zero values,
// so the first chapter arrives without a "no" field and decodes to 0.
type Chapter struct {
	ID        int64  `json:"id,omitempty"`
	No        int    `json:"no"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content,omitempty"`
	WordCount int    `json:"wordCount,omitempty"`
}

// ChapterPage is a contiguous block of chapters of one book
type ChapterPage struct {
	BookID   int64
	Offset   int
	Chapters []Chapter
}

// Find returns the chapter numbered no, if the page holds it
func (p *ChapterPage) Find(no int) (*Chapter, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Chapters {
		if p.Chapters[i].No == no {
			ch := p.Chapters[i]
			return &ch, true
		}
	}
	return nil, false
}

// ReadingProgressRecord remembers the last chapter read for one book
type ReadingProgressRecord struct {
	BookID       int64     `json:"id"`
	BookName     string    `json:"name"`
	ChapterNo    int       `json:"no"`
	ChapterTitle string    `json:"title"`
	Done         bool      `json:"done,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BooksResponse represents the API response for listing books.
// Count is only filled in for the first page (offset 0).
type BooksResponse struct {
	Books []Book `json:"books"`
	Count int    `json:"count"`
}

// ChaptersResponse represents the API response for listing chapters
type ChaptersResponse struct {
	Chapters []Chapter `json:"chapters"`
}

// ErrorResponse is the error body returned by the backend
type ErrorResponse struct {
	StatusCode int    `json:"statusCode,omitempty"`
	Category   string `json:"category,omitempty"`
	Message    string `json:"message"`
}

// ErrInvalidUpdate is returned when a book update fails validation
var ErrInvalidUpdate = errors.New("invalid book update")

// BookUpdate holds the fields an admin may change. Nil fields are left as is.
type BookUpdate struct {
	Hot     *int    `json:"hot,omitempty"`
	Summary *string `json:"summary,omitempty"`
	Cover   *string `json:"cover,omitempty"`
}

// IsEmpty reports whether the update changes nothing
func (u BookUpdate) IsEmpty() bool {
	return u.Hot == nil && u.Summary == nil && u.Cover == nil
}

// Validate applies the same limits as the backend
func (u BookUpdate) Validate() error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalidUpdate)
	}
	if u.Hot != nil && (*u.Hot < 1 || *u.Hot > 100) {
		return fmt.Errorf("%w: hot must be between 1 and 100", ErrInvalidUpdate)
	}
	if u.Summary != nil {
		n := utf8.RuneCountInString(*u.Summary)
		if n < 1 || n > 2000 {
			return fmt.Errorf("%w: summary must be 1 to 2000 characters", ErrInvalidUpdate)
		}
	}
	if u.Cover != nil {
		if _, err := url.ParseRequestURI(*u.Cover); err != nil {
			return fmt.Errorf("%w: cover must be a URL", ErrInvalidUpdate)
		}
	}
	return nil
}

// Apply copies the set fields of the update onto a book
func (u BookUpdate) Apply(b *Book) {
	if u.Hot != nil {
		b.Hot = *u.Hot
	}
	if u.Summary != nil {
		b.Summary = *u.Summary
	}
	if u.Cover != nil {
		b.Cover = *u.Cover
	}
}
