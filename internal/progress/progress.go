// Package progress remembers which chapter the reader last opened in each book.
//
// Records live in one JSON array under a single storage key. The array is
// ordered oldest first; re-reading a book moves its record to the end and the
// oldest record is dropped once more than Capacity books are tracked.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/justyntemme/wsl-t/internal/storage"
	"github.com/justyntemme/wsl-t/pkg/models"
)

const (
	// Capacity is the maximum number of books tracked
	Capacity = 20
	// DefaultKey is the storage key holding the records
	DefaultKey = "wsl-read-records"
)

// ErrUnavailable wraps every failure of the underlying storage
var ErrUnavailable = errors.New("reading progress unavailable")

// Store is the local reading progress store
type Store struct {
	kv  storage.KV
	key string
	now func() time.Time

	mu      sync.Mutex
	loaded  bool
	records []models.ReadingProgressRecord
}

// Option configures a Store
type Option func(*Store)

// WithKey stores the records under key instead of DefaultKey
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock replaces time.Now, used to stamp records without UpdatedAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store backed by kv. Nothing is read until first use.
func New(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:  kv,
		key: DefaultKey,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load reads the persisted records once. Callers hold s.mu.
func (s *Store) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.records = nil
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var records []models.ReadingProgressRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("%w: decoding records: %w", ErrUnavailable, err)
		}
	}
	s.records = records
	s.loaded = true
	return nil
}

// persist writes records and only then makes them the current state
func (s *Store) persist(ctx context.Context, records []models.ReadingProgressRecord) error {
	if records == nil {
		records = []models.ReadingProgressRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encoding records: %w", ErrUnavailable, err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.records = records
	s.loaded = true
	return nil
}

// List returns the records oldest first
func (s *Store) List(ctx context.Context) ([]models.ReadingProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(s.records), nil
}

// Recent returns the records most recently read first
func (s *Store) Recent(ctx context.Context) ([]models.ReadingProgressRecord, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.Reverse(records)
	return records, nil
}

// Get returns the record of one book
func (s *Store) Get(ctx context.Context, bookID int64) (*models.ReadingProgressRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, false, err
	}
	for _, r := range s.records {
		if r.BookID == bookID {
			return &r, true, nil
		}
	}
	return nil, false, nil
}

// Upsert records rec as the most recent read, replacing any earlier record
// of the same book and evicting the oldest records beyond Capacity.
func (s *Store) Upsert(ctx context.Context, rec models.ReadingProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return err
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now()
	}

	next := make([]models.ReadingProgressRecord, 0, len(s.records)+1)
	for _, r := range s.records {
		if r.BookID != rec.BookID {
			next = append(next, r)
		}
	}
	next = append(next, rec)
	if over := len(next) - Capacity; over > 0 {
		next = next[over:]
	}
	return s.persist(ctx, next)
}

// Clear forgets every record
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, nil)
}
