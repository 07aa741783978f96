// Package pager drives incremental offset/limit loading of a listing.
package pager

import (
	"context"
	"sync"
)

// DefaultLimit is the page size used when none is configured
const DefaultLimit = 10

// State is the lifecycle of one listing
type State int

const (
	StateInitial State = iota
	StateLoading
	StateHasMore
	StateDone
)

// String returns a lower case name for the state
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateHasMore:
		return "has-more"
	case StateDone:
		return "done"
	default:
		return "initial"
	}
}

// Page is one response of a listing endpoint. Total is only meaningful on
// the first page; later pages may leave it zero.
type Page[T any] struct {
	Items []T
	Total int
}

// FetchFunc loads limit items starting at offset
type FetchFunc[T any] func(ctx context.Context, offset, limit int) (Page[T], error)

// Controller accumulates the pages of one listing. It is safe for use from
// several goroutines; at most one fetch runs at a time.
type Controller[T any] struct {
	fetch    FetchFunc[T]
	limit    int
	guard    func() bool
	shortEnd bool

	mu      sync.Mutex
	state   State
	offset  int
	total   int
	items   []T
	loading bool
	// gen is bumped by Reset so a fetch started earlier cannot apply its result
	gen uint64
}

// Option configures a Controller
type Option func(*options)

type options struct {
	limit    int
	guard    func() bool
	shortEnd bool
}

// WithLimit sets the page size
func WithLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithGuard makes LoadNext a no-op while guard returns false. Searching with
// an empty keyword uses this to tell "no query yet" apart from "no results".
func WithGuard(guard func() bool) Option {
	return func(o *options) { o.guard = guard }
}

// WithShortPageEnd is for endpoints that send no total. Totals are ignored
// and the listing ends with the first page shorter than the limit.
func WithShortPageEnd() Option {
	return func(o *options) { o.shortEnd = true }
}

// New creates a controller in the initial state
func New[T any](fetch FetchFunc[T], opts ...Option) *Controller[T] {
	o := options{limit: DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller[T]{
		fetch:    fetch,
		limit:    o.limit,
		guard:    o.guard,
		shortEnd: o.shortEnd,
	}
}

// LoadNext fetches the next page and appends it. It returns false without
// fetching when a load is already running, the listing is done or the guard
// rejects the load. On a fetch error the items are left untouched and the
// controller returns to its previous state.
func (c *Controller[T]) LoadNext(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.loading || c.state == StateDone || (c.guard != nil && !c.guard()) {
		c.mu.Unlock()
		return false, nil
	}
	c.loading = true
	prev := c.state
	c.state = StateLoading
	gen := c.gen
	offset := c.offset
	c.mu.Unlock()

	page, err := c.fetch(ctx, offset, c.limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false, nil
	}
	c.loading = false
	if err != nil {
		c.state = prev
		return false, err
	}

	if offset == 0 && !c.shortEnd {
		c.total = page.Total
	}
	c.items = append(c.items, page.Items...)
	c.offset = offset + len(page.Items)

	var done bool
	if c.shortEnd {
		done = len(page.Items) < c.limit
		if done {
			c.total = c.offset
		}
	} else {
		// an empty page also ends the listing so a stale total cannot loop forever
		done = c.offset >= c.total || len(page.Items) == 0
	}
	if done {
		c.state = StateDone
	} else {
		c.state = StateHasMore
	}
	return true, nil
}

// Reset forgets every loaded item and returns to the initial state. A fetch
// still running is abandoned and its result dropped.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state = StateInitial
	c.offset = 0
	c.total = 0
	c.items = nil
	c.loading = false
}

// State returns the current state
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns a copy of the items loaded so far
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// Len returns the number of items loaded so far
func (c *Controller[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Done reports whether the last page has been loaded
func (c *Controller[T]) Done() bool {
	return c.State() == StateDone
}

// Loading reports whether a fetch is running
func (c *Controller[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Total returns the item count declared by the first page. With
// WithShortPageEnd it is zero until the last page has been loaded.
func (c *Controller[T]) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Offset returns the offset of the next page
func (c *Controller[T]) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// Limit returns the page size
func (c *Controller[T]) Limit() int {
	return c.limit
}
