package pager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

// listing serves a fixed number of ints and counts fetches
type listing struct {
	count   int
	fetches atomic.Int32
	offsets []int
}

func (l *listing) fetch(ctx context.Context, offset, limit int) (Page[int], error) {
	l.fetches.Add(1)
	l.offsets = append(l.offsets, offset)
	var items []int
	for i := offset; i < offset+limit && i < l.count; i++ {
		items = append(items, i)
	}
	page := Page[int]{Items: items}
	// the backend only counts on the first page
	if offset == 0 {
		page.Total = l.count
	}
	return page, nil
}

func TestLoadNext(t *testing.T) {
	ctx := context.Background()

	t.Run("Thirty Five Books In Pages Of Ten", func(t *testing.T) {
		l := &listing{count: 35}
		c := New(l.fetch, WithLimit(10))
		if c.State() != StateInitial {
			t.Fatalf("expected initial state, got %s", c.State())
		}

		ok, err := c.LoadNext(ctx)
		if !ok || err != nil {
			t.Fatalf("first load: ok=%v err=%v", ok, err)
		}
		if c.Done() || c.Total() != 35 || c.Len() != 10 {
			t.Fatalf("after first page: done=%v total=%d len=%d", c.Done(), c.Total(), c.Len())
		}
		if c.State() != StateHasMore {
			t.Errorf("expected has-more, got %s", c.State())
		}

		for i := 0; i < 3; i++ {
			if ok, err := c.LoadNext(ctx); !ok || err != nil {
				t.Fatalf("load %d: ok=%v err=%v", i+2, ok, err)
			}
		}
		if !c.Done() || c.Len() != 35 {
			t.Fatalf("expected done with 35 items, got done=%v len=%d", c.Done(), c.Len())
		}
		want := []int{0, 10, 20, 30}
		for i, off := range want {
			if l.offsets[i] != off {
				t.Errorf("fetch %d: expected offset %d, got %d", i, off, l.offsets[i])
			}
		}

		if ok, _ := c.LoadNext(ctx); ok {
			t.Error("expected LoadNext to be ignored once done")
		}
		if l.fetches.Load() != 4 {
			t.Errorf("expected 4 fetches, got %d", l.fetches.Load())
		}
	})

	t.Run("Single Short Page", func(t *testing.T) {
		l := &listing{count: 3}
		c := New(l.fetch)
		c.LoadNext(ctx)
		if !c.Done() || c.Len() != 3 {
			t.Errorf("expected done with 3 items, got done=%v len=%d", c.Done(), c.Len())
		}
	})

	t.Run("Empty Listing", func(t *testing.T) {
		l := &listing{count: 0}
		c := New(l.fetch)
		ok, err := c.LoadNext(ctx)
		if !ok || err != nil {
			t.Fatalf("ok=%v err=%v", ok, err)
		}
		if !c.Done() || c.Len() != 0 {
			t.Errorf("expected done and empty")
		}
	})

	t.Run("Total Only From First Page", func(t *testing.T) {
		c := New(func(ctx context.Context, offset, limit int) (Page[int], error) {
			switch offset {
			case 0:
				return Page[int]{Items: make([]int, 10), Total: 20}, nil
			default:
				// later pages declare a different total which must be ignored
				return Page[int]{Items: make([]int, 10), Total: 500}, nil
			}
		}, WithLimit(10))
		c.LoadNext(ctx)
		c.LoadNext(ctx)
		if !c.Done() || c.Total() != 20 {
			t.Errorf("expected done with total 20, got done=%v total=%d", c.Done(), c.Total())
		}
	})

	t.Run("Empty Page Ends Listing", func(t *testing.T) {
		c := New(func(ctx context.Context, offset, limit int) (Page[int], error) {
			if offset == 0 {
				return Page[int]{Items: make([]int, 10), Total: 100}, nil
			}
			return Page[int]{}, nil
		}, WithLimit(10))
		c.LoadNext(ctx)
		c.LoadNext(ctx)
		if !c.Done() {
			t.Error("expected done after an empty page")
		}
	})
}

func TestShortPageEnd(t *testing.T) {
	ctx := context.Background()
	untotalled := func(count int) FetchFunc[int] {
		return func(ctx context.Context, offset, limit int) (Page[int], error) {
			var items []int
			for i := offset; i < offset+limit && i < count; i++ {
				items = append(items, i)
			}
			return Page[int]{Items: items}, nil
		}
	}

	t.Run("Loads Until Short Page", func(t *testing.T) {
		c := New(untotalled(100), WithLimit(20), WithShortPageEnd())
		loads := 0
		for !c.Done() && loads < 10 {
			if _, err := c.LoadNext(ctx); err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			loads++
		}
		if c.Len() != 100 || c.Total() != 100 {
			t.Errorf("expected 100 items, got len=%d total=%d", c.Len(), c.Total())
		}
		// five full pages and one empty page
		if loads != 6 {
			t.Errorf("expected 6 loads, got %d", loads)
		}
	})

	t.Run("Declared Totals Ignored", func(t *testing.T) {
		c := New(func(ctx context.Context, offset, limit int) (Page[int], error) {
			return Page[int]{Items: make([]int, limit), Total: 1}, nil
		}, WithLimit(10), WithShortPageEnd())
		c.LoadNext(ctx)
		c.LoadNext(ctx)
		if c.Done() || c.Len() != 20 || c.Total() != 0 {
			t.Errorf("expected more to load, got done=%v len=%d total=%d", c.Done(), c.Len(), c.Total())
		}
	})
}

func TestLoadNextWhilePending(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	var fetches atomic.Int32

	c := New(func(ctx context.Context, offset, limit int) (Page[int], error) {
		fetches.Add(1)
		close(started)
		<-release
		return Page[int]{Items: []int{1, 2}, Total: 2}, nil
	})

	result := make(chan bool)
	go func() {
		ok, _ := c.LoadNext(ctx)
		result <- ok
	}()
	<-started

	if c.State() != StateLoading || !c.Loading() {
		t.Fatalf("expected loading, got %s", c.State())
	}
	ok, err := c.LoadNext(ctx)
	if ok || err != nil {
		t.Errorf("expected a silent no-op, got ok=%v err=%v", ok, err)
	}
	if c.Len() != 0 {
		t.Errorf("expected no items while pending, got %d", c.Len())
	}

	close(release)
	if !<-result {
		t.Error("expected the first load to succeed")
	}
	if fetches.Load() != 1 {
		t.Errorf("expected exactly one fetch, got %d", fetches.Load())
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 items, got %d", c.Len())
	}
}

func TestGuard(t *testing.T) {
	ctx := context.Background()
	keyword := ""
	l := &listing{count: 5}
	c := New(l.fetch, WithGuard(func() bool { return keyword != "" }))

	if ok, err := c.LoadNext(ctx); ok || err != nil {
		t.Fatalf("expected guarded no-op, got ok=%v err=%v", ok, err)
	}
	if l.fetches.Load() != 0 {
		t.Fatalf("expected no fetch with an empty keyword")
	}
	if c.State() != StateInitial {
		t.Errorf("expected initial state, got %s", c.State())
	}

	keyword = "sword"
	if ok, _ := c.LoadNext(ctx); !ok {
		t.Error("expected load once a keyword is set")
	}
}

func TestFetchError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	fail := false
	l := &listing{count: 30}
	c := New(func(ctx context.Context, offset, limit int) (Page[int], error) {
		if fail {
			return Page[int]{}, boom
		}
		return l.fetch(ctx, offset, limit)
	})

	c.LoadNext(ctx)
	fail = true
	ok, err := c.LoadNext(ctx)
	if ok || !errors.Is(err, boom) {
		t.Fatalf("expected boom, got ok=%v err=%v", ok, err)
	}
	if c.State() != StateHasMore || c.Len() != 10 || c.Offset() != 10 {
		t.Errorf("expected untouched has-more state, got %s len=%d offset=%d", c.State(), c.Len(), c.Offset())
	}

	fail = false
	if ok, _ := c.LoadNext(ctx); !ok {
		t.Error("expected retry to succeed")
	}
	if c.Len() != 20 {
		t.Errorf("expected 20 items, got %d", c.Len())
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("Clears Items", func(t *testing.T) {
		l := &listing{count: 5}
		c := New(l.fetch)
		c.LoadNext(ctx)
		c.Reset()
		if c.State() != StateInitial || c.Len() != 0 || c.Total() != 0 || c.Offset() != 0 {
			t.Errorf("unexpected state after reset: %s len=%d", c.State(), c.Len())
		}
		if ok, _ := c.LoadNext(ctx); !ok {
			t.Error("expected load after reset")
		}
		if c.Len() != 5 {
			t.Errorf("expected 5 items, got %d", c.Len())
		}
	})

	t.Run("Drops Result Of Abandoned Fetch", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		c := New(func(ctx context.Context, offset, limit int) (Page[int], error) {
			close(started)
			<-release
			return Page[int]{Items: []int{99}, Total: 1}, nil
		})

		result := make(chan bool)
		go func() {
			ok, _ := c.LoadNext(ctx)
			result <- ok
		}()
		<-started
		c.Reset()
		close(release)

		if <-result {
			t.Error("expected the abandoned load to report false")
		}
		if c.Len() != 0 || c.State() != StateInitial {
			t.Errorf("stale result applied: len=%d state=%s", c.Len(), c.State())
		}
	})
}
