// Package query converts between URL query strings and the navigation state
// of the home listing.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Category is the active listing mode on the home view
type Category string

const (
	CategoryHome         Category = "home"
	CategoryHot          Category = "hot"
	CategorySearch       Category = "search"
	CategoryRecentlyRead Category = "recentlyRead"
)

// Categories in menu order
var Categories = []Category{CategoryHome, CategoryHot, CategorySearch, CategoryRecentlyRead}

// Label returns the menu label of the category
func (c Category) Label() string {
	switch c {
	case CategoryHot:
		return "Hot"
	case CategorySearch:
		return "Search"
	case CategoryRecentlyRead:
		return "Recently Read"
	default:
		return "All Books"
	}
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// SortHot orders books by descending popularity
const SortHot = "-hot"

const (
	keyCategory = "category"
	keyKeyword  = "keyword"
	keySort     = "sort"
	keyOffset   = "offset"
)

// Query is the navigation state carried in the query string
type Query struct {
	Category Category
	Keyword  string
	Sort     string
	Offset   int
}

// Default returns the query used when none is present
func Default() Query {
	return Query{Category: CategoryHome}
}

// ForCategory returns the fresh query for switching to category c.
// Switching resets keyword and offset; hot implies hot sort.
func ForCategory(c Category) Query {
	q := Query{Category: c}
	if c == CategoryHot {
		q.Sort = SortHot
	}
	return q
}

// Parse decodes a location search string such as "?category=hot&offset=10".
// It returns false when there is no query string at all. Malformed values fall
// back to their defaults, so Parse never fails.
func Parse(search string) (*Query, bool) {
	search = strings.TrimPrefix(search, "?")
	if search == "" {
		return nil, false
	}
	values, _ := url.ParseQuery(search)
	q := fromValues(values)
	return &q, true
}

func fromValues(values url.Values) Query {
	q := Default()
	if c := Category(values.Get(keyCategory)); c != "" {
		q.Category = c
	}
	q.Keyword = values.Get(keyKeyword)
	q.Sort = values.Get(keySort)
	q.Offset = parseOffset(values.Get(keyOffset))
	return q
}

func parseOffset(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Values returns q as url.Values, leaving out keys at their default value
func (q Query) Values() url.Values {
	values := url.Values{}
	category := q.Category
	if category == "" {
		category = CategoryHome
	}
	values.Set(keyCategory, string(category))
	if q.Keyword != "" {
		values.Set(keyKeyword, q.Keyword)
	}
	if q.Sort != "" {
		values.Set(keySort, q.Sort)
	}
	if q.Offset > 0 {
		values.Set(keyOffset, strconv.Itoa(q.Offset))
	}
	return values
}

// Encode serializes q as a "?"-prefixed query string with sorted keys
func Encode(q Query) string {
	return "?" + q.Values().Encode()
}

// Partial is a query update. Nil fields are not part of the update.
type Partial struct {
	Category *Category
	Keyword  *string
	Sort     *string
	Offset   *int
}

// WithCategory returns a partial setting only the category
func WithCategory(c Category) Partial { return Partial{Category: &c} }

// WithKeyword returns a partial setting only the keyword
func WithKeyword(k string) Partial { return Partial{Keyword: &k} }

// WithSort returns a partial setting only the sort
func WithSort(s string) Partial { return Partial{Sort: &s} }

// WithOffset returns a partial setting only the offset
func WithOffset(n int) Partial { return Partial{Offset: &n} }

// Merge combines two partials, p2 taking precedence
func (p Partial) Merge(p2 Partial) Partial {
	if p2.Category != nil {
		p.Category = p2.Category
	}
	if p2.Keyword != nil {
		p.Keyword = p2.Keyword
	}
	if p2.Sort != nil {
		p.Sort = p2.Sort
	}
	if p2.Offset != nil {
		p.Offset = p2.Offset
	}
	return p
}

// applyTo overlays p onto q
func (p Partial) applyTo(q Query) Query {
	if p.Category != nil {
		q.Category = *p.Category
	}
	if p.Keyword != nil {
		q.Keyword = *p.Keyword
	}
	if p.Sort != nil {
		q.Sort = *p.Sort
	}
	if p.Offset != nil {
		q.Offset = *p.Offset
		if q.Offset < 0 {
			q.Offset = 0
		}
	}
	return q
}

// Serialize builds the query string for a navigation.
//
// With merge, partial is overlaid onto the query parsed from current (for
// example paging forward while keeping the keyword). Without merge the
// result holds only partial, every other key taking its default.
func Serialize(partial Partial, current string, merge bool) string {
	base := Default()
	if merge {
		if q, ok := Parse(current); ok {
			base = *q
		}
	}
	return Encode(partial.applyTo(base))
}
