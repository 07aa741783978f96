package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/justyntemme/wsl-t/pkg/models"
)

// Route identifies which screen a location points at
type Route int

const (
	RouteHome Route = iota
	RouteBook
	RouteChapter
)

// String returns the name of the route
func (r Route) String() string {
	switch r {
	case RouteBook:
		return "book"
	case RouteChapter:
		return "chapter"
	default:
		return "home"
	}
}

// ErrUnknownLocation is returned for paths that match no route
var ErrUnknownLocation = errors.New("unknown location")

// Location is an in-app address: a route with its parameters and, for the
// home route, the navigation query.
type Location struct {
	Route     Route
	BookID    int64
	ChapterNo int
	// Search is the raw query string, "?" prefixed or empty
	Search string
	// LangTC is set when the location carried the traditional-script prefix
	LangTC bool
}

// Home returns the home location for query q
func Home(q Query) Location {
	return Location{Route: RouteHome, Search: Encode(q)}
}

// BookLocation returns the detail location of a book
func BookLocation(id int64) Location {
	return Location{Route: RouteBook, BookID: id}
}

// ChapterLocation returns the location of one chapter of a book
func ChapterLocation(id int64, no int) Location {
	return Location{Route: RouteChapter, BookID: id, ChapterNo: no}
}

// Query returns the navigation query of the location, defaults included
func (l Location) Query() Query {
	if q, ok := Parse(l.Search); ok {
		return *q
	}
	return Default()
}

// String rebuilds the location as "/path?query"
func (l Location) String() string {
	var path string
	switch l.Route {
	case RouteBook:
		path = fmt.Sprintf("/book/%d", l.BookID)
	case RouteChapter:
		path = fmt.Sprintf("/book/%d/chapter/%d", l.BookID, l.ChapterNo)
	default:
		path = "/"
	}
	if l.LangTC {
		path = "/" + models.LangTC + path
	}
	search := l.Search
	if search == "?" {
		search = ""
	}
	return path + search
}

// ParseLocation parses "/", "/?category=hot", "/book/12" or
// "/book/12/chapter/3", optionally prefixed with "/zh-Hant".
func ParseLocation(raw string) (Location, error) {
	var loc Location
	path, search, _ := strings.Cut(raw, "?")
	if search != "" {
		loc.Search = "?" + search
	}

	tcPrefix := "/" + models.LangTC
	if path == tcPrefix || strings.HasPrefix(path, tcPrefix+"/") {
		loc.LangTC = true
		path = strings.TrimPrefix(path, tcPrefix)
	}

	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	switch {
	case len(parts) == 0:
		loc.Route = RouteHome
		return loc, nil
	case len(parts) == 2 && parts[0] == "book":
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			return loc, fmt.Errorf("%w: bad book id %q", ErrUnknownLocation, parts[1])
		}
		loc.Route = RouteBook
		loc.BookID = id
		return loc, nil
	case len(parts) == 4 && parts[0] == "book" && parts[2] == "chapter":
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			return loc, fmt.Errorf("%w: bad book id %q", ErrUnknownLocation, parts[1])
		}
		no, err := strconv.Atoi(parts[3])
		if err != nil || no < 0 {
			return loc, fmt.Errorf("%w: bad chapter number %q", ErrUnknownLocation, parts[3])
		}
		loc.Route = RouteChapter
		loc.BookID = id
		loc.ChapterNo = no
		return loc, nil
	}
	return loc, fmt.Errorf("%w: %s", ErrUnknownLocation, raw)
}
