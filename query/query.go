// Package query holds the paging, search, sort and filter state of a
// resource view and turns it into request parameters.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Direction is a sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Toggle flips the direction
func (d Direction) Toggle() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// ParseDirection accepts "asc"/"desc" in any case; anything else is Asc
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// DefaultPerPage is used when a view does not set its own page size
const DefaultPerPage = 15

// State is the query state of one view. Values are immutable: the With*
// methods return a modified copy.
type State struct {
	Page          int
	PerPage       int
	Search        string
	SortBy        string
	SortDirection Direction
	Status        string
}

// New returns page 1 of a view with the given page size
func New(perPage int) State {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return State{Page: 1, PerPage: perPage, SortDirection: Asc}
}

// Values returns the request parameters
func (s State) Values() url.Values {
	v := url.Values{}
	page := s.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(s.PerPage))
	if s.Search != "" {
		v.Set("search", s.Search)
	}
	if s.SortBy != "" {
		dir := s.SortDirection
		if dir == "" {
			dir = Asc
		}
		v.Set("sort_by", s.SortBy)
		v.Set("sort_direction", string(dir))
	}
	if s.Status != "" {
		v.Set("status", s.Status)
	}
	return v
}

// Encode returns the query string with keys in sorted order
func (s State) Encode() string {
	return s.Values().Encode()
}

// WithPage moves to page n, clamped to at least 1
func (s State) WithPage(n int) State {
	if n < 1 {
		n = 1
	}
	s.Page = n
	return s
}

// WithSearch sets the search term and returns to page 1
func (s State) WithSearch(term string) State {
	s.Search = strings.TrimSpace(term)
	s.Page = 1
	return s
}

// WithSort sorts by field. Choosing the current field again toggles the
// direction; a new field starts ascending.
func (s State) WithSort(field string) State {
	if field == s.SortBy && field != "" {
		s.SortDirection = s.SortDirection.Toggle()
		return s
	}
	s.SortBy = field
	s.SortDirection = Asc
	return s
}

// WithSortDirection sets field and direction explicitly
func (s State) WithSortDirection(field string, dir Direction) State {
	s.SortBy = field
	s.SortDirection = dir
	return s
}

// WithStatus sets the status filter and returns to page 1
func (s State) WithStatus(status string) State {
	s.Status = status
	s.Page = 1
	return s
}
