package view

import (
	"strings"

	"github.com/teranos/hirepanel/action"
	"github.com/teranos/hirepanel/columns"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/query"
	"github.com/teranos/hirepanel/session"
)

// Definition is everything that distinguishes one list page from another
type Definition struct {
	Name        string
	Title       string
	Description string
	Endpoint    string
	Route       string
	// Role is required to open the view; empty means any logged-in user
	Role          session.Role
	PerPage       int
	Columns       columns.Schema
	Exclude       []string
	StatusFilters []string
	SortField     string
	SortDirection query.Direction
	Transitions   []action.Transition
}

// Transition looks up a row action by name
func (d Definition) Transition(name string) (action.Transition, bool) {
	for _, t := range d.Transitions {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return action.Transition{}, false
}

// TransitionNames lists the row actions
func (d Definition) TransitionNames() []string {
	names := make([]string, len(d.Transitions))
	for i, t := range d.Transitions {
		names[i] = t.Name
	}
	return names
}

// AllowsStatus reports whether status is an offered filter. Views without
// a filter list accept any status.
func (d Definition) AllowsStatus(status string) bool {
	if status == "" || len(d.StatusFilters) == 0 {
		return true
	}
	for _, s := range d.StatusFilters {
		if s == status {
			return true
		}
	}
	return false
}

// InitialQuery is the query state a fresh view starts from
func (d Definition) InitialQuery(perPageOverride int) query.State {
	perPage := d.PerPage
	if perPageOverride > 0 {
		perPage = perPageOverride
	}
	q := query.New(perPage)
	if d.SortField != "" {
		dir := d.SortDirection
		if dir == "" {
			dir = query.Asc
		}
		q = q.WithSortDirection(d.SortField, dir)
	}
	return q
}

// Builder assembles a Definition
type Builder struct {
	def  Definition
	errs []error
}

// Define starts a definition named name
func Define(name string) *Builder {
	return &Builder{def: Definition{Name: name}}
}

// Title sets the heading shown above the table
func (b *Builder) Title(title string) *Builder {
	b.def.Title = title
	return b
}

// Describe sets the one-line description shown by `views`
func (b *Builder) Describe(text string) *Builder {
	b.def.Description = text
	return b
}

// Endpoint sets the list endpoint under /api
func (b *Builder) Endpoint(endpoint string) *Builder {
	b.def.Endpoint = strings.Trim(endpoint, "/")
	return b
}

// Route sets the route path used by the guard and for return-to
func (b *Builder) Route(route string) *Builder {
	b.def.Route = route
	return b
}

// Role restricts the view to one role
func (b *Builder) Role(role session.Role) *Builder {
	b.def.Role = role
	return b
}

func (b *Builder) PerPage(n int) *Builder {
	b.def.PerPage = n
	return b
}

// Exclude hides fields from derived columns
func (b *Builder) Exclude(fields ...string) *Builder {
	b.def.Exclude = append(b.def.Exclude, fields...)
	return b
}

func (b *Builder) StatusFilters(statuses ...string) *Builder {
	b.def.StatusFilters = append(b.def.StatusFilters, statuses...)
	return b
}

// Columns sets the explicit schema
func (b *Builder) Columns(cols ...columns.Column) *Builder {
	b.def.Columns = append(b.def.Columns, cols...)
	return b
}

// DefaultSort sets the initial sort
func (b *Builder) DefaultSort(field string, dir query.Direction) *Builder {
	b.def.SortField = field
	b.def.SortDirection = dir
	return b
}

// Transition adds a row action
func (b *Builder) Transition(t action.Transition) *Builder {
	if t.Name == "" || t.Status == "" || t.Path == "" {
		b.errs = append(b.errs, errors.Newf("view %s: transition needs name, status and path", b.def.Name))
		return b
	}
	if _, dup := b.def.Transition(t.Name); dup {
		b.errs = append(b.errs, errors.Newf("view %s: duplicate transition %q", b.def.Name, t.Name))
		return b
	}
	if action.Destructive(t.Status) {
		t.RequiresReason = true
	}
	b.def.Transitions = append(b.def.Transitions, t)
	return b
}

// Build validates and returns the definition
func (b *Builder) Build() (Definition, error) {
	d := b.def
	if len(b.errs) > 0 {
		return Definition{}, b.errs[0]
	}
	if d.Name == "" {
		return Definition{}, errors.NewInvalidRequestError("view name is required")
	}
	if d.Endpoint == "" {
		return Definition{}, errors.NewInvalidRequestError("view %s: endpoint is required", d.Name)
	}
	if d.Route == "" {
		d.Route = "/" + d.Name
	}
	if d.Title == "" {
		d.Title = columns.HeaderFor(strings.ReplaceAll(d.Name, "-", "_"))
	}
	if d.PerPage <= 0 {
		d.PerPage = query.DefaultPerPage
	}
	if d.PerPage > 100 {
		return Definition{}, errors.NewInvalidRequestError("view %s: per_page must be at most 100", d.Name)
	}
	if d.Role != "" && !d.Role.Valid() {
		return Definition{}, errors.NewInvalidRequestError("view %s: unknown role %q", d.Name, d.Role)
	}
	return d, nil
}

// MustBuild is Build for definitions compiled into the binary
func (b *Builder) MustBuild() Definition {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}
