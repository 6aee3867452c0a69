// Package catalog holds the view definitions available to each role: the
// built-in pages plus any declared in a TOML views file.
package catalog

import (
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/teranos/hirepanel/action"
	"github.com/teranos/hirepanel/columns"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/logger"
	"github.com/teranos/hirepanel/query"
	"github.com/teranos/hirepanel/session"
	"github.com/teranos/hirepanel/view"
)

// Catalog indexes definitions by role and name
type Catalog struct {
	defs []view.Definition
}

// New builds a catalog; later definitions replace earlier ones with the
// same role and name
func New(defs ...view.Definition) *Catalog {
	c := &Catalog{}
	for _, d := range defs {
		c.add(d)
	}
	return c
}

func (c *Catalog) add(d view.Definition) {
	for i, existing := range c.defs {
		if existing.Role == d.Role && existing.Name == d.Name {
			c.defs[i] = d
			return
		}
	}
	c.defs = append(c.defs, d)
}

// ForRole lists the views role may open, in declaration order. Views
// without a role are open to everyone.
func (c *Catalog) ForRole(role session.Role) []view.Definition {
	var out []view.Definition
	for _, d := range c.defs {
		if d.Role == role || d.Role == "" {
			out = append(out, d)
		}
	}
	return out
}

// All returns every definition
func (c *Catalog) All() []view.Definition {
	return append([]view.Definition(nil), c.defs...)
}

// Lookup finds name for role. A name that exists only for other roles
// reports ErrForbidden so the caller can redirect instead of 404.
func (c *Catalog) Lookup(role session.Role, name string) (view.Definition, error) {
	var otherRoles []string
	for _, d := range c.defs {
		if d.Name != name {
			continue
		}
		if d.Role == role || d.Role == "" {
			return d, nil
		}
		otherRoles = append(otherRoles, string(d.Role))
	}
	if len(otherRoles) > 0 {
		sort.Strings(otherRoles)
		return view.Definition{}, errors.WithDetailf(
			errors.Wrapf(errors.ErrForbidden, "view %q", name),
			"available to: %s", strings.Join(otherRoles, ", "))
	}
	return view.Definition{}, errors.WithHint(
		errors.Wrapf(errors.ErrNotFound, "no view named %q", name),
		"run `hirepanel views` to list views")
}

// File is the on-disk views declaration
type File struct {
	Views []ViewDecl `toml:"view"`
}

// ViewDecl declares one view
type ViewDecl struct {
	Name          string           `toml:"name"`
	Title         string           `toml:"title"`
	Description   string           `toml:"description"`
	Role          string           `toml:"role"`
	Endpoint      string           `toml:"endpoint"`
	Route         string           `toml:"route"`
	PerPage       int              `toml:"per_page"`
	Sort          string           `toml:"sort"`
	Direction     string           `toml:"direction"`
	StatusFilters []string         `toml:"status_filters"`
	Exclude       []string         `toml:"exclude"`
	Columns       []ColumnDecl     `toml:"column"`
	Transitions   []TransitionDecl `toml:"transition"`
}

// ColumnDecl declares a column; Format is a formatter name
type ColumnDecl struct {
	Field  string `toml:"field"`
	Header string `toml:"header"`
	Format string `toml:"format"`
}

// TransitionDecl declares a row action
type TransitionDecl struct {
	Name    string `toml:"name"`
	Status  string `toml:"status"`
	Method  string `toml:"method"`
	Path    string `toml:"path"`
	Reason  bool   `toml:"reason"`
	Success string `toml:"success"`
}

// Definition turns the declaration into a view definition through the
// same builder the built-in views use
func (d ViewDecl) Definition() (view.Definition, error) {
	b := view.Define(d.Name).
		Title(d.Title).
		Describe(d.Description).
		Endpoint(d.Endpoint).
		Route(d.Route).
		Role(session.Role(strings.ToLower(d.Role))).
		PerPage(d.PerPage).
		Exclude(d.Exclude...).
		StatusFilters(d.StatusFilters...)

	if d.Sort != "" {
		b = b.DefaultSort(d.Sort, query.ParseDirection(d.Direction))
	}

	for _, c := range d.Columns {
		if c.Field == "" {
			return view.Definition{}, errors.NewInvalidRequestError("view %s: column without field", d.Name)
		}
		format, ok := columns.ByName(c.Format)
		if !ok {
			return view.Definition{}, errors.WithHintf(
				errors.NewInvalidRequestError("view %s: unknown format %q for %s", d.Name, c.Format, c.Field),
				"formats: %s, currency:<code>", strings.Join(columns.FormatterNames(), ", "))
		}
		header := c.Header
		if header == "" {
			header = columns.HeaderFor(c.Field)
		}
		b = b.Columns(columns.Column{Field: c.Field, Header: header, Format: format})
	}

	for _, t := range d.Transitions {
		b = b.Transition(action.Transition{
			Name:           t.Name,
			Status:         t.Status,
			Method:         t.Method,
			Path:           t.Path,
			RequiresReason: t.Reason,
			Success:        t.Success,
		})
	}
	return b.Build()
}

// Parse decodes a views file. Unknown keys are errors so typos do not
// silently drop settings.
func Parse(data string) ([]view.Definition, error) {
	var f File
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse views file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.NewInvalidRequestError("unknown keys in views file: %s", strings.Join(keys, ", "))
	}

	defs := make([]view.Definition, 0, len(f.Views))
	for i, decl := range f.Views {
		def, err := decl.Definition()
		if err != nil {
			return nil, errors.Wrapf(err, "view #%d", i+1)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadFile reads path
func LoadFile(path string) ([]view.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read views file %s", path)
	}
	defs, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return defs, nil
}

// Load returns the built-in views merged with those in path (if set)
func Load(path string, log *zap.SugaredLogger) (*Catalog, error) {
	c := New(Builtin()...)
	if path == "" {
		return c, nil
	}
	defs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, d := range defs {
		c.add(d)
	}
	logger.OrNop(log).Debugw("loaded views file", logger.FieldFile, path, "views", len(defs))
	return c, nil
}
