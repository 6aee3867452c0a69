// Package columns turns schema-less API records into table cells.
//
// Views normally declare a Schema. Views that do not get one derived from
// the union of keys across every row of the page.
package columns

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/teranos/hirepanel/resource"
)

// Column is one displayed field
type Column struct {
	Field  string
	Header string
	Format Formatter
}

// Col builds a column with a header derived from the field name
func Col(field string, format Formatter) Column {
	return Column{Field: field, Header: HeaderFor(field), Format: format}
}

// Schema is an ordered column list
type Schema []Column

// Headers returns the column headers
func (s Schema) Headers() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Header
		if out[i] == "" {
			out[i] = HeaderFor(c.Field)
		}
	}
	return out
}

// Fields returns the field names
func (s Schema) Fields() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Field
	}
	return out
}

// Row formats one record
func (s Schema) Row(r resource.Record, opts Options) []string {
	out := make([]string, len(s))
	for i, c := range s {
		format := c.Format
		if format == nil {
			format = autoFor(c.Field)
		}
		out[i] = format(Lookup(r, c.Field), opts)
	}
	return out
}

// Rows formats every record
func (s Schema) Rows(records []resource.Record, opts Options) [][]string {
	out := make([][]string, 0, len(records))
	for _, r := range records {
		out = append(out, s.Row(r, opts))
	}
	return out
}

// Has reports whether field is in the schema
func (s Schema) Has(field string) bool {
	for _, c := range s {
		if c.Field == field {
			return true
		}
	}
	return false
}

// Lookup reads field from r. Dotted fields walk nested objects
// ("candidate.full_name").
func Lookup(r resource.Record, field string) any {
	if v, ok := r[field]; ok {
		return v
	}
	var cur any = map[string]any(r)
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// DefaultExcluded are never shown as derived columns
var DefaultExcluded = []string{
	"id", "uuid", "user_id", "password", "remember_token",
	"email_verified_at", "deleted_at", "pivot",
}

// preferred fields lead derived schemas, in this order
var preferred = []string{
	"full_name", "name", "title", "company_name", "email", "contact_email",
	"role", "status",
}

// ProfileField names the profile blob; "<role>_profile" fields count too
const ProfileField = "profile"

// Derive builds a schema from the union of keys across all records minus
// excluded. JSON objects lose their key order when decoded, so the order
// is the preferred identity fields first, the rest alphabetical, and the
// timestamps last. Nested profile objects are dropped from the data
// columns and surface as a single trailing profile column.
func Derive(records []resource.Record, excluded ...string) Schema {
	skip := make(map[string]bool, len(DefaultExcluded)+len(excluded))
	for _, f := range DefaultExcluded {
		skip[f] = true
	}
	for _, f := range excluded {
		skip[f] = true
	}

	seen := make(map[string]bool)
	profileField := ""
	for _, r := range records {
		for k, v := range r {
			if skip[k] {
				continue
			}
			if isProfileField(k, v) {
				if profileField == "" || k < profileField {
					profileField = k
				}
				continue
			}
			seen[k] = true
		}
	}

	fields := make([]string, 0, len(seen))
	for k := range seen {
		fields = append(fields, k)
	}
	sort.SliceStable(fields, func(i, j int) bool {
		ri, rj := rank(fields[i]), rank(fields[j])
		if ri != rj {
			return ri < rj
		}
		return fields[i] < fields[j]
	})

	schema := make(Schema, 0, len(fields)+1)
	for _, f := range fields {
		schema = append(schema, Col(f, nil))
	}
	if profileField != "" {
		schema = append(schema, Column{Field: profileField, Header: "Profile", Format: Profile})
	}
	return schema
}

func rank(field string) int {
	for i, p := range preferred {
		if field == p {
			return i
		}
	}
	if strings.HasSuffix(field, "_at") {
		return len(preferred) + 1
	}
	return len(preferred)
}

func isProfileField(field string, v any) bool {
	if field != ProfileField && !strings.HasSuffix(field, "_profile") {
		return false
	}
	_, isObject := v.(map[string]any)
	return isObject || v == nil
}

// Casers keep state and are not shared between goroutines
func title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// HeaderFor humanizes a field name: "created_at" -> "Created At"
func HeaderFor(field string) string {
	if i := strings.LastIndex(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return title(field)
}
