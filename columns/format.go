package columns

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Empty is shown for missing values
const Empty = "-"

// ProfileMarker replaces a profile object. Renderers show a navigation
// action instead of the cell text.
const ProfileMarker = "\x00profile"

// Options carries display settings into formatters
type Options struct {
	Location *time.Location
	Currency string
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// Formatter renders one value
type Formatter func(v any, o Options) string

// Display layouts. ParseDisplayed accepts each of them.
const (
	DateLayout        = "2006-01-02"
	DateTimeLayout    = "2006-01-02 15:04"
	DateTimeSecLayout = "2006-01-02 15:04:05"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}(:?\d{2})?)?)?$`)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04Z07",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04Z0700",
	"2006-01-02 15:04Z07",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// LooksLikeDate reports whether s is an ISO-8601 date or date-time
func LooksLikeDate(s string) bool {
	return isoDate.MatchString(s)
}

// parseISO returns the instant and whether a time of day was present.
// Strings without an offset are taken as UTC, which is what the API sends.
func parseISO(s string) (time.Time, bool, error) {
	if len(s) == len(DateLayout) {
		t, err := time.Parse(DateLayout, s)
		return t, false, err
	}
	var lastErr error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, true, nil
		}
		lastErr = err
	}
	return time.Time{}, false, lastErr
}

// Date renders ISO-8601 strings as local dates, with the time when the
// source carries one
func Date(v any, o Options) string {
	s, ok := v.(string)
	if !ok || !LooksLikeDate(s) {
		return Text(v, o)
	}
	t, hasTime, err := parseISO(s)
	if err != nil {
		return s
	}
	if !hasTime {
		return t.Format(DateLayout)
	}
	t = t.In(o.location())
	if t.Second() != 0 {
		return t.Format(DateTimeSecLayout)
	}
	return t.Format(DateTimeLayout)
}

// ParseDisplayed is the inverse of Date
func ParseDisplayed(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	var lastErr error
	for _, layout := range []string{DateTimeSecLayout, DateTimeLayout, DateLayout} {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Text renders scalars as-is and anything else through Auto
func Text(v any, o Options) string {
	switch x := v.(type) {
	case nil:
		return Empty
	case string:
		if strings.TrimSpace(x) == "" {
			return Empty
		}
		return x
	case json.Number:
		return x.String()
	case bool:
		return Bool(x, o)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int, int64, int32:
		return fmt.Sprint(x)
	}
	return Auto(v, o)
}

var currencySymbols = map[string]string{
	"USD": "$", "EUR": "€", "GBP": "£", "JPY": "¥", "INR": "₹",
}

// Currency formats numbers as money. An empty code uses Options.Currency.
func Currency(code string) Formatter {
	return func(v any, o Options) string {
		amount, ok := toFloat(v)
		if !ok {
			return Text(v, o)
		}
		c := strings.ToUpper(code)
		if c == "" {
			c = strings.ToUpper(o.Currency)
		}
		n := message.NewPrinter(language.English).Sprintf("%.2f", amount)
		if sym, ok := currencySymbols[c]; ok {
			if amount < 0 {
				return "-" + sym + strings.TrimPrefix(n, "-")
			}
			return sym + n
		}
		if c == "" {
			return n
		}
		return c + " " + n
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, !math.IsNaN(x)
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// ChipLimit is the largest list shown as chips
const ChipLimit = 3

// List renders arrays: small ones as chips, longer ones comma-joined
func List(v any, o Options) string {
	items, ok := v.([]any)
	if !ok {
		return Text(v, o)
	}
	if len(items) == 0 {
		return Empty
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = listItem(item, o)
	}
	if len(parts) <= ChipLimit {
		return "[" + strings.Join(parts, "] [") + "]"
	}
	return strings.Join(parts, ", ")
}

func listItem(v any, o Options) string {
	m, ok := v.(map[string]any)
	if !ok {
		return Text(v, o)
	}
	for _, k := range []string{"name", "title", "label", "company_name"} {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return rawJSON(m)
}

// Object renders nested objects: people as "Name <email>", companies as a
// one-line card, anything else as JSON
func Object(v any, o Options) string {
	m, ok := v.(map[string]any)
	if !ok {
		return Text(v, o)
	}
	if len(m) == 0 {
		return Empty
	}
	name, _ := firstString(m, "name", "full_name")
	email, hasEmail := firstString(m, "email", "contact_email")
	if name != "" && hasEmail {
		return name + " <" + email + ">"
	}
	if company, ok := firstString(m, "company_name"); ok {
		var extra []string
		for _, k := range []string{"industry", "location", "website"} {
			if s, ok := m[k].(string); ok && s != "" {
				extra = append(extra, s)
			}
		}
		if len(extra) == 0 {
			return company
		}
		return company + " (" + strings.Join(extra, ", ") + ")"
	}
	return rawJSON(m)
}

func firstString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func rawJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// Profile always yields ProfileMarker for present values
func Profile(v any, o Options) string {
	if v == nil {
		return Empty
	}
	return ProfileMarker
}

// Bool renders yes/no for booleans and 0/1 flags
func Bool(v any, o Options) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "yes"
		}
		return "no"
	case json.Number:
		if x.String() == "0" {
			return "no"
		}
		if x.String() == "1" {
			return "yes"
		}
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return Bool(b, o)
		}
	}
	return Text(v, o)
}

// Status renders "pending_review" as "Pending Review"
func Status(v any, o Options) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return Text(v, o)
	}
	return title(s)
}

// Auto picks a formatter from the value's shape
func Auto(v any, o Options) string {
	switch x := v.(type) {
	case nil:
		return Empty
	case string:
		if LooksLikeDate(x) {
			return Date(x, o)
		}
		return Text(x, o)
	case []any:
		return List(x, o)
	case map[string]any:
		return Object(x, o)
	case bool:
		return Bool(x, o)
	case json.Number, float64, int, int64, int32:
		return Text(x, o)
	}
	return rawJSON(v)
}

// autoFor adds field-name heuristics on top of Auto
func autoFor(field string) Formatter {
	name := field
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	switch {
	case name == ProfileField || strings.HasSuffix(name, "_profile"):
		return Profile
	case name == "status" || strings.HasSuffix(name, "_status"):
		return Status
	case strings.Contains(name, "salary") || strings.Contains(name, "amount") || strings.Contains(name, "price"):
		return Currency("")
	case strings.HasPrefix(name, "is_") || strings.HasPrefix(name, "has_"):
		return Bool
	}
	return Auto
}

// Named formatters for declarative view files
var byName = map[string]Formatter{
	"text":     Text,
	"date":     Date,
	"currency": Currency(""),
	"list":     List,
	"object":   Object,
	"profile":  Profile,
	"bool":     Bool,
	"status":   Status,
	"auto":     Auto,
}

// ByName resolves a formatter name; "currency:EUR" selects a code
func ByName(name string) (Formatter, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if code, ok := strings.CutPrefix(name, "currency:"); ok {
		return Currency(code), true
	}
	if name == "" {
		return nil, true
	}
	f, ok := byName[name]
	return f, ok
}

// FormatterNames lists the names ByName accepts
func FormatterNames() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
