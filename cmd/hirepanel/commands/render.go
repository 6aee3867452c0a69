package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/hirepanel/action"
	"github.com/teranos/hirepanel/columns"
	"github.com/teranos/hirepanel/display"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/resource"
	"github.com/teranos/hirepanel/view"
)

// pageOutput is the --json shape of one loaded page
type pageOutput struct {
	View  string            `json:"view"`
	Query map[string]string `json:"query"`
	Data  []resource.Record `json:"data"`
	Meta  resource.Meta     `json:"meta"`
	Error string            `json:"error,omitempty"`
}

func newPageOutput(snap view.Snapshot) pageOutput {
	q := map[string]string{}
	for k, v := range snap.Query.Values() {
		q[k] = v[0]
	}
	return pageOutput{
		View:  snap.Name,
		Query: q,
		Data:  snap.Data,
		Meta:  snap.Meta,
		Error: snap.Message,
	}
}

// renderPage writes the table (or error banner / empty state) and the pager
func renderPage(w io.Writer, def view.Definition, snap view.Snapshot, opts columns.Options) error {
	switch {
	case snap.Err != nil:
		display.Banner(w, "Failed to load "+def.Title, snap.Message)
	case len(snap.Data) == 0:
		display.EmptyState(w, strings.ToLower(def.Title))
	default:
		rows := snap.Rows(opts)
		for _, row := range rows {
			for i, cell := range row {
				if cell == columns.ProfileMarker {
					row[i] = "[view profile]"
				}
			}
		}
		table, err := display.Table(snap.Schema.Headers(), rows)
		if err != nil {
			return errors.Wrap(err, "failed to render table")
		}
		fmt.Fprint(w, table)
	}
	fmt.Fprintln(w, pterm.Gray(pagerLine(snap)))
	return nil
}

// pagerLine is the footer under a table
func pagerLine(snap view.Snapshot) string {
	m := snap.Meta
	parts := []string{fmt.Sprintf("Page %d of %d", m.CurrentPage, m.LastPage)}
	if m.Total > 0 && m.From > 0 {
		parts = append(parts, fmt.Sprintf("showing %d-%d of %d", m.From, m.To, m.Total))
	} else {
		parts = append(parts, fmt.Sprintf("%d total", m.Total))
	}
	q := snap.Query
	if q.SortBy != "" {
		parts = append(parts, fmt.Sprintf("sorted by %s %s", q.SortBy, q.SortDirection))
	}
	if q.Status != "" {
		parts = append(parts, "status "+q.Status)
	}
	if q.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", q.Search))
	}

	var nav []string
	if snap.CanPrev() {
		nav = append(nav, "prev")
	}
	if snap.CanNext() {
		nav = append(nav, "next")
	}
	if len(nav) > 0 {
		parts = append(parts, strings.Join(nav, "/"))
	}
	return strings.Join(parts, " | ")
}

// ErrReported marks errors the notifier has already shown to the user
var ErrReported = errors.New("already reported")

// Reported reports whether err was already shown by a notifier
func Reported(err error) bool {
	return errors.Is(err, ErrReported)
}

// dispatchNotified is true for the action failures the dispatcher shows
// itself: everything that got as far as the network
func dispatchNotified(err error) bool {
	var se *errors.StatusError
	var ve *action.ValidationError
	return errors.As(err, &se) || errors.As(err, &ve) ||
		errors.IsAny(err, errors.ErrTransport, errors.ErrInvalidResponse)
}

// withLoginHint adds the login suggestion to session failures
func withLoginHint(err error) error {
	if errors.IsUnauthorized(err) {
		return errors.WithHint(err, "run `hirepanel login`")
	}
	return err
}

// explainValidation turns field errors into hints, one per message
func explainValidation(err error) error {
	var ve *action.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	for _, field := range sortedKeys(ve.Fields) {
		for _, msg := range ve.Fields[field] {
			err = errors.WithHintf(err, "%s: %s", field, msg)
		}
	}
	return err
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
