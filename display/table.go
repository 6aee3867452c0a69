package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// MaxCellWidth truncates long cells in tables
const MaxCellWidth = 48

// Table renders headers and rows with pterm
func Table(headers []string, rows [][]string) (string, error) {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, headers)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = Truncate(c, MaxCellWidth)
		}
		data = append(data, cells)
	}
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
}

// Truncate shortens s to at most width runes, marking the cut with "..."
func Truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// Banner writes a boxed error banner, used when a list failed to load
func Banner(w io.Writer, title, message string) {
	box := pterm.DefaultBox.WithTitle(title).Sprint(message)
	fmt.Fprintln(w, box)
}

// EmptyState is shown for a page without rows
func EmptyState(w io.Writer, what string) {
	fmt.Fprintln(w, pterm.Gray(fmt.Sprintf("No %s found.", what)))
}
