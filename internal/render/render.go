// Package render turns aggregated results into the supported output
// formats. The JSON field set (store, title, price, url, isbn with isbn
// nullable) is the compatibility contract with downstream consumers and
// must not change.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/bookscout/internal/book"
)

// maxTitleWidth truncates long titles in the table output.
const maxTitleWidth = 50

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	storeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	priceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	urlStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Write renders results in the named format ("table", "json" or "csv").
func Write(w io.Writer, format string, results []book.Result, failures []book.FailureRecord) error {
	switch format {
	case "json":
		return JSON(w, results)
	case "csv":
		return CSV(w, results)
	case "table", "":
		return Table(w, results, failures)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Table prints a human-readable price table plus a failure summary.
// Stores that found nothing are simply absent.
func Table(w io.Writer, results []book.Result, failures []book.FailureRecord) error {
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, []string{"Store", "Title", "Price", "Link"})
	for _, r := range results {
		rows = append(rows, []string{r.Store, truncate(r.Title, maxTitleWidth), r.Price, r.URL})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if n := lipgloss.Width(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	styles := []lipgloss.Style{storeStyle, lipgloss.NewStyle(), priceStyle, urlStyle}
	for rowIdx, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := styles[i]
			if rowIdx == 0 {
				style = headerStyle
			}
			cells[i] = style.Width(widths[i] + 2).Render(cell)
		}
		if _, err := fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, cells...)); err != nil {
			return err
		}
	}

	if len(results) == 0 {
		if _, err := fmt.Fprintln(w, "No matches found."); err != nil {
			return err
		}
	}

	for _, f := range failures {
		line := failStyle.Render(fmt.Sprintf("%s: %s", f.Store, f.Kind))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// JSON writes the results as an indented array. A store whose page did
// not expose an ISBN serializes with "isbn": null.
func JSON(w io.Writer, results []book.Result) error {
	if results == nil {
		results = []book.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// CSV writes a flat projection of the JSON field set, header included.
func CSV(w io.Writer, results []book.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"store", "title", "price", "url", "isbn"}); err != nil {
		return err
	}
	for _, r := range results {
		isbn := ""
		if r.ISBN != nil {
			isbn = *r.ISBN
		}
		if err := cw.Write([]string{r.Store, r.Title, r.Price, r.URL, isbn}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
