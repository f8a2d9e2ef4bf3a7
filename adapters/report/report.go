// Package report renders summary tables for terminals, Markdown documents and
// CSV consumers. Every numeric column is rounded to a fixed number of decimals.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"gosim/domain/core"
	"gosim/domain/summary"
)

// Format names an output rendering
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// Missing is printed for NaN estimates
const Missing = "NA"

// ParseFormat accepts text, markdown (or md) and csv
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "table":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q", core.ErrInvalidParameter, s)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16858E"))
)

// Header lists the columns of a summary rendering: the axes, the cell counts,
// then each metric followed by its Monte Carlo standard error.
func Header(sum *summary.Table) []string {
	cols := append([]string(nil), sum.Axes...)
	cols = append(cols, "n", "failed", "failure_rate")
	for _, m := range sum.Metrics {
		cols = append(cols, m, m+"_mcse")
	}
	return cols
}

// Rows formats every summary row as strings, in Header order
func Rows(sum *summary.Table, digits int) [][]string {
	rounded := sum.Round(digits)
	out := make([][]string, len(rounded.Rows))
	for i, row := range rounded.Rows {
		rec := make([]string, 0, len(sum.Axes)+3+2*len(sum.Metrics))
		for _, axis := range sum.Axes {
			v, ok := row.Params.Get(axis)
			if !ok {
				rec = append(rec, Missing)
				continue
			}
			rec = append(rec, v.String())
		}
		rec = append(rec,
			strconv.Itoa(row.N),
			strconv.Itoa(row.Failed),
			Number(row.FailureRate, digits),
		)
		for _, m := range sum.Metrics {
			est, ok := row.Metrics[m]
			if !ok {
				rec = append(rec, Missing, Missing)
				continue
			}
			rec = append(rec, Number(est.Value, digits), Number(est.MCSE, digits))
		}
		out[i] = rec
	}
	return out
}

// Number formats x with exactly digits decimals, NA for NaN
func Number(x float64, digits int) string {
	if math.IsNaN(x) {
		return Missing
	}
	if digits < 0 {
		digits = 0
	}
	return strconv.FormatFloat(x, 'f', digits, 64)
}

// Text draws the summary as a bordered terminal table
func Text(sum *summary.Table, digits int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(Header(sum)...).
		Rows(Rows(sum, digits)...)
	return t.String()
}

// Markdown renders the summary as a GitHub-style pipe table under an
// optional level-two heading
func Markdown(sum *summary.Table, title string, digits int) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "## %s\n\n", title)
	}
	writeMarkdownTable(&b, Header(sum), Rows(sum, digits))
	return b.String()
}

func writeMarkdownTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(escapeCells(header), " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("|" + strings.Join(sep, "|") + "|\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

// WriteCSV writes the header and rows as CSV
func WriteCSV(w io.Writer, sum *summary.Table, digits int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(sum)); err != nil {
		return err
	}
	if err := cw.WriteAll(Rows(sum, digits)); err != nil {
		return err
	}
	return cw.Error()
}

// Write renders sum in the given format
func Write(w io.Writer, format Format, sum *summary.Table, title string, digits int) error {
	switch format {
	case FormatText:
		if title != "" {
			if _, err := fmt.Fprintln(w, title); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(w, Text(sum, digits))
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(sum, title, digits))
		return err
	case FormatCSV:
		return WriteCSV(w, sum, digits)
	default:
		return fmt.Errorf("%w: unknown report format %q", core.ErrInvalidParameter, format)
	}
}
