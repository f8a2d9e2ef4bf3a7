package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"gosim/internal/multiverse"
)

const panelMark = "●"

// MultiverseHeader lists the curve columns, one per rank after the label
func MultiverseHeader(mv *multiverse.Table) []string {
	header := []string{""}
	for _, p := range mv.Points {
		header = append(header, strconv.Itoa(p.Rank))
	}
	return header
}

// MultiverseRows lays the curve out column-wise: outcome, lower and upper
// rows first, then one row per panel level with a mark under every rank
// whose cell has that level.
func MultiverseRows(mv *multiverse.Table, digits int) [][]string {
	rows := [][]string{
		numberRow(mv.Outcome, mv.Points, digits, func(p multiverse.Point) float64 { return p.Outcome }),
		numberRow("lower", mv.Points, digits, func(p multiverse.Point) float64 { return p.Lower }),
		numberRow("upper", mv.Points, digits, func(p multiverse.Point) float64 { return p.Upper }),
	}
	for _, pr := range mv.Panel {
		row := []string{pr.Column + " = " + pr.Level}
		for _, marked := range pr.Marks {
			if marked {
				row = append(row, panelMark)
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func numberRow(label string, points []multiverse.Point, digits int, pick func(multiverse.Point) float64) []string {
	row := []string{label}
	for _, p := range points {
		row = append(row, Number(pick(p), digits))
	}
	return row
}

// MultiverseText draws the curve and its panel as one terminal table
func MultiverseText(mv *multiverse.Table, digits int) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || col == 0 {
				return headerStyle
			}
			return cellStyle.Align(lipgloss.Center)
		}).
		Headers(MultiverseHeader(mv)...).
		Rows(MultiverseRows(mv, digits)...).
		String()
}

// MultiverseMarkdown renders the curve as a pipe table
func MultiverseMarkdown(mv *multiverse.Table, title string, digits int) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "## %s\n\n", title)
	}
	writeMarkdownTable(&b, MultiverseHeader(mv), MultiverseRows(mv, digits))
	return b.String()
}
