package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E74C3C"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16858E"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// renderTable draws rows under a bold header
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true)
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}
