package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true)

	// LabelStyle for metric names in the detail view.
	LabelStyle = lipgloss.NewStyle().Faint(true).Width(22)
)

// FormatPnL formats a profit-and-loss figure with a direction indicator.
func FormatPnL(value float64) string {
	pnlStr := fmt.Sprintf("%.2f", value)

	if value > 0 {
		return pnlStr + " ▲"
	} else if value < 0 {
		return pnlStr + " ▼"
	}

	return pnlStr
}

// FormatPercent renders a fraction as a percentage, e.g. 0.1234 -> "12.34%".
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}
