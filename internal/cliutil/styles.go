// Package cliutil holds the plain-terminal lipgloss styles the run/dry-run
// commands print suite and step results with.
package cliutil

import "github.com/charmbracelet/lipgloss"

var (
	SuccessColor = lipgloss.Color("#73daca")
	FailureColor = lipgloss.Color("#f7768e")
	SkippedColor = lipgloss.Color("#e0af68")
	DimColor     = lipgloss.Color("#6c6c6c")
	AccentColor  = lipgloss.Color("#7aa2f7")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	FailureStyle = lipgloss.NewStyle().Foreground(FailureColor).Bold(true)
	SkippedStyle = lipgloss.NewStyle().Foreground(SkippedColor)
	DimStyle     = lipgloss.NewStyle().Foreground(DimColor)
	HeaderStyle  = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
)

// StatusGlyph renders a pass/fail/skip marker for a terminal status string.
func StatusGlyph(status string) string {
	switch status {
	case "success":
		return SuccessStyle.Render("PASS")
	case "failure":
		return FailureStyle.Render("FAIL")
	case "skipped":
		return SkippedStyle.Render("SKIP")
	default:
		return DimStyle.Render(status)
	}
}
