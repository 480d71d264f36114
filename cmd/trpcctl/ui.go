package main

import "github.com/charmbracelet/lipgloss"

var (
	colorSuccess = lipgloss.Color("#00D26A")
	colorError   = lipgloss.Color("#FF4444")
	colorURL     = lipgloss.Color("#72e3ff")
	colorMeta    = lipgloss.Color("#555555")
	colorLabel   = lipgloss.Color("#c5a3fc")
)

var (
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleURL     = lipgloss.NewStyle().Foreground(colorURL)
	styleMeta    = lipgloss.NewStyle().Foreground(colorMeta)
	styleLabel   = lipgloss.NewStyle().Foreground(colorLabel).Bold(true).Width(14)
)

func success(msg string) string { return styleSuccess.Render("✓ " + msg) }

func failure(msg string) string { return styleError.Render("✗ " + msg) }

func field(label, value string) string {
	return styleLabel.Render(label) + " " + value
}
