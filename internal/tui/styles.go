package tui

import "github.com/charmbracelet/lipgloss"

// Styles
var (
	baseFg    = lipgloss.Color("#E6E6E6")
	baseDimFg = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	accentFg  = lipgloss.Color("#7C3AED")
	warnFg    = lipgloss.Color("#F59E0B")
	borderCol = lipgloss.Color("#243141")

	appStyle      = lipgloss.NewStyle().Foreground(baseFg)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderCol).Padding(0, 1)
	titleStyle    = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(baseDimFg)
	browseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0B0F14")).Background(warnFg).Bold(true)
	anchorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(accentFg).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(warnFg).Bold(true)
	hoverStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
)
