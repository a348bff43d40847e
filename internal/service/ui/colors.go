package ui

import "github.com/charmbracelet/lipgloss"

// Plain ANSI colors so the help renders the same on any terminal theme.
var (
	// TitleStyle uses ANSI 6 (cyan) for section headers.
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	// UsageStyle uses ANSI 2 (green) for usage lines.
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// DescStyle uses ANSI 8 (gray) to keep descriptions quiet.
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// FlagStyle uses ANSI 3 (yellow) for flags.
	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)
