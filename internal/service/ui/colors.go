package ui

import "github.com/charmbracelet/lipgloss"

// Styles use the basic ANSI palette so they follow the terminal theme.
var (
	// TitleStyle is cyan, for section headings.
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	// UsageStyle is green, for usage lines and arguments.
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// DescStyle is gray so descriptions stay in the background.
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// FlagStyle is yellow.
	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)
