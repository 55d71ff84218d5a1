package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(termenv.ANSIBrightWhite))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(termenv.ANSIBrightGreen)).
			Bold(true)

	StepStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.ANSIColor(termenv.ANSIBrightWhite))

	PathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3a96dd"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff0000")).
			Bold(true)
)
