package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/marcin-skalski/mondrian/internal/status"
)

var (
	// Level colors
	colorGood       = lipgloss.Color("15") // white
	colorAlmostGood = lipgloss.Color("12") // blue
	colorAlmostBad  = lipgloss.Color("11") // yellow
	colorBad        = lipgloss.Color("9")  // red

	colorLine = lipgloss.Color("0") // black
	colorInk  = lipgloss.Color("0")

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	stoppedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

func levelColor(l status.Level) lipgloss.Color {
	switch l {
	case status.Good:
		return colorGood
	case status.AlmostGood:
		return colorAlmostGood
	case status.AlmostBad:
		return colorAlmostBad
	case status.Bad:
		return colorBad
	default:
		return colorGood
	}
}

// labelColor keeps labels readable on dark fills.
func labelColor(l status.Level) lipgloss.Color {
	switch l {
	case status.AlmostGood, status.Bad:
		return colorGood
	default:
		return colorInk
	}
}

func panelStyle(l status.Level) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(levelColor(l)).
		Foreground(labelColor(l)).
		Align(lipgloss.Center, lipgloss.Center)
}
