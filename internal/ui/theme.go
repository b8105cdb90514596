package ui

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors used by the editor UI.
type Theme struct {
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
}

// DefaultTheme returns the default theme.
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("12"),  // Blue
		Accent:  lipgloss.Color("14"),  // Cyan
		Error:   lipgloss.Color("9"),   // Red
		Muted:   lipgloss.Color("240"), // Gray
	}
}

type styles struct {
	pane        lipgloss.Style
	focusedPane lipgloss.Style
	title       lipgloss.Style
	selected    lipgloss.Style
	active      lipgloss.Style
	muted       lipgloss.Style
	err         lipgloss.Style
}

func newStyles(t Theme) styles {
	border := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	return styles{
		pane:        border.BorderForeground(t.Muted),
		focusedPane: border.BorderForeground(t.Primary),
		title:       lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		selected:    lipgloss.NewStyle().Bold(true).Reverse(true),
		active:      lipgloss.NewStyle().Foreground(t.Accent),
		muted:       lipgloss.NewStyle().Foreground(t.Muted),
		err:         lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}
