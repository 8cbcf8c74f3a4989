package ui

import "github.com/charmbracelet/lipgloss"

const (
	colorHighlight = "#00FFFF"
	colorBorder    = "#555555"
	colorSubtle    = "#666666"
	colorError     = "#DC143C"
	colorTag       = "#FFD700"
)

// Styles contains the lipgloss styles for the TUI
type Styles struct {
	Header      lipgloss.Style
	StatusBar   lipgloss.Style
	Selected    lipgloss.Style
	Unselected  lipgloss.Style
	Subtle      lipgloss.Style
	Error       lipgloss.Style
	FieldError  lipgloss.Style
	TagOn       lipgloss.Style
	TagOff      lipgloss.Style
	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style
}

func NewStyles() *Styles {
	return &Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorHighlight)).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSubtle)).
			Padding(0, 1),

		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorHighlight)).
			Bold(true),

		Unselected: lipgloss.NewStyle(),

		Subtle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSubtle)),

		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorError)).
			Bold(true),

		FieldError: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorError)),

		TagOn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorTag)).
			Bold(true),

		TagOff: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSubtle)),

		Dialog: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorBorder)).
			Padding(1, 2),

		DialogTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorHighlight)),
	}
}
