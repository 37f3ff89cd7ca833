// Package theme holds the fixed color palette the dashboard renderer
// draws with. Status colors are advisory per the spec, not load-bearing
// for the renderer's contract.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme is the named lipgloss.Color set the renderer draws with.
type Theme struct {
	Primary    lipgloss.Color
	Background lipgloss.Color
	Surface    lipgloss.Color
	Text       lipgloss.Color
	Dim        lipgloss.Color

	StatusIdle  lipgloss.Color
	StatusBusy  lipgloss.Color
	StatusError lipgloss.Color
	StatusDead  lipgloss.Color
}

// Default is the dashboard's single built-in palette.
var Default = Theme{
	Primary:    lipgloss.Color("#7d56f4"),
	Background: lipgloss.Color("#1a1a2e"),
	Surface:    lipgloss.Color("#232342"),
	Text:       lipgloss.Color("#e0e0e0"),
	Dim:        lipgloss.Color("#555566"),

	StatusIdle:  lipgloss.Color("#00d4ff"), // cyan
	StatusBusy:  lipgloss.Color("#00ff88"), // green
	StatusError: lipgloss.Color("#ffaa00"), // yellow
	StatusDead:  lipgloss.Color("#ff4444"), // red
}
