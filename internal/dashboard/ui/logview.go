package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/asf/whisperdash/internal/dashboard/ui/theme"
	"github.com/asf/whisperdash/internal/telemetry"
)

// layoutLogViewport resizes the Whisper Log viewport to its region of
// the terminal: right half of the screen, below the Header row.
func (m *Model) layoutLogViewport() {
	headerHeight := 3
	w := m.width / 2
	h := m.height - headerHeight
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	m.logView.Width = w
	m.logView.Height = h
	m.refreshLogViewport()
}

// refreshLogViewport rebuilds the viewport's content from the
// currently selected agent's log entries and, if autoScroll is set,
// jumps to the bottom.
func (m *Model) refreshLogViewport() {
	id := m.state.GetState().SelectedAgentID
	if id == "" {
		m.logView.SetContent("Select an agent to view logs")
		return
	}
	entries := m.state.GetState().Logs[id]
	if len(entries) == 0 {
		m.logView.SetContent("No logs for this agent")
		return
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatLogLine(e.Timestamp, e.Level, e.Message))
	}
	m.logView.SetContent(strings.Join(lines, "\n"))
	if m.autoScroll {
		m.logView.GotoBottom()
	}
}

// levelStyles maps a log level to the color it renders with in the
// Whisper Log, mirroring the Agent Grid's status-color intent in
// theme.go.
var levelStyles = map[telemetry.LogLevel]lipgloss.Style{
	telemetry.LevelInfo:  lipgloss.NewStyle().Foreground(theme.Default.StatusIdle),
	telemetry.LevelWarn:  lipgloss.NewStyle().Foreground(theme.Default.StatusError),
	telemetry.LevelError: lipgloss.NewStyle().Foreground(theme.Default.StatusDead),
}

// formatLogLine renders one whisper log entry as "[HH:MM:SS] message",
// colored by level.
func formatLogLine(timestampMs int64, level telemetry.LogLevel, message string) string {
	ts := time.UnixMilli(timestampMs).Format("15:04:05")
	line := fmt.Sprintf("[%s] %s", ts, message)
	if style, ok := levelStyles[level]; ok {
		return style.Render(line)
	}
	return line
}
