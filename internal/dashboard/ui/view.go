package ui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/asf/whisperdash/internal/dashboard/state"
	"github.com/asf/whisperdash/internal/dashboard/ui/theme"
	"github.com/asf/whisperdash/internal/telemetry"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Default.Text).
			Background(theme.Default.Surface).
			Padding(0, 1)

	regionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.Default.Primary)

	dimStyle = lipgloss.NewStyle().Foreground(theme.Default.Dim)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(theme.Default.Dim).
			Padding(0, 1)

	selectedCardStyle = cardStyle.Copy().
				Bold(true).
				BorderForeground(theme.Default.Primary)
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return "starting..."
	}

	s := m.state.GetState()

	header := m.renderHeader(s)
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderAgentGrid(s),
		m.renderTaskQueue(s),
	)
	right := m.renderWhisperLog(s)

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m *Model) renderHeader(s state.DashboardState) string {
	line := fmt.Sprintf(
		"ASF Whisper Dashboard Agents: %d/%d   Cost: %s   Tokens: %s",
		s.Metrics.ActiveAgents, s.Metrics.TotalAgents,
		formatCost(s.Metrics.TotalCost),
		formatTokens(s.Metrics.TotalTokens),
	)
	if m.lastErr != nil {
		line += "   " + dimStyle.Render("error: "+m.lastErr.Error())
	}
	return headerStyle.Width(m.width).Render(line)
}

func (m *Model) renderAgentGrid(s state.DashboardState) string {
	title := regionTitleStyle.Render("Agent Grid")
	if len(s.Agents) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("No agents"))
	}

	rows, cols := m.driver.GridDimensions()
	if cols <= 0 {
		cols = 1
	}
	_ = rows

	cardWidth := (m.width/2-2)/cols - 2
	if cardWidth < 8 {
		cardWidth = 8
	}

	var gridRows []string
	for i := 0; i < len(s.Agents); i += cols {
		end := i + cols
		if end > len(s.Agents) {
			end = len(s.Agents)
		}
		var cells []string
		for _, ag := range s.Agents[i:end] {
			cells = append(cells, m.renderAgentCard(ag, s.SelectedAgentID, cardWidth))
		}
		gridRows = append(gridRows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, gridRows...)...)
}

func (m *Model) renderAgentCard(ag telemetry.DerivedAgent, selectedID string, width int) string {
	indicator := agentIndicator(ag)
	body := fmt.Sprintf("%s\n%s %s", shortAgentID(ag.ID, 8), statusToken(string(ag.Status)), indicator)

	style := cardStyle
	if ag.ID == selectedID {
		style = selectedCardStyle
	}
	return style.Width(width).Render(body)
}

// agentIndicator renders the right-hand status indicator: a percentage
// for Busy, a dash for Idle, "!" for Error, "X" for Dead.
func agentIndicator(ag telemetry.DerivedAgent) string {
	switch ag.Status {
	case telemetry.StatusBusy:
		return fmt.Sprintf("%d%%", ag.Progress)
	case telemetry.StatusError:
		return "!"
	case telemetry.StatusDead:
		return "X"
	default:
		return "-"
	}
}

func (m *Model) renderTaskQueue(s state.DashboardState) string {
	title := regionTitleStyle.Render("Task Queue")
	if len(s.Tasks) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("No tasks"))
	}

	tasks := make([]telemetry.Task, len(s.Tasks))
	copy(tasks, s.Tasks)
	sort.SliceStable(tasks, func(i, j int) bool {
		pi, pj := taskOrderRank(tasks[i].Status), taskOrderRank(tasks[j].Status)
		if pi != pj {
			return pi < pj
		}
		return tasks[i].CreatedAt > tasks[j].CreatedAt
	})

	var lines []string
	for _, tsk := range tasks {
		lines = append(lines, fmt.Sprintf("%s %3d%% %s",
			formatProgressBar(tsk.ProgressPercent),
			tsk.ProgressPercent,
			truncateTitle(tsk.Title, 20),
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, lines...)...)
}

// taskOrderRank implements the Task Queue's fixed sort: InProgress,
// then Pending, then Complete, then Failed; ties break by createdAt
// descending (handled by the caller).
func taskOrderRank(status telemetry.TaskStatus) int {
	switch status {
	case telemetry.TaskInProgress:
		return 0
	case telemetry.TaskPending:
		return 1
	case telemetry.TaskComplete:
		return 2
	case telemetry.TaskFailed:
		return 3
	default:
		return 4
	}
}

func (m *Model) renderWhisperLog(s state.DashboardState) string {
	if s.SelectedAgentID == "" {
		title := regionTitleStyle.Render("Whisper Log")
		return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("Select an agent to view logs"))
	}
	title := regionTitleStyle.Render(fmt.Sprintf("Whisper Log: %s", s.SelectedAgentID))
	return lipgloss.JoinVertical(lipgloss.Left, title, m.logView.View())
}

