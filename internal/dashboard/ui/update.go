package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/asf/whisperdash/internal/telemetry"
)

const intervalStep = 250 * time.Millisecond

// Update implements tea.Model. It handles resize, the full keyboard
// contract, and the two relayed bus-event messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutLogViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pollUpdateMsg:
		if m.focus == focusLog {
			m.refreshLogViewport()
		}
		return m, m.waitForEvent

	case pollErrorMsg:
		m.lastErr = msg.err
		return m, m.waitForEvent
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.driver.Stop()
		return m, tea.Quit

	case key.Matches(msg, keys.ForcePoll):
		m.driver.ForcePoll()
		return m, nil

	case key.Matches(msg, keys.IntervalUp):
		m.driver.SetInterval(m.driver.CurrentInterval() + intervalStep)
		return m, nil

	case key.Matches(msg, keys.IntervalDown):
		m.driver.SetInterval(m.driver.CurrentInterval() - intervalStep)
		return m, nil

	case key.Matches(msg, keys.Enter):
		if m.state.GetState().SelectedAgentID != "" {
			m.focus = focusLog
			m.refreshLogViewport()
		}
		return m, nil

	case key.Matches(msg, keys.Esc):
		m.focus = focusGrid
		m.state.ClearSelection()
		return m, nil

	case key.Matches(msg, keys.Left):
		m.selectRelative(-1)
		return m, nil

	case key.Matches(msg, keys.Right):
		m.selectRelative(1)
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.focus == focusLog {
			m.logView.LineUp(1)
			m.autoScroll = m.logView.AtBottom()
			return m, nil
		}
		m.selectRow(-1)
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.focus == focusLog {
			m.logView.LineDown(1)
			m.autoScroll = m.logView.AtBottom()
			return m, nil
		}
		m.selectRow(1)
		return m, nil
	}

	return m, nil
}

// selectRelative moves the selection by delta positions through the
// current agent ordering, wrapping at both ends (left/right contract).
func (m *Model) selectRelative(delta int) {
	agents := m.state.GetState().Agents
	if len(agents) == 0 {
		return
	}
	idx := selectedIndex(agents, m.state.GetState().SelectedAgentID)
	if idx == -1 {
		m.state.SelectAgent(agents[0].ID)
		return
	}
	idx = ((idx+delta)%len(agents) + len(agents)) % len(agents)
	m.state.SelectAgent(agents[idx].ID)
}

// selectRow moves the selection by one grid row (deltaRows rows),
// bounded at the fleet edges with no wraparound (up/down contract): a
// move that would leave the fleet keeps the current selection.
func (m *Model) selectRow(deltaRows int) {
	agents := m.state.GetState().Agents
	if len(agents) == 0 {
		return
	}
	_, cols := m.driver.GridDimensions()
	if cols <= 0 {
		cols = 1
	}
	idx := selectedIndex(agents, m.state.GetState().SelectedAgentID)
	if idx == -1 {
		m.state.SelectAgent(agents[0].ID)
		return
	}
	idx += deltaRows * cols
	if idx < 0 || idx >= len(agents) {
		return
	}
	m.state.SelectAgent(agents[idx].ID)
}

func selectedIndex(agents []telemetry.DerivedAgent, id string) int {
	if id == "" {
		return -1
	}
	for i := range agents {
		if agents[i].ID == id {
			return i
		}
	}
	return -1
}
