package ui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asf/whisperdash/internal/telemetry"
)

func TestTaskOrderRank(t *testing.T) {
	require.Less(t, taskOrderRank(telemetry.TaskInProgress), taskOrderRank(telemetry.TaskPending))
	require.Less(t, taskOrderRank(telemetry.TaskPending), taskOrderRank(telemetry.TaskComplete))
	require.Less(t, taskOrderRank(telemetry.TaskComplete), taskOrderRank(telemetry.TaskFailed))
}

func TestAgentIndicator(t *testing.T) {
	busy := telemetry.DerivedAgent{Status: telemetry.StatusBusy, Progress: 42}
	require.Equal(t, "42%", agentIndicator(busy))

	idle := telemetry.DerivedAgent{Status: telemetry.StatusIdle}
	require.Equal(t, "-", agentIndicator(idle))

	errAgent := telemetry.DerivedAgent{Status: telemetry.StatusError}
	require.Equal(t, "!", agentIndicator(errAgent))

	dead := telemetry.DerivedAgent{Status: telemetry.StatusDead}
	require.Equal(t, "X", agentIndicator(dead))
}

func TestSelectedIndex(t *testing.T) {
	agents := []telemetry.DerivedAgent{
		{Agent: telemetry.Agent{ID: "a1"}},
		{Agent: telemetry.Agent{ID: "a2"}},
		{Agent: telemetry.Agent{ID: "a3"}},
	}
	require.Equal(t, 1, selectedIndex(agents, "a2"))
	require.Equal(t, -1, selectedIndex(agents, "missing"))
	require.Equal(t, -1, selectedIndex(agents, ""))
}
