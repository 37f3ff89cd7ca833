package telemetry

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/asf/whisperdash/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	db, err := database.New(database.Config{Path: dir + "/swarm_state.db"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, zerolog.Nop())
}

func TestStore_AgentLifecycle(t *testing.T) {
	s := newTestStore(t)

	agent := Agent{ID: "agent-1", PID: 100, Role: "developer", Status: StatusIdle, LastSeen: 1000, CreatedAt: 1000, IsActive: true}
	require.NoError(t, s.InsertAgent(agent))

	got, err := s.GetAgent("agent-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "developer", got.Role)

	require.NoError(t, s.UpdateAgentLastSeen("agent-1", 2000))
	got, _ = s.GetAgent("agent-1")
	require.EqualValues(t, 2000, got.LastSeen)

	require.NoError(t, s.UpdateAgentStatus("agent-1", StatusBusy))
	got, _ = s.GetAgent("agent-1")
	require.Equal(t, StatusBusy, got.Status)

	require.NoError(t, s.DeactivateAgent("agent-1"))
	got, _ = s.GetAgent("agent-1")
	require.False(t, got.IsActive)

	require.ErrorIs(t, s.DeactivateAgent("agent-1"), ErrNotRegistered)
}

func TestStore_ListActiveAgentsOrderedByCreatedAt(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.InsertAgent(Agent{ID: "a2", PID: 2, Role: "r", Status: StatusIdle, LastSeen: 1, CreatedAt: 200, IsActive: true}))
	require.NoError(t, s.InsertAgent(Agent{ID: "a1", PID: 1, Role: "r", Status: StatusIdle, LastSeen: 1, CreatedAt: 100, IsActive: true}))

	agents, err := s.ListActiveAgents()
	require.NoError(t, err)
	require.Len(t, agents, 2)
	require.Equal(t, "a1", agents[0].ID)
	require.Equal(t, "a2", agents[1].ID)
}

func TestStore_LogCircularBuffer(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertAgent(Agent{ID: "a1", PID: 1, Role: "r", Status: StatusIdle, LastSeen: 1, CreatedAt: 1, IsActive: true}))

	for i, msg := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, s.InsertLog(LogEntry{AgentID: "a1", Level: LevelInfo, Message: msg, Timestamp: int64(i)}))
		require.NoError(t, s.PruneLogs("a1", 3))
	}

	entries, err := s.ListLogsForAgent("a1", 100)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "e", entries[0].Message)
	require.Equal(t, "d", entries[1].Message)
	require.Equal(t, "c", entries[2].Message)
}

func TestStore_AggregatedMetrics(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertAgent(Agent{ID: "a1", PID: 1, Role: "r", Status: StatusIdle, LastSeen: 1000, CreatedAt: 1, IsActive: true}))
	require.NoError(t, s.InsertMetric(MetricEntry{AgentID: "a1", TokensUsed: 500, EstimatedCost: 0.02, Timestamp: 1}))
	require.NoError(t, s.InsertMetric(MetricEntry{AgentID: "a1", TokensUsed: 250, EstimatedCost: 0.01, Timestamp: 2}))

	m, err := s.AggregatedMetrics(1000, 500)
	require.NoError(t, err)
	require.EqualValues(t, 750, m.TotalTokens)
	require.InDelta(t, 0.03, m.TotalCost, 0.0001)
	require.Equal(t, 1, m.TotalAgents)
	require.Equal(t, 1, m.ActiveAgents)

	m, err = s.AggregatedMetrics(2000, 500)
	require.NoError(t, err)
	require.Equal(t, 0, m.ActiveAgents)
}
