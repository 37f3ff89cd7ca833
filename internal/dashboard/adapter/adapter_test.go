package adapter

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/asf/whisperdash/internal/database"
	"github.com/asf/whisperdash/internal/telemetry"
)

func newTestStore(t *testing.T) *telemetry.Store {
	t.Helper()
	db, err := database.New(database.Config{Path: t.TempDir() + "/swarm_state.db"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return telemetry.NewStore(db, zerolog.Nop())
}

func TestAdapter_DeadAgentDetection(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UnixMilli()

	require.NoError(t, store.InsertAgent(telemetry.Agent{
		ID: "a1", PID: 1, Role: "developer", Status: telemetry.StatusIdle,
		LastSeen: now - 1500, CreatedAt: now - 2000, IsActive: true,
	}))

	a := New(store, 1000*time.Millisecond)
	agents, err := a.GetAgents()
	require.NoError(t, err)
	require.Len(t, agents, 1)
	require.Equal(t, telemetry.StatusDead, agents[0].Status)

	require.NoError(t, store.UpdateAgentLastSeen("a1", now))
	agents, err = a.GetAgents()
	require.NoError(t, err)
	require.Equal(t, telemetry.StatusIdle, agents[0].Status)
}

func TestAdapter_GetAgentsOrderedByCreatedAt(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InsertAgent(telemetry.Agent{ID: "a2", PID: 2, Role: "r", Status: telemetry.StatusIdle, LastSeen: 1, CreatedAt: 200, IsActive: true}))
	require.NoError(t, store.InsertAgent(telemetry.Agent{ID: "a1", PID: 1, Role: "r", Status: telemetry.StatusIdle, LastSeen: 1, CreatedAt: 100, IsActive: true}))

	a := New(store, time.Hour)
	agents, err := a.GetAgents()
	require.NoError(t, err)
	require.Equal(t, "a1", agents[0].ID)
	require.Equal(t, "a2", agents[1].ID)
}

func TestAdapter_GetLogsForAgentDefaultsLimit(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InsertAgent(telemetry.Agent{ID: "a1", PID: 1, Role: "r", Status: telemetry.StatusIdle, LastSeen: 1, CreatedAt: 1, IsActive: true}))
	require.NoError(t, store.InsertLog(telemetry.LogEntry{AgentID: "a1", Level: telemetry.LevelInfo, Message: "hi", Timestamp: 1}))

	a := New(store, time.Hour)
	entries, err := a.GetLogsForAgent("a1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
