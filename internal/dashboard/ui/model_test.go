package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/asf/whisperdash/internal/dashboard/adapter"
	"github.com/asf/whisperdash/internal/dashboard/poll"
	"github.com/asf/whisperdash/internal/dashboard/state"
	"github.com/asf/whisperdash/internal/database"
	"github.com/asf/whisperdash/internal/events"
	"github.com/asf/whisperdash/internal/telemetry"
)

func newTestModel(t *testing.T, cfg poll.Config) (*Model, *telemetry.Store) {
	t.Helper()
	db, err := database.New(database.Config{Path: t.TempDir() + "/swarm_state.db"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	store := telemetry.NewStore(db, zerolog.Nop())
	a := adapter.New(store, 30*time.Second)
	st := state.New(nil)
	bus := events.NewBus(zerolog.Nop())

	driver, err := poll.New(cfg, a, st, bus, zerolog.Nop())
	require.NoError(t, err)

	m := New(driver, st, bus, zerolog.Nop())
	return m, store
}

func insertAgent(t *testing.T, store *telemetry.Store, id string, createdAt int64) {
	t.Helper()
	require.NoError(t, store.InsertAgent(telemetry.Agent{
		ID: id, PID: 1, Role: "developer", Status: telemetry.StatusIdle,
		LastSeen: createdAt, CreatedAt: createdAt, IsActive: true,
	}))
}

func TestModel_LeftRightWraps(t *testing.T) {
	m, store := newTestModel(t, poll.Config{GridRows: 1, GridCols: 2})
	insertAgent(t, store, "a1", 1)
	insertAgent(t, store, "a2", 2)
	m.driver.ForcePoll()

	m.state.SelectAgent("a1")
	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, "a2", m.state.GetState().SelectedAgentID)

	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, "a1", m.state.GetState().SelectedAgentID, "wraps past the last agent")

	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, "a2", m.state.GetState().SelectedAgentID, "wraps before the first agent")
}

func TestModel_UpDownBoundedNoWrap(t *testing.T) {
	m, store := newTestModel(t, poll.Config{GridRows: 2, GridCols: 2})
	insertAgent(t, store, "a1", 1)
	insertAgent(t, store, "a2", 2)
	insertAgent(t, store, "a3", 3)
	insertAgent(t, store, "a4", 4)
	m.driver.ForcePoll()

	m.state.SelectAgent("a1")
	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, "a3", m.state.GetState().SelectedAgentID)

	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, "a3", m.state.GetState().SelectedAgentID, "bounded at the last row, no wrap")

	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, "a1", m.state.GetState().SelectedAgentID)

	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, "a1", m.state.GetState().SelectedAgentID, "bounded at the first row, no wrap")
}

func TestModel_EnterFocusesLogEscClears(t *testing.T) {
	m, store := newTestModel(t, poll.Config{})
	insertAgent(t, store, "a1", 1)
	m.driver.ForcePoll()

	m.state.SelectAgent("a1")
	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, focusLog, m.focus)

	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, focusGrid, m.focus)
	require.Equal(t, "", m.state.GetState().SelectedAgentID)
}

func TestModel_IntervalKeysClamp(t *testing.T) {
	m, _ := newTestModel(t, poll.Config{PollInterval: 2000 * time.Millisecond})
	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+")})
	require.Equal(t, 2000*time.Millisecond, m.driver.CurrentInterval(), "already at the ceiling")

	m2, _ := newTestModel(t, poll.Config{PollInterval: 250 * time.Millisecond})
	_, _ = m2.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	require.Equal(t, 250*time.Millisecond, m2.driver.CurrentInterval(), "already at the floor")
}
