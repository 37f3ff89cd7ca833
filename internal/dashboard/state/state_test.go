package state

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/asf/whisperdash/internal/events"
	"github.com/asf/whisperdash/internal/telemetry"
)

// newCountingBus returns a real events.Bus whose `change` subscriber
// sends on a buffered channel, so a test can count deliveries within a
// bounded window without racing the bus's async dispatch.
func newCountingBus(t *testing.T) (*events.Bus, <-chan struct{}) {
	t.Helper()
	bus := events.NewBus(zerolog.Nop())
	received := make(chan struct{}, 16)
	bus.Subscribe(events.Change, func(*events.Event) {
		received <- struct{}{}
	})
	return bus, received
}

func countWithin(ch <-chan struct{}, d time.Duration) int {
	count := 0
	deadline := time.After(d)
	for {
		select {
		case <-ch:
			count++
		case <-deadline:
			return count
		}
	}
}

func TestStore_HasChangedNoopOnIdenticalAgents(t *testing.T) {
	s := New(nil)
	agents := []telemetry.DerivedAgent{
		{Agent: telemetry.Agent{ID: "a1"}, Status: telemetry.StatusIdle, Progress: 0},
	}

	changed := s.SetState(Partial{Agents: agents, LastPollTime: 1})
	require.True(t, changed)

	changed = s.SetState(Partial{Agents: agents, LastPollTime: 2})
	require.False(t, changed)
	require.EqualValues(t, 2, s.GetState().LastPollTime)
}

func TestStore_HasChangedDetectsStatusChange(t *testing.T) {
	s := New(nil)
	s.SetState(Partial{Agents: []telemetry.DerivedAgent{{Agent: telemetry.Agent{ID: "a1"}, Status: telemetry.StatusIdle}}})

	changed := s.SetState(Partial{Agents: []telemetry.DerivedAgent{{Agent: telemetry.Agent{ID: "a1"}, Status: telemetry.StatusBusy}}})
	require.True(t, changed)
}

func TestStore_SelectAgentReselectIsNoop(t *testing.T) {
	bus, received := newCountingBus(t)
	s := New(bus)

	s.SelectAgent("a1")
	s.SelectAgent("a1")

	require.Equal(t, 1, countWithin(received, 100*time.Millisecond))
}

func TestStore_ClearSelection(t *testing.T) {
	s := New(nil)
	s.SelectAgent("a1")
	require.Equal(t, "a1", s.GetState().SelectedAgentID)
	s.ClearSelection()
	require.Equal(t, "", s.GetState().SelectedAgentID)
}

func TestStore_GetSelectedAgent(t *testing.T) {
	s := New(nil)
	s.SetState(Partial{Agents: []telemetry.DerivedAgent{{Agent: telemetry.Agent{ID: "a1"}}, {Agent: telemetry.Agent{ID: "a2"}}}})
	s.SelectAgent("a2")

	selected := s.GetSelectedAgent()
	require.NotNil(t, selected)
	require.Equal(t, "a2", selected.ID)
}
