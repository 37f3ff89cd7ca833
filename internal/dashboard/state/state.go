// Package state holds the Dashboard Engine's single in-memory
// DashboardState and its shallow, field-targeted change detection.
package state

import (
	"sync"

	"github.com/asf/whisperdash/internal/events"
	"github.com/asf/whisperdash/internal/telemetry"
)

// DashboardState is the engine's single piece of truth, replaced
// wholesale on every poll tick.
type DashboardState struct {
	Agents          []telemetry.DerivedAgent
	Tasks           []telemetry.Task
	Logs            map[string][]telemetry.LogEntry
	Metrics         telemetry.AggregatedMetrics
	SelectedAgentID string
	LastPollTime    int64
}

// Partial carries the subset of DashboardState a caller wants to apply.
// Nil/zero fields mean "leave unchanged" except where noted.
type Partial struct {
	Agents          []telemetry.DerivedAgent
	Tasks           []telemetry.Task
	Logs            map[string][]telemetry.LogEntry
	Metrics         *telemetry.AggregatedMetrics
	SelectedAgentID *string // nil means unchanged; pointer to "" clears selection
	LastPollTime    int64
}

// Store holds the current DashboardState and emits a `change` event
// through bus whenever hasChanged reports a difference.
type Store struct {
	mu    sync.RWMutex
	state DashboardState
	bus   *events.Bus
}

// New builds an empty Store. bus may be nil, in which case change
// detection still runs but no event is emitted.
func New(bus *events.Bus) *Store {
	return &Store{
		state: DashboardState{Logs: make(map[string][]telemetry.LogEntry)},
		bus:   bus,
	}
}

// GetState returns a snapshot of the current state.
func (s *Store) GetState() DashboardState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// GetSelectedAgent returns the DerivedAgent matching the current
// selection, or nil if nothing is selected or the id no longer exists
// in the fleet.
func (s *Store) GetSelectedAgent() *telemetry.DerivedAgent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.SelectedAgentID == "" {
		return nil
	}
	for i := range s.state.Agents {
		if s.state.Agents[i].ID == s.state.SelectedAgentID {
			return &s.state.Agents[i]
		}
	}
	return nil
}

// SetState merges p into the current state unconditionally (so
// lastPollTime always advances) and emits `change` only when hasChanged
// reports a difference against the prior state. It returns that same
// changed verdict so a caller (the Polling Driver) can decide whether to
// emit its own `update` event for the same tick.
func (s *Store) SetState(p Partial) bool {
	s.mu.Lock()
	prev := s.state
	next := prev

	if p.Agents != nil {
		next.Agents = p.Agents
	}
	if p.Tasks != nil {
		next.Tasks = p.Tasks
	}
	if p.Logs != nil {
		next.Logs = p.Logs
	}
	if p.Metrics != nil {
		next.Metrics = *p.Metrics
	}
	if p.SelectedAgentID != nil {
		next.SelectedAgentID = *p.SelectedAgentID
	}
	if p.LastPollTime != 0 {
		next.LastPollTime = p.LastPollTime
	}

	changed := hasChanged(prev, next, p)
	s.state = next
	s.mu.Unlock()

	if changed {
		s.emitChange()
	}
	return changed
}

// SelectAgent sets SelectedAgentID, emitting `change` unless reselecting
// the same id (a no-op per the spec's idempotence law).
func (s *Store) SelectAgent(id string) {
	s.mu.Lock()
	if s.state.SelectedAgentID == id {
		s.mu.Unlock()
		return
	}
	s.state.SelectedAgentID = id
	s.mu.Unlock()
	s.emitChange()
}

// ClearSelection is SelectAgent("").
func (s *Store) ClearSelection() {
	s.SelectAgent("")
}

// Reset replaces the state with a fresh empty DashboardState. Used by
// tests and by a restart-from-scratch path; always emits `change`.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = DashboardState{Logs: make(map[string][]telemetry.LogEntry)}
	s.mu.Unlock()
	s.emitChange()
}

func (s *Store) emitChange() {
	if s.bus != nil {
		s.bus.Emit(events.Change, "dashboard_state", nil)
	}
}

// hasChanged implements the spec's shallow, field-targeted diff:
// agents/tasks compare paired (id, status, progress[Percent], lastSeen)
// tuples plus length; metrics compares the four scalars; selection
// compares by string inequality; logs are always treated as changed
// when explicitly supplied, to avoid a deep comparison.
func hasChanged(prev, next DashboardState, p Partial) bool {
	if p.Agents != nil && agentsChanged(prev.Agents, next.Agents) {
		return true
	}
	if p.Tasks != nil && tasksChanged(prev.Tasks, next.Tasks) {
		return true
	}
	if p.Metrics != nil && prev.Metrics != next.Metrics {
		return true
	}
	if p.SelectedAgentID != nil && prev.SelectedAgentID != next.SelectedAgentID {
		return true
	}
	if p.Logs != nil {
		return true
	}
	return false
}

func agentsChanged(a, b []telemetry.DerivedAgent) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Status != b[i].Status ||
			a[i].Progress != b[i].Progress || a[i].LastSeen != b[i].LastSeen {
			return true
		}
	}
	return false
}

func tasksChanged(a, b []telemetry.Task) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Status != b[i].Status ||
			a[i].ProgressPercent != b[i].ProgressPercent {
			return true
		}
	}
	return false
}
