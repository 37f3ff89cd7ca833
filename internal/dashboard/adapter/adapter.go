// Package adapter is the Dashboard Engine's read-only Store Adapter: it
// translates the Telemetry Store's persisted rows into the view-only
// shapes (DerivedAgent, AggregatedMetrics) the rest of the engine works
// with, applying dead-agent detection along the way.
package adapter

import (
	"time"

	"github.com/asf/whisperdash/internal/telemetry"
)

// Adapter reads from a telemetry.Store. All reads are snapshot-
// consistent within a single call; composing multiple calls into one
// logical tick is the Polling Driver's responsibility.
type Adapter struct {
	store              *telemetry.Store
	deadAgentThreshold time.Duration
}

// New builds an Adapter over store. deadAgentThreshold is read by
// GetAgents on every call, so callers may adjust it (via SetDeadAgentThreshold)
// without reconstructing the adapter.
func New(store *telemetry.Store, deadAgentThreshold time.Duration) *Adapter {
	return &Adapter{store: store, deadAgentThreshold: deadAgentThreshold}
}

// SetDeadAgentThreshold updates the threshold used by GetAgents.
func (a *Adapter) SetDeadAgentThreshold(d time.Duration) {
	a.deadAgentThreshold = d
}

// GetAgents returns every active agent as a DerivedAgent, sorted by
// createdAt ascending, with Dead status and inherited task progress
// applied.
func (a *Adapter) GetAgents() ([]telemetry.DerivedAgent, error) {
	agents, err := a.store.ListActiveAgents()
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	thresholdMs := a.deadAgentThreshold.Milliseconds()

	derived := make([]telemetry.DerivedAgent, 0, len(agents))
	for _, ag := range agents {
		d := telemetry.DerivedAgent{Agent: ag, Status: ag.Status}
		if now-ag.LastSeen > thresholdMs {
			d.Status = telemetry.StatusDead
		}
		if ag.CurrentTaskID != "" {
			task, err := a.store.GetTask(ag.CurrentTaskID)
			if err != nil {
				return nil, err
			}
			if task != nil {
				d.Progress = task.ProgressPercent
			}
		}
		derived = append(derived, d)
	}
	return derived, nil
}

// GetTasks returns every task row as stored.
func (a *Adapter) GetTasks() ([]telemetry.Task, error) {
	return a.store.ListTasks()
}

// GetLogsForAgent returns up to limit LogEntry rows for agentId,
// newest-first. limit defaults to 100 when <= 0.
func (a *Adapter) GetLogsForAgent(agentID string, limit int) ([]telemetry.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return a.store.ListLogsForAgent(agentID, limit)
}

// GetAggregatedMetrics sums token/cost samples across all rows and
// counts active/total agents using the adapter's current dead-agent
// threshold.
func (a *Adapter) GetAggregatedMetrics() (*telemetry.AggregatedMetrics, error) {
	now := time.Now().UnixMilli()
	return a.store.AggregatedMetrics(now, a.deadAgentThreshold.Milliseconds())
}
