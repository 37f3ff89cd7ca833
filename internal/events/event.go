package events

import "time"

// EventType names one of the event kinds emitted across the dashboard
// system. Components communicate exclusively through the Bus rather than
// direct callbacks, so every cross-component signal named in the spec has
// exactly one EventType here.
type EventType string

const (
	// Dashboard Engine events (see spec §4.2).

	// Change fires whenever the State Store's hasChanged reports a
	// difference, including a selection change.
	Change EventType = "change"
	// Update fires once per Polling Driver tick that the State Store
	// reports as changed. Every tick supplies a logs map, which
	// hasChanged always counts as a change, so every completed tick
	// emits Update.
	Update EventType = "update"
	// Error fires when a poll tick's read from the Store Adapter fails.
	// It never stops the tick schedule.
	Error EventType = "error"

	// Process Supervisor events (see spec §4.3).

	// Ready fires once the launcher has finished its start sequence:
	// lock acquired, children spawned, PID-file written, signal handlers
	// registered.
	Ready EventType = "ready"
	// Shutdown fires once the stop sequence has removed the PID-file and
	// unregistered signal handlers.
	Shutdown EventType = "shutdown"
	// ProcessStart fires once per child as it transitions to Running.
	ProcessStart EventType = "processStart"
	// ProcessStop fires for each child the stop sequence signals, once
	// it is marked Stopped. An agent that exits cleanly on its own is
	// marked Stopped without this event.
	ProcessStop EventType = "processStop"
	// ProcessCrash fires when a child exits non-zero while the
	// supervisor is Running.
	ProcessCrash EventType = "processCrash"
)

// Event is the payload delivered to every subscriber of a given
// EventType. Data carries event-specific fields (e.g. a ManagedProcess
// id, an exit code, an error message) as a loosely typed map, matching
// the teacher's Bus.Emit signature.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Module    string
	Data      map[string]interface{}
}
