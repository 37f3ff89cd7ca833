package supervisor

import "errors"

// Sentinel errors forming the Process Supervisor's slice of the §7
// error taxonomy.
var (
	// ErrConfigInvalid mirrors config.ErrConfigInvalid at the boundary
	// where the supervisor refuses to start with a bad configuration.
	ErrConfigInvalid = errors.New("supervisor: invalid configuration")

	// ErrAlreadyRunning is returned by Start when the PID-file names a
	// launcher that still responds to a liveness probe.
	ErrAlreadyRunning = errors.New("supervisor: launcher already running")

	// ErrSpawnFailed is returned when the OS refuses to start a child
	// process.
	ErrSpawnFailed = errors.New("supervisor: spawn failed")

	// ErrSignalFailure is returned when signaling a process fails for a
	// reason other than the process no longer existing (that case is
	// treated as success, not an error).
	ErrSignalFailure = errors.New("supervisor: signal failure")

	// ErrNotFound is returned by Pool lookups that miss.
	ErrNotFound = errors.New("supervisor: process not found")
)
