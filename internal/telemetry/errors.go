package telemetry

import "errors"

// Sentinel errors forming the Telemetry Client/Store error taxonomy.
// Callers should compare with errors.Is rather than the exact message.
var (
	// ErrNotRegistered is returned by any client operation that requires
	// a live registration (setStatus, progress, capture, reportTokens,
	// reportCost, deregisterAgent) when this client has no live
	// registration. Heartbeat is a no-op instead.
	ErrNotRegistered = errors.New("telemetry: client not registered")

	// ErrAlreadyRegistered is returned by registerAgent when a prior
	// registration on this client is still live.
	ErrAlreadyRegistered = errors.New("telemetry: client already registered")

	// ErrStoreUnavailable is returned when the underlying database file
	// or directory cannot be opened or reached.
	ErrStoreUnavailable = errors.New("telemetry: store unavailable")
)
