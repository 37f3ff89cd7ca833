package telemetry

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// deadAgentRetention is how long a soft-deleted agent row is kept before
// the maintenance sweep removes it permanently.
const deadAgentRetention = 24 * time.Hour

// Maintenance runs an hourly sweep over the store: it prunes soft-
// deleted agent rows older than deadAgentRetention and reclaims the
// freed pages with an incremental vacuum, so the store file does not
// grow unboundedly across many short-lived agent processes.
type Maintenance struct {
	store *Store
	log   zerolog.Logger

	cron *cron.Cron
}

// NewMaintenance wires a sweep against store. It does not start running
// until Start is called.
func NewMaintenance(store *Store, log zerolog.Logger) *Maintenance {
	return &Maintenance{
		store: store,
		log:   log.With().Str("component", "telemetry_maintenance").Logger(),
		cron:  cron.New(),
	}
}

// Start schedules the hourly sweep and begins running it.
func (m *Maintenance) Start() error {
	_, err := m.cron.AddFunc("@hourly", m.sweep)
	if err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

// Stop cancels the schedule. In-flight sweeps are allowed to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

func (m *Maintenance) sweep() {
	cutoff := time.Now().Add(-deadAgentRetention).UnixMilli()

	n, err := m.store.PruneDeadAgents(cutoff)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to prune dead agents")
	} else if n > 0 {
		m.log.Info().Int64("rows_removed", n).Msg("pruned dead agent rows")
	}

	if err := m.store.db.IncrementalVacuum(); err != nil {
		m.log.Error().Err(err).Msg("incremental vacuum failed")
	}
}
