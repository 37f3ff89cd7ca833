// Package poll implements the Dashboard Engine's Polling Driver: a
// start/stop ticker that composes one read-derive-diff-emit cycle per
// tick over the Store Adapter and the State Store.
package poll

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/asf/whisperdash/internal/dashboard/adapter"
	"github.com/asf/whisperdash/internal/dashboard/state"
	"github.com/asf/whisperdash/internal/events"
	"github.com/asf/whisperdash/internal/telemetry"
)

const (
	minPollInterval = 250 * time.Millisecond
	maxPollInterval = 2000 * time.Millisecond
	minGridCells    = 1
	maxGridCells    = 10

	defaultPollInterval       = 500 * time.Millisecond
	defaultDeadAgentThreshold = 30000 * time.Millisecond
	defaultGridRows           = 2
	defaultGridCols           = 4
)

// Config controls the Polling Driver. Zero values are replaced with the
// documented defaults by New; out-of-range non-zero values are
// rejected.
type Config struct {
	PollInterval       time.Duration
	DeadAgentThreshold time.Duration
	GridRows           int
	GridCols           int
}

func (c *Config) applyDefaultsAndValidate() error {
	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PollInterval < minPollInterval || c.PollInterval > maxPollInterval {
		return fmt.Errorf("pollInterval must be within [%s, %s], got %s", minPollInterval, maxPollInterval, c.PollInterval)
	}
	if c.DeadAgentThreshold == 0 {
		c.DeadAgentThreshold = defaultDeadAgentThreshold
	}
	if c.DeadAgentThreshold < 1000*time.Millisecond {
		return fmt.Errorf("deadAgentThreshold must be >= 1000ms, got %s", c.DeadAgentThreshold)
	}
	if c.GridRows == 0 {
		c.GridRows = defaultGridRows
	}
	if c.GridCols == 0 {
		c.GridCols = defaultGridCols
	}
	if c.GridRows < minGridCells || c.GridRows > maxGridCells {
		return fmt.Errorf("gridRows must be within [%d, %d], got %d", minGridCells, maxGridCells, c.GridRows)
	}
	if c.GridCols < minGridCells || c.GridCols > maxGridCells {
		return fmt.Errorf("gridCols must be within [%d, %d], got %d", minGridCells, maxGridCells, c.GridCols)
	}
	return nil
}

// Driver ticks at cfg.PollInterval, reading the Store Adapter and
// applying the result to the State Store.
type Driver struct {
	adapter *adapter.Adapter
	state   *state.Store
	bus     *events.Bus
	log     zerolog.Logger

	mu       sync.Mutex
	cfg      Config
	stop     chan struct{}
	stopped  bool
	started  bool
	interval chan time.Duration
}

// New validates cfg and builds a Driver. It does not start ticking
// until Start is called.
func New(cfg Config, a *adapter.Adapter, st *state.Store, bus *events.Bus, log zerolog.Logger) (*Driver, error) {
	if err := cfg.applyDefaultsAndValidate(); err != nil {
		return nil, err
	}
	a.SetDeadAgentThreshold(cfg.DeadAgentThreshold)
	return &Driver{
		adapter:  a,
		state:    st,
		bus:      bus,
		log:      log.With().Str("component", "poll_driver").Logger(),
		cfg:      cfg,
		stop:     make(chan struct{}),
		stopped:  true,
		interval: make(chan time.Duration, 1),
	}, nil
}

// Start runs an immediate tick, then ticks every cfg.PollInterval until
// Stop is called. Starting an already-started driver is a no-op.
func (d *Driver) Start() {
	d.mu.Lock()
	if d.started && !d.stopped {
		d.mu.Unlock()
		return
	}
	if d.stopped {
		d.stop = make(chan struct{})
		d.stopped = false
	}
	d.started = true
	interval := d.cfg.PollInterval
	d.mu.Unlock()

	go d.tick()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		stop := d.currentStopChan()
		for {
			select {
			case <-stop:
				return
			case newInterval := <-d.interval:
				ticker.Reset(newInterval)
			case <-ticker.C:
				go d.tick()
			}
		}
	}()
}

func (d *Driver) currentStopChan() chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop
}

// Stop cancels the tick schedule. Idempotent; an in-flight tick runs to
// completion and may emit its event after Stop returns.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.stopped {
		close(d.stop)
		d.stopped = true
		d.started = false
	}
}

// ForcePoll executes one tick on demand, regardless of whether the
// driver is running.
func (d *Driver) ForcePoll() {
	d.tick()
}

// GridDimensions returns the configured Agent Grid row/column counts,
// used by the Renderer to lay out cards and compute up/down navigation.
func (d *Driver) GridDimensions() (rows, cols int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.GridRows, d.cfg.GridCols
}

// CurrentInterval returns the driver's active poll interval.
func (d *Driver) CurrentInterval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.PollInterval
}

// SetInterval replaces the tick period in place, clamped to
// [250ms, 2000ms].
func (d *Driver) SetInterval(interval time.Duration) {
	if interval < minPollInterval {
		interval = minPollInterval
	}
	if interval > maxPollInterval {
		interval = maxPollInterval
	}
	d.mu.Lock()
	d.cfg.PollInterval = interval
	running := !d.stopped
	d.mu.Unlock()
	if running {
		select {
		case d.interval <- interval:
		default:
		}
	}
}

// tick performs one read-derive-diff-emit cycle: read agents, tasks,
// metrics, and (if selected) logs; compose a candidate state; apply it
// unconditionally; emit `update` only when the State Store reports a
// change. Read errors emit `error` without stopping the schedule.
func (d *Driver) tick() {
	agents, err := d.adapter.GetAgents()
	if err != nil {
		d.emitError(err)
		return
	}
	tasks, err := d.adapter.GetTasks()
	if err != nil {
		d.emitError(err)
		return
	}
	metrics, err := d.adapter.GetAggregatedMetrics()
	if err != nil {
		d.emitError(err)
		return
	}

	logs := map[string][]telemetry.LogEntry{}
	selected := d.state.GetState().SelectedAgentID
	if selected != "" {
		entries, err := d.adapter.GetLogsForAgent(selected, 100)
		if err != nil {
			d.emitError(err)
			return
		}
		logs[selected] = entries
	}

	now := time.Now().UnixMilli()

	changed := d.state.SetState(state.Partial{
		Agents:       agents,
		Tasks:        tasks,
		Metrics:      metrics,
		Logs:         logs,
		LastPollTime: now,
	})

	if changed {
		d.emitUpdate()
	}
}

func (d *Driver) emitUpdate() {
	if d.bus != nil {
		d.bus.Emit(events.Update, "poll_driver", nil)
	}
}

func (d *Driver) emitError(err error) {
	d.log.Error().Err(err).Msg("poll tick failed")
	if d.bus != nil {
		d.bus.Emit(events.Error, "poll_driver", map[string]interface{}{"error": err.Error()})
	}
}
