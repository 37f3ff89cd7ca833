package telemetry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/asf/whisperdash/internal/database"
	"github.com/asf/whisperdash/pkg/logger"
)

// Config controls how a Client is constructed. Zero values are replaced
// with the documented defaults by New.
type Config struct {
	// DBPath is the location of the embedded store file.
	DBPath string
	// HeartbeatInterval is the spacing between automatic lastSeen
	// writes once registered.
	HeartbeatInterval time.Duration
	// MaxLogEntries is the per-agent circular-buffer cap enforced by
	// capture.
	MaxLogEntries int
	// Logger receives structured diagnostics. It must never be wired to
	// stdout/stderr in a hosted agent process; a nil Logger defaults to
	// a no-op logger so the client's zero-writes-to-stdout contract
	// holds without the caller having to opt in.
	Logger *zerolog.Logger
}

const (
	defaultDBPath            = ".asf/swarm_state.db"
	defaultHeartbeatInterval = 5000 * time.Millisecond
	defaultMaxLogEntries     = 1000
)

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.MaxLogEntries <= 0 {
		c.MaxLogEntries = defaultMaxLogEntries
	}
}

// Client is the process-wide Telemetry Client for one agent. It is a
// concrete owner-type rather than a language-level singleton: callers
// construct one at startup and hold it explicitly, with Default
// available as a convenience accessor for hosts that want one anyway.
// Tests construct independent clients against separate store paths.
type Client struct {
	store *Store
	cfg   Config
	log   zerolog.Logger

	mu       sync.Mutex
	agentID  string
	role     string
	worktree string
	stop     chan struct{}
	stopped  bool
}

// New opens (and migrates) the store at cfg.DBPath and returns a Client
// that is not yet registered.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()

	db, err := database.New(database.Config{Path: cfg.DBPath, Name: "swarm"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	log := logger.Silent()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	store := NewStore(db, log)

	return &Client{
		store: store,
		cfg:   cfg,
		log:   log.With().Str("component", "telemetry_client").Logger(),
		stop:  make(chan struct{}),
	}, nil
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the process-wide convenience client, constructing it
// from cfg on first use. Subsequent calls ignore cfg and return the
// already-constructed instance.
func Default(cfg Config) (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient != nil {
		return defaultClient, nil
	}
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defaultClient = c
	return c, nil
}

// RegisterAgent inserts this agent's row and starts the background
// heartbeat ticker. It fails with ErrAlreadyRegistered if this client
// has a live registration.
func (c *Client) RegisterAgent(role, worktreePath string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.agentID != "" {
		return "", ErrAlreadyRegistered
	}

	now := time.Now().UnixMilli()
	id := fmt.Sprintf("agent-%d-%d", os.Getpid(), now)

	agent := Agent{
		ID:        id,
		PID:       os.Getpid(),
		Role:      role,
		Status:    StatusIdle,
		LastSeen:  now,
		CreatedAt: now,
		IsActive:  true,
	}
	if worktreePath != "" {
		agent.WorktreePath = worktreePath
	}

	if err := c.store.InsertAgent(agent); err != nil {
		return "", fmt.Errorf("registerAgent: %w", err)
	}

	c.agentID = id
	c.role = role
	c.worktree = worktreePath
	if c.stopped || c.stop == nil {
		c.stop = make(chan struct{})
	}
	c.stopped = false
	c.startHeartbeat()

	c.log.Info().Str("agent_id", id).Str("role", role).Msg("agent registered")
	return id, nil
}

// startHeartbeat launches the background ticker. Callers must hold c.mu.
func (c *Client) startHeartbeat() {
	stop := c.stop
	interval := c.cfg.HeartbeatInterval
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := c.Heartbeat(); err != nil {
					c.log.Debug().Err(err).Msg("heartbeat tick failed")
				}
			}
		}
	}()
}

// DeregisterAgent stops the heartbeat ticker and soft-deletes this
// agent's row. Fails with ErrNotRegistered if there is no live
// registration.
func (c *Client) DeregisterAgent() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deregisterLocked()
}

func (c *Client) deregisterLocked() error {
	if c.agentID == "" {
		return ErrNotRegistered
	}
	if !c.stopped {
		close(c.stop)
		c.stopped = true
	}
	id := c.agentID
	if err := c.store.DeactivateAgent(id); err != nil {
		return fmt.Errorf("deregisterAgent: %w", err)
	}
	c.agentID = ""
	c.log.Info().Str("agent_id", id).Msg("agent deregistered")
	return nil
}

// Heartbeat sets lastSeen=now. It is a no-op when not registered, so the
// background ticker is race-safe during shutdown.
func (c *Client) Heartbeat() error {
	c.mu.Lock()
	id := c.agentID
	c.mu.Unlock()
	if id == "" {
		return nil
	}
	return c.store.UpdateAgentLastSeen(id, time.Now().UnixMilli())
}

// SetStatus updates this agent's status column atomically.
func (c *Client) SetStatus(status AgentStatus) error {
	c.mu.Lock()
	id := c.agentID
	c.mu.Unlock()
	if id == "" {
		return ErrNotRegistered
	}
	return c.store.UpdateAgentStatus(id, status)
}

// Progress creates or updates taskID per the progress() contract: a
// missing task is created with title defaulting to taskID, status
// derived from percent, startedAt stamped on creation, and completedAt
// stamped as well when percent is already 100. An existing task has its
// progressPercent and status updated, startedAt stamped on first
// progress, and completedAt stamped the moment it reaches 100.
//
// A later call with percent<100 against an already-Complete task
// demotes it back to InProgress and clears completedAt, preserving the
// source system's behavior rather than rejecting the demotion.
func (c *Client) Progress(taskID string, percent int, title string) error {
	c.mu.Lock()
	agentID := c.agentID
	c.mu.Unlock()
	if agentID == "" {
		return ErrNotRegistered
	}

	now := time.Now().UnixMilli()
	status := TaskInProgress
	if percent >= 100 {
		status = TaskComplete
	}

	existing, err := c.store.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("progress: %w", err)
	}

	if existing == nil {
		if title == "" {
			title = taskID
		}
		t := Task{
			ID:              taskID,
			Title:           title,
			Status:          status,
			AssignedAgentID: agentID,
			ProgressPercent: percent,
			CreatedAt:       now,
			StartedAt:       now,
		}
		if status == TaskComplete {
			t.CompletedAt = now
		}
		if err := c.store.InsertTask(t); err != nil {
			return fmt.Errorf("progress: %w", err)
		}
	} else {
		t := *existing
		t.ProgressPercent = percent
		t.Status = status
		if t.StartedAt == 0 {
			t.StartedAt = now
		}
		if status == TaskComplete {
			t.CompletedAt = now
		} else {
			t.CompletedAt = 0
		}
		if err := c.store.UpdateTaskProgress(t); err != nil {
			return fmt.Errorf("progress: %w", err)
		}
	}

	if err := c.store.SetAgentCurrentTask(agentID, taskID); err != nil {
		return fmt.Errorf("progress: %w", err)
	}
	return nil
}

// Capture inserts a whisper log row for this agent, then prunes its
// log rows to the configured maxLogEntries newest by id.
func (c *Client) Capture(message string, level LogLevel) error {
	c.mu.Lock()
	agentID := c.agentID
	c.mu.Unlock()
	if agentID == "" {
		return ErrNotRegistered
	}
	if level == "" {
		level = LevelInfo
	}

	entry := LogEntry{
		AgentID:   agentID,
		Level:     level,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := c.store.InsertLog(entry); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	return c.store.PruneLogs(agentID, c.cfg.MaxLogEntries)
}

// ReportTokens inserts a metric row of (tokens=n, cost=0).
func (c *Client) ReportTokens(n int64) error {
	return c.reportMetric(n, 0)
}

// ReportCost inserts a metric row of (tokens=0, cost=usd).
func (c *Client) ReportCost(usd float64) error {
	return c.reportMetric(0, usd)
}

func (c *Client) reportMetric(tokens int64, cost float64) error {
	c.mu.Lock()
	agentID := c.agentID
	c.mu.Unlock()
	if agentID == "" {
		return ErrNotRegistered
	}
	entry := MetricEntry{
		AgentID:       agentID,
		TokensUsed:    tokens,
		EstimatedCost: cost,
		Timestamp:     time.Now().UnixMilli(),
	}
	if err := c.store.InsertMetric(entry); err != nil {
		return fmt.Errorf("reportMetric: %w", err)
	}
	return nil
}

// Shutdown is idempotent: it stops the heartbeat, soft-deletes this
// agent if still registered (errors swallowed per the spec's
// propagation policy), and closes the store handle.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	if c.agentID != "" {
		_ = c.deregisterLocked()
	} else if !c.stopped {
		close(c.stop)
		c.stopped = true
	}
	c.mu.Unlock()

	return c.store.Close()
}
