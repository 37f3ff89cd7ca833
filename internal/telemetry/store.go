package telemetry

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/asf/whisperdash/internal/database"
)

// Store is the read/write repository over the Telemetry Store's four
// tables. It holds no process-identity of its own — the Client layers
// registration/heartbeat/singleton semantics on top of this.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// NewStore wraps an already-migrated database.DB.
func NewStore(db *database.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("component", "telemetry_store").Logger(),
	}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Agents -----------------------------------------------------------

// InsertAgent creates a new agent row.
func (s *Store) InsertAgent(a Agent) error {
	query := `
		INSERT INTO agents (id, pid, role, status, current_task_id, last_seen, worktree_path, created_at, is_active)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), ?, ?)
	`
	_, err := s.db.Conn().Exec(query, a.ID, a.PID, a.Role, string(a.Status), a.CurrentTaskID, a.LastSeen, a.WorktreePath, a.CreatedAt, boolToInt(a.IsActive))
	if err != nil {
		return fmt.Errorf("failed to insert agent %s: %w", a.ID, err)
	}
	return nil
}

// GetAgent returns an agent row by id, or nil if not found.
func (s *Store) GetAgent(id string) (*Agent, error) {
	query := `
		SELECT id, pid, role, status, COALESCE(current_task_id, ''), last_seen,
		       COALESCE(worktree_path, ''), created_at, is_active
		FROM agents WHERE id = ?
	`
	row := s.db.Conn().QueryRow(query, id)
	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent %s: %w", id, err)
	}
	return agent, nil
}

// ListActiveAgents returns every agent with isActive=true, ordered by
// createdAt ascending (stable fleet order), matching the Store
// Adapter's getAgents contract.
func (s *Store) ListActiveAgents() ([]Agent, error) {
	query := `
		SELECT id, pid, role, status, COALESCE(current_task_id, ''), last_seen,
		       COALESCE(worktree_path, ''), created_at, is_active
		FROM agents WHERE is_active = 1 ORDER BY created_at ASC
	`
	rows, err := s.db.Conn().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		a, err := scanAgentRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent row: %w", err)
		}
		agents = append(agents, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}
	return agents, nil
}

// UpdateAgentLastSeen sets lastSeen=now for the given agent.
func (s *Store) UpdateAgentLastSeen(id string, now int64) error {
	res, err := s.db.Conn().Exec(`UPDATE agents SET last_seen = ? WHERE id = ? AND is_active = 1`, now, id)
	if err != nil {
		return fmt.Errorf("failed to update last_seen for %s: %w", id, err)
	}
	return requireOneRow(res, "heartbeat", id)
}

// UpdateAgentStatus sets an agent's status column.
func (s *Store) UpdateAgentStatus(id string, status AgentStatus) error {
	res, err := s.db.Conn().Exec(`UPDATE agents SET status = ? WHERE id = ? AND is_active = 1`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update status for %s: %w", id, err)
	}
	return requireOneRow(res, "setStatus", id)
}

// SetAgentCurrentTask sets an agent's currentTaskId column.
func (s *Store) SetAgentCurrentTask(id, taskID string) error {
	_, err := s.db.Conn().Exec(`UPDATE agents SET current_task_id = ? WHERE id = ?`, taskID, id)
	if err != nil {
		return fmt.Errorf("failed to set current task for %s: %w", id, err)
	}
	return nil
}

// DeactivateAgent soft-deletes an agent row.
func (s *Store) DeactivateAgent(id string) error {
	res, err := s.db.Conn().Exec(`UPDATE agents SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate agent %s: %w", id, err)
	}
	return requireOneRow(res, "deregisterAgent", id)
}

// --- Tasks --------------------------------------------------------------

// GetTask returns a task row by id, or nil if not found.
func (s *Store) GetTask(id string) (*Task, error) {
	query := `
		SELECT id, title, status, COALESCE(assigned_agent_id, ''), progress_percent,
		       dependencies, created_at, COALESCE(started_at, 0), COALESCE(completed_at, 0)
		FROM tasks WHERE id = ?
	`
	row := s.db.Conn().QueryRow(query, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return task, nil
}

// InsertTask creates a new task row.
func (s *Store) InsertTask(t Task) error {
	query := `
		INSERT INTO tasks (id, title, status, assigned_agent_id, progress_percent, dependencies, created_at, started_at, completed_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, NULLIF(?, 0), NULLIF(?, 0))
	`
	_, err := s.db.Conn().Exec(query, t.ID, t.Title, string(t.Status), t.AssignedAgentID, t.ProgressPercent, t.Dependencies, t.CreatedAt, t.StartedAt, t.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTaskProgress rewrites the mutable fields progress(taskId, ...)
// touches: status, progressPercent, startedAt, completedAt.
func (s *Store) UpdateTaskProgress(t Task) error {
	query := `
		UPDATE tasks
		SET status = ?, progress_percent = ?, started_at = NULLIF(?, 0), completed_at = NULLIF(?, 0)
		WHERE id = ?
	`
	_, err := s.db.Conn().Exec(query, string(t.Status), t.ProgressPercent, t.StartedAt, t.CompletedAt, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", t.ID, err)
	}
	return nil
}

// ListTasks returns every task row as stored (no sorting beyond creation
// order; the caller applies status-priority ordering at render time).
func (s *Store) ListTasks() ([]Task, error) {
	query := `
		SELECT id, title, status, COALESCE(assigned_agent_id, ''), progress_percent,
		       dependencies, created_at, COALESCE(started_at, 0), COALESCE(completed_at, 0)
		FROM tasks ORDER BY created_at ASC
	`
	rows, err := s.db.Conn().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// --- Logs -----------------------------------------------------------------

// InsertLog appends a whisper log row.
func (s *Store) InsertLog(e LogEntry) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO logs (agent_id, level, message, timestamp) VALUES (?, ?, ?, ?)`,
		e.AgentID, string(e.Level), e.Message, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert log for %s: %w", e.AgentID, err)
	}
	return nil
}

// PruneLogs deletes every row for agentId beyond the maxEntries newest
// by id, enforcing the circular-buffer invariant strictly oldest-first.
func (s *Store) PruneLogs(agentID string, maxEntries int) error {
	query := `
		DELETE FROM logs
		WHERE agent_id = ? AND id NOT IN (
			SELECT id FROM logs WHERE agent_id = ? ORDER BY id DESC LIMIT ?
		)
	`
	_, err := s.db.Conn().Exec(query, agentID, agentID, maxEntries)
	if err != nil {
		return fmt.Errorf("failed to prune logs for %s: %w", agentID, err)
	}
	return nil
}

// ListLogsForAgent returns up to limit rows for agentId, newest-first by
// id.
func (s *Store) ListLogsForAgent(agentID string, limit int) ([]LogEntry, error) {
	query := `
		SELECT id, agent_id, level, message, timestamp
		FROM logs WHERE agent_id = ? ORDER BY id DESC LIMIT ?
	`
	rows, err := s.db.Conn().Query(query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs for %s: %w", agentID, err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var level string
		if err := rows.Scan(&e.ID, &e.AgentID, &level, &e.Message, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		e.Level = LogLevel(level)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}
	return entries, nil
}

// --- Metrics --------------------------------------------------------------

// InsertMetric appends a token/cost sample.
func (s *Store) InsertMetric(e MetricEntry) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO metrics (agent_id, tokens_used, estimated_cost, timestamp) VALUES (?, ?, ?, ?)`,
		e.AgentID, e.TokensUsed, e.EstimatedCost, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert metric for %s: %w", e.AgentID, err)
	}
	return nil
}

// AggregatedMetrics sums token/cost samples across all rows and counts
// active/non-Dead agents. deadThresholdMs is the caller's current
// deadAgentThreshold, applied to decide activeAgents; totalAgents counts
// every isActive row regardless of liveness.
func (s *Store) AggregatedMetrics(nowMs, deadThresholdMs int64) (*AggregatedMetrics, error) {
	m := &AggregatedMetrics{}

	row := s.db.Conn().QueryRow(`SELECT COALESCE(SUM(tokens_used), 0), COALESCE(SUM(estimated_cost), 0) FROM metrics`)
	if err := row.Scan(&m.TotalTokens, &m.TotalCost); err != nil {
		return nil, fmt.Errorf("failed to sum metrics: %w", err)
	}

	row = s.db.Conn().QueryRow(`SELECT COUNT(*) FROM agents WHERE is_active = 1`)
	if err := row.Scan(&m.TotalAgents); err != nil {
		return nil, fmt.Errorf("failed to count active agents: %w", err)
	}

	row = s.db.Conn().QueryRow(`SELECT COUNT(*) FROM agents WHERE is_active = 1 AND (? - last_seen) <= ?`, nowMs, deadThresholdMs)
	if err := row.Scan(&m.ActiveAgents); err != nil {
		return nil, fmt.Errorf("failed to count live agents: %w", err)
	}

	return m, nil
}

// --- Maintenance ------------------------------------------------------

// PruneDeadAgents permanently deletes soft-deleted agent rows older than
// olderThanMs, used by the hourly maintenance sweep so the agents table
// does not grow unboundedly across many short-lived agent processes.
func (s *Store) PruneDeadAgents(olderThanMs int64) (int64, error) {
	res, err := s.db.Conn().Exec(`DELETE FROM agents WHERE is_active = 0 AND last_seen < ?`, olderThanMs)
	if err != nil {
		return 0, fmt.Errorf("failed to prune dead agents: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// --- scan helpers -----------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row rowScanner) (*Agent, error) {
	return scanAgentRows(row)
}

func scanAgentRows(row rowScanner) (*Agent, error) {
	var a Agent
	var status string
	var isActive int
	if err := row.Scan(&a.ID, &a.PID, &a.Role, &status, &a.CurrentTaskID, &a.LastSeen, &a.WorktreePath, &a.CreatedAt, &isActive); err != nil {
		return nil, err
	}
	a.Status = AgentStatus(status)
	a.IsActive = isActive != 0
	return &a, nil
}

func scanTask(row rowScanner) (*Task, error) {
	return scanTaskRows(row)
}

func scanTaskRows(row rowScanner) (*Task, error) {
	var t Task
	var status string
	if err := row.Scan(&t.ID, &t.Title, &status, &t.AssignedAgentID, &t.ProgressPercent, &t.Dependencies, &t.CreatedAt, &t.StartedAt, &t.CompletedAt); err != nil {
		return nil, err
	}
	t.Status = TaskStatus(status)
	return &t, nil
}

func requireOneRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm %s for %s: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
