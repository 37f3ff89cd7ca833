package telemetry

// AgentStatus is the set of states an Agent's stored row can hold.
// DerivedAgent adds Dead on top of this set at read time; Dead is never
// persisted.
type AgentStatus string

const (
	StatusIdle  AgentStatus = "Idle"
	StatusBusy  AgentStatus = "Busy"
	StatusError AgentStatus = "Error"
	StatusDead  AgentStatus = "Dead"
)

// TaskStatus is the set of states a Task's stored row can hold.
type TaskStatus string

const (
	TaskPending    TaskStatus = "Pending"
	TaskInProgress TaskStatus = "InProgress"
	TaskComplete   TaskStatus = "Complete"
	TaskFailed     TaskStatus = "Failed"
)

// LogLevel classifies a whisper log entry.
type LogLevel string

const (
	LevelInfo  LogLevel = "Info"
	LevelWarn  LogLevel = "Warn"
	LevelError LogLevel = "Error"
)

// Agent is one registered worker process.
type Agent struct {
	ID            string
	PID           int
	Role          string
	Status        AgentStatus
	CurrentTaskID string // empty when none
	LastSeen      int64  // ms since epoch
	WorktreePath  string // empty when none
	CreatedAt     int64  // ms since epoch
	IsActive      bool
}

// DerivedAgent extends Agent with view-only fields computed by the Store
// Adapter: Status may be promoted to Dead, and Progress is inherited
// from the agent's current task.
type DerivedAgent struct {
	Agent
	Status   AgentStatus // overrides Agent.Status when Dead
	Progress int         // [0,100], 0 when CurrentTaskID is empty
}

// Task is a unit of work reported by an agent.
type Task struct {
	ID               string
	Title            string
	Status           TaskStatus
	AssignedAgentID  string // empty when unassigned
	ProgressPercent  int
	Dependencies     string
	CreatedAt        int64
	StartedAt        int64 // 0 when not yet started
	CompletedAt      int64 // 0 when not yet completed
}

// LogEntry is one whisper log row.
type LogEntry struct {
	ID        int64
	AgentID   string
	Level     LogLevel
	Message   string
	Timestamp int64
}

// MetricEntry is one token/cost sample.
type MetricEntry struct {
	ID            int64
	AgentID       string
	TokensUsed    int64
	EstimatedCost float64
	Timestamp     int64
}

// AggregatedMetrics sums MetricEntry rows and active-agent counts across
// the whole fleet.
type AggregatedMetrics struct {
	TotalTokens  int64
	TotalCost    float64
	ActiveAgents int // non-Dead, isActive
	TotalAgents  int // isActive
}
