package supervisor

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/asf/whisperdash/internal/config"
	"github.com/asf/whisperdash/internal/events"
)

const (
	dashboardReadyDelay = 1000 * time.Millisecond
	agentStagger        = 100 * time.Millisecond
	stopPollInterval    = 100 * time.Millisecond

	defaultDashboardCommand = "asf-dashboard"
	defaultAgentCommand     = "asf-agent"
)

// Option customizes a Supervisor at construction time. The zero-value
// Supervisor spawns the real "asf-dashboard"/"asf-agent" binaries;
// tests substitute stand-ins (e.g. "sleep", "sh -c ...") the same way
// process_test.go exercises the Spawner directly.
type Option func(*Supervisor)

// WithDashboardCommand overrides the command (and fixed args prepended
// to its spawn) used for the dashboard child.
func WithDashboardCommand(command string, args ...string) Option {
	return func(s *Supervisor) {
		s.dashboardCommand = command
		s.dashboardArgs = args
	}
}

// WithAgentCommand overrides the command (and fixed args prepended to
// its spawn) used for every agent child, including respawns.
func WithAgentCommand(command string, args ...string) Option {
	return func(s *Supervisor) {
		s.agentCommand = command
		s.agentArgs = args
	}
}

// Supervisor drives the start/stop/crash-restart lifecycle of one
// dashboard child and N agent children.
type Supervisor struct {
	cfg  config.Config
	pool *Pool
	spn  *Spawner
	lock *Lock
	bus  *events.Bus
	log  zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopping bool
	sigCh    chan os.Signal

	dashboardCommand string
	dashboardArgs    []string
	agentCommand     string
	agentArgs        []string
}

// New validates cfg and builds a Supervisor. pidPath is the PID-file
// location (the launcher defaults it to ".asf/launcher.pid"); the store
// path handed to children comes from cfg.Dashboard.DBPath. opts may
// override the spawned dashboard/agent commands, which otherwise
// default to "asf-dashboard"/"asf-agent".
func New(cfg config.Config, pidPath string, bus *events.Bus, log zerolog.Logger, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	log = log.With().Str("component", "supervisor").Logger()
	s := &Supervisor{
		cfg:              cfg,
		pool:             NewPool(),
		spn:              NewSpawner(bus, log),
		lock:             NewLock(pidPath),
		bus:              bus,
		log:              log,
		dashboardCommand: defaultDashboardCommand,
		agentCommand:     defaultAgentCommand,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start resolves the single-instance lock, spawns the dashboard (if
// enabled) and the configured agent fleet, writes the PID-file,
// registers signal handlers, and emits Ready.
func (s *Supervisor) Start() error {
	if err := s.lock.Acquire(); err != nil {
		return err
	}

	if s.cfg.Dashboard.Enabled {
		if _, err := s.spawnDashboard(); err != nil {
			_ = s.Stop(true)
			return err
		}
		time.Sleep(dashboardReadyDelay)
	}

	for i := 0; i < s.cfg.Agents.Count; i++ {
		if _, err := s.spawnAgent(i); err != nil {
			_ = s.Stop(true)
			return err
		}
		if i < s.cfg.Agents.Count-1 {
			time.Sleep(agentStagger)
		}
	}

	if err := s.writePIDFile(); err != nil {
		_ = s.Stop(true)
		return err
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.registerSignalHandlers()
	s.watchAgents()

	s.bus.Emit(events.Ready, "supervisor", nil)
	return nil
}

func (s *Supervisor) spawnDashboard() (*ManagedProcess, error) {
	spec := SpawnSpec{
		ID:      "dashboard",
		Type:    TypeDashboard,
		Command: s.dashboardCommand,
		Args:    s.dashboardArgs,
		Env: map[string]string{
			"ASF_DB_PATH":       s.cfg.Dashboard.DBPath,
			"ASF_POLL_INTERVAL": fmt.Sprintf("%d", s.cfg.Dashboard.PollInterval),
		},
	}
	proc, err := s.spn.Spawn(spec)
	if err != nil {
		return nil, err
	}
	s.pool.Add(proc)
	return proc, nil
}

func (s *Supervisor) spawnAgent(index int) (*ManagedProcess, error) {
	id := fmt.Sprintf("agent-%02d", index)
	role := s.cfg.Agents.DefaultRole
	var worktree string
	if index < len(s.cfg.Worktrees) {
		worktree = s.cfg.Worktrees[index].Path
		if s.cfg.Worktrees[index].Role != "" {
			role = s.cfg.Worktrees[index].Role
		}
	}

	spec := SpawnSpec{
		ID:      id,
		Type:    TypeAgent,
		Role:    role,
		Command: s.agentCommand,
		Args:    s.agentArgs,
		Env: map[string]string{
			"ASF_AGENT_ID":   id,
			"ASF_QUIET_MODE": fmt.Sprintf("%t", s.cfg.Agents.QuietMode),
			"ASF_DB_PATH":    s.cfg.Dashboard.DBPath,
		},
	}
	proc, err := s.spn.Spawn(spec)
	if err != nil {
		return nil, err
	}
	proc.Worktree = worktree
	proc.Role = role
	s.pool.Add(proc)
	return proc, nil
}

// watchAgents launches one goroutine per agent that blocks on its
// exit and drives the crash/restart policy.
func (s *Supervisor) watchAgents() {
	for _, proc := range s.pool.GetByType(TypeAgent) {
		go s.superviseAgent(proc.ID)
	}
}

func (s *Supervisor) superviseAgent(id string) {
	correlationID := uuid.New().String()
	exitCode, waitErr := s.spn.Wait(id)
	s.spn.Forget(id)

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return
	}

	crashed := waitErr != nil || (exitCode != nil && *exitCode != 0)
	if !crashed {
		_ = s.pool.UpdateStatus(id, StatusStopped, exitCode)
		return
	}

	_ = s.pool.UpdateStatus(id, StatusCrashed, exitCode)
	s.log.Warn().Str("id", id).Str("correlation_id", correlationID).Msg("agent exited non-zero")
	s.bus.Emit(events.ProcessCrash, "supervisor", map[string]interface{}{
		"id": id, "correlationId": correlationID,
	})

	if !s.cfg.Agents.AutoRestart {
		return
	}
	proc, ok := s.pool.Get(id)
	if !ok {
		return
	}
	restarts, err := s.pool.IncrementRestartCount(id)
	if err != nil || restarts > s.cfg.Agents.MaxRestarts {
		return
	}

	time.Sleep(time.Duration(s.cfg.Agents.RestartDelay) * time.Millisecond)

	spec := SpawnSpec{
		ID:      id,
		Type:    TypeAgent,
		Role:    proc.Role,
		Command: s.agentCommand,
		Args:    s.agentArgs,
		Env: map[string]string{
			"ASF_AGENT_ID":   id,
			"ASF_QUIET_MODE": fmt.Sprintf("%t", s.cfg.Agents.QuietMode),
			"ASF_DB_PATH":    s.cfg.Dashboard.DBPath,
		},
	}
	respawned, err := s.spn.Spawn(spec)
	if err != nil {
		return
	}
	respawned.Worktree = proc.Worktree
	respawned.RestartCount = restarts
	s.pool.Add(respawned)
	go s.superviseAgent(id)
}

func (s *Supervisor) writePIDFile() error {
	pf := PIDFile{
		LauncherPID: os.Getpid(),
		StartedAt:   time.Now().UnixMilli(),
	}
	for _, proc := range s.pool.All() {
		pf.Processes = append(pf.Processes, PIDFileProcess{
			ID: proc.ID, Type: string(proc.Type), PID: proc.PID,
			Status: string(proc.Status), StartedAt: proc.StartedAt,
			RestartCount: proc.RestartCount, Worktree: proc.Worktree,
			Role: proc.Role, ExitCode: proc.ExitCode,
		})
	}
	return s.lock.Write(pf)
}

// registerSignalHandlers wires SIGINT/SIGTERM/SIGHUP to a graceful
// stop; a second signal received while already stopping escalates to
// an immediate non-zero process exit.
func (s *Supervisor) registerSignalHandlers() {
	s.sigCh = make(chan os.Signal, 1)
	signal.Notify(s.sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for range s.sigCh {
			s.mu.Lock()
			alreadyStopping := s.stopping
			s.stopping = true
			s.mu.Unlock()

			if alreadyStopping {
				os.Exit(1)
			}
			go func() { _ = s.Stop(false) }()
		}
	}()
}

func (s *Supervisor) unregisterSignalHandlers() {
	if s.sigCh != nil {
		signal.Stop(s.sigCh)
		close(s.sigCh)
	}
}

// Stop runs the stop sequence: signal every Running/Starting agent
// concurrently, then the dashboard, tree-killing each; poll for
// quiescence up to the configured grace period unless force is set,
// escalating to SIGKILL on timeout; then remove the PID-file and emit
// Shutdown.
func (s *Supervisor) Stop(force bool) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}

	agents := s.pool.GetByType(TypeAgent)
	var wg sync.WaitGroup
	for _, proc := range agents {
		if proc.Status != StatusRunning && proc.Status != StatusStarting {
			continue
		}
		wg.Add(1)
		go func(proc *ManagedProcess) {
			defer wg.Done()
			s.signalTree(proc, sig)
		}(proc)
	}
	wg.Wait()

	for _, proc := range s.pool.GetByType(TypeDashboard) {
		s.signalTree(proc, sig)
	}

	if !force {
		deadline := time.Now().Add(time.Duration(s.cfg.Shutdown.GracePeriod) * time.Millisecond)
		for time.Now().Before(deadline) {
			if s.pool.AllStopped() {
				break
			}
			time.Sleep(stopPollInterval)
		}
		if !s.pool.AllStopped() {
			for _, proc := range s.pool.All() {
				s.signalTree(proc, syscall.SIGKILL)
			}
		}
	}

	if err := s.lock.Release(); err != nil {
		return err
	}
	s.unregisterSignalHandlers()
	s.bus.Emit(events.Shutdown, "supervisor", nil)
	return nil
}

// signalTree discovers proc's process tree and signals every member
// bottom-up (descendants first), so a child that spawned its own
// subprocesses does not leave orphans. A target that no longer exists
// is treated as already stopped, not an error.
func (s *Supervisor) signalTree(proc *ManagedProcess, sig syscall.Signal) {
	_ = s.pool.UpdateStatus(proc.ID, StatusStopping, nil)

	pids, _ := ProcessTree(proc.PID)
	if len(pids) == 0 {
		pids = []int{proc.PID}
	}
	for _, pid := range pids {
		if !Alive(pid) {
			continue
		}
		if err := syscall.Kill(pid, sig); err != nil {
			s.log.Debug().Int("pid", pid).Err(err).Msg("signal delivery failed")
		}
	}
	_ = s.pool.UpdateStatus(proc.ID, StatusStopped, nil)
	s.bus.Emit(events.ProcessStop, "supervisor", map[string]interface{}{
		"id": proc.ID,
	})
}
