package supervisor

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gopsutil "github.com/shirou/gopsutil/v3/process"

	"github.com/asf/whisperdash/internal/events"
)

// SpawnSpec is the child-spawn contract: a command and argument
// vector, an environment map, and the logical id/role under which the
// child is tracked in the Pool.
type SpawnSpec struct {
	ID      string
	Type    ProcessType
	Role    string
	Command string
	Args    []string
	Env     map[string]string
}

// outputCapture accumulates a child's stdout or stderr as a byte
// stream behind a mutex, since exec.Cmd writes from its own goroutine.
type outputCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (o *outputCapture) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.Write(p)
}

// Bytes returns a snapshot of everything captured so far.
func (o *outputCapture) Bytes() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]byte, o.buf.Len())
	copy(out, o.buf.Bytes())
	return out
}

// handle is the runtime state the Spawner keeps for a live child: the
// *ManagedProcess metadata the Pool also holds a pointer to, plus the
// exec.Cmd and its captured output streams.
type handle struct {
	proc   *ManagedProcess
	cmd    *exec.Cmd
	stdout *outputCapture
	stderr *outputCapture
	done   chan struct{} // closed once Wait returns
	waitErr error
}

// Spawner starts and observes child processes, publishing `spawn`,
// `exit`, and `error` lifecycle signals on a Bus as ProcessStart/
// ProcessCrash events plus direct error returns.
type Spawner struct {
	bus *events.Bus
	log zerolog.Logger

	mu      sync.Mutex
	handles map[string]*handle
}

// NewSpawner builds a Spawner publishing lifecycle events on bus.
func NewSpawner(bus *events.Bus, log zerolog.Logger) *Spawner {
	return &Spawner{
		bus:     bus,
		log:     log.With().Str("component", "spawner").Logger(),
		handles: make(map[string]*handle),
	}
}

// Spawn starts spec's command as a child process and returns its
// tracked ManagedProcess. The child's exit is observed asynchronously;
// call Wait to learn the outcome.
func (s *Spawner) Spawn(spec SpawnSpec) (*ManagedProcess, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = envSlice(spec.Env)

	stdout := &outputCapture{}
	stderr := &outputCapture{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		s.bus.Emit(events.ProcessCrash, "supervisor", map[string]interface{}{
			"id": spec.ID, "error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnFailed, spec.ID, err)
	}

	proc := &ManagedProcess{
		ID:        spec.ID,
		Type:      spec.Type,
		PID:       cmd.Process.Pid,
		Status:    StatusRunning,
		StartedAt: time.Now().UnixMilli(),
		Role:      spec.Role,
	}

	h := &handle{proc: proc, cmd: cmd, stdout: stdout, stderr: stderr, done: make(chan struct{})}
	s.mu.Lock()
	s.handles[spec.ID] = h
	s.mu.Unlock()

	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	s.bus.Emit(events.ProcessStart, "supervisor", map[string]interface{}{
		"id": spec.ID, "pid": proc.PID,
	})
	return proc, nil
}

// Wait blocks until the child with id has exited and returns its exit
// code (nil if it could not be determined) alongside the wait error,
// if any.
func (s *Spawner) Wait(id string) (exitCode *int, waitErr error) {
	s.mu.Lock()
	h, ok := s.handles[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	<-h.done
	if h.cmd.ProcessState != nil {
		code := h.cmd.ProcessState.ExitCode()
		exitCode = &code
	}
	return exitCode, h.waitErr
}

// Output returns a snapshot of the captured stdout/stderr for id.
func (s *Spawner) Output(id string) (stdout, stderr []byte) {
	s.mu.Lock()
	h, ok := s.handles[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return h.stdout.Bytes(), h.stderr.Bytes()
}

// Forget drops the runtime handle for id once its lifecycle is fully
// observed (after Wait has returned).
func (s *Spawner) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, id)
}

// Alive reports whether pid currently names a live OS process, using a
// zero-signal existence probe rather than a real signal so the check
// works identically across every platform gopsutil supports.
func Alive(pid int) bool {
	alive, _ := gopsutil.PidExists(int32(pid))
	return alive
}

// ProcessTree returns pid and every descendant pid, in bottom-up order
// (deepest descendants first), so a caller can signal children before
// their parent and avoid leaving orphans behind.
func ProcessTree(pid int) ([]int, error) {
	root, err := gopsutil.NewProcess(int32(pid))
	if err != nil {
		// Already gone; nothing to signal.
		return nil, nil
	}
	var ordered []int
	var walk func(p *gopsutil.Process)
	walk = func(p *gopsutil.Process) {
		children, err := p.Children()
		if err == nil {
			for _, c := range children {
				walk(c)
			}
		}
		ordered = append(ordered, int(p.Pid))
	}
	walk(root)
	return ordered, nil
}

// envSlice appends spec's env on top of the supervisor's own
// environment, so children inherit PATH and friends alongside the
// ASF_* variables the spec names.
func envSlice(env map[string]string) []string {
	out := os.Environ()
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
