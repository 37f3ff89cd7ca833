package supervisor

import "sync"

// Pool is an insertion-ordered id -> ManagedProcess mapping: a map for
// O(1) lookup paired with a slice tracking insertion order, since no
// dependency in this module's stack provides an ordered map and the
// pairing itself is a handful of lines.
type Pool struct {
	mu        sync.Mutex
	processes map[string]*ManagedProcess
	order     []string
}

// NewPool builds an empty Pool.
func NewPool() *Pool {
	return &Pool{
		processes: make(map[string]*ManagedProcess),
	}
}

// Add inserts a new ManagedProcess, appending its id to the insertion
// order. Re-adding an existing id overwrites the value in place without
// duplicating the order entry.
func (p *Pool) Add(proc *ManagedProcess) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.processes[proc.ID]; !exists {
		p.order = append(p.order, proc.ID)
	}
	p.processes[proc.ID] = proc
}

// Remove deletes a process from the pool.
func (p *Pool) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.processes[id]; !exists {
		return
	}
	delete(p.processes, id)
	for i, orderedID := range p.order {
		if orderedID == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Get returns the process with id, or false if none exists.
func (p *Pool) Get(id string) (*ManagedProcess, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proc, ok := p.processes[id]
	return proc, ok
}

// GetByPID scans the pool for a process with the given OS pid.
func (p *Pool) GetByPID(pid int) (*ManagedProcess, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.order {
		if proc := p.processes[id]; proc.PID == pid {
			return proc, true
		}
	}
	return nil, false
}

// GetByType returns every process of the given type, in insertion
// order.
func (p *Pool) GetByType(t ProcessType) []*ManagedProcess {
	p.mu.Lock()
	defer p.mu.Unlock()
	var result []*ManagedProcess
	for _, id := range p.order {
		if proc := p.processes[id]; proc.Type == t {
			result = append(result, proc)
		}
	}
	return result
}

// All returns every process in insertion order.
func (p *Pool) All() []*ManagedProcess {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]*ManagedProcess, 0, len(p.order))
	for _, id := range p.order {
		result = append(result, p.processes[id])
	}
	return result
}

// UpdateStatus transitions a process's status and, when provided,
// records its exit code.
func (p *Pool) UpdateStatus(id string, status ProcessStatus, exitCode *int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	proc, ok := p.processes[id]
	if !ok {
		return ErrNotFound
	}
	proc.Status = status
	if exitCode != nil {
		proc.ExitCode = exitCode
	}
	return nil
}

// IncrementRestartCount bumps the restart counter and returns its new
// value.
func (p *Pool) IncrementRestartCount(id string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proc, ok := p.processes[id]
	if !ok {
		return 0, ErrNotFound
	}
	proc.RestartCount++
	return proc.RestartCount, nil
}

// AllStopped reports whether the pool is empty or every process has
// settled into Stopped or Crashed.
func (p *Pool) AllStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.order {
		status := p.processes[id].Status
		if status != StatusStopped && status != StatusCrashed {
			return false
		}
	}
	return true
}
