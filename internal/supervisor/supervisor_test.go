package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/asf/whisperdash/internal/config"
	"github.com/asf/whisperdash/internal/events"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	cfg := config.Default()
	cfg.Agents.Count = 0 // out of [1,50]

	_, err := New(cfg, filepath.Join(t.TempDir(), "launcher.pid"), bus, zerolog.Nop())
	require.ErrorIs(t, err, ErrConfigInvalid)
}

func TestNew_AcceptsDefaultConfig(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	sup, err := New(config.Default(), filepath.Join(t.TempDir(), "launcher.pid"), bus, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, sup)
	require.True(t, sup.pool.AllStopped())
}

// TestSupervisor_StartStopLifecycle exercises the full start sequence
// (lock, spawn, PID-file, signal handlers) against long-lived
// stand-in children, then the full stop sequence, asserting the
// PID-file appears and disappears and every process settles to
// Stopped.
func TestSupervisor_StartStopLifecycle(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	cfg := config.Default()
	cfg.Dashboard.Enabled = false
	cfg.Agents.Count = 2

	pidPath := filepath.Join(t.TempDir(), "launcher.pid")
	sup, err := New(cfg, pidPath, bus, zerolog.Nop(),
		WithAgentCommand("sleep", "5"))
	require.NoError(t, err)

	require.NoError(t, sup.Start())

	_, err = os.Stat(pidPath)
	require.NoError(t, err, "PID-file must exist once the fleet is running")

	all := sup.pool.All()
	require.Len(t, all, 2)
	for _, proc := range all {
		require.Equal(t, StatusRunning, proc.Status)
	}

	require.NoError(t, sup.Stop(false))
	require.True(t, sup.pool.AllStopped())

	_, err = os.Stat(pidPath)
	require.True(t, os.IsNotExist(err), "PID-file must be removed once the fleet has stopped")
}

// TestSupervisor_AutoRestartCeiling exercises the crash/restart policy:
// an agent that always exits non-zero is respawned up to MaxRestarts
// times, then left Crashed with no further attempt.
func TestSupervisor_AutoRestartCeiling(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	cfg := config.Default()
	cfg.Dashboard.Enabled = false
	cfg.Agents.Count = 1
	cfg.Agents.AutoRestart = true
	cfg.Agents.MaxRestarts = 2
	cfg.Agents.RestartDelay = 1000

	pidPath := filepath.Join(t.TempDir(), "launcher.pid")
	sup, err := New(cfg, pidPath, bus, zerolog.Nop(),
		WithAgentCommand("sh", "-c", "exit 1"))
	require.NoError(t, err)
	require.NoError(t, sup.Start())

	deadline := time.Now().Add(6 * time.Second)
	var proc *ManagedProcess
	for time.Now().Before(deadline) {
		p, ok := sup.pool.Get("agent-00")
		if ok && p.Status == StatusCrashed && p.RestartCount == cfg.Agents.MaxRestarts+1 {
			proc = p
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	require.NotNil(t, proc, "agent must settle into Crashed after exhausting restarts")
	require.Equal(t, StatusCrashed, proc.Status)
	require.Equal(t, cfg.Agents.MaxRestarts+1, proc.RestartCount)

	_ = sup.Stop(true)
}
