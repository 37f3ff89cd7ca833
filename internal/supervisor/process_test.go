package supervisor

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/asf/whisperdash/internal/events"
)

func TestSpawner_SpawnAndWaitSuccess(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	s := NewSpawner(bus, zerolog.Nop())

	proc, err := s.Spawn(SpawnSpec{
		ID: "echo-1", Type: TypeAgent,
		Command: "echo", Args: []string{"hello"},
	})
	require.NoError(t, err)
	require.Greater(t, proc.PID, 0)

	exitCode, waitErr := s.Wait("echo-1")
	require.NoError(t, waitErr)
	require.NotNil(t, exitCode)
	require.Equal(t, 0, *exitCode)

	stdout, _ := s.Output("echo-1")
	require.Contains(t, string(stdout), "hello")
}

func TestSpawner_NonZeroExit(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	s := NewSpawner(bus, zerolog.Nop())

	_, err := s.Spawn(SpawnSpec{ID: "false-1", Type: TypeAgent, Command: "false"})
	require.NoError(t, err)

	exitCode, waitErr := s.Wait("false-1")
	require.NoError(t, waitErr)
	require.NotNil(t, exitCode)
	require.NotEqual(t, 0, *exitCode)
}

func TestSpawner_SpawnFailedForMissingCommand(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	s := NewSpawner(bus, zerolog.Nop())

	_, err := s.Spawn(SpawnSpec{ID: "nope", Command: "this-binary-does-not-exist-anywhere"})
	require.ErrorIs(t, err, ErrSpawnFailed)
}

func TestAliveAndProcessTree(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	s := NewSpawner(bus, zerolog.Nop())

	proc, err := s.Spawn(SpawnSpec{ID: "sleeper", Command: "sleep", Args: []string{"0.2"}})
	require.NoError(t, err)
	require.True(t, Alive(proc.PID))

	tree, err := ProcessTree(proc.PID)
	require.NoError(t, err)
	require.Contains(t, tree, proc.PID)

	_, _ = s.Wait("sleeper")
	// Give the OS a moment to reap; PidExists should now report false.
	time.Sleep(50 * time.Millisecond)
	require.False(t, Alive(proc.PID))
}
