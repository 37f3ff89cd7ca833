package supervisor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool_AddGetOrder(t *testing.T) {
	p := NewPool()
	p.Add(&ManagedProcess{ID: "a", Type: TypeAgent, Status: StatusRunning})
	p.Add(&ManagedProcess{ID: "b", Type: TypeAgent, Status: StatusRunning})
	p.Add(&ManagedProcess{ID: "dashboard", Type: TypeDashboard, Status: StatusRunning})

	all := p.All()
	require.Len(t, all, 3)
	require.Equal(t, "a", all[0].ID)
	require.Equal(t, "b", all[1].ID)
	require.Equal(t, "dashboard", all[2].ID)

	agents := p.GetByType(TypeAgent)
	require.Len(t, agents, 2)

	proc, ok := p.Get("b")
	require.True(t, ok)
	require.Equal(t, "b", proc.ID)

	_, ok = p.Get("missing")
	require.False(t, ok)
}

func TestPool_RemovePreservesOrder(t *testing.T) {
	p := NewPool()
	p.Add(&ManagedProcess{ID: "a"})
	p.Add(&ManagedProcess{ID: "b"})
	p.Add(&ManagedProcess{ID: "c"})

	p.Remove("b")
	all := p.All()
	require.Len(t, all, 2)
	require.Equal(t, "a", all[0].ID)
	require.Equal(t, "c", all[1].ID)
}

func TestPool_AllStopped(t *testing.T) {
	p := NewPool()
	require.True(t, p.AllStopped(), "an empty pool is vacuously all-stopped")

	p.Add(&ManagedProcess{ID: "a", Status: StatusRunning})
	require.False(t, p.AllStopped())

	require.NoError(t, p.UpdateStatus("a", StatusStopped, nil))
	require.True(t, p.AllStopped())

	p.Add(&ManagedProcess{ID: "b", Status: StatusCrashed})
	require.True(t, p.AllStopped(), "crashed counts as stopped")
}

func TestPool_IncrementRestartCount(t *testing.T) {
	p := NewPool()
	p.Add(&ManagedProcess{ID: "a"})

	n, err := p.IncrementRestartCount("a")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = p.IncrementRestartCount("a")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = p.IncrementRestartCount("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPool_GetByPID(t *testing.T) {
	p := NewPool()
	p.Add(&ManagedProcess{ID: "a", PID: 1234})

	proc, ok := p.GetByPID(1234)
	require.True(t, ok)
	require.Equal(t, "a", proc.ID)

	_, ok = p.GetByPID(9999)
	require.False(t, ok)
}
