package envkernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRoundRobin(t *testing.T) {
	tab, err := NewTable(WithCapacity(4))
	require.NoError(t, err)
	sched := NewScheduler(tab)

	a, err := tab.Allocate(0, TypeUser)
	require.NoError(t, err)
	b, err := tab.Allocate(0, TypeUser)
	require.NoError(t, err)

	sched.Yield()
	require.Equal(t, a.ID(), tab.Current().ID())

	sched.Yield()
	require.Equal(t, b.ID(), tab.Current().ID())

	sched.Yield()
	require.Equal(t, a.ID(), tab.Current().ID(), "round robin must wrap back to the first env")
}

func TestSchedulerRerunsCurrentWhenAlone(t *testing.T) {
	tab, err := NewTable(WithCapacity(4))
	require.NoError(t, err)
	sched := NewScheduler(tab)

	a, err := tab.Allocate(0, TypeUser)
	require.NoError(t, err)

	sched.Yield()
	require.Equal(t, a.ID(), tab.Current().ID())

	sched.Yield()
	require.Equal(t, a.ID(), tab.Current().ID(), "sole runnable env keeps running")
}

func TestSchedulerSkipsStoppedEnv(t *testing.T) {
	tab, err := NewTable(WithCapacity(4))
	require.NoError(t, err)
	sched := NewScheduler(tab)

	a, err := tab.Allocate(0, TypeUser)
	require.NoError(t, err)
	b, err := tab.Allocate(0, TypeUser)
	require.NoError(t, err)
	b.stopped = true

	sched.Yield()
	require.Equal(t, a.ID(), tab.Current().ID())

	sched.Yield()
	require.Equal(t, a.ID(), tab.Current().ID(), "a stopped env must never be selected")
}

func TestSchedulerHaltsAndInvokesOnHalt(t *testing.T) {
	tab, err := NewTable(WithCapacity(4))
	require.NoError(t, err)
	sched := NewScheduler(tab)

	halted := false
	sched.OnHalt = func(*Table) { halted = true }

	sched.Yield()

	require.True(t, halted)
	require.Nil(t, tab.Current())
}

func TestSchedulerSkipsSigwaitWithoutMatch(t *testing.T) {
	tab, err := NewTable(WithCapacity(4))
	require.NoError(t, err)
	sched := NewScheduler(tab)

	a, err := tab.Allocate(0, TypeUser)
	require.NoError(t, err)
	b, err := tab.Allocate(0, TypeUser)
	require.NoError(t, err)
	b.status = StatusNotRunnable
	b.waitingMask = signalFlag(SigUsr1)

	sched.Yield()
	require.Equal(t, a.ID(), tab.Current().ID())

	sched.Yield()
	require.Equal(t, a.ID(), tab.Current().ID(), "b is blocked with nothing queued, must stay ineligible")
}

func TestSchedulerWakesSigwaitOnMatch(t *testing.T) {
	tab, err := NewTable(WithCapacity(4))
	require.NoError(t, err)
	sched := NewScheduler(tab)

	a, err := tab.Allocate(0, TypeUser)
	require.NoError(t, err)
	b, err := tab.Allocate(0, TypeUser)
	require.NoError(t, err)
	b.status = StatusNotRunnable
	b.waitingMask = signalFlag(SigUsr1)
	require.NoError(t, b.queue.push(EnqueuedSignal{Signo: SigUsr1}))

	sched.Yield()
	require.Equal(t, a.ID(), tab.Current().ID())

	sched.Yield()
	require.Equal(t, b.ID(), tab.Current().ID())
	require.Equal(t, uint32(0), b.WaitingMask())
	require.Equal(t, 0, b.QueueLen())
}
