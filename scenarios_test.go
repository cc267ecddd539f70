package envkernel_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tavplubix/envkernel"
	"github.com/tavplubix/envkernel/trampoline"
)

func newScenarioKernel(t *testing.T, capacity int) (*envkernel.Kernel, *envkernel.Table, *envkernel.Scheduler) {
	t.Helper()
	tab, err := envkernel.NewTable(envkernel.WithCapacity(capacity))
	require.NoError(t, err)
	sched := envkernel.NewScheduler(tab)
	return envkernel.NewKernel(tab, sched), tab, sched
}

// deliverOne pulls the oldest deliverable (non-masked) queued signal for
// envID and runs it through the trampoline, wiring mask composition through
// SysSigProcMask. Returns false if nothing was deliverable.
func deliverOne(t *testing.T, k *envkernel.Kernel, envID int32) bool {
	t.Helper()
	es, ok, err := k.SysSigDeliver(envID)
	require.NoError(t, err)
	if !ok {
		return false
	}

	var destroyed bool
	trampoline.Dispatch(es, &envkernel.UTrapFrame{},
		func() {
			destroyed = true
			require.NoError(t, k.SysEnvDestroy(0, envID))
		},
		func(bit uint32) uint32 {
			old, err := k.SysSigProcMask(envID, envkernel.SigMaskBlock, bit, true)
			require.NoError(t, err)
			return old
		},
		func(prior uint32) {
			_, err := k.SysSigProcMask(envID, envkernel.SigMaskSet, prior, true)
			require.NoError(t, err)
		},
	)
	_ = destroyed
	return true
}

// TestPingPongDeliversBothDirections is scenario S1 from spec §8: two envs
// exchange SIGUSR1, each side's handler incrementing a counter. Exact
// round-trip counts depend on scheduling order we don't pin down here, so
// this asserts each side received at least one signal rather than an exact
// count.
func TestPingPongDeliversBothDirections(t *testing.T) {
	k, tab, _ := newScenarioKernel(t, 4)

	a, err := tab.Allocate(0, envkernel.TypeUser)
	require.NoError(t, err)
	b, err := tab.Allocate(0, envkernel.TypeUser)
	require.NoError(t, err)

	var aReceived, bReceived int
	_, err = k.SysSigAction(a.ID(), envkernel.SigUsr1, &envkernel.SigAction{
		Disposition: envkernel.DispositionHandler,
		Handler:     func(signo int32) { aReceived++ },
	})
	require.NoError(t, err)
	_, err = k.SysSigAction(b.ID(), envkernel.SigUsr1, &envkernel.SigAction{
		Disposition: envkernel.DispositionHandler,
		Handler:     func(signo int32) { bReceived++ },
	})
	require.NoError(t, err)

	require.NoError(t, k.SysSigQueue(a.ID(), b.ID(), envkernel.SigUsr1, envkernel.SigVal{}))
	require.NoError(t, k.SysSigQueue(b.ID(), a.ID(), envkernel.SigUsr1, envkernel.SigVal{}))

	require.True(t, deliverOne(t, k, a.ID()))
	require.True(t, deliverOne(t, k, b.ID()))

	require.GreaterOrEqual(t, aReceived, 1)
	require.GreaterOrEqual(t, bReceived, 1)
}

// TestQueueOverflowReturnsAgain is scenario S2 from spec §8: sending past
// the queue's Q-1 usable capacity must return AGAIN, and the queue must
// never silently drop or grow.
func TestQueueOverflowReturnsAgain(t *testing.T) {
	k, tab, _ := newScenarioKernel(t, 4)

	env, err := tab.Allocate(0, envkernel.TypeUser)
	require.NoError(t, err)
	_, err = k.SysSigAction(env.ID(), envkernel.SigUsr1, &envkernel.SigAction{
		Disposition: envkernel.DispositionHandler,
	})
	require.NoError(t, err)

	sent := 0
	for {
		err := k.SysSigQueue(0, env.ID(), envkernel.SigUsr1, envkernel.SigVal{})
		if err != nil {
			require.ErrorIs(t, err, envkernel.Again)
			break
		}
		sent++
		require.Less(t, sent, 1000, "queue must eventually report AGAIN")
	}
	require.Equal(t, sent, env.QueueLen())
}

// TestStopContKillSynthesizesSigchld is scenario S3 from spec §8: STOP
// toggles Stopped(), CONT clears it, and destruction (via KILL)
// unconditionally notifies the parent with SIGCHLD.
func TestStopContKillSynthesizesSigchld(t *testing.T) {
	k, tab, _ := newScenarioKernel(t, 4)

	parent, err := tab.Allocate(0, envkernel.TypeUser)
	require.NoError(t, err)
	_, err = k.SysSigAction(parent.ID(), envkernel.SigChld, &envkernel.SigAction{
		Disposition: envkernel.DispositionHandler,
	})
	require.NoError(t, err)

	child, err := tab.Allocate(parent.ID(), envkernel.TypeUser)
	require.NoError(t, err)

	require.NoError(t, k.SysSigQueue(0, child.ID(), envkernel.SigStop, envkernel.SigVal{}))
	require.True(t, child.Stopped())
	require.Equal(t, 1, parent.QueueLen(), "STOP must synthesize SIGCHLD to the parent")

	require.NoError(t, k.SysSigQueue(0, child.ID(), envkernel.SigCont, envkernel.SigVal{}))
	require.False(t, child.Stopped())
	require.Equal(t, 2, parent.QueueLen(), "CONT must synthesize SIGCHLD to the parent")

	require.NoError(t, k.SysSigQueue(0, child.ID(), envkernel.SigKill, envkernel.SigVal{}))
	require.Equal(t, envkernel.StatusFree, child.Status())
	require.Equal(t, 3, parent.QueueLen(), "destruction must unconditionally synthesize SIGCHLD")
}

// TestNodeferAllowsReentrantMaskDuringHandler is scenario S5 from spec §8:
// without SA_NODEFER, the delivering signal is present in sig_mask for the
// duration of the handler; with SA_NODEFER, it is not.
func TestNodeferAllowsReentrantMaskDuringHandler(t *testing.T) {
	k, tab, _ := newScenarioKernel(t, 4)

	withDefer, err := tab.Allocate(0, envkernel.TypeUser)
	require.NoError(t, err)
	withNodefer, err := tab.Allocate(0, envkernel.TypeUser)
	require.NoError(t, err)

	var maskDuringDefer, maskDuringNodefer uint32
	_, err = k.SysSigAction(withDefer.ID(), envkernel.SigUsr1, &envkernel.SigAction{
		Disposition: envkernel.DispositionHandler,
		Handler:     func(signo int32) { maskDuringDefer = withDefer.SigMask() },
	})
	require.NoError(t, err)
	_, err = k.SysSigAction(withNodefer.ID(), envkernel.SigUsr1, &envkernel.SigAction{
		Disposition: envkernel.DispositionHandler,
		Flags:       envkernel.SANoDefer,
		Handler:     func(signo int32) { maskDuringNodefer = withNodefer.SigMask() },
	})
	require.NoError(t, err)

	require.NoError(t, k.SysSigQueue(0, withDefer.ID(), envkernel.SigUsr1, envkernel.SigVal{}))
	require.NoError(t, k.SysSigQueue(0, withNodefer.ID(), envkernel.SigUsr1, envkernel.SigVal{}))

	require.True(t, deliverOne(t, k, withDefer.ID()))
	require.True(t, deliverOne(t, k, withNodefer.ID()))

	require.NotZero(t, maskDuringDefer&(uint32(1)<<envkernel.SigUsr1),
		"without NODEFER, signo must be blocked for the duration of the handler")
	require.Zero(t, maskDuringNodefer&(uint32(1)<<envkernel.SigUsr1),
		"with NODEFER, signo must not be added to sig_mask")

	require.Zero(t, withDefer.SigMask(), "mask must be restored after the handler returns")
}
