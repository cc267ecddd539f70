package envkernel

import "time"

// Scheduler drives a Table with a cooperative round-robin policy (spec §4.3,
// C3). It owns no goroutines: Yield returns to its caller once a new current
// env has been selected (or once it has invoked OnHalt), mirroring the
// kernel's own cooperative sched_yield.
//
// Grounded on eventloop/loop.go's single-threaded run-to-completion driver
// loop (Loop.Run repeatedly pops and executes one task at a time, never
// spawning workers); here the "task" is always exactly one env.
type Scheduler struct {
	table *Table

	// OnHalt is invoked when no env is eligible to run. The default (nil)
	// leaves the Table with no current env and returns immediately; tests
	// and cmd/monitor install a REPL-style fallback here.
	OnHalt func(t *Table)
}

// NewScheduler builds a Scheduler over t.
func NewScheduler(t *Table) *Scheduler {
	return &Scheduler{table: t}
}

// eligible reports whether env may be selected to run next (spec §4.3):
// RUNNABLE, not Stopped, and — if it is blocked in sigwait (WaitingMask !=
// 0) — has at least one queued signal matching that mask.
func eligible(env *Environment) bool {
	if env.stopped {
		return false
	}
	switch env.status {
	case StatusRunnable:
		return true
	case StatusNotRunnable:
		if env.waitingMask == 0 {
			return false
		}
		_, ok := env.queue.findMatch(env.waitingMask)
		return ok
	default:
		return false
	}
}

// Yield implements spec §4.3's round-robin search: starting just after the
// current env's index, scan the table once for the next eligible env. If
// none is found and the current env is itself still eligible, it keeps
// running ("rerun-current fallback"). If nothing is eligible at all, OnHalt
// runs (if set) and Current() becomes nil.
func (s *Scheduler) Yield() {
	t := s.table
	n := t.Capacity()

	start := 0
	if t.hasCur {
		start = (t.curIndex + 1) % n
	}

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		env := &t.slots[idx]
		if eligible(env) {
			s.run(idx)
			return
		}
	}

	// Rerun-current fallback: nothing else is eligible. eligible() only
	// recognizes Runnable/NotRunnable, but curenv is RUNNING while it holds
	// the processor, so the fallback must check curenv's own fields
	// directly rather than reuse eligible().
	if t.hasCur {
		cur := &t.slots[t.curIndex]
		if cur.status == StatusRunning && !cur.stopped && cur.waitingMask == 0 {
			s.run(t.curIndex)
			return
		}
	}

	t.clearCurrent()
	t.log(LevelWarn, "sched", 0, "no runnable env, halting", nil)
	if s.OnHalt != nil {
		s.OnHalt(t)
	}
}

// run promotes idx to RUNNING, demoting the previous current env back to
// RUNNABLE (spec §4.3 "run(env): demote current env... promote target...
// increment run counter... restore register frame").
func (s *Scheduler) run(idx int) {
	t := s.table

	if t.hasCur && t.curIndex != idx {
		prev := &t.slots[t.curIndex]
		if prev.status == StatusRunning {
			prev.status = StatusRunnable
		}
	}

	next := &t.slots[idx]
	if next.status != StatusRunning {
		if next.status == StatusNotRunnable {
			// eligible() already confirmed a matching queued signal exists.
			wakeIfWaiting(next)
		}
		assertInvariant(next.status == StatusRunnable, "sched.run on non-RUNNABLE env",
			next.status.String())

		next.status = StatusRunning
	}
	// Rerun-current calls run() on an env already RUNNING; still counts as
	// a run and still needs setCurrent (curIndex is unchanged, but hasCur
	// may not be set yet on the very first Yield()).
	next.runs++

	t.setCurrent(idx)

	if t.opts.traceEnvs {
		t.log(LevelDebug, "sched", next.id, "run", map[string]any{
			"runs": next.runs, "at": time.Now(),
		})
	}

	// "switch address space" / "restore register frame": both are modeled
	// as pure data (RegisterFrame, AddressSpace) owned by the Environment
	// already selected above — there is no separate action to perform here
	// since this simulation has no real MMU or CPU to reprogram.
}
