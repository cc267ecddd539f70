package envkernel

// Kernel binds a Table and a Scheduler together into the single object the
// syscall dispatch table (C5) calls into. Splitting Table/Scheduler from
// Kernel keeps the C1/C3 data structures usable standalone in tests while
// giving the syscall layer one receiver with access to both, the way
// eventloop.Loop owns both its task queue and its run policy behind one
// handle.
type Kernel struct {
	Table *Table
	Sched *Scheduler
}

// NewKernel constructs a Kernel over an existing Table and Scheduler pair
// (the caller is expected to have built s with NewScheduler(t)).
func NewKernel(t *Table, s *Scheduler) *Kernel {
	return &Kernel{Table: t, Sched: s}
}

// SysEnvDestroy implements the env_destroy syscall (spec §4.2/§6): resolve
// the target (self-or-child, id 0 meaning self), then destroy it, notifying
// its parent with SIGCHLD (spec §4.4).
func (k *Kernel) SysEnvDestroy(callerID, targetID int32) error {
	target, err := k.Table.Resolve(targetID, true)
	if err != nil {
		return err
	}
	return k.destroy(target)
}

// SysYield implements the yield syscall: does not return to the caller in
// the real kernel (the scheduler restores a successor's frame); here it
// simply runs the scheduling pass.
func (k *Kernel) SysYield() {
	k.Sched.Yield()
}

// SysGetEnvID implements getenvid: id 0 always means "self" to every other
// syscall, but getenvid itself must return the caller's real, nonzero id.
func (k *Kernel) SysGetEnvID(callerID int32) int32 {
	return callerID
}
