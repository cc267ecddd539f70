package envkernel

// Status is the run state of an Environment (spec §3, "Environment").
//
// State machine:
//
//	FREE --[allocate]--> RUNNABLE
//	RUNNABLE --[sched.run]--> RUNNING
//	RUNNING --[sched.run picks another]--> RUNNABLE
//	RUNNING --[sigwait]--> NOT_RUNNABLE
//	NOT_RUNNABLE --[matching signal queued]--> RUNNABLE
//	{RUNNABLE,RUNNING,NOT_RUNNABLE} --[destroy]--> DYING --[free]--> FREE
//
// Unlike eventloop's FastState (state.go), this is not a lock-free atomic:
// the kernel is single-threaded and non-preemptive (spec §5), so a plain
// field transitioned under the caller's control is sufficient and no CAS
// is required. See DESIGN.md for the reasoning.
type Status int

const (
	// StatusFree marks a table slot as unused and on the free list.
	StatusFree Status = iota
	// StatusDying marks an env mid-destruction.
	StatusDying
	// StatusRunnable marks an env eligible for scheduling.
	StatusRunnable
	// StatusRunning marks the single env currently executing (curenv).
	StatusRunning
	// StatusNotRunnable marks an env blocked (e.g. in sigwait).
	StatusNotRunnable
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusFree:
		return "FREE"
	case StatusDying:
		return "DYING"
	case StatusRunnable:
		return "RUNNABLE"
	case StatusRunning:
		return "RUNNING"
	case StatusNotRunnable:
		return "NOT_RUNNABLE"
	default:
		return "UNKNOWN"
	}
}

// EnvType affects only the I/O-privilege flag carried in the saved register
// frame (spec §3).
type EnvType int

const (
	// TypeUser is an ordinary user environment (ring-3, IOPL 0).
	TypeUser EnvType = iota
	// TypeKernel is a kernel-mode environment.
	TypeKernel
	// TypeFilesystem is a privileged filesystem server (IOPL 3).
	TypeFilesystem
)

func (t EnvType) String() string {
	switch t {
	case TypeUser:
		return "USER"
	case TypeKernel:
		return "KERNEL"
	case TypeFilesystem:
		return "FILESYSTEM"
	default:
		return "UNKNOWN"
	}
}
