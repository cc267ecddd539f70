package envkernel

import "time"

// SyscallNo is one of the stable dispatch numbers (spec §6).
type SyscallNo int

// The syscall dispatch table. Six register-passed arguments is the
// original's calling convention (spec §4.5); Go call sites use ordinary
// typed arguments instead of packing int64 registers, since the assembly
// trap/return path itself is OUT OF SCOPE (spec.md §1).
const (
	SysCputs SyscallNo = iota
	SysCgetc
	SysGetEnvID
	SysEnvDestroy
	SysAllocRegion
	SysMapRegion
	SysUnmapRegion
	SysRegionRefs
	SysExofork
	SysEnvSetStatus
	SysEnvSetTrapframe
	SysEnvSetPgfaultUpcall
	SysYield
	SysIPCTrySend
	SysIPCRecv
	SysGettime
	SysSigqueue
	SysSigwait
	SysSigaction
	SysSigsetmask
)

// syscallNames is used only for diagnostics (spec §6 "Scheduler
// observability").
var syscallNames = map[SyscallNo]string{
	SysCputs: "cputs", SysCgetc: "cgetc", SysGetEnvID: "getenvid",
	SysEnvDestroy: "env_destroy", SysAllocRegion: "alloc_region",
	SysMapRegion: "map_region", SysUnmapRegion: "unmap_region",
	SysRegionRefs: "region_refs", SysExofork: "exofork",
	SysEnvSetStatus: "env_set_status", SysEnvSetTrapframe: "env_set_trapframe",
	SysEnvSetPgfaultUpcall: "env_set_pgfault_upcall", SysYield: "yield",
	SysIPCTrySend: "ipc_try_send", SysIPCRecv: "ipc_recv",
	SysGettime: "gettime", SysSigqueue: "sigqueue", SysSigwait: "sigwait",
	SysSigaction: "sigaction", SysSigsetmask: "sigsetmask",
}

func (n SyscallNo) String() string {
	if name, ok := syscallNames[n]; ok {
		return name
	}
	return "unknown_syscall"
}

// SetPgfaultUpcall implements env_set_pgfault_upcall: install (or clear,
// with 0) the per-env upcall entry point (spec §3's pgfault_upcall field).
func (k *Kernel) SetPgfaultUpcall(callerID, targetID int32, entry uintptr) error {
	target, err := k.Table.Resolve(targetID, true)
	if err != nil {
		return err
	}
	target.pgfaultUpcall = entry
	return nil
}

// SetStatus implements env_set_status: a caller-driven transition between
// RUNNABLE and NOT_RUNNABLE outside of the sigwait path (e.g. exofork's
// child starts NOT_RUNNABLE until the parent marks it RUNNABLE).
func (k *Kernel) SetStatus(callerID, targetID int32, status Status) error {
	if status != StatusRunnable && status != StatusNotRunnable {
		return Inval
	}
	target, err := k.Table.Resolve(targetID, true)
	if err != nil {
		return err
	}
	target.status = status
	return nil
}

// SetTrapframe implements env_set_trapframe: overwrite a child's saved
// register frame wholesale (used by fork-like flows to seed a copy).
func (k *Kernel) SetTrapframe(callerID, targetID int32, frame RegisterFrame) error {
	target, err := k.Table.Resolve(targetID, true)
	if err != nil {
		return err
	}
	target.frame = frame
	return nil
}

// Exofork implements exofork: allocate a child env whose parent is the
// caller, initially NOT_RUNNABLE until the caller calls SetStatus.
func (k *Kernel) Exofork(callerID int32) (*Environment, error) {
	child, err := k.Table.Allocate(callerID, TypeUser)
	if err != nil {
		return nil, err
	}
	child.status = StatusNotRunnable
	return child, nil
}

// Gettime implements gettime: a trivial wall-clock read. Timer/RTC drivers
// are OUT OF SCOPE (spec.md §1); this is the one point a real clock is
// still useful to expose to kernel-mode callers (e.g. log timestamps).
func (k *Kernel) Gettime() time.Time {
	return time.Now()
}

// SyscallArgs bundles every argument any syscall number might need. Only
// the fields relevant to the number passed to Dispatch are read; the rest
// are ignored, mirroring the original's convention of six raw registers
// where most calls only use a handful.
type SyscallArgs struct {
	CallerID      int32
	TargetID      int32
	Signo         int32
	Value         SigVal
	Mask          uint32
	HasMask       bool
	How           ProcMaskHow
	NewAction     *SigAction
	Status        Status
	Frame         RegisterFrame
	PgfaultUpcall uintptr
	SigwaitOutVA  uintptr
}

// Dispatch is the single entry point the trap handler calls into (spec
// §4.5/§6: "a single entry dispatches on a small integer"). It returns the
// value a trap return would deposit in the accumulator register, or an
// error (itself an Errno, deposited the same way by the real trap return
// path). Console I/O and the region/IPC family are OUT OF SCOPE (spec.md
// §1 Non-goals); they resolve to NoSys rather than being silently dropped,
// so a caller can tell "not implemented" apart from "succeeded with no
// result".
func (k *Kernel) Dispatch(no SyscallNo, args SyscallArgs) (any, error) {
	switch no {
	case SysGetEnvID:
		return k.SysGetEnvID(args.CallerID), nil
	case SysEnvDestroy:
		return nil, k.SysEnvDestroy(args.CallerID, args.TargetID)
	case SysExofork:
		child, err := k.Exofork(args.CallerID)
		if err != nil {
			return nil, err
		}
		return child.ID(), nil
	case SysEnvSetStatus:
		return nil, k.SetStatus(args.CallerID, args.TargetID, args.Status)
	case SysEnvSetTrapframe:
		return nil, k.SetTrapframe(args.CallerID, args.TargetID, args.Frame)
	case SysEnvSetPgfaultUpcall:
		return nil, k.SetPgfaultUpcall(args.CallerID, args.TargetID, args.PgfaultUpcall)
	case SysYield:
		k.SysYield()
		return nil, nil
	case SysGettime:
		return k.Gettime(), nil
	case SysSigqueue:
		return nil, k.SysSigQueue(args.CallerID, args.TargetID, args.Signo, args.Value)
	case SysSigwait:
		caller, err := k.Table.Resolve(args.CallerID, true)
		if err != nil {
			return nil, err
		}
		return nil, k.SysSigWait(caller, args.Mask, args.SigwaitOutVA)
	case SysSigaction:
		return k.SysSigAction(args.TargetID, args.Signo, args.NewAction)
	case SysSigsetmask:
		return k.SysSigProcMask(args.TargetID, args.How, args.Mask, args.HasMask)
	case SysCputs, SysCgetc, SysAllocRegion, SysMapRegion, SysUnmapRegion,
		SysRegionRefs, SysIPCTrySend, SysIPCRecv:
		return nil, NoSys
	default:
		return nil, NoSys
	}
}
