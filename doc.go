// Package envkernel implements the process-lifecycle core of a small
// teaching microkernel: a fixed-capacity environment table, a cooperative
// round-robin scheduler, and a POSIX-flavored signal-delivery pipeline that
// spans kernel and user mode.
//
// The kernel is single-threaded and non-preemptive: callers drive it by
// invoking syscalls (Kernel methods) and by calling Scheduler.Yield at
// explicit suspension points. No goroutine-safety is provided or required,
// matching the original design (see DESIGN.md).
package envkernel
