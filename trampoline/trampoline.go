// Package trampoline implements the user-side half of signal delivery
// (spec §4.6, C6): the dispatch logic that runs after the kernel has
// selected an env with a matching queued signal and returned it into its
// installed upcall. The kernel never runs handler code itself (spec §4.4);
// this package is where that code actually executes.
package trampoline

import "github.com/tavplubix/envkernel"

// Dispatch runs the five-step contract from spec §4.6:
//
//  1. DFL snapshot action: call destroySelf, then return without running
//     any handler.
//  2. IGN: return to the interrupted context, nothing else happens.
//  3. SIGINFO set: call Sigaction(signo, &siginfo, frame).
//  4. Otherwise: call Handler(signo).
//  5. After the handler returns, the caller resumes the interrupted frame
//     (that's ordinary Go control flow returning from Dispatch).
//
// addToMask/restoreMask compose and restore the effective sig_mask around
// handler execution (spec §4.4 re-entrancy rule): without NODEFER, signo is
// added to the mask for the duration of the call, composed with whatever
// sa_mask (Action.Mask) the handler was installed with via sigaction, so a
// second instance of the same signal (or anything else named in sa_mask)
// queues rather than re-entering; with NODEFER it may recurse. Either
// callback may be nil to skip masking (e.g. a test driving Dispatch
// directly against a snapshot with no live env backing it).
func Dispatch(
	es envkernel.EnqueuedSignal,
	frame *envkernel.UTrapFrame,
	destroySelf func(),
	addToMask func(mask uint32) (prior uint32),
	restoreMask func(prior uint32),
) {
	switch es.Action.Disposition {
	case envkernel.DispositionDefault:
		if destroySelf != nil {
			destroySelf()
		}
		return
	case envkernel.DispositionIgnore:
		return
	}

	nodefer := es.Action.Flags&envkernel.SANoDefer != 0
	var prior uint32
	if !nodefer && addToMask != nil {
		prior = addToMask(es.Action.Mask | uint32(1)<<uint(es.Signo))
	}

	switch {
	case es.Action.Flags&envkernel.SASiginfo != 0 && es.Action.Sigaction != nil:
		es.Action.Sigaction(es.Signo, &es.Info, frame)
	case es.Action.Handler != nil:
		es.Action.Handler(es.Signo)
	}

	if !nodefer && restoreMask != nil {
		restoreMask(prior)
	}
}
