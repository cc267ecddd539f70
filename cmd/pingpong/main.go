// Command pingpong demonstrates two environments exchanging SIGUSR1 through
// the kernel's signal queue and the user-side trampoline.
//
// Run with: go run ./cmd/pingpong/
package main

import (
	"fmt"

	envkernel "github.com/tavplubix/envkernel"
	"github.com/tavplubix/envkernel/trampoline"
)

func main() {
	tab, err := envkernel.NewTable(envkernel.WithCapacity(4))
	if err != nil {
		panic(err)
	}
	sched := envkernel.NewScheduler(tab)
	k := envkernel.NewKernel(tab, sched)

	a, err := tab.Allocate(0, envkernel.TypeUser)
	if err != nil {
		panic(err)
	}
	b, err := tab.Allocate(0, envkernel.TypeUser)
	if err != nil {
		panic(err)
	}

	const rounds = 3
	aLeft, bLeft := rounds, rounds

	registerBouncer := func(self, peer *envkernel.Environment, left *int, name string) {
		_, err := k.SysSigAction(self.ID(), envkernel.SigUsr1, &envkernel.SigAction{
			Disposition: envkernel.DispositionHandler,
			Handler: func(signo int32) {
				fmt.Printf("%s: received ping (#%d left)\n", name, *left)
				*left--
				if *left > 0 {
					if err := k.SysSigQueue(self.ID(), peer.ID(), envkernel.SigUsr1, envkernel.SigVal{}); err != nil {
						fmt.Printf("%s: send failed: %v\n", name, err)
					}
				}
			},
		})
		if err != nil {
			panic(err)
		}
	}
	registerBouncer(a, b, &aLeft, "a")
	registerBouncer(b, a, &bLeft, "b")

	if err := k.SysSigQueue(0, b.ID(), envkernel.SigUsr1, envkernel.SigVal{}); err != nil {
		panic(err)
	}

	deliver := func(envID int32) bool {
		es, ok, err := k.SysSigDeliver(envID)
		if err != nil || !ok {
			return false
		}
		trampoline.Dispatch(es, &envkernel.UTrapFrame{}, nil,
			func(bit uint32) uint32 {
				old, _ := k.SysSigProcMask(envID, envkernel.SigMaskBlock, bit, true)
				return old
			},
			func(prior uint32) {
				_, _ = k.SysSigProcMask(envID, envkernel.SigMaskSet, prior, true)
			},
		)
		return true
	}

	for aLeft > 0 || bLeft > 0 {
		progressed := deliver(a.ID())
		progressed = deliver(b.ID()) || progressed
		if !progressed {
			break
		}
	}

	fmt.Println("done")
}
