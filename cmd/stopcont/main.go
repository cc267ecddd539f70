// Command stopcont demonstrates SIGSTOP/SIGCONT toggling Environment.Stopped
// and the resulting SIGCHLD notifications delivered to the parent.
//
// Run with: go run ./cmd/stopcont/
package main

import (
	"fmt"

	envkernel "github.com/tavplubix/envkernel"
)

func main() {
	tab, err := envkernel.NewTable(envkernel.WithCapacity(4))
	if err != nil {
		panic(err)
	}
	sched := envkernel.NewScheduler(tab)
	k := envkernel.NewKernel(tab, sched)

	parent, err := tab.Allocate(0, envkernel.TypeUser)
	if err != nil {
		panic(err)
	}
	_, err = k.SysSigAction(parent.ID(), envkernel.SigChld, &envkernel.SigAction{
		Disposition: envkernel.DispositionHandler,
		Handler: func(signo int32) {
			fmt.Println("parent: received SIGCHLD")
		},
	})
	if err != nil {
		panic(err)
	}

	child, err := tab.Allocate(parent.ID(), envkernel.TypeUser)
	if err != nil {
		panic(err)
	}

	fmt.Println("stopping child...")
	if err := k.SysSigQueue(0, child.ID(), envkernel.SigStop, envkernel.SigVal{}); err != nil {
		panic(err)
	}
	fmt.Printf("child stopped: %v, queued for parent: %d\n", child.Stopped(), parent.QueueLen())

	if _, _, err := k.SysSigDeliver(parent.ID()); err != nil {
		panic(err)
	}

	fmt.Println("continuing child...")
	if err := k.SysSigQueue(0, child.ID(), envkernel.SigCont, envkernel.SigVal{}); err != nil {
		panic(err)
	}
	fmt.Printf("child stopped: %v, queued for parent: %d\n", child.Stopped(), parent.QueueLen())

	fmt.Println("killing child...")
	if err := k.SysSigQueue(0, child.ID(), envkernel.SigKill, envkernel.SigVal{}); err != nil {
		panic(err)
	}
	fmt.Printf("child status: %s, queued for parent: %d\n", child.Status(), parent.QueueLen())
}
