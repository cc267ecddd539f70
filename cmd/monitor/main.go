// Command monitor is a tiny REPL fallback wired through Scheduler.OnHalt: it
// fires whenever no environment is eligible to run, mirroring the original
// kernel's monitor prompt. Typing "envs" lists the table, "quit" exits.
//
// Run with: go run ./cmd/monitor/
package main

import (
	"bufio"
	"fmt"
	"os"

	envkernel "github.com/tavplubix/envkernel"
)

func main() {
	tab, err := envkernel.NewTable(envkernel.WithCapacity(4))
	if err != nil {
		panic(err)
	}
	sched := envkernel.NewScheduler(tab)
	k := envkernel.NewKernel(tab, sched)

	if _, err := tab.Allocate(0, envkernel.TypeUser); err != nil {
		panic(err)
	}
	sched.Yield() // makes the sole allocated env current

	sched.OnHalt = func(t *envkernel.Table) {
		fmt.Println("kernel: no runnable env, entering monitor")
		runMonitor(t)
	}

	// Destroy the only runnable env to force a halt and demonstrate OnHalt.
	if err := k.SysEnvDestroy(0, tab.Current().ID()); err != nil {
		panic(err)
	}
}

func runMonitor(t *envkernel.Table) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("monitor> ")
		if !scanner.Scan() {
			return
		}
		switch scanner.Text() {
		case "envs":
			t.ForEach(func(idx int, env *envkernel.Environment) {
				if env.Status() != envkernel.StatusFree {
					fmt.Printf("  [%d] id=%d status=%s stopped=%v\n",
						idx, env.ID(), env.Status(), env.Stopped())
				}
			})
		case "quit", "exit":
			return
		case "":
			// ignore blank lines
		default:
			fmt.Println("commands: envs, quit")
		}
	}
}
