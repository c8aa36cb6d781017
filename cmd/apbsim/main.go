package main

import (
	"flag"
	"fmt"
	"os"

	apb "github.com/example/apb_sim"
	"github.com/example/apb_sim/core"
	"github.com/example/apb_sim/hooks"
	"github.com/example/apb_sim/observers"
)

func main() {
	var (
		transfers = flag.Int("transfers", 32, "number of randomized transfers to issue")
		registers = flag.Int("registers", apb.DefaultRegisterCount, "slave register count")
		seed      = flag.Int64("seed", 1, "random seed (0 for time based)")
		waitProb  = flag.Float64("wait", 0.25, "wait state probability per waited cycle")
		errProb   = flag.Float64("error", 0.0, "error response probability per transfer")
		maxCycles = flag.Int("max-cycles", 100000, "cycle budget for the run")
		verbose   = flag.Bool("v", false, "print each observed transfer")
	)
	flag.Parse()

	cfg := &apb.Config{
		Registers:              make([]uint64, *registers),
		RandomReadyProbability: *waitProb,
		RandomErrorProbability: *errProb,
		Seed:                   *seed,
		Observers:              []string{"console", "scoreboard", "coverage"},
	}

	agent, err := apb.NewAgent(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apbsim: %v\n", err)
		os.Exit(1)
	}

	scoreboard := observers.NewScoreboard(cfg.Registers, cfg.BusWidth)
	coverage := observers.NewCoverage()
	if err := observers.RegisterScoreboard(agent.Registry(), scoreboard); err != nil {
		fmt.Fprintf(os.Stderr, "apbsim: %v\n", err)
		os.Exit(1)
	}
	if err := observers.RegisterCoverage(agent.Registry(), coverage); err != nil {
		fmt.Fprintf(os.Stderr, "apbsim: %v\n", err)
		os.Exit(1)
	}

	consoleDesc := hooks.ObserverDescriptor{
		Name:        "console",
		Category:    hooks.CategoryInstrumentation,
		Description: "prints every observed transfer",
	}
	err = agent.Registry().Register("console", consoleDesc, func(b *hooks.Broker) error {
		b.RegisterTransfer(func(ctx *hooks.TransferContext) error {
			if *verbose {
				fmt.Printf("cycle %5d  %s\n", ctx.Cycle, ctx.Transaction)
			}
			return nil
		})
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "apbsim: %v\n", err)
		os.Exit(1)
	}
	if err := agent.LoadObservers(); err != nil {
		fmt.Fprintf(os.Stderr, "apbsim: %v\n", err)
		os.Exit(1)
	}

	// Issue a randomized mix of reads and writes constrained to the
	// register range, then let the bench drain.
	rng := agent.Rand()
	lanes := cfg.BusWidth / 8
	issued := make([]*core.Transaction, 0, *transfers)
	for i := 0; i < *transfers; i++ {
		address := uint64(rng.Intn(*registers)) * uint64(lanes)
		var txn *core.Transaction
		if rng.Intn(2) == 1 {
			txn, err = core.NewWrite(address, 0)
			if err == nil {
				txn.Randomize(rng)
				txn.Address = address
			}
		} else {
			txn, err = core.NewRead(address)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "apbsim: building transfer %d: %v\n", i, err)
			os.Exit(1)
		}
		if _, err := agent.Master().Issue(txn); err != nil {
			fmt.Fprintf(os.Stderr, "apbsim: issuing transfer %d: %v\n", i, err)
			os.Exit(1)
		}
		issued = append(issued, txn)
	}

	ran := agent.RunUntilIdle(*maxCycles)
	if agent.Master().Busy() {
		fmt.Fprintf(os.Stderr, "apbsim: bench did not drain within %d cycles\n", *maxCycles)
		os.Exit(1)
	}

	ms := agent.Master().SnapshotStats()
	ss := agent.Slave().SnapshotStats()
	ns := agent.Monitor().SnapshotStats()

	fmt.Printf("ran %d cycles\n", ran)
	fmt.Printf("master: issued=%d completed=%d errors=%d waitCycles=%d maxQueueDepth=%d\n",
		ms.Issued, ms.Completed, ms.Errors, ms.WaitCycles, ms.MaxQueueDepth)
	fmt.Printf("slave:  accepted=%d reads=%d writes=%d errorResponses=%d waitStates=%d\n",
		ss.Accepted, ss.Reads, ss.Writes, ss.ErrorResponses, ss.WaitStates)
	fmt.Printf("monitor: observed=%d errorsObserved=%d\n", ns.Observed, ns.ErrorsObserved)

	cov := coverage.Snapshot()
	fmt.Printf("coverage: transfers=%d errors=%d distinctAddresses=%d\n",
		cov.Transfers, cov.Errors, coverage.Addresses())
	if mismatches := scoreboard.Mismatches(); len(mismatches) > 0 {
		for _, mm := range mismatches {
			fmt.Fprintf(os.Stderr, "apbsim: scoreboard mismatch at cycle %d addr 0x%X: got 0x%X want 0x%X\n",
				mm.Cycle, mm.Address, mm.Got, mm.Expected)
		}
		os.Exit(1)
	}
	fmt.Printf("scoreboard: %d reads checked, no mismatches\n", scoreboard.Checked())

	if len(issued) > 0 {
		fmt.Println(issued[len(issued)-1].Render())
	}
}
