package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TanveerShahriar/Thesis/internal/balancer"
	"github.com/TanveerShahriar/Thesis/internal/scheduler"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run weighted tasks through an in-process pool and print the cost per worker",
	RunE:  runSimulate,
}

var (
	simWorkers    int
	simWeights    []int64
	simRepeat     int
	simSeed       int64
	simRatio      float64
	simMedianTies bool
)

func init() {
	simulateCmd.Flags().IntVar(&simWorkers, "workers", 4, "Number of workers")
	simulateCmd.Flags().Int64SliceVar(&simWeights, "weights", []int64{1}, "Task weights, in admission order")
	simulateCmd.Flags().IntVar(&simRepeat, "repeat", 1, "Admit the weight list this many times")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Balancer seed (0 = time based)")
	simulateCmd.Flags().Float64Var(&simRatio, "ratio", balancer.DefaultThresholdRatio, "Threshold ratio of the mean cost")
	simulateCmd.Flags().BoolVar(&simMedianTies, "median-ties", false, "Keep workers on the median in the fallback set")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg := scheduler.DefaultConfig()
	cfg.PoolSize = simWorkers
	cfg.Seed = simSeed
	cfg.Balancer = balancer.Policy{ThresholdRatio: simRatio, IncludeMedianTies: simMedianTies}

	stats, err := simulate(cfg, simWeights, simRepeat)
	if err != nil {
		return err
	}
	printSimulation(os.Stdout, stats)
	return nil
}

// simulation is the outcome of one simulate run.
type simulation struct {
	Costs    []int64
	Executed []int64
	Total    int64
}

// simulate admits every weight to a no-op function on a fresh pool, then
// shuts the pool down and reports where the cost landed.
func simulate(cfg *scheduler.Config, weights []int64, repeat int) (*simulation, error) {
	table := scheduler.NewTable()
	noop, err := table.Register("noop", 0, func(*scheduler.Invocation) any { return nil })
	if err != nil {
		return nil, err
	}
	pool, err := scheduler.New(cfg, table)
	if err != nil {
		return nil, err
	}
	if err := pool.Initialize(); err != nil {
		return nil, err
	}

	var total int64
	for r := 0; r < repeat; r++ {
		for _, w := range weights {
			slot, err := pool.AcquireSlot(noop)
			if err != nil {
				pool.Shutdown()
				return nil, err
			}
			if err := pool.Enqueue(noop, w, slot); err != nil {
				pool.Shutdown()
				return nil, err
			}
			total += w
		}
	}
	if err := pool.Shutdown(); err != nil {
		return nil, err
	}

	stats := pool.Stats()
	sim := &simulation{Costs: pool.Costs(), Total: total}
	for _, w := range stats.Workers {
		sim.Executed = append(sim.Executed, w.Executed)
	}
	return sim, nil
}

func printSimulation(out io.Writer, sim *simulation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKER\tTASKS\tCOST")
	lo, hi := sim.Costs[0], sim.Costs[0]
	for i, c := range sim.Costs {
		fmt.Fprintf(w, "%d\t%d\t%d\n", i, sim.Executed[i], c)
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	w.Flush()
	fmt.Fprintf(out, "\nTotal cost %d, spread %d (min %d, max %d)\n", sim.Total, hi-lo, lo, hi)
}
