package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TanveerShahriar/Thesis/internal/models"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Show worker pool statistics",
	RunE:  runWorkers,
}

func runWorkers(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/workers")
	if err != nil {
		return err
	}

	var stats models.PoolStats
	if err := json.Unmarshal(resp, &stats); err != nil {
		return err
	}

	state := "running"
	if stats.Stopping {
		state = "draining"
	}
	fmt.Printf("Pool:      %d workers (%s)\n", stats.PoolSize, state)
	fmt.Printf("In flight: %d\n", stats.InFlight)
	fmt.Printf("Admitted:  %d\n", stats.Admitted)
	fmt.Printf("Completed: %d\n\n", stats.Completed)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKER\tSTATE\tQUEUED\tEXECUTED\tCOST")
	for _, wk := range stats.Workers {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", wk.ID, wk.State, wk.Queued, wk.Executed, wk.Cost)
	}
	w.Flush()
	return nil
}
