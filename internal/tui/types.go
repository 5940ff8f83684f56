package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/TanveerShahriar/Thesis/internal/models"
)

// workerColumns are the columns of the worker table.
var workerColumns = []table.Column{
	{Title: "WORKER", Width: 8},
	{Title: "STATE", Width: 10},
	{Title: "QUEUED", Width: 8},
	{Title: "EXECUTED", Width: 10},
	{Title: "COST", Width: 12},
}

// workerRows converts pool statistics into table rows.
func workerRows(stats *models.PoolStats) []table.Row {
	if stats == nil {
		return nil
	}
	rows := make([]table.Row, len(stats.Workers))
	for i, w := range stats.Workers {
		rows[i] = table.Row{
			fmt.Sprintf("%d", w.ID),
			string(w.State),
			fmt.Sprintf("%d", w.Queued),
			fmt.Sprintf("%d", w.Executed),
			fmt.Sprintf("%d", w.Cost),
		}
	}
	return rows
}

// costBar renders cost as a bar of at most width cells scaled against max.
func costBar(cost, max int64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if max > 0 && cost > 0 {
		filled = int(cost * int64(width) / max)
		if filled == 0 {
			filled = 1
		}
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// spread returns the smallest and largest worker cost.
func spread(stats *models.PoolStats) (lo, hi int64) {
	if stats == nil || len(stats.Workers) == 0 {
		return 0, 0
	}
	lo, hi = stats.Workers[0].Cost, stats.Workers[0].Cost
	for _, w := range stats.Workers[1:] {
		if w.Cost < lo {
			lo = w.Cost
		}
		if w.Cost > hi {
			hi = w.Cost
		}
	}
	return lo, hi
}
