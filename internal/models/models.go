// Package models defines the core domain types for spread.
package models

import "time"

// FunctionID identifies one registered function signature in the dispatch table.
// IDs are dense, assigned in registration order starting at zero.
type FunctionID int

// FunctionInfo is a catalog entry produced by the extraction and estimation stages.
type FunctionInfo struct {
	ID             string    `json:"id" yaml:"-"`
	Name           string    `json:"name" yaml:"name"`
	Signature      string    `json:"signature" yaml:"signature,omitempty"`
	Params         []string  `json:"params" yaml:"params"`
	ParamTypes     []string  `json:"param_types,omitempty" yaml:"param_types"`
	StatementCount int       `json:"statement_count" yaml:"statement_count"`
	CostExpr       string    `json:"cost,omitempty" yaml:"cost"`
	Source         string    `json:"source,omitempty" yaml:"source,omitempty"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-"`
}

// Task is one admitted invocation waiting in, or popped from, a worker queue.
type Task struct {
	Function FunctionID
	Slot     int
}

// WorkerState represents where a worker is in its loop.
type WorkerState string

const (
	WorkerIdle     WorkerState = "idle"
	WorkerDraining WorkerState = "draining"
	WorkerStopped  WorkerState = "stopped"
)

// WorkerStats is a point-in-time view of a single worker.
type WorkerStats struct {
	ID       int         `json:"id"`
	State    WorkerState `json:"state"`
	Queued   int         `json:"queued"`
	Executed int64       `json:"executed"`
	Cost     int64       `json:"cost"`
}

// PoolStats is a point-in-time view of the whole worker pool.
type PoolStats struct {
	PoolSize  int           `json:"pool_size"`
	InFlight  int64         `json:"in_flight"`
	Admitted  int64         `json:"admitted"`
	Completed int64         `json:"completed"`
	Stopping  bool          `json:"stopping"`
	Workers   []WorkerStats `json:"workers"`
}

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	Subject    string    `json:"subject,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
