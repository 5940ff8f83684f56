package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TanveerShahriar/Thesis/internal/balancer"
	"github.com/TanveerShahriar/Thesis/internal/models"
	"github.com/TanveerShahriar/Thesis/internal/slots"
)

// Selector picks the worker for the next task from a snapshot of per-worker costs.
type Selector interface {
	Select(costs []int64) int
}

type poolState int32

const (
	stateNew poolState = iota
	stateRunning
	stateDraining
	stateStopped
)

// Option configures a Pool.
type Option func(*Pool)

// WithSelector replaces the default balancer.
func WithSelector(s Selector) Option {
	return func(p *Pool) { p.selector = s }
}

// Pool runs tasks from a closed dispatch table on a fixed set of workers.
type Pool struct {
	config   *Config
	table    *Table
	slots    *slots.Store
	selector Selector
	workers  []*worker

	barrier   *barrier
	stop      atomic.Bool
	state     atomic.Int32
	admitted  atomic.Int64
	completed atomic.Int64
	wg        sync.WaitGroup
}

// New creates a pool for the functions in table. The table is frozen and a
// slot area is registered for each entry.
func New(cfg *Config, table *Table, opts ...Option) (*Pool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	table.Freeze()

	store := slots.NewStore()
	for _, e := range table.Entries() {
		if err := store.Register(e.ID, e.Arity); err != nil {
			return nil, fmt.Errorf("slot area for %s: %w", e.Name, err)
		}
	}

	p := &Pool{
		config:   cfg,
		table:    table,
		slots:    store,
		selector: balancer.New(cfg.Balancer, cfg.Seed),
		barrier:  newBarrier(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.workers = make([]*worker, cfg.PoolSize)
	for i := range p.workers {
		p.workers[i] = newWorker(i)
	}
	return p, nil
}

// Initialize starts the workers. It must be called exactly once before Enqueue.
func (p *Pool) Initialize() error {
	if !p.state.CompareAndSwap(int32(stateNew), int32(stateRunning)) {
		return ErrAlreadyInitialized
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go p.runWorker(w)
	}
	log.Printf("Pool started with %d workers", len(p.workers))
	return nil
}

// Shutdown waits until every admitted task has completed, then stops and
// joins all workers. No queued task is ever dropped.
func (p *Pool) Shutdown() error {
	if !p.state.CompareAndSwap(int32(stateRunning), int32(stateDraining)) {
		return ErrNotRunning
	}
	log.Printf("Pool draining (%d tasks in flight)", p.barrier.load())

	p.barrier.wait()
	p.stop.Store(true)
	for _, w := range p.workers {
		w.wake()
	}
	p.wg.Wait()

	p.state.Store(int32(stateStopped))
	log.Printf("Pool stopped after %d tasks", p.completed.Load())
	return nil
}

// Enqueue admits one task for fid using the slot prepared by the caller.
// weight is the task's estimated cost and is added to the chosen worker's counter.
func (p *Pool) Enqueue(fid models.FunctionID, weight int64, slot int) error {
	switch poolState(p.state.Load()) {
	case stateNew:
		return ErrNotInitialized
	case stateStopped:
		return ErrShutdown
	}
	if _, ok := p.table.Lookup(fid); !ok {
		return fmt.Errorf("enqueue %d: %w", fid, ErrUnknownFunction)
	}
	if weight < 0 {
		return fmt.Errorf("enqueue %d with weight %d: %w", fid, weight, ErrInvalidWeight)
	}
	if _, err := p.slots.Args(fid, slot); err != nil {
		return fmt.Errorf("enqueue %d: %w", fid, err)
	}

	idx := p.selector.Select(p.Costs())
	if idx < 0 || idx >= len(p.workers) {
		return fmt.Errorf("worker %d: %w", idx, ErrNoWorker)
	}

	// The in-flight count must rise before the task is visible to a worker.
	p.barrier.add()
	if !p.workers[idx].push(models.Task{Function: fid, Slot: slot}, weight, &p.stop) {
		p.barrier.done()
		return ErrShutdown
	}
	p.admitted.Add(1)
	return nil
}

// AcquireSlot reserves a parameter slot for fid.
func (p *Pool) AcquireSlot(fid models.FunctionID) (int, error) {
	return p.slots.Acquire(fid)
}

// WriteArgs stores invocation arguments in a reserved slot.
func (p *Pool) WriteArgs(fid models.FunctionID, slot int, args ...any) error {
	return p.slots.Write(fid, slot, args...)
}

// PollResult reports whether the invocation in slot has finished and its result.
// A released slot keeps its last result until it is acquired again, so only
// the slot's holder should poll it.
func (p *Pool) PollResult(fid models.FunctionID, slot int) (bool, any, error) {
	res, done, err := p.slots.Read(fid, slot)
	return done, res, err
}

// ReleaseSlot hands a finished slot back for reuse.
func (p *Pool) ReleaseSlot(fid models.FunctionID, slot int) error {
	return p.slots.Release(fid, slot)
}

// Call runs fid with args and polls until the result is available or ctx ends.
// On cancellation the task still runs to completion; its slot is not recycled.
func (p *Pool) Call(ctx context.Context, fid models.FunctionID, weight int64, args ...any) (any, error) {
	slot, err := p.Submit(fid, weight, args...)
	if err != nil {
		return nil, err
	}

	backoff := 20 * time.Microsecond
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	for {
		done, res, err := p.PollResult(fid, slot)
		if err != nil {
			return nil, err
		}
		if done {
			return res, p.ReleaseSlot(fid, slot)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		if backoff < 5*time.Millisecond {
			backoff *= 2
		}
		timer.Reset(backoff)
	}
}

// Submit acquires and fills a slot, checks the arguments, then enqueues it.
// A slot whose task was rejected is completed and released so it is not leaked.
func (p *Pool) Submit(fid models.FunctionID, weight int64, args ...any) (int, error) {
	slot, err := p.slots.Acquire(fid)
	if err != nil {
		return 0, err
	}
	if err = p.slots.Write(fid, slot, args...); err == nil {
		err = p.checkArgs(fid, args)
	}
	if err == nil {
		err = p.Enqueue(fid, weight, slot)
	}
	if err != nil {
		_ = p.slots.Complete(fid, slot, nil)
		_ = p.slots.Release(fid, slot)
		return 0, err
	}
	return slot, nil
}

func (p *Pool) checkArgs(fid models.FunctionID, args []any) error {
	e, ok := p.table.Lookup(fid)
	if !ok || e.Check == nil {
		return nil
	}
	if err := e.Check(args); err != nil {
		return fmt.Errorf("%s: %w", e.Name, err)
	}
	return nil
}

// Table returns the pool's dispatch table.
func (p *Pool) Table() *Table {
	return p.table
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Costs returns a snapshot of each worker's cumulative estimated cost.
func (p *Pool) Costs() []int64 {
	costs := make([]int64, len(p.workers))
	for i, w := range p.workers {
		costs[i] = w.cost.Load()
	}
	return costs
}

// InFlight returns the number of admitted tasks that have not completed.
func (p *Pool) InFlight() int64 {
	return p.barrier.load()
}

// WaitDrained blocks until no task is queued or executing.
func (p *Pool) WaitDrained() {
	p.barrier.wait()
}

// Stats returns current pool statistics.
func (p *Pool) Stats() models.PoolStats {
	stats := models.PoolStats{
		PoolSize:  len(p.workers),
		InFlight:  p.barrier.load(),
		Admitted:  p.admitted.Load(),
		Completed: p.completed.Load(),
		Stopping:  poolState(p.state.Load()) >= stateDraining,
		Workers:   make([]models.WorkerStats, len(p.workers)),
	}
	for i, w := range p.workers {
		stats.Workers[i] = w.stats()
	}
	return stats
}
