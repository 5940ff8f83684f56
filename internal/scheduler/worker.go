package scheduler

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/TanveerShahriar/Thesis/internal/models"
	"github.com/eapache/queue"
)

// worker owns one FIFO task queue, guarded by its own lock and condition.
// cost is only written under mu but may be read without it.
type worker struct {
	id int

	mu    sync.Mutex
	cond  *sync.Cond
	queue *queue.Queue

	cost     atomic.Int64
	executed atomic.Int64
	state    atomic.Value // models.WorkerState
}

func newWorker(id int) *worker {
	w := &worker{id: id, queue: queue.New()}
	w.cond = sync.NewCond(&w.mu)
	w.state.Store(models.WorkerIdle)
	return w
}

// push appends t and adds weight to the worker's cost. It refuses the task
// once stop has been raised, so nothing lands in a queue whose worker may exit.
func (w *worker) push(t models.Task, weight int64, stop *atomic.Bool) bool {
	w.mu.Lock()
	if stop.Load() {
		w.mu.Unlock()
		return false
	}
	w.queue.Add(t)
	w.cost.Add(weight)
	w.mu.Unlock()
	w.cond.Signal()
	return true
}

// next blocks until a task is available or stop is raised with an empty queue.
func (w *worker) next(stop *atomic.Bool) (models.Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for w.queue.Length() == 0 && !stop.Load() {
		w.state.Store(models.WorkerIdle)
		w.cond.Wait()
	}
	if w.queue.Length() == 0 {
		return models.Task{}, false
	}
	w.state.Store(models.WorkerDraining)
	return w.queue.Remove().(models.Task), true
}

// tryPop removes the head task without blocking.
func (w *worker) tryPop() (models.Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.queue.Length() == 0 {
		return models.Task{}, false
	}
	return w.queue.Remove().(models.Task), true
}

// wake takes the lock before broadcasting so a worker between its predicate
// check and Wait cannot miss the signal.
func (w *worker) wake() {
	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()
}

func (w *worker) stats() models.WorkerStats {
	w.mu.Lock()
	queued := w.queue.Length()
	w.mu.Unlock()
	return models.WorkerStats{
		ID:       w.id,
		State:    w.state.Load().(models.WorkerState),
		Queued:   queued,
		Executed: w.executed.Load(),
		Cost:     w.cost.Load(),
	}
}

// runWorker is the worker loop: wait, pop, execute, repeat until stopped.
func (p *Pool) runWorker(w *worker) {
	defer p.wg.Done()

	if p.config.PinThreads {
		if err := pinWorker(w.id); err != nil {
			log.Printf("Worker %d: affinity not applied: %v", w.id, err)
		}
	}

	for {
		t, ok := w.next(&p.stop)
		if !ok {
			w.state.Store(models.WorkerStopped)
			log.Printf("Worker %d stopped after %d tasks", w.id, w.executed.Load())
			return
		}
		p.execute(w, t)
	}
}

// execute runs one task and publishes its result. Panics in the function
// body are not recovered.
func (p *Pool) execute(w *worker, t models.Task) {
	entry, _ := p.table.Lookup(t.Function)

	args, err := p.slots.Args(t.Function, t.Slot)
	if err != nil {
		log.Printf("Worker %d: task %s slot %d: %v", w.id, entry.Name, t.Slot, err)
	} else {
		result := entry.Fn(&Invocation{
			Worker:   w.id,
			Function: t.Function,
			Slot:     t.Slot,
			Args:     args,
			pool:     p,
		})
		err = p.slots.Complete(t.Function, t.Slot, result)
		if err != nil {
			log.Printf("Worker %d: complete %s slot %d: %v", w.id, entry.Name, t.Slot, err)
		}
	}

	w.executed.Add(1)
	p.completed.Add(1)
	p.barrier.done()
}

// helpOnce runs one task from the given worker's own queue, if any.
func (p *Pool) helpOnce(workerID int) bool {
	w := p.workers[workerID]
	t, ok := w.tryPop()
	if !ok {
		return false
	}
	p.execute(w, t)
	return true
}
