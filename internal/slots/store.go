// Package slots provides per-function parameter slot storage for pending invocations.
package slots

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/TanveerShahriar/Thesis/internal/models"
	"github.com/eapache/queue"
)

// Sentinel errors for slot operations.
var (
	ErrUnknownFunction   = errors.New("unknown function")
	ErrDuplicateFunction = errors.New("function already registered")
	ErrSlotOutOfRange    = errors.New("slot index out of range")
	ErrSlotNotAcquired   = errors.New("slot not acquired")
	ErrSlotPending       = errors.New("slot result not ready")
	ErrArity             = errors.New("argument count does not match function arity")
)

// slot holds one invocation's arguments, result and completion flag.
// result is written before done is published, so a reader that observes
// done == true may read result without holding the area lock.
type slot struct {
	args     []any
	result   any
	done     atomic.Bool
	acquired bool
}

// area is the growable slot storage for a single function signature.
type area struct {
	mu    sync.Mutex
	arity int
	slots []*slot
	free  *queue.Queue // recycled slot indices, FIFO
}

// Store holds one slot area per registered function.
type Store struct {
	mu    sync.RWMutex
	areas map[models.FunctionID]*area
}

// NewStore creates an empty slot store.
func NewStore() *Store {
	return &Store{areas: make(map[models.FunctionID]*area)}
}

// Register declares a slot area for fid with a fixed argument count.
func (s *Store) Register(fid models.FunctionID, arity int) error {
	if arity < 0 {
		return fmt.Errorf("register %d: %w", fid, ErrArity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.areas[fid]; ok {
		return fmt.Errorf("register %d: %w", fid, ErrDuplicateFunction)
	}
	s.areas[fid] = &area{arity: arity, free: queue.New()}
	return nil
}

func (s *Store) area(fid models.FunctionID) (*area, error) {
	s.mu.RLock()
	a, ok := s.areas[fid]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("function %d: %w", fid, ErrUnknownFunction)
	}
	return a, nil
}

// get returns the slot at idx. Caller must hold a.mu.
func (a *area) get(idx int) (*slot, error) {
	if idx < 0 || idx >= len(a.slots) {
		return nil, fmt.Errorf("slot %d: %w", idx, ErrSlotOutOfRange)
	}
	return a.slots[idx], nil
}

// Acquire returns a free slot index for fid, reusing released slots first.
func (s *Store) Acquire(fid models.FunctionID) (int, error) {
	a, err := s.area(fid)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.free.Length() > 0 {
		idx := a.free.Remove().(int)
		sl := a.slots[idx]
		sl.args = nil
		sl.result = nil
		sl.done.Store(false)
		sl.acquired = true
		return idx, nil
	}

	a.slots = append(a.slots, &slot{acquired: true})
	return len(a.slots) - 1, nil
}

// Write stores the invocation arguments. It must happen before the task is enqueued.
func (s *Store) Write(fid models.FunctionID, idx int, args ...any) error {
	a, err := s.area(fid)
	if err != nil {
		return err
	}
	if len(args) != a.arity {
		return fmt.Errorf("function %d got %d args, want %d: %w", fid, len(args), a.arity, ErrArity)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	sl, err := a.get(idx)
	if err != nil {
		return err
	}
	if !sl.acquired {
		return fmt.Errorf("slot %d: %w", idx, ErrSlotNotAcquired)
	}
	sl.args = append([]any(nil), args...)
	return nil
}

// Args returns the stored arguments of a slot.
func (s *Store) Args(fid models.FunctionID, idx int) ([]any, error) {
	a, err := s.area(fid)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	sl, err := a.get(idx)
	if err != nil {
		return nil, err
	}
	return sl.args, nil
}

// Complete records the result and marks the slot done.
func (s *Store) Complete(fid models.FunctionID, idx int, result any) error {
	a, err := s.area(fid)
	if err != nil {
		return err
	}
	a.mu.Lock()
	sl, err := a.get(idx)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	sl.result = result
	sl.done.Store(true)
	return nil
}

// Read reports the slot's result and whether it is done. A read before
// completion is not an error; it simply returns done == false.
func (s *Store) Read(fid models.FunctionID, idx int) (any, bool, error) {
	a, err := s.area(fid)
	if err != nil {
		return nil, false, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	sl, err := a.get(idx)
	if err != nil {
		return nil, false, err
	}
	if !sl.done.Load() {
		return nil, false, nil
	}
	return sl.result, true, nil
}

// Release acknowledges a finished slot so its index can be reused.
// Slots whose result has not been published cannot be released.
func (s *Store) Release(fid models.FunctionID, idx int) error {
	a, err := s.area(fid)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	sl, err := a.get(idx)
	if err != nil {
		return err
	}
	if !sl.acquired {
		return fmt.Errorf("slot %d: %w", idx, ErrSlotNotAcquired)
	}
	if !sl.done.Load() {
		return fmt.Errorf("slot %d: %w", idx, ErrSlotPending)
	}
	sl.acquired = false
	a.free.Add(idx)
	return nil
}

// Len returns the number of slots ever allocated for fid.
func (s *Store) Len(fid models.FunctionID) int {
	a, err := s.area(fid)
	if err != nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots)
}

// Free returns the number of released slots waiting for reuse.
func (s *Store) Free(fid models.FunctionID) int {
	a, err := s.area(fid)
	if err != nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.free.Length()
}
