package scheduler

import (
	"fmt"
	"sync"

	"github.com/TanveerShahriar/Thesis/internal/models"
)

// Func is a dispatchable function body. The returned value is stored as the
// invocation result; functions without a result return nil.
type Func func(inv *Invocation) any

// ArgCheck validates invocation arguments before they are admitted. Errors
// should wrap ErrBadArguments.
type ArgCheck func(args []any) error

// Entry is one row of the dispatch table.
type Entry struct {
	ID    models.FunctionID
	Name  string
	Arity int
	Fn    Func
	Check ArgCheck
}

// Table is the closed dispatch table mapping FunctionID to function body.
// It is built before the pool starts and is immutable once frozen.
type Table struct {
	mu      sync.RWMutex
	entries []Entry
	byName  map[string]models.FunctionID
	frozen  bool
}

// NewTable creates an empty dispatch table.
func NewTable() *Table {
	return &Table{byName: make(map[string]models.FunctionID)}
}

// Register adds a function and returns its dense FunctionID.
func (t *Table) Register(name string, arity int, fn Func) (models.FunctionID, error) {
	return t.RegisterChecked(name, arity, fn, nil)
}

// RegisterChecked is Register with an argument check run by Pool.Submit.
func (t *Table) RegisterChecked(name string, arity int, fn Func, check ArgCheck) (models.FunctionID, error) {
	if fn == nil || name == "" || arity < 0 {
		return 0, fmt.Errorf("register %q: invalid entry", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return 0, fmt.Errorf("register %q: %w", name, ErrTableFrozen)
	}
	if _, ok := t.byName[name]; ok {
		return 0, fmt.Errorf("register %q: %w", name, ErrDuplicateName)
	}

	id := models.FunctionID(len(t.entries))
	t.entries = append(t.entries, Entry{ID: id, Name: name, Arity: arity, Fn: fn, Check: check})
	t.byName[name] = id
	return id, nil
}

// Freeze makes the table immutable.
func (t *Table) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Lookup returns the entry for id.
func (t *Table) Lookup(id models.FunctionID) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id < 0 || int(id) >= len(t.entries) {
		return Entry{}, false
	}
	return t.entries[id], true
}

// ByName returns the entry registered under name.
func (t *Table) ByName(name string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byName[name]
	if !ok {
		return Entry{}, false
	}
	return t.entries[id], true
}

// Len returns the number of registered functions.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Entries returns a copy of all entries in FunctionID order.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
