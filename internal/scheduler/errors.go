package scheduler

import "errors"

// Sentinel errors for pool and dispatch table operations.
var (
	ErrNotInitialized     = errors.New("pool not initialized")
	ErrAlreadyInitialized = errors.New("pool already initialized")
	ErrShutdown           = errors.New("pool is shutting down")
	ErrNotRunning         = errors.New("pool not running")
	ErrUnknownFunction    = errors.New("unknown function")
	ErrInvalidWeight      = errors.New("weight must be non-negative")
	ErrNoWorker           = errors.New("selector returned no usable worker")
	ErrTableFrozen        = errors.New("dispatch table is frozen")
	ErrDuplicateName      = errors.New("function name already registered")
	ErrBadArguments       = errors.New("arguments rejected")
)
