package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrUnknownFunction = errors.New("function not dispatchable")
	ErrBadArguments    = errors.New("argument count does not match function")
	ErrNotFound        = errors.New("resource not found")
	ErrNotReady        = errors.New("result not ready")
	ErrShuttingDown    = errors.New("dispatcher is shutting down")
)
