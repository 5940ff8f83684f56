//go:build linux

package scheduler

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinWorker locks the calling goroutine to its OS thread and binds that
// thread to CPU id modulo the CPU count. The thread stays locked for the
// rest of the worker's life.
func pinWorker(id int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(id % runtime.NumCPU())
	return unix.SchedSetaffinity(0, &set)
}
