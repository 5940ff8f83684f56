//go:build !linux

package scheduler

import "runtime"

// pinWorker only locks the goroutine to its OS thread; CPU binding is Linux-only.
func pinWorker(id int) error {
	runtime.LockOSThread()
	return nil
}
