//go:build linux

package affinity

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pin binds the calling goroutine's OS thread to one core. The thread stays
// locked for the worker's lifetime.
func pin(core int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}
