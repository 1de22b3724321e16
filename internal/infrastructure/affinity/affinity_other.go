//go:build !linux

package affinity

// No affinity control on this platform; workers run wherever the scheduler
// puts them.
func pin(int) error { return nil }
