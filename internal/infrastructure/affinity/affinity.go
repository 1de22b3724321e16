// Package affinity provides optional CPU placement for the recorder's worker
// goroutines. Placement is a performance hint only: a failed or missing pin
// degrades throughput, never correctness.
package affinity

import (
	"runtime"
	"sync"
)

// Placement is applied by a worker from inside its own goroutine, before it
// starts consuming.
type Placement interface {
	Apply(worker string) error
}

type noop struct{}

func (noop) Apply(string) error { return nil }

// None ignores placement entirely.
func None() Placement { return noop{} }

// RoundRobin hands each worker that applies it a distinct CPU core, wrapping
// around when cores run out. Fewer than three cores means the workers contend
// with the ingestion thread.
type RoundRobin struct {
	mu   sync.Mutex
	next int
}

func NewRoundRobin() *RoundRobin { return &RoundRobin{} }

func (r *RoundRobin) Apply(worker string) error {
	r.mu.Lock()
	core := r.next % runtime.NumCPU()
	r.next++
	r.mu.Unlock()
	return pin(core)
}
