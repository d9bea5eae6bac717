package storage

import "sync/atomic"

// Guard is the busy flag serializing all access to the schedule files.
type Guard struct {
	busy atomic.Bool
}

// TryAcquire takes the guard. It returns false immediately if it is held.
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the guard.
func (g *Guard) Release() {
	g.busy.Store(false)
}

// Busy reports whether the guard is held.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}
