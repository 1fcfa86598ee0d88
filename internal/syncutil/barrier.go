package syncutil

import (
	"errors"
	"sync"
)

// ErrBrokenBarrier is returned by Wait when the barrier has been aborted,
// either before the call or while the caller was blocked in it.
var ErrBrokenBarrier = errors.New("syncutil: broken barrier")

// Barrier is a reusable rendezvous point for a fixed number of goroutines.
//
// Each round, calls to Wait block until the configured number of parties
// have arrived; all of them are then released together and the barrier
// resets for the next round. Abort breaks the barrier permanently: every
// goroutine currently blocked in Wait, and every later caller, receives
// ErrBrokenBarrier instead of blocking. This mirrors the abort semantics
// needed to fail fast when one participant dies and its peers would
// otherwise wait forever.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	count   int
	gen     uint64
	broken  bool
}

// NewBarrier creates a barrier for the given number of parties.
// parties must be at least 1.
func NewBarrier(parties int) *Barrier {
	if parties < 1 {
		panic("syncutil: barrier requires at least one party")
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Parties returns the number of goroutines the barrier synchronizes.
func (b *Barrier) Parties() int { return b.parties }

// Wait blocks until all parties have called Wait for the current round,
// then releases them together. It returns ErrBrokenBarrier if the barrier
// was aborted before or during the wait.
func (b *Barrier) Wait() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken {
		return ErrBrokenBarrier
	}

	gen := b.gen
	b.count++
	if b.count == b.parties {
		// Last arrival releases the round and resets for reuse.
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		return nil
	}

	for gen == b.gen && !b.broken {
		b.cond.Wait()
	}

	if b.broken {
		return ErrBrokenBarrier
	}

	return nil
}

// Abort breaks the barrier. All pending and future Wait calls return
// ErrBrokenBarrier. Abort is idempotent and safe to call from any goroutine.
func (b *Barrier) Abort() {
	b.mu.Lock()
	b.broken = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Broken reports whether the barrier has been aborted.
func (b *Barrier) Broken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.broken
}
