// Package gate provides admission control over a bounded pool of
// extraction workers.
package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInvalidCapacity is returned by New when the requested capacity is not
// a positive number.
var ErrInvalidCapacity = errors.New("gate: capacity must be greater than zero")

// Gate tracks how many concurrent task slots are in use out of a fixed
// capacity. A single Gate is shared by every caller that needs admission
// control over the same resource pool; it must not be copied.
//
// Two admission styles coexist. Admit and CanAdmit form the advisory pair:
// CanAdmit is a throttling hint and Admit is an unconditional increment, so
// two racing callers can jointly overshoot the capacity. TryAdmit and
// Acquire enforce the capacity atomically and cannot over-admit. New code
// should prefer the enforcing pair.
type Gate struct {
	capacity int64
	active   atomic.Int64

	mu   sync.Mutex
	wake chan struct{} // closed and replaced on every Release
}

// New creates a Gate with the given capacity and no active slots.
func New(capacity int) (*Gate, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Gate{
		capacity: int64(capacity),
		wake:     make(chan struct{}),
	}, nil
}

// Capacity returns the maximum number of task slots.
func (g *Gate) Capacity() int { return int(g.capacity) }

// ActiveCount returns the number of slots in use at the moment of the
// call. The value may be stale by the time the caller inspects it.
func (g *Gate) ActiveCount() int { return int(g.active.Load()) }

// CanAdmit reports whether a slot appeared free at the moment of the call.
// It does not reserve anything: a true result is a hint, not a promise.
func (g *Gate) CanAdmit() bool { return g.active.Load() < g.capacity }

// Admit takes a slot unconditionally, even beyond capacity. Callers are
// expected to consult CanAdmit first and to pair every Admit with exactly
// one Release.
func (g *Gate) Admit() { g.active.Add(1) }

// TryAdmit takes a slot only if one is free, as a single atomic step. It
// reports whether the slot was taken.
func (g *Gate) TryAdmit() bool {
	for {
		cur := g.active.Load()
		if cur >= g.capacity {
			return false
		}
		if g.active.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Acquire blocks until a slot is free or ctx is done. On success the caller
// owns one slot and must Release it.
func (g *Gate) Acquire(ctx context.Context) error {
	for {
		if g.TryAdmit() {
			return nil
		}
		wake := g.wakeCh()
		// A Release may have slipped in before the wake channel was
		// captured; retry once before parking.
		if g.TryAdmit() {
			return nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Release frees one slot. It must be called exactly once for every
// successful Admit, TryAdmit, or Acquire. Releasing a slot that was never
// taken panics.
func (g *Gate) Release() {
	if g.active.Add(-1) < 0 {
		panic("gate: Release called more times than Admit")
	}
	g.mu.Lock()
	close(g.wake)
	g.wake = make(chan struct{})
	g.mu.Unlock()
}

// AwaitDrain blocks until no slots are in use or ctx is done. It returns
// nil only after a moment at which ActiveCount was zero. Waiters are woken
// by Release rather than polling, so drain detection is prompt; a leaked
// slot still holds the wait open until ctx expires.
func (g *Gate) AwaitDrain(ctx context.Context) error {
	for {
		if g.active.Load() == 0 {
			return nil
		}
		wake := g.wakeCh()
		if g.active.Load() == 0 {
			return nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Do acquires a slot, runs f, and releases the slot on every exit path
// including a panic in f.
func (g *Gate) Do(ctx context.Context, f func()) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	f()
	return nil
}

func (g *Gate) wakeCh() chan struct{} {
	g.mu.Lock()
	ch := g.wake
	g.mu.Unlock()
	return ch
}
