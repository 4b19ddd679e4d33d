package gate

import (
	"context"
	"fmt"
)

// Acquire blocks until a slot is held by the caller or ctx is done.
func (g *gate) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()

	// Fast path: a free slot and nobody ahead of us
	if g.available > 0 && len(g.waiters) == 0 {
		g.available--
		g.inUse++
		g.checkLocked()
		g.mu.Unlock()
		return nil
	}

	w := &waiter{ready: make(chan struct{})}
	g.waiters = append(g.waiters, w)
	g.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		select {
		case <-w.ready:
			// Handed a slot while being canceled; pass it on.
			g.mu.Unlock()
			g.Release()
		default:
			g.removeWaiterLocked(w)
			g.mu.Unlock()
		}
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free and nobody is queued.
func (g *gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.available > 0 && len(g.waiters) == 0 {
		g.available--
		g.inUse++
		g.checkLocked()
		return true
	}
	return false
}

// Release returns a slot, handing it to the oldest waiter if there is one.
func (g *gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inUse <= 0 {
		panic("gate: released more slots than acquired")
	}

	if len(g.waiters) > 0 {
		w := g.waiters[0]
		g.waiters[0] = nil
		g.waiters = g.waiters[1:]
		// Ownership moves to w; the counts do not change.
		close(w.ready)
		return
	}

	g.inUse--
	g.available++
	g.checkLocked()
}

// Do runs fn while holding a slot.
func (g *gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn(ctx)
}

// Capacity returns the total number of slots.
func (g *gate) Capacity() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.capacity
}

// Available returns the number of free slots.
func (g *gate) Available() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

// InUse returns the number of slots currently held.
func (g *gate) InUse() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inUse
}

// Waiting returns the number of callers queued in Acquire.
func (g *gate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

// checkLocked panics if the slot accounting is broken.
// Must be called with g.mu held.
func (g *gate) checkLocked() {
	if g.available < 0 || g.available+g.inUse != g.capacity {
		panic(fmt.Sprintf("gate: slot accounting violated (available=%d in_use=%d capacity=%d)",
			g.available, g.inUse, g.capacity))
	}
}

// removeWaiterLocked drops w from the queue, keeping the order of the rest.
// Must be called with g.mu held.
func (g *gate) removeWaiterLocked(w *waiter) {
	for i, other := range g.waiters {
		if other == w {
			copy(g.waiters[i:], g.waiters[i+1:])
			g.waiters[len(g.waiters)-1] = nil
			g.waiters = g.waiters[:len(g.waiters)-1]
			return
		}
	}
}
