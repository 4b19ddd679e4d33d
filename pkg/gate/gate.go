package gate

import (
	"context"
	"sync"

	"github.com/vnykmshr/imgflow/pkg/common/validation"
)

// Gate bounds how many operations may hold a slot at the same time.
// Slots are granted to blocked callers in strict arrival order.
type Gate interface {
	// Acquire blocks until a slot is held by the caller or ctx is done.
	// On error no slot is held.
	Acquire(ctx context.Context) error

	// TryAcquire takes a slot only if one is free and nobody is queued.
	// This method does not block.
	TryAcquire() bool

	// Release returns a slot. If callers are queued the slot passes
	// directly to the oldest one.
	// It panics if more slots are released than were acquired.
	Release()

	// Do runs fn while holding a slot. The slot is released on every exit
	// path of fn, including panics.
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// Capacity returns the total number of slots.
	Capacity() int

	// Available returns the number of free slots.
	Available() int

	// InUse returns the number of slots currently held.
	InUse() int

	// Waiting returns the number of callers queued in Acquire.
	Waiting() int
}

// Config holds configuration options for creating a new Gate.
type Config struct {
	// Capacity is the total number of slots. All of them are free at creation.
	Capacity int
}

// gate implements Gate with a mutex guarding the slot counts and the
// FIFO waiter queue.
type gate struct {
	mu        sync.Mutex
	capacity  int
	available int
	inUse     int
	waiters   []*waiter
}

// waiter is a goroutine blocked in Acquire.
type waiter struct {
	ready chan struct{} // closed when a slot has been handed over
}

// NewSafe creates a gate with capacity slots, returning an error for a
// non-positive capacity.
func NewSafe(capacity int) (Gate, error) {
	return NewWithConfigSafe(Config{Capacity: capacity})
}

// NewWithConfigSafe creates a gate from config, returning an error instead of panicking.
func NewWithConfigSafe(config Config) (Gate, error) {
	if err := validation.ValidatePositive("gate", "capacity", config.Capacity); err != nil {
		return nil, err
	}

	return &gate{
		capacity:  config.Capacity,
		available: config.Capacity,
	}, nil
}

// New creates a gate with capacity slots. It panics on a non-positive capacity.
func New(capacity int) Gate {
	g, err := NewSafe(capacity)
	if err != nil {
		panic(err)
	}
	return g
}
