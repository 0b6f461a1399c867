package engine

import "sync"

// Coalescer collapses a burst of values into the latest one and applies it
// at most once per Flush. Hosts call Push from input callbacks and Flush
// once per animation frame.
type Coalescer[T any] struct {
	mu      sync.Mutex
	pending T
	has     bool
	apply   func(T)
}

// NewCoalescer returns a Coalescer that hands flushed values to apply.
func NewCoalescer[T any](apply func(T)) *Coalescer[T] {
	return &Coalescer[T]{apply: apply}
}

// Push replaces any pending value with v.
func (c *Coalescer[T]) Push(v T) {
	c.mu.Lock()
	c.pending, c.has = v, true
	c.mu.Unlock()
}

// Pending reports whether a value is waiting to be flushed.
func (c *Coalescer[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.has
}

// Flush applies the pending value, if any, and reports whether it did.
// apply runs without the lock held so it may Push again.
func (c *Coalescer[T]) Flush() bool {
	c.mu.Lock()
	v, ok := c.pending, c.has
	var zero T
	c.pending, c.has = zero, false
	c.mu.Unlock()

	if ok {
		c.apply(v)
	}
	return ok
}

// Reset drops the pending value without applying it.
func (c *Coalescer[T]) Reset() {
	c.mu.Lock()
	var zero T
	c.pending, c.has = zero, false
	c.mu.Unlock()
}
