// Package wavelength holds the single measured value shared between the
// control link and the update gateway.
package wavelength

import "sync"

// Cell is a lock-guarded single slot. Zero means no measurement.
type Cell struct {
	mu    sync.Mutex
	value float64
}

func NewCell() *Cell {
	return &Cell{}
}

// Set overwrites the stored value unconditionally.
func (c *Cell) Set(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
}

// Consume returns the stored value and resets it to zero.
func (c *Cell) Consume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.value
	c.value = 0
	return v
}

// Peek returns the stored value without resetting it.
func (c *Cell) Peek() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}
