// Package mission holds the ambient session state that sits outside
// Plugin itself, grounded on the teacher's own Context: a mutex-guarded
// holder of current session state. Repurposed from (Mission, World)
// wire records to the scheduler's own process-wide latches — the sun
// index, the initializing flag, and the current planetarium rotation —
// so they can be read and swapped independently of Plugin under test,
// the same separation of concerns the teacher keeps between Context
// (session metadata) and the worker/handlers pipeline that drives it.
package mission

import (
	"sync"

	"github.com/OCAP2/extension/v5/internal/quantities"
)

// Context holds the current simulation session's identifying state.
type Context struct {
	mu sync.RWMutex

	sunIndex            int
	initializing        bool
	planetariumRotation quantities.Angle
	currentTime         quantities.Instant
}

// NewContext creates a Context for a simulation starting at t0 with the
// given sun index, initializing latched true until EndInitialization.
func NewContext(t0 quantities.Instant, sunIndex int) *Context {
	return &Context{
		sunIndex:     sunIndex,
		initializing: true,
		currentTime:  t0,
	}
}

// SunIndex returns the celestial index the plugin treats as the sun.
func (c *Context) SunIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sunIndex
}

// IsInitializing reports whether structural celestial inserts are still
// permitted.
func (c *Context) IsInitializing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initializing
}

// EndInitialization latches initializing to false, permanently.
func (c *Context) EndInitialization() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initializing = false
}

// CurrentTime returns the session's current_time.
func (c *Context) CurrentTime() quantities.Instant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTime
}

// PlanetariumRotation returns the session's current planetarium_rotation.
func (c *Context) PlanetariumRotation() quantities.Angle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.planetariumRotation
}

// Advance records the outcome of a completed advance_time call.
func (c *Context) Advance(t quantities.Instant, rotation quantities.Angle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
	c.planetariumRotation = rotation
}
