// Package vessel defines the Plugin's two owned entity kinds: Celestial
// (a massive body with a permanent history and a catch-up prolongation)
// and Vessel (a massless body that may be unsynchronized, i.e. lack a
// history, until its first history step). Grounded on
// original_source/ksp_plugin/celestial.hpp; Vessel mirrors the same
// history/prolongation shape described there for the vessel side, which
// the retrieved original_source pack does not carry a header for, so it
// is derived from Celestial's contract plus the scheduler rules of
// spec §4.5.
package vessel

import (
	"fmt"

	"github.com/OCAP2/extension/v5/internal/body"
	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/quantities"
	"github.com/OCAP2/extension/v5/internal/trajectory"
)

// Celestial is a massive body with a permanent history and a
// prolongation fork that catches it up to current_time between history
// steps (spec §4.5, original_source/ksp_plugin/celestial.hpp).
type Celestial struct {
	Index  int
	Body   *body.Body
	Parent *Celestial

	history      *trajectory.Trajectory[frames.Barycentric]
	prolongation *trajectory.Trajectory[frames.Barycentric]
}

// NewCelestial constructs a Celestial with no history yet; it becomes
// initialized only once CreateHistoryAndForkProlongation is called.
func NewCelestial(index int, b *body.Body, parent *Celestial) *Celestial {
	return &Celestial{Index: index, Body: b, Parent: parent}
}

// IsInitialized reports whether history() has been created, mirroring
// Celestial::is_initialized() in the original.
func (c *Celestial) IsInitialized() bool { return c.history != nil }

// HasParent reports whether this celestial orbits another (false only
// for the sun).
func (c *Celestial) HasParent() bool { return c.Parent != nil }

// History returns the permanent history trajectory. Requires
// IsInitialized().
func (c *Celestial) History() *trajectory.Trajectory[frames.Barycentric] {
	if c.history == nil {
		panic("vessel: Celestial.History called before initialization")
	}
	return c.history
}

// Prolongation returns the catch-up fork. Requires IsInitialized().
func (c *Celestial) Prolongation() *trajectory.Trajectory[frames.Barycentric] {
	if c.prolongation == nil {
		panic("vessel: Celestial.Prolongation called before initialization")
	}
	return c.prolongation
}

// CreateHistoryAndForkProlongation creates history_, appends (time, dof),
// and forks prolongation_ at time — the celestial is initialized after
// this call (original_source/ksp_plugin/celestial.hpp).
func (c *Celestial) CreateHistoryAndForkProlongation(at quantities.Instant, dof geometry.DegreesOfFreedom[frames.Barycentric]) {
	if c.history != nil {
		panic(fmt.Sprintf("vessel: Celestial %d already initialized", c.Index))
	}
	c.history = trajectory.New[frames.Barycentric](c.Body)
	c.history.Append(at, dof)
	c.prolongation = c.history.Fork(at)
}

// ResetProlongation deletes the current prolongation and forks a new one
// at time, used at the end of every history step (spec §4.5 step 3h).
func (c *Celestial) ResetProlongation(at quantities.Instant) {
	c.history.DeleteFork(c.prolongation)
	c.prolongation = c.history.Fork(at)
}

// Vessel is a massless body that is either unsynchronized (no history
// yet, only a prolongation) or synchronized (both history and
// prolongation present), per spec §4.5's GLOSSARY.
type Vessel struct {
	GUID        string
	ParentIndex int
	Body        *body.Body

	history      *trajectory.Trajectory[frames.Barycentric]
	prolongation *trajectory.Trajectory[frames.Barycentric]
}

// NewUnsynchronized constructs a vessel with only a prolongation seeded
// at (at, dof) — the state used by insert_or_keep_vessel +
// set_vessel_state_offset before the vessel's first history step.
func NewUnsynchronized(guid string, parentIndex int, at quantities.Instant, dof geometry.DegreesOfFreedom[frames.Barycentric]) *Vessel {
	b := body.Massless()
	v := &Vessel{GUID: guid, ParentIndex: parentIndex, Body: &b}
	v.prolongation = trajectory.New[frames.Barycentric](&b)
	v.prolongation.Append(at, dof)
	return v
}

// IsSynchronized reports whether the vessel has a history, per spec
// §4.5 invariant 2 ("v ∈ unsynchronized_vessels ⇔ v has no history").
func (v *Vessel) IsSynchronized() bool { return v.history != nil }

// History returns the vessel's history. Requires IsSynchronized().
func (v *Vessel) History() *trajectory.Trajectory[frames.Barycentric] {
	if v.history == nil {
		panic(fmt.Sprintf("vessel: %s.History called while unsynchronized", v.GUID))
	}
	return v.history
}

// Prolongation returns the vessel's prolongation, always present.
func (v *Vessel) Prolongation() *trajectory.Trajectory[frames.Barycentric] {
	return v.prolongation
}

// CreateHistory creates history_ from the vessel's current prolongation
// tail and forks a fresh prolongation at that instant, transitioning the
// vessel from unsynchronized to synchronized (spec §4.5 step 3e).
func (v *Vessel) CreateHistory(at quantities.Instant, dof geometry.DegreesOfFreedom[frames.Barycentric]) {
	if v.history != nil {
		panic(fmt.Sprintf("vessel: %s already has a history", v.GUID))
	}
	v.history = trajectory.New[frames.Barycentric](v.Body)
	v.history.Append(at, dof)
	v.prolongation = v.history.Fork(at)
}

// AppendToHistory appends to an already-synchronized vessel's history
// (spec §4.5 steps 3d/3f).
func (v *Vessel) AppendToHistory(at quantities.Instant, dof geometry.DegreesOfFreedom[frames.Barycentric]) {
	v.History().Append(at, dof)
}

// ResetProlongation deletes the current prolongation and forks a new one
// at time (spec §4.5 step 3h). Requires IsSynchronized().
func (v *Vessel) ResetProlongation(at quantities.Instant) {
	old := v.prolongation
	v.prolongation = v.History().Fork(at)
	v.History().DeleteFork(old)
}
