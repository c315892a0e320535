// Package bubble implements the PhysicsBubble of spec §4.5/§6: the
// aggregate of vessels currently controlled by the host's physics
// engine, represented in the core as one center-of-mass trajectory plus
// a per-vessel set of mass-bearing Parts. Grounded on
// original_source/ksp_plugin/plugin.hpp's bubble-handling members
// (the pack's original_source doesn't carry a standalone physics_bubble
// header, so the shape below is derived from plugin.hpp's call sites
// and spec §4.5/§8 scenario 4).
package bubble

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/OCAP2/extension/v5/internal/body"
	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/quantities"
	"github.com/OCAP2/extension/v5/internal/trajectory"
)

// Part is one mass-bearing piece of a bubble vessel, already expressed
// in Barycentric by the caller (the Plugin owns the World→Barycentric
// conversion, since it alone knows the sun's current position and the
// planetarium rotation; see spec §4.4/§6).
type Part struct {
	ID   uuid.UUID
	Mass quantities.Mass
	Dof  geometry.DegreesOfFreedom[frames.Barycentric]
}

// NewPart mints a Part with a fresh identity.
func NewPart(mass quantities.Mass, dof geometry.DegreesOfFreedom[frames.Barycentric]) Part {
	return Part{ID: uuid.New(), Mass: mass, Dof: dof}
}

// WorldPart is a Part as the host reports it, still in World — the
// frame the host's own physics engine renders in. Plugin converts each
// WorldPart to a Part (Barycentric) before handing it to the bubble.
type WorldPart struct {
	ID   uuid.UUID
	Mass quantities.Mass
	Dof  geometry.DegreesOfFreedom[frames.World]
}

// snapshot is one of the bubble's current/next generations (spec §4.5:
// "Two snapshots are kept: current ... and next").
type snapshot struct {
	parts map[string][]Part // guid -> parts
}

func newSnapshot() snapshot { return snapshot{parts: map[string][]Part{}} }

func (s snapshot) isEmpty() bool { return len(s.parts) == 0 }

// PhysicsBubble aggregates bubble vessels into one center-of-mass
// trajectory (spec §4.5, GLOSSARY "Physics bubble").
type PhysicsBubble struct {
	current snapshot
	next    snapshot

	centreOfMass *trajectory.Trajectory[frames.Barycentric]
}

// New returns an empty bubble with no center-of-mass trajectory yet —
// one is created the first time Prepare observes a non-empty snapshot.
func New() *PhysicsBubble {
	return &PhysicsBubble{current: newSnapshot(), next: newSnapshot()}
}

// AddVesselToNext enrolls guid's parts into the bubble being assembled
// for the next tick (spec §6: add_vessel_to_next_physics_bubble).
func (b *PhysicsBubble) AddVesselToNext(guid string, parts []Part) {
	if len(parts) == 0 {
		panic("bubble: AddVesselToNext requires at least one part")
	}
	b.next.parts[guid] = parts
}

// Prepare swaps next into current and, if the resulting bubble is
// non-empty, appends the aggregate center of mass at at to the
// center-of-mass trajectory — creating that trajectory on first use
// (spec §4.5 step 2). A fresh, empty next snapshot is started for the
// following tick's host calls.
func (b *PhysicsBubble) Prepare(at quantities.Instant) {
	b.current = b.next
	b.next = newSnapshot()

	if b.current.isEmpty() {
		return
	}
	com := b.aggregateCentreOfMass()
	if b.centreOfMass == nil {
		massless := body.Massless()
		b.centreOfMass = trajectory.New[frames.Barycentric](&massless)
	}
	b.centreOfMass.Append(at, com)
}

// IsEmpty reports whether the current snapshot has any bubble vessels.
func (b *PhysicsBubble) IsEmpty() bool { return b.current.isEmpty() }

// Vessels lists the GUIDs in the current snapshot.
func (b *PhysicsBubble) Vessels() []string {
	out := make([]string, 0, len(b.current.parts))
	for guid := range b.current.parts {
		out = append(out, guid)
	}
	return out
}

// Contains reports whether guid is a bubble vessel this tick.
func (b *PhysicsBubble) Contains(guid string) bool {
	_, ok := b.current.parts[guid]
	return ok
}

// CentreOfMass returns the bubble's center-of-mass trajectory. Requires
// a call to Prepare with a non-empty snapshot to have happened at least
// once.
func (b *PhysicsBubble) CentreOfMass() *trajectory.Trajectory[frames.Barycentric] {
	if b.centreOfMass == nil {
		panic("bubble: CentreOfMass requested before any non-empty Prepare")
	}
	return b.centreOfMass
}

// RelativeOffset returns guid's mass-weighted degrees of freedom minus
// the bubble's aggregate center of mass (spec §4.5 step 3d:
// "dof_in_barycentric = bubble.centre_of_mass.last() + bubble.relative_offset(v)").
func (b *PhysicsBubble) RelativeOffset(guid string) geometry.RelativeDegreesOfFreedom[frames.Barycentric] {
	parts, ok := b.current.parts[guid]
	if !ok {
		panic(fmt.Sprintf("bubble: %s is not a bubble vessel this tick", guid))
	}
	vesselDof := weightedAverage(parts)
	com := b.aggregateCentreOfMass()
	return vesselDof.Minus(com)
}

// DisplacementCorrection is the shift the host must apply to its own
// reported bubble position for it to match the core's integrated center
// of mass (original_source/ksp_plugin/plugin.hpp's
// BubbleDisplacementCorrection): the delta between CentreOfMass's last
// integrated point and the aggregate computed fresh from the current
// snapshot's raw vessel-state-plus-part-offset parts.
func (b *PhysicsBubble) DisplacementCorrection() geometry.Displacement[frames.Barycentric] {
	_, integrated, ok := b.centreOfMass.Last()
	if !ok {
		panic("bubble: DisplacementCorrection requested before any non-empty Prepare")
	}
	naive := b.aggregateCentreOfMass()
	return integrated.Position.Minus(naive.Position)
}

// VelocityCorrection is DisplacementCorrection's velocity counterpart
// (BubbleVelocityCorrection in the same header).
func (b *PhysicsBubble) VelocityCorrection() geometry.Velocity[frames.Barycentric] {
	_, integrated, ok := b.centreOfMass.Last()
	if !ok {
		panic("bubble: VelocityCorrection requested before any non-empty Prepare")
	}
	naive := b.aggregateCentreOfMass()
	return integrated.Velocity.Minus(naive.Velocity)
}

func (b *PhysicsBubble) aggregateCentreOfMass() geometry.DegreesOfFreedom[frames.Barycentric] {
	var all []Part
	for _, parts := range b.current.parts {
		all = append(all, parts...)
	}
	return weightedAverage(all)
}

func weightedAverage(parts []Part) geometry.DegreesOfFreedom[frames.Barycentric] {
	if len(parts) == 0 {
		return geometry.DegreesOfFreedom[frames.Barycentric]{}
	}
	var totalMass float64
	var px, py, pz, vx, vy, vz float64
	for _, p := range parts {
		m := float64(p.Mass)
		x, y, z := p.Dof.Position.XYZ()
		vxp, vyp, vzp := p.Dof.Velocity.XYZ()
		px += m * x
		py += m * y
		pz += m * z
		vx += m * vxp
		vy += m * vyp
		vz += m * vzp
		totalMass += m
	}
	if totalMass == 0 {
		totalMass = 1
	}
	return geometry.DegreesOfFreedom[frames.Barycentric]{
		Position: geometry.NewPoint[frames.Barycentric](px/totalMass, py/totalMass, pz/totalMass),
		Velocity: geometry.NewVelocity[frames.Barycentric](vx/totalMass, vy/totalMass, vz/totalMass),
	}
}
