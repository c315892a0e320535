// Package plugin implements the scheduler core of spec §4.5: the
// "Plugin" that owns every Celestial and Vessel, coordinates the
// constant-step history track with the adaptive-target-time prolongation
// track, and reconciles both with the PhysicsBubble on each
// AdvanceTime call. Grounded throughout on
// original_source/ksp_plugin/plugin.hpp/.cpp, whose ordered command
// contract (New, InsertCelestial, EndInitialization,
// InsertOrKeepVessel, SetVesselStateOffset, AddVesselToNextPhysicsBubble,
// AdvanceTime, queries) is reproduced verbatim in spec §6.
//
// The core never spawns a goroutine and never blocks: every method here
// runs to completion on the caller's goroutine, per spec §5.
package plugin

import (
	"fmt"

	"github.com/OCAP2/extension/v5/internal/body"
	"github.com/OCAP2/extension/v5/internal/bubble"
	"github.com/OCAP2/extension/v5/internal/definitions"
	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/nbody"
	"github.com/OCAP2/extension/v5/internal/quantities"
	"github.com/OCAP2/extension/v5/internal/render"
	"github.com/OCAP2/extension/v5/internal/trajectory"
	"github.com/OCAP2/extension/v5/internal/transforms"
	"github.com/OCAP2/extension/v5/internal/vessel"
)

// Plugin owns every Celestial and Vessel and orchestrates the history,
// prolongation, and bubble tracks (spec §4.5's State list).
type Plugin struct {
	vessels    map[string]*vessel.Vessel
	celestials map[int]*vessel.Celestial
	sunIndex   int

	unsynchronized map[string]bool
	dirty          map[string]bool
	kept           map[string]bool

	bubble *bubble.PhysicsBubble

	currentTime         quantities.Instant
	planetariumRotation quantities.Angle

	deltaT quantities.Time

	historyScheme      definitions.Scheme
	prolongationScheme definitions.Scheme

	initializing bool
}

// New constructs an initializing Plugin with only the sun inserted, per
// spec §6 command 1 / original_source/ksp_plugin/plugin.hpp's
// constructor.
func New(initialTime quantities.Instant, sunIndex int, sunMu quantities.GravitationalParameter, planetariumRotation quantities.Angle) *Plugin {
	p := &Plugin{
		vessels:            map[string]*vessel.Vessel{},
		celestials:         map[int]*vessel.Celestial{},
		sunIndex:           sunIndex,
		unsynchronized:     map[string]bool{},
		dirty:              map[string]bool{},
		kept:               map[string]bool{},
		bubble:             bubble.New(),
		currentTime:        initialTime,
		planetariumRotation: planetariumRotation,
		deltaT:             definitions.DefaultHistoryStep,
		historyScheme:      definitions.McLachlanAtela(),
		prolongationScheme: definitions.McLachlanAtela(),
		initializing:       true,
	}
	sunBody := body.Massive(sunMu)
	sun := vessel.NewCelestial(sunIndex, &sunBody, nil)
	sun.CreateHistoryAndForkProlongation(initialTime, geometry.DegreesOfFreedom[frames.Barycentric]{})
	p.celestials[sunIndex] = sun
	return p
}

// SetSchemes overrides the history/prolongation integration schemes;
// Design Notes treats them as "independently configurable", defaulting
// both to the same scheme in New.
func (p *Plugin) SetSchemes(history, prolongation definitions.Scheme) {
	p.historyScheme = history
	p.prolongationScheme = prolongation
}

// InsertCelestial inserts a new celestial, positioned by from_parent
// degrees of freedom in AliceSun, relative to an already-inserted
// parent. Must only be called while initializing (spec §6 command 2).
func (p *Plugin) InsertCelestial(index int, mu quantities.GravitationalParameter, parentIndex int, fromParentAliceSun geometry.RelativeDegreesOfFreedom[frames.AliceSun]) {
	if !p.initializing {
		p.fatal("InsertCelestial called after initialization")
	}
	if _, exists := p.celestials[index]; exists {
		p.fatal(fmt.Sprintf("celestial %d already inserted", index))
	}
	parent, ok := p.celestials[parentIndex]
	if !ok {
		p.fatal(fmt.Sprintf("parent celestial %d not found", parentIndex))
	}
	relBary := p.aliceSunRelativeToBarycentric(fromParentAliceSun)
	_, parentDof, _ := parent.History().Last()
	dof := parentDof.Plus(relBary)

	b := body.Massive(mu)
	c := vessel.NewCelestial(index, &b, parent)
	c.CreateHistoryAndForkProlongation(p.currentTime, dof)
	p.celestials[index] = c
}

// EndInitialization ends initialization (spec §6 command 3): the latch
// settable once from true to false.
func (p *Plugin) EndInitialization() {
	if !p.initializing {
		p.fatal("EndInitialization called twice")
	}
	p.initializing = false
}

// UpdateCelestialHierarchy re-hangs a celestial's parent after
// initialization, the one structural change still permitted post-latch.
func (p *Plugin) UpdateCelestialHierarchy(index, parentIndex int) {
	if p.initializing {
		p.fatal("UpdateCelestialHierarchy called while initializing")
	}
	c, ok := p.celestials[index]
	if !ok {
		p.fatal(fmt.Sprintf("celestial %d not found", index))
	}
	parent, ok := p.celestials[parentIndex]
	if !ok {
		p.fatal(fmt.Sprintf("parent celestial %d not found", parentIndex))
	}
	c.Parent = parent
}

// InsertOrKeepVessel inserts vessel_guid if unknown and marks it kept
// for this tick's CleanUpVessels. Returns true the first time a vessel
// is inserted, signalling the caller must also call
// SetVesselStateOffset before AdvanceTime (spec §6 command 4).
func (p *Plugin) InsertOrKeepVessel(guid string, parentIndex int) bool {
	if p.initializing {
		p.fatal("InsertOrKeepVessel called while initializing")
	}
	if _, ok := p.celestials[parentIndex]; !ok {
		p.fatal(fmt.Sprintf("parent celestial %d not found", parentIndex))
	}
	p.kept[guid] = true
	if v, ok := p.vessels[guid]; ok {
		v.ParentIndex = parentIndex
		return false
	}
	p.registerNewVessel(guid, parentIndex)
	return true
}

// SetVesselStateOffset sets the newly inserted vessel's position and
// velocity relative to its parent, in AliceSun, at current time. Must
// be called exactly once per newly inserted vessel (spec §6).
func (p *Plugin) SetVesselStateOffset(guid string, fromParentAliceSun geometry.RelativeDegreesOfFreedom[frames.AliceSun]) {
	existing, known := p.vessels[guid]
	if known && existing.Prolongation() != nil {
		if _, _, ok := existing.Prolongation().Last(); ok {
			p.fatal(fmt.Sprintf("SetVesselStateOffset called twice for %s", guid))
		}
	}
	if !known {
		p.fatal(fmt.Sprintf("SetVesselStateOffset called for unknown vessel %s", guid))
	}
	parent, ok := p.celestials[existing.ParentIndex]
	if !ok {
		p.fatal(fmt.Sprintf("parent celestial %d not found", existing.ParentIndex))
	}
	relBary := p.aliceSunRelativeToBarycentric(fromParentAliceSun)
	_, parentDof, _ := parent.Prolongation().Last()
	dof := parentDof.Plus(relBary)
	newVessel := vessel.NewUnsynchronized(guid, existing.ParentIndex, p.currentTime, dof)
	p.vessels[guid] = newVessel
	p.unsynchronized[guid] = true
}

// registerNewVessel is called internally by InsertOrKeepVessel's "new vessel"
// path before the host supplies SetVesselStateOffset — registers the
// placeholder entry so SetVesselStateOffset has a ParentIndex to read.
func (p *Plugin) registerNewVessel(guid string, parentIndex int) {
	if _, ok := p.vessels[guid]; ok {
		return
	}
	placeholder := &vessel.Vessel{GUID: guid, ParentIndex: parentIndex}
	p.vessels[guid] = placeholder
}

// AddVesselToNextPhysicsBubble enrolls guid in the bubble being
// assembled for the next AdvanceTime call, converting parts from World
// to Barycentric via worldToBarycentric and marking the vessel dirty
// (spec §6). sunWorldPosition is the host's current rendering of the
// sun, the only information needed to place World-frame parts onto the
// Barycentric origin.
func (p *Plugin) AddVesselToNextPhysicsBubble(guid string, worldParts []bubble.WorldPart, sunWorldPosition geometry.Point[frames.World]) {
	if _, ok := p.vessels[guid]; !ok {
		p.fatal(fmt.Sprintf("AddVesselToNextPhysicsBubble called for unknown vessel %s", guid))
	}
	parts := make([]bubble.Part, len(worldParts))
	for i, wp := range worldParts {
		parts[i] = bubble.Part{ID: wp.ID, Mass: wp.Mass, Dof: p.worldToBarycentric(wp.Dof, sunWorldPosition)}
	}
	p.bubble.AddVesselToNext(guid, parts)
	p.dirty[guid] = true
}

// worldToBarycentric converts a single degree-of-freedom pair from
// World to Barycentric: undo the planetarium rotation around the sun,
// then translate by the sun's current Barycentric position.
func (p *Plugin) worldToBarycentric(dof geometry.DegreesOfFreedom[frames.World], sunWorldPosition geometry.Point[frames.World]) geometry.DegreesOfFreedom[frames.Barycentric] {
	sun := p.celestials[p.sunIndex]
	_, sunDof, ok := sun.Prolongation().Last()
	if !ok {
		p.fatal("sun has no prolongation")
	}

	toBarycentric := geometry.AboutZ[frames.World, frames.Barycentric](-float64(p.planetariumRotation))
	relWorld := dof.Position.Minus(sunWorldPosition)
	relBary := toBarycentric.Apply(relWorld)
	velBary := toBarycentric.ApplyVelocity(dof.Velocity)

	return geometry.DegreesOfFreedom[frames.Barycentric]{
		Position: sunDof.Position.Plus(relBary),
		Velocity: sunDof.Velocity.Plus(velBary),
	}
}

// PhysicsBubbleIsEmpty reports bubble.IsEmpty() (spec §6).
func (p *Plugin) PhysicsBubbleIsEmpty() bool { return p.bubble.IsEmpty() }

// historyTime is sun.history.last().time (spec §4.5 "Derived").
func (p *Plugin) historyTime() quantities.Instant {
	sun := p.celestials[p.sunIndex]
	t, _, ok := sun.History().Last()
	if !ok {
		p.fatal("sun has no history")
	}
	return t
}

// AdvanceTime implements spec §4.5's advance_time algorithm verbatim.
func (p *Plugin) AdvanceTime(target quantities.Instant, planetariumRotation quantities.Angle) {
	if p.initializing {
		p.fatal("AdvanceTime called while initializing")
	}
	if target <= p.currentTime {
		p.fatal("AdvanceTime called with a non-increasing target time")
	}

	p.cleanUpVessels()
	p.bubble.Prepare(p.currentTime)

	if p.historyTime().Plus(p.deltaT) <= target {
		p.advanceHistory(target)
	}
	p.advanceProlongations(target)

	if !p.bubble.IsEmpty() {
		comAt, comDof, ok := p.bubble.CentreOfMass().Last()
		if ok && comAt == target {
			for _, guid := range p.bubble.Vessels() {
				offset := p.bubble.RelativeOffset(guid)
				dof := comDof.Plus(offset)
				p.vessels[guid].Prolongation().Append(target, dof)
			}
		}
	}

	p.currentTime = target
	p.planetariumRotation = planetariumRotation
}

// cleanUpVessels removes every vessel not in kept_vessels and clears
// kept_vessels (spec §4.5 step 1).
func (p *Plugin) cleanUpVessels() {
	for guid := range p.vessels {
		if !p.kept[guid] {
			delete(p.vessels, guid)
			delete(p.unsynchronized, guid)
			delete(p.dirty, guid)
		}
	}
	p.kept = map[string]bool{}
}

// advanceHistory implements spec §4.5 step 3 in full: the constant-step
// history integration, synchronization of unsynchronized/dirty vessels,
// bubble handover, and prolongation reset.
func (p *Plugin) advanceHistory(target quantities.Instant) {
	historySystem := nbody.NewSystem[frames.Barycentric]()
	for _, c := range p.celestials {
		historySystem.Add(c.History())
	}
	for guid, v := range p.vessels {
		if v.IsSynchronized() && !p.bubble.Contains(guid) && !p.dirty[guid] {
			historySystem.Add(v.History())
		}
	}
	historySystem.Integrate(p.historyScheme, target, p.deltaT, 0, false)

	newHistoryTime := p.historyTime()

	prolongationSystem := nbody.NewSystem[frames.Barycentric]()
	for _, c := range p.celestials {
		prolongationSystem.Add(c.Prolongation())
	}
	for guid, v := range p.vessels {
		if p.bubble.Contains(guid) {
			continue
		}
		if p.unsynchronized[guid] || (v.IsSynchronized() && p.dirty[guid]) {
			prolongationSystem.Add(v.Prolongation())
		}
	}
	if !p.bubble.IsEmpty() {
		prolongationSystem.Add(p.bubble.CentreOfMass())
	}
	prolongationSystem.Integrate(p.prolongationScheme, newHistoryTime, p.deltaT, 0, true)

	for _, guid := range p.bubble.Vessels() {
		v := p.vessels[guid]
		comAt, comDof, ok := p.bubble.CentreOfMass().Last()
		if !ok || comAt != newHistoryTime {
			continue
		}
		offset := p.bubble.RelativeOffset(guid)
		dof := comDof.Plus(offset)
		if v.IsSynchronized() {
			v.AppendToHistory(newHistoryTime, dof)
		} else {
			v.CreateHistory(newHistoryTime, dof)
			delete(p.unsynchronized, guid)
		}
	}

	for guid := range p.unsynchronized {
		if p.bubble.Contains(guid) {
			continue
		}
		v := p.vessels[guid]
		_, dof, ok := v.Prolongation().Last()
		if !ok {
			continue
		}
		v.CreateHistory(newHistoryTime, dof)
		delete(p.unsynchronized, guid)
		delete(p.dirty, guid)
	}

	for guid := range p.dirty {
		if p.bubble.Contains(guid) {
			continue
		}
		v, ok := p.vessels[guid]
		if !ok || !v.IsSynchronized() {
			continue
		}
		_, dof, ok := v.Prolongation().Last()
		if !ok {
			continue
		}
		v.AppendToHistory(newHistoryTime, dof)
	}

	p.unsynchronized = map[string]bool{}
	p.dirty = map[string]bool{}

	for _, c := range p.celestials {
		c.ResetProlongation(newHistoryTime)
	}
	for _, v := range p.vessels {
		if v.IsSynchronized() {
			v.ResetProlongation(newHistoryTime)
		}
	}
}

// advanceProlongations implements spec §4.5 step 4: catch every
// prolongation (and the bubble center of mass, if any) up to target,
// exactly.
func (p *Plugin) advanceProlongations(target quantities.Instant) {
	sys := nbody.NewSystem[frames.Barycentric]()
	for _, c := range p.celestials {
		sys.Add(c.Prolongation())
	}
	for guid, v := range p.vessels {
		if p.bubble.Contains(guid) {
			continue
		}
		sys.Add(v.Prolongation())
	}
	if !p.bubble.IsEmpty() {
		sys.Add(p.bubble.CentreOfMass())
	}
	sys.Integrate(p.prolongationScheme, target, p.deltaT, 0, true)
}

// VesselFromParent returns the vessel's displacement/velocity relative
// to its parent at current time, in AliceSun (spec §6 query).
func (p *Plugin) VesselFromParent(guid string) geometry.RelativeDegreesOfFreedom[frames.AliceSun] {
	v, ok := p.vessels[guid]
	if !ok {
		p.fatal(fmt.Sprintf("VesselFromParent called for unknown vessel %s", guid))
	}
	parent, ok := p.celestials[v.ParentIndex]
	if !ok {
		p.fatal(fmt.Sprintf("parent celestial %d not found", v.ParentIndex))
	}
	_, vesselDof, _ := v.Prolongation().Last()
	_, parentDof, _ := parent.Prolongation().Last()
	relBary := vesselDof.Minus(parentDof)
	return p.barycentricRelativeToAliceSun(relBary)
}

// CelestialFromParent returns a non-sun celestial's offset from its
// parent at current time, in AliceSun (spec §6 query).
func (p *Plugin) CelestialFromParent(index int) geometry.RelativeDegreesOfFreedom[frames.AliceSun] {
	c, ok := p.celestials[index]
	if !ok || !c.HasParent() {
		p.fatal(fmt.Sprintf("CelestialFromParent called for unknown or sun celestial %d", index))
	}
	_, dof, _ := c.Prolongation().Last()
	_, parentDof, _ := c.Parent.Prolongation().Last()
	return p.barycentricRelativeToAliceSun(dof.Minus(parentDof))
}

// RenderedVesselTrajectory implements spec §4.6's query: the vessel's
// history, rendered relative to the sun and mapped into World via
// sunWorldPosition, the host's current placement of the sun (spec §6).
// Unsynchronized vessels render as an empty Trajectory.
func (p *Plugin) RenderedVesselTrajectory(guid string, sunWorldPosition geometry.Point[frames.World]) render.Trajectory {
	v, ok := p.vessels[guid]
	if !ok {
		p.fatal(fmt.Sprintf("RenderedVesselTrajectory called for unknown vessel %s", guid))
	}
	sun := p.celestials[p.sunIndex]
	_, sunDof, ok := sun.Prolongation().Last()
	if !ok {
		p.fatal("sun has no prolongation")
	}

	sunHistory := func() *trajectory.Trajectory[frames.Barycentric] { return sun.History() }
	tf := transforms.BodyCentredNonRotating[frames.Barycentric, frames.Rendering, frames.Barycentric](
		sunHistory,
		sunHistory,
		func(d geometry.DegreesOfFreedom[frames.Barycentric]) geometry.DegreesOfFreedom[frames.Rendering] {
			x, y, z := d.Position.XYZ()
			vx, vy, vz := d.Velocity.XYZ()
			return geometry.DegreesOfFreedom[frames.Rendering]{
				Position: geometry.NewPoint[frames.Rendering](x, y, z),
				Velocity: geometry.NewVelocity[frames.Rendering](vx, vy, vz),
			}
		},
		func(d geometry.DegreesOfFreedom[frames.Rendering]) geometry.DegreesOfFreedom[frames.Barycentric] {
			x, y, z := d.Position.XYZ()
			vx, vy, vz := d.Velocity.XYZ()
			return geometry.DegreesOfFreedom[frames.Barycentric]{
				Position: geometry.NewPoint[frames.Barycentric](x, y, z),
				Velocity: geometry.NewVelocity[frames.Barycentric](vx, vy, vz),
			}
		},
	)

	return render.VesselTrajectory(v, tf, sunDof.Position, sunWorldPosition, p.planetariumRotation)
}

// CurrentTime exposes current_time for persistence/telemetry callers.
func (p *Plugin) CurrentTime() quantities.Instant { return p.currentTime }

// DeltaT exposes the history/prolongation integration step, for callers
// announcing a session's cadence (e.g. a live trajectory stream) without
// duplicating definitions.DefaultHistoryStep themselves.
func (p *Plugin) DeltaT() quantities.Time { return p.deltaT }

// IsInitializing exposes the initializing latch.
func (p *Plugin) IsInitializing() bool { return p.initializing }

// VesselCount exposes the number of vessels currently tracked, for
// telemetry callers that have no business walking p.vessels directly.
func (p *Plugin) VesselCount() int { return len(p.vessels) }

// CelestialCount exposes the number of celestials currently tracked,
// for telemetry callers.
func (p *Plugin) CelestialCount() int { return len(p.celestials) }

// BubbleVesselCount exposes the number of vessels in the current
// PhysicsBubble, for telemetry callers.
func (p *Plugin) BubbleVesselCount() int { return len(p.bubble.Vessels()) }

// BubbleDisplacementCorrection is the World-frame shift the host should
// apply to its own bubble position to match the core's integrated center
// of mass (original_source/ksp_plugin/plugin.hpp's
// BubbleDisplacementCorrection): PhysicsBubble.DisplacementCorrection,
// rotated back out of Barycentric by the planetarium rotation. Unlike
// worldToBarycentric this needs no sun position, since a displacement is
// translation-invariant.
func (p *Plugin) BubbleDisplacementCorrection() geometry.Displacement[frames.World] {
	toBarycentric := geometry.AboutZ[frames.World, frames.Barycentric](-float64(p.planetariumRotation))
	return toBarycentric.Inverse().Apply(p.bubble.DisplacementCorrection())
}

// BubbleVelocityCorrection is BubbleDisplacementCorrection's velocity
// counterpart (BubbleVelocityCorrection in the same header).
func (p *Plugin) BubbleVelocityCorrection() geometry.Velocity[frames.World] {
	toBarycentric := geometry.AboutZ[frames.World, frames.Barycentric](-float64(p.planetariumRotation))
	return toBarycentric.Inverse().ApplyVelocity(p.bubble.VelocityCorrection())
}

// HasVessel reports whether guid is a known vessel, for callers (e.g. a
// debug query surface) that need to check existence without triggering
// the fatal panic VesselFromParent/RenderedVesselTrajectory raise for
// an unknown one.
func (p *Plugin) HasVessel(guid string) bool {
	_, ok := p.vessels[guid]
	return ok
}

// HasCelestial reports whether index is a known celestial.
func (p *Plugin) HasCelestial(index int) bool {
	_, ok := p.celestials[index]
	return ok
}

// aliceSunRelativeToBarycentric converts AliceSun → Barycentric at the
// current planetarium rotation (spec §6: "apply the inverse y↔z
// permutation, then apply the inverse of the current planetarium
// rotation").
func (p *Plugin) aliceSunRelativeToBarycentric(rel geometry.RelativeDegreesOfFreedom[frames.AliceSun]) geometry.RelativeDegreesOfFreedom[frames.Barycentric] {
	toWorldSun := geometry.AliceYZ[frames.AliceSun, frames.WorldSun]()
	toBarycentric := geometry.AboutZ[frames.WorldSun, frames.Barycentric](-float64(p.planetariumRotation))
	d := toWorldSun.Apply(rel.Displacement)
	v := toWorldSun.ApplyVelocity(rel.Velocity)
	return geometry.RelativeDegreesOfFreedom[frames.Barycentric]{
		Displacement: toBarycentric.Apply(d),
		Velocity:     toBarycentric.ApplyVelocity(v),
	}
}

// barycentricRelativeToAliceSun is the inverse conversion, used when
// reporting query results back across the boundary.
func (p *Plugin) barycentricRelativeToAliceSun(rel geometry.RelativeDegreesOfFreedom[frames.Barycentric]) geometry.RelativeDegreesOfFreedom[frames.AliceSun] {
	toWorldSun := geometry.AboutZ[frames.Barycentric, frames.WorldSun](float64(p.planetariumRotation))
	toAliceSun := geometry.AliceYZ[frames.WorldSun, frames.AliceSun]()
	d := toWorldSun.Apply(rel.Displacement)
	v := toWorldSun.ApplyVelocity(rel.Velocity)
	return geometry.RelativeDegreesOfFreedom[frames.AliceSun]{
		Displacement: toAliceSun.Apply(d),
		Velocity:     toAliceSun.ApplyVelocity(v),
	}
}

// fatal reports a programmer error via panic, per spec §7's taxonomy:
// these are unreachable in correct callers and get no recovery path in
// the core. The host-boundary package (pkg/pluginabi) is where a panic
// like this is finally recovered and turned into a host-visible fault.
func (p *Plugin) fatal(msg string) {
	panic(fmt.Sprintf("plugin: %s", msg))
}
