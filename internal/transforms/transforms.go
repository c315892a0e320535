// Package transforms implements Transforms<From, Through, To> (spec
// §4.4): a pair of lazy trajectory-to-trajectory conversions used to
// re-express a vessel's history relative to a reference body, and to
// render it back into an inertial frame. Grounded on
// original_source/physics/transforms.hpp for the BodyCentredNonRotating
// and BarycentricRotating constructions, and on the teacher's
// internal/cache.EntityCache for the first-pass caching requirement.
package transforms

import (
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/quantities"
	"github.com/OCAP2/extension/v5/internal/trajectory"
)

// Provider lazily resolves a reference body's trajectory. Per Design
// Notes ("Lazy trajectory providers in Transforms"), this is re-invoked
// on every call rather than captured once, because the referenced
// trajectory may have grown between calls.
type Provider[F geometry.Frame] func() *trajectory.Trajectory[F]

// Transforms holds the pair of lazy conversions between From, Through,
// and To frames. BodyCentredNonRotating keeps its per-instance cache in
// the first conversion's closure; the cache field holds no entries.
type Transforms[From, Through, To geometry.Frame] struct {
	first  func(*trajectory.Trajectory[From]) func(func(quantities.Instant, geometry.DegreesOfFreedom[Through]) bool)
	second func(*trajectory.Trajectory[Through]) func(func(quantities.Instant, geometry.DegreesOfFreedom[To]) bool)

	cache cacheKey
}

// cacheKey identifies a (trajectory, time) pair. Trajectory identity is
// the pointer itself; two different trajectories never collide even if
// sampled at the same instant.
type cacheKey = struct {
	traj any
	t    quantities.Instant
}

// First applies the first transform to t, materializing nothing — the
// caller decides whether to drain it directly or Materialize it into a
// Trajectory<Through> (spec §4.3's transforming_iterator contract).
func (tf *Transforms[From, Through, To]) First(t *trajectory.Trajectory[From]) func(func(quantities.Instant, geometry.DegreesOfFreedom[Through]) bool) {
	return tf.first(t)
}

// Second applies the second transform to a Through-frame trajectory.
func (tf *Transforms[From, Through, To]) Second(t *trajectory.Trajectory[Through]) func(func(quantities.Instant, geometry.DegreesOfFreedom[To]) bool) {
	return tf.second(t)
}

// BodyCentredNonRotating builds a Transforms that re-expresses vessel
// motion relative to a reference body while preserving inertial axes
// (spec §4.4): From subtracts the reference body's DoF at t, producing
// Through (same axes as From); To adds it back. referenceInFrom and
// referenceInTo are lazy providers of the reference body's trajectory in
// each frame (normally the same celestial, viewed in two frame tags that
// happen to share the same underlying axes — see geometry.Identity).
func BodyCentredNonRotating[From, Through, To geometry.Frame](
	referenceInFrom Provider[From],
	referenceInTo Provider[To],
	throughFromFrom func(geometry.DegreesOfFreedom[From]) geometry.DegreesOfFreedom[Through],
	toFromThrough func(geometry.DegreesOfFreedom[Through]) geometry.DegreesOfFreedom[To],
) *Transforms[From, Through, To] {
	cache := map[cacheKey]any{}

	first := func(t *trajectory.Trajectory[From]) func(func(quantities.Instant, geometry.DegreesOfFreedom[Through]) bool) {
		ref := referenceInFrom()
		return trajectory.TransformingIterator[From, Through](t, func(_ *trajectory.Trajectory[From], at quantities.Instant, dof geometry.DegreesOfFreedom[From]) geometry.DegreesOfFreedom[Through] {
			key := cacheKey{traj: ref, t: at}
			if cached, ok := cache[key]; ok {
				refDof := cached.(geometry.DegreesOfFreedom[From])
				return throughFromFrom(subtractFrame(dof, refDof))
			}
			refDof, ok := ref.Find(at)
			if !ok {
				_, refDof, _ = ref.Last()
			}
			cache[key] = refDof
			return throughFromFrom(subtractFrame(dof, refDof))
		})
	}

	second := func(t *trajectory.Trajectory[Through]) func(func(quantities.Instant, geometry.DegreesOfFreedom[To]) bool) {
		ref := referenceInTo()
		return trajectory.TransformingIterator[Through, To](t, func(_ *trajectory.Trajectory[Through], at quantities.Instant, dof geometry.DegreesOfFreedom[Through]) geometry.DegreesOfFreedom[To] {
			refDof, ok := ref.Find(at)
			if !ok {
				_, refDof, _ = ref.Last()
			}
			shifted := toFromThrough(dof)
			return addFrame(shifted, refDof)
		})
	}

	return &Transforms[From, Through, To]{first: first, second: second}
}

// subtractFrame returns dof expressed relative to origin, still tagged
// with the same frame — the caller re-tags it into Through via the
// supplied conversion, since F and Through share axes in
// BodyCentredNonRotating but are distinct type parameters.
func subtractFrame[F geometry.Frame](dof, origin geometry.DegreesOfFreedom[F]) geometry.DegreesOfFreedom[F] {
	rel := dof.Minus(origin)
	return geometry.DegreesOfFreedom[F]{
		Position: geometry.Origin[F]().Plus(rel.Displacement),
		Velocity: rel.Velocity,
	}
}

func addFrame[F geometry.Frame](dof, origin geometry.DegreesOfFreedom[F]) geometry.DegreesOfFreedom[F] {
	rel := geometry.RelativeDegreesOfFreedom[F]{
		Displacement: dof.Position.Minus(geometry.Origin[F]()),
		Velocity:     dof.Velocity,
	}
	return origin.Plus(rel)
}

// Basis is the rotating (x̂, ŷ, ẑ) triple of BarycentricRotating at one
// instant, plus the barycenter origin B(t), all expressed in From.
type Basis[From geometry.Frame] struct {
	Origin geometry.Point[From]
	X, Y, Z geometry.Displacement[From]
}

// BarycentricRotating builds the rotating-frame Transforms of spec §4.4:
// Through uses the basis (x̂, ŷ, ẑ) with origin B(t) computed from the
// primary/secondary providers at each query instant; the second
// transform applies the basis's inverse rotation at the query's own
// time, which is what produces the familiar "trace" curves when
// rendering in the current rotating frame.
func BarycentricRotating[From, Through geometry.Frame](
	primary, secondary Provider[From],
	primaryMu, secondaryMu float64,
) *Transforms[From, Through, From] {
	basisAt := func(at quantities.Instant) (Basis[From], geometry.DegreesOfFreedom[From], geometry.DegreesOfFreedom[From]) {
		p := findOrLast(primary(), at)
		s := findOrLast(secondary(), at)
		totalMu := primaryMu + secondaryMu
		bx, by, bz := weightedAverage(p.Position, s.Position, primaryMu, secondaryMu, totalMu)
		origin := geometry.NewPoint[From](bx, by, bz)

		xHat := s.Position.Minus(p.Position)
		xHat = xHat.Scale(1 / xHat.Norm())

		relVel := s.Velocity.Minus(p.Velocity)
		yRaw := relVel.AsDisplacementPerUnitTime().Minus(xHat.Scale(relVel.AsDisplacementPerUnitTime().Dot(xHat)))
		if yRaw.Norm() == 0 {
			yRaw = geometry.NewDisplacement[From](0, 1, 0)
		}
		yHat := yRaw.Scale(1 / yRaw.Norm())
		zHat := xHat.Cross(yHat)

		return Basis[From]{Origin: origin, X: xHat, Y: yHat, Z: zHat}, p, s
	}

	first := func(t *trajectory.Trajectory[From]) func(func(quantities.Instant, geometry.DegreesOfFreedom[Through]) bool) {
		return trajectory.TransformingIterator[From, Through](t, func(_ *trajectory.Trajectory[From], at quantities.Instant, dof geometry.DegreesOfFreedom[From]) geometry.DegreesOfFreedom[Through] {
			basis, _, _ := basisAt(at)
			rel := dof.Position.Minus(basis.Origin)
			rotated := geometry.FromBasis[From, Through](basis.X, basis.Y, basis.Z)
			pos := rotated.Apply(rel)
			vel := rotated.ApplyVelocity(dof.Velocity)
			return geometry.DegreesOfFreedom[Through]{
				Position: geometry.Origin[Through]().Plus(pos),
				Velocity: vel,
			}
		})
	}

	second := func(t *trajectory.Trajectory[Through]) func(func(quantities.Instant, geometry.DegreesOfFreedom[From]) bool) {
		return trajectory.TransformingIterator[Through, From](t, func(_ *trajectory.Trajectory[Through], at quantities.Instant, dof geometry.DegreesOfFreedom[Through]) geometry.DegreesOfFreedom[From] {
			basis, _, _ := basisAt(at)
			rotBack := geometry.FromBasis[From, Through](basis.X, basis.Y, basis.Z).Inverse()
			rel := dof.Position.Minus(geometry.Origin[Through]())
			pos := rotBack.Apply(rel)
			vel := rotBack.ApplyVelocity(dof.Velocity)
			return geometry.DegreesOfFreedom[From]{
				Position: basis.Origin.Plus(pos),
				Velocity: vel,
			}
		})
	}

	return &Transforms[From, Through, From]{first: first, second: second}
}

func findOrLast[F geometry.Frame](t *trajectory.Trajectory[F], at quantities.Instant) geometry.DegreesOfFreedom[F] {
	if dof, ok := t.Find(at); ok {
		return dof
	}
	_, dof, _ := t.Last()
	return dof
}

func weightedAverage[F geometry.Frame](a, b geometry.Point[F], wa, wb, total float64) (x, y, z float64) {
	ax, ay, az := a.XYZ()
	bx, by, bz := b.XYZ()
	return (ax*wa + bx*wb) / total, (ay*wa + by*wb) / total, (az*wa + bz*wb) / total
}
