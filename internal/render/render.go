// Package render implements the two-pass rendering pipeline of spec
// §4.6: a vessel's history, re-expressed through a Transforms instance
// into the current rendering frame, then mapped into World as a
// polyline. Grounded on original_source/ksp_plugin/plugin.hpp's
// LineSegment<Frame>/RenderedTrajectory<Frame> and
// RenderedVesselTrajectory.
package render

import (
	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/quantities"
	"github.com/OCAP2/extension/v5/internal/trajectory"
	"github.com/OCAP2/extension/v5/internal/transforms"
	"github.com/OCAP2/extension/v5/internal/vessel"
)

// LineSegment is the convex combination {(1-s)·Begin + s·End | s ∈ [0,1]}
// in World, used as the unit of a rendered trajectory.
type LineSegment struct {
	Begin, End geometry.Point[frames.World]
}

// Trajectory is a polyline — the core's rendering output for one vessel.
type Trajectory []LineSegment

// VesselTrajectory implements spec §4.6: reject unsynchronized vessels
// with an empty rendering, otherwise materialize the two-pass transform
// of the vessel's history and emit one LineSegment per consecutive pair
// of points, mapped into World via the sun's current world position and
// R_world_sun · planetarium_rotation.
func VesselTrajectory(
	v *vessel.Vessel,
	tf *transforms.Transforms[frames.Barycentric, frames.Rendering, frames.Barycentric],
	sunBarycentricPosition geometry.Point[frames.Barycentric],
	sunWorldPosition geometry.Point[frames.World],
	planetariumRotation quantities.Angle,
) Trajectory {
	if !v.IsSynchronized() {
		return nil
	}
	history := v.History()

	through := trajectory.Materialize[frames.Rendering](history.Body(), tf.First(history))
	rendered := trajectory.Materialize[frames.Barycentric](history.Body(), tf.Second(through))

	toWorld := geometry.AboutZ[frames.Barycentric, frames.World](float64(planetariumRotation))

	var points []geometry.Point[frames.World]
	rendered.Iterator(func(_ quantities.Instant, dof geometry.DegreesOfFreedom[frames.Barycentric]) bool {
		rel := dof.Position.Minus(sunBarycentricPosition)
		worldRel := toWorld.Apply(rel)
		points = append(points, sunWorldPosition.Plus(worldRel))
		return true
	})

	if len(points) < 2 {
		return nil
	}
	segments := make(Trajectory, 0, len(points)-1)
	for i := 0; i < len(points)-1; i++ {
		segments = append(segments, LineSegment{Begin: points[i], End: points[i+1]})
	}
	return segments
}
