package render

import (
	"testing"

	"github.com/OCAP2/extension/v5/internal/body"
	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/trajectory"
	"github.com/OCAP2/extension/v5/internal/transforms"
	"github.com/OCAP2/extension/v5/internal/vessel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityTransforms builds a Transforms<Barycentric, Rendering,
// Barycentric> whose reference body sits at the Barycentric origin for
// all time, so the pipeline reduces to a frame relabeling.
func identityTransforms(sun *trajectory.Trajectory[frames.Barycentric]) *transforms.Transforms[frames.Barycentric, frames.Rendering, frames.Barycentric] {
	provider := func() *trajectory.Trajectory[frames.Barycentric] { return sun }
	return transforms.BodyCentredNonRotating[frames.Barycentric, frames.Rendering, frames.Barycentric](
		provider,
		provider,
		func(d geometry.DegreesOfFreedom[frames.Barycentric]) geometry.DegreesOfFreedom[frames.Rendering] {
			x, y, z := d.Position.XYZ()
			return geometry.DegreesOfFreedom[frames.Rendering]{
				Position: geometry.NewPoint[frames.Rendering](x, y, z),
				Velocity: geometry.NewVelocity[frames.Rendering](d.Velocity.XYZ()),
			}
		},
		func(d geometry.DegreesOfFreedom[frames.Rendering]) geometry.DegreesOfFreedom[frames.Barycentric] {
			x, y, z := d.Position.XYZ()
			return geometry.DegreesOfFreedom[frames.Barycentric]{
				Position: geometry.NewPoint[frames.Barycentric](x, y, z),
				Velocity: geometry.NewVelocity[frames.Barycentric](d.Velocity.XYZ()),
			}
		},
	)
}

func stationarySun() *trajectory.Trajectory[frames.Barycentric] {
	b := body.Massive(1.327e20)
	sun := trajectory.New[frames.Barycentric](&b)
	sun.Append(0, geometry.DegreesOfFreedom[frames.Barycentric]{
		Position: geometry.Origin[frames.Barycentric](),
		Velocity: geometry.NewVelocity[frames.Barycentric](0, 0, 0),
	})
	sun.Append(10, geometry.DegreesOfFreedom[frames.Barycentric]{
		Position: geometry.Origin[frames.Barycentric](),
		Velocity: geometry.NewVelocity[frames.Barycentric](0, 0, 0),
	})
	return sun
}

func TestUnsynchronizedVesselRendersEmpty(t *testing.T) {
	v := vessel.NewUnsynchronized("v", 0, 0, geometry.DegreesOfFreedom[frames.Barycentric]{})
	sun := stationarySun()

	result := VesselTrajectory(v, identityTransforms(sun), geometry.Origin[frames.Barycentric](), geometry.Origin[frames.World](), 0)
	assert.Nil(t, result)
}

func TestSynchronizedVesselProducesLineSegments(t *testing.T) {
	v2 := vessel.NewUnsynchronized("v", 0, 0, geometry.DegreesOfFreedom[frames.Barycentric]{
		Position: geometry.NewPoint[frames.Barycentric](1e11, 0, 0),
		Velocity: geometry.NewVelocity[frames.Barycentric](0, 0, 0),
	})
	v2.CreateHistory(0, geometry.DegreesOfFreedom[frames.Barycentric]{
		Position: geometry.NewPoint[frames.Barycentric](1e11, 0, 0),
		Velocity: geometry.NewVelocity[frames.Barycentric](0, 0, 0),
	})
	v2.AppendToHistory(10, geometry.DegreesOfFreedom[frames.Barycentric]{
		Position: geometry.NewPoint[frames.Barycentric](1.1e11, 0, 0),
		Velocity: geometry.NewVelocity[frames.Barycentric](0, 0, 0),
	})
	require.True(t, v2.IsSynchronized())

	sun := stationarySun()
	result := VesselTrajectory(v2, identityTransforms(sun), geometry.Origin[frames.Barycentric](), geometry.Origin[frames.World](), 0)

	require.Len(t, result, 1)
	bx, by, bz := result[0].Begin.XYZ()
	ex, ey, ez := result[0].End.XYZ()
	assert.InDelta(t, 1e11, bx, 1e-3)
	assert.InDelta(t, 0, by, 1e-9)
	assert.InDelta(t, 0, bz, 1e-9)
	assert.InDelta(t, 1.1e11, ex, 1e-3)
	assert.InDelta(t, 0, ey, 1e-9)
	assert.InDelta(t, 0, ez, 1e-9)
}
