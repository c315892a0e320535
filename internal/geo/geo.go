// Package geo builds geometry values for the debug HTTP query surface —
// never for geodetic projection, since the physics core works entirely
// in an idealized Cartesian Barycentric frame (spec §1). Nothing in the
// module persists these values.
package geo

import (
	"errors"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrTooFewPoints is returned when fewer than two points are given to
// build a LineString.
var ErrTooFewPoints = errors.New("geo: at least 2 points are required to build a line string")

// Point builds a single (x, y, z) position.
func Point(x, y, z float64) geom.Point {
	p, _ := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Z:    z,
		Type: geom.DimXYZ,
	})
	return p
}

// TrajectoryLineString builds a 3D LineString from a sequence of
// (x, y, z) points, in order — the debug-surface shape of a rendered
// vessel trajectory (spec §4.6).
func TrajectoryLineString(points [][3]float64) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, ErrTooFewPoints
	}

	flat := make([]float64, 0, len(points)*3)
	for _, p := range points {
		flat = append(flat, p[0], p[1], p[2])
	}

	seq := geom.NewSequence(flat, geom.DimXYZ)
	return geom.NewLineString(seq)
}
