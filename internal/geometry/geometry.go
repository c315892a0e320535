// Package geometry provides frame-tagged affine points, displacements,
// velocities and rotations for the physics core. Each vector/point type
// carries its reference frame as a Go type parameter: the frame is a
// phantom parameter with zero runtime representation, the same idea as
// original_source/geometry's C++ template parameter, adapted to Go
// generics instead of compile-time template instantiation (Design Notes,
// "Frames as phantom type parameters").
package geometry

import "math"

// Frame marks a reference frame. Concrete frame tags are zero-size structs
// implementing this interface; IsInertial tells callers (notably the
// integrator and NBodySystem) whether operations requiring an inertial
// frame are legal.
type Frame interface {
	FrameName() string
	IsInertial() bool
}

// vec3 is the untagged Cartesian triple underlying every frame-tagged type.
// It is never exposed directly: all arithmetic that could mix frames goes
// through the generic wrappers below.
type vec3 struct {
	X, Y, Z float64
}

func (a vec3) add(b vec3) vec3    { return vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a vec3) sub(b vec3) vec3    { return vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a vec3) scale(s float64) vec3 { return vec3{a.X * s, a.Y * s, a.Z * s} }
func (a vec3) dot(b vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a vec3) cross(b vec3) vec3 {
	return vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}
func (a vec3) norm() float64 { return math.Sqrt(a.dot(a)) }

// Point is a position in Frame F.
type Point[F Frame] struct{ v vec3 }

// Displacement is a difference of two Points in Frame F, i.e. a free vector.
type Displacement[F Frame] struct{ v vec3 }

// Velocity is a rate of change of Position in Frame F.
type Velocity[F Frame] struct{ v vec3 }

// NewPoint builds a Point from Cartesian coordinates.
func NewPoint[F Frame](x, y, z float64) Point[F] { return Point[F]{vec3{x, y, z}} }

// NewDisplacement builds a Displacement from Cartesian components.
func NewDisplacement[F Frame](x, y, z float64) Displacement[F] {
	return Displacement[F]{vec3{x, y, z}}
}

// NewVelocity builds a Velocity from Cartesian components.
func NewVelocity[F Frame](x, y, z float64) Velocity[F] { return Velocity[F]{vec3{x, y, z}} }

// Origin is the zero Point of Frame F.
func Origin[F Frame]() Point[F] { return Point[F]{} }

func (p Point[F]) XYZ() (x, y, z float64) { return p.v.X, p.v.Y, p.v.Z }
func (d Displacement[F]) XYZ() (x, y, z float64) { return d.v.X, d.v.Y, d.v.Z }
func (v Velocity[F]) XYZ() (x, y, z float64) { return v.v.X, v.v.Y, v.v.Z }

// Plus is affine addition: Point + Displacement = Point.
func (p Point[F]) Plus(d Displacement[F]) Point[F] { return Point[F]{p.v.add(d.v)} }

// Minus is affine subtraction: Point - Point = Displacement.
func (p Point[F]) Minus(q Point[F]) Displacement[F] { return Displacement[F]{p.v.sub(q.v)} }

func (a Displacement[F]) Plus(b Displacement[F]) Displacement[F]  { return Displacement[F]{a.v.add(b.v)} }
func (a Displacement[F]) Minus(b Displacement[F]) Displacement[F] { return Displacement[F]{a.v.sub(b.v)} }
func (a Displacement[F]) Scale(s float64) Displacement[F]         { return Displacement[F]{a.v.scale(s)} }
func (a Displacement[F]) Norm() float64                           { return a.v.norm() }
func (a Displacement[F]) Dot(b Displacement[F]) float64           { return a.v.dot(b.v) }
func (a Displacement[F]) Cross(b Displacement[F]) Displacement[F] {
	return Displacement[F]{a.v.cross(b.v)}
}
func (a Displacement[F]) Negate() Displacement[F] { return Displacement[F]{a.v.scale(-1)} }

func (a Velocity[F]) Plus(b Velocity[F]) Velocity[F]  { return Velocity[F]{a.v.add(b.v)} }
func (a Velocity[F]) Minus(b Velocity[F]) Velocity[F] { return Velocity[F]{a.v.sub(b.v)} }
func (a Velocity[F]) Scale(s float64) Velocity[F]     { return Velocity[F]{a.v.scale(s)} }
func (a Velocity[F]) Norm() float64                   { return a.v.norm() }
func (a Velocity[F]) Dot(b Velocity[F]) float64       { return a.v.dot(b.v) }
func (a Velocity[F]) AsDisplacementPerUnitTime() Displacement[F] { return Displacement[F]{a.v} }

// DegreesOfFreedom is a (position, velocity) pair in Frame F, per spec §3.
type DegreesOfFreedom[F Frame] struct {
	Position Point[F]
	Velocity Velocity[F]
}

// RelativeDegreesOfFreedom is a (displacement, velocity) pair, the
// difference between two DegreesOfFreedom in the same frame.
type RelativeDegreesOfFreedom[F Frame] struct {
	Displacement Displacement[F]
	Velocity     Velocity[F]
}

// Plus supports affine addition of a DegreesOfFreedom with a
// RelativeDegreesOfFreedom, per spec §3.
func (d DegreesOfFreedom[F]) Plus(r RelativeDegreesOfFreedom[F]) DegreesOfFreedom[F] {
	return DegreesOfFreedom[F]{
		Position: d.Position.Plus(r.Displacement),
		Velocity: d.Velocity.Plus(r.Velocity),
	}
}

// Minus returns the RelativeDegreesOfFreedom of d with respect to origin.
func (d DegreesOfFreedom[F]) Minus(origin DegreesOfFreedom[F]) RelativeDegreesOfFreedom[F] {
	return RelativeDegreesOfFreedom[F]{
		Displacement: d.Position.Minus(origin.Position),
		Velocity:     d.Velocity.Minus(origin.Velocity),
	}
}

// Rotation maps Displacements and Velocities from Frame From to Frame To
// through an orthogonal 3x3 matrix, grounded on
// original_source/geometry/orthogonal_map_body.hpp.
type Rotation[From, To Frame] struct {
	m [3][3]float64
}

// Identity returns the rotation that leaves coordinates unchanged (used
// when From and To share axes, e.g. Barycentric and the BodyCentredNonRotating
// Through frame of spec §4.4).
func Identity[From, To Frame]() Rotation[From, To] {
	return Rotation[From, To]{[3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// AboutZ returns the rotation by angle (radians) about the Z axis, used for
// the planetarium rotation between Barycentric and WorldSun (spec §6).
func AboutZ[From, To Frame](radians float64) Rotation[From, To] {
	c, s := math.Cos(radians), math.Sin(radians)
	return Rotation[From, To]{[3][3]float64{
		{c, -s, 0},
		{s, c, 0},
		{0, 0, 1},
	}}
}

// FromBasis builds the rotation whose columns are the images of the
// From-frame unit axes, used by BarycentricRotating (spec §4.4) to build
// the (x̂, ŷ, ẑ) rotating basis.
func FromBasis[From, To Frame](x, y, z Displacement[From]) Rotation[From, To] {
	return Rotation[From, To]{[3][3]float64{
		{x.v.X, y.v.X, z.v.X},
		{x.v.Y, y.v.Y, z.v.Y},
		{x.v.Z, y.v.Z, z.v.Z},
	}}
}

// AliceYZ is the fixed permutation rotation swapping the y and z axes used
// at the AliceSun/Barycentric boundary (spec §6: "host uses left-handed,
// core uses right-handed").
func AliceYZ[From, To Frame]() Rotation[From, To] {
	return Rotation[From, To]{[3][3]float64{
		{1, 0, 0},
		{0, 0, 1},
		{0, 1, 0},
	}}
}

func (r Rotation[From, To]) apply(v vec3) vec3 {
	return vec3{
		r.m[0][0]*v.X + r.m[0][1]*v.Y + r.m[0][2]*v.Z,
		r.m[1][0]*v.X + r.m[1][1]*v.Y + r.m[1][2]*v.Z,
		r.m[2][0]*v.X + r.m[2][1]*v.Y + r.m[2][2]*v.Z,
	}
}

// Apply rotates a displacement from From into To.
func (r Rotation[From, To]) Apply(d Displacement[From]) Displacement[To] {
	return Displacement[To]{r.apply(d.v)}
}

// ApplyVelocity rotates a velocity from From into To.
func (r Rotation[From, To]) ApplyVelocity(v Velocity[From]) Velocity[To] {
	return Velocity[To]{r.apply(v.v)}
}

// Inverse returns the transposed (inverse, since r is orthogonal) rotation.
func (r Rotation[From, To]) Inverse() Rotation[To, From] {
	return Rotation[To, From]{[3][3]float64{
		{r.m[0][0], r.m[1][0], r.m[2][0]},
		{r.m[0][1], r.m[1][1], r.m[2][1]},
		{r.m[0][2], r.m[1][2], r.m[2][2]},
	}}
}
