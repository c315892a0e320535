// Package nbody implements NBodySystem<F> (spec §4.2): the gravitational
// right-hand side and the driver that packs a set of Trajectory<F> into
// the integrator's flat state vector, runs a scheme, and writes every
// produced step back with Append.
package nbody

import (
	"math"

	"github.com/OCAP2/extension/v5/internal/body"
	"github.com/OCAP2/extension/v5/internal/definitions"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/integrator"
	"github.com/OCAP2/extension/v5/internal/quantities"
	"github.com/OCAP2/extension/v5/internal/trajectory"
)

// System is a gravitationally coupled set of trajectories, all expressed
// in the inertial frame F. It owns no bodies of its own — each
// trajectory carries its body, recovered through Trajectory.Body — and
// holds no state between calls to Integrate beyond the trajectory list.
type System[F geometry.Frame] struct {
	trajectories []*trajectory.Trajectory[F]
}

// NewSystem returns an empty system.
func NewSystem[F geometry.Frame]() *System[F] {
	return &System[F]{}
}

// Add enrolls a trajectory in the system. Massless trajectories are
// still advanced — they feel gravity — but contribute no force to
// others (spec §4.2: "Massless bodies contribute zero to others").
func (s *System[F]) Add(tr *trajectory.Trajectory[F]) {
	s.trajectories = append(s.trajectories, tr)
}

// Trajectories exposes the enrolled set, e.g. for Transforms to read.
func (s *System[F]) Trajectories() []*trajectory.Trajectory[F] {
	return s.trajectories
}

// Integrate drives scheme from the current Last() of every enrolled
// trajectory to tFinal and appends every produced step to the
// corresponding trajectory (spec §4.2's "state vector assembly" and
// "ordering of appends": all N trajectories receive step k's time
// before any trajectory receives step k+1's, which falls out naturally
// here because onStep unpacks and appends the whole vector at once).
func (s *System[F]) Integrate(scheme definitions.Scheme, tFinal quantities.Instant, dt quantities.Time, samplingPeriod uint32, tFinalIsExact bool) {
	if len(s.trajectories) == 0 {
		return
	}
	initial := s.pack()
	params := integrator.Params{
		InitialState:   initial,
		TFinal:         tFinal,
		Dt:             dt,
		SamplingPeriod: samplingPeriod,
		TFinalIsExact:  tFinalIsExact,
	}
	onStep := func(state integrator.SystemState) {
		s.unpackAppend(state)
	}
	for range integrator.Run(scheme, s.velocity, s.force, params, onStep) {
		// Every produced step is already appended by onStep; the driver
		// only needs to drain the sequence to completion (spec §4.1:
		// "history integrations use sampling_period = 0 but the driver
		// calls Append on each step through the snapshot callback").
	}
}

// pack flattens every trajectory's current Last() sample into the
// integrator's q/p vectors, 3 components per body in enrollment order.
func (s *System[F]) pack() integrator.SystemState {
	n := len(s.trajectories)
	q := make([]float64, 3*n)
	p := make([]float64, 3*n)
	var t quantities.Instant
	for i, tr := range s.trajectories {
		at, dof, ok := tr.Last()
		if !ok {
			panic("nbody: trajectory has no samples to integrate from")
		}
		if i == 0 {
			t = at
		} else if at != t {
			panic("nbody: trajectories are not all at the same time")
		}
		x, y, z := dof.Position.XYZ()
		q[3*i], q[3*i+1], q[3*i+2] = x, y, z
		vx, vy, vz := dof.Velocity.XYZ()
		p[3*i], p[3*i+1], p[3*i+2] = vx, vy, vz
	}
	return integrator.SystemState{Q: q, P: p, T: quantities.NewCompensatedInstant(t)}
}

// unpackAppend writes a produced step back into every trajectory.
func (s *System[F]) unpackAppend(state integrator.SystemState) {
	t := state.Time()
	for i, tr := range s.trajectories {
		dof := geometry.DegreesOfFreedom[F]{
			Position: geometry.NewPoint[F](state.Q[3*i], state.Q[3*i+1], state.Q[3*i+2]),
			Velocity: geometry.NewVelocity[F](state.P[3*i], state.P[3*i+1], state.P[3*i+2]),
		}
		tr.Append(t, dof)
	}
}

// velocity is the integrator's VelocityFunc: q̇ = v(p) = p, since p here
// is velocity (not momentum) — the standard non-relativistic choice that
// lets the kinetic half of the Hamiltonian stay the identity map.
func (s *System[F]) velocity(p []float64, out []float64) {
	copy(out, p)
}

// force is the integrator's ForceFunc: the gravitational right-hand side
// of spec §4.2, summed pairwise over every Massive trajectory, with the
// J2 oblateness correction added when present.
func (s *System[F]) force(q []float64, _ quantities.Instant, out []float64) {
	for i := range out {
		out[i] = 0
	}
	for i := range s.trajectories {
		qi := [3]float64{q[3*i], q[3*i+1], q[3*i+2]}
		for j, tj := range s.trajectories {
			if i == j {
				continue
			}
			bj := tj.Body()
			if !bj.IsMassive() {
				continue
			}
			qj := [3]float64{q[3*j], q[3*j+1], q[3*j+2]}
			addGravity(qi, qj, bj, out[3*i:3*i+3])
		}
	}
}

// addGravity adds body j's contribution to the acceleration at position
// qi into accel (3 components), per spec §4.2:
//
//	μⱼ·(qⱼ−qᵢ)/‖qⱼ−qᵢ‖³
//
// plus, when j is oblate, the J2 correction
//
//	(3/2)·μⱼ·J2ⱼ·Rⱼ²/r⁵ · [ (5(r̂·ẑⱼ)²−1)·r̂ − 2(r̂·ẑⱼ)·ẑⱼ ]
func addGravity(qi, qj [3]float64, j *body.Body, accel []float64) {
	d := [3]float64{qj[0] - qi[0], qj[1] - qi[1], qj[2] - qi[2]}
	r2 := d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
	r := math.Sqrt(r2)
	r3 := r2 * r
	mu := float64(j.GravitationalParameter())

	k := mu / r3
	accel[0] += k * d[0]
	accel[1] += k * d[1]
	accel[2] += k * d[2]

	oblateness, ok := j.Oblateness()
	if !ok {
		return
	}
	rHat := [3]float64{d[0] / r, d[1] / r, d[2] / r}
	z := [3]float64{oblateness.AxisX, oblateness.AxisY, oblateness.AxisZ}
	rDotZ := rHat[0]*z[0] + rHat[1]*z[1] + rHat[2]*z[2]
	rad := float64(oblateness.Radius)
	coeff := 1.5 * mu * oblateness.J2 * rad * rad / (r2 * r2 * r)
	factor := 5*rDotZ*rDotZ - 1
	accel[0] += coeff * (factor*rHat[0] - 2*rDotZ*z[0])
	accel[1] += coeff * (factor*rHat[1] - 2*rDotZ*z[1])
	accel[2] += coeff * (factor*rHat[2] - 2*rDotZ*z[2])
}
