// Package integrator implements the symplectic partitioned Runge–Kutta
// (SPRK) step engine of spec §4.1, over a separable Hamiltonian
// H(q,p) = T(p) + V(q). The engine is frame- and body-agnostic: it only
// sees flat []float64 position/momentum vectors, the velocity and force
// callbacks that produce their derivatives, and a Scheme of pure-data
// stage coefficients (internal/definitions). Packing those vectors from
// and into Trajectory samples is internal/nbody's job.
package integrator

import (
	"fmt"
	"math"

	"github.com/OCAP2/extension/v5/internal/definitions"
	"github.com/OCAP2/extension/v5/internal/quantities"
)

// SystemState is the integrator's snapshot type (spec §4.1): flat q/p
// vectors and a compensated-summation time.
type SystemState struct {
	Q []float64
	P []float64
	T quantities.CompensatedInstant
}

// Time returns the user-visible instant of the state.
func (s SystemState) Time() quantities.Instant { return s.T.Value() }

// Clone returns a deep copy, so callers may retain a SystemState across
// further Run calls without aliasing its slices.
func (s SystemState) Clone() SystemState {
	q := make([]float64, len(s.Q))
	p := make([]float64, len(s.P))
	copy(q, s.Q)
	copy(p, s.P)
	return SystemState{Q: q, P: p, T: s.T}
}

// VelocityFunc computes dq/dt = v(p) into out, given p. len(out) == len(p).
type VelocityFunc func(p []float64, out []float64)

// ForceFunc computes dp/dt = f(q, t) into out, given q and the stage time.
// len(out) == len(q).
type ForceFunc func(q []float64, t quantities.Instant, out []float64)

// Params configures one integrator run (spec §4.1, "Parameters for a run").
type Params struct {
	InitialState   SystemState
	TFinal         quantities.Instant
	Dt             quantities.Time
	SamplingPeriod uint32
	TFinalIsExact  bool
}

func (p Params) validate() {
	if p.Dt <= 0 {
		panic("integrator: Δt must be positive")
	}
	if p.TFinal < p.InitialState.Time() {
		panic("integrator: t_final must not precede the initial state's time")
	}
	if len(p.InitialState.Q) != len(p.InitialState.P) {
		panic("integrator: inconsistent q/p vector lengths")
	}
}

// loopTolerance guards the "full Δt step" loop condition against floating
// point rounding in the compensated time accumulator.
const loopTolerance = 1e-9

// Run drives the scheme from params.InitialState to params.TFinal. onStep,
// if non-nil, is invoked synchronously after every completed step (full or
// final partial) regardless of SamplingPeriod — this is the "driver calls
// Append on each step through the snapshot callback" path spec §4.1
// describes for history integrations. The returned iterator additionally
// yields states following the SamplingPeriod policy: 0 yields only the
// final state, k≥1 yields every k-th completed full step (plus, if
// TFinalIsExact, always the final partial step).
func Run(scheme definitions.Scheme, v VelocityFunc, f ForceFunc, params Params, onStep func(SystemState)) func(func(SystemState) bool) {
	params.validate()
	return func(yield func(SystemState) bool) {
		state := params.InitialState.Clone()
		tAcc := quantities.NewCompensatedInstant(state.Time())
		var stepCount uint32

		for float64(tAcc.Value())+float64(params.Dt)*(1-loopTolerance) <= float64(params.TFinal) {
			state = step(scheme, v, f, state, params.Dt, tAcc.Value())
			tAcc = tAcc.Advance(params.Dt)
			state.T = tAcc
			stepCount++
			if onStep != nil {
				onStep(state)
			}
			if params.SamplingPeriod > 0 && stepCount%params.SamplingPeriod == 0 {
				if !yield(state) {
					return
				}
			}
		}

		if params.TFinalIsExact {
			remaining := params.TFinal.Minus(tAcc.Value())
			if remaining > 0 {
				state = step(scheme, v, f, state, remaining, tAcc.Value())
				tAcc = tAcc.Advance(remaining)
				state.T = tAcc
				if onStep != nil {
					onStep(state)
				}
				if params.SamplingPeriod > 0 {
					if !yield(state) {
						return
					}
				}
			}
		}

		if params.SamplingPeriod == 0 {
			yield(state)
		}
	}
}

// step advances state by exactly dt using scheme's stages:
// q += aᵢ·dt·v(p) then p += bᵢ·dt·f(q, t_stage), per spec §4.1.
func step(scheme definitions.Scheme, v VelocityFunc, f ForceFunc, state SystemState, dt quantities.Time, t0 quantities.Instant) SystemState {
	dim := len(state.Q)
	q := make([]float64, dim)
	p := make([]float64, dim)
	copy(q, state.Q)
	copy(p, state.P)

	dqdt := make([]float64, dim)
	dpdt := make([]float64, dim)

	var elapsed quantities.Time
	for _, stage := range scheme.Stages {
		if stage.A != 0 {
			v(p, dqdt)
			for i := range q {
				q[i] += stage.A * float64(dt) * dqdt[i]
			}
			elapsed += quantities.Time(stage.A) * dt
		}
		if stage.B != 0 {
			f(q, t0.Plus(elapsed), dpdt)
			for i := range p {
				p[i] += stage.B * float64(dt) * dpdt[i]
			}
		}
	}
	return SystemState{Q: q, P: p, T: state.T}
}

// EnsureFinite panics if the state contains a NaN or Inf. The integrator
// itself never calls this (spec §7: "NaNs propagate. The caller's
// responsibility."); it exists for callers (tests, diagnostics) that want
// an explicit checkpoint rather than discovering divergence downstream.
func EnsureFinite(s SystemState) error {
	for i, x := range s.Q {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("integrator: q[%d] is non-finite: %v", i, x)
		}
	}
	for i, x := range s.P {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("integrator: p[%d] is non-finite: %v", i, x)
		}
	}
	return nil
}
