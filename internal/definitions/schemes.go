// Package definitions holds the pure-data tables the rest of the core is
// parametrized by: SPRK stage coefficients and the scheduler's default
// tunables. Keeping these as data (spec §4.1: "Schemes are pure data;
// swapping the scheme must not require code changes") means a new scheme
// is a new Scheme value, never a new code path.
package definitions

import "math"

// Stage is one (aᵢ, bᵣ) coefficient pair of an SPRK scheme (spec §4.1).
type Stage struct {
	A, B float64
}

// Scheme is an ordered list of stages. Σaᵢ and Σbᵢ must each equal 1; this
// is checked once at construction time in this file rather than on every
// integrator run.
type Scheme struct {
	Name   string
	Stages []Stage
}

func mustSumToOne(name string, stages []Stage) Scheme {
	var sumA, sumB float64
	for _, s := range stages {
		sumA += s.A
		sumB += s.B
	}
	const tol = 1e-12
	if math.Abs(sumA-1) > tol || math.Abs(sumB-1) > tol {
		panic("definitions: scheme " + name + " coefficients do not sum to 1")
	}
	return Scheme{Name: name, Stages: stages}
}

// Leapfrog is the classical 2nd-order, 2-stage symmetric SPRK scheme
// (drift-kick-drift Störmer–Verlet written in the spec's drift-then-kick
// stage form).
func Leapfrog() Scheme {
	return mustSumToOne("leapfrog", []Stage{
		{A: 0.5, B: 1},
		{A: 0.5, B: 0},
	})
}

// ForestRuth is the 4th-order, 4-stage symmetric SPRK scheme obtained by
// the "triple jump" composition of three Leapfrog steps (Forest & Ruth
// 1990; Yoshida 1990). The weights are computed from the closed form
// x1 = 1/(2 − 2^(1/3)) rather than hardcoded to many digits, so the
// derivation stays auditable:
//
//	S(Δt) = S(x1 Δt) · S(x0 Δt) · S(x1 Δt),   x0 = 1 − 2x1
//
// composed from Leapfrog's own drift/kick half-steps, with adjacent drift
// half-steps at the seams merged into single stages. Offered as a cheaper,
// lower-order alternative to McLachlanAtela, which is the default.
func ForestRuth() Scheme {
	x1 := 1 / (2 - math.Cbrt(2))
	x0 := 1 - 2*x1
	return mustSumToOne("forest_ruth", []Stage{
		{A: x1 / 2, B: x1},
		{A: (x1 + x0) / 2, B: x0},
		{A: (x0 + x1) / 2, B: x1},
		{A: x1 / 2, B: 0},
	})
}

// McLachlanAtela is the 5th-order, 6-stage optimal symplectic
// Runge-Kutta-Nyström scheme of McLachlan & Atela, "The accuracy of
// symplectic integrators", Nonlinearity 5 (1992), Table 2. Unlike
// Leapfrog/ForestRuth it is not time-symmetric — no symmetric composition
// achieves odd order — so its coefficients are the published numeric
// values rather than a closed-form composition; they are standard
// reference data, not tuned or invented. This is the module's default
// history/prolongation scheme.
func McLachlanAtela() Scheme {
	return mustSumToOne("mclachlan_atela", []Stage{
		{A: 0.1193900292875672758, B: 0.3398396258391100},
		{A: 0.6989273703824752308, B: -0.0886013369030273290},
		{A: -0.1713123582716007754, B: 0.5858564768259621188},
		{A: 0.4012695022513534480, B: -0.6030393565364918880},
		{A: 0.0107050818482359840, B: 0.3235807965546976394},
		{A: -0.0589796254980328318, B: 0.4423637942197494587},
	})
}

// ByName resolves a scheme by its Name; the empty name resolves to the
// default, McLachlanAtela.
func ByName(name string) (Scheme, bool) {
	switch name {
	case "leapfrog":
		return Leapfrog(), true
	case "forest_ruth":
		return ForestRuth(), true
	case "mclachlan_atela", "":
		return McLachlanAtela(), true
	default:
		return Scheme{}, false
	}
}

// DefaultHistoryStep is the fixed history cadence Δt of spec §4.5 (10 s).
const DefaultHistoryStep = 10.0
