// Package body describes the mass points that drive the N-body force
// model: a Body is either massless (a vessel) or massive (a celestial),
// optionally carrying oblateness data. Grounded on
// original_source/physics/massive_body.hpp; the tagged-variant shape
// (Design Notes, "Polymorphism over Body") avoids virtual dispatch so the
// force routine can branch once per pair and hoist the branch out of the
// inner loop for the common spherical case.
package body

import "github.com/OCAP2/extension/v5/internal/quantities"

// Oblateness carries the J2 coefficient, equatorial radius, and polar axis
// of an oblate body. It is data only: spec §1 keeps the oblateness force
// term out of the scheduler hot path and §8's Open Questions allow an
// implementer to defer exercising it as long as the formula in §4.2 is
// unit-tested in isolation.
type Oblateness struct {
	J2     float64
	Radius quantities.Length
	// AxisX, AxisY, AxisZ is the body's polar axis expressed in the
	// inertial frame, a unit vector.
	AxisX, AxisY, AxisZ float64
}

// Body is a tagged union: Massless or Massive{μ, optional Oblateness}.
type Body struct {
	massive bool
	mu      quantities.GravitationalParameter
	oblate  *Oblateness
}

// Massless constructs a Body with no gravitational influence, used for
// vessels.
func Massless() Body { return Body{} }

// Massive constructs a Body with gravitational parameter mu, used for
// celestials. Panics if mu <= 0: per spec §3 this is a programmer error,
// not a recoverable condition.
func Massive(mu quantities.GravitationalParameter) Body {
	if mu <= 0 {
		panic("body: Massive requires mu > 0")
	}
	return Body{massive: true, mu: mu}
}

// MassiveOblate constructs a Massive body carrying oblateness data.
func MassiveOblate(mu quantities.GravitationalParameter, o Oblateness) Body {
	b := Massive(mu)
	b.oblate = &o
	return b
}

// IsMassive reports whether the body exerts gravitational force on others.
func (b Body) IsMassive() bool { return b.massive }

// GravitationalParameter returns μ. Panics if the body is massless: callers
// must check IsMassive first, per the tagged-union contract.
func (b Body) GravitationalParameter() quantities.GravitationalParameter {
	if !b.massive {
		panic("body: GravitationalParameter called on a massless body")
	}
	return b.mu
}

// Oblateness returns the body's oblateness data and whether it is present.
func (b Body) Oblateness() (Oblateness, bool) {
	if b.oblate == nil {
		return Oblateness{}, false
	}
	return *b.oblate, true
}
