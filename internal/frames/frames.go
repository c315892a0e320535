// Package frames declares the concrete reference-frame tags used at and
// below the Plugin boundary (spec §6), grounded on
// original_source/ksp_plugin/frames.hpp. Each tag is a zero-size struct
// implementing geometry.Frame; Trajectory<F>, Transforms<...> and the
// Plugin's own state are instantiated with these.
package frames

// World is the host's world-space frame: left-handed, non-inertial (it
// follows whichever celestial the host currently orbits).
type World struct{}

func (World) FrameName() string { return "World" }
func (World) IsInertial() bool  { return false }

// AliceWorld is World with the y and z axes swapped, making it
// right-handed — the only frame the core itself reasons in at the
// boundary before converting to Barycentric.
type AliceWorld struct{}

func (AliceWorld) FrameName() string { return "AliceWorld" }
func (AliceWorld) IsInertial() bool  { return false }

// Barycentric is the core's internal inertial frame, origin at the sun's
// initial position, axes fixed at plugin construction (spec §6,
// GLOSSARY: "approximated by the sun's initial position").
type Barycentric struct{}

func (Barycentric) FrameName() string { return "Barycentric" }
func (Barycentric) IsInertial() bool  { return true }

// WorldSun is AliceWorld's axes with World's handedness convention,
// nonrotating but not inertial, used only for instantaneous comparisons
// at the API boundary (spec §6).
type WorldSun struct{}

func (WorldSun) FrameName() string { return "WorldSun" }
func (WorldSun) IsInertial() bool  { return false }

// AliceSun is WorldSun's axes permuted y↔z, the frame vessel state
// offsets arrive in at the API boundary (spec §6).
type AliceSun struct{}

func (AliceSun) FrameName() string { return "AliceSun" }
func (AliceSun) IsInertial() bool  { return false }

// Rendering is the Through frame of whichever Transforms construction is
// active for a given render request (spec §4.4); its basis is defined by
// the factory, not by this tag, so one Rendering tag suffices for every
// Transforms instance — instances never outlive a single render call.
type Rendering struct{}

func (Rendering) FrameName() string { return "Rendering" }
func (Rendering) IsInertial() bool  { return false }

// UniversalTimeEpoch is the origin instant: universal time 0, the time
// of game creation (spec §6, original_source/ksp_plugin/frames.hpp's
// kUniversalTimeEpoch). Kept as a plain untyped constant rather than a
// quantities.Instant, so package frames imports nothing; callers add it
// to host-supplied offsets once at the boundary.
const UniversalTimeEpoch = 0.0
