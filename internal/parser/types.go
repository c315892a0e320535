package parser

import (
	"github.com/google/uuid"

	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/quantities"
)

// NewArgs is the parsed form of spec §6 command 1 ("New"): the initial
// instant, the sun's celestial index and gravitational parameter, and
// the starting planetarium rotation.
type NewArgs struct {
	InitialTime         quantities.Instant
	SunIndex            int
	SunMu               quantities.GravitationalParameter
	PlanetariumRotation quantities.Angle
}

// InsertCelestialArgs is the parsed form of command 2 ("InsertCelestial").
type InsertCelestialArgs struct {
	Index       int
	Mu          quantities.GravitationalParameter
	ParentIndex int
	FromParent  geometry.RelativeDegreesOfFreedom[frames.AliceSun]
}

// UpdateCelestialHierarchyArgs is the parsed form of the post-initialization
// celestial re-parenting command.
type UpdateCelestialHierarchyArgs struct {
	Index       int
	ParentIndex int
}

// InsertOrKeepVesselArgs is the parsed form of command 4
// ("InsertOrKeepVessel").
type InsertOrKeepVesselArgs struct {
	GUID        string
	ParentIndex int
}

// SetVesselStateOffsetArgs is the parsed form of the vessel positioning
// command that must follow a first-time InsertOrKeepVessel.
type SetVesselStateOffsetArgs struct {
	GUID       string
	FromParent geometry.RelativeDegreesOfFreedom[frames.AliceSun]
}

// PartArgs is one Part of a bubble-enrollment command, still in World —
// the Plugin itself performs the World->Barycentric conversion (spec §6).
type PartArgs struct {
	ID   uuid.UUID
	Mass quantities.Mass
	Dof  geometry.DegreesOfFreedom[frames.World]
}

// AddVesselToNextPhysicsBubbleArgs is the parsed form of the bubble
// enrollment command.
type AddVesselToNextPhysicsBubbleArgs struct {
	GUID  string
	Parts []PartArgs
}

// AdvanceTimeArgs is the parsed form of command 7 ("AdvanceTime").
type AdvanceTimeArgs struct {
	Target              quantities.Instant
	PlanetariumRotation quantities.Angle
}

// VesselFromParentArgs identifies the vessel a VesselFromParent query
// targets.
type VesselFromParentArgs struct {
	GUID string
}

// CelestialFromParentArgs identifies the celestial a CelestialFromParent
// query targets.
type CelestialFromParentArgs struct {
	Index int
}

// RenderedVesselTrajectoryArgs identifies the vessel a rendering query
// targets (spec §4.6).
type RenderedVesselTrajectoryArgs struct {
	GUID string
}
