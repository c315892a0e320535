// Package parser provides pure []string -> struct conversion for the
// ordered command contract of spec §6 (New, InsertCelestial, ...). It
// has zero dependency on Plugin itself — the same separation the
// teacher keeps between parsing ArmA's string arrays and the
// dispatcher/worker layer that acts on the result.
package parser

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/quantities"
	"github.com/OCAP2/extension/v5/internal/util"
)

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// The host's scripting layer has no integer type, so numbers may arrive serialized as floats.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// parseXYZ parses three consecutive fields starting at offset as (x, y, z).
func parseXYZ(data []string, offset int) (x, y, z float64, err error) {
	if len(data) < offset+3 {
		return 0, 0, 0, fmt.Errorf("parseXYZ: need %d fields from offset %d, got %d", 3, offset, len(data))
	}
	if x, err = parseFloat(data[offset]); err != nil {
		return 0, 0, 0, fmt.Errorf("parseXYZ: x: %w", err)
	}
	if y, err = parseFloat(data[offset+1]); err != nil {
		return 0, 0, 0, fmt.Errorf("parseXYZ: y: %w", err)
	}
	if z, err = parseFloat(data[offset+2]); err != nil {
		return 0, 0, 0, fmt.Errorf("parseXYZ: z: %w", err)
	}
	return x, y, z, nil
}

// parseRelativeDof parses a displacement (3 fields) followed by a
// velocity (3 fields), the wire shape of every "from_parent" argument.
func parseRelativeDof[F geometry.Frame](data []string, offset int) (geometry.RelativeDegreesOfFreedom[F], error) {
	dx, dy, dz, err := parseXYZ(data, offset)
	if err != nil {
		return geometry.RelativeDegreesOfFreedom[F]{}, err
	}
	vx, vy, vz, err := parseXYZ(data, offset+3)
	if err != nil {
		return geometry.RelativeDegreesOfFreedom[F]{}, err
	}
	return geometry.RelativeDegreesOfFreedom[F]{
		Displacement: geometry.NewDisplacement[F](dx, dy, dz),
		Velocity:     geometry.NewVelocity[F](vx, vy, vz),
	}, nil
}

// Parser holds only a logger — it never touches Plugin, storage, or the
// host boundary.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

func (p *Parser) clean(data []string) []string {
	out := make([]string, len(data))
	for i, v := range data {
		out[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}
	return out
}

// ParseNew parses command 1's args: [initialTime, sunIndex, sunMu, planetariumRotation].
func (p *Parser) ParseNew(data []string) (NewArgs, error) {
	data = p.clean(data)
	if len(data) < 4 {
		return NewArgs{}, fmt.Errorf("ParseNew: expected 4 fields, got %d", len(data))
	}
	initialTime, err := parseFloat(data[0])
	if err != nil {
		return NewArgs{}, fmt.Errorf("ParseNew: initialTime: %w", err)
	}
	sunIndex, err := parseIntFromFloat(data[1])
	if err != nil {
		return NewArgs{}, fmt.Errorf("ParseNew: sunIndex: %w", err)
	}
	sunMu, err := parseFloat(data[2])
	if err != nil {
		return NewArgs{}, fmt.Errorf("ParseNew: sunMu: %w", err)
	}
	rotation, err := parseFloat(data[3])
	if err != nil {
		return NewArgs{}, fmt.Errorf("ParseNew: planetariumRotation: %w", err)
	}
	return NewArgs{
		InitialTime:         quantities.Instant(initialTime),
		SunIndex:            int(sunIndex),
		SunMu:               quantities.GravitationalParameter(sunMu),
		PlanetariumRotation: quantities.Angle(rotation),
	}, nil
}

// ParseInsertCelestial parses command 2's args:
// [index, mu, parentIndex, dx, dy, dz, vx, vy, vz].
func (p *Parser) ParseInsertCelestial(data []string) (InsertCelestialArgs, error) {
	data = p.clean(data)
	if len(data) < 9 {
		return InsertCelestialArgs{}, fmt.Errorf("ParseInsertCelestial: expected 9 fields, got %d", len(data))
	}
	index, err := parseIntFromFloat(data[0])
	if err != nil {
		return InsertCelestialArgs{}, fmt.Errorf("ParseInsertCelestial: index: %w", err)
	}
	mu, err := parseFloat(data[1])
	if err != nil {
		return InsertCelestialArgs{}, fmt.Errorf("ParseInsertCelestial: mu: %w", err)
	}
	parentIndex, err := parseIntFromFloat(data[2])
	if err != nil {
		return InsertCelestialArgs{}, fmt.Errorf("ParseInsertCelestial: parentIndex: %w", err)
	}
	fromParent, err := parseRelativeDof[frames.AliceSun](data, 3)
	if err != nil {
		return InsertCelestialArgs{}, fmt.Errorf("ParseInsertCelestial: fromParent: %w", err)
	}
	return InsertCelestialArgs{
		Index:       int(index),
		Mu:          quantities.GravitationalParameter(mu),
		ParentIndex: int(parentIndex),
		FromParent:  fromParent,
	}, nil
}

// ParseUpdateCelestialHierarchy parses [index, parentIndex].
func (p *Parser) ParseUpdateCelestialHierarchy(data []string) (UpdateCelestialHierarchyArgs, error) {
	data = p.clean(data)
	if len(data) < 2 {
		return UpdateCelestialHierarchyArgs{}, fmt.Errorf("ParseUpdateCelestialHierarchy: expected 2 fields, got %d", len(data))
	}
	index, err := parseIntFromFloat(data[0])
	if err != nil {
		return UpdateCelestialHierarchyArgs{}, fmt.Errorf("ParseUpdateCelestialHierarchy: index: %w", err)
	}
	parentIndex, err := parseIntFromFloat(data[1])
	if err != nil {
		return UpdateCelestialHierarchyArgs{}, fmt.Errorf("ParseUpdateCelestialHierarchy: parentIndex: %w", err)
	}
	return UpdateCelestialHierarchyArgs{Index: int(index), ParentIndex: int(parentIndex)}, nil
}

// ParseInsertOrKeepVessel parses command 4's args: [guid, parentIndex].
func (p *Parser) ParseInsertOrKeepVessel(data []string) (InsertOrKeepVesselArgs, error) {
	data = p.clean(data)
	if len(data) < 2 {
		return InsertOrKeepVesselArgs{}, fmt.Errorf("ParseInsertOrKeepVessel: expected 2 fields, got %d", len(data))
	}
	parentIndex, err := parseIntFromFloat(data[1])
	if err != nil {
		return InsertOrKeepVesselArgs{}, fmt.Errorf("ParseInsertOrKeepVessel: parentIndex: %w", err)
	}
	return InsertOrKeepVesselArgs{GUID: data[0], ParentIndex: int(parentIndex)}, nil
}

// ParseSetVesselStateOffset parses [guid, dx, dy, dz, vx, vy, vz].
func (p *Parser) ParseSetVesselStateOffset(data []string) (SetVesselStateOffsetArgs, error) {
	data = p.clean(data)
	if len(data) < 7 {
		return SetVesselStateOffsetArgs{}, fmt.Errorf("ParseSetVesselStateOffset: expected 7 fields, got %d", len(data))
	}
	fromParent, err := parseRelativeDof[frames.AliceSun](data, 1)
	if err != nil {
		return SetVesselStateOffsetArgs{}, fmt.Errorf("ParseSetVesselStateOffset: fromParent: %w", err)
	}
	return SetVesselStateOffsetArgs{GUID: data[0], FromParent: fromParent}, nil
}

// ParseAddVesselToNextPhysicsBubble parses [guid, sunWorldX, sunWorldY,
// sunWorldZ, partCount, (mass, px, py, pz, vx, vy, vz)*partCount].
// Returns the parsed parts plus the host's current sun world position,
// which Plugin needs to convert each part from World to Barycentric.
func (p *Parser) ParseAddVesselToNextPhysicsBubble(data []string) (AddVesselToNextPhysicsBubbleArgs, geometry.Point[frames.World], error) {
	data = p.clean(data)
	if len(data) < 5 {
		return AddVesselToNextPhysicsBubbleArgs{}, geometry.Point[frames.World]{}, fmt.Errorf("ParseAddVesselToNextPhysicsBubble: expected at least 5 fields, got %d", len(data))
	}
	guid := data[0]
	sx, sy, sz, err := parseXYZ(data, 1)
	if err != nil {
		return AddVesselToNextPhysicsBubbleArgs{}, geometry.Point[frames.World]{}, fmt.Errorf("ParseAddVesselToNextPhysicsBubble: sunWorldPosition: %w", err)
	}
	sunWorldPosition := geometry.NewPoint[frames.World](sx, sy, sz)

	partCount, err := parseUintFromFloat(data[4])
	if err != nil {
		return AddVesselToNextPhysicsBubbleArgs{}, geometry.Point[frames.World]{}, fmt.Errorf("ParseAddVesselToNextPhysicsBubble: partCount: %w", err)
	}

	const fieldsPerPart = 7
	offset := 5
	if len(data) < offset+int(partCount)*fieldsPerPart {
		return AddVesselToNextPhysicsBubbleArgs{}, geometry.Point[frames.World]{}, fmt.Errorf(
			"ParseAddVesselToNextPhysicsBubble: expected %d fields for %d parts, got %d",
			int(partCount)*fieldsPerPart, partCount, len(data)-offset)
	}

	parts := make([]PartArgs, partCount)
	for i := range parts {
		base := offset + i*fieldsPerPart
		mass, err := parseFloat(data[base])
		if err != nil {
			return AddVesselToNextPhysicsBubbleArgs{}, geometry.Point[frames.World]{}, fmt.Errorf("ParseAddVesselToNextPhysicsBubble: part %d mass: %w", i, err)
		}
		px, py, pz, err := parseXYZ(data, base+1)
		if err != nil {
			return AddVesselToNextPhysicsBubbleArgs{}, geometry.Point[frames.World]{}, fmt.Errorf("ParseAddVesselToNextPhysicsBubble: part %d position: %w", i, err)
		}
		vx, vy, vz, err := parseXYZ(data, base+4)
		if err != nil {
			return AddVesselToNextPhysicsBubbleArgs{}, geometry.Point[frames.World]{}, fmt.Errorf("ParseAddVesselToNextPhysicsBubble: part %d velocity: %w", i, err)
		}
		parts[i] = PartArgs{
			ID:   uuid.New(),
			Mass: quantities.Mass(mass),
			Dof: geometry.DegreesOfFreedom[frames.World]{
				Position: geometry.NewPoint[frames.World](px, py, pz),
				Velocity: geometry.NewVelocity[frames.World](vx, vy, vz),
			},
		}
	}

	return AddVesselToNextPhysicsBubbleArgs{GUID: guid, Parts: parts}, sunWorldPosition, nil
}

// ParseAdvanceTime parses command 7's args: [target, planetariumRotation].
func (p *Parser) ParseAdvanceTime(data []string) (AdvanceTimeArgs, error) {
	data = p.clean(data)
	if len(data) < 2 {
		return AdvanceTimeArgs{}, fmt.Errorf("ParseAdvanceTime: expected 2 fields, got %d", len(data))
	}
	target, err := parseFloat(data[0])
	if err != nil {
		return AdvanceTimeArgs{}, fmt.Errorf("ParseAdvanceTime: target: %w", err)
	}
	rotation, err := parseFloat(data[1])
	if err != nil {
		return AdvanceTimeArgs{}, fmt.Errorf("ParseAdvanceTime: planetariumRotation: %w", err)
	}
	return AdvanceTimeArgs{
		Target:              quantities.Instant(target),
		PlanetariumRotation: quantities.Angle(rotation),
	}, nil
}

// ParseVesselFromParent parses [guid].
func (p *Parser) ParseVesselFromParent(data []string) (VesselFromParentArgs, error) {
	data = p.clean(data)
	if len(data) < 1 {
		return VesselFromParentArgs{}, fmt.Errorf("ParseVesselFromParent: expected 1 field, got %d", len(data))
	}
	return VesselFromParentArgs{GUID: data[0]}, nil
}

// ParseCelestialFromParent parses [index].
func (p *Parser) ParseCelestialFromParent(data []string) (CelestialFromParentArgs, error) {
	data = p.clean(data)
	if len(data) < 1 {
		return CelestialFromParentArgs{}, fmt.Errorf("ParseCelestialFromParent: expected 1 field, got %d", len(data))
	}
	index, err := parseIntFromFloat(data[0])
	if err != nil {
		return CelestialFromParentArgs{}, fmt.Errorf("ParseCelestialFromParent: index: %w", err)
	}
	return CelestialFromParentArgs{Index: int(index)}, nil
}

// ParseRenderedVesselTrajectory parses [guid, sunWorldX, sunWorldY,
// sunWorldZ]. The sun's current world position travels alongside the
// query for the same reason it travels with AddVesselToNextPhysicsBubble:
// mapping the rendered trajectory into World requires it.
func (p *Parser) ParseRenderedVesselTrajectory(data []string) (RenderedVesselTrajectoryArgs, geometry.Point[frames.World], error) {
	data = p.clean(data)
	if len(data) < 4 {
		return RenderedVesselTrajectoryArgs{}, geometry.Point[frames.World]{}, fmt.Errorf("ParseRenderedVesselTrajectory: expected 4 fields, got %d", len(data))
	}
	sx, sy, sz, err := parseXYZ(data, 1)
	if err != nil {
		return RenderedVesselTrajectoryArgs{}, geometry.Point[frames.World]{}, fmt.Errorf("ParseRenderedVesselTrajectory: sunWorldPosition: %w", err)
	}
	return RenderedVesselTrajectoryArgs{GUID: data[0]}, geometry.NewPoint[frames.World](sx, sy, sz), nil
}
