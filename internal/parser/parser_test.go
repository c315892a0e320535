package parser

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/extension/v5/internal/quantities"
)

func newTestParser() *Parser {
	return New(slog.Default())
}

func TestParseNew(t *testing.T) {
	p := newTestParser()
	args, err := p.ParseNew([]string{"0", "0", "1.32712440018e20", "0"})
	require.NoError(t, err)
	assert.Equal(t, quantities.Instant(0), args.InitialTime)
	assert.Equal(t, 0, args.SunIndex)
	assert.Equal(t, quantities.GravitationalParameter(1.32712440018e20), args.SunMu)
}

func TestParseInsertCelestial(t *testing.T) {
	p := newTestParser()
	args, err := p.ParseInsertCelestial([]string{
		"1", "3.986e14", "0",
		"1.496e11", "0", "0",
		"0", "29780", "0",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, args.Index)
	assert.Equal(t, 0, args.ParentIndex)
	x, y, z := args.FromParent.Displacement.XYZ()
	assert.Equal(t, [3]float64{1.496e11, 0, 0}, [3]float64{x, y, z})
}

func TestParseInsertCelestialTooFewFields(t *testing.T) {
	p := newTestParser()
	_, err := p.ParseInsertCelestial([]string{"1", "2"})
	assert.Error(t, err)
}

func TestParseInsertOrKeepVessel(t *testing.T) {
	p := newTestParser()
	args, err := p.ParseInsertOrKeepVessel([]string{"vessel-1", "0"})
	require.NoError(t, err)
	assert.Equal(t, "vessel-1", args.GUID)
	assert.Equal(t, 0, args.ParentIndex)
}

func TestParseAdvanceTime(t *testing.T) {
	p := newTestParser()
	args, err := p.ParseAdvanceTime([]string{"100.5", "1.2"})
	require.NoError(t, err)
	assert.Equal(t, quantities.Instant(100.5), args.Target)
	assert.Equal(t, quantities.Angle(1.2), args.PlanetariumRotation)
}

func TestParseAddVesselToNextPhysicsBubble(t *testing.T) {
	p := newTestParser()
	args, sunPos, err := p.ParseAddVesselToNextPhysicsBubble([]string{
		"vessel-1",
		"10", "20", "30",
		"2",
		"1000", "1", "2", "3", "0.1", "0.2", "0.3",
		"500", "4", "5", "6", "0.4", "0.5", "0.6",
	})
	require.NoError(t, err)
	assert.Equal(t, "vessel-1", args.GUID)
	require.Len(t, args.Parts, 2)
	assert.Equal(t, quantities.Mass(1000), args.Parts[0].Mass)
	x, y, z := sunPos.XYZ()
	assert.Equal(t, [3]float64{10, 20, 30}, [3]float64{x, y, z})
}

func TestParseAddVesselToNextPhysicsBubbleTooFewParts(t *testing.T) {
	p := newTestParser()
	_, _, err := p.ParseAddVesselToNextPhysicsBubble([]string{
		"vessel-1", "0", "0", "0", "2", "1000", "1", "2", "3", "0", "0", "0",
	})
	assert.Error(t, err)
}

func TestParseVesselFromParent(t *testing.T) {
	p := newTestParser()
	args, err := p.ParseVesselFromParent([]string{"vessel-1"})
	require.NoError(t, err)
	assert.Equal(t, "vessel-1", args.GUID)
}
