package plugin

import (
	"testing"

	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSnapshotRoundTrip is spec §8 scenario 6: write, read, advance both
// the original and the restored plugin by the same amount, and compare
// every vessel/celestial prolongation tail — they must be bitwise equal.
func TestSnapshotRoundTrip(t *testing.T) {
	p := New(0, 0, 1.327e20, 0)
	p.InsertCelestial(1, 3.986e14, 0, geometry.RelativeDegreesOfFreedom[frames.AliceSun]{
		Displacement: geometry.NewDisplacement[frames.AliceSun](1.496e11, 0, 0),
		Velocity:     geometry.NewVelocity[frames.AliceSun](0, 2.978e4, 0),
	})
	p.EndInitialization()
	p.InsertOrKeepVessel("v", 1)
	p.SetVesselStateOffset("v", smallOffset())
	p.AdvanceTime(10, 0)
	p.AdvanceTime(20, 0)

	snap := p.Snapshot()
	data, err := snap.Serialize()
	require.NoError(t, err)

	decoded, err := Deserialize(data)
	require.NoError(t, err)
	restored := Restore(decoded)

	p.InsertOrKeepVessel("v", 1)
	p.AdvanceTime(120, 0)

	restored.InsertOrKeepVessel("v", 1)
	restored.AdvanceTime(120, 0)

	for _, index := range []int{0, 1} {
		wantT, wantDof, wantOK := p.celestials[index].Prolongation().Last()
		gotT, gotDof, gotOK := restored.celestials[index].Prolongation().Last()
		require.Equal(t, wantOK, gotOK)
		assert.Equal(t, wantT, gotT)
		assert.Equal(t, wantDof, gotDof)
	}

	wantT, wantDof, wantOK := p.vessels["v"].Prolongation().Last()
	gotT, gotDof, gotOK := restored.vessels["v"].Prolongation().Last()
	require.Equal(t, wantOK, gotOK)
	assert.Equal(t, wantT, gotT)
	assert.Equal(t, wantDof, gotDof)
}
