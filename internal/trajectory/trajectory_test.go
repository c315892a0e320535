package trajectory

import (
	"testing"

	"github.com/OCAP2/extension/v5/internal/body"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/quantities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFrame struct{}

func (testFrame) FrameName() string { return "Test" }
func (testFrame) IsInertial() bool  { return true }

func dof(x float64) geometry.DegreesOfFreedom[testFrame] {
	return geometry.DegreesOfFreedom[testFrame]{
		Position: geometry.NewPoint[testFrame](x, 0, 0),
		Velocity: geometry.NewVelocity[testFrame](0, 0, 0),
	}
}

func newTimes(t *Trajectory[testFrame]) []quantities.Instant {
	var out []quantities.Instant
	t.Iterator(func(at quantities.Instant, _ geometry.DegreesOfFreedom[testFrame]) bool {
		out = append(out, at)
		return true
	})
	return out
}

func TestAppendMonotonicity(t *testing.T) {
	b := body.Massless()
	tr := New[testFrame](&b)
	tr.Append(0, dof(0))
	tr.Append(1, dof(1))
	assert.Panics(t, func() { tr.Append(1, dof(1)) })
	assert.Panics(t, func() { tr.Append(0, dof(0)) })
}

// TestForkMerge is spec §8 scenario 2: samples at t=0..5, fork at t=3,
// append 3.5 and 4.5 to the fork; the fork iterates to [0,1,2,3,3.5,4.5]
// and the parent is unaffected, iterating to [0,1,2,3,4,5].
func TestForkMerge(t *testing.T) {
	b := body.Massless()
	parent := New[testFrame](&b)
	for i := 0; i <= 5; i++ {
		parent.Append(quantities.Instant(i), dof(float64(i)))
	}

	fork := parent.Fork(3)
	fork.Append(3.5, dof(3.5))
	fork.Append(4.5, dof(4.5))

	assert.Equal(t, []quantities.Instant{0, 1, 2, 3, 3.5, 4.5}, newTimes(fork))
	assert.Equal(t, []quantities.Instant{0, 1, 2, 3, 4, 5}, newTimes(parent))
}

func TestForkRequiresExistingTime(t *testing.T) {
	b := body.Massless()
	tr := New[testFrame](&b)
	tr.Append(0, dof(0))
	tr.Append(1, dof(1))
	assert.Panics(t, func() { tr.Fork(0.5) })
}

func TestDeleteForkDestroysDescendants(t *testing.T) {
	b := body.Massless()
	root := New[testFrame](&b)
	root.Append(0, dof(0))

	child := root.Fork(0)
	child.Append(1, dof(1))
	grandchild := child.Fork(1)
	grandchild.Append(2, dof(2))

	root.DeleteFork(child)

	assert.Panics(t, func() { child.Last() })
	assert.Panics(t, func() { grandchild.Last() })
}

func TestLastFirstAndFind(t *testing.T) {
	b := body.Massless()
	root := New[testFrame](&b)
	root.Append(0, dof(0))
	root.Append(1, dof(1))

	firstT, _, ok := root.First()
	require.True(t, ok)
	assert.Equal(t, quantities.Instant(0), firstT)

	lastT, _, ok := root.Last()
	require.True(t, ok)
	assert.Equal(t, quantities.Instant(1), lastT)

	fork := root.Fork(1)
	lastT, _, ok = fork.Last()
	require.True(t, ok)
	assert.Equal(t, quantities.Instant(1), lastT)

	_, ok = fork.Find(0)
	assert.True(t, ok)
	_, ok = fork.Find(5)
	assert.False(t, ok)
}

func TestTransformingIterator(t *testing.T) {
	b := body.Massless()
	root := New[testFrame](&b)
	root.Append(0, dof(1))
	root.Append(1, dof(2))

	doubled := TransformingIterator[testFrame, testFrame](root, func(_ *Trajectory[testFrame], _ quantities.Instant, d geometry.DegreesOfFreedom[testFrame]) geometry.DegreesOfFreedom[testFrame] {
		x, _, _ := d.Position.XYZ()
		return dof(x * 2)
	})

	var xs []float64
	doubled(func(_ quantities.Instant, d geometry.DegreesOfFreedom[testFrame]) bool {
		x, _, _ := d.Position.XYZ()
		xs = append(xs, x)
		return true
	})
	assert.Equal(t, []float64{2, 4}, xs)
}
