package worker

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/extension/v5/internal/dispatcher"
	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/parser"
	"github.com/OCAP2/extension/v5/internal/render"
)

// fakeStreamer records the calls a Manager makes against a Streamer,
// without opening a real WebSocket connection.
type fakeStreamer struct {
	announcedSunIndex int
	announcedDeltaT   float64
	announced         bool
	ended             bool
	pushedGUID        string
	pushedAtTime      float64
	pushedTraj        render.Trajectory
}

func (f *fakeStreamer) AnnounceSession(sunIndex int, deltaT float64) error {
	f.announced = true
	f.announcedSunIndex = sunIndex
	f.announcedDeltaT = deltaT
	return nil
}

func (f *fakeStreamer) EndSession() error {
	f.ended = true
	return nil
}

func (f *fakeStreamer) PushTrajectory(vesselGUID string, traj render.Trajectory, atTime float64) error {
	f.pushedGUID = vesselGUID
	f.pushedTraj = traj
	f.pushedAtTime = atTime
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func newTestManager(t *testing.T) (*Manager, *dispatcher.Dispatcher) {
	d, err := dispatcher.New(noopLogger{})
	require.NoError(t, err)
	m := NewManager(parser.New(slog.Default()), nil, nil)
	m.RegisterHandlers(d)
	return m, d
}

func TestRegisterHandlersRegistersAllCommands(t *testing.T) {
	_, d := newTestManager(t)

	for _, cmd := range []string{
		CmdNew, CmdInsertCelestial, CmdEndInitialization, CmdUpdateCelestialHierarchy,
		CmdInsertOrKeepVessel, CmdSetVesselStateOffset, CmdAddVesselToNextPhysicsBubble,
		CmdAdvanceTime, CmdVesselFromParent, CmdCelestialFromParent,
		CmdRenderedVesselTrajectory, CmdPhysicsBubbleIsEmpty, CmdCurrentTime, CmdIsInitializing,
	} {
		assert.True(t, d.HasHandler(cmd), "expected handler for %s", cmd)
	}
}

func TestCommandsBeforeNewReturnErrNotInitialized(t *testing.T) {
	_, d := newTestManager(t)

	_, err := d.Dispatch(dispatcher.Event{Command: CmdCurrentTime})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestHappyPathThroughDispatcher(t *testing.T) {
	m, d := newTestManager(t)

	_, err := d.Dispatch(dispatcher.Event{Command: CmdNew, Args: []string{"0", "0", "1.327e20", "0"}})
	require.NoError(t, err)
	require.NotNil(t, m.Plugin())

	_, err = d.Dispatch(dispatcher.Event{
		Command: CmdInsertCelestial,
		Args:    []string{"1", "3.986e14", "0", "1.496e11", "0", "0", "0", "29780", "0"},
	})
	require.NoError(t, err)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdEndInitialization})
	require.NoError(t, err)

	isInit, err := d.Dispatch(dispatcher.Event{Command: CmdIsInitializing})
	require.NoError(t, err)
	assert.Equal(t, false, isInit)

	result, err := d.Dispatch(dispatcher.Event{
		Command: CmdInsertOrKeepVessel,
		Args:    []string{"v", "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, true, result)

	_, err = d.Dispatch(dispatcher.Event{
		Command: CmdSetVesselStateOffset,
		Args:    []string{"v", "1e7", "0", "0", "0", "1e3", "0"},
	})
	require.NoError(t, err)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdAdvanceTime, Args: []string{"10", "0"}})
	require.NoError(t, err)

	rel, err := d.Dispatch(dispatcher.Event{Command: CmdVesselFromParent, Args: []string{"v"}})
	require.NoError(t, err)
	offset, ok := rel.(geometry.RelativeDegreesOfFreedom[frames.AliceSun])
	require.True(t, ok)
	x, _, _ := offset.Displacement.XYZ()
	assert.InDelta(t, 1e7, x, 1e6)

	empty, err := d.Dispatch(dispatcher.Event{Command: CmdPhysicsBubbleIsEmpty})
	require.NoError(t, err)
	assert.Equal(t, true, empty)
}

func TestNewAnnouncesSessionToStreamer(t *testing.T) {
	streamer := &fakeStreamer{}
	d, err := dispatcher.New(noopLogger{})
	require.NoError(t, err)
	m := NewManager(parser.New(slog.Default()), nil, streamer)
	m.RegisterHandlers(d)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdNew, Args: []string{"0", "0", "1.327e20", "0"}})
	require.NoError(t, err)

	assert.True(t, streamer.announced)
	assert.Equal(t, 0, streamer.announcedSunIndex)
	assert.Equal(t, float64(m.plugin.DeltaT()), streamer.announcedDeltaT)

	require.NoError(t, m.Close())
	assert.True(t, streamer.ended)
}

func TestRenderedVesselTrajectoryPushesToStreamer(t *testing.T) {
	streamer := &fakeStreamer{}
	d, err := dispatcher.New(noopLogger{})
	require.NoError(t, err)
	m := NewManager(parser.New(slog.Default()), nil, streamer)
	m.RegisterHandlers(d)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdNew, Args: []string{"0", "0", "1.327e20", "0"}})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{
		Command: CmdInsertCelestial,
		Args:    []string{"1", "3.986e14", "0", "1.496e11", "0", "0", "0", "29780", "0"},
	})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{Command: CmdEndInitialization})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{
		Command: CmdInsertOrKeepVessel,
		Args:    []string{"v", "1"},
	})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{
		Command: CmdSetVesselStateOffset,
		Args:    []string{"v", "1e7", "0", "0", "0", "1e3", "0"},
	})
	require.NoError(t, err)

	result, err := d.Dispatch(dispatcher.Event{
		Command: CmdRenderedVesselTrajectory,
		Args:    []string{"v", "0", "0", "0"},
	})
	require.NoError(t, err)

	assert.Equal(t, "v", streamer.pushedGUID)
	assert.Equal(t, result, streamer.pushedTraj)
}
