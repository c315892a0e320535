package monitor

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/extension/v5/internal/dispatcher"
	"github.com/OCAP2/extension/v5/internal/logging"
	"github.com/OCAP2/extension/v5/internal/parser"
	"github.com/OCAP2/extension/v5/internal/worker"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func TestSampleBeforeNewReportsInitializing(t *testing.T) {
	wm := worker.NewManager(parser.New(slog.Default()), nil, nil)
	s := NewService(Dependencies{WorkerManager: wm})

	sample := s.Sample()
	assert.True(t, sample.IsInitializing)
	assert.Equal(t, 0, sample.VesselCount)
	assert.Equal(t, 0, sample.CelestialCount)
}

func TestSampleAfterNewReportsPluginState(t *testing.T) {
	d, err := dispatcher.New(noopLogger{})
	require.NoError(t, err)
	wm := worker.NewManager(parser.New(slog.Default()), nil, nil)
	wm.RegisterHandlers(d)

	_, err = d.Dispatch(dispatcher.Event{Command: worker.CmdNew, Args: []string{"0", "0", "1.327e20", "0"}})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{
		Command: worker.CmdInsertCelestial,
		Args:    []string{"1", "3.986e14", "0", "1.496e11", "0", "0", "0", "29780", "0"},
	})
	require.NoError(t, err)

	s := NewService(Dependencies{WorkerManager: wm})
	sample := s.Sample()

	assert.True(t, sample.IsInitializing)
	assert.Equal(t, 0, sample.SunIndex)
	assert.Equal(t, 2, sample.CelestialCount)
	assert.Equal(t, 0, sample.VesselCount)
	assert.Equal(t, 0, sample.BubbleVesselCount)
}

func TestServiceStartStop(t *testing.T) {
	wm := worker.NewManager(parser.New(slog.Default()), nil, nil)
	logManager := logging.NewSlogManager()
	logManager.Setup(io.Discard, "INFO", nil)
	s := NewService(Dependencies{WorkerManager: wm, LogManager: logManager, AddonFolder: t.TempDir()})

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	s.Stop()
}
