package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/extension/v5/internal/dispatcher"
	"github.com/OCAP2/extension/v5/internal/parser"
	"github.com/OCAP2/extension/v5/internal/worker"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func TestDebugStateBeforeNewReturnsConflict(t *testing.T) {
	m := worker.NewManager(parser.New(slog.Default()), nil, nil)
	srv := httptest.NewServer(NewDebugServer(m).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDebugStateAfterNewReportsCounts(t *testing.T) {
	m := worker.NewManager(parser.New(slog.Default()), nil, nil)
	d, err := dispatcher.New(noopLogger{})
	require.NoError(t, err)
	m.RegisterHandlers(d)

	_, err = d.Dispatch(dispatcher.Event{Command: worker.CmdNew, Args: []string{"0", "0", "1.327e20", "0"}})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{
		Command: worker.CmdInsertCelestial,
		Args:    []string{"1", "3.986e14", "0", "1.496e11", "0", "0", "0", "29780", "0"},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewDebugServer(m).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var state PluginState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, 2, state.CelestialCount)
	assert.True(t, state.Initializing)
}

func TestDebugVesselTrajectoryUnknownVesselReturnsNotFound(t *testing.T) {
	m := worker.NewManager(parser.New(slog.Default()), nil, nil)
	d, err := dispatcher.New(noopLogger{})
	require.NoError(t, err)
	m.RegisterHandlers(d)

	_, err = d.Dispatch(dispatcher.Event{Command: worker.CmdNew, Args: []string{"0", "0", "1.327e20", "0"}})
	require.NoError(t, err)

	srv := httptest.NewServer(NewDebugServer(m).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/vessels/nope/trajectory")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDebugVesselTrajectoryUnsynchronizedReturnsUnprocessable(t *testing.T) {
	m := worker.NewManager(parser.New(slog.Default()), nil, nil)
	d, err := dispatcher.New(noopLogger{})
	require.NoError(t, err)
	m.RegisterHandlers(d)

	_, err = d.Dispatch(dispatcher.Event{Command: worker.CmdNew, Args: []string{"0", "0", "1.327e20", "0"}})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{
		Command: worker.CmdInsertCelestial,
		Args:    []string{"1", "3.986e14", "0", "1.496e11", "0", "0", "0", "29780", "0"},
	})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{Command: worker.CmdEndInitialization})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{
		Command: worker.CmdInsertOrKeepVessel,
		Args:    []string{"v", "1"},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewDebugServer(m).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/vessels/v/trajectory")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
