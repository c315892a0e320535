// Package worker wires the command dispatch/parsing layers
// (internal/dispatcher, internal/parser) into internal/plugin: one
// Manager registers one dispatcher handler per command in spec §6's
// ordered contract, and turns each dispatched Event into the matching
// call against the *plugin.Plugin the New command creates.
package worker

import (
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/extension/v5/internal/mission"
	"github.com/OCAP2/extension/v5/internal/parser"
	"github.com/OCAP2/extension/v5/internal/plugin"
	"github.com/OCAP2/extension/v5/internal/quantities"
	"github.com/OCAP2/extension/v5/internal/render"
	"github.com/OCAP2/extension/v5/internal/storage"
)

// ErrNotInitialized is returned by any command handler other than New
// when no Plugin has been created yet (spec §6: New must be the first
// command of a session).
var ErrNotInitialized = fmt.Errorf("worker: plugin not yet created, New must be called first")

// Streamer pushes a freshly computed rendered trajectory to connected
// visualizer clients. Satisfied by internal/storage/websocket.Backend;
// kept as a narrow interface here so worker doesn't depend on the
// WebSocket package directly.
type Streamer interface {
	PushTrajectory(vesselGUID string, traj render.Trajectory, atTime float64) error
}

// SessionAnnouncer is an optional capability of a Streamer: a backend
// that needs to tell connected clients a new session has started (and
// at what cadence) before it can usefully accept PushTrajectory calls.
// Checked for with a type assertion in handleNew rather than folded
// into Streamer itself, since a streamer with no session concept (e.g.
// a future in-process test double) shouldn't be forced to implement it.
type SessionAnnouncer interface {
	AnnounceSession(sunIndex int, deltaT float64) error
}

// SessionEnder is the EndSession half of SessionAnnouncer, called from
// Manager.Close.
type SessionEnder interface {
	EndSession() error
}

// Manager dispatches the ordered command contract of spec §6 onto a
// *plugin.Plugin, mirroring each command's outcome into a
// *mission.Context so ambient session state stays observable
// independently of Plugin, persisting a snapshot to backend after
// every AdvanceTime, and pushing rendered trajectories to streamer as
// they're computed.
type Manager struct {
	plugin   *plugin.Plugin
	session  *mission.Context
	parser   *parser.Parser
	backend  storage.Backend
	streamer Streamer

	lastWriteMu       sync.RWMutex
	lastWriteDuration time.Duration
}

// NewManager creates a Manager with no Plugin yet; the New command
// (handleNew) creates one. backend and streamer may be nil, disabling
// persistence and live streaming respectively.
func NewManager(parserSvc *parser.Parser, backend storage.Backend, streamer Streamer) *Manager {
	return &Manager{parser: parserSvc, backend: backend, streamer: streamer}
}

// Restore creates a Manager whose Plugin is rebuilt from a previously
// persisted Snapshot (spec §6 "Persistence"), skipping the New command
// entirely — the restored Plugin is already past initialization if the
// snapshot was taken post-latch.
func Restore(parserSvc *parser.Parser, backend storage.Backend, streamer Streamer, snapshot *plugin.Snapshot) *Manager {
	p := plugin.Restore(snapshot)
	session := mission.NewContext(quantities.Instant(snapshot.CurrentTime), snapshot.SunIndex)
	if !p.IsInitializing() {
		session.EndInitialization()
	}
	session.Advance(quantities.Instant(snapshot.CurrentTime), quantities.Angle(snapshot.PlanetariumRotation))
	return &Manager{plugin: p, session: session, parser: parserSvc, backend: backend, streamer: streamer}
}

// Plugin exposes the underlying Plugin for callers that need direct
// access outside the dispatched command set (e.g. a debug query
// surface). Nil until the New command has run.
func (m *Manager) Plugin() *plugin.Plugin { return m.plugin }

// Session exposes the ambient session context mirrored alongside Plugin.
func (m *Manager) Session() *mission.Context { return m.session }

// LastSnapshotWriteDuration returns how long the most recent
// WriteSnapshot call (from AdvanceTime) took, for telemetry callers.
// Zero if no snapshot has been written yet.
func (m *Manager) LastSnapshotWriteDuration() time.Duration {
	m.lastWriteMu.RLock()
	defer m.lastWriteMu.RUnlock()
	return m.lastWriteDuration
}

// Close tells the streamer, if one is configured and supports it, that
// the session has ended. It does not touch backend: the storage
// Backend's lifecycle is owned by whoever constructed it, since it may
// outlive a single Manager across a Restore.
func (m *Manager) Close() error {
	if ender, ok := m.streamer.(SessionEnder); ok {
		return ender.EndSession()
	}
	return nil
}
