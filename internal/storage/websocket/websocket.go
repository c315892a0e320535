// Package websocket pushes freshly rendered vessel trajectories to
// connected visualizer clients (spec §4.6's query surface, streamed
// live instead of polled).
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/OCAP2/extension/v5/internal/render"
	"github.com/OCAP2/extension/v5/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams rendered trajectories over WebSocket to connected
// visualizer clients. It is a purely additive query surface — nothing
// about plugin semantics depends on it being reachable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket streaming backend.
func New(cfg Config) *Backend {
	return &Backend{
		conn: newConnection(slog.Default()),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// AnnounceSession sends session_start and caches it for replay after a
// reconnect, so that after this backend drops and redials, the server
// learns the session's sun index and step size again before any further
// render_update arrives.
func (b *Backend) AnnounceSession(sunIndex int, deltaT float64) error {
	data, err := marshalEnvelope(streaming.TypeSessionStart, streaming.SessionStartPayload{
		SunIndex: sunIndex,
		DeltaT:   deltaT,
	})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeSessionStart, ackTimeout)
}

// EndSession sends session_end and clears the cached replay message.
func (b *Backend) EndSession() error {
	err := b.sendEnvelope(streaming.TypeSessionEnd, nil)

	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

// PushTrajectory streams one vessel's freshly rendered trajectory.
func (b *Backend) PushTrajectory(vesselGUID string, traj render.Trajectory, atTime float64) error {
	segments := make([]streaming.LineSegment, len(traj))
	for i, seg := range traj {
		bx, by, bz := seg.Begin.XYZ()
		ex, ey, ez := seg.End.XYZ()
		segments[i] = streaming.LineSegment{
			Begin: streaming.Point3{X: bx, Y: by, Z: bz},
			End:   streaming.Point3{X: ex, Y: ey, Z: ez},
		}
	}
	return b.sendEnvelope(streaming.TypeRenderUpdate, streaming.RenderUpdatePayload{
		VesselGUID: vesselGUID,
		Segments:   segments,
		AtTime:     atTime,
	})
}
