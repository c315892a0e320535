// Package streaming defines the wire message envelope pushed to
// connected visualizer clients over the live render stream.
package streaming

import "encoding/json"

// Message type constants for the streaming protocol.
const (
	TypeSessionStart = "session_start"
	TypeSessionEnd   = "session_end"
	TypeRenderUpdate = "render_update"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SessionStartPayload announces a new plugin session to the server,
// so reconnecting clients know which session a replayed render_update
// belongs to.
type SessionStartPayload struct {
	SunIndex int     `json:"sunIndex"`
	DeltaT   float64 `json:"deltaT"`
}

// Point3 is a plain (x, y, z) triple in the World frame, independent of
// the physics core's phantom-typed geometry so this package carries no
// dependency on internal/geometry.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LineSegment is one rendered polyline segment in the World frame.
type LineSegment struct {
	Begin Point3 `json:"begin"`
	End   Point3 `json:"end"`
}

// RenderUpdatePayload carries one vessel's freshly rendered trajectory,
// pushed each time the RenderedVesselTrajectory command computes one.
type RenderUpdatePayload struct {
	VesselGUID string        `json:"vesselGuid"`
	Segments   []LineSegment `json:"segments"`
	AtTime     float64       `json:"atTime"`
}
