package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geo"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/render"
	"github.com/OCAP2/extension/v5/internal/worker"
)

// PluginState is the read-only snapshot the debug surface reports for
// /debug/state: the worker Manager's Plugin counts and ambient session
// fields, the same fields internal/monitor samples for telemetry.
type PluginState struct {
	Initializing      bool    `json:"initializing"`
	CurrentTime       float64 `json:"currentTime"`
	SunIndex          int     `json:"sunIndex"`
	VesselCount       int     `json:"vesselCount"`
	CelestialCount    int     `json:"celestialCount"`
	BubbleVesselCount int     `json:"bubbleVesselCount"`
}

// DebugServer exposes a read-only HTTP query surface over a running
// worker.Manager's Plugin state: current counts, and a vessel's
// rendered trajectory as WKT for inspection in a GIS viewer. Built on
// net/http alone, the same way internal/api's upload Client sticks to
// the standard library for a small, auth-free surface with no routing
// complexity to justify a third-party router.
type DebugServer struct {
	manager *worker.Manager
}

// NewDebugServer creates a DebugServer over manager. manager's Plugin
// may still be nil (before the New command runs); handlers report that
// as 409 Conflict rather than panicking.
func NewDebugServer(manager *worker.Manager) *DebugServer {
	return &DebugServer{manager: manager}
}

// Handler builds the mux routing /debug/state and
// /debug/vessels/{guid}/trajectory.
func (s *DebugServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /debug/state", s.handleState)
	mux.HandleFunc("GET /debug/vessels/{guid}/trajectory", s.handleVesselTrajectory)
	return mux
}

func (s *DebugServer) handleState(w http.ResponseWriter, r *http.Request) {
	p := s.manager.Plugin()
	if p == nil {
		http.Error(w, "plugin not yet created", http.StatusConflict)
		return
	}

	state := PluginState{
		Initializing:      p.IsInitializing(),
		CurrentTime:       float64(p.CurrentTime()),
		SunIndex:          s.manager.Session().SunIndex(),
		VesselCount:       p.VesselCount(),
		CelestialCount:    p.CelestialCount(),
		BubbleVesselCount: p.BubbleVesselCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(state)
}

// handleVesselTrajectory renders {guid}'s current trajectory relative
// to the sun placed at the sunX/sunY/sunZ query parameters (default the
// World origin) and writes it back as WKT LINESTRING Z text, built with
// internal/geo.TrajectoryLineString.
func (s *DebugServer) handleVesselTrajectory(w http.ResponseWriter, r *http.Request) {
	p := s.manager.Plugin()
	if p == nil {
		http.Error(w, "plugin not yet created", http.StatusConflict)
		return
	}

	guid := r.PathValue("guid")
	if !p.HasVessel(guid) {
		http.Error(w, "unknown vessel "+guid, http.StatusNotFound)
		return
	}

	sunX, err := floatQueryParam(r, "sunX", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sunY, err := floatQueryParam(r, "sunY", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sunZ, err := floatQueryParam(r, "sunZ", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sunWorldPosition := geometry.NewPoint[frames.World](sunX, sunY, sunZ)

	traj := p.RenderedVesselTrajectory(guid, sunWorldPosition)
	points := trajectoryPoints(traj)
	if len(points) < 2 {
		http.Error(w, "vessel has no rendered trajectory (unsynchronized or too short)", http.StatusUnprocessableEntity)
		return
	}

	ls, err := geo.TrajectoryLineString(points)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(ls.AsText()))
}

// trajectoryPoints flattens a render.Trajectory's consecutive line
// segments into its ordered vertex sequence.
func trajectoryPoints(traj render.Trajectory) [][3]float64 {
	if len(traj) == 0 {
		return nil
	}
	points := make([][3]float64, 0, len(traj)+1)
	x, y, z := traj[0].Begin.XYZ()
	points = append(points, [3]float64{x, y, z})
	for _, seg := range traj {
		x, y, z := seg.End.XYZ()
		points = append(points, [3]float64{x, y, z})
	}
	return points
}

func floatQueryParam(r *http.Request, key string, fallback float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
