package plugin

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"

	"github.com/OCAP2/extension/v5/internal/body"
	"github.com/OCAP2/extension/v5/internal/bubble"
	"github.com/OCAP2/extension/v5/internal/definitions"
	"github.com/OCAP2/extension/v5/internal/frames"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/quantities"
	"github.com/OCAP2/extension/v5/internal/vessel"
)

// sample is one (time, dof) pair of a trajectory's effective timeline,
// flattened to plain floats for gob encoding — spec §6's "opaque
// message-based snapshot" leaves the exact bytes implementation-defined,
// so there is no wire-compatibility requirement beyond this process's
// own write/read round trip.
type sample struct {
	T                  float64
	Px, Py, Pz         float64
	Vx, Vy, Vz         float64
}

func sampleOf(at quantities.Instant, dof geometry.DegreesOfFreedom[frames.Barycentric]) sample {
	px, py, pz := dof.Position.XYZ()
	vx, vy, vz := dof.Velocity.XYZ()
	return sample{T: float64(at), Px: px, Py: py, Pz: pz, Vx: vx, Vy: vy, Vz: vz}
}

func (s sample) dof() (quantities.Instant, geometry.DegreesOfFreedom[frames.Barycentric]) {
	return quantities.Instant(s.T), geometry.DegreesOfFreedom[frames.Barycentric]{
		Position: geometry.NewPoint[frames.Barycentric](s.Px, s.Py, s.Pz),
		Velocity: geometry.NewVelocity[frames.Barycentric](s.Vx, s.Vy, s.Vz),
	}
}

// CelestialSnapshot captures one celestial's identity and full history.
type CelestialSnapshot struct {
	Index       int
	Mu          float64
	HasOblate   bool
	J2          float64
	Radius      float64
	AxisX, AxisY, AxisZ float64
	ParentIndex int // -1 for the sun
	History     []sample
	Prolongation []sample
}

// VesselSnapshot captures one vessel's identity, sync state, and history.
type VesselSnapshot struct {
	GUID         string
	ParentIndex  int
	Synchronized bool
	History      []sample // empty when unsynchronized
	Prolongation []sample
}

// Snapshot is the opaque, implementation-defined persisted state of a
// Plugin (spec §6 "Persistence"): everything needed for a restored
// Plugin's next observable behavior to equal the original's.
type Snapshot struct {
	SunIndex            int
	CurrentTime         float64
	PlanetariumRotation float64
	DeltaT              float64
	Celestials          []CelestialSnapshot
	Vessels             []VesselSnapshot
}

// Snapshot captures the plugin's complete current state.
func (p *Plugin) Snapshot() *Snapshot {
	s := &Snapshot{
		SunIndex:            p.sunIndex,
		CurrentTime:         float64(p.currentTime),
		PlanetariumRotation: float64(p.planetariumRotation),
		DeltaT:              float64(p.deltaT),
	}

	for index, c := range p.celestials {
		cs := CelestialSnapshot{Index: index, Mu: float64(c.Body.GravitationalParameter()), ParentIndex: -1}
		if c.HasParent() {
			cs.ParentIndex = c.Parent.Index
		}
		if o, ok := c.Body.Oblateness(); ok {
			cs.HasOblate = true
			cs.J2 = o.J2
			cs.Radius = float64(o.Radius)
			cs.AxisX, cs.AxisY, cs.AxisZ = o.AxisX, o.AxisY, o.AxisZ
		}
		c.History().Iterator(func(at quantities.Instant, dof geometry.DegreesOfFreedom[frames.Barycentric]) bool {
			cs.History = append(cs.History, sampleOf(at, dof))
			return true
		})
		c.Prolongation().Iterator(func(at quantities.Instant, dof geometry.DegreesOfFreedom[frames.Barycentric]) bool {
			cs.Prolongation = append(cs.Prolongation, sampleOf(at, dof))
			return true
		})
		s.Celestials = append(s.Celestials, cs)
	}
	sort.Slice(s.Celestials, func(i, j int) bool { return s.Celestials[i].Index < s.Celestials[j].Index })

	for guid, v := range p.vessels {
		if v.Prolongation() == nil {
			// Placeholder registered by InsertOrKeepVessel, awaiting its
			// mandatory SetVesselStateOffset call; nothing to snapshot yet.
			continue
		}
		vs := VesselSnapshot{GUID: guid, ParentIndex: v.ParentIndex, Synchronized: v.IsSynchronized()}
		if vs.Synchronized {
			v.History().Iterator(func(at quantities.Instant, dof geometry.DegreesOfFreedom[frames.Barycentric]) bool {
				vs.History = append(vs.History, sampleOf(at, dof))
				return true
			})
		}
		v.Prolongation().Iterator(func(at quantities.Instant, dof geometry.DegreesOfFreedom[frames.Barycentric]) bool {
			vs.Prolongation = append(vs.Prolongation, sampleOf(at, dof))
			return true
		})
		s.Vessels = append(s.Vessels, vs)
	}
	sort.Slice(s.Vessels, func(i, j int) bool { return s.Vessels[i].GUID < s.Vessels[j].GUID })

	return s
}

// Serialize gob-encodes the snapshot; the exact bytes are
// implementation-defined per spec §6.
func (s *Snapshot) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("plugin: encoding snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a snapshot previously produced by Serialize.
func Deserialize(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("plugin: decoding snapshot: %w", err)
	}
	return &s, nil
}

// Restore reconstructs a Plugin whose next observable behavior equals
// the snapshotted original's (spec §6's persistence round-trip
// property). Celestials are restored in parent-before-child order;
// snapshots are only ever produced by Snapshot, which already orders
// celestials by increasing index, which matches insertion order for
// every plugin this package can construct.
func Restore(s *Snapshot) *Plugin {
	p := &Plugin{
		vessels:             map[string]*vessel.Vessel{},
		celestials:          map[int]*vessel.Celestial{},
		sunIndex:            s.SunIndex,
		unsynchronized:      map[string]bool{},
		dirty:               map[string]bool{},
		kept:                map[string]bool{},
		bubble:              bubble.New(),
		currentTime:         quantities.Instant(s.CurrentTime),
		planetariumRotation: quantities.Angle(s.PlanetariumRotation),
		deltaT:              quantities.Time(s.DeltaT),
		historyScheme:       definitions.McLachlanAtela(),
		prolongationScheme:  definitions.McLachlanAtela(),
		initializing:        false,
	}

	byIndex := map[int]CelestialSnapshot{}
	for _, cs := range s.Celestials {
		byIndex[cs.Index] = cs
	}
	var restoreCelestial func(index int) *vessel.Celestial
	restoreCelestial = func(index int) *vessel.Celestial {
		if c, ok := p.celestials[index]; ok {
			return c
		}
		cs := byIndex[index]
		var b body.Body
		if cs.HasOblate {
			b = body.MassiveOblate(quantities.GravitationalParameter(cs.Mu), body.Oblateness{
				J2:     cs.J2,
				Radius: quantities.Length(cs.Radius),
				AxisX:  cs.AxisX, AxisY: cs.AxisY, AxisZ: cs.AxisZ,
			})
		} else {
			b = body.Massive(quantities.GravitationalParameter(cs.Mu))
		}
		var parent *vessel.Celestial
		if cs.ParentIndex >= 0 {
			parent = restoreCelestial(cs.ParentIndex)
		}
		c := vessel.NewCelestial(index, &b, parent)
		if len(cs.History) > 0 {
			at, dof := cs.History[0].dof()
			c.CreateHistoryAndForkProlongation(at, dof)
			for _, smp := range cs.History[1:] {
				at, dof := smp.dof()
				c.History().Append(at, dof)
			}
			lastHistoryTime, _, _ := c.History().Last()
			c.ResetProlongation(lastHistoryTime)
			for _, smp := range cs.Prolongation {
				at, dof := smp.dof()
				if at <= lastHistoryTime {
					continue
				}
				c.Prolongation().Append(at, dof)
			}
		}
		p.celestials[index] = c
		return c
	}
	for _, cs := range s.Celestials {
		restoreCelestial(cs.Index)
	}

	for _, vs := range s.Vessels {
		if !vs.Synchronized {
			at0, dof0 := vs.Prolongation[0].dof()
			v := vessel.NewUnsynchronized(vs.GUID, vs.ParentIndex, at0, dof0)
			for _, smp := range vs.Prolongation[1:] {
				at, dof := smp.dof()
				v.Prolongation().Append(at, dof)
			}
			p.vessels[vs.GUID] = v
			p.unsynchronized[vs.GUID] = true
			continue
		}

		at0, dof0 := vs.History[0].dof()
		v := vessel.NewUnsynchronized(vs.GUID, vs.ParentIndex, at0, dof0)
		v.CreateHistory(at0, dof0)
		for _, smp := range vs.History[1:] {
			at, dof := smp.dof()
			v.AppendToHistory(at, dof)
		}
		lastHistoryTime, _, _ := v.History().Last()
		v.ResetProlongation(lastHistoryTime)
		for _, smp := range vs.Prolongation {
			at, dof := smp.dof()
			if at <= lastHistoryTime {
				continue
			}
			v.Prolongation().Append(at, dof)
		}
		p.vessels[vs.GUID] = v
	}

	return p
}
