package worker

import (
	"fmt"
	"time"

	"github.com/OCAP2/extension/v5/internal/bubble"
	"github.com/OCAP2/extension/v5/internal/dispatcher"
	"github.com/OCAP2/extension/v5/internal/mission"
	"github.com/OCAP2/extension/v5/internal/plugin"
)

// Command names for the ordered contract of spec §6, colon-delimited in
// the same style as the teacher's own command keys.
const (
	CmdNew                          = ":NEW:"
	CmdInsertCelestial              = ":INSERT:CELESTIAL:"
	CmdEndInitialization            = ":END:INITIALIZATION:"
	CmdUpdateCelestialHierarchy     = ":UPDATE:CELESTIAL:HIERARCHY:"
	CmdInsertOrKeepVessel           = ":INSERT:VESSEL:"
	CmdSetVesselStateOffset         = ":SET:VESSEL:STATE:OFFSET:"
	CmdAddVesselToNextPhysicsBubble = ":ADD:VESSEL:BUBBLE:"
	CmdAdvanceTime                  = ":ADVANCE:TIME:"
	CmdVesselFromParent             = ":VESSEL:FROM:PARENT:"
	CmdCelestialFromParent          = ":CELESTIAL:FROM:PARENT:"
	CmdRenderedVesselTrajectory     = ":VESSEL:TRAJECTORY:"
	CmdPhysicsBubbleIsEmpty         = ":BUBBLE:EMPTY:"
	CmdCurrentTime                  = ":CURRENT:TIME:"
	CmdIsInitializing               = ":IS:INITIALIZING:"
)

// RegisterHandlers registers one dispatcher handler per command in
// spec §6's ordered contract. None are Buffered: spec §5 requires every
// core method to run to completion on the caller's goroutine, and a
// query handler has nowhere to put its return value if it hands the
// event off to a worker goroutine instead of answering inline.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdNew, m.handleNew, dispatcher.Logged())
	d.Register(CmdInsertCelestial, m.handleInsertCelestial, dispatcher.Logged())
	d.Register(CmdEndInitialization, m.handleEndInitialization, dispatcher.Logged())
	d.Register(CmdUpdateCelestialHierarchy, m.handleUpdateCelestialHierarchy, dispatcher.Logged())
	d.Register(CmdInsertOrKeepVessel, m.handleInsertOrKeepVessel, dispatcher.Logged())
	d.Register(CmdSetVesselStateOffset, m.handleSetVesselStateOffset, dispatcher.Logged())
	d.Register(CmdAddVesselToNextPhysicsBubble, m.handleAddVesselToNextPhysicsBubble, dispatcher.Logged())
	d.Register(CmdAdvanceTime, m.handleAdvanceTime, dispatcher.Logged())
	d.Register(CmdVesselFromParent, m.handleVesselFromParent)
	d.Register(CmdCelestialFromParent, m.handleCelestialFromParent)
	d.Register(CmdRenderedVesselTrajectory, m.handleRenderedVesselTrajectory)
	d.Register(CmdPhysicsBubbleIsEmpty, m.handlePhysicsBubbleIsEmpty)
	d.Register(CmdCurrentTime, m.handleCurrentTime)
	d.Register(CmdIsInitializing, m.handleIsInitializing)
}

func (m *Manager) handleNew(e dispatcher.Event) (any, error) {
	args, err := m.parser.ParseNew(e.Args)
	if err != nil {
		return nil, fmt.Errorf("worker: New: %w", err)
	}
	m.plugin = plugin.New(args.InitialTime, args.SunIndex, args.SunMu, args.PlanetariumRotation)
	m.session = mission.NewContext(args.InitialTime, args.SunIndex)

	if m.streamer != nil {
		if announcer, ok := m.streamer.(SessionAnnouncer); ok {
			if err := announcer.AnnounceSession(args.SunIndex, float64(m.plugin.DeltaT())); err != nil {
				return nil, fmt.Errorf("worker: New: announcing session: %w", err)
			}
		}
	}
	return nil, nil
}

func (m *Manager) handleInsertCelestial(e dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	args, err := m.parser.ParseInsertCelestial(e.Args)
	if err != nil {
		return nil, fmt.Errorf("worker: InsertCelestial: %w", err)
	}
	m.plugin.InsertCelestial(args.Index, args.Mu, args.ParentIndex, args.FromParent)
	return nil, nil
}

func (m *Manager) handleEndInitialization(_ dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	m.plugin.EndInitialization()
	m.session.EndInitialization()
	return nil, nil
}

func (m *Manager) handleUpdateCelestialHierarchy(e dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	args, err := m.parser.ParseUpdateCelestialHierarchy(e.Args)
	if err != nil {
		return nil, fmt.Errorf("worker: UpdateCelestialHierarchy: %w", err)
	}
	m.plugin.UpdateCelestialHierarchy(args.Index, args.ParentIndex)
	return nil, nil
}

func (m *Manager) handleInsertOrKeepVessel(e dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	args, err := m.parser.ParseInsertOrKeepVessel(e.Args)
	if err != nil {
		return nil, fmt.Errorf("worker: InsertOrKeepVessel: %w", err)
	}
	return m.plugin.InsertOrKeepVessel(args.GUID, args.ParentIndex), nil
}

func (m *Manager) handleSetVesselStateOffset(e dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	args, err := m.parser.ParseSetVesselStateOffset(e.Args)
	if err != nil {
		return nil, fmt.Errorf("worker: SetVesselStateOffset: %w", err)
	}
	m.plugin.SetVesselStateOffset(args.GUID, args.FromParent)
	return nil, nil
}

func (m *Manager) handleAddVesselToNextPhysicsBubble(e dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	args, sunWorldPosition, err := m.parser.ParseAddVesselToNextPhysicsBubble(e.Args)
	if err != nil {
		return nil, fmt.Errorf("worker: AddVesselToNextPhysicsBubble: %w", err)
	}
	worldParts := make([]bubble.WorldPart, len(args.Parts))
	for i, part := range args.Parts {
		worldParts[i] = bubble.WorldPart{ID: part.ID, Mass: part.Mass, Dof: part.Dof}
	}
	m.plugin.AddVesselToNextPhysicsBubble(args.GUID, worldParts, sunWorldPosition)
	return nil, nil
}

func (m *Manager) handleAdvanceTime(e dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	args, err := m.parser.ParseAdvanceTime(e.Args)
	if err != nil {
		return nil, fmt.Errorf("worker: AdvanceTime: %w", err)
	}
	m.plugin.AdvanceTime(args.Target, args.PlanetariumRotation)
	m.session.Advance(args.Target, args.PlanetariumRotation)

	if m.backend != nil {
		data, err := m.plugin.Snapshot().Serialize()
		if err != nil {
			return nil, fmt.Errorf("worker: AdvanceTime: serializing snapshot: %w", err)
		}
		start := time.Now()
		writeErr := m.backend.WriteSnapshot(data)
		m.lastWriteMu.Lock()
		m.lastWriteDuration = time.Since(start)
		m.lastWriteMu.Unlock()
		if writeErr != nil {
			return nil, fmt.Errorf("worker: AdvanceTime: writing snapshot: %w", writeErr)
		}
	}
	return nil, nil
}

func (m *Manager) handleVesselFromParent(e dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	args, err := m.parser.ParseVesselFromParent(e.Args)
	if err != nil {
		return nil, fmt.Errorf("worker: VesselFromParent: %w", err)
	}
	return m.plugin.VesselFromParent(args.GUID), nil
}

func (m *Manager) handleCelestialFromParent(e dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	args, err := m.parser.ParseCelestialFromParent(e.Args)
	if err != nil {
		return nil, fmt.Errorf("worker: CelestialFromParent: %w", err)
	}
	return m.plugin.CelestialFromParent(args.Index), nil
}

func (m *Manager) handleRenderedVesselTrajectory(e dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	args, sunWorldPosition, err := m.parser.ParseRenderedVesselTrajectory(e.Args)
	if err != nil {
		return nil, fmt.Errorf("worker: RenderedVesselTrajectory: %w", err)
	}
	traj := m.plugin.RenderedVesselTrajectory(args.GUID, sunWorldPosition)

	if m.streamer != nil {
		if err := m.streamer.PushTrajectory(args.GUID, traj, float64(m.plugin.CurrentTime())); err != nil {
			return nil, fmt.Errorf("worker: RenderedVesselTrajectory: pushing to streamer: %w", err)
		}
	}
	return traj, nil
}

func (m *Manager) handlePhysicsBubbleIsEmpty(_ dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	return m.plugin.PhysicsBubbleIsEmpty(), nil
}

func (m *Manager) handleCurrentTime(_ dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	return m.plugin.CurrentTime(), nil
}

func (m *Manager) handleIsInitializing(_ dispatcher.Event) (any, error) {
	if m.plugin == nil {
		return nil, ErrNotInitialized
	}
	return m.plugin.IsInitializing(), nil
}
