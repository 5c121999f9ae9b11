// Package convert provides functions to convert core records into GORM models.
package convert

import (
	"encoding/json"

	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/internal/model"
	"github.com/citadel-raid/raidnav/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// eventPayload holds the kind-specific fields of a run event.
type eventPayload struct {
	Cell   *core.Cell `json:"cell,omitempty"`
	PortID *int       `json:"portId,omitempty"`
	Phase  string     `json:"phase,omitempty"`
	Detail string     `json:"detail,omitempty"`
}

// toJSON marshals v, falling back to an empty object.
func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToRun converts a run and the grid it was simulated on. cfg is stored as
// the run's configuration snapshot and may be nil.
func CoreToRun(r core.Run, grid core.GridInfo, cfg any) model.Run {
	config := datatypes.JSON("{}")
	if cfg != nil {
		config = toJSON(cfg)
	}
	run := model.Run{
		UUID:      r.UUID,
		Name:      r.Name,
		StartTime: r.StartTime,
		Seed:      r.Seed,
		TickRate:  float32(r.TickRate),
		Grid:      CoreToGridInfo(grid),
		Config:    config,
	}
	run.ID = r.ID
	return run
}

// CoreToGridInfo converts the grid summary.
func CoreToGridInfo(g core.GridInfo) model.GridInfo {
	return model.GridInfo{
		RingCount:    uint16(g.RingCount),
		TilesPerRing: uint16(g.TilesPerRing),
		InnerRadius:  float32(g.InnerRadius),
		RingSpacing:  float32(g.RingSpacing),
		BandLow:      uint16(g.BandLow),
		BandHigh:     uint16(g.BandHigh),
		PortCount:    uint16(g.PortCount),
		PortDistance: float32(g.PortDistance),
	}
}

// CoreToVessel converts a vessel registration.
// core.Vessel.ID maps to GORM Vessel.VesselID.
func CoreToVessel(v core.Vessel) model.Vessel {
	return model.Vessel{
		VesselID:      uint16(v.ID),
		Class:         v.Class,
		SpawnTick:     v.SpawnTick,
		SpawnTime:     v.SpawnTime,
		SpawnPosition: geo.PointFromPosition(v.SpawnPosition),
	}
}

// CoreToVesselState converts a captured vessel state.
func CoreToVesselState(s core.VesselState) model.VesselState {
	return model.VesselState{
		VesselID: uint16(s.VesselID),
		Tick:     s.Tick,
		Time:     s.Time,
		Position: geo.PointFromPosition(s.Position),
		Heading:  float32(s.Heading),
		Speed:    float32(s.Speed),
		Phase:    s.Phase,
	}
}

// CoreToRunEvent converts a vessel notification. Cell, port, phase and detail
// are folded into the JSON payload.
func CoreToRunEvent(e core.RunEvent) model.RunEvent {
	return model.RunEvent{
		VesselID: uint16(e.VesselID),
		Tick:     e.Tick,
		Time:     e.Time,
		Kind:     string(e.Kind),
		Position: geo.PointFromPosition(e.Position),
		Payload: toJSON(eventPayload{
			Cell:   e.Cell,
			PortID: e.PortID,
			Phase:  e.Phase,
			Detail: e.Detail,
		}),
	}
}

// CoreToPathPlan converts a planned path. Plans shorter than two tiles get an
// empty line string; the cell list is kept either way.
func CoreToPathPlan(p core.PathRecord) model.PathPlan {
	ls, err := geo.LineStringFromPositions(p.Positions)
	if err != nil {
		ls = geom.LineString{}
	}
	cells := p.Cells
	if cells == nil {
		cells = []core.Cell{}
	}
	return model.PathPlan{
		VesselID:  uint16(p.VesselID),
		Tick:      p.Tick,
		Time:      p.Time,
		Direction: p.Direction.String(),
		Path:      ls,
		Cells:     toJSON(cells),
	}
}

// CoreToRaidResult converts a wave outcome.
func CoreToRaidResult(r core.RaidResult) model.RaidResult {
	return model.RaidResult{
		Tick:       r.Tick,
		Time:       r.Time,
		Successful: r.Successful,
		Finished:   uint16(r.Finished),
		Destroyed:  uint16(r.Destroyed),
		Withdrawn:  uint16(r.Withdrawn),
	}
}
