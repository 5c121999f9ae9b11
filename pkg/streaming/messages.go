// Package streaming defines the messages a run is streamed as over a websocket.
package streaming

import (
	"encoding/json"
	"time"

	"github.com/citadel-raid/raidnav/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun    = "start_run"
	TypeEndRun      = "end_run"
	TypeAddVessel   = "add_vessel"
	TypeVesselState = "vessel_state"
	TypeRunEvent    = "run_event"
	TypePathPlan    = "path_plan"
	TypeRaidResult  = "raid_result"
	TypeAck         = "ack"
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

// Grid describes the geometry of a run.
type Grid struct {
	RingCount    int     `json:"ringCount"`
	TilesPerRing int     `json:"tilesPerRing"`
	InnerRadius  float64 `json:"innerRadius"`
	RingSpacing  float64 `json:"ringSpacing"`
	BandLow      int     `json:"bandLow"`
	BandHigh     int     `json:"bandHigh"`
	PortCount    int     `json:"portCount"`
	PortDistance float64 `json:"portDistance"`
}

// StartRunPayload carries run metadata and its grid.
type StartRunPayload struct {
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"startTime"`
	Seed      int64     `json:"seed"`
	TickRate  float64   `json:"tickRate"`
	Grid      Grid      `json:"grid"`
}

// NewStartRunPayload builds the start_run payload.
func NewStartRunPayload(run core.Run, grid core.GridInfo) StartRunPayload {
	return StartRunPayload{
		UUID:      run.UUID,
		Name:      run.Name,
		StartTime: run.StartTime,
		Seed:      run.Seed,
		TickRate:  run.TickRate,
		Grid:      Grid(grid),
	}
}

// VesselPayload registers a vessel.
type VesselPayload struct {
	ID            core.VesselID `json:"id"`
	Class         string        `json:"class"`
	SpawnTick     uint          `json:"spawnTick"`
	SpawnTime     time.Time     `json:"spawnTime"`
	SpawnPosition [2]float64    `json:"spawnPosition"`
}

func NewVesselPayload(v core.Vessel) VesselPayload {
	return VesselPayload{
		ID:            v.ID,
		Class:         v.Class,
		SpawnTick:     v.SpawnTick,
		SpawnTime:     v.SpawnTime,
		SpawnPosition: xy(v.SpawnPosition),
	}
}

// VesselStatePayload is a captured vessel sample.
type VesselStatePayload struct {
	VesselID core.VesselID `json:"vesselId"`
	Tick     uint          `json:"tick"`
	Time     time.Time     `json:"time"`
	Position [2]float64    `json:"position"`
	Heading  float64       `json:"heading"`
	Speed    float64       `json:"speed"`
	Phase    string        `json:"phase"`
}

func NewVesselStatePayload(s core.VesselState) VesselStatePayload {
	return VesselStatePayload{
		VesselID: s.VesselID,
		Tick:     s.Tick,
		Time:     s.Time,
		Position: xy(s.Position),
		Heading:  s.Heading,
		Speed:    s.Speed,
		Phase:    s.Phase,
	}
}

// RunEventPayload is a vessel notification.
type RunEventPayload struct {
	VesselID core.VesselID `json:"vesselId"`
	Tick     uint          `json:"tick"`
	Time     time.Time     `json:"time"`
	Kind     string        `json:"kind"`
	Position [2]float64    `json:"position"`
	Cell     *core.Cell    `json:"cell,omitempty"`
	PortID   *int          `json:"portId,omitempty"`
	Phase    string        `json:"phase,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

func NewRunEventPayload(e core.RunEvent) RunEventPayload {
	return RunEventPayload{
		VesselID: e.VesselID,
		Tick:     e.Tick,
		Time:     e.Time,
		Kind:     string(e.Kind),
		Position: xy(e.Position),
		Cell:     e.Cell,
		PortID:   e.PortID,
		Phase:    e.Phase,
		Detail:   e.Detail,
	}
}

// PathPlanPayload is a planned tile path.
type PathPlanPayload struct {
	VesselID  core.VesselID `json:"vesselId"`
	Tick      uint          `json:"tick"`
	Time      time.Time     `json:"time"`
	Direction string        `json:"direction"`
	Cells     []core.Cell   `json:"cells"`
}

func NewPathPlanPayload(p core.PathRecord) PathPlanPayload {
	return PathPlanPayload{
		VesselID:  p.VesselID,
		Tick:      p.Tick,
		Time:      p.Time,
		Direction: p.Direction.String(),
		Cells:     p.Cells,
	}
}

// RaidResultPayload closes a wave.
type RaidResultPayload struct {
	Tick       uint      `json:"tick"`
	Time       time.Time `json:"time"`
	Successful bool      `json:"successful"`
	Finished   int       `json:"finished"`
	Destroyed  int       `json:"destroyed"`
	Withdrawn  int       `json:"withdrawn"`
}

func NewRaidResultPayload(r core.RaidResult) RaidResultPayload {
	return RaidResultPayload(r)
}

func xy(p core.Position3D) [2]float64 {
	return [2]float64{p.X, p.Y}
}
