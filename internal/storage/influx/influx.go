package influx

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/citadel-raid/raidnav/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementRun         = "run"
	MeasurementVessel      = "vessel"
	MeasurementVesselState = "vessel_state"
	MeasurementRunEvent    = "run_event"
	MeasurementPathPlan    = "path_plan"
	MeasurementRaidResult  = "raid_result"
)

var errNoRun = errors.New("no run started")

// Backend writes a run as InfluxDB points tagged with the run UUID.
type Backend struct {
	manager *Manager

	mu      sync.RWMutex
	runUUID string
	classes map[core.VesselID]string
}

// New creates an InfluxDB backend around a manager that is connected on Init.
func New(manager *Manager) *Backend {
	return &Backend{
		manager: manager,
		classes: make(map[core.VesselID]string),
	}
}

// Init connects the manager.
func (b *Backend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.manager.Connect(ctx)
}

// Close flushes and disconnects.
func (b *Backend) Close() error {
	return b.manager.Close()
}

// StartRun writes the run marker point.
func (b *Backend) StartRun(run *core.Run, grid core.GridInfo) error {
	b.mu.Lock()
	b.runUUID = run.UUID
	b.classes = make(map[core.VesselID]string)
	b.mu.Unlock()

	p := influxdb2_write.NewPointWithMeasurement(MeasurementRun).
		AddTag("run", run.UUID).
		AddField("name", run.Name).
		AddField("seed", run.Seed).
		AddField("tickRate", run.TickRate).
		AddField("rings", grid.RingCount).
		AddField("ports", grid.PortCount).
		SetTime(run.StartTime)
	return b.manager.WritePoint(p)
}

// EndRun flushes pending points.
func (b *Backend) EndRun() error {
	if b.run() == "" {
		return errNoRun
	}
	return b.manager.Flush()
}

func (b *Backend) run() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.runUUID
}

func (b *Backend) class(id core.VesselID) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.classes[id]
}

func (b *Backend) point(measurement string, id core.VesselID) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(measurement).
		AddTag("run", b.run()).
		AddTag("vessel", strconv.Itoa(int(id)))
}

func (b *Backend) AddVessel(v *core.Vessel) error {
	b.mu.Lock()
	b.classes[v.ID] = v.Class
	b.mu.Unlock()

	p := b.point(MeasurementVessel, v.ID).
		AddTag("class", v.Class).
		AddField("spawnTick", v.SpawnTick).
		AddField("x", v.SpawnPosition.X).
		AddField("y", v.SpawnPosition.Y).
		SetTime(v.SpawnTime)
	return b.manager.WritePoint(p)
}

func (b *Backend) RecordVesselState(s *core.VesselState) error {
	p := b.point(MeasurementVesselState, s.VesselID).
		AddTag("class", b.class(s.VesselID)).
		AddTag("phase", s.Phase).
		AddField("tick", s.Tick).
		AddField("x", s.Position.X).
		AddField("y", s.Position.Y).
		AddField("heading", s.Heading).
		AddField("speed", s.Speed).
		SetTime(s.Time)
	return b.manager.WritePoint(p)
}

func (b *Backend) RecordEvent(e *core.RunEvent) error {
	p := b.point(MeasurementRunEvent, e.VesselID).
		AddTag("kind", string(e.Kind)).
		AddField("tick", e.Tick).
		AddField("x", e.Position.X).
		AddField("y", e.Position.Y).
		SetTime(e.Time)
	if e.Cell != nil {
		p.AddField("ring", e.Cell.Ring).AddField("index", e.Cell.Index)
	}
	if e.PortID != nil {
		p.AddField("port", *e.PortID)
	}
	if e.Phase != "" {
		p.AddField("phase", e.Phase)
	}
	if e.Detail != "" {
		p.AddField("detail", e.Detail)
	}
	return b.manager.WritePoint(p)
}

func (b *Backend) RecordPath(r *core.PathRecord) error {
	p := b.point(MeasurementPathPlan, r.VesselID).
		AddTag("direction", r.Direction.String()).
		AddField("tick", r.Tick).
		AddField("tiles", len(r.Cells)).
		SetTime(r.Time)
	return b.manager.WritePoint(p)
}

func (b *Backend) RecordResult(r *core.RaidResult) error {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementRaidResult).
		AddTag("run", b.run()).
		AddTag("successful", strconv.FormatBool(r.Successful)).
		AddField("tick", r.Tick).
		AddField("finished", r.Finished).
		AddField("destroyed", r.Destroyed).
		AddField("withdrawn", r.Withdrawn).
		SetTime(r.Time)
	return b.manager.WritePoint(p)
}
