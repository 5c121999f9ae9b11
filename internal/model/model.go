package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table of the recording schema, parents first.
var DatabaseModels = []interface{}{
	&Run{},
	&Vessel{},
	&VesselState{},
	&RunEvent{},
	&PathPlan{},
	&RaidResult{},
	&Performance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// Performance is a status monitor sample.
type Performance struct {
	ID                  uint      `json:"id" gorm:"primarykey"`
	Time                time.Time `json:"time" gorm:"index:idx_performance_time"`
	RunID               uint      `json:"runId" gorm:"index:idx_performance_run_id"`
	Tick                uint      `json:"tick"`
	ActiveVessels       uint16    `json:"activeVessels"`
	WaitingVessels      uint16    `json:"waitingVessels"`
	FreePorts           uint16    `json:"freePorts"`
	RecorderBacklog     uint32    `json:"recorderBacklog"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*Performance) TableName() string {
	return "performances"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Run is one recorded raid simulation.
type Run struct {
	gorm.Model
	UUID      string         `json:"uuid" gorm:"size:36;uniqueIndex"`
	Name      string         `json:"name" gorm:"size:127"`
	StartTime time.Time      `json:"startTime" gorm:"index:idx_run_start"`
	Seed      int64          `json:"seed"`
	TickRate  float32        `json:"tickRate"`
	Grid      GridInfo       `json:"grid" gorm:"embedded;embeddedPrefix:grid_"`
	Config    datatypes.JSON `json:"config"`
}

func (*Run) TableName() string {
	return "runs"
}

// GridInfo is the geometry a run was simulated on.
type GridInfo struct {
	RingCount    uint16  `json:"ringCount"`
	TilesPerRing uint16  `json:"tilesPerRing"`
	InnerRadius  float32 `json:"innerRadius"`
	RingSpacing  float32 `json:"ringSpacing"`
	BandLow      uint16  `json:"bandLow"`
	BandHigh     uint16  `json:"bandHigh"`
	PortCount    uint16  `json:"portCount"`
	PortDistance float32 `json:"portDistance"`
}

// Vessel registers a vessel in a run.
// Uses composite primary key (RunID, VesselID).
type Vessel struct {
	RunID         uint       `json:"runId" gorm:"primaryKey;autoIncrement:false"`
	VesselID      uint16     `json:"vesselId" gorm:"primaryKey;autoIncrement:false"`
	Run           Run        `json:"-" gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Class         string     `json:"class" gorm:"size:64"`
	SpawnTick     uint       `json:"spawnTick"`
	SpawnTime     time.Time  `json:"spawnTime"`
	SpawnPosition geom.Point `json:"spawnPosition"`
}

func (*Vessel) TableName() string {
	return "vessels"
}

// VesselState is a captured kinematic sample.
type VesselState struct {
	ID       uint       `json:"id" gorm:"primarykey"`
	RunID    uint       `json:"runId" gorm:"index:idx_vesselstate_run_vessel,priority:1"`
	VesselID uint16     `json:"vesselId" gorm:"index:idx_vesselstate_run_vessel,priority:2"`
	Tick     uint       `json:"tick" gorm:"index:idx_vesselstate_tick"`
	Time     time.Time  `json:"time"`
	Position geom.Point `json:"position"`
	Heading  float32    `json:"heading"`
	Speed    float32    `json:"speed"`
	Phase    string     `json:"phase" gorm:"size:32"`
}

func (*VesselState) TableName() string {
	return "vessel_states"
}

// RunEvent is a vessel notification. Kind-specific fields live in Payload.
type RunEvent struct {
	ID       uint           `json:"id" gorm:"primarykey"`
	RunID    uint           `json:"runId" gorm:"index:idx_runevent_run_id"`
	VesselID uint16         `json:"vesselId"`
	Tick     uint           `json:"tick"`
	Time     time.Time      `json:"time"`
	Kind     string         `json:"kind" gorm:"size:32;index:idx_runevent_kind"`
	Position geom.Point     `json:"position"`
	Payload  datatypes.JSON `json:"payload"`
}

func (*RunEvent) TableName() string {
	return "run_events"
}

// PathPlan is a planned tile path.
type PathPlan struct {
	ID        uint            `json:"id" gorm:"primarykey"`
	RunID     uint            `json:"runId" gorm:"index:idx_pathplan_run_id"`
	VesselID  uint16          `json:"vesselId"`
	Tick      uint            `json:"tick"`
	Time      time.Time       `json:"time"`
	Direction string          `json:"direction" gorm:"size:16"`
	Path      geom.LineString `json:"path"`
	Cells     datatypes.JSON  `json:"cells"`
}

func (*PathPlan) TableName() string {
	return "path_plans"
}

// RaidResult closes one wave of a run.
type RaidResult struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	RunID      uint      `json:"runId" gorm:"index:idx_raidresult_run_id"`
	Tick       uint      `json:"tick"`
	Time       time.Time `json:"time"`
	Successful bool      `json:"successful"`
	Finished   uint16    `json:"finished"`
	Destroyed  uint16    `json:"destroyed"`
	Withdrawn  uint16    `json:"withdrawn"`
}

func (*RaidResult) TableName() string {
	return "raid_results"
}
