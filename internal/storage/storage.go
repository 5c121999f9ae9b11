package storage

import "github.com/citadel-raid/raidnav/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management (StartRun may assign run.ID)
	StartRun(run *core.Run, grid core.GridInfo) error
	EndRun() error

	// Vessel registration
	AddVessel(v *core.Vessel) error

	// Recording
	RecordVesselState(s *core.VesselState) error
	RecordEvent(e *core.RunEvent) error
	RecordPath(p *core.PathRecord) error
	RecordResult(r *core.RaidResult) error
}

// Exportable is an optional interface for backends that write the run to a
// file when it ends.
type Exportable interface {
	ExportedFilePath() string
}
