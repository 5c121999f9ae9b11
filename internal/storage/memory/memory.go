// Package memory keeps a run in memory and exports it as JSON when it ends.
package memory

import (
	"fmt"
	"sync"

	"github.com/citadel-raid/raidnav/internal/config"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// VesselRecord groups a vessel with all its time-series data
type VesselRecord struct {
	Vessel core.Vessel
	States []core.VesselState
	Paths  []core.PathRecord
}

// Backend stores run data in memory and exports to JSON
type Backend struct {
	cfg  config.MemoryConfig
	run  *core.Run
	grid core.GridInfo

	vessels map[core.VesselID]*VesselRecord
	order   []core.VesselID
	events  []core.RunEvent
	results []core.RaidResult

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		vessels: make(map[core.VesselID]*VesselRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run and drops anything recorded before.
func (b *Backend) StartRun(run *core.Run, grid core.GridInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.grid = grid
	b.vessels = make(map[core.VesselID]*VesselRecord)
	b.order = nil
	b.events = nil
	b.results = nil
	b.lastExportPath = ""
	return nil
}

// EndRun exports the recorded run.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return fmt.Errorf("no run started")
	}
	return b.exportJSON()
}

// AddVessel registers a vessel. Registering an ID again replaces its record.
func (b *Backend) AddVessel(v *core.Vessel) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.vessels[v.ID]; !ok {
		b.order = append(b.order, v.ID)
	}
	b.vessels[v.ID] = &VesselRecord{Vessel: *v}
	return nil
}

// RecordVesselState appends a state to its vessel's record.
func (b *Backend) RecordVesselState(s *core.VesselState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.vessels[s.VesselID]
	if !ok {
		return fmt.Errorf("vessel %d not found", s.VesselID)
	}
	record.States = append(record.States, *s)
	return nil
}

// RecordEvent appends a run event.
func (b *Backend) RecordEvent(e *core.RunEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, *e)
	return nil
}

// RecordPath appends a path plan to its vessel's record.
func (b *Backend) RecordPath(p *core.PathRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.vessels[p.VesselID]
	if !ok {
		return fmt.Errorf("vessel %d not found", p.VesselID)
	}
	record.Paths = append(record.Paths, *p)
	return nil
}

// RecordResult appends a wave outcome.
func (b *Backend) RecordResult(r *core.RaidResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.results = append(b.results, *r)
	return nil
}

// GetVessel returns a copy of a vessel's record.
func (b *Backend) GetVessel(id core.VesselID) (VesselRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.vessels[id]
	if !ok {
		return VesselRecord{}, false
	}
	return *record, true
}

// Events returns a copy of the recorded events.
func (b *Backend) Events() []core.RunEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]core.RunEvent(nil), b.events...)
}

// Results returns a copy of the recorded wave outcomes.
func (b *Backend) Results() []core.RaidResult {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]core.RaidResult(nil), b.results...)
}

// ExportedFilePath returns the path of the last export, or "".
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.lastExportPath
}
