package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/citadel-raid/raidnav/pkg/core"
)

// RunExport is the root JSON structure
type RunExport struct {
	UUID      string        `json:"uuid"`
	Name      string        `json:"name"`
	StartTime time.Time     `json:"startTime"`
	Seed      int64         `json:"seed"`
	TickRate  float64       `json:"tickRate"`
	EndTick   uint          `json:"endTick"`
	Grid      core.GridInfo `json:"grid"`
	Vessels   []VesselJSON  `json:"vessels"`
	Events    [][]any       `json:"events"`
	Results   []ResultJSON  `json:"results"`
}

// VesselJSON is one vessel with its samples.
// Positions format: [tick, [x, y], heading, speed, phase]
type VesselJSON struct {
	ID            core.VesselID `json:"id"`
	Class         string        `json:"class"`
	SpawnTick     uint          `json:"spawnTick"`
	SpawnPosition []float64     `json:"spawnPosition"`
	Positions     [][]any       `json:"positions"`
	Paths         []PathJSON    `json:"paths"`
}

// PathJSON is a planned path.
type PathJSON struct {
	Tick      uint        `json:"tick"`
	Direction string      `json:"direction"`
	Cells     []core.Cell `json:"cells"`
}

// ResultJSON is a wave outcome.
type ResultJSON struct {
	Tick       uint `json:"tick"`
	Successful bool `json:"successful"`
	Finished   int  `json:"finished"`
	Destroyed  int  `json:"destroyed"`
	Withdrawn  int  `json:"withdrawn"`
}

// exportJSON writes the run data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.run.Name)
	timestamp := b.run.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeJSON(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	export := RunExport{
		UUID:      b.run.UUID,
		Name:      b.run.Name,
		StartTime: b.run.StartTime,
		Seed:      b.run.Seed,
		TickRate:  b.run.TickRate,
		Grid:      b.grid,
		Vessels:   make([]VesselJSON, 0, len(b.order)),
		Events:    make([][]any, 0, len(b.events)),
		Results:   make([]ResultJSON, 0, len(b.results)),
	}

	var endTick uint
	seen := func(tick uint) {
		if tick > endTick {
			endTick = tick
		}
	}

	for _, id := range b.order {
		record := b.vessels[id]
		v := VesselJSON{
			ID:            record.Vessel.ID,
			Class:         record.Vessel.Class,
			SpawnTick:     record.Vessel.SpawnTick,
			SpawnPosition: []float64{record.Vessel.SpawnPosition.X, record.Vessel.SpawnPosition.Y},
			Positions:     make([][]any, 0, len(record.States)),
			Paths:         make([]PathJSON, 0, len(record.Paths)),
		}
		for _, s := range record.States {
			v.Positions = append(v.Positions, []any{
				s.Tick,
				[]float64{s.Position.X, s.Position.Y},
				s.Heading,
				s.Speed,
				s.Phase,
			})
			seen(s.Tick)
		}
		for _, p := range record.Paths {
			v.Paths = append(v.Paths, PathJSON{Tick: p.Tick, Direction: p.Direction.String(), Cells: p.Cells})
		}
		export.Vessels = append(export.Vessels, v)
	}

	// Format: [tick, kind, vesselId, detail]
	for _, e := range b.events {
		export.Events = append(export.Events, []any{e.Tick, string(e.Kind), e.VesselID, eventDetail(e)})
		seen(e.Tick)
	}

	for _, r := range b.results {
		export.Results = append(export.Results, ResultJSON{
			Tick:       r.Tick,
			Successful: r.Successful,
			Finished:   r.Finished,
			Destroyed:  r.Destroyed,
			Withdrawn:  r.Withdrawn,
		})
		seen(r.Tick)
	}

	export.EndTick = endTick
	return export
}

// eventDetail picks the kind-specific field of an event for export.
func eventDetail(e core.RunEvent) any {
	switch {
	case e.Cell != nil:
		return []int{e.Cell.Ring, e.Cell.Index}
	case e.PortID != nil:
		return *e.PortID
	case e.Phase != "":
		return e.Phase
	case e.Detail != "":
		return e.Detail
	}
	return nil
}

func writeJSON(path string, data RunExport, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if !compress {
		return json.NewEncoder(f).Encode(data)
	}

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
