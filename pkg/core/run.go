// pkg/core/run.go
package core

import "time"

// Run describes one recorded raid simulation.
type Run struct {
	ID        uint
	UUID      string
	Name      string
	StartTime time.Time
	Seed      int64
	TickRate  float64
	Wave      int
}

// GridInfo summarises the geometry a run was simulated on.
type GridInfo struct {
	RingCount    int
	TilesPerRing int
	InnerRadius  float64
	RingSpacing  float64
	BandLow      int
	BandHigh     int
	PortCount    int
	PortDistance float64
}
