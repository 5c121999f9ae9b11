// pkg/core/vessel.go
package core

import "time"

// VesselID identifies a vessel for the lifetime of a run. Ids are never
// reused, so a run spawns at most MaxVesselID vessels.
type VesselID uint16

// MaxVesselID is the last id a run hands out.
const MaxVesselID VesselID = 1<<16 - 1

// Vessel is the registration record of a vessel joining a run.
type Vessel struct {
	ID            VesselID
	Class         string
	SpawnTick     uint
	SpawnTime     time.Time
	SpawnPosition Position3D
}

// VesselState is a vessel's kinematic state at a captured tick.
type VesselState struct {
	VesselID VesselID
	Tick     uint
	Time     time.Time
	Position Position3D
	Heading  float64 // degrees, counter-clockwise from +X
	Speed    float64
	Phase    string
}
