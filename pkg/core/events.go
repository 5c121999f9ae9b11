// pkg/core/events.go
package core

import "time"

// EventKind names a vessel notification.
type EventKind string

const (
	EventPathPlanned  EventKind = "path_planned"
	EventPathFailed   EventKind = "path_failed"
	EventTileReached  EventKind = "tile_reached"
	EventPhaseEnded   EventKind = "phase_ended"
	EventInnerZone    EventKind = "inner_zone_reached"
	EventPortBound    EventKind = "port_bound"
	EventPortWaiting  EventKind = "port_waiting"
	EventPortReached  EventKind = "port_reached"
	EventPortLeft     EventKind = "port_left"
	EventPortReleased EventKind = "port_released"
	EventJourneyEnded EventKind = "journey_ended"
	EventInterrupted  EventKind = "interrupted"
	EventRestored     EventKind = "interrupt_cleared"
	EventDestroyed    EventKind = "destroyed"
)

// RunEvent is a vessel notification as recorded.
type RunEvent struct {
	VesselID VesselID
	Tick     uint
	Time     time.Time
	Kind     EventKind
	Position Position3D
	Cell     *Cell  // set for tile events
	PortID   *int   // set for port events
	Phase    string // set for phase events
	Detail   string
}

// PathRecord is a computed path plan as recorded.
type PathRecord struct {
	VesselID  VesselID
	Tick      uint
	Time      time.Time
	Direction Direction
	Cells     []Cell
	Positions []Position3D
}

// RaidResult closes a run.
type RaidResult struct {
	Tick       uint
	Time       time.Time
	Successful bool
	Finished   int
	Destroyed  int
	Withdrawn  int
}
