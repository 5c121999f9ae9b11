// Package port manages the docking slots around the Citadel and the line of
// vessels waiting for one.
package port

import (
	"errors"
	"fmt"
	"math"

	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/internal/queue"
	"github.com/citadel-raid/raidnav/pkg/core"
)

var (
	ErrAlreadyWaiting = errors.New("vessel is already waiting for a port")
	ErrHoldsPort      = errors.New("vessel already holds a port")
)

// Port is a fixed docking slot. It records which vessel holds it, nothing more.
type Port struct {
	ID       int
	Bearing  float64
	Position core.Position3D

	occupant core.VesselID
	occupied bool
}

// Free reports whether no vessel holds the port.
func (p *Port) Free() bool { return !p.occupied }

// Occupant returns the holding vessel, if any.
func (p *Port) Occupant() (core.VesselID, bool) { return p.occupant, p.occupied }

func (p *Port) String() string {
	if p.occupied {
		return fmt.Sprintf("port %d (%.1f°, vessel %d)", p.ID, p.Bearing, p.occupant)
	}
	return fmt.Sprintf("port %d (%.1f°, free)", p.ID, p.Bearing)
}

// Waiter is a vessel that can be handed a port after waiting for one.
type Waiter interface {
	VesselID() core.VesselID
	GrantPort(p *Port)
}

// Config lays out the ports: PerSector*Sectors slots at Distance from the Citadel.
type Config struct {
	Distance  float64
	PerSector int
	Sectors   int
}

// Allocator hands out ports. Like the rest of the simulation it runs on the
// tick thread only.
type Allocator struct {
	ports   []*Port
	waiting *queue.Queue[Waiter]

	listeners []listener
	nextSub   int
}

type listener struct {
	id int
	fn func(*Port, core.VesselID)
}

// NewAllocator creates the ports evenly spaced by bearing, port 0 at bearing 0.
func NewAllocator(cfg Config) (*Allocator, error) {
	count := cfg.PerSector * cfg.Sectors
	if count <= 0 {
		return nil, fmt.Errorf("port count must be positive, got %d*%d", cfg.PerSector, cfg.Sectors)
	}
	if cfg.Distance <= 0 {
		return nil, fmt.Errorf("port distance must be positive, got %v", cfg.Distance)
	}

	a := &Allocator{
		ports:   make([]*Port, count),
		waiting: queue.New[Waiter](),
	}
	spacing := 360 / float64(count)
	for i := range a.ports {
		bearing := float64(i) * spacing
		a.ports[i] = &Port{
			ID:       i,
			Bearing:  bearing,
			Position: geo.PointFromBearing(bearing, cfg.Distance),
		}
	}
	return a, nil
}

// Ports returns every port in id order.
func (a *Allocator) Ports() []*Port {
	out := make([]*Port, len(a.ports))
	copy(out, a.ports)
	return out
}

// Port returns the port with id.
func (a *Allocator) Port(id int) (*Port, bool) {
	if id < 0 || id >= len(a.ports) {
		return nil, false
	}
	return a.ports[id], true
}

// FreeCount is the number of unoccupied ports.
func (a *Allocator) FreeCount() int {
	n := 0
	for _, p := range a.ports {
		if p.Free() {
			n++
		}
	}
	return n
}

// Waiting is the number of queued vessels.
func (a *Allocator) Waiting() int { return a.waiting.Len() }

// WaitingIDs lists the queued vessels, longest waiting first.
func (a *Allocator) WaitingIDs() []core.VesselID {
	ws := a.waiting.Snapshot()
	ids := make([]core.VesselID, len(ws))
	for i, w := range ws {
		ids[i] = w.VesselID()
	}
	return ids
}

// HeldBy returns the port held by vessel, if any.
func (a *Allocator) HeldBy(vessel core.VesselID) (*Port, bool) {
	for _, p := range a.ports {
		if id, ok := p.Occupant(); ok && id == vessel {
			return p, true
		}
	}
	return nil, false
}

// Nearest returns the port closest to position regardless of occupancy.
// Equal distances keep the lower id.
func (a *Allocator) Nearest(position core.Position3D) *Port {
	best, bestDist := a.ports[0], math.MaxFloat64
	for _, p := range a.ports {
		if d := geo.Distance2D(p.Position, position); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// Find picks a free port for position without binding it: the nearest port if
// free, otherwise the first free port found stepping outward from it.
func (a *Allocator) Find(position core.Position3D) (*Port, bool) {
	nearest := a.Nearest(position)
	if nearest.Free() {
		return nearest, true
	}

	count := len(a.ports)
	isFree := func(i int) bool { return a.ports[i].Free() }
	for step := 1; step <= count; step++ {
		idx := geo.NextIndex(count, nearest.ID, step, true, isFree)
		if a.ports[idx].Free() {
			return a.ports[idx], true
		}
	}
	return nil, false
}

// Assign finds a free port for position and binds it to vessel. It reports
// false when every port is taken; the caller then queues the vessel.
func (a *Allocator) Assign(vessel core.VesselID, position core.Position3D) (*Port, bool) {
	if _, holds := a.HeldBy(vessel); holds {
		return nil, false
	}
	p, ok := a.Find(position)
	if !ok {
		return nil, false
	}
	a.bind(p, vessel)
	return p, true
}

// Release frees p. If vessels are waiting, the one that waited longest is
// bound to p and told so before Release returns.
func (a *Allocator) Release(p *Port) bool {
	if p == nil || p.Free() {
		return false
	}
	previous := p.occupant
	p.occupant, p.occupied = 0, false

	for _, l := range a.listeners {
		l.fn(p, previous)
	}

	if w, ok := a.waiting.TryPop(); ok {
		a.bind(p, w.VesselID())
		w.GrantPort(p)
	}
	return true
}

// EnqueueWaiting puts w at the tail of the waiting line.
func (a *Allocator) EnqueueWaiting(w Waiter) error {
	id := w.VesselID()
	if _, holds := a.HeldBy(id); holds {
		return fmt.Errorf("enqueue vessel %d: %w", id, ErrHoldsPort)
	}
	if a.waiting.Contains(func(x Waiter) bool { return x.VesselID() == id }) {
		return fmt.Errorf("enqueue vessel %d: %w", id, ErrAlreadyWaiting)
	}
	a.waiting.Push(w)
	return nil
}

// DequeueWaiting removes vessel from the waiting line, reporting whether it was there.
func (a *Allocator) DequeueWaiting(vessel core.VesselID) bool {
	return a.waiting.Remove(func(x Waiter) bool { return x.VesselID() == vessel })
}

// OnRelease registers fn to run whenever a port becomes free, before the
// waiting line is served. fn is given the vessel that held the port.
// Listeners run in registration order. The returned func unregisters it.
func (a *Allocator) OnRelease(fn func(p *Port, previous core.VesselID)) (unsubscribe func()) {
	id := a.nextSub
	a.nextSub++
	a.listeners = append(a.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range a.listeners {
			if l.id == id {
				a.listeners = append(a.listeners[:i:i], a.listeners[i+1:]...)
				return
			}
		}
	}
}

// Reset frees every port and empties the waiting line without notifying anyone.
func (a *Allocator) Reset() {
	for _, p := range a.ports {
		p.occupant, p.occupied = 0, false
	}
	a.waiting.Clear()
}

func (a *Allocator) bind(p *Port, vessel core.VesselID) {
	p.occupant, p.occupied = vessel, true
}
