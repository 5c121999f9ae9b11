// Package vessel ties a steering controller, its transporters and a port
// binding into one vessel's journey to the Citadel and back.
package vessel

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/internal/port"
	"github.com/citadel-raid/raidnav/internal/steering"
	"github.com/citadel-raid/raidnav/internal/transporter"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// State is where a vessel is in its journey.
type State string

const (
	StateIdle        State = "idle"
	StateInbound     State = "inbound"
	StateInnerZone   State = "inner_zone"
	StateWaiting     State = "waiting"
	StateApproaching State = "approaching"
	StateDocked      State = "docked"
	StateLeaving     State = "leaving"
	StateOutbound    State = "outbound"
	StateReturning   State = "returning"
	StateFinished    State = "finished"
	StateDestroyed   State = "destroyed"
)

const (
	interruptCooldown = 2.0
	interruptRamp     = 0.5
	interruptSpeed    = 0.3
	waitRamp          = 2.0
	waitSpeed         = 0.3
	holdRamp          = 0.5
	turnAwayDistance  = 1000.0
)

var (
	ErrNotIdle    = errors.New("vessel is not idle")
	ErrEmptyPlan  = errors.New("path plan is empty")
	ErrWrongPlan  = errors.New("journey needs an inbound plan")
	ErrNotStarted = errors.New("vessel has not been spawned")
)

// Notification is a vessel event delivered to subscribers on the tick thread.
type Notification struct {
	Kind   core.EventKind
	Vessel *Vessel
	Tile   core.Tile
	Port   *port.Port
	Phase  transporter.Kind
}

// Vessel is one raider. All methods run on the tick thread.
type Vessel struct {
	id    core.VesselID
	class Class
	alloc *port.Allocator
	log   *slog.Logger

	position core.Position3D
	spawn    core.Position3D
	entry    core.Position3D
	plan     core.PathPlan
	state    State
	spawned  bool

	ctrl     *steering.Controller
	inbound  *transporter.Waypoints
	approach *transporter.PortApproach
	leave    *transporter.LeavePort
	outbound *transporter.Waypoints
	home     *transporter.Point
	current  transporter.Transporter

	port        *port.Port
	holding     bool
	dockLeft    float64
	durability  int
	interrupted bool
	cooldown    float64

	subs    []subscription
	nextSub int
}

type subscription struct {
	id int
	fn func(Notification)
}

var _ port.Waiter = (*Vessel)(nil)

// New builds a vessel of class that takes its ports from alloc.
func New(class Class, alloc *port.Allocator, logger *slog.Logger) *Vessel {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Vessel{
		class: class,
		alloc: alloc,
		log:   logger,
		state: StateIdle,
	}
	v.ctrl = steering.New(v, class.MaxSpeed)

	params := class.Params()
	v.inbound = transporter.NewWaypoints(v.ctrl, v, params, v.tileReached, v.innerZoneReached)
	v.approach = transporter.NewPortApproach(v.ctrl, v, params, v.portReached)
	v.leave = transporter.NewLeavePort(v.ctrl, v, params, v.portLeft, v.citadelLeft)
	v.outbound = transporter.NewWaypoints(v.ctrl, v, params, v.tileReached, v.outerZoneReached)
	v.home = transporter.NewPoint(v.ctrl, v, params, v.homeReached)
	return v
}

func (v *Vessel) VesselID() core.VesselID        { return v.id }
func (v *Vessel) Class() Class                   { return v.class }
func (v *Vessel) Position() core.Position3D      { return v.position }
func (v *Vessel) SpawnPosition() core.Position3D { return v.spawn }
func (v *Vessel) EntryPosition() core.Position3D { return v.entry }
func (v *Vessel) State() State                   { return v.state }
func (v *Vessel) Heading() float64               { return v.ctrl.Heading() }
func (v *Vessel) Speed() float64                 { return v.ctrl.Speed() }
func (v *Vessel) Plan() core.PathPlan            { return v.plan }
func (v *Vessel) Port() *port.Port               { return v.port }
func (v *Vessel) Interrupted() bool              { return v.interrupted }
func (v *Vessel) Durability() int                { return v.durability }

// Active reports whether the vessel is somewhere between spawn and the end of
// its journey.
func (v *Vessel) Active() bool {
	return v.spawned && v.state != StateFinished && v.state != StateDestroyed
}

// Phase names the active transporter, or "" when none is installed.
func (v *Vessel) Phase() string {
	if v.current == nil {
		return ""
	}
	return string(v.current.Kind())
}

// Snapshot captures the kinematic state for recording.
func (v *Vessel) Snapshot(tick uint) core.VesselState {
	return core.VesselState{
		VesselID: v.id,
		Tick:     tick,
		Position: v.position,
		Heading:  v.ctrl.Heading(),
		Speed:    v.ctrl.Speed(),
		Phase:    string(v.state),
	}
}

// Subscribe registers fn for every notification, delivered in subscription
// order. Call the returned func to stop receiving them.
func (v *Vessel) Subscribe(fn func(Notification)) (unsubscribe func()) {
	id := v.nextSub
	v.nextSub++
	v.subs = append(v.subs, subscription{id: id, fn: fn})
	return func() {
		for i, s := range v.subs {
			if s.id == id {
				v.subs = append(v.subs[:i:i], v.subs[i+1:]...)
				return
			}
		}
	}
}

// Spawn places the vessel at position facing the Citadel, ready for a journey.
// Pooled vessels are respawned with a new id.
func (v *Vessel) Spawn(id core.VesselID, position core.Position3D) {
	v.id = id
	v.position = position
	v.spawn = position
	v.entry = core.Position3D{}
	v.plan = core.PathPlan{}
	v.state = StateIdle
	v.spawned = true
	v.port = nil
	v.holding = false
	v.dockLeft = 0
	v.durability = v.class.Durability
	v.interrupted = false
	v.cooldown = 0
	v.current = nil

	v.ctrl.Reset()
	v.ctrl.Face(geo.Citadel)
}

// StartJourney sends a spawned vessel along an inbound plan.
func (v *Vessel) StartJourney(plan core.PathPlan) error {
	if !v.spawned {
		return ErrNotStarted
	}
	if v.state != StateIdle {
		return fmt.Errorf("start journey for vessel %d in state %s: %w", v.id, v.state, ErrNotIdle)
	}
	if plan.Empty() {
		return ErrEmptyPlan
	}
	if plan.Direction() != core.Inbound {
		return ErrWrongPlan
	}

	v.plan = plan
	v.state = StateInbound
	v.ctrl.Face(plan.First().Position())
	v.activate(v.inbound)
	v.inbound.Start(plan)
	v.log.Debug("journey started", "vessel", v.id, "tiles", plan.Len(), "entry", plan.First().Cell())
	return nil
}

// RequestPort binds the best free port for position and starts the approach.
// With every port taken the vessel slows, faces the Citadel and joins the
// waiting line; nil is returned.
func (v *Vessel) RequestPort(position core.Position3D) (*port.Port, bool) {
	if v.port != nil {
		return v.port, true
	}

	if p, ok := v.alloc.Assign(v.id, position); ok {
		v.bindPort(p)
		return p, true
	}

	if v.state == StateWaiting {
		return nil, false
	}
	if err := v.alloc.EnqueueWaiting(v); err != nil {
		v.log.Warn("cannot wait for port", "vessel", v.id, "error", err)
		return nil, false
	}
	v.state = StateWaiting
	v.ctrl.Face(geo.Citadel)
	v.ctrl.RampSpeed(waitRamp, waitSpeed)
	v.emit(Notification{Kind: core.EventPortWaiting})
	return nil, false
}

// GrantPort is called by the allocator when a port frees up for a waiting vessel.
func (v *Vessel) GrantPort(p *port.Port) {
	if v.state != StateWaiting {
		return
	}
	v.bindPort(p)
	v.ctrl.RampSpeed(waitRamp, 1)
}

// ReleasePort frees the held port, which serves the waiting line.
func (v *Vessel) ReleasePort() bool {
	if v.port == nil {
		return false
	}
	p := v.port
	v.port = nil
	return v.alloc.Release(p)
}

// Interrupt turns the vessel away and slows it until ClearInterrupt. It is
// refused while approaching a port, right after an interrupt cleared, and when
// no transporter is running.
func (v *Vessel) Interrupt() bool {
	if !v.Active() || v.cooldown > 0 || v.current == nil {
		return false
	}
	if v.current.Kind() == transporter.KindPortApproach {
		return false
	}
	if !v.current.Enabled() && !v.interrupted {
		return false
	}

	v.interrupted = true
	v.ctrl.CancelArc()
	away := v.position.Add(headingOffset(v.ctrl.Heading(), -turnAwayDistance))
	v.ctrl.TurnTo(away, v.class.RotationSpeed/2, nil)
	v.ctrl.RampSpeed(interruptRamp, interruptSpeed)
	v.current.SetEnabled(false)
	v.emit(Notification{Kind: core.EventInterrupted, Phase: v.current.Kind()})
	return true
}

// ClearInterrupt steers back to the transporter's target and resumes it.
func (v *Vessel) ClearInterrupt() bool {
	if !v.interrupted {
		return false
	}
	v.interrupted = false
	v.cooldown = interruptCooldown

	v.current.SetEnabled(true)
	if l, ok := v.current.(*transporter.LeavePort); ok && l.PortLeft() {
		v.ctrl.CancelTurn()
		l.Resume()
	} else {
		v.ctrl.TurnTo(v.current.Target(), v.class.RotationSpeed/2, nil)
	}
	v.ctrl.RampSpeed(interruptRamp, 1)
	v.emit(Notification{Kind: core.EventRestored, Phase: v.current.Kind()})
	return true
}

// Damage lowers durability and destroys the vessel when it runs out.
func (v *Vessel) Damage(amount int) bool {
	if !v.Active() {
		return false
	}
	v.durability -= amount
	if v.durability <= 0 {
		v.Destroy()
		return true
	}
	return false
}

// Destroy removes the vessel from play, giving up its port or its place in line.
func (v *Vessel) Destroy() {
	if !v.Active() {
		return
	}
	v.ReleasePort()
	v.alloc.DequeueWaiting(v.id)
	v.state = StateDestroyed
	v.interrupted = false
	v.current = nil
	v.ctrl.Reset()
	v.log.Debug("vessel destroyed", "vessel", v.id)
	v.emit(Notification{Kind: core.EventDestroyed})
}

// Update advances the vessel by dt seconds: steering first, then movement,
// then timers.
func (v *Vessel) Update(dt float64) {
	if !v.Active() {
		return
	}

	v.ctrl.Update(dt)
	if !v.Active() {
		return
	}
	v.position = v.position.Add(v.ctrl.Displacement(dt))

	if v.cooldown > 0 {
		v.cooldown -= dt
	}

	switch v.state {
	case StateWaiting:
		if !v.holding && geo.RadiusOf(v.position) <= v.class.BoundaryRadius {
			v.holding = true
			v.ctrl.RampSpeed(holdRamp, 0)
		}
	case StateDocked:
		v.dockLeft -= dt
		if v.dockLeft <= 0 {
			v.depart()
		}
	}
}

func (v *Vessel) activate(t transporter.Transporter) {
	v.current = t
	v.ctrl.SetPhase(t)
}

func (v *Vessel) bindPort(p *port.Port) {
	v.port = p
	v.state = StateApproaching
	v.holding = false
	v.activate(v.approach)
	v.approach.Start(p.Position)
	v.log.Debug("port bound", "vessel", v.id, "port", p.ID)
	v.emit(Notification{Kind: core.EventPortBound, Port: p})
}

func (v *Vessel) depart() {
	v.state = StateLeaving
	v.activate(v.leave)
	v.leave.Start(v.entry)
}

func (v *Vessel) tileReached(t core.Tile) {
	v.emit(Notification{Kind: core.EventTileReached, Tile: t})
}

func (v *Vessel) innerZoneReached() {
	v.entry = v.position
	v.state = StateInnerZone
	v.emit(Notification{Kind: core.EventPhaseEnded, Phase: transporter.KindWaypoints})
	v.emit(Notification{Kind: core.EventInnerZone})
}

func (v *Vessel) portReached() {
	v.state = StateDocked
	v.dockLeft = v.class.DockTime
	v.emit(Notification{Kind: core.EventPhaseEnded, Phase: transporter.KindPortApproach})
	v.emit(Notification{Kind: core.EventPortReached, Port: v.port})
}

func (v *Vessel) portLeft() {
	p := v.port
	v.ReleasePort()
	v.emit(Notification{Kind: core.EventPortLeft, Port: p})
}

func (v *Vessel) citadelLeft() {
	v.state = StateOutbound
	v.emit(Notification{Kind: core.EventPhaseEnded, Phase: transporter.KindLeavePort})
	v.activate(v.outbound)
	v.outbound.Start(v.plan.Reversed())
}

func (v *Vessel) outerZoneReached() {
	v.state = StateReturning
	v.emit(Notification{Kind: core.EventPhaseEnded, Phase: transporter.KindWaypoints})
	v.activate(v.home)
	v.home.Start(v.spawn)
}

func (v *Vessel) homeReached() {
	v.state = StateFinished
	v.current = nil
	v.ctrl.SetPhase(nil)
	v.emit(Notification{Kind: core.EventPhaseEnded, Phase: transporter.KindPoint})
	v.emit(Notification{Kind: core.EventJourneyEnded})
}

func (v *Vessel) emit(n Notification) {
	n.Vessel = v
	for _, s := range v.subs {
		s.fn(n)
	}
}

func headingOffset(heading, distance float64) core.Position3D {
	d := geo.HeadingVector(heading).Scale(distance)
	return core.Position3D{X: d.X, Y: d.Y}
}
