// Package steering owns a vessel's heading and speed and the motion primitives
// that change them from tick to tick.
package steering

import (
	"math"

	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/pkg/core"
)

const (
	// TurnSnapAngle is the heading error below which a turn completes at once.
	TurnSnapAngle = 3.0
	// ArcStep is how far ahead of the vessel, in degrees of bearing, an arc aims.
	ArcStep = 1.0
)

// Body is the object being steered.
type Body interface {
	Position() core.Position3D
}

// Phase is the active transporter slot, advanced before the primitives.
type Phase interface {
	Update(dt float64)
	Enabled() bool
}

type turnState struct {
	target core.Position3D
	rate   float64
	ccw    bool
	done   func()
}

type arcState struct {
	targetBearing float64
	tolerance     float64
	radius        float64
	clockwise     bool
	done          func()
}

type rampState struct {
	duration float64
	timer    float64
	from     float64
	to       float64
}

// Controller is one vessel's steering state. It is not safe for concurrent use;
// everything runs on the tick thread.
type Controller struct {
	body     Body
	maxSpeed float64
	heading  float64
	speed    float64
	phase    Phase

	turn *turnState
	arc  *arcState
	ramp *rampState
}

// New returns a controller at full speed with heading 0.
func New(body Body, maxSpeed float64) *Controller {
	return &Controller{body: body, maxSpeed: maxSpeed, speed: maxSpeed}
}

// Reset drops every primitive and the phase and restores full speed.
func (c *Controller) Reset() {
	c.turn, c.arc, c.ramp = nil, nil, nil
	c.phase = nil
	c.speed = c.maxSpeed
}

func (c *Controller) Heading() float64  { return c.heading }
func (c *Controller) Speed() float64    { return c.speed }
func (c *Controller) MaxSpeed() float64 { return c.maxSpeed }
func (c *Controller) Turning() bool     { return c.turn != nil }
func (c *Controller) Arcing() bool      { return c.arc != nil }
func (c *Controller) Ramping() bool     { return c.ramp != nil }

// SetHeading points the vessel along heading directly.
func (c *Controller) SetHeading(heading float64) {
	c.heading = geo.NormalizeBearing(heading)
}

// Face points the vessel at a position. Facing its own position is a no-op.
func (c *Controller) Face(point core.Position3D) {
	if geo.Planar(point) == geo.Planar(c.body.Position()) {
		return
	}
	c.heading = geo.HeadingTo(c.body.Position(), point)
}

// Rotate turns the heading by delta degrees, counter-clockwise positive.
func (c *Controller) Rotate(delta float64) {
	c.heading = geo.NormalizeBearing(c.heading + delta)
}

// SetPhase installs the active transporter. Nil clears the slot.
func (c *Controller) SetPhase(p Phase) { c.phase = p }

// Phase returns the active transporter or nil.
func (c *Controller) Phase() Phase { return c.phase }

// TurnTo starts rotating toward target at rate degrees per second. Within
// TurnSnapAngle the heading snaps and done runs before TurnTo returns.
// The rotation side is fixed here and kept until the target is crossed.
func (c *Controller) TurnTo(target core.Position3D, rate float64, done func()) {
	pos := c.body.Position()
	if geo.Planar(target) == geo.Planar(pos) {
		c.turn = nil
		if done != nil {
			done()
		}
		return
	}

	delta := geo.SignedDelta(c.heading, geo.HeadingTo(pos, target))
	if math.Abs(delta) < TurnSnapAngle {
		c.turn = nil
		c.Face(target)
		if done != nil {
			done()
		}
		return
	}

	c.turn = &turnState{target: target, rate: rate, ccw: delta > 0, done: done}
}

// CancelTurn stops the active turn without firing its completion.
func (c *Controller) CancelTurn() { c.turn = nil }

// ArcTo follows the circle of radius around the Citadel in the given
// direction, steering ArcStep degrees ahead of the vessel's own bearing, until
// that aim bearing is within tolerance of targetBearing.
func (c *Controller) ArcTo(targetBearing, tolerance, radius float64, clockwise bool, done func()) {
	c.arc = &arcState{
		targetBearing: targetBearing,
		tolerance:     tolerance,
		radius:        radius,
		clockwise:     clockwise,
		done:          done,
	}
}

// CancelArc stops the active arc without firing its completion.
func (c *Controller) CancelArc() { c.arc = nil }

// RampSpeed moves speed linearly to fraction of max speed over duration
// seconds. A non-positive duration applies the new speed immediately.
func (c *Controller) RampSpeed(duration, fraction float64) {
	fraction = math.Max(0, math.Min(1, fraction))
	target := c.maxSpeed * fraction
	if duration <= 0 {
		c.speed = target
		c.ramp = nil
		return
	}
	c.ramp = &rampState{duration: duration, from: c.speed, to: target}
}

// Update advances one tick: phase, turn, arc, then speed.
func (c *Controller) Update(dt float64) {
	if c.phase != nil && c.phase.Enabled() {
		c.phase.Update(dt)
	}
	if c.turn != nil {
		c.stepTurn(dt)
	}
	if c.arc != nil {
		c.stepArc()
	}
	if c.ramp != nil {
		c.stepRamp(dt)
	}
}

// Displacement is how far the vessel moves along its heading in dt.
func (c *Controller) Displacement(dt float64) core.Position3D {
	v := geo.HeadingVector(c.heading).Scale(c.speed * dt)
	return core.Position3D{X: v.X, Y: v.Y}
}

func (c *Controller) stepTurn(dt float64) {
	t := c.turn
	step := t.rate * dt
	if t.ccw {
		c.Rotate(step)
	} else {
		c.Rotate(-step)
	}

	want := geo.HeadingTo(c.body.Position(), t.target)
	if (geo.SignedDelta(c.heading, want) > 0) == t.ccw {
		return
	}

	c.turn = nil
	c.Face(t.target)
	if t.done != nil {
		t.done()
	}
}

func (c *Controller) stepArc() {
	a := c.arc
	step := ArcStep
	if a.clockwise {
		step = -ArcStep
	}
	aim := geo.NormalizeBearing(geo.Bearing(c.body.Position()) + step)
	c.Face(geo.PointFromBearing(aim, a.radius))

	if geo.AngularDistance(aim, a.targetBearing) > a.tolerance {
		return
	}

	c.arc = nil
	if a.done != nil {
		a.done()
	}
}

func (c *Controller) stepRamp(dt float64) {
	r := c.ramp
	r.timer += dt
	if r.timer >= r.duration {
		c.speed = r.to
		c.ramp = nil
		return
	}
	c.speed = r.from + (r.to-r.from)*(r.timer/r.duration)
}
