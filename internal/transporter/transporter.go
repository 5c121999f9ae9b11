// Package transporter implements the journey phases that drive a steering
// controller toward one leg's target.
package transporter

import (
	"github.com/citadel-raid/raidnav/internal/steering"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// Kind names a transporter phase.
type Kind string

const (
	KindPoint        Kind = "point"
	KindWaypoints    Kind = "waypoints"
	KindPortApproach Kind = "port_approach"
	KindLeavePort    Kind = "leave_port"
)

// Params are the per-class steering constants the phases use.
type Params struct {
	RotationRate     float64 // degrees per second
	BoundaryRadius   float64 // radius of the Citadel field
	AngleToEnterPort float64
	AngleToLeave     float64
	WaypointRadius   float64 // distance at which a tile counts as reached
	PointRadius      float64 // distance at which a point target counts as reached
	PortTurnFactor   float64 // rotation rate multiplier for the final turn into a port
	LeaveArcMargin   float64 // added to BoundaryRadius for the departure arc
	LeaveRampTime    float64 // seconds to regain full speed after the departure rotation
}

// DefaultParams returns the stock raider constants.
func DefaultParams() Params {
	return Params{
		RotationRate:     100,
		BoundaryRadius:   85,
		AngleToEnterPort: 10,
		AngleToLeave:     40,
		WaypointRadius:   20,
		PointRadius:      5,
		PortTurnFactor:   1.5,
		LeaveArcMargin:   20,
		LeaveRampTime:    0.5,
	}
}

// Transporter is one journey phase. A vessel keeps one of each kind and
// installs at most one as the controller's phase.
type Transporter interface {
	steering.Phase
	Kind() Kind
	Target() core.Position3D
	SetEnabled(enabled bool)
}

// base carries what every phase shares.
type base struct {
	ctrl    *steering.Controller
	body    steering.Body
	params  Params
	target  core.Position3D
	enabled bool
	onEnded func()
}

func (b *base) Enabled() bool           { return b.enabled }
func (b *base) SetEnabled(enabled bool) { b.enabled = enabled }
func (b *base) Target() core.Position3D { return b.target }

func (b *base) begin(target core.Position3D) {
	b.target = target
	b.enabled = true
}

// end disables the phase, drops any rotation it started and fires the
// completion hook.
func (b *base) end() {
	b.enabled = false
	b.ctrl.CancelTurn()
	b.ctrl.CancelArc()
	if b.onEnded != nil {
		b.onEnded()
	}
}
