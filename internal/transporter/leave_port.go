package transporter

import (
	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/internal/steering"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// halfTurn is the in-place rotation a vessel makes before leaving its port.
const halfTurn = 180.0

// LeavePort takes a docked vessel back out of the Citadel field toward target.
type LeavePort struct {
	base
	rotating   bool
	rotated    float64
	portLeft   bool
	onPortLeft func()
}

var _ Transporter = (*LeavePort)(nil)

// NewLeavePort returns an idle departure phase. onPortLeft runs the tick the
// vessel crosses the field boundary, onEnded after the outward arc.
func NewLeavePort(ctrl *steering.Controller, body steering.Body, params Params, onPortLeft, onEnded func()) *LeavePort {
	return &LeavePort{
		base:       base{ctrl: ctrl, body: body, params: params, onEnded: onEnded},
		onPortLeft: onPortLeft,
	}
}

func (l *LeavePort) Kind() Kind { return KindLeavePort }

// PortLeft reports whether the vessel has crossed the field boundary.
func (l *LeavePort) PortLeft() bool { return l.portLeft }

// Start begins the departure toward target.
func (l *LeavePort) Start(target core.Position3D) {
	l.begin(target)
	l.rotating = true
	l.rotated = 0
	l.portLeft = false
}

func (l *LeavePort) Update(dt float64) {
	if l.rotating {
		step := l.params.RotationRate * dt
		l.rotated += step
		if l.rotated >= halfTurn {
			l.rotating = false
			l.ctrl.RampSpeed(l.params.LeaveRampTime, 1)
		} else {
			l.ctrl.Rotate(-step)
		}
		return
	}

	if l.portLeft {
		return
	}

	pos := l.body.Position()
	if geo.RadiusOf(pos) < l.params.BoundaryRadius {
		return
	}

	l.portLeft = true
	if l.onPortLeft != nil {
		l.onPortLeft()
	}
	l.startArc()
}

// Resume restarts the outward arc once the vessel is past the boundary, for
// use after the phase was suspended mid-arc.
func (l *LeavePort) Resume() {
	if l.enabled && l.portLeft {
		l.startArc()
	}
}

func (l *LeavePort) startArc() {
	targetBearing := geo.Bearing(l.target)
	clockwise := geo.Clockwise(geo.Bearing(l.body.Position()), targetBearing)
	l.ctrl.ArcTo(targetBearing, l.params.AngleToLeave, l.params.BoundaryRadius+l.params.LeaveArcMargin, clockwise, l.finish)
}

// finish ends the phase and turns toward target unless the completion hook
// already moved on to the next leg.
func (l *LeavePort) finish() {
	l.end()
	if l.ctrl.Phase() == l && !l.ctrl.Turning() {
		l.ctrl.TurnTo(l.target, l.params.RotationRate, nil)
	}
}
