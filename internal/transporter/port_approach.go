package transporter

import (
	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/internal/steering"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// PortApproach docks a vessel at a port: in to the Citadel field on the
// vessel's own bearing, around the field to the port's bearing, then a
// tightened turn into the port where the vessel stops.
type PortApproach struct {
	base
	boundaryPoint core.Position3D
	fieldReached  bool
	entering      bool
}

var _ Transporter = (*PortApproach)(nil)

// NewPortApproach returns an idle approach phase. onEnded runs once the vessel
// has stopped at the port.
func NewPortApproach(ctrl *steering.Controller, body steering.Body, params Params, onEnded func()) *PortApproach {
	return &PortApproach{base: base{ctrl: ctrl, body: body, params: params, onEnded: onEnded}}
}

func (p *PortApproach) Kind() Kind { return KindPortApproach }

// Start begins the approach to the port at target.
func (p *PortApproach) Start(target core.Position3D) {
	p.begin(target)
	p.fieldReached = false
	p.entering = false

	pos := p.body.Position()
	p.boundaryPoint = geo.PointFromBearing(geo.Bearing(pos), p.params.BoundaryRadius)
	p.ctrl.TurnTo(p.boundaryPoint, p.params.RotationRate, nil)
}

func (p *PortApproach) Update(float64) {
	pos := p.body.Position()

	if !p.fieldReached {
		if geo.RadiusOf(pos) > p.params.BoundaryRadius && !geo.CloseEnough(pos, p.boundaryPoint) {
			return
		}
		p.fieldReached = true

		portBearing := geo.Bearing(p.target)
		portGate := geo.PointFromBearing(portBearing, p.params.BoundaryRadius)
		if geo.CloseEnough(pos, portGate) || geo.AngularDistance(geo.Bearing(pos), portBearing) <= p.params.AngleToEnterPort {
			p.enter()
			return
		}

		p.ctrl.CancelTurn()
		clockwise := geo.Clockwise(geo.Bearing(pos), portBearing)
		p.ctrl.ArcTo(portBearing, p.params.AngleToEnterPort, p.params.BoundaryRadius, clockwise, p.enter)
		return
	}

	if p.entering && geo.CloseEnough(pos, p.target) {
		p.ctrl.RampSpeed(0, 0)
		p.end()
	}
}

func (p *PortApproach) enter() {
	p.entering = true
	p.ctrl.TurnTo(p.target, p.params.RotationRate*p.params.PortTurnFactor, nil)
}
