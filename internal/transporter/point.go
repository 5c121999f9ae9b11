package transporter

import (
	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/internal/steering"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// Point steers straight at a single target.
type Point struct {
	base
}

var _ Transporter = (*Point)(nil)

// NewPoint returns an idle point phase. onEnded runs when the target is reached.
func NewPoint(ctrl *steering.Controller, body steering.Body, params Params, onEnded func()) *Point {
	return &Point{base: base{ctrl: ctrl, body: body, params: params, onEnded: onEnded}}
}

func (p *Point) Kind() Kind { return KindPoint }

// Start begins the phase toward target.
func (p *Point) Start(target core.Position3D) {
	p.begin(target)
	p.ctrl.TurnTo(target, p.params.RotationRate, nil)
}

func (p *Point) Update(float64) {
	if geo.Distance2D(p.body.Position(), p.target) < p.params.PointRadius {
		p.end()
	}
}
