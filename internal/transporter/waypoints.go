package transporter

import (
	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/internal/steering"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// Waypoints walks a path plan tile by tile.
type Waypoints struct {
	base
	plan   core.PathPlan
	next   int
	onTile func(core.Tile)
}

var _ Transporter = (*Waypoints)(nil)

// NewWaypoints returns an idle waypoint phase. onTile runs for every tile
// reached, onEnded after the last one.
func NewWaypoints(ctrl *steering.Controller, body steering.Body, params Params, onTile func(core.Tile), onEnded func()) *Waypoints {
	return &Waypoints{
		base:   base{ctrl: ctrl, body: body, params: params, onEnded: onEnded},
		onTile: onTile,
	}
}

func (w *Waypoints) Kind() Kind { return KindWaypoints }

// Plan returns the plan being walked.
func (w *Waypoints) Plan() core.PathPlan { return w.plan }

// Remaining is the number of tiles not yet reached.
func (w *Waypoints) Remaining() int { return w.plan.Len() - w.next }

// Start begins walking plan from its first tile. An empty plan ends at once.
func (w *Waypoints) Start(plan core.PathPlan) {
	w.plan = plan
	w.next = 0
	if plan.Empty() {
		w.begin(w.body.Position())
		w.end()
		return
	}
	w.begin(plan.First().Position())
	w.ctrl.TurnTo(w.target, w.params.RotationRate, nil)
}

func (w *Waypoints) Update(float64) {
	if geo.Distance2D(w.body.Position(), w.target) >= w.params.WaypointRadius {
		return
	}

	reached := w.plan.Tile(w.next)
	if w.onTile != nil {
		w.onTile(reached)
	}

	w.next++
	if w.next >= w.plan.Len() {
		w.end()
		return
	}
	w.target = w.plan.Tile(w.next).Position()
	w.ctrl.TurnTo(w.target, w.params.RotationRate, nil)
}
