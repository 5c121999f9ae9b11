package steering

import (
	"testing"

	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type body struct{ pos core.Position3D }

func (b *body) Position() core.Position3D { return b.pos }

// simulate moves the body the way a vessel does after each controller tick.
func simulate(c *Controller, b *body, dt float64) {
	c.Update(dt)
	b.pos = b.pos.Add(c.Displacement(dt))
}

type countingPhase struct {
	enabled bool
	calls   int
	onCall  func()
}

func (p *countingPhase) Enabled() bool { return p.enabled }
func (p *countingPhase) Update(float64) {
	p.calls++
	if p.onCall != nil {
		p.onCall()
	}
}

func TestTurnTo_SnapsWithinThreshold(t *testing.T) {
	b := &body{}
	c := New(b, 30)

	done := 0
	c.TurnTo(geo.PointFromBearing(1, 100), 10, func() { done++ })

	assert.Equal(t, 1, done)
	assert.False(t, c.Turning())
	assert.InDelta(t, 1, c.Heading(), 1e-9)
}

func TestTurnTo_NinetyDegrees(t *testing.T) {
	for _, target := range []float64{90, 270} {
		b := &body{}
		c := New(b, 0)
		c.RampSpeed(0, 0)

		done := false
		c.TurnTo(geo.PointFromBearing(target, 100), 10, func() { done = true })
		require.True(t, c.Turning())

		ticks := 0
		for !done && ticks < 100 {
			simulate(c, b, 1)
			ticks++
		}

		assert.True(t, done, "target %v", target)
		assert.InDelta(t, 9, ticks, 1, "target %v", target)
		assert.InDelta(t, 0, geo.AngularDistance(target, c.Heading()), 1e-9)
		assert.False(t, c.Turning())
	}
}

func TestTurnTo_SideIsFixedAtStart(t *testing.T) {
	b := &body{}
	c := New(b, 0)
	c.RampSpeed(0, 0)

	// 170° counter-clockwise is shorter than 190° clockwise
	c.TurnTo(geo.PointFromBearing(170, 100), 20, nil)
	simulate(c, b, 1)
	assert.InDelta(t, 20, c.Heading(), 1e-9)

	// the side stays counter-clockwise; crossing the new target ends the turn
	c.turn.target = geo.PointFromBearing(350, 100)
	simulate(c, b, 1)
	assert.False(t, c.Turning())
	assert.InDelta(t, 350, c.Heading(), 1e-9)
}

func TestCancelTurn_SkipsCompletion(t *testing.T) {
	b := &body{}
	c := New(b, 0)

	called := false
	c.TurnTo(geo.PointFromBearing(120, 10), 10, func() { called = true })
	c.CancelTurn()
	for i := 0; i < 30; i++ {
		simulate(c, b, 1)
	}

	assert.False(t, called)
	assert.InDelta(t, 0, c.Heading(), 1e-9)
}

func TestRampSpeed_ThirtyToNine(t *testing.T) {
	c := New(&body{}, 30)
	c.RampSpeed(0.5, 0.3)

	prev := c.Speed()
	elapsed := 0.0
	for elapsed < 0.5 {
		c.Update(0.125)
		elapsed += 0.125
		assert.LessOrEqual(t, c.Speed(), prev)
		prev = c.Speed()
	}

	assert.Equal(t, 9.0, c.Speed())
	assert.False(t, c.Ramping())

	c.Update(0.125)
	assert.Equal(t, 9.0, c.Speed())
}

func TestRampSpeed_ZeroDurationIsImmediate(t *testing.T) {
	c := New(&body{}, 30)
	c.RampSpeed(0, 0)

	assert.Zero(t, c.Speed())
	assert.False(t, c.Ramping())

	c.RampSpeed(0, 2)
	assert.Equal(t, 30.0, c.Speed())
}

func TestRampSpeed_Midway(t *testing.T) {
	c := New(&body{}, 40)
	c.RampSpeed(0, 0.5)
	c.RampSpeed(2, 1)

	c.Update(1)
	assert.InDelta(t, 30, c.Speed(), 1e-9)
	assert.True(t, c.Ramping())
}

func TestArcTo_FollowsCircle(t *testing.T) {
	b := &body{pos: geo.PointFromBearing(0, 100)}
	c := New(b, 20)
	c.SetHeading(90)

	done := false
	c.ArcTo(90, 5, 100, false, func() { done = true })

	for i := 0; i < 2000 && !done; i++ {
		simulate(c, b, 0.05)
		assert.InDelta(t, 100, geo.RadiusOf(b.pos), 3)
	}

	require.True(t, done)
	assert.False(t, c.Arcing())
	assert.InDelta(t, 90, geo.Bearing(b.pos), 6)
}

func TestArcTo_Clockwise(t *testing.T) {
	b := &body{pos: geo.PointFromBearing(10, 80)}
	c := New(b, 20)
	c.SetHeading(280)

	done := false
	c.ArcTo(300, 10, 80, true, func() { done = true })

	for i := 0; i < 4000 && !done; i++ {
		simulate(c, b, 0.05)
	}

	require.True(t, done)
	assert.InDelta(t, 0, geo.AngularDistance(300, geo.Bearing(b.pos)), 12)
}

func TestUpdate_Order(t *testing.T) {
	b := &body{}
	c := New(b, 30)

	var order []string
	phase := &countingPhase{enabled: true}
	phase.onCall = func() {
		order = append(order, "phase")
		// a turn started by the phase applies in the same tick
		c.TurnTo(geo.PointFromBearing(180, 10), 90, func() { order = append(order, "turn") })
	}
	c.SetPhase(phase)

	c.Update(1)
	assert.Equal(t, []string{"phase"}, order)
	assert.InDelta(t, 90, c.Heading(), 1e-9)

	phase.enabled = false
	c.Update(1)
	assert.Equal(t, []string{"phase", "turn"}, order)
	assert.Equal(t, 1, phase.calls)
}

func TestDisplacement(t *testing.T) {
	c := New(&body{}, 10)
	c.SetHeading(90)

	d := c.Displacement(0.5)
	assert.InDelta(t, 0, d.X, 1e-9)
	assert.InDelta(t, 5, d.Y, 1e-9)
}

func TestReset(t *testing.T) {
	c := New(&body{}, 10)
	c.RampSpeed(0, 0)
	c.TurnTo(core.Position3D{X: -5}, 10, nil)
	c.ArcTo(0, 1, 10, true, nil)
	c.SetPhase(&countingPhase{})

	c.Reset()

	assert.Equal(t, 10.0, c.Speed())
	assert.False(t, c.Turning())
	assert.False(t, c.Arcing())
	assert.Nil(t, c.Phase())
}
