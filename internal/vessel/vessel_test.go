package vessel

import (
	"testing"

	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/internal/grid"
	"github.com/citadel-raid/raidnav/internal/pathfinder"
	"github.com/citadel-raid/raidnav/internal/port"
	"github.com/citadel-raid/raidnav/internal/transporter"
	"github.com/citadel-raid/raidnav/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 0.02

type harness struct {
	t      *testing.T
	pf     *pathfinder.Pathfinder
	alloc  *port.Allocator
	vessel *Vessel
	events []core.EventKind
}

// newHarness spawns one vessel and wires the inner-zone port request the way
// the raid does.
func newHarness(t *testing.T, start core.Position3D) *harness {
	t.Helper()
	g, err := grid.New(grid.Settings{RingCount: 12, InnerRadius: 40, RingSpacing: 20, TilesPerRing: 16})
	require.NoError(t, err)
	pf, err := pathfinder.New(g, pathfinder.Config{Low: 3, High: 8, TileSlack: 0.01})
	require.NoError(t, err)
	alloc, err := port.NewAllocator(port.Config{Distance: 50, PerSector: 3, Sectors: 6})
	require.NoError(t, err)

	h := &harness{t: t, pf: pf, alloc: alloc}
	h.vessel = New(DefaultClass(), alloc, nil)
	h.vessel.Subscribe(func(n Notification) {
		h.events = append(h.events, n.Kind)
		if n.Kind == core.EventInnerZone {
			n.Vessel.RequestPort(n.Vessel.Position())
		}
	})
	h.vessel.Spawn(1, start)
	return h
}

func (h *harness) start() {
	h.t.Helper()
	plan, err := h.pf.FindPath(h.vessel.Position(), core.Inbound)
	require.NoError(h.t, err)
	require.NoError(h.t, h.vessel.StartJourney(plan))
}

func (h *harness) runUntil(budget int, stop func() bool) bool {
	for i := 0; i < budget; i++ {
		if stop() {
			return true
		}
		h.vessel.Update(dt)
	}
	return stop()
}

func (h *harness) inState(s State) func() bool {
	return func() bool { return h.vessel.State() == s }
}

func count(events []core.EventKind, kind core.EventKind) int {
	n := 0
	for _, e := range events {
		if e == kind {
			n++
		}
	}
	return n
}

func TestJourney_RoundTrip(t *testing.T) {
	spawn := core.Position3D{X: 500}
	h := newHarness(t, spawn)
	h.start()
	assert.Equal(t, StateInbound, h.vessel.State())
	assert.Equal(t, "waypoints", h.vessel.Phase())

	require.True(t, h.runUntil(3000, h.inState(StateDocked)))
	assert.Less(t, geo.Distance2D(h.vessel.Position(), h.alloc.Ports()[0].Position), geo.PositionTolerance)
	assert.Zero(t, h.vessel.Speed())
	held, ok := h.alloc.HeldBy(1)
	require.True(t, ok)
	assert.Equal(t, 0, held.ID)
	assert.InDelta(t, 100, geo.RadiusOf(h.vessel.EntryPosition()), 20)

	// dwell keeps the vessel in port
	h.runUntil(int(4/dt), func() bool { return false })
	assert.Equal(t, StateDocked, h.vessel.State())

	require.True(t, h.runUntil(10000, h.inState(StateFinished)))
	assert.False(t, h.vessel.Active())
	assert.Less(t, geo.Distance2D(h.vessel.Position(), spawn), 5.0)
	assert.Equal(t, 18, h.alloc.FreeCount())
	assert.Nil(t, h.vessel.Port())

	plan := h.vessel.Plan()
	assert.Equal(t, 2*plan.Len(), count(h.events, core.EventTileReached))
	assert.Equal(t, 5, count(h.events, core.EventPhaseEnded))

	want := []core.EventKind{
		core.EventInnerZone,
		core.EventPortBound,
		core.EventPortReached,
		core.EventPortLeft,
		core.EventJourneyEnded,
	}
	var milestones []core.EventKind
	for _, e := range h.events {
		if e != core.EventTileReached && e != core.EventPhaseEnded {
			milestones = append(milestones, e)
		}
	}
	assert.Equal(t, want, milestones)
}

func TestStartJourney_Errors(t *testing.T) {
	alloc, err := port.NewAllocator(port.Config{Distance: 50, PerSector: 3, Sectors: 6})
	require.NoError(t, err)
	v := New(DefaultClass(), alloc, nil)

	assert.ErrorIs(t, v.StartJourney(core.PathPlan{}), ErrNotStarted)

	v.Spawn(3, core.Position3D{X: 500})
	assert.ErrorIs(t, v.StartJourney(core.PathPlan{}), ErrEmptyPlan)

	h := newHarness(t, core.Position3D{X: 500})
	out, err := h.pf.FindPath(core.Position3D{X: 60}, core.Outbound)
	require.NoError(t, err)
	assert.ErrorIs(t, h.vessel.StartJourney(out), ErrWrongPlan)

	h.start()
	plan, err := h.pf.FindPath(h.vessel.Position(), core.Inbound)
	require.NoError(t, err)
	assert.ErrorIs(t, h.vessel.StartJourney(plan), ErrNotIdle)
}

func TestWaitingForPort(t *testing.T) {
	h := newHarness(t, core.Position3D{X: 500})
	for i, p := range h.alloc.Ports() {
		_, ok := h.alloc.Assign(core.VesselID(100+i), p.Position)
		require.True(t, ok)
	}
	h.start()

	require.True(t, h.runUntil(3000, h.inState(StateWaiting)))
	assert.Contains(t, h.events, core.EventPortWaiting)
	assert.Equal(t, []core.VesselID{1}, h.alloc.WaitingIDs())
	assert.Nil(t, h.vessel.Port())

	// slows down, then holds at the field boundary
	h.runUntil(int(3/dt), func() bool { return false })
	assert.LessOrEqual(t, h.vessel.Speed(), 9.0)
	h.runUntil(int(20/dt), func() bool { return false })
	assert.Zero(t, h.vessel.Speed())
	assert.LessOrEqual(t, geo.RadiusOf(h.vessel.Position()), 85.0)
	assert.Greater(t, geo.RadiusOf(h.vessel.Position()), 60.0)

	interruptible := h.vessel.Interrupt()
	assert.False(t, interruptible)

	first := h.alloc.Ports()[0]
	require.True(t, h.alloc.Release(first))
	assert.Equal(t, StateApproaching, h.vessel.State())
	assert.Same(t, first, h.vessel.Port())
	assert.Zero(t, h.alloc.Waiting())

	require.True(t, h.runUntil(3000, h.inState(StateDocked)))
	assert.True(t, geo.CloseEnough(h.vessel.Position(), first.Position))
}

func TestInterrupt(t *testing.T) {
	h := newHarness(t, core.Position3D{X: 500})
	h.start()
	h.runUntil(50, func() bool { return false })

	heading := h.vessel.Heading()
	require.True(t, h.vessel.Interrupt())
	assert.True(t, h.vessel.Interrupted())

	h.runUntil(int(4/dt), func() bool { return false })
	assert.InDelta(t, 9, h.vessel.Speed(), 1e-9)
	assert.InDelta(t, 180, geo.AngularDistance(heading, h.vessel.Heading()), 5)

	// the latest request wins
	assert.True(t, h.vessel.Interrupt())

	require.True(t, h.vessel.ClearInterrupt())
	assert.False(t, h.vessel.ClearInterrupt())
	assert.False(t, h.vessel.Interrupt(), "cooldown")

	h.runUntil(int(2.1/dt), func() bool { return false })
	assert.Equal(t, 30.0, h.vessel.Speed())
	assert.True(t, h.vessel.Interrupt())
	assert.True(t, h.vessel.ClearInterrupt())

	assert.Equal(t, 2, count(h.events, core.EventRestored))

	// journey still completes after being interrupted
	require.True(t, h.runUntil(5000, h.inState(StateDocked)))
}

func TestInterrupt_RefusedDuringApproach(t *testing.T) {
	h := newHarness(t, core.Position3D{X: 500})
	h.start()

	require.True(t, h.runUntil(3000, h.inState(StateApproaching)))
	assert.False(t, h.vessel.Interrupt())

	require.True(t, h.runUntil(3000, h.inState(StateDocked)))
	assert.False(t, h.vessel.Interrupt())
}

func TestInterrupt_OnReturnLeg(t *testing.T) {
	h := newHarness(t, core.Position3D{X: 500})
	h.start()

	require.True(t, h.runUntil(20000, h.inState(StateReturning)))
	require.True(t, h.vessel.Interrupt())
	h.runUntil(int(0.5/dt), func() bool { return false })
	require.True(t, h.vessel.ClearInterrupt())

	require.True(t, h.runUntil(10000, h.inState(StateFinished)))
	assert.Contains(t, h.events, core.EventJourneyEnded)
}

func TestInterrupt_DuringLeaveArc(t *testing.T) {
	h := newHarness(t, core.Position3D{X: 500})
	// leave only the ports around 120° free so the vessel has to arc away
	for i, p := range h.alloc.Ports() {
		if i < 6 || i >= 12 {
			_, ok := h.alloc.Assign(core.VesselID(100+i), p.Position)
			require.True(t, ok)
		}
	}
	h.start()

	leaving := func() bool {
		l, ok := h.vessel.current.(*transporter.LeavePort)
		return ok && l.PortLeft() && h.vessel.ctrl.Arcing()
	}
	require.True(t, h.runUntil(20000, leaving), "vessel never arced away from its port")

	require.True(t, h.vessel.Interrupt())
	assert.True(t, h.vessel.ctrl.Turning())
	assert.False(t, h.vessel.ctrl.Arcing())

	require.True(t, h.vessel.ClearInterrupt())
	assert.True(t, h.vessel.ctrl.Arcing())
	assert.False(t, h.vessel.ctrl.Turning())

	for i := 0; i < 500 && h.vessel.Active(); i++ {
		h.vessel.Update(dt)
		require.False(t, h.vessel.ctrl.Turning() && h.vessel.ctrl.Arcing(), "turn and arc both active at step %d", i)
	}
	require.True(t, h.runUntil(10000, h.inState(StateFinished)))
}

func TestDestroy_ReleasesPort(t *testing.T) {
	h := newHarness(t, core.Position3D{X: 500})
	h.start()
	require.True(t, h.runUntil(3000, h.inState(StateDocked)))

	waiter := New(DefaultClass(), h.alloc, nil)
	waiter.Spawn(2, core.Position3D{X: 90})
	for i, p := range h.alloc.Ports()[1:] {
		_, ok := h.alloc.Assign(core.VesselID(200+i), p.Position)
		require.True(t, ok)
	}
	waiter.state = StateInnerZone
	_, ok := waiter.RequestPort(waiter.Position())
	require.False(t, ok)
	require.Equal(t, StateWaiting, waiter.State())

	h.vessel.Destroy()

	assert.Equal(t, StateDestroyed, h.vessel.State())
	assert.False(t, h.vessel.Active())
	assert.Contains(t, h.events, core.EventDestroyed)
	assert.Equal(t, StateApproaching, waiter.State())
	assert.Equal(t, 0, waiter.Port().ID)

	pos := h.vessel.Position()
	h.vessel.Update(dt)
	assert.Equal(t, pos, h.vessel.Position())

	h.vessel.Destroy()
	assert.Equal(t, 1, count(h.events, core.EventDestroyed))
}

func TestDestroy_LeavesWaitingLine(t *testing.T) {
	h := newHarness(t, core.Position3D{X: 500})
	for i, p := range h.alloc.Ports() {
		_, ok := h.alloc.Assign(core.VesselID(100+i), p.Position)
		require.True(t, ok)
	}
	h.start()
	require.True(t, h.runUntil(3000, h.inState(StateWaiting)))

	h.vessel.Destroy()
	assert.Zero(t, h.alloc.Waiting())
}

func TestDamage(t *testing.T) {
	h := newHarness(t, core.Position3D{X: 500})
	h.start()

	assert.False(t, h.vessel.Damage(1))
	assert.Equal(t, 1, h.vessel.Durability())
	assert.True(t, h.vessel.Damage(1))
	assert.Equal(t, StateDestroyed, h.vessel.State())
	assert.False(t, h.vessel.Damage(1))
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	alloc, err := port.NewAllocator(port.Config{Distance: 50, PerSector: 3, Sectors: 6})
	require.NoError(t, err)
	v := New(DefaultClass(), alloc, nil)
	v.Spawn(4, core.Position3D{X: 300})

	calls := 0
	unsubscribe := v.Subscribe(func(Notification) { calls++ })
	v.Damage(1)
	v.Damage(1)
	assert.Equal(t, 1, calls)

	unsubscribe()
	v.Spawn(5, core.Position3D{X: 300})
	v.Destroy()
	assert.Equal(t, 1, calls)
}

func TestSpawn_ResetsPooledVessel(t *testing.T) {
	h := newHarness(t, core.Position3D{X: 500})
	h.start()
	h.vessel.Destroy()

	h.vessel.Spawn(9, geo.PointFromBearing(90, 480))
	assert.Equal(t, core.VesselID(9), h.vessel.VesselID())
	assert.Equal(t, StateIdle, h.vessel.State())
	assert.True(t, h.vessel.Active())
	assert.Equal(t, 30.0, h.vessel.Speed())
	assert.InDelta(t, 270, h.vessel.Heading(), 1e-9)
	assert.Equal(t, 2, h.vessel.Durability())
	assert.Empty(t, h.vessel.Phase())
}
