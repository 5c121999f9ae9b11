// Package raid spawns waves of vessels against the Citadel and steps them
// tick by tick until every vessel has finished its journey or been destroyed.
package raid

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/internal/pathfinder"
	"github.com/citadel-raid/raidnav/internal/port"
	"github.com/citadel-raid/raidnav/internal/vessel"
	"github.com/citadel-raid/raidnav/pkg/core"
)

const (
	maxBaseBearing  = 359.9
	spawnSpread     = 30.0
	defaultTickRate = 50.0
)

var (
	ErrInProgress    = errors.New("raid already in progress")
	ErrWavesUsed     = errors.New("all waves used")
	ErrUnknownVessel = errors.New("unknown vessel")
	ErrRefused       = errors.New("command refused by vessel")
)

// Config drives spawning and recording.
type Config struct {
	StartDistance float64
	Seed          int64   // 0 picks a time based seed
	Waves         [][]int // vessel count per class index, one entry per wave
	TickRate      float64 // ticks per simulated second
	CaptureEvery  int     // record vessel states every N ticks, 0 disables
	Epoch         time.Time
}

// Recorder receives telemetry on the tick thread and must not block it.
type Recorder interface {
	AddVessel(v core.Vessel)
	RecordVesselState(s core.VesselState)
	RecordEvent(e core.RunEvent)
	RecordPath(p core.PathRecord)
}

type nopRecorder struct{}

func (nopRecorder) AddVessel(core.Vessel)              {}
func (nopRecorder) RecordVesselState(core.VesselState) {}
func (nopRecorder) RecordEvent(core.RunEvent)          {}
func (nopRecorder) RecordPath(core.PathRecord)         {}

// Status is a point-in-time summary, safe to read from any goroutine.
type Status struct {
	Tick       uint `json:"tick"`
	Wave       int  `json:"wave"`
	InProgress bool `json:"inProgress"`
	Active     int  `json:"active"`
	Waiting    int  `json:"waiting"`
	FreePorts  int  `json:"freePorts"`
	Finished   int  `json:"finished"`
	Destroyed  int  `json:"destroyed"`
}

type member struct {
	v           *vessel.Vessel
	classIdx    int
	unsubscribe func()
}

// Raid owns the vessel pools and the wave in flight. Everything but Status
// runs on the tick thread.
type Raid struct {
	finder  *pathfinder.Pathfinder
	alloc   *port.Allocator
	classes []vessel.Class
	cfg     Config
	rng     *rand.Rand
	seed    int64
	rec     Recorder
	log     *slog.Logger
	metrics *raidMetrics

	pools  [][]*vessel.Vessel
	active []*member
	byID   map[core.VesselID]*member
	nextID core.VesselID

	tick       uint
	wave       int
	inProgress bool
	counter    int
	finished   int
	destroyed  int

	results []core.RaidResult
	onEnd   []func(core.RaidResult)
	status  atomic.Pointer[Status]
}

// New builds a raid over the given pathfinder and port allocator.
func New(finder *pathfinder.Pathfinder, alloc *port.Allocator, classes []vessel.Class, cfg Config, rec Recorder, logger *slog.Logger) (*Raid, error) {
	if len(classes) == 0 {
		return nil, errors.New("raid needs at least one vessel class")
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaultTickRate
	}
	if cfg.Epoch.IsZero() {
		cfg.Epoch = time.Now()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	r := &Raid{
		finder:  finder,
		alloc:   alloc,
		classes: classes,
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1)),
		seed:    seed,
		rec:     rec,
		log:     logger.With("component", "raid"),
		pools:   make([][]*vessel.Vessel, len(classes)),
		byID:    make(map[core.VesselID]*member),
	}

	r.publish()

	m, err := newRaidMetrics(r)
	if err != nil {
		return nil, err
	}
	r.metrics = m

	alloc.OnRelease(r.onPortReleased)
	return r, nil
}

// Seed returns the seed the spawn directions are drawn from.
func (r *Raid) Seed() int64 { return r.seed }

// Tick returns the index of the next tick to simulate.
func (r *Raid) Tick() uint { return r.tick }

// InProgress reports whether a wave is in flight.
func (r *Raid) InProgress() bool { return r.inProgress }

// WavesLeft returns how many configured waves have not started yet.
func (r *Raid) WavesLeft() int { return len(r.cfg.Waves) - r.wave }

// Results returns the outcome of every finished wave.
func (r *Raid) Results() []core.RaidResult { return slices.Clone(r.results) }

// Status returns the summary published at the end of the last tick.
func (r *Raid) Status() Status { return *r.status.Load() }

// Vessel looks up an active vessel.
func (r *Raid) Vessel(id core.VesselID) (*vessel.Vessel, bool) {
	m, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return m.v, true
}

// Vessels returns the active vessels in spawn order.
func (r *Raid) Vessels() []*vessel.Vessel {
	out := make([]*vessel.Vessel, len(r.active))
	for i, m := range r.active {
		out[i] = m.v
	}
	return out
}

// OnEnd registers fn to run when a wave ends.
func (r *Raid) OnEnd(fn func(core.RaidResult)) {
	r.onEnd = append(r.onEnd, fn)
}

// Now converts the current tick into simulated wall time.
func (r *Raid) Now() time.Time {
	return r.cfg.Epoch.Add(time.Duration(float64(r.tick) / r.cfg.TickRate * float64(time.Second)))
}

// Start spawns the next configured wave. Vessels without a path go straight
// back to their pool. A wave in which nothing could spawn ends at once as
// failed.
func (r *Raid) Start() error {
	if r.inProgress {
		r.log.Warn("You cannot start a raid before the previous one is completed")
		return ErrInProgress
	}
	if r.wave >= len(r.cfg.Waves) {
		r.log.Warn("All waves used", "waves", len(r.cfg.Waves))
		return ErrWavesUsed
	}

	forces := r.cfg.Waves[r.wave]
	r.wave++
	r.inProgress = true
	r.counter = 0
	r.finished = 0
	r.destroyed = 0

	base := r.rng.Float64() * maxBaseBearing
	r.log.Info("raid started", "wave", r.wave, "forces", forces, "direction", base)

	for idx, count := range forces {
		classIdx := idx % len(r.classes)
		for range count {
			r.spawn(classIdx, base)
		}
	}

	r.publish()
	if len(r.active) == 0 {
		r.log.Warn("no vessel could be spawned", "wave", r.wave)
		r.end(false)
	}
	return nil
}

// SpawnPosition places the counter-th vessel of a wave: bearing base+2c²,
// distance alternating 30 short and long of startDistance.
func SpawnPosition(counter int, base, startDistance float64) core.Position3D {
	angle := base + float64(2*counter*counter)
	distance := startDistance - spawnSpread
	if counter%3 == 2 {
		distance = startDistance + spawnSpread
	}
	return geo.PointFromBearing(angle, distance)
}

func (r *Raid) spawn(classIdx int, base float64) {
	if r.nextID == core.MaxVesselID {
		r.log.Error("vessel ids exhausted, not spawning", "class", r.classes[classIdx].Name, "last", r.nextID)
		return
	}
	v := r.take(classIdx)
	r.nextID++
	pos := SpawnPosition(r.counter, base, r.cfg.StartDistance)
	v.Spawn(r.nextID, pos)

	plan, err := r.finder.FindPath(pos, core.Inbound)
	if err != nil {
		r.metrics.pathFailed()
		r.log.Error("vessel has no tile path", "vessel", v.VesselID(), "class", v.Class().Name, "error", err)
		r.rec.RecordEvent(core.RunEvent{
			VesselID: v.VesselID(),
			Tick:     r.tick,
			Time:     r.Now(),
			Kind:     core.EventPathFailed,
			Position: pos,
			Detail:   err.Error(),
		})
		r.pools[classIdx] = append(r.pools[classIdx], v)
		return
	}
	r.metrics.pathFound()

	m := &member{v: v, classIdx: classIdx}
	m.unsubscribe = v.Subscribe(r.onNotification)
	r.active = append(r.active, m)
	r.byID[v.VesselID()] = m
	r.counter++

	r.rec.AddVessel(core.Vessel{
		ID:            v.VesselID(),
		Class:         v.Class().Name,
		SpawnTick:     r.tick,
		SpawnTime:     r.Now(),
		SpawnPosition: pos,
	})
	r.rec.RecordPath(core.PathRecord{
		VesselID:  v.VesselID(),
		Tick:      r.tick,
		Time:      r.Now(),
		Direction: plan.Direction(),
		Cells:     plan.Cells(),
		Positions: plan.Positions(),
	})
	r.rec.RecordEvent(r.event(v, core.EventPathPlanned))

	if err := v.StartJourney(plan); err != nil {
		// a freshly spawned vessel with a non-empty inbound plan always starts
		r.log.Error("journey not started", "vessel", v.VesselID(), "error", err)
	}
}

func (r *Raid) take(classIdx int) *vessel.Vessel {
	pool := r.pools[classIdx]
	if n := len(pool); n > 0 {
		v := pool[n-1]
		r.pools[classIdx] = pool[:n-1]
		return v
	}
	return vessel.New(r.classes[classIdx], r.alloc, r.log)
}

// PoolSize returns how many idle vessels of a class wait for reuse.
func (r *Raid) PoolSize(classIdx int) int { return len(r.pools[classIdx]) }

// Step simulates one tick of dt seconds. Vessels update in spawn order.
func (r *Raid) Step(dt float64) {
	for _, m := range slices.Clone(r.active) {
		m.v.Update(dt)
	}

	if r.cfg.CaptureEvery > 0 && r.tick%uint(r.cfg.CaptureEvery) == 0 {
		now := r.Now()
		for _, m := range r.active {
			s := m.v.Snapshot(r.tick)
			s.Time = now
			r.rec.RecordVesselState(s)
		}
	}

	r.tick++
	r.publish()
}

// Withdraw ends the wave in flight as failed, pulling every active vessel
// out of play without destroying it.
func (r *Raid) Withdraw() {
	if !r.inProgress {
		return
	}
	withdrawn := len(r.active)
	for _, m := range slices.Clone(r.active) {
		m.unsubscribe()
		m.v.Destroy()
		r.retire(m)
	}
	r.log.Warn("raid withdrawn", "wave", r.wave, "vessels", withdrawn)
	r.finish(false, withdrawn)
}

// Destroy removes a vessel from play.
func (r *Raid) Destroy(id core.VesselID) error {
	m, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("destroy vessel %d: %w", id, ErrUnknownVessel)
	}
	m.v.Destroy()
	return nil
}

// Damage lowers a vessel's durability and reports whether it was destroyed.
func (r *Raid) Damage(id core.VesselID, amount int) (bool, error) {
	m, ok := r.byID[id]
	if !ok {
		return false, fmt.Errorf("damage vessel %d: %w", id, ErrUnknownVessel)
	}
	return m.v.Damage(amount), nil
}

// Interrupt confuses a vessel.
func (r *Raid) Interrupt(id core.VesselID) error {
	m, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("interrupt vessel %d: %w", id, ErrUnknownVessel)
	}
	if !m.v.Interrupt() {
		return fmt.Errorf("interrupt vessel %d in state %s: %w", id, m.v.State(), ErrRefused)
	}
	return nil
}

// ClearInterrupt ends a vessel's confusion.
func (r *Raid) ClearInterrupt(id core.VesselID) error {
	m, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("clear interrupt of vessel %d: %w", id, ErrUnknownVessel)
	}
	if !m.v.ClearInterrupt() {
		return fmt.Errorf("clear interrupt of vessel %d: %w", id, ErrRefused)
	}
	return nil
}

func (r *Raid) onNotification(n vessel.Notification) {
	v := n.Vessel
	e := r.event(v, n.Kind)
	if n.Tile != nil {
		c := n.Tile.Cell()
		e.Cell = &c
	}
	if n.Port != nil {
		id := n.Port.ID
		e.PortID = &id
	}
	e.Phase = string(n.Phase)
	r.rec.RecordEvent(e)

	switch n.Kind {
	case core.EventInnerZone:
		if _, ok := v.RequestPort(v.Position()); !ok {
			r.log.Debug("no free port, vessel waits", "vessel", v.VesselID(), "waiting", r.alloc.Waiting())
		}
	case core.EventPortBound:
		r.metrics.portAssigned()
	case core.EventJourneyEnded:
		r.finished++
		r.leave(v.VesselID(), true)
	case core.EventDestroyed:
		r.destroyed++
		r.leave(v.VesselID(), false)
	}
}

func (r *Raid) leave(id core.VesselID, completed bool) {
	m, ok := r.byID[id]
	if !ok {
		return
	}
	m.unsubscribe()
	r.retire(m)
	if len(r.active) == 0 && r.inProgress {
		r.end(completed)
	}
}

func (r *Raid) retire(m *member) {
	delete(r.byID, m.v.VesselID())
	r.active = slices.DeleteFunc(r.active, func(x *member) bool { return x == m })
	r.pools[m.classIdx] = append(r.pools[m.classIdx], m.v)
}

func (r *Raid) end(successful bool) {
	r.finish(successful, 0)
}

func (r *Raid) finish(successful bool, withdrawn int) {
	r.inProgress = false
	res := core.RaidResult{
		Tick:       r.tick,
		Time:       r.Now(),
		Successful: successful,
		Finished:   r.finished,
		Destroyed:  r.destroyed,
		Withdrawn:  withdrawn,
	}
	r.results = append(r.results, res)
	r.publish()
	r.log.Info("raid ended", "wave", r.wave, "successful", successful,
		"finished", res.Finished, "destroyed", res.Destroyed, "withdrawn", withdrawn)
	for _, fn := range r.onEnd {
		fn(res)
	}
}

func (r *Raid) onPortReleased(p *port.Port, previous core.VesselID) {
	r.metrics.portReleased()
	id := p.ID
	r.rec.RecordEvent(core.RunEvent{
		VesselID: previous,
		Tick:     r.tick,
		Time:     r.Now(),
		Kind:     core.EventPortReleased,
		Position: p.Position,
		PortID:   &id,
	})
}

func (r *Raid) event(v *vessel.Vessel, kind core.EventKind) core.RunEvent {
	return core.RunEvent{
		VesselID: v.VesselID(),
		Tick:     r.tick,
		Time:     r.Now(),
		Kind:     kind,
		Position: v.Position(),
	}
}

func (r *Raid) publish() {
	s := &Status{
		Tick:       r.tick,
		Wave:       r.wave,
		InProgress: r.inProgress,
		Active:     len(r.active),
		Waiting:    r.alloc.Waiting(),
		FreePorts:  r.alloc.FreeCount(),
		Finished:   r.finished,
		Destroyed:  r.destroyed,
	}
	r.status.Store(s)
}
