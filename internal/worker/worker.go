// Package worker moves run telemetry off the tick thread: records are queued
// on a buffered channel and written to the storage backend by one goroutine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citadel-raid/raidnav/internal/storage"
	"github.com/citadel-raid/raidnav/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/citadel-raid/raidnav/internal/worker"

// DefaultBufferSize is the recorder queue capacity used when none is given.
const DefaultBufferSize = 10_000

// ErrStopped is returned by run lifecycle calls after Stop.
var ErrStopped = errors.New("worker stopped")

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

type job struct {
	name string
	run  func(storage.Backend) error
	done chan error // set for synchronous jobs
}

// Manager writes records to a backend from a single goroutine.
type Manager struct {
	backend storage.Backend
	log     *slog.Logger
	jobs    chan job
	stop    chan struct{}
	done    chan struct{}

	startOnce sync.Once

	// mu orders sends against Stop: nothing is queued once stop is closed.
	mu      sync.RWMutex
	stopped bool

	written   atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	lastWrite atomic.Int64

	droppedCounter metric.Int64Counter
	backlogGauge   metric.Int64ObservableGauge
}

// NewManager creates a worker manager. bufferSize <= 0 uses DefaultBufferSize.
func NewManager(backend storage.Backend, logger *slog.Logger, bufferSize int) *Manager {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		backend: backend,
		log:     logger.With("component", "worker"),
		jobs:    make(chan job, bufferSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	m.initMetrics()
	return m
}

func (m *Manager) initMetrics() {
	meter := otel.Meter(instrumentationName)

	var err error
	m.droppedCounter, err = meter.Int64Counter("recorder.records.dropped",
		metric.WithDescription("Records dropped because the recorder queue was full"))
	if err != nil {
		m.log.Warn("Failed to create dropped counter", "error", err)
	}
	m.backlogGauge, err = meter.Int64ObservableGauge("recorder.backlog",
		metric.WithDescription("Records waiting to be written"))
	if err != nil {
		m.log.Warn("Failed to create backlog gauge", "error", err)
		return
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(m.backlogGauge, int64(m.Backlog()))
		return nil
	}, m.backlogGauge)
	if err != nil {
		m.log.Warn("Failed to register backlog gauge", "error", err)
	}
}

// Start launches the writer goroutine. Calling it again has no effect.
func (m *Manager) Start() {
	m.startOnce.Do(func() { go m.loop() })
}

// Stop writes every queued record and stops the writer.
func (m *Manager) Stop() {
	m.Start()
	m.mu.Lock()
	if !m.stopped {
		m.stopped = true
		close(m.stop)
	}
	m.mu.Unlock()
	<-m.done
}

func (m *Manager) loop() {
	defer close(m.done)
	for {
		select {
		case j := <-m.jobs:
			m.execute(j)
		case <-m.stop:
			for {
				select {
				case j := <-m.jobs:
					m.execute(j)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) execute(j job) {
	start := time.Now()
	err := j.run(m.backend)
	m.lastWrite.Store(int64(time.Since(start)))

	if err != nil {
		m.failed.Add(1)
		m.log.Error("Failed to record", "record", j.name, "error", err)
	} else {
		m.written.Add(1)
	}
	if j.done != nil {
		j.done <- err
	}
}

// enqueue queues a record without blocking; a full queue drops it.
func (m *Manager) enqueue(name string, run func(storage.Backend) error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stopped {
		m.dropped.Add(1)
		return
	}
	select {
	case m.jobs <- job{name: name, run: run}:
	default:
		m.dropped.Add(1)
		if m.droppedCounter != nil {
			m.droppedCounter.Add(context.Background(), 1)
		}
		m.log.Warn("Recorder queue full, dropping record", "record", name)
	}
}

// call queues a job behind every earlier record and waits for its result.
func (m *Manager) call(name string, run func(storage.Backend) error) error {
	done := make(chan error, 1)
	if err := m.send(job{name: name, run: run, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-m.done:
		// the writer drains before closing done, so the result is ready
		select {
		case err := <-done:
			return err
		default:
			return ErrStopped
		}
	}
}

// send blocks until j is queued. Stop starts the writer before taking the
// lock, so a full queue always drains.
func (m *Manager) send(j job) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stopped {
		return ErrStopped
	}
	m.jobs <- j
	return nil
}

// StartRun opens a run on the backend once earlier records are written.
func (m *Manager) StartRun(run *core.Run, grid core.GridInfo) error {
	return m.call("start run", func(b storage.Backend) error {
		return b.StartRun(run, grid)
	})
}

// EndRun closes the run on the backend after every queued record.
func (m *Manager) EndRun() error {
	if err := m.call("end run", func(b storage.Backend) error { return b.EndRun() }); err != nil {
		return fmt.Errorf("ending run: %w", err)
	}
	return nil
}

func (m *Manager) AddVessel(v core.Vessel) {
	m.enqueue("vessel", func(b storage.Backend) error { return b.AddVessel(&v) })
}

func (m *Manager) RecordVesselState(s core.VesselState) {
	m.enqueue("vessel state", func(b storage.Backend) error { return b.RecordVesselState(&s) })
}

func (m *Manager) RecordEvent(e core.RunEvent) {
	m.enqueue("event", func(b storage.Backend) error { return b.RecordEvent(&e) })
}

func (m *Manager) RecordPath(p core.PathRecord) {
	m.enqueue("path", func(b storage.Backend) error { return b.RecordPath(&p) })
}

func (m *Manager) RecordResult(r core.RaidResult) {
	m.enqueue("result", func(b storage.Backend) error { return b.RecordResult(&r) })
}

// Backlog returns the number of queued records.
func (m *Manager) Backlog() int {
	return len(m.jobs)
}

// Written returns how many records reached the backend.
func (m *Manager) Written() uint64 {
	return m.written.Load()
}

// Dropped returns how many records were discarded.
func (m *Manager) Dropped() uint64 {
	return m.dropped.Load()
}

// Failed returns how many records the backend rejected.
func (m *Manager) Failed() uint64 {
	return m.failed.Load()
}

// GetLastDBWriteDuration prefers the backend's own batch timing and falls
// back to the duration of the last record handed to it.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return time.Duration(m.lastWrite.Load())
}
