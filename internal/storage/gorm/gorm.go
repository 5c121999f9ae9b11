// Package gormstorage implements a storage backend on GORM with internal
// queues drained into the database by a background writer goroutine.
// The postgres and sqlite backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citadel-raid/raidnav/internal/database"
	"github.com/citadel-raid/raidnav/internal/model"
	"github.com/citadel-raid/raidnav/internal/model/convert"
	"github.com/citadel-raid/raidnav/internal/queue"
	"github.com/citadel-raid/raidnav/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is how often the writer drains the queues.
const DefaultFlushInterval = 2 * time.Second

// ErrNoRun is returned when a run-scoped write arrives before StartRun.
var ErrNoRun = errors.New("no run started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	RunConfig     any // stored on the run row as a JSON snapshot
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Vessels      *queue.Queue[model.Vessel]
	VesselStates *queue.Queue[model.VesselState]
	RunEvents    *queue.Queue[model.RunEvent]
	PathPlans    *queue.Queue[model.PathPlan]
	RaidResults  *queue.Queue[model.RaidResult]
}

func newQueues() *queues {
	return &queues{
		Vessels:      queue.New[model.Vessel](),
		VesselStates: queue.New[model.VesselState](),
		RunEvents:    queue.New[model.RunEvent](),
		PathPlans:    queue.New[model.PathPlan](),
		RaidResults:  queue.New[model.RaidResult](),
	}
}

// Backend writes runs through GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	log       *slog.Logger
	queues    *queues
	runID     atomic.Uint64
	lastWrite atomic.Int64
	flushMu   sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		deps:   deps,
		log:    log.With("component", "storage.gorm"),
		queues: newQueues(),
	}
}

// DB returns the underlying connection, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer goroutine. Without a DB the
// backend only queues, which is how it is unit tested.
func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		close(b.done)
		return nil
	}

	b.log.Info("Migrating schema", "dialect", b.deps.DB.Dialector.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		close(b.done)
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	go b.writer()
	return nil
}

// Close stops the writer goroutine after a final flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.done
		}
	})
	return nil
}

// StartRun inserts the run row synchronously so later rows can reference it.
// The DB-assigned ID is written back to run.ID.
func (b *Backend) StartRun(run *core.Run, grid core.GridInfo) error {
	if b.deps.DB == nil {
		return nil
	}

	row := convert.CoreToRun(*run, grid, b.deps.RunConfig)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new run: %w", err)
	}

	run.ID = row.ID
	b.runID.Store(uint64(row.ID))
	b.log.Info("Run started", "id", row.ID, "uuid", row.UUID)
	return nil
}

// SetRunID sets the current run ID for the writer (used when resuming a run).
func (b *Backend) SetRunID(id uint) {
	b.runID.Store(uint64(id))
}

// RunID returns the current run ID, 0 before StartRun.
func (b *Backend) RunID() uint {
	return uint(b.runID.Load())
}

// EndRun flushes everything queued for the run.
func (b *Backend) EndRun() error {
	if b.deps.DB == nil {
		return nil
	}
	if b.RunID() == 0 {
		return ErrNoRun
	}
	return b.Flush()
}

// AddVessel converts a core vessel to GORM and pushes to the write queue.
func (b *Backend) AddVessel(v *core.Vessel) error {
	b.queues.Vessels.Push(convert.CoreToVessel(*v))
	return nil
}

// RecordVesselState converts and queues a vessel state.
func (b *Backend) RecordVesselState(s *core.VesselState) error {
	b.queues.VesselStates.Push(convert.CoreToVesselState(*s))
	return nil
}

// RecordEvent converts and queues a run event.
func (b *Backend) RecordEvent(e *core.RunEvent) error {
	b.queues.RunEvents.Push(convert.CoreToRunEvent(*e))
	return nil
}

// RecordPath converts and queues a path plan.
func (b *Backend) RecordPath(p *core.PathRecord) error {
	b.queues.PathPlans.Push(convert.CoreToPathPlan(*p))
	return nil
}

// RecordResult converts and queues a wave outcome.
func (b *Backend) RecordResult(r *core.RaidResult) error {
	b.queues.RaidResults.Push(convert.CoreToRaidResult(*r))
	return nil
}

// Pending returns the number of queued rows.
func (b *Backend) Pending() int {
	q := b.queues
	return q.Vessels.Len() + q.VesselStates.Len() + q.RunEvents.Len() + q.PathPlans.Len() + q.RaidResults.Len()
}

// GetLastDBWriteDuration returns the duration of the last write cycle.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// Flush writes every queued row now. Rows that fail to insert go back on
// their queue and the first error is returned.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	runID := b.RunID()
	if runID == 0 {
		return nil
	}

	start := time.Now()
	db := b.deps.DB
	errs := []error{
		// vessels first, states and events do not reference them but readers join on them
		writeQueue(db, b.queues.Vessels, "vessels", func(items []model.Vessel) {
			for i := range items {
				items[i].RunID = runID
			}
		}),
		writeQueue(db, b.queues.PathPlans, "path plans", func(items []model.PathPlan) {
			for i := range items {
				items[i].RunID = runID
			}
		}),
		writeQueue(db, b.queues.VesselStates, "vessel states", func(items []model.VesselState) {
			for i := range items {
				items[i].RunID = runID
			}
		}),
		writeQueue(db, b.queues.RunEvents, "run events", func(items []model.RunEvent) {
			for i := range items {
				items[i].RunID = runID
			}
		}),
		writeQueue(db, b.queues.RaidResults, "raid results", func(items []model.RaidResult) {
			for i := range items {
				items[i].RunID = runID
			}
		}),
	}
	b.lastWrite.Store(int64(time.Since(start)))

	err := errors.Join(errs...)
	if err != nil {
		b.log.Error("DB write failed", "error", err)
	}
	return err
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain()
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if tx.Error != nil {
		q.Push(items...)
		return fmt.Errorf("error creating %s: %w", name, tx.Error)
	}
	if err := tx.Create(&items).Error; err != nil {
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	return tx.Commit().Error
}

// writer periodically drains queues into the DB until Close.
func (b *Backend) writer() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			_ = b.Flush()
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
