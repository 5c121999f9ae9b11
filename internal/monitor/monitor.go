// Package monitor periodically publishes a status snapshot of the running
// raid to a file and, when a database is attached, to the performances table.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/citadel-raid/raidnav/internal/model"
	"github.com/citadel-raid/raidnav/internal/raid"
	"github.com/citadel-raid/raidnav/internal/session"

	"gorm.io/gorm"
)

// StatusFileName is written inside Dependencies.StatusDir.
const StatusFileName = "status.txt"

// DefaultInterval is the snapshot period.
const DefaultInterval = time.Second

// StatusSource is read from the monitor goroutine and must be safe for that.
type StatusSource interface {
	Status() raid.Status
}

// RecorderStats exposes the recorder worker's queue.
type RecorderStats interface {
	Backlog() int
	Dropped() uint64
	GetLastDBWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Raid      StatusSource
	Recorder  RecorderStats // optional
	Session   *session.Context
	DB        *gorm.DB // optional
	StatusDir string
	Logger    *slog.Logger
	Interval  time.Duration
}

// Snapshot is what the monitor publishes each period.
type Snapshot struct {
	raid.Status
	Time                time.Time `json:"time"`
	Run                 string    `json:"run"`
	RecorderBacklog     int       `json:"recorderBacklog"`
	RecorderDropped     uint64    `json:"recorderDropped"`
	LastWriteDurationMs float64   `json:"lastWriteDurationMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	log       *slog.Logger
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		deps: deps,
		log:  log.With("component", "monitor"),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot collects the current status.
func (s *Service) Snapshot() Snapshot {
	snap := Snapshot{
		Time:   time.Now().UTC(),
		Status: s.deps.Raid.Status(),
	}
	if s.deps.Session != nil {
		snap.Run = s.deps.Session.Run().UUID
	}
	if r := s.deps.Recorder; r != nil {
		snap.RecorderBacklog = r.Backlog()
		snap.RecorderDropped = r.Dropped()
		snap.LastWriteDurationMs = float64(r.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	return snap
}

// Publish writes one snapshot to the status file and the database.
func (s *Service) Publish() error {
	snap := s.Snapshot()
	if err := s.writeStatusFile(snap); err != nil {
		return err
	}
	return s.insertPerformance(snap)
}

// writeStatusFile replaces the status file through a rename so readers never
// see a partial write.
func (s *Service) writeStatusFile(snap Snapshot) error {
	if s.deps.StatusDir == "" {
		return nil
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	path := filepath.Join(s.deps.StatusDir, StatusFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("error writing status file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *Service) insertPerformance(snap Snapshot) error {
	if s.deps.DB == nil || s.deps.Session == nil {
		return nil
	}
	runID := s.deps.Session.Run().ID
	if runID == 0 {
		return nil
	}
	perf := model.Performance{
		Time:                snap.Time,
		RunID:               runID,
		Tick:                snap.Tick,
		ActiveVessels:       uint16(snap.Active),
		WaitingVessels:      uint16(snap.Waiting),
		FreePorts:           uint16(snap.FreePorts),
		RecorderBacklog:     uint32(snap.RecorderBacklog),
		LastWriteDurationMs: float32(snap.LastWriteDurationMs),
	}
	if err := s.deps.DB.Create(&perf).Error; err != nil {
		return fmt.Errorf("error writing performance row: %w", err)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(s.stopChan, s.done)
}

func (s *Service) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	s.log.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.Publish(); err != nil {
				s.log.Error("Status publish failed", "error", err)
			}
		}
	}
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
}
