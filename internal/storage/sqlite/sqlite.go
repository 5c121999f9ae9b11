// Package sqlitestorage implements the storage backend on an in-memory SQLite
// database with periodic disk dumps via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/citadel-raid/raidnav/internal/database"
	gormstorage "github.com/citadel-raid/raidnav/internal/storage/gorm"
	"github.com/citadel-raid/raidnav/pkg/core"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	OutputDir    string // directory for <run uuid>.db dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	dumpPath string
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new SQLite storage backend over a private in-memory database.
func New(cfg Config, deps gormstorage.Dependencies) (*Backend, error) {
	db, err := database.OpenSqlite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	deps.DB = db

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Backend{
		Backend:  gormstorage.New(deps),
		db:       db,
		cfg:      cfg,
		log:      log.With("component", "storage.sqlite"),
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	b.done = make(chan struct{})
	if b.cfg.OutputDir != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}
	return nil
}

// StartRun records the run and fixes the dump file name to its UUID.
func (b *Backend) StartRun(run *core.Run, grid core.GridInfo) error {
	if err := b.Backend.StartRun(run, grid); err != nil {
		return err
	}
	if b.cfg.OutputDir != "" {
		b.mu.Lock()
		b.dumpPath = filepath.Join(b.cfg.OutputDir, run.UUID+".db")
		b.mu.Unlock()
	}
	return nil
}

// EndRun flushes pending rows and writes a final dump.
func (b *Backend) EndRun() error {
	if err := b.Backend.EndRun(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	if b.done != nil {
		<-b.done
	}
	return b.Backend.Close()
}

// DumpPath returns the file the database is dumped to, "" before StartRun.
func (b *Backend) DumpPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dumpPath
}

// Dump writes a snapshot of the database to DumpPath. It is a no-op before a
// run has started or when no output directory is configured.
func (b *Backend) Dump() error {
	path := b.DumpPath()
	if path == "" {
		return nil
	}

	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, path); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", path, "duration", time.Since(start))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
