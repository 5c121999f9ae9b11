package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/citadel-raid/raidnav/internal/config"
	gormstorage "github.com/citadel-raid/raidnav/internal/storage/gorm"
	"github.com/citadel-raid/raidnav/internal/storage/influx"
	"github.com/citadel-raid/raidnav/internal/storage/memory"
	"github.com/citadel-raid/raidnav/internal/storage/postgres"
	sqlitestorage "github.com/citadel-raid/raidnav/internal/storage/sqlite"
	"github.com/citadel-raid/raidnav/internal/storage/websocket"
	"github.com/rs/zerolog"
)

// Backend type names accepted by NewBackend.
const (
	TypeMemory    = "memory"
	TypeSqlite    = "sqlite"
	TypePostgres  = "postgres"
	TypeWebsocket = "websocket"
	TypeInflux    = "influx"
)

// Dependencies holds what the backends need besides their own config section.
type Dependencies struct {
	Logger    *slog.Logger
	ZeroLog   zerolog.Logger
	DB        config.DBConfig
	Influx    config.InfluxConfig
	API       config.APIConfig
	LogsDir   string // influx backup files go here
	RunConfig any
}

// NewBackend creates a storage backend based on configuration. The backend is
// not initialized.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	gormDeps := gormstorage.Dependencies{
		Logger:    deps.Logger,
		RunConfig: deps.RunConfig,
	}

	switch cfg.Type {
	case TypeMemory:
		return memory.New(cfg.Memory), nil
	case TypeSqlite:
		b, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			OutputDir:    cfg.SQLite.OutputDir,
		}, gormDeps)
		if err != nil {
			return nil, err
		}
		return b, nil
	case TypePostgres:
		b, err := postgres.New(deps.DB, gormDeps, deps.ZeroLog)
		if err != nil {
			return nil, err
		}
		return b, nil
	case TypeWebsocket:
		return websocket.New(websocket.Config{
			URL:    deps.API.ServerURL,
			APIKey: deps.API.APIKey,
		}, deps.Logger), nil
	case TypeInflux:
		backup := filepath.Join(deps.LogsDir, "influx_backup.log.gzip")
		return influx.New(influx.NewManager(deps.Influx, deps.ZeroLog, backup)), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
