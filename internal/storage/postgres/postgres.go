// Package postgres implements the storage backend on PostgreSQL by wrapping
// the GORM backend with its own connection.
package postgres

import (
	"fmt"

	"github.com/citadel-raid/raidnav/internal/config"
	"github.com/citadel-raid/raidnav/internal/database"
	gormstorage "github.com/citadel-raid/raidnav/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend is the GORM backend over a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
}

// New connects to Postgres unless deps already carries a DB, in which case
// that connection is used and left open on Close.
func New(cfg config.DBConfig, deps gormstorage.Dependencies, log zerolog.Logger) (*Backend, error) {
	b := &Backend{}
	if deps.DB == nil {
		b.manager = database.NewManager(log)
		if err := b.manager.ConnectPostgres(cfg); err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		deps.DB = b.manager.DB
	}
	b.Backend = gormstorage.New(deps)
	return b, nil
}

// Close stops the writer and closes an owned connection.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.manager != nil {
		return b.manager.Close()
	}
	return nil
}
