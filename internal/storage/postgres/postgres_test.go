package postgres

import (
	"testing"
	"time"

	"github.com/citadel-raid/raidnav/internal/config"
	"github.com/citadel-raid/raidnav/internal/database"
	gormstorage "github.com/citadel-raid/raidnav/internal/storage/gorm"
	"github.com/citadel-raid/raidnav/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConnectionRefused(t *testing.T) {
	_, err := New(config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "raid",
		Password: "raid",
		Database: "raidnav",
	}, gormstorage.Dependencies{}, zerolog.Nop())

	assert.ErrorContains(t, err, "failed to connect to postgres")
}

func TestNew_InjectedDB(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)

	b, err := New(config.DBConfig{}, gormstorage.Dependencies{DB: db, FlushInterval: time.Hour}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, b.manager)
	require.NoError(t, b.Init())

	run := &core.Run{UUID: "pg-1", Name: "pg"}
	require.NoError(t, b.StartRun(run, core.GridInfo{}))
	assert.NotZero(t, run.ID)

	require.NoError(t, b.Close())

	// injected connection stays usable
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}
