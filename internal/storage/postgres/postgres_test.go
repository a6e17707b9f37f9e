package postgres

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/OCAP2/ferry/internal/config"
	"github.com/OCAP2/ferry/internal/database"
	"github.com/OCAP2/ferry/internal/storage"
	"github.com/OCAP2/ferry/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var _ storage.Backend = (*Backend)(nil)

func TestInit_ConnectionError(t *testing.T) {
	b := New(config.DBConfig{Host: "db.invalid", Port: "5432"}, zerolog.Nop())
	b.open = func(config.DBConfig) (*gorm.DB, error) {
		return nil, errors.New("connection refused")
	}

	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.invalid:5432")
	assert.NoError(t, b.Close(), "close before a successful init is a no-op")
}

func TestInit_UsesOpenedConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stand-in.db")
	var got config.DBConfig
	b := New(config.DBConfig{Host: "localhost", Database: "ferry"}, zerolog.Nop())
	b.open = func(cfg config.DBConfig) (*gorm.DB, error) {
		got = cfg
		return database.OpenSQLite(path)
	}

	require.NoError(t, b.Init())
	assert.Equal(t, "ferry", got.Database)

	require.NoError(t, b.StartRun(&core.Run{ID: "pg-wrapper"}))
	require.NoError(t, b.RecordSkip(&core.Skip{Voyage: 1, VehicleID: 3}))
	require.NoError(t, b.EndRun(&core.Summary{}))
	require.NoError(t, b.Close())
}
