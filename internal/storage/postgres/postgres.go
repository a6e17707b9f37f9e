// Package postgres implements the storage.Backend interface on PostgreSQL by
// wrapping the GORM backend with a connection built from the db.* settings.
package postgres

import (
	"fmt"

	"github.com/OCAP2/ferry/internal/config"
	"github.com/OCAP2/ferry/internal/database"
	gormstorage "github.com/OCAP2/ferry/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Opener connects to the database. Tests replace it.
type Opener func(cfg config.DBConfig) (*gorm.DB, error)

// Backend is the GORM backend on a PostgreSQL connection opened at Init.
type Backend struct {
	*gormstorage.Backend
	cfg  config.DBConfig
	log  zerolog.Logger
	open Opener
}

// New creates a PostgreSQL backend. The connection is made by Init.
func New(cfg config.DBConfig, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log, open: database.OpenPostgres}
}

// Init connects, migrates and starts the DB writer goroutine.
func (b *Backend) Init() error {
	db, err := b.open(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres at %s:%s: %w", b.cfg.Host, b.cfg.Port, err)
	}
	b.log.Info().Str("host", b.cfg.Host).Str("database", b.cfg.Database).Msg("Connected to database")

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:     db,
		Logger: b.log,
	})
	return b.Backend.Init()
}

// Close stops the embedded backend and closes the connection pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	sqlDB, err := b.Backend.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
