// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database that is dumped to disk via VACUUM INTO when a run ends.
// It wraps the GORM backend via composition; the only SQLite-specific concerns are
// creating the database and dumping it.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/OCAP2/ferry/internal/config"
	"github.com/OCAP2/ferry/internal/database"
	gormstorage "github.com/OCAP2/ferry/internal/storage/gorm"
	"github.com/OCAP2/ferry/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg config.SQLiteConfig
	log zerolog.Logger
}

// New creates a new SQLite storage backend. With an empty cfg.Path the data
// only lives for the process.
func New(cfg config.SQLiteConfig, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:     db,
			Logger: log,
		}),
		db:  db,
		cfg: cfg,
		log: log,
	}, nil
}

// EndRun finishes the run in the database and dumps it to cfg.Path.
func (b *Backend) EndRun(summary *core.Summary) error {
	if err := b.Backend.EndRun(summary); err != nil {
		return err
	}
	return b.dump()
}

// GetExportedFilePath returns the dump path, empty when dumping is disabled.
func (b *Backend) GetExportedFilePath() string {
	return b.cfg.Path
}

func (b *Backend) dump() error {
	if b.cfg.Path == "" {
		return nil
	}
	start := time.Now()
	if err := database.DumpToDisk(b.db, b.cfg.Path); err != nil {
		b.log.Error().Err(err).Str("path", b.cfg.Path).Msg("Error dumping to disk")
		return err
	}
	b.log.Debug().Str("path", b.cfg.Path).Dur("duration", time.Since(start)).Msg("Dumped to disk")
	return nil
}
