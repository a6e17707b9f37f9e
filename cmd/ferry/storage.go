package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/OCAP2/ferry/internal/config"
	"github.com/OCAP2/ferry/internal/storage"
	"github.com/OCAP2/ferry/internal/storage/memory"
	pgstorage "github.com/OCAP2/ferry/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/ferry/internal/storage/sqlite"
)

func createStorageBackend(storageCfg config.StorageConfig, log zerolog.Logger) (storage.Backend, error) {
	log = log.With().Str("component", "storage").Logger()

	switch storageCfg.Type {
	case "postgres":
		return pgstorage.New(config.GetDBConfig(), log), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "none":
		return storage.Nop{}, nil

	case "memory", "":
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageCfg.Type)
	}
}
