package config

import (
	"fmt"

	"github.com/aretw0/vignette/pkg/adapters/file"
	"github.com/aretw0/vignette/pkg/adapters/memory"
	"github.com/aretw0/vignette/pkg/adapters/redis"
	"github.com/aretw0/vignette/pkg/adapters/sqlite"
	"github.com/aretw0/vignette/pkg/ports"
)

// Open builds the storage backend the configuration selects.
func (c StoreConfig) Open() (ports.StorageBackend, error) {
	switch c.Backend {
	case BackendFile, "":
		return file.New(c.Path), nil
	case BackendMemory:
		return memory.NewStore(), nil
	case BackendRedis:
		return redis.New(c.Redis.Addr, c.Redis.Password, c.Redis.DB, redis.WithKey(c.Redis.Key)), nil
	case BackendSQLite:
		store, err := sqlite.Open(c.SQLite.Path, sqlite.WithName(c.SQLite.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Backend)
	}
}

// Describe returns a short human label for the selected backend.
func (c StoreConfig) Describe() string {
	switch c.Backend {
	case BackendRedis:
		return fmt.Sprintf("redis %s key %s", c.Redis.Addr, c.Redis.Key)
	case BackendSQLite:
		return fmt.Sprintf("sqlite %s (%s)", c.SQLite.Path, c.SQLite.Name)
	case BackendMemory:
		return "memory"
	default:
		return "file " + c.Path
	}
}
