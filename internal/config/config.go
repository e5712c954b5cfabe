// Package config loads the vignette configuration file and environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by StoreConfig.Backend.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Environment variables applied over the file.
const (
	EnvStoreBackend = "VIGNETTE_STORE_BACKEND"
	EnvStorePath    = "VIGNETTE_STORE_PATH"
	EnvRedisAddr    = "VIGNETTE_REDIS_ADDR"
	EnvRedisKey     = "VIGNETTE_REDIS_KEY"
	EnvRedisDB      = "VIGNETTE_REDIS_DB"
	EnvSQLitePath   = "VIGNETTE_SQLITE_PATH"
	EnvListen       = "VIGNETTE_LISTEN"
	EnvLogLevel     = "VIGNETTE_LOG_LEVEL"
)

// DefaultFile is read when no --config flag is given. It may be absent.
const DefaultFile = "vignette.yaml"

// Config represents the structure of vignette.yaml.
type Config struct {
	Store    StoreConfig `yaml:"store" json:"store"`
	HTTP     HTTPConfig  `yaml:"http" json:"http"`
	LogLevel string      `yaml:"log_level" json:"log_level"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Backend string       `yaml:"backend" json:"backend"`
	Path    string       `yaml:"path" json:"path"` // file backend
	Redis   RedisConfig  `yaml:"redis" json:"redis"`
	SQLite  SQLiteConfig `yaml:"sqlite" json:"sqlite"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Key      string `yaml:"key" json:"key"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" json:"path"`
	Name string `yaml:"name" json:"name"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Listen  string `yaml:"listen" json:"listen"`
	Metrics bool   `yaml:"metrics" json:"metrics"` // expose /metrics
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    filepath.Join(".vignette", "store.json"),
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "vignette:document",
			},
			SQLite: SQLiteConfig{
				Path: filepath.Join(".vignette", "vignette.db"),
				Name: "default",
			},
		},
		HTTP: HTTPConfig{
			Listen:  ":8080",
			Metrics: true,
		},
		LogLevel: "info",
	}
}

// Load reads a configuration file (YAML or JSON) over the defaults and then
// applies environment overrides. A missing file is only an error when required.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || required {
				return Config{}, err
			}
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}
	// Default to YAML
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment, read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvStoreBackend, &c.Store.Backend)
	set(EnvStorePath, &c.Store.Path)
	set(EnvRedisAddr, &c.Store.Redis.Addr)
	set(EnvRedisKey, &c.Store.Redis.Key)
	set(EnvSQLitePath, &c.Store.SQLite.Path)
	set(EnvListen, &c.HTTP.Listen)
	set(EnvLogLevel, &c.LogLevel)

	if v, ok := lookup(EnvRedisDB); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvRedisDB, v, err)
		}
		c.Store.Redis.DB = db
	}
	return nil
}

// Validate rejects unknown backends.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendMemory, BackendRedis, BackendSQLite:
		return nil
	default:
		return fmt.Errorf("unknown store backend %q (want file, memory, redis or sqlite)", c.Store.Backend)
	}
}
