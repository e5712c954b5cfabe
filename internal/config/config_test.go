package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/vignette/pkg/adapters/file"
	"github.com/aretw0/vignette/pkg/adapters/memory"
	"github.com/aretw0/vignette/pkg/adapters/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingOptionalFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "vignette.yaml", `
store:
  backend: redis
  redis:
    addr: cache:6379
    db: 2
http:
  listen: 127.0.0.1:9000
log_level: debug
`)
	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "vignette:document", cfg.Store.Redis.Key, "unset keys keep their defaults")
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "vignette.json", `{"store": {"backend": "sqlite", "sqlite": {"path": "data/v.db"}}}`)
	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "data/v.db", cfg.Store.SQLite.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "store: ["), true)
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "store:\n  backend: etcd\n"), true)
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "vignette.yaml", "store:\n  backend: redis\n  path: from-file.json\n")
	t.Setenv(EnvStoreBackend, "file")
	t.Setenv(EnvStorePath, "from-env.json")
	t.Setenv(EnvListen, ":7000")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "from-env.json", cfg.Store.Path)
	assert.Equal(t, ":7000", cfg.HTTP.Listen)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvRedisAddr:  "r:1",
		EnvRedisKey:   "k",
		EnvRedisDB:    "3",
		EnvSQLitePath: "s.db",
		EnvStorePath:  "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "r:1", cfg.Store.Redis.Addr)
	assert.Equal(t, "k", cfg.Store.Redis.Key)
	assert.Equal(t, 3, cfg.Store.Redis.DB)
	assert.Equal(t, "s.db", cfg.Store.SQLite.Path)
	assert.Equal(t, Default().Store.Path, cfg.Store.Path, "empty values are ignored")

	env[EnvRedisDB] = "three"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestStoreConfig_Open(t *testing.T) {
	dir := t.TempDir()

	backend, err := StoreConfig{Backend: BackendFile, Path: filepath.Join(dir, "s.json")}.Open()
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, backend)

	backend, err = StoreConfig{Backend: BackendMemory}.Open()
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, backend)

	backend, err = StoreConfig{Backend: BackendSQLite, SQLite: SQLiteConfig{Path: filepath.Join(dir, "v.db")}}.Open()
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, backend)
	require.NoError(t, backend.(*sqlite.Store).Close())

	_, err = StoreConfig{Backend: "etcd"}.Open()
	assert.Error(t, err)

	assert.Equal(t, "memory", StoreConfig{Backend: BackendMemory}.Describe())
}
