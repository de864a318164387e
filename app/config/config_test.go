package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/app/repositories"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quill.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, repositories.BackendJSON, cfg.Storage.Backend)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 1024, cfg.Cache.Size)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
storage:
  backend: badger
  data_dir: /var/lib/quill
cache:
  enabled: true
  size: 64
  ttl: 30s
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, repositories.BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/quill", cfg.Storage.DataDir)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 64, cfg.Cache.Size)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "storage:\n  backend: badger\n")
	t.Setenv("QUILL_STORAGE_BACKEND", "sqlite")
	t.Setenv("QUILL_CACHE_TTL", "1m")
	t.Setenv("QUILL_CACHE_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, repositories.BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr string
	}{
		{
			name:    "missing file",
			setup:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
			wantErr: "read config",
		},
		{
			name:    "unknown backend",
			setup:   func(t *testing.T) string { return writeConfig(t, "storage:\n  backend: mongo\n") },
			wantErr: "storage.backend",
		},
		{
			name:    "bad level",
			setup:   func(t *testing.T) string { return writeConfig(t, "log:\n  level: loud\n") },
			wantErr: "log.level",
		},
		{
			name:    "bad format",
			setup:   func(t *testing.T) string { return writeConfig(t, "log:\n  format: xml\n") },
			wantErr: "log.format",
		},
		{
			name:    "empty data dir",
			setup:   func(t *testing.T) string { return writeConfig(t, "storage:\n  data_dir: \"  \"\n") },
			wantErr: "storage.data_dir",
		},
		{
			name:    "zero cache",
			setup:   func(t *testing.T) string { return writeConfig(t, "cache:\n  enabled: true\n  size: 0\n") },
			wantErr: "cache.size",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.setup(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStoreOptions(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Backend: repositories.BackendSQLite, DataDir: "d"},
		Cache:   CacheConfig{Enabled: false, Size: 10, TTL: time.Second},
	}
	opts := cfg.StoreOptions()
	assert.Equal(t, repositories.BackendSQLite, opts.Backend)
	assert.Equal(t, "d", opts.DataDir)
	assert.Zero(t, opts.CacheSize)

	cfg.Cache.Enabled = true
	opts = cfg.StoreOptions()
	assert.Equal(t, 10, opts.CacheSize)
	assert.Equal(t, time.Second, opts.CacheTTL)
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "v", entry["k"])
	assert.Same(t, logger, slog.Default())

	buf.Reset()
	SetupLogger(LogConfig{Level: "debug", Format: "text"}, &buf).Debug("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
