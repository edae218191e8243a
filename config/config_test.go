package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/slotdb/docdb"
	"github.com/stevemurr/slotdb/store"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SLOTDB_ID_FIELD", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Backend)
	assert.Equal(t, docdb.FieldID, cfg.IdentifierField())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slotdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: memory
ref: app
id_field: _key
port: "9000"
log_level: debug
`), 0o644))

	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Backend)
	assert.Equal(t, "app", cfg.Ref)
	assert.Equal(t, docdb.FieldKey, cfg.IdentifierField())
	assert.Equal(t, "9100", cfg.Port, "environment wins over the file")

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("backend: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"key field", func(c *Config) { c.IDField = "_key" }, false},
		{"bad field", func(c *Config) { c.IDField = "id" }, true},
		{"bad backend", func(c *Config) { c.Backend = "redis" }, true},
		{"s3 without bucket", func(c *Config) { c.Backend = "s3" }, true},
		{"s3 with bucket", func(c *Config) { c.Backend = "s3"; c.S3.Bucket = "b" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"empty ref", func(c *Config) { c.Ref = "" }, true},
		{"ref escapes data dir", func(c *Config) { c.Ref = "../x" }, true},
		{"ref with backslash", func(c *Config) { c.Ref = `a\b` }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"STORE_BACKEND":   "sqlite",
		"SLOTDB_ID_FIELD": "_key",
		"S3_BUCKET":       "bucket",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, "_key", cfg.IDField)
	assert.Equal(t, "bucket", cfg.S3.Bucket)
	assert.Equal(t, "0.0.0.0", cfg.Host)
}

func TestOpenSlot(t *testing.T) {
	cfg := Default()
	cfg.Backend = "memory"
	slot, err := cfg.OpenSlot(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, slot)
}
