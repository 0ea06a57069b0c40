package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/cardpost")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 3, cfg.RetryLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 10, cfg.SkipLimit)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.False(t, cfg.NotifyEnabled())
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=sqlite\nCHUNK_SIZE=250\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STORE_DRIVER")
		os.Unsetenv("CHUNK_SIZE")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 250, cfg.ChunkSize)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StoreDriver: DriverSQLite,
			SQLitePath:  "x.db",
			DBMaxConns:  4,
			ChunkSize:   10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "postgres without url", mutate: func(c *Config) { c.StoreDriver = DriverPostgres }, wantErr: "DATABASE_URL"},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "mysql" }, wantErr: "unknown STORE_DRIVER"},
		{name: "zero chunk size", mutate: func(c *Config) { c.ChunkSize = 0 }, wantErr: "CHUNK_SIZE"},
		{name: "negative retry limit", mutate: func(c *Config) { c.RetryLimit = -1 }, wantErr: "RETRY_LIMIT"},
		{name: "negative skip limit", mutate: func(c *Config) { c.SkipLimit = -1 }, wantErr: "SKIP_LIMIT"},
		{name: "negative backoff", mutate: func(c *Config) { c.RetryBackoff = -time.Second }, wantErr: "RETRY_BACKOFF"},
		{name: "zero pool", mutate: func(c *Config) { c.DBMaxConns = 0 }, wantErr: "DB_MAX_CONNS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNotifyEnabled(t *testing.T) {
	cfg := Config{NotifyBotToken: "123:abc"}
	assert.False(t, cfg.NotifyEnabled())
	cfg.NotifyChatID = -100123
	assert.True(t, cfg.NotifyEnabled())
}
