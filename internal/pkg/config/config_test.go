package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		StorageDriver:       StorageDriverSQLite,
		SQLitePath:          "data/test.db",
		MaxBatchRefresh:     30,
		ReadinessTTL:        10 * time.Minute,
		TimelineTTL:         30 * time.Minute,
		ReadinessRateLimit:  30,
		ReadinessRateWindow: time.Minute,
		ServerPort:          8081,
	}
}

func TestValidate_SQLiteWithoutPassword(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_PostgresRequiresPassword(t *testing.T) {
	cfg := validConfig()
	cfg.StorageDriver = StorageDriverPostgres
	assert.Error(t, cfg.Validate())

	cfg.DatabasePassword = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.StorageDriver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestValidate_BatchLimit(t *testing.T) {
	cfg := validConfig()
	cfg.MaxBatchRefresh = 0
	assert.Error(t, cfg.Validate())

	cfg.MaxBatchRefresh = 101
	assert.Error(t, cfg.Validate())
}

func TestValidate_CacheTTLs(t *testing.T) {
	cfg := validConfig()
	cfg.TimelineTTL = 0
	assert.NoError(t, cfg.Validate())

	cfg.TimelineTTL = -time.Second
	assert.Error(t, cfg.Validate())

	cfg.TimelineTTL = 25 * time.Hour
	assert.Error(t, cfg.Validate())
}

func TestNew_ReadsEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/prs.db")
	t.Setenv("RETAIN_CLOSED", "true")
	t.Setenv("GITHUB_MAX_RETRIES", "4")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/prs.db", cfg.SQLitePath)
	assert.True(t, cfg.RetainClosed)
	assert.True(t, cfg.StorePartial)
	assert.Equal(t, uint64(4), cfg.GitHubMaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.ReadinessTTL)
	assert.Equal(t, 30*time.Minute, cfg.TimelineTTL)
	assert.Equal(t, "https://api.github.com/", cfg.GitHubBaseURL)
}
