package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "memory", cfg.NotifyDriver)
	assert.Equal(t, time.Minute, cfg.ReconcileInterval)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresDatabaseForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_DATABASE", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestDSNFromParts(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "ludo")
	t.Setenv("POSTGRES_PASSWORD", "p@ss")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "5433")
	t.Setenv("PG_DATABASE", "rooms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://ludo:p%40ss@db:5433/rooms", cfg.DSN())
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)

	cfg.DatabaseURL = "postgres://elsewhere/db"
	assert.Equal(t, "postgres://elsewhere/db", cfg.DSN())
}

func TestLoadWatch(t *testing.T) {
	t.Setenv("WATCH_MAX_FAILURES", "7")
	cfg, err := LoadWatch()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxFailures)
	assert.Equal(t, 10*time.Second, cfg.SessionTimeout)
	assert.Equal(t, 10*time.Second, cfg.StableAfter)
}
