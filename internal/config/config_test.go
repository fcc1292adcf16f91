package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CLOCK_TZ", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "routelink.db", cfg.DB.DSN)
	assert.Equal(t, 5*time.Second, cfg.DB.TxTimeout)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 256, cfg.BroadcastBuf)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Empty(t, cfg.Holidays)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	holidays := filepath.Join(dir, "holidays.json")
	require.NoError(t, os.WriteFile(holidays, []byte(`[{"date":"2025-03-14","name":"Holi"}]`), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://app:pw@db.internal:5433/routes?sslmode=require")
	t.Setenv("DB_TX_TIMEOUT", "2s")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("CLOCK_TZ", "Asia/Kolkata")
	t.Setenv("HOLIDAYS_FILE", holidays)
	t.Setenv("CORS_ORIGINS", "https://rides.example.com, ,http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.DB.TxTimeout)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
	assert.Equal(t, []Holiday{{Date: "2025-03-14", Name: "Holi"}}, cfg.Holidays)
	assert.Equal(t, []string{"https://rides.example.com", "http://localhost:5173"}, cfg.CORSOrigins)
	for _, part := range []string{"host=db.internal", "port=5433", "user=app", "dbname=routes", "sslmode=require"} {
		assert.True(t, strings.Contains(cfg.DB.DSN, part), "%q missing %s", cfg.DB.DSN, part)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"DB_DRIVER":        "mysql",
		"DB_TX_TIMEOUT":    "soon",
		"BROADCAST_BUFFER": "lots",
		"CLOCK_TZ":         "Mars/Olympus",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv("DB_DRIVER", "sqlite")
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
