package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("INVOICING_API_URL", "http://localhost:8080")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.URL)
	assert.Zero(t, cfg.API.Timeout)
	assert.Equal(t, SessionSQLite, cfg.Session.Backend)
	assert.Equal(t, "invoicing-session.db", cfg.Session.DSN)
	assert.Equal(t, "localhost:6379", cfg.Session.RedisAddr)
	assert.Equal(t, 10000, cfg.Cache.Capacity)
	assert.Equal(t, time.Minute, cfg.Cache.EvictionInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "stderr", cfg.Log.Output)
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("INVOICING_API_URL", "https://api.example.com")
	t.Setenv("INVOICING_HTTP_TIMEOUT", "15s")
	t.Setenv("INVOICING_GOOGLE_CLIENT_ID", "client-1")
	t.Setenv("INVOICING_SESSION_BACKEND", "REDIS")
	t.Setenv("INVOICING_REDIS_ADDR", "redis:6380")
	t.Setenv("INVOICING_REDIS_DB", "2")
	t.Setenv("INVOICING_CACHE_CAPACITY", "50")
	t.Setenv("INVOICING_LOG_LEVEL", "debug")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, "client-1", cfg.Google.ClientID)
	assert.Equal(t, SessionRedis, cfg.Session.Backend)
	assert.Equal(t, "redis:6380", cfg.Session.RedisAddr)
	assert.Equal(t, 2, cfg.Session.RedisDB)
	assert.Equal(t, 50, cfg.Cache.Capacity)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing api url", env: map[string]string{}},
		{name: "relative api url", env: map[string]string{"INVOICING_API_URL": "localhost"}},
		{name: "unknown backend", env: map[string]string{
			"INVOICING_API_URL":         "http://localhost",
			"INVOICING_SESSION_BACKEND": "etcd",
		}},
		{name: "negative timeout", env: map[string]string{
			"INVOICING_API_URL":      "http://localhost",
			"INVOICING_HTTP_TIMEOUT": "-1s",
		}},
		{name: "unknown log level", env: map[string]string{
			"INVOICING_API_URL":   "http://localhost",
			"INVOICING_LOG_LEVEL": "loud",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("INVOICING_API_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := FromViper(viper.New())
			assert.Error(t, err)
		})
	}
}

func TestValidate_SQLBackendNeedsDSN(t *testing.T) {
	cfg := &Config{
		API:     APIConfig{URL: "http://localhost"},
		Session: SessionConfig{Backend: SessionPostgres},
		Cache:   CacheConfig{Capacity: 1},
	}
	assert.ErrorContains(t, cfg.Validate(), "session.dsn")

	cfg.Session.Backend = SessionMemory
	assert.NoError(t, cfg.Validate())
}
