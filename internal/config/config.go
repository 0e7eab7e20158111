package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-invoicing-client/internal/logger"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "INVOICING"

// Session backends.
const (
	SessionMemory   = "memory"
	SessionSQLite   = "sqlite"
	SessionPostgres = "postgres"
	SessionRedis    = "redis"
)

// Config holds the client configuration
type Config struct {
	API     APIConfig
	Google  GoogleConfig
	Session SessionConfig
	Cache   CacheConfig
	Log     logger.LogConfig
}

// APIConfig holds the backend connection settings
type APIConfig struct {
	URL     string
	Timeout time.Duration // zero disables the client side deadline
}

// GoogleConfig holds the OAuth client settings
type GoogleConfig struct {
	ClientID string
}

// SessionConfig selects where the session token is persisted
type SessionConfig struct {
	Backend       string // memory, sqlite, postgres, redis
	DSN           string // sqlite path or postgres DSN
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// CacheConfig holds the query cache settings
type CacheConfig struct {
	Capacity         int
	EvictionInterval time.Duration
}

// Load reads configuration from a .env file (when present) and environment
// variables with the INVOICING_ prefix, e.g. INVOICING_API_URL.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}
	return FromViper(viper.New())
}

// FromViper builds the configuration from v with the environment bound and
// defaults applied.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		API: APIConfig{
			URL:     v.GetString("api.url"),
			Timeout: v.GetDuration("http.timeout"),
		},
		Google: GoogleConfig{
			ClientID: v.GetString("google.client_id"),
		},
		Session: SessionConfig{
			Backend:       strings.ToLower(v.GetString("session.backend")),
			DSN:           v.GetString("session.dsn"),
			RedisAddr:     v.GetString("redis.addr"),
			RedisPassword: v.GetString("redis.password"),
			RedisDB:       v.GetInt("redis.db"),
			RedisKey:      v.GetString("redis.key"),
		},
		Cache: CacheConfig{
			Capacity:         v.GetInt("cache.capacity"),
			EvictionInterval: v.GetDuration("cache.eviction_interval"),
		},
		Log: logger.LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			TimeFormat: time.RFC3339,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", 0)
	v.SetDefault("session.backend", SessionSQLite)
	v.SetDefault("session.dsn", "invoicing-session.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key", "invoicing:session")
	v.SetDefault("cache.capacity", 10000)
	v.SetDefault("cache.eviction_interval", time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validation.Errors{
		"api.url":         validation.Validate(c.API.URL, validation.Required, is.RequestURL),
		"http.timeout":    validation.Validate(c.API.Timeout, validation.Min(time.Duration(0))),
		"session.backend": validation.Validate(c.Session.Backend, validation.In(SessionMemory, SessionSQLite, SessionPostgres, SessionRedis)),
		"cache.capacity":  validation.Validate(c.Cache.Capacity, validation.Required, validation.Min(1)),
		"log.level":       validation.Validate(c.Log.Level, validation.In("trace", "debug", "info", "warn", "error")),
	}.Filter()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if (c.Session.Backend == SessionSQLite || c.Session.Backend == SessionPostgres) && c.Session.DSN == "" {
		return fmt.Errorf("invalid configuration: session.dsn is required for the %s backend", c.Session.Backend)
	}
	return nil
}
