package cache

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-invoicing-client/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config = cacheinfra.Config

// ConfigError reports an invalid Config field.
type ConfigError = cacheinfra.ConfigError

// Option configures the query cache.
type Option = cacheinfra.Option

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return cacheinfra.DefaultConfig()
}

// WithClock overrides the clock used for freshness decisions.
func WithClock(clock Clock) Option {
	return cacheinfra.WithClock(clock)
}

// WithLogger sets the logger used by the cache.
func WithLogger(l zerolog.Logger) Option {
	return cacheinfra.WithLogger(l)
}

// NewQueryCache constructs the default query cache implementation using the
// provided configuration.
func NewQueryCache(cfg Config, opts ...Option) (*cacheinfra.QueryCache, error) {
	return cacheinfra.NewQueryCache(cfg, opts...)
}
