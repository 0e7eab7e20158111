package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the query cache and its sturdyc storage.
type Config struct {
	// Capacity defines the maximum number of payloads the storage keeps.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of storage shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// CacheTime is the maximum age of a payload. Older payloads are dropped
	// regardless of subscriber count and refetched on next access.
	// Must be greater than 0. Default: 30 minutes
	CacheTime time.Duration

	// EvictionPercentage specifies what percentage of payloads to evict
	// when the storage reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired payloads are swept and idle key
	// bookkeeping is pruned. Zero disables the janitor and uses the sturdyc default.
	EvictionInterval time.Duration

	// DefaultStaleTime is the freshness window for key families without an
	// explicit entry in StaleTimes.
	DefaultStaleTime time.Duration

	// StaleTimes maps a key family (the first key segment) to its freshness window.
	StaleTimes map[string]time.Duration

	// Retries is how many times a failed fetch is repeated before the failure
	// is recorded. Errors that report themselves as not retryable are never
	// repeated. Default: 1
	Retries int

	// RetryDelay is the pause before each repeated fetch. Default: 1 second
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with the defaults used by the client.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		CacheTime:          30 * time.Minute,
		EvictionPercentage: 10,
		EvictionInterval:   time.Minute,
		DefaultStaleTime:   5 * time.Minute,
		StaleTimes:         map[string]time.Duration{},
		Retries:            1,
		RetryDelay:         time.Second,
	}
}

// StaleTime returns the freshness window configured for the given family.
func (c Config) StaleTime(family string) time.Duration {
	if d, ok := c.StaleTimes[family]; ok {
		return d
	}
	return c.DefaultStaleTime
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, CacheTime and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.CacheTime <= 0 {
		return &ConfigError{Field: "CacheTime", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	if c.DefaultStaleTime <= 0 {
		return &ConfigError{Field: "DefaultStaleTime", Message: "must be greater than 0"}
	}

	if c.Retries < 0 {
		return &ConfigError{Field: "Retries", Message: "must be non-negative"}
	}

	if c.RetryDelay < 0 {
		return &ConfigError{Field: "RetryDelay", Message: "must be non-negative"}
	}

	for family, d := range c.StaleTimes {
		if d <= 0 {
			return &ConfigError{Field: "StaleTimes." + family, Message: "must be greater than 0"}
		}
		if d > c.CacheTime {
			return &ConfigError{Field: "StaleTimes." + family, Message: "must not exceed CacheTime"}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// payload is what the storage holds for a key: the normalized value and when
// it was fetched.
type payload struct {
	value     any
	fetchedAt time.Time
}

// payloadStore wraps a sturdyc client. sturdyc enforces capacity and drops
// payloads once CacheTime has elapsed on the wall clock; the query cache
// additionally checks payload age against its own clock on every access.
type payloadStore struct {
	client *sturdyc.Client[payload]
}

func newPayloadStore(cfg Config) *payloadStore {
	client := sturdyc.New[payload](
		cfg.Capacity,
		cfg.NumShards,
		cfg.CacheTime,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)
	return &payloadStore{client: client}
}

func (s *payloadStore) get(key string) (payload, bool) {
	return s.client.Get(key)
}

func (s *payloadStore) set(key string, p payload) {
	s.client.Set(key, p)
}

func (s *payloadStore) delete(key string) {
	s.client.Delete(key)
}

func (s *payloadStore) size() int {
	return s.client.Size()
}
