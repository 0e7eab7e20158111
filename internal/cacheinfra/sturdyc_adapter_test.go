package cacheinfra

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.CacheTime != 30*time.Minute {
		t.Errorf("expected CacheTime to be 30 minutes, got %v", cfg.CacheTime)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if cfg.DefaultStaleTime != 5*time.Minute {
		t.Errorf("expected DefaultStaleTime to be 5 minutes, got %v", cfg.DefaultStaleTime)
	}

	if cfg.Retries != 1 {
		t.Errorf("expected Retries to be 1, got %d", cfg.Retries)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfig_StaleTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StaleTimes["person"] = time.Minute

	if got := cfg.StaleTime("person"); got != time.Minute {
		t.Errorf("expected person stale time of 1m, got %v", got)
	}

	if got := cfg.StaleTime("unknown"); got != cfg.DefaultStaleTime {
		t.Errorf("expected fallback to DefaultStaleTime, got %v", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:      "zero capacity",
			mutate:    func(c *Config) { c.Capacity = 0 },
			wantField: "Capacity",
		},
		{
			name:      "negative shards",
			mutate:    func(c *Config) { c.NumShards = -1 },
			wantField: "NumShards",
		},
		{
			name:      "zero cache time",
			mutate:    func(c *Config) { c.CacheTime = 0 },
			wantField: "CacheTime",
		},
		{
			name:      "eviction percentage above 100",
			mutate:    func(c *Config) { c.EvictionPercentage = 101 },
			wantField: "EvictionPercentage",
		},
		{
			name:      "negative eviction interval",
			mutate:    func(c *Config) { c.EvictionInterval = -time.Second },
			wantField: "EvictionInterval",
		},
		{
			name:      "negative retries",
			mutate:    func(c *Config) { c.Retries = -1 },
			wantField: "Retries",
		},
		{
			name:      "negative retry delay",
			mutate:    func(c *Config) { c.RetryDelay = -time.Second },
			wantField: "RetryDelay",
		},
		{
			name:      "zero default stale time",
			mutate:    func(c *Config) { c.DefaultStaleTime = 0 },
			wantField: "DefaultStaleTime",
		},
		{
			name:      "stale time longer than cache time",
			mutate:    func(c *Config) { c.StaleTimes["invoices"] = time.Hour },
			wantField: "StaleTimes.invoices",
		},
		{
			name:      "non-positive family stale time",
			mutate:    func(c *Config) { c.StaleTimes["persons"] = 0 },
			wantField: "StaleTimes.persons",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected error for field %q, got %q", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := DefaultConfig()
	if got := len(cfg.ToSturdycOptions()); got != 1 {
		t.Errorf("expected eviction interval option, got %d options", got)
	}

	cfg.EvictionInterval = 0
	if got := len(cfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no options without eviction interval, got %d", got)
	}
}

func TestPayloadStore_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EvictionInterval = 0
	store := newPayloadStore(cfg)

	now := time.Now()
	store.set("invoice::7", payload{value: "seven", fetchedAt: now})

	got, ok := store.get("invoice::7")
	if !ok {
		t.Fatal("expected payload to be stored")
	}
	if got.value != "seven" || !got.fetchedAt.Equal(now) {
		t.Errorf("unexpected payload %+v", got)
	}
	if store.size() != 1 {
		t.Errorf("expected size 1, got %d", store.size())
	}

	store.delete("invoice::7")
	if _, ok := store.get("invoice::7"); ok {
		t.Error("expected payload to be deleted")
	}
}
