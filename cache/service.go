package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-invoicing-client/internal/cacheinfra"
)

type (
	// Key is a logical cache key made of segments; the first one is the family.
	Key = cacheinfra.Key
	// Status is the lifecycle state of a key.
	Status = cacheinfra.Status
	// Snapshot is the read-only view of an entry handed to consumers.
	Snapshot = cacheinfra.Snapshot
	// RefreshStatus carries the last refresh error of a key.
	RefreshStatus = cacheinfra.RefreshStatus
	// FetchFn loads a value from the source of truth.
	FetchFn = cacheinfra.FetchFn
	// Subscription delivers snapshots of a key to a live consumer.
	Subscription = cacheinfra.Subscription
	// Clock abstracts time for freshness decisions.
	Clock = cacheinfra.Clock
)

const (
	StatusEmpty   = cacheinfra.StatusEmpty
	StatusLoading = cacheinfra.StatusLoading
	StatusFresh   = cacheinfra.StatusFresh
	StatusStale   = cacheinfra.StatusStale
	StatusError   = cacheinfra.StatusError
)

var (
	ErrSuperseded = cacheinfra.ErrSuperseded
	ErrNoFetcher  = cacheinfra.ErrNoFetcher
	ErrClosed     = cacheinfra.ErrClosed

	// ErrInvalidResultType is returned when a cached value does not have the
	// type requested by the caller.
	ErrInvalidResultType = errors.New("cache: invalid result type")
)

// QueryCache exposes the query cache operations consumed by services and the
// mutation coordinator. *cacheinfra.QueryCache is the default implementation.
type QueryCache interface {
	Get(ctx context.Context, key Key, fetch FetchFn) Snapshot
	Fetch(ctx context.Context, key Key, fetch FetchFn) (any, error)
	Refetch(ctx context.Context, key Key) error
	RefreshStatus(key Key) RefreshStatus
	Subscribe(ctx context.Context, key Key, fetch FetchFn) *Subscription
	Invalidate(ctx context.Context, prefix Key) int
	Reset() int
	Close() error
}

// Fetch is a type-safe wrapper around QueryCache.Fetch.
func Fetch[T any](ctx context.Context, qc QueryCache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	result, err := qc.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}

	return cast[T](key, result)
}

// Value extracts the typed value of a snapshot. ok is false when nothing is
// loaded yet or the value has another type.
func Value[T any](snap Snapshot) (T, bool) {
	var zero T
	if !snap.Loaded {
		return zero, false
	}
	v, err := cast[T](snap.Key, snap.Value)
	if err != nil {
		return zero, false
	}
	return v, true
}

func cast[T any](key Key, result any) (T, error) {
	var zero T
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %s holds %T", ErrInvalidResultType, key.String(), result)
	}
	return typed, nil
}
