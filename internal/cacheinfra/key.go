package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"time"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

var (
	// ErrSuperseded is returned to waiters whose fetch was started before the
	// latest invalidation of its key. The response is discarded.
	ErrSuperseded = errors.New("cache: response superseded by invalidation")

	// ErrNoFetcher is returned when a refresh is requested for a key that was
	// never registered with a fetch function.
	ErrNoFetcher = errors.New("cache: no fetch function registered for key")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache: closed")
)

// FetchFn loads the value for a key from the source of truth.
type FetchFn func(ctx context.Context) (any, error)

// Key is a logical cache key made of segments, e.g. ["invoices", "/invoices?limit=5"].
// The first segment is the key family that selects the freshness window.
type Key []string

// String returns the storage form of the key.
func (k Key) String() string {
	return strings.Join(k, KeySeparator)
}

// Family returns the first segment of the key.
func (k Key) Family() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// HasPrefix reports whether every segment of prefix matches the leading
// segments of k. An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Status is the lifecycle state of a cache key.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusFresh
	StatusStale
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of a cache entry handed to consumers.
type Snapshot struct {
	Key       Key
	Value     any
	Loaded    bool
	Status    Status
	FetchedAt time.Time
	Fetching  bool
}

// RefreshStatus exposes the refresh state of a key, including the error of
// the last failed refresh. Passive readers never see that error.
type RefreshStatus struct {
	Key         Key
	Status      Status
	Fetching    bool
	Err         error
	LastAttempt time.Time
}

// Clock abstracts time for freshness and eviction decisions.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
