package cacheinfra

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-invoicing-client/internal/logger"
)

// maxSupersededRetries bounds how often a blocking Fetch restarts after its
// flight was superseded by an invalidation.
const maxSupersededRetries = 3

// keyState is the control plane for a single key. The payload itself lives in
// the sturdyc backed store; everything here is guarded by mu.
type keyState struct {
	mu          sync.Mutex
	key         Key
	id          string
	gen         uint64
	fetch       FetchFn
	loading     bool
	stale       bool
	removed     bool
	lastErr     error
	lastAttempt time.Time
	subs        map[uint64]*Subscription
}

// QueryCache is a keyed stale-while-revalidate cache with subscriptions,
// prefix invalidation and per-key generations.
type QueryCache struct {
	cfg     Config
	store   *payloadStore
	states  *xsync.MapOf[string, *keyState]
	flights singleflight.Group
	clock   Clock
	logger  zerolog.Logger
	retryIf func(error) bool

	// generations is shared by every key state, so a key recreated after
	// eviction never reuses the flight identity of its previous incarnation.
	generations atomic.Uint64
	nextSubID   atomic.Uint64
	closed    atomic.Bool
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithClock overrides the clock used for freshness and eviction decisions.
func WithClock(clock Clock) Option {
	return func(c *QueryCache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger used by the cache.
func WithLogger(l zerolog.Logger) Option {
	return func(c *QueryCache) {
		c.logger = l
	}
}

// WithRetryIf decides which fetch errors are retried. By default every error
// is retried except context cancellation and errors whose Retryable method
// returns false.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *QueryCache) {
		if fn != nil {
			c.retryIf = fn
		}
	}
}

// NewQueryCache validates cfg and builds a cache backed by sturdyc storage.
// When cfg.EvictionInterval is positive a janitor prunes idle keys until Close.
func NewQueryCache(cfg Config, opts ...Option) (*QueryCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &QueryCache{
		cfg:    cfg,
		store:  newPayloadStore(cfg),
		states: xsync.NewMapOf[string, *keyState](),
		clock:   realClock{},
		logger:  logger.WithComponent("querycache"),
		retryIf: retryable,
		stop:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if cfg.EvictionInterval > 0 {
		c.wg.Add(1)
		go c.janitor(cfg.EvictionInterval)
	}

	return c, nil
}

// Get returns the current snapshot for key without blocking. When the entry
// is empty, stale or failed a refresh is scheduled unless one is in flight.
// A non-nil fetch replaces the fetch function registered for the key.
func (c *QueryCache) Get(ctx context.Context, key Key, fetch FetchFn) Snapshot {
	s := c.lockState(key)
	defer s.mu.Unlock()

	if fetch != nil {
		s.fetch = fetch
	}

	if c.needsRefreshLocked(s) {
		c.scheduleLocked(ctx, s)
	}

	return c.snapshotLocked(s)
}

// Fetch returns the cached value for key, waiting for the shared in-flight
// fetch when nothing is cached yet. Stale values are returned immediately
// while a background refresh runs.
func (c *QueryCache) Fetch(ctx context.Context, key Key, fetch FetchFn) (any, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	for attempt := 0; attempt < maxSupersededRetries; attempt++ {
		s := c.lockState(key)
		if fetch != nil {
			s.fetch = fetch
		}

		if p, ok := c.payloadLocked(s); ok {
			if c.isStaleLocked(s, p) {
				c.scheduleLocked(ctx, s)
			}
			s.mu.Unlock()
			return p.value, nil
		}

		ch := c.scheduleLocked(ctx, s)
		s.mu.Unlock()
		if ch == nil {
			return nil, ErrNoFetcher
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if errors.Is(res.Err, ErrSuperseded) {
				continue
			}
			return res.Val, res.Err
		}
	}

	return nil, ErrSuperseded
}

// Refetch forces a refresh of key with its registered fetch function and
// waits for it. The refresh error is returned to the caller.
func (c *QueryCache) Refetch(ctx context.Context, key Key) error {
	s, ok := c.states.Load(key.String())
	if !ok {
		return ErrNoFetcher
	}

	s.mu.Lock()
	ch := c.scheduleLocked(ctx, s)
	s.mu.Unlock()
	if ch == nil {
		return ErrNoFetcher
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if errors.Is(res.Err, ErrSuperseded) {
			return nil
		}
		return res.Err
	}
}

// RefreshStatus reports the refresh state of key, including the last error.
func (c *QueryCache) RefreshStatus(key Key) RefreshStatus {
	s, ok := c.states.Load(key.String())
	if !ok {
		return RefreshStatus{Key: key, Status: StatusEmpty}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := c.snapshotLocked(s)
	return RefreshStatus{
		Key:         key,
		Status:      snap.Status,
		Fetching:    s.loading,
		Err:         s.lastErr,
		LastAttempt: s.lastAttempt,
	}
}

// Subscribe registers a live consumer for key. The subscription receives the
// current snapshot immediately, then one after every applied refresh or
// invalidation. Close the subscription to stop receiving updates.
func (c *QueryCache) Subscribe(ctx context.Context, key Key, fetch FetchFn) *Subscription {
	sub := newSubscription(c, key, c.nextSubID.Add(1))

	s := c.lockState(key)
	if fetch != nil {
		s.fetch = fetch
	}
	s.subs[sub.id] = sub

	if c.needsRefreshLocked(s) {
		c.scheduleLocked(ctx, s)
	}
	sub.deliver(c.snapshotLocked(s))
	s.mu.Unlock()

	return sub
}

// Invalidate marks every key starting with prefix as stale and bumps its
// generation so in-flight responses are discarded. Keys with subscribers are
// refetched in the background; keys without subscribers are evicted.
// It returns the number of matching keys.
func (c *QueryCache) Invalidate(ctx context.Context, prefix Key) int {
	matched := c.matching(prefix)

	for _, s := range matched {
		s.mu.Lock()
		if s.removed {
			s.mu.Unlock()
			continue
		}

		s.gen = c.generations.Add(1)
		s.loading = false
		s.stale = true

		if len(s.subs) == 0 {
			c.store.delete(s.id)
			c.removeLocked(s)
			s.mu.Unlock()
			continue
		}

		c.scheduleLocked(ctx, s)
		snap := c.snapshotLocked(s)
		subs := subscribersLocked(s)
		s.mu.Unlock()

		notify(subs, snap)
	}

	c.logger.Debug().
		Str("prefix", prefix.String()).
		Int("matched", len(matched)).
		Msg("invalidated cache keys")

	return len(matched)
}

// Reset drops every payload and discards in-flight responses without
// refetching. Subscribers are notified with an empty snapshot. It is used when
// the session ends and cached data must not outlive it.
func (c *QueryCache) Reset() int {
	matched := c.matching(nil)

	for _, s := range matched {
		s.mu.Lock()
		s.gen = c.generations.Add(1)
		s.loading = false
		s.stale = false
		s.lastErr = nil
		c.store.delete(s.id)

		if len(s.subs) == 0 {
			c.removeLocked(s)
			s.mu.Unlock()
			continue
		}

		snap := c.snapshotLocked(s)
		subs := subscribersLocked(s)
		s.mu.Unlock()

		notify(subs, snap)
	}

	return len(matched)
}

// Prune removes bookkeeping for keys that have no payload, no subscribers
// and no fetch in flight. It returns the number of keys removed.
func (c *QueryCache) Prune() int {
	removed := 0
	for _, s := range c.matching(nil) {
		s.mu.Lock()
		if !s.removed && !s.loading && len(s.subs) == 0 {
			if _, ok := c.payloadLocked(s); !ok {
				c.removeLocked(s)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of payloads currently held by the storage.
func (c *QueryCache) Len() int {
	return c.store.size()
}

// Close stops the janitor. Cached values stay readable.
func (c *QueryCache) Close() error {
	c.stopOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)
	})
	c.wg.Wait()
	return nil
}

func (c *QueryCache) janitor(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.Prune(); n > 0 {
				c.logger.Debug().Int("pruned", n).Msg("pruned idle cache keys")
			}
		}
	}
}

// lockState returns the live state for key with its mutex held.
func (c *QueryCache) lockState(key Key) *keyState {
	id := key.String()
	for {
		s, _ := c.states.LoadOrCompute(id, func() *keyState {
			return &keyState{
				key:  append(Key(nil), key...),
				id:   id,
				gen:  c.generations.Add(1),
				subs: make(map[uint64]*Subscription),
			}
		})
		s.mu.Lock()
		if !s.removed {
			return s
		}
		s.mu.Unlock()
	}
}

func (c *QueryCache) removeLocked(s *keyState) {
	s.removed = true
	c.states.Compute(s.id, func(current *keyState, loaded bool) (*keyState, bool) {
		return current, !loaded || current == s
	})
}

func (c *QueryCache) matching(prefix Key) []*keyState {
	var matched []*keyState
	c.states.Range(func(_ string, s *keyState) bool {
		if s.key.HasPrefix(prefix) {
			matched = append(matched, s)
		}
		return true
	})
	return matched
}

// payloadLocked returns the stored payload for s, dropping it when it is
// older than CacheTime.
func (c *QueryCache) payloadLocked(s *keyState) (payload, bool) {
	p, ok := c.store.get(s.id)
	if !ok {
		return payload{}, false
	}
	if c.clock.Now().Sub(p.fetchedAt) > c.cfg.CacheTime {
		c.store.delete(s.id)
		return payload{}, false
	}
	return p, true
}

func (c *QueryCache) isStaleLocked(s *keyState, p payload) bool {
	if s.stale {
		return true
	}
	return c.clock.Now().Sub(p.fetchedAt) > c.cfg.StaleTime(s.key.Family())
}

func (c *QueryCache) needsRefreshLocked(s *keyState) bool {
	p, ok := c.payloadLocked(s)
	if !ok {
		return true
	}
	return c.isStaleLocked(s, p)
}

func (c *QueryCache) snapshotLocked(s *keyState) Snapshot {
	snap := Snapshot{
		Key:      s.key,
		Fetching: s.loading,
	}

	p, ok := c.payloadLocked(s)
	switch {
	case ok:
		snap.Value = p.value
		snap.Loaded = true
		snap.FetchedAt = p.fetchedAt
		snap.Status = StatusFresh
		if c.isStaleLocked(s, p) {
			snap.Status = StatusStale
		}
	case s.loading:
		snap.Status = StatusLoading
	case s.lastErr != nil:
		snap.Status = StatusError
	default:
		snap.Status = StatusEmpty
	}

	return snap
}

// scheduleLocked starts, or joins, the fetch for the current generation of s.
// Flights are keyed by key and generation so at most one request per key is
// outstanding, and an invalidation starts a new flight instead of joining a
// superseded one.
func (c *QueryCache) scheduleLocked(ctx context.Context, s *keyState) <-chan singleflight.Result {
	if s.fetch == nil || c.closed.Load() {
		return nil
	}

	gen := s.gen
	fetch := s.fetch
	fetchCtx := context.WithoutCancel(ctx)

	if !s.loading {
		s.loading = true
		s.lastAttempt = c.clock.Now()
	}

	return c.flights.DoChan(s.id+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		value, err := c.fetchWithRetry(fetchCtx, s, gen, fetch)
		return c.complete(s, gen, value, err)
	})
}

// fetchWithRetry runs fetch, repeating it up to cfg.Retries times while the
// error is retryable and the generation is still current.
func (c *QueryCache) fetchWithRetry(ctx context.Context, s *keyState, gen uint64, fetch FetchFn) (any, error) {
	value, err := fetch(ctx)

	for attempt := 1; err != nil && attempt <= c.cfg.Retries; attempt++ {
		if !c.retryIf(err) || !c.isCurrent(s, gen) {
			break
		}

		c.logger.Debug().
			Err(err).
			Str("key", s.id).
			Int("attempt", attempt).
			Msg("retrying failed fetch")

		if c.cfg.RetryDelay > 0 {
			timer := time.NewTimer(c.cfg.RetryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, err
			case <-c.stop:
				timer.Stop()
				return nil, err
			case <-timer.C:
			}
		}

		value, err = fetch(ctx)
	}

	return value, err
}

func (c *QueryCache) isCurrent(s *keyState, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// retryable is the default retry policy.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// complete applies a fetch result if its generation is still current.
func (c *QueryCache) complete(s *keyState, gen uint64, value any, err error) (any, error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		c.logger.Debug().
			Str("key", s.id).
			Uint64("generation", gen).
			Msg("discarding superseded response")
		// A failure is still reported to the waiting callers; only
		// successful values are retried under the new generation.
		if err != nil {
			return nil, err
		}
		return nil, ErrSuperseded
	}

	s.loading = false

	if err != nil {
		s.lastErr = err
		snap := c.snapshotLocked(s)
		subs := subscribersLocked(s)
		s.mu.Unlock()

		c.logger.Warn().
			Err(err).
			Str("key", s.id).
			Bool("has_value", snap.Loaded).
			Msg("cache refresh failed")

		notify(subs, snap)
		return nil, err
	}

	s.lastErr = nil
	s.stale = false
	c.store.set(s.id, payload{value: value, fetchedAt: c.clock.Now()})

	snap := c.snapshotLocked(s)
	subs := subscribersLocked(s)
	s.mu.Unlock()

	notify(subs, snap)
	return value, nil
}

func (c *QueryCache) unsubscribe(sub *Subscription) {
	s, ok := c.states.Load(sub.key.String())
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.subs, sub.id)
	s.mu.Unlock()
}

func subscribersLocked(s *keyState) []*Subscription {
	if len(s.subs) == 0 {
		return nil
	}
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	return subs
}

func notify(subs []*Subscription, snap Snapshot) {
	for _, sub := range subs {
		sub.deliver(snap)
	}
}
