package cacheinfra

import "sync"

// Subscription is a live consumer of a cache key. Updates are coalesced: a
// slow reader only ever sees the latest snapshot.
type Subscription struct {
	id    uint64
	key   Key
	cache *QueryCache

	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

func newSubscription(c *QueryCache, key Key, id uint64) *Subscription {
	return &Subscription{
		id:    id,
		key:   append(Key(nil), key...),
		cache: c,
		ch:    make(chan Snapshot, 1),
	}
}

// Key returns the subscribed key.
func (s *Subscription) Key() Key {
	return s.key
}

// Updates returns the channel snapshots are delivered on. It is closed by Close.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

// Close unregisters the subscription. A fetch already in flight for the key
// still completes and is cached.
func (s *Subscription) Close() {
	s.cache.unsubscribe(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *Subscription) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- snap:
		return
	default:
	}

	// replace the undelivered snapshot with the newer one
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}
