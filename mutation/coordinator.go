package mutation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-invoicing-client/cache"
	"github.com/goliatone/go-invoicing-client/internal/logger"
	"github.com/goliatone/go-invoicing-client/normalize"
)

// Transport is the write side of the HTTP client.
type Transport interface {
	Post(ctx context.Context, path string, body any) (any, error)
	Put(ctx context.Context, path string, body any) (any, error)
	Delete(ctx context.Context, path string) error
}

// Invalidator marks cache entries stale by key prefix.
type Invalidator interface {
	Invalidate(ctx context.Context, prefix cache.Key) int
}

// Kind describes an entity kind: where it is written and which cache keys a
// write makes stale.
type Kind struct {
	Name string
	// CollectionPath is the create path; items live at CollectionPath/<id>.
	CollectionPath string
	// ListFamily is invalidated after every write. Filters are encoded in
	// later key segments, so this covers every list variant.
	ListFamily string
	// DetailFamily with the id is invalidated after updates and deletes.
	DetailFamily string
	// Related are extra prefixes derived from the entity, such as statistics.
	Related []cache.Key
}

// ItemPath returns the update and delete path for id.
func (k Kind) ItemPath(id normalize.ID) string {
	return fmt.Sprintf("%s/%s", k.CollectionPath, id)
}

// DetailKey returns the cache key of the entity detail.
func (k Kind) DetailKey(id normalize.ID) cache.Key {
	return cache.NewKey(k.DetailFamily, id)
}

// ListKey returns the prefix shared by every list of the kind.
func (k Kind) ListKey() cache.Key {
	return cache.NewKey(k.ListFamily)
}

// invalidationKeys lists the prefixes a successful write makes stale.
func (k Kind) invalidationKeys(id *normalize.ID) []cache.Key {
	keys := []cache.Key{k.ListKey()}
	if id != nil {
		keys = append(keys, k.DetailKey(*id))
	}
	return append(keys, k.Related...)
}

// Coordinator performs writes and owns the cache invalidation that follows
// them. Cached collections are never patched locally; affected keys are
// refetched from the server.
type Coordinator struct {
	transport Transport
	cache     Invalidator
	logger    zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used by the coordinator.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

func NewCoordinator(transport Transport, invalidator Invalidator, opts ...Option) *Coordinator {
	c := &Coordinator{
		transport: transport,
		cache:     invalidator,
		logger:    logger.WithComponent("mutation"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mutate creates the entity when id is nil (POST to the collection) and
// updates it otherwise (PUT to the item). On success the list prefix, the
// detail key and the related prefixes of kind are invalidated. The raw
// response is returned.
func (c *Coordinator) Mutate(ctx context.Context, kind Kind, id *normalize.ID, payload any) (any, error) {
	var (
		raw    any
		err    error
		method string
	)

	if id != nil {
		method = http.MethodPut
		raw, err = c.transport.Put(ctx, kind.ItemPath(*id), payload)
	} else {
		method = http.MethodPost
		raw, err = c.transport.Post(ctx, kind.CollectionPath, payload)
	}
	if err != nil {
		return nil, err
	}

	c.invalidate(ctx, kind, method, id)
	return raw, nil
}

// Delete removes the entity and invalidates the same keys as an update.
func (c *Coordinator) Delete(ctx context.Context, kind Kind, id normalize.ID) error {
	if err := c.transport.Delete(ctx, kind.ItemPath(id)); err != nil {
		return err
	}

	c.invalidate(ctx, kind, http.MethodDelete, &id)
	return nil
}

func (c *Coordinator) invalidate(ctx context.Context, kind Kind, method string, id *normalize.ID) {
	keys := dedupeKeys(append(kind.invalidationKeys(id), invalidationFromContext(ctx)...))

	total := 0
	for _, key := range keys {
		total += c.cache.Invalidate(ctx, key)
	}

	event := c.logger.Debug().
		Str("kind", kind.Name).
		Str("method", method).
		Int("prefixes", len(keys)).
		Int("invalidated", total)
	if id != nil {
		event = event.Stringer("id", *id)
	}
	event.Msg("write applied")
}

// Save performs Mutate and normalizes the response with normalizeFn.
func Save[T any](ctx context.Context, c *Coordinator, kind Kind, id *normalize.ID, payload any, normalizeFn func(any) (*T, error)) (*T, error) {
	raw, err := c.Mutate(ctx, kind, id, payload)
	if err != nil {
		return nil, err
	}

	entity, err := normalizeFn(raw)
	if err != nil {
		return nil, fmt.Errorf("mutation: %s saved but response could not be normalized: %w", kind.Name, err)
	}
	return entity, nil
}
