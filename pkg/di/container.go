package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-invoicing-client/accounting"
	"github.com/goliatone/go-invoicing-client/auth"
	"github.com/goliatone/go-invoicing-client/cache"
	"github.com/goliatone/go-invoicing-client/internal/cacheinfra"
	"github.com/goliatone/go-invoicing-client/internal/config"
	"github.com/goliatone/go-invoicing-client/internal/logger"
	"github.com/goliatone/go-invoicing-client/mutation"
	"github.com/goliatone/go-invoicing-client/normalize"
	"github.com/goliatone/go-invoicing-client/session"
	"github.com/goliatone/go-invoicing-client/transport"
)

// Container wires the client: session store, transport, query cache,
// mutation coordinator, normalizer and the services built on top of them.
// Every component is a singleton owned by the container.
type Container struct {
	config      config.Config
	session     *session.Store
	backend     session.Backend
	transport   *transport.Client
	cache       *cacheinfra.QueryCache
	coordinator *mutation.Coordinator
	normalizer  *normalize.Normalizer
	accounting  *accounting.Service
	auth        *auth.Service

	stopReset func()
}

type options struct {
	backend    session.Backend
	httpClient *http.Client
	clock      cache.Clock
	logger     *zerolog.Logger
}

// Option customizes how the container builds its components.
type Option func(*options)

// WithSessionBackend uses backend instead of the one selected by the config.
func WithSessionBackend(backend session.Backend) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithHTTPClient sets the HTTP client used by the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithClock sets the clock used by the query cache.
func WithClock(clock cache.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets one logger for every component. Without it each component
// logs through the global logger with its own component field.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// NewContainer builds the client graph from cfg. The persisted session, if
// any, is restored, and clearing the session purges the query cache.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := func(component string) zerolog.Logger {
		if o.logger != nil {
			return o.logger.With().Str("component", component).Logger()
		}
		return logger.WithComponent(component)
	}

	backend := o.backend
	if backend == nil {
		var err error
		if backend, err = OpenSessionBackend(ctx, cfg.Session); err != nil {
			return nil, err
		}
	}

	c := &Container{config: cfg, backend: backend}
	fail := func(err error) (*Container, error) {
		_ = c.Close()
		return nil, err
	}

	c.session = session.NewStore(backend, session.WithLogger(log("session")))
	if _, err := c.session.Load(ctx); err != nil {
		return fail(err)
	}

	transportOpts := []transport.Option{transport.WithLogger(log("transport"))}
	if o.httpClient != nil {
		transportOpts = append(transportOpts, transport.WithHTTPClient(o.httpClient))
	}
	client, err := transport.New(transport.Config{BaseURL: cfg.API.URL, Timeout: cfg.API.Timeout}, c.session, transportOpts...)
	if err != nil {
		return fail(err)
	}
	c.transport = client

	cacheCfg := accounting.CacheConfig()
	if cfg.Cache.Capacity > 0 {
		cacheCfg.Capacity = cfg.Cache.Capacity
	}
	cacheCfg.EvictionInterval = cfg.Cache.EvictionInterval

	cacheOpts := []cache.Option{cache.WithLogger(log("cache"))}
	if o.clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(o.clock))
	}
	qc, err := cache.NewQueryCache(cacheCfg, cacheOpts...)
	if err != nil {
		return fail(err)
	}
	c.cache = qc

	// Nothing cached for one user may be served to the next.
	c.stopReset = c.session.OnCleared(func() {
		c.cache.Reset()
	})

	c.normalizer = normalize.NewNormalizer(normalize.WithLogger(log("normalize")))
	c.coordinator = mutation.NewCoordinator(client, qc, mutation.WithLogger(log("mutation")))
	c.accounting = accounting.NewService(client, qc, c.coordinator, c.normalizer)
	c.auth = auth.NewService(client, c.session, auth.WithLogger(log("auth")))

	return c, nil
}

// NewContainerFromEnv loads the configuration from the environment and
// builds the container.
func NewContainerFromEnv(ctx context.Context, opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainer(ctx, *cfg, opts...)
}

// NewContainerWithDefaults builds a container for baseURL with an in-memory
// session and the default cache settings.
func NewContainerWithDefaults(ctx context.Context, baseURL string, opts ...Option) (*Container, error) {
	cfg := config.Config{
		API:     config.APIConfig{URL: baseURL},
		Session: config.SessionConfig{Backend: config.SessionMemory},
		Cache: config.CacheConfig{
			Capacity:         cacheinfra.DefaultConfig().Capacity,
			EvictionInterval: cacheinfra.DefaultConfig().EvictionInterval,
		},
	}
	return NewContainer(ctx, cfg, opts...)
}

// OpenSessionBackend opens the session backend selected by cfg.
func OpenSessionBackend(ctx context.Context, cfg config.SessionConfig) (session.Backend, error) {
	switch cfg.Backend {
	case "", config.SessionMemory:
		return session.NewMemoryBackend(), nil
	case config.SessionSQLite:
		return session.OpenSQLite(ctx, cfg.DSN)
	case config.SessionPostgres:
		return session.OpenPostgres(ctx, cfg.DSN)
	case config.SessionRedis:
		return session.NewRedisBackend(ctx, session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	default:
		return nil, fmt.Errorf("di: unknown session backend %q", cfg.Backend)
	}
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

// Session returns the session store.
func (c *Container) Session() *session.Store {
	return c.session
}

// Transport returns the HTTP client.
func (c *Container) Transport() *transport.Client {
	return c.transport
}

// Cache returns the query cache.
func (c *Container) Cache() *cacheinfra.QueryCache {
	return c.cache
}

// Coordinator returns the mutation coordinator.
func (c *Container) Coordinator() *mutation.Coordinator {
	return c.coordinator
}

// Normalizer returns the payload normalizer.
func (c *Container) Normalizer() *normalize.Normalizer {
	return c.normalizer
}

// Accounting returns the person and invoice services.
func (c *Container) Accounting() *accounting.Service {
	return c.accounting
}

// Auth returns the auth service.
func (c *Container) Auth() *auth.Service {
	return c.auth
}

// GoogleProvider wraps source with the audience check for the configured
// Google OAuth client.
func (c *Container) GoogleProvider(source auth.IdentityProvider) auth.GoogleProvider {
	return auth.GoogleProvider{ClientID: c.config.Google.ClientID, Source: source}
}

// Close stops the query cache and releases the session backend.
func (c *Container) Close() error {
	var errs []error
	if c.stopReset != nil {
		c.stopReset()
	}
	if c.cache != nil {
		errs = append(errs, c.cache.Close())
	}
	if closer, ok := c.backend.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
