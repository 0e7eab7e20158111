package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-invoicing-client/internal/logger"
)

// Fixed storage keys. Token and profile are always written and cleared together.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Session is the authenticated state of the client.
type Session struct {
	Token string
	// User is the profile returned by the login endpoint, kept as raw JSON.
	User json.RawMessage
}

// Empty reports whether the session carries no token.
func (s Session) Empty() bool {
	return s.Token == ""
}

// Backend persists session entries under fixed keys.
type Backend interface {
	Load(ctx context.Context) (map[string][]byte, error)
	Save(ctx context.Context, entries map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Store holds the process-wide session. Reads are served from memory; writes
// go through to the backend. Concurrent writers are last-writer-wins.
type Store struct {
	mu      sync.RWMutex
	current Session
	backend Backend
	logger  zerolog.Logger

	listenersMu sync.Mutex
	listeners   map[uint64]func()
	nextID      uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates a store over backend. A nil backend keeps the session in memory.
func NewStore(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}

	s := &Store{
		backend:   backend,
		logger:    logger.WithComponent("session"),
		listeners: make(map[uint64]func()),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load restores a previously persisted session from the backend.
func (s *Store) Load(ctx context.Context) (Session, error) {
	entries, err := s.backend.Load(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("session: load: %w", err)
	}

	restored := Session{Token: string(entries[KeyToken])}
	if user := entries[KeyUser]; len(user) > 0 {
		restored.User = json.RawMessage(user)
	}

	s.mu.Lock()
	s.current = restored
	s.mu.Unlock()

	s.logger.Debug().Bool("authenticated", !restored.Empty()).Msg("session restored")
	return restored, nil
}

// Token returns the current bearer token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// Session returns a copy of the current session.
func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.current
	if s.current.User != nil {
		out.User = append(json.RawMessage(nil), s.current.User...)
	}
	return out
}

// Set replaces the session and persists it.
func (s *Store) Set(ctx context.Context, next Session) error {
	entries := map[string][]byte{KeyToken: []byte(next.Token)}
	if len(next.User) > 0 {
		entries[KeyUser] = []byte(next.User)
	}

	s.mu.Lock()
	s.current = Session{Token: next.Token, User: append(json.RawMessage(nil), next.User...)}
	s.mu.Unlock()

	if err := s.backend.Save(ctx, entries); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	if len(next.User) == 0 {
		if err := s.backend.Delete(ctx, KeyUser); err != nil {
			return fmt.Errorf("session: save: %w", err)
		}
	}

	s.logger.Debug().Msg("session stored")
	return nil
}

// Clear removes token and profile and notifies OnCleared listeners. The
// in-memory session is cleared even when the backend fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = Session{}
	s.mu.Unlock()

	err := s.backend.Delete(ctx, KeyToken, KeyUser)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to delete persisted session")
		err = fmt.Errorf("session: clear: %w", err)
	}

	s.notifyCleared()
	return err
}

// OnCleared registers fn to run after every Clear. Consumers use it to
// navigate to the unauthenticated entry point. The returned func unregisters fn.
func (s *Store) OnCleared(fn func()) (cancel func()) {
	s.listenersMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) notifyCleared() {
	s.listenersMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// UserEmail returns the subject of the current token. The token is decoded
// without signature verification; it is only used for display.
func (s *Store) UserEmail() (string, bool) {
	return SubjectFromToken(s.Token())
}

// SubjectFromToken returns the string `sub` claim of an unverified JWT.
func SubjectFromToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return "", false
	}
	return sub, true
}
