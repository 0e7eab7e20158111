package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-invoicing-client/internal/logger"
	"github.com/goliatone/go-invoicing-client/normalize"
	"github.com/goliatone/go-invoicing-client/session"
)

const (
	loginPath    = "/api/auth/login"
	registerPath = "/api/auth/register"
	googlePath   = "/api/auth/google"
)

var (
	// ErrMissingToken is returned when an auth endpoint answers without a token.
	ErrMissingToken = errors.New("auth: response carries no token")

	// ErrInvalidInput wraps validation failures of credentials and registrations.
	ErrInvalidInput = errors.New("auth: invalid input")
)

// Poster is the write side of the HTTP client.
type Poster interface {
	Post(ctx context.Context, path string, body any) (any, error)
}

// SessionStore persists the authenticated session.
type SessionStore interface {
	Token() string
	Set(ctx context.Context, next session.Session) error
	Clear(ctx context.Context) error
}

// Credentials are the email/password login inputs.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the credentials.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	)
}

// Registration creates an account.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Validate checks the registration.
func (r Registration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
		validation.Field(&r.Phone, validation.Required),
	)
}

// Profile is the authenticated user as returned by the login endpoints.
// Raw holds the full response, token included.
type Profile struct {
	Token string
	ID    *normalize.ID
	Email string
	Raw   json.RawMessage
}

// Service performs the auth flows and keeps the session store in sync.
type Service struct {
	client  Poster
	session SessionStore
	logger  zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates an auth service.
func NewService(client Poster, store SessionStore, opts ...Option) *Service {
	s := &Service{
		client:  client,
		session: store,
		logger:  logger.WithComponent("auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login exchanges email and password for a session token. The token and the
// full response are persisted.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Profile, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	raw, err := s.client.Post(ctx, loginPath, creds)
	if err != nil {
		return nil, fmt.Errorf("auth: login: %w", err)
	}
	return s.establish(ctx, "password", raw)
}

// Register creates an account. It does not sign the user in.
func (s *Service) Register(ctx context.Context, reg Registration) error {
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, err := s.client.Post(ctx, registerPath, reg); err != nil {
		return fmt.Errorf("auth: register: %w", err)
	}

	s.logger.Info().Str("email", reg.Email).Msg("account registered")
	return nil
}

// GoogleLogin obtains an identity token from provider and exchanges it for
// a session token.
func (s *Service) GoogleLogin(ctx context.Context, provider IdentityProvider) (*Profile, error) {
	credential, err := provider.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: google credential: %w", err)
	}
	if credential == "" {
		return nil, fmt.Errorf("%w: empty google credential", ErrInvalidInput)
	}

	// The backend reads the profile from idToken; the other fields are sent
	// as explicit nulls.
	body := map[string]any{
		"googleId": nil,
		"email":    nil,
		"fullName": nil,
		"picture":  nil,
		"idToken":  credential,
	}

	raw, err := s.client.Post(ctx, googlePath, body)
	if err != nil {
		return nil, fmt.Errorf("auth: google login: %w", err)
	}
	return s.establish(ctx, "google", raw)
}

// Logout clears the session.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.session.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info().Msg("logged out")
	return nil
}

// Authenticated reports whether a token is present. The token is not verified.
func (s *Service) Authenticated() bool {
	return s.session.Token() != ""
}

func (s *Service) establish(ctx context.Context, method string, raw any) (*Profile, error) {
	profile, err := profileFrom(raw)
	if err != nil {
		return nil, err
	}

	if err := s.session.Set(ctx, session.Session{Token: profile.Token, User: profile.Raw}); err != nil {
		return nil, err
	}

	s.logger.Info().Str("method", method).Str("email", profile.Email).Msg("signed in")
	return profile, nil
}

func profileFrom(raw any) (*Profile, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrMissingToken
	}
	token, _ := obj["token"].(string)
	if token == "" {
		return nil, ErrMissingToken
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("auth: encode profile: %w", err)
	}

	profile := &Profile{Token: token, Raw: data}
	if id, ok := normalize.IDFrom(obj["id"]); ok {
		profile.ID = &id
	}
	if email, ok := obj["email"].(string); ok {
		profile.Email = email
	} else if sub, ok := session.SubjectFromToken(token); ok {
		profile.Email = sub
	}
	return profile, nil
}
