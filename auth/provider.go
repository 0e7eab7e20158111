package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrCredentialTimeout is returned when the identity provider does not
	// produce a credential before the context ends.
	ErrCredentialTimeout = errors.New("auth: credential not received")

	// ErrAudienceMismatch is returned when a Google ID token was issued for
	// another OAuth client.
	ErrAudienceMismatch = errors.New("auth: credential issued for another client")
)

// IdentityProvider yields one identity token per call, e.g. a Google ID
// token. Implementations block until the credential is available, the
// handshake fails, or ctx ends.
type IdentityProvider interface {
	Credential(ctx context.Context) (string, error)
}

// CredentialFunc adapts a function to IdentityProvider.
type CredentialFunc func(ctx context.Context) (string, error)

func (f CredentialFunc) Credential(ctx context.Context) (string, error) {
	return f(ctx)
}

// Callback receives the outcome of a callback-driven handshake.
type Callback func(credential string, err error)

// CallbackProvider turns a callback-driven handshake into a single-shot
// IdentityProvider. Start begins the handshake and arranges for the callback
// to run once; later invocations of the callback are ignored.
type CallbackProvider struct {
	Start func(ctx context.Context, done Callback) error
}

type credentialResult struct {
	credential string
	err        error
}

// Credential starts the handshake and waits for its first outcome.
func (p CallbackProvider) Credential(ctx context.Context) (string, error) {
	if p.Start == nil {
		return "", errors.New("auth: callback provider has no Start func")
	}

	results := make(chan credentialResult, 1)
	var once sync.Once
	done := func(credential string, err error) {
		once.Do(func() {
			results <- credentialResult{credential: credential, err: err}
		})
	}

	if err := p.Start(ctx, done); err != nil {
		return "", err
	}

	select {
	case r := <-results:
		return r.credential, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrCredentialTimeout, ctx.Err())
	}
}

// GoogleProvider yields Google ID tokens from Source and rejects tokens
// whose audience is not ClientID. The token signature is verified by the
// backend. An empty ClientID disables the audience check.
type GoogleProvider struct {
	ClientID string
	Source   IdentityProvider
}

// Credential obtains a token from Source and checks its audience.
func (p GoogleProvider) Credential(ctx context.Context) (string, error) {
	if p.Source == nil {
		return "", errors.New("auth: google provider has no credential source")
	}

	credential, err := p.Source.Credential(ctx)
	if err != nil || p.ClientID == "" {
		return credential, err
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(credential, &claims); err != nil {
		return "", fmt.Errorf("%w: malformed google credential: %v", ErrInvalidInput, err)
	}
	if !slices.Contains(claims.Audience, p.ClientID) {
		return "", fmt.Errorf("%w: audience %v", ErrAudienceMismatch, []string(claims.Audience))
	}
	return credential, nil
}
