package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-invoicing-client/internal/logger"
)

// Session is the token source used by the client. A 401 response clears it.
type Session interface {
	Token() string
	Clear(ctx context.Context) error
}

// Params are GET query parameters. Nil values and nil pointers are dropped.
type Params map[string]any

// Config holds the transport settings.
type Config struct {
	// BaseURL is prepended to every request path.
	BaseURL string
	// Timeout bounds each request. Zero means no deadline; callers bound
	// requests through their context.
	Timeout time.Duration
}

// Validate checks the configuration.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.RequestURL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Client issues JSON requests against the accounting backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    Session
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used by the client.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New validates cfg and creates a client. session may be nil, in which case
// requests are always sent unauthenticated.
func New(cfg Config, session Session, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		session:    session,
		logger:     logger.WithComponent("transport"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Get issues a GET request with the given query parameters.
func (c *Client) Get(ctx context.Context, path string, params Params) (any, error) {
	return c.Do(ctx, http.MethodGet, path, params, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (any, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (any, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

// Delete issues a DELETE request. A successful response always yields nil.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// Do performs a request and decodes the JSON response. JSON numbers are
// decoded as json.Number.
func (c *Client) Do(ctx context.Context, method, path string, params Params, body any) (any, error) {
	target := c.baseURL + path
	if query := Encode(params); query != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + query
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := c.logger.With().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Logger()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("request failed")
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("response received")

	if resp.StatusCode == http.StatusUnauthorized {
		c.clearSession(ctx, log)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			raw = nil
		}
		return nil, &HTTPError{Method: method, URL: target, Status: resp.StatusCode, Body: string(raw)}
	}

	if method == http.MethodDelete {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var payload any
	if err := decoder.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &DecodeError{Method: method, URL: target, Err: err}
	}
	// the body must hold exactly one JSON value
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after JSON value")
		}
		return nil, &DecodeError{Method: method, URL: target, Err: err}
	}

	return payload, nil
}

// clearSession tears down the session after a 401. The caller's context may
// be cancelled at this point; the clear must still happen.
func (c *Client) clearSession(ctx context.Context, log zerolog.Logger) {
	if c.session == nil {
		return
	}
	log.Info().Msg("unauthorized response, clearing session")
	if err := c.session.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Error().Err(err).Msg("failed to clear session")
	}
}

// Encode builds a query string from params, dropping nil values and nil
// pointers. Keys are sorted.
func Encode(params Params) string {
	if len(params) == 0 {
		return ""
	}

	values := url.Values{}
	for key, value := range params {
		v, ok := deref(value)
		if !ok {
			continue
		}
		values.Set(key, fmt.Sprint(v))
	}
	return values.Encode()
}

func deref(value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return rv.Interface(), true
}
