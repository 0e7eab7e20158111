package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-invoicing-client/internal/config"
	"github.com/goliatone/go-invoicing-client/pkg/di"
	"github.com/goliatone/go-invoicing-client/pkg/testsupport"
	"github.com/goliatone/go-invoicing-client/session"
)

type harness struct {
	api      *testsupport.FakeAPI
	backend  *session.MemoryBackend
	clientID string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{api: testsupport.NewFakeAPI(t), backend: session.NewMemoryBackend()}
}

// run executes one CLI invocation. The session backend is shared across
// invocations the way a persistent backend would be.
func (h *harness) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()

	factory := func(ctx context.Context) (*di.Container, error) {
		cfg := config.Config{
			API:     config.APIConfig{URL: h.api.URL()},
			Google:  config.GoogleConfig{ClientID: h.clientID},
			Session: config.SessionConfig{Backend: config.SessionMemory},
		}
		return di.NewContainer(ctx, cfg,
			di.WithSessionBackend(h.backend),
			di.WithLogger(zerolog.Nop()))
	}

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), factory, args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestLoginThenListUsesStoredToken(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(http.MethodPost, "/api/auth/login", http.StatusOK, `{"token":"t1","id":7,"email":"a@b.com"}`)
	h.api.Handle(http.MethodGet, "/api/persons", http.StatusOK, `[{"id":"3","name":"X"},{"id":1,"name":"Y"},{"foo":"bad"}]`)

	out, errOut, code := h.run(t, "login", "--email", "a@b.com", "--password", "x")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Signed in as a@b.com")

	out, errOut, code = h.run(t, "persons", "list")
	require.Equal(t, 0, code, errOut)

	var persons []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &persons))
	require.Len(t, persons, 2)
	assert.Equal(t, float64(1), persons[0]["id"])
	assert.Equal(t, "Y", persons[0]["name"])

	requests := h.api.Requests()
	assert.Equal(t, "Bearer t1", requests[len(requests)-1].Authorization)
}

func googleIDToken(t *testing.T, audience string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"aud": audience}).
		SignedString([]byte("test"))
	require.NoError(t, err)
	return signed
}

func TestLoginGoogleChecksConfiguredClient(t *testing.T) {
	h := newHarness(t)
	h.clientID = "client-1"
	h.api.Handle(http.MethodPost, "/api/auth/google", http.StatusOK, `{"token":"g1","email":"a@b.com"}`)

	_, errOut, code := h.run(t, "login-google", "--id-token", googleIDToken(t, "client-2"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "another client")
	assert.Empty(t, h.api.Requests())

	token := googleIDToken(t, "client-1")
	out, errOut, code := h.run(t, "login-google", "--id-token", token)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "Signed in as a@b.com\n", out)

	var body map[string]any
	require.NoError(t, json.Unmarshal(h.api.Requests()[0].Body, &body))
	assert.Equal(t, token, body["idToken"])
}

func TestLogoutAndWhoami(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.backend.Save(context.Background(), map[string][]byte{session.KeyToken: []byte("t1")}))

	out, _, code := h.run(t, "whoami")
	require.Equal(t, 0, code)
	assert.Equal(t, "Signed in\n", out)

	out, _, code = h.run(t, "logout")
	require.Equal(t, 0, code)
	assert.Equal(t, "Signed out\n", out)

	out, _, code = h.run(t, "whoami")
	require.Equal(t, 0, code)
	assert.Equal(t, "Not signed in\n", out)
}

func TestInvoicesListPassesFilters(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(http.MethodGet, "/api/invoices", http.StatusOK, `[{"id":5,"price":1200}]`)

	out, errOut, code := h.run(t, "invoices", "list", "--buyer", "4", "--min-price", "1000", "--limit", "10")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, `"price": "1200"`)

	requests := h.api.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "buyerID=4&limit=10&minPrice=1000", requests[0].Query)
}

func TestInvoicesByPerson(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(http.MethodGet, "/api/persons/identification/12345678/purchases", http.StatusOK, `[]`)

	out, errOut, code := h.run(t, "invoices", "by-person", "12345678", "--purchases")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "[]\n", out)
}

func TestInvoiceSaveUpdatesChangedFields(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(http.MethodGet, "/api/invoices/9", http.StatusOK,
		`{"id":9,"invoiceNumber":"2024009","product":"Hosting","price":100,"vat":21,"seller":{"id":1},"buyer":{"id":4}}`)
	h.api.Handle(http.MethodPut, "/api/invoices/9", http.StatusOK, `{"id":9,"product":"Support"}`)

	_, errOut, code := h.run(t, "invoices", "save", "9", "--product", "Support")
	require.Equal(t, 0, code, errOut)

	var body map[string]any
	for _, r := range h.api.Requests() {
		if r.Method == http.MethodPut {
			require.NoError(t, json.Unmarshal(r.Body, &body))
		}
	}
	require.NotNil(t, body)
	assert.Equal(t, "Support", body["product"])
	assert.Equal(t, "2024009", body["invoiceNumber"])
	assert.Equal(t, map[string]any{"id": float64(4)}, body["buyer"])
}

func TestPersonsDelete(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(http.MethodDelete, "/api/persons/3", http.StatusNoContent, "")

	out, errOut, code := h.run(t, "persons", "delete", "3")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "Deleted person 3\n", out)
}

func TestErrorsExitNonZero(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(http.MethodGet, "/api/invoices/1", http.StatusUnauthorized, `{"message":"expired"}`)

	_, errOut, code := h.run(t, "invoices", "show", "abc")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `invalid id "abc"`)

	_, errOut, code = h.run(t, "invoices", "show", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "HTTP 401")

	_, _, code = h.run(t, "persons", "save", "--country", "mars")
	assert.Equal(t, 1, code)
}
