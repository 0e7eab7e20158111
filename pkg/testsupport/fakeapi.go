package testsupport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedRequest is a request received by a FakeAPI.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	Body          []byte
}

// FakeAPI is an httptest server standing in for the accounting backend.
// Routes are matched on method and path; unknown routes answer 404.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewFakeAPI starts a fake backend that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	api := &FakeAPI{routes: make(map[string]http.HandlerFunc)}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Server.Close)
	return api
}

// URL returns the base URL of the fake backend.
func (a *FakeAPI) URL() string {
	return a.Server.URL
}

// Handle answers method+path with a fixed status and body.
func (a *FakeAPI) Handle(method, path string, status int, body string) {
	a.HandleFunc(method, path, func(w http.ResponseWriter, _ *http.Request) {
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// HandleFunc registers a handler for method+path, replacing any previous one.
func (a *FakeAPI) HandleFunc(method, path string, fn http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[method+" "+path] = fn
}

// Requests returns a copy of every request received so far.
func (a *FakeAPI) Requests() []RecordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]RecordedRequest(nil), a.requests...)
}

// Count returns how many requests hit method+path.
func (a *FakeAPI) Count(method, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, r := range a.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (a *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	a.mu.Lock()
	a.requests = append(a.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		Body:          body,
	})
	fn, ok := a.routes[r.Method+" "+r.URL.Path]
	a.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	fn(w, r)
}
