package mutation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-invoicing-client/cache"
	"github.com/goliatone/go-invoicing-client/normalize"
)

type call struct {
	method string
	path   string
	body   any
}

type fakeTransport struct {
	mu       sync.Mutex
	calls    []call
	response any
	err      error
}

func (f *fakeTransport) record(method, path string, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: method, path: path, body: body})
}

func (f *fakeTransport) Post(_ context.Context, path string, body any) (any, error) {
	f.record("POST", path, body)
	return f.response, f.err
}

func (f *fakeTransport) Put(_ context.Context, path string, body any) (any, error) {
	f.record("PUT", path, body)
	return f.response, f.err
}

func (f *fakeTransport) Delete(_ context.Context, path string) error {
	f.record("DELETE", path, nil)
	return f.err
}

type recordingInvalidator struct {
	prefixes []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, prefix cache.Key) int {
	r.prefixes = append(r.prefixes, prefix.String())
	return 1
}

var invoiceKind = Kind{
	Name:           "invoice",
	CollectionPath: "/api/invoices",
	ListFamily:     "invoices",
	DetailFamily:   "invoice",
	Related:        []cache.Key{cache.NewKey("invoiceStatistics"), cache.NewKey("personStatistics")},
}

func newTestCoordinator(transport Transport, inv Invalidator) *Coordinator {
	return NewCoordinator(transport, inv, WithLogger(zerolog.Nop()))
}

func TestCoordinator_CreatePostsAndInvalidatesList(t *testing.T) {
	transport := &fakeTransport{response: map[string]any{"id": 5}}
	inv := &recordingInvalidator{}
	c := newTestCoordinator(transport, inv)

	raw, err := c.Mutate(context.Background(), invoiceKind, nil, map[string]any{"product": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 5}, raw)

	require.Len(t, transport.calls, 1)
	assert.Equal(t, "POST", transport.calls[0].method)
	assert.Equal(t, "/api/invoices", transport.calls[0].path)

	assert.Equal(t, []string{"invoices", "invoiceStatistics", "personStatistics"}, inv.prefixes)
}

func TestCoordinator_UpdatePutsAndInvalidatesDetail(t *testing.T) {
	transport := &fakeTransport{response: map[string]any{"id": 42}}
	inv := &recordingInvalidator{}
	c := newTestCoordinator(transport, inv)

	id := normalize.ID(42)
	_, err := c.Mutate(context.Background(), invoiceKind, &id, map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, "PUT", transport.calls[0].method)
	assert.Equal(t, "/api/invoices/42", transport.calls[0].path)
	assert.Equal(t, []string{"invoices", "invoice::42", "invoiceStatistics", "personStatistics"}, inv.prefixes)
}

func TestCoordinator_FailedWriteDoesNotInvalidate(t *testing.T) {
	transport := &fakeTransport{err: errors.New("HTTP 500")}
	inv := &recordingInvalidator{}
	c := newTestCoordinator(transport, inv)

	_, err := c.Mutate(context.Background(), invoiceKind, nil, nil)
	assert.Error(t, err)

	err = c.Delete(context.Background(), invoiceKind, 3)
	assert.Error(t, err)

	assert.Empty(t, inv.prefixes)
}

func TestCoordinator_Delete(t *testing.T) {
	transport := &fakeTransport{}
	inv := &recordingInvalidator{}
	c := newTestCoordinator(transport, inv)

	require.NoError(t, c.Delete(context.Background(), invoiceKind, 42))

	assert.Equal(t, "DELETE", transport.calls[0].method)
	assert.Equal(t, "/api/invoices/42", transport.calls[0].path)
	assert.Contains(t, inv.prefixes, "invoice::42")
	assert.Contains(t, inv.prefixes, "invoices")
}

func TestCoordinator_ExtraInvalidationFromContext(t *testing.T) {
	transport := &fakeTransport{response: map[string]any{"id": 1}}
	inv := &recordingInvalidator{}
	c := newTestCoordinator(transport, inv)

	ctx := WithInvalidation(context.Background(), cache.NewKey("person", 9), cache.NewKey("invoices"))
	_, err := c.Mutate(ctx, invoiceKind, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"invoices", "invoiceStatistics", "personStatistics", "person::9"}, inv.prefixes)
}

func TestSave_NormalizesResponse(t *testing.T) {
	transport := &fakeTransport{response: map[string]any{"id": "7", "invoiceNumber": "FV-7"}}
	c := newTestCoordinator(transport, &recordingInvalidator{})

	inv, err := Save(context.Background(), c, invoiceKind, nil, nil, normalize.InvoiceFrom)
	require.NoError(t, err)
	assert.Equal(t, normalize.ID(7), inv.ID)

	transport.response = map[string]any{"invoiceNumber": "no id"}
	_, err = Save(context.Background(), c, invoiceKind, nil, nil, normalize.InvoiceFrom)
	var verr *normalize.ValidationError
	assert.ErrorAs(t, err, &verr)
}

// After a create, every subscribed key under the list prefix is refetched.
func TestCoordinator_CreateRefetchesSubscribedLists(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.EvictionInterval = 0
	qc, err := cache.NewQueryCache(cfg, cache.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer qc.Close()

	ctx := context.Background()
	var listFetches, filteredFetches atomic.Int32

	all := cache.NewKey("invoices", "/invoices")
	filtered := cache.NewKey("invoices", "/invoices?limit=5")

	subAll := qc.Subscribe(ctx, all, func(context.Context) (any, error) {
		return int(listFetches.Add(1)), nil
	})
	defer subAll.Close()
	subFiltered := qc.Subscribe(ctx, filtered, func(context.Context) (any, error) {
		return int(filteredFetches.Add(1)), nil
	})
	defer subFiltered.Close()

	require.Eventually(t, func() bool {
		return qc.Get(ctx, all, nil).Loaded && qc.Get(ctx, filtered, nil).Loaded
	}, time.Second, time.Millisecond)

	c := newTestCoordinator(&fakeTransport{response: map[string]any{"id": 1}}, qc)
	_, err = c.Mutate(ctx, invoiceKind, nil, map[string]any{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return listFetches.Load() == 2 && filteredFetches.Load() == 2
	}, time.Second, time.Millisecond)

	assert.Equal(t, 2, qc.Get(ctx, all, nil).Value)
	assert.Equal(t, cache.StatusFresh, qc.Get(ctx, filtered, nil).Status)
}
