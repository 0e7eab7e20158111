package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-invoicing-client/accounting"
	"github.com/goliatone/go-invoicing-client/cache"
	"github.com/goliatone/go-invoicing-client/normalize"
	"github.com/goliatone/go-invoicing-client/pkg/testsupport"
)

func registerInvoices(api *testsupport.FakeAPI, n int) {
	api.Handle(http.MethodGet, "/api/invoices", http.StatusOK, `[{"id":1},{"id":2},{"id":3}]`)
	for i := 0; i < n; i++ {
		api.Handle(http.MethodGet, fmt.Sprintf("/api/invoices/%d", i), http.StatusOK,
			fmt.Sprintf(`{"id":%d,"product":"Hosting","price":%d}`, i, i*100))
	}
}

// TestConcurrentAccess checks concurrent readers share one request per key.
func TestConcurrentAccess(t *testing.T) {
	container, api := newIntegrationContainer(t)
	const invoices = 20
	registerInvoices(api, invoices)

	ctx := context.Background()
	const numGoroutines = 50
	const operationsPerGoroutine = 20

	var wg sync.WaitGroup
	errors := make(chan error, numGoroutines*operationsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for j := 0; j < operationsPerGoroutine; j++ {
				id := normalize.ID((workerID*operationsPerGoroutine + j) % invoices)

				inv, err := container.Accounting().Invoices.Detail(ctx, id)
				if err != nil {
					errors <- fmt.Errorf("worker %d operation %d Detail failed: %v", workerID, j, err)
					continue
				}
				if inv.ID != id {
					errors <- fmt.Errorf("worker %d operation %d got invoice %d, want %d", workerID, j, inv.ID, id)
				}

				if j%5 == 0 {
					if _, err := container.Accounting().Invoices.List(ctx, accounting.InvoiceFilter{}); err != nil {
						errors <- fmt.Errorf("worker %d operation %d List failed: %v", workerID, j, err)
					}
				}
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	var errorCount int
	for err := range errors {
		t.Error(err)
		errorCount++
		if errorCount > 10 {
			t.Error("... and more errors")
			break
		}
	}
	if errorCount > 0 {
		t.Fatalf("Concurrent access test failed with %d errors", errorCount)
	}

	if n := api.Count(http.MethodGet, "/api/invoices"); n != 1 {
		t.Errorf("Expected 1 list request, got %d", n)
	}
	for i := 0; i < invoices; i++ {
		if n := api.Count(http.MethodGet, fmt.Sprintf("/api/invoices/%d", i)); n != 1 {
			t.Errorf("Expected 1 request for invoice %d, got %d", i, n)
		}
	}
}

// TestConcurrentReadWrite mixes reads with writes that invalidate the keys
// being read.
func TestConcurrentReadWrite(t *testing.T) {
	container, api := newIntegrationContainer(t)
	registerInvoices(api, 5)
	api.Handle(http.MethodPost, "/api/invoices", http.StatusOK, `{"id":99}`)

	ctx := context.Background()
	const numReaders = 10
	const numWriters = 5
	const operationsPerWorker = 20

	var wg sync.WaitGroup
	errors := make(chan error, (numReaders+numWriters)*operationsPerWorker)

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()
			for j := 0; j < operationsPerWorker; j++ {
				// A read racing a burst of writes may see every attempt superseded.
				_, err := container.Accounting().Invoices.List(ctx, accounting.InvoiceFilter{})
				if err != nil && !stderrors.Is(err, cache.ErrSuperseded) {
					errors <- fmt.Errorf("reader %d operation %d failed: %v", readerID, j, err)
				}
			}
		}(i)
	}

	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func(writerID int) {
			defer wg.Done()
			for j := 0; j < operationsPerWorker; j++ {
				input := normalize.InvoiceInput{InvoiceNumber: fmt.Sprintf("%d-%d", writerID, j)}
				if _, err := container.Accounting().Invoices.Save(ctx, nil, input); err != nil {
					errors <- fmt.Errorf("writer %d operation %d failed: %v", writerID, j, err)
				}
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	var errorCount int
	for err := range errors {
		t.Error(err)
		errorCount++
		if errorCount > 5 {
			t.Error("... and more errors")
			break
		}
	}
	if errorCount > 0 {
		t.Errorf("Concurrent read-write test had %d errors", errorCount)
	}
}

func newBenchContainer(b *testing.B) *Container {
	b.Helper()

	api := testsupport.NewFakeAPI(b)
	registerInvoices(api, 100)

	container, err := NewContainerWithDefaults(context.Background(), api.URL(), WithLogger(zerolog.Nop()))
	if err != nil {
		b.Fatalf("Failed to create DI container: %v", err)
	}
	b.Cleanup(func() { _ = container.Close() })
	return container
}

func BenchmarkInvoiceDetail_CacheHit(b *testing.B) {
	container := newBenchContainer(b)
	ctx := context.Background()

	if _, err := container.Accounting().Invoices.Detail(ctx, 1); err != nil {
		b.Fatalf("Detail() failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := container.Accounting().Invoices.Detail(ctx, 1); err != nil {
			b.Fatalf("Detail() failed: %v", err)
		}
	}
}

func BenchmarkInvoiceDetail_Parallel(b *testing.B) {
	container := newBenchContainer(b)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if _, err := container.Accounting().Invoices.Detail(ctx, normalize.ID(i)); err != nil {
			b.Fatalf("Detail() failed: %v", err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := container.Accounting().Invoices.Detail(ctx, normalize.ID(i%100)); err != nil {
				b.Errorf("Detail() failed: %v", err)
				return
			}
			i++
		}
	})
}

func BenchmarkInvoiceList_FilterKey(b *testing.B) {
	buyer := normalize.ID(4)
	limit := 10
	filter := accounting.InvoiceFilter{BuyerID: &buyer, Product: "Hosting", Limit: &limit}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = filter.Endpoint()
	}
}
