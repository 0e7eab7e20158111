package accounting

import (
	"context"

	"github.com/goliatone/go-invoicing-client/cache"
	"github.com/goliatone/go-invoicing-client/mutation"
	"github.com/goliatone/go-invoicing-client/normalize"
	"github.com/goliatone/go-invoicing-client/transport"
)

// Reader is the read side of the HTTP client.
type Reader interface {
	Get(ctx context.Context, path string, params transport.Params) (any, error)
}

// deps are shared by the person and invoice services.
type deps struct {
	reader      Reader
	cache       cache.QueryCache
	coordinator *mutation.Coordinator
	normalizer  *normalize.Normalizer
}

// Service groups the person and invoice services over one transport, cache
// and coordinator.
type Service struct {
	Persons  *Persons
	Invoices *Invoices
}

// NewService builds the accounting services.
func NewService(reader Reader, qc cache.QueryCache, coordinator *mutation.Coordinator, normalizer *normalize.Normalizer) *Service {
	if normalizer == nil {
		normalizer = normalize.NewNormalizer()
	}
	d := deps{reader: reader, cache: qc, coordinator: coordinator, normalizer: normalizer}
	return &Service{
		Persons:  &Persons{deps: d},
		Invoices: &Invoices{deps: d},
	}
}

// get returns a fetch function for path that normalizes the payload with fn.
func get[T any](d deps, path string, params transport.Params, fn func(any) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		raw, err := d.reader.Get(ctx, path, params)
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(raw)
	}
}

// untyped adapts a typed fetch function to cache.FetchFn.
func untyped[T any](fetch func(context.Context) (T, error)) cache.FetchFn {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

func infallible[T any](fn func(any) T) func(any) (T, error) {
	return func(raw any) (T, error) {
		return fn(raw), nil
	}
}
