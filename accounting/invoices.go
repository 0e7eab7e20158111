package accounting

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-invoicing-client/cache"
	"github.com/goliatone/go-invoicing-client/mutation"
	"github.com/goliatone/go-invoicing-client/normalize"
	"github.com/goliatone/go-invoicing-client/transport"
)

// InvoiceFilter narrows the invoice list. Nil pointers and empty strings are
// not sent.
type InvoiceFilter struct {
	BuyerID  *normalize.ID
	SellerID *normalize.ID
	Product  string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Limit    *int
}

// Params returns the query parameters of the filter.
func (f InvoiceFilter) Params() transport.Params {
	params := transport.Params{
		"buyerID":  f.BuyerID,
		"sellerID": f.SellerID,
		"limit":    f.Limit,
	}
	if f.Product != "" {
		params["product"] = f.Product
	}
	if f.MinPrice != nil {
		params["minPrice"] = f.MinPrice.String()
	}
	if f.MaxPrice != nil {
		params["maxPrice"] = f.MaxPrice.String()
	}
	return params
}

// Endpoint returns the list endpoint relative to the API prefix, e.g.
// "/invoices?limit=5". It is also the second segment of the list cache key.
func (f InvoiceFilter) Endpoint() string {
	if query := transport.Encode(f.Params()); query != "" {
		return "/invoices?" + query
	}
	return "/invoices"
}

// Direction selects the side of a counterparty's invoices.
type Direction string

const (
	Sales     Direction = "sales"
	Purchases Direction = "purchases"
)

// CounterpartyEndpoint returns the endpoint listing the invoices where the
// person with identification number ico is seller (sales) or buyer (purchases).
func CounterpartyEndpoint(ico string, dir Direction) string {
	return fmt.Sprintf("/persons/identification/%s/%s", url.PathEscape(ico), dir)
}

// Invoices reads and writes invoices.
type Invoices struct {
	deps
}

func (s *Invoices) endpointQuery(endpoint string) (cache.Key, func(context.Context) ([]normalize.Invoice, error)) {
	return cache.NewKey(FamilyInvoices, endpoint),
		s.endpointFetch(endpoint)
}

// endpointFetch splits the query string off endpoint so the transport
// encodes it the same way for every caller.
func (s *Invoices) endpointFetch(endpoint string) func(context.Context) ([]normalize.Invoice, error) {
	path, rawQuery, _ := strings.Cut(endpoint, "?")

	var params transport.Params
	if values, err := url.ParseQuery(rawQuery); err == nil && len(values) > 0 {
		params = make(transport.Params, len(values))
		for k := range values {
			params[k] = values.Get(k)
		}
	}
	return get(s.deps, apiPrefix+path, params, infallible(s.normalizer.Invoices))
}

// List returns the invoices matching filter, sorted by ID.
func (s *Invoices) List(ctx context.Context, filter InvoiceFilter) ([]normalize.Invoice, error) {
	key, fetch := s.endpointQuery(filter.Endpoint())
	return cache.Fetch(ctx, s.cache, key, fetch)
}

// WatchList subscribes to the invoices matching filter.
func (s *Invoices) WatchList(ctx context.Context, filter InvoiceFilter) *cache.Subscription {
	key, fetch := s.endpointQuery(filter.Endpoint())
	return s.cache.Subscribe(ctx, key, untyped(fetch))
}

// ByCounterparty returns the sales or purchases of the person with
// identification number ico.
func (s *Invoices) ByCounterparty(ctx context.Context, ico string, dir Direction) ([]normalize.Invoice, error) {
	key, fetch := s.endpointQuery(CounterpartyEndpoint(ico, dir))
	return cache.Fetch(ctx, s.cache, key, fetch)
}

// WatchByCounterparty subscribes to the sales or purchases of a person.
func (s *Invoices) WatchByCounterparty(ctx context.Context, ico string, dir Direction) *cache.Subscription {
	key, fetch := s.endpointQuery(CounterpartyEndpoint(ico, dir))
	return s.cache.Subscribe(ctx, key, untyped(fetch))
}

func (s *Invoices) detailQuery(id normalize.ID) (cache.Key, func(context.Context) (*normalize.Invoice, error)) {
	return InvoiceKind.DetailKey(id),
		get(s.deps, InvoiceKind.ItemPath(id), nil, s.normalizer.Invoice)
}

// Detail returns one invoice.
func (s *Invoices) Detail(ctx context.Context, id normalize.ID) (*normalize.Invoice, error) {
	key, fetch := s.detailQuery(id)
	return cache.Fetch(ctx, s.cache, key, fetch)
}

// WatchDetail subscribes to one invoice.
func (s *Invoices) WatchDetail(ctx context.Context, id normalize.ID) *cache.Subscription {
	key, fetch := s.detailQuery(id)
	return s.cache.Subscribe(ctx, key, untyped(fetch))
}

func (s *Invoices) statisticsQuery() (cache.Key, func(context.Context) (normalize.StatisticsSummary, error)) {
	return cache.NewKey(FamilyInvoiceStatistics),
		get(s.deps, apiPrefix+"/invoices/statistics", nil, infallible(normalize.SummaryFrom))
}

// Statistics returns the aggregate revenue summary.
func (s *Invoices) Statistics(ctx context.Context) (normalize.StatisticsSummary, error) {
	key, fetch := s.statisticsQuery()
	return cache.Fetch(ctx, s.cache, key, fetch)
}

// WatchStatistics subscribes to the revenue summary.
func (s *Invoices) WatchStatistics(ctx context.Context) *cache.Subscription {
	key, fetch := s.statisticsQuery()
	return s.cache.Subscribe(ctx, key, untyped(fetch))
}

// Save creates the invoice when id is nil and updates it otherwise.
func (s *Invoices) Save(ctx context.Context, id *normalize.ID, in normalize.InvoiceInput) (*normalize.Invoice, error) {
	return mutation.Save(ctx, s.coordinator, InvoiceKind, id, normalize.InvoicePayload(in), s.normalizer.Invoice)
}

// Delete removes the invoice.
func (s *Invoices) Delete(ctx context.Context, id normalize.ID) error {
	return s.coordinator.Delete(ctx, InvoiceKind, id)
}
