package accounting

import (
	"context"
	"strings"

	"github.com/goliatone/go-invoicing-client/cache"
	"github.com/goliatone/go-invoicing-client/mutation"
	"github.com/goliatone/go-invoicing-client/normalize"
	"github.com/goliatone/go-invoicing-client/transport"
)

// Persons reads and writes persons.
type Persons struct {
	deps
}

func (s *Persons) listQuery() (cache.Key, func(context.Context) ([]normalize.Person, error)) {
	return cache.NewKey(FamilyPersons),
		get(s.deps, apiPrefix+"/persons", nil, infallible(s.normalizer.Persons))
}

// List returns every person, sorted by ID.
func (s *Persons) List(ctx context.Context) ([]normalize.Person, error) {
	key, fetch := s.listQuery()
	return cache.Fetch(ctx, s.cache, key, fetch)
}

// WatchList subscribes to the person list.
func (s *Persons) WatchList(ctx context.Context) *cache.Subscription {
	key, fetch := s.listQuery()
	return s.cache.Subscribe(ctx, key, untyped(fetch))
}

func (s *Persons) detailQuery(id normalize.ID) (cache.Key, func(context.Context) (*normalize.Person, error)) {
	return PersonKind.DetailKey(id),
		get(s.deps, PersonKind.ItemPath(id), nil, s.normalizer.Person)
}

// Detail returns one person.
func (s *Persons) Detail(ctx context.Context, id normalize.ID) (*normalize.Person, error) {
	key, fetch := s.detailQuery(id)
	return cache.Fetch(ctx, s.cache, key, fetch)
}

// WatchDetail subscribes to one person.
func (s *Persons) WatchDetail(ctx context.Context, id normalize.ID) *cache.Subscription {
	key, fetch := s.detailQuery(id)
	return s.cache.Subscribe(ctx, key, untyped(fetch))
}

// Search returns typeahead suggestions for query. A blank query matches nothing.
func (s *Persons) Search(ctx context.Context, query string) ([]normalize.Person, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []normalize.Person{}, nil
	}

	fetch := get(s.deps, apiPrefix+"/persons/search", transport.Params{"query": query}, infallible(s.normalizer.Persons))
	return cache.Fetch(ctx, s.cache, cache.NewKey(FamilyPersonSearch, query), fetch)
}

func (s *Persons) statisticsQuery() (cache.Key, func(context.Context) ([]normalize.PersonRevenue, error)) {
	return cache.NewKey(FamilyPersonStatistics),
		get(s.deps, apiPrefix+"/persons/statistics", nil, infallible(s.normalizer.PersonRevenues))
}

// Statistics returns revenue per person in server order.
func (s *Persons) Statistics(ctx context.Context) ([]normalize.PersonRevenue, error) {
	key, fetch := s.statisticsQuery()
	return cache.Fetch(ctx, s.cache, key, fetch)
}

// WatchStatistics subscribes to revenue per person.
func (s *Persons) WatchStatistics(ctx context.Context) *cache.Subscription {
	key, fetch := s.statisticsQuery()
	return s.cache.Subscribe(ctx, key, untyped(fetch))
}

// Save creates the person when id is nil and updates it otherwise.
func (s *Persons) Save(ctx context.Context, id *normalize.ID, in normalize.PersonInput) (*normalize.Person, error) {
	return mutation.Save(ctx, s.coordinator, PersonKind, id, normalize.PersonPayload(in), s.normalizer.Person)
}

// Delete removes the person.
func (s *Persons) Delete(ctx context.Context, id normalize.ID) error {
	return s.coordinator.Delete(ctx, PersonKind, id)
}
