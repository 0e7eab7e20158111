// Package cache provides the query cache used by the invoicing client.
//
// # Overview
//
// Read results are cached under a Key, a list of segments whose first segment
// is the key family:
//
//	cache.NewKey("person", 7)                     // person::7
//	cache.NewKey("invoices", "/invoices?limit=5") // invoices::/invoices?limit=5
//
// Each family has a freshness window (Config.StaleTimes). Inside the window a
// value is served as is. After it the value is still served immediately, and a
// background refresh is started (stale-while-revalidate). Values older than
// Config.CacheTime are dropped and fetched again on the next access.
//
// # Reading
//
// Fetch blocks until a value is available and returns it typed:
//
//	persons, err := cache.Fetch(ctx, qc, cache.NewKey("persons"), func(ctx context.Context) ([]normalize.Person, error) {
//		return svc.loadPersons(ctx)
//	})
//
// Get never blocks; it returns a Snapshot with the current Status and schedules
// a refresh when needed. Subscribe registers a live consumer that receives a
// Snapshot after every applied refresh or invalidation.
//
// Concurrent readers of the same key share a single in-flight fetch.
//
// # Invalidation
//
// Invalidate marks every key starting with a prefix as stale. Matching is
// segment-wise: the prefix ["invoice"] matches ["invoice", "7"] but not
// ["invoices"]. Keys with subscribers are refetched in the background; keys
// without subscribers are evicted. A response to a fetch started before the
// invalidation is discarded.
//
// A failed refresh keeps the previous value. The error is only reported by
// RefreshStatus and Refetch.
//
// # Storage
//
// Payloads are stored in a sturdyc client bounded by Config.Capacity. The
// engine lives in internal/cacheinfra; this package re-exports its types.
package cache
