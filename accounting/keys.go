package accounting

import (
	"time"

	"github.com/goliatone/go-invoicing-client/cache"
	"github.com/goliatone/go-invoicing-client/mutation"
)

const apiPrefix = "/api"

// Key families. The family selects the freshness window of a key.
const (
	FamilyPersons           = "persons"
	FamilyPerson            = "person"
	FamilyPersonSearch      = "personSearch"
	FamilyPersonStatistics  = "personStatistics"
	FamilyInvoices          = "invoices"
	FamilyInvoice           = "invoice"
	FamilyInvoiceStatistics = "invoiceStatistics"
)

// StaleTimes returns the freshness window of every key family.
func StaleTimes() map[string]time.Duration {
	return map[string]time.Duration{
		FamilyPersons:           5 * time.Minute,
		FamilyPerson:            time.Minute,
		FamilyPersonSearch:      time.Minute,
		FamilyPersonStatistics:  10 * time.Minute,
		FamilyInvoices:          5 * time.Minute,
		FamilyInvoice:           10 * time.Minute,
		FamilyInvoiceStatistics: 10 * time.Minute,
	}
}

// CacheConfig returns the default cache configuration with the family
// freshness windows applied.
func CacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.StaleTimes = StaleTimes()
	return cfg
}

// PersonKind describes person writes. Person writes also change search
// results and revenue statistics.
var PersonKind = mutation.Kind{
	Name:           "person",
	CollectionPath: apiPrefix + "/persons",
	ListFamily:     FamilyPersons,
	DetailFamily:   FamilyPerson,
	Related: []cache.Key{
		cache.NewKey(FamilyPersonSearch),
		cache.NewKey(FamilyPersonStatistics),
	},
}

// InvoiceKind describes invoice writes. Invoice writes change both statistics.
var InvoiceKind = mutation.Kind{
	Name:           "invoice",
	CollectionPath: apiPrefix + "/invoices",
	ListFamily:     FamilyInvoices,
	DetailFamily:   FamilyInvoice,
	Related: []cache.Key{
		cache.NewKey(FamilyInvoiceStatistics),
		cache.NewKey(FamilyPersonStatistics),
	},
}
