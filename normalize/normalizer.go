package normalize

import (
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-invoicing-client/internal/logger"
)

// Normalizer normalizes collections, logging the records it drops.
type Normalizer struct {
	logger zerolog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger dropped records are reported to.
func WithLogger(l zerolog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = l
	}
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{logger: logger.WithComponent("normalize")}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Persons normalizes a person list. Invalid rows are dropped and the result
// is sorted ascending by ID. A payload that is not an array yields an empty slice.
func (n *Normalizer) Persons(raw any) []Person {
	rows := asArray(raw)
	out := make([]Person, 0, len(rows))
	for i, row := range rows {
		p, err := PersonFrom(row)
		if err != nil {
			n.dropped(err, i)
			continue
		}
		out = append(out, *p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Invoices normalizes an invoice list, with the same rules as Persons.
func (n *Normalizer) Invoices(raw any) []Invoice {
	rows := asArray(raw)
	out := make([]Invoice, 0, len(rows))
	for i, row := range rows {
		inv, err := InvoiceFrom(row)
		if err != nil {
			n.dropped(err, i)
			continue
		}
		out = append(out, *inv)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// PersonRevenues normalizes revenue rows in server order.
func (n *Normalizer) PersonRevenues(raw any) []PersonRevenue {
	rows := asArray(raw)
	out := make([]PersonRevenue, 0, len(rows))
	for _, row := range rows {
		out = append(out, PersonRevenueFrom(row))
	}
	return out
}

// Person normalizes a detail payload.
func (n *Normalizer) Person(raw any) (*Person, error) {
	p, err := PersonFrom(raw)
	if err != nil {
		n.dropped(err, -1)
	}
	return p, err
}

// Invoice normalizes a detail payload.
func (n *Normalizer) Invoice(raw any) (*Invoice, error) {
	inv, err := InvoiceFrom(raw)
	if err != nil {
		n.dropped(err, -1)
	}
	return inv, err
}

func (n *Normalizer) dropped(err error, index int) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		verr.Index = index
	}
	n.logger.Warn().Err(err).Int("index", index).Msg("dropped malformed record")
}
