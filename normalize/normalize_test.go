package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-invoicing-client/pkg/testsupport"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(WithLogger(zerolog.Nop()))
}

func TestIDFrom(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want ID
		ok   bool
	}{
		{name: "json number", raw: json.Number("42"), want: 42, ok: true},
		{name: "numeric string", raw: "3", want: 3, ok: true},
		{name: "padded string", raw: " 7 ", want: 7, ok: true},
		{name: "integral float", raw: float64(9), want: 9, ok: true},
		{name: "integral float text", raw: json.Number("5.0"), want: 5, ok: true},
		{name: "int", raw: 11, want: 11, ok: true},
		{name: "fraction", raw: json.Number("2.5")},
		{name: "nan", raw: math.NaN()},
		{name: "infinity", raw: math.Inf(1)},
		{name: "empty string", raw: ""},
		{name: "word", raw: "abc"},
		{name: "nil", raw: nil},
		{name: "bool", raw: true},
		{name: "object", raw: map[string]any{"id": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IDFrom(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("15")
	require.NoError(t, err)
	assert.Equal(t, ID(15), id)
	assert.Equal(t, "15", id.String())

	_, err = ParseID("x")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPersonFrom_RejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{name: "nil", raw: nil},
		{name: "string", raw: "person"},
		{name: "array", raw: []any{}},
		{name: "missing id", raw: map[string]any{"name": "X"}},
		{name: "null id", raw: map[string]any{"id": nil, "name": "X"}},
		{name: "invalid id", raw: map[string]any{"id": "x1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := PersonFrom(tt.raw)
			assert.Nil(t, p)

			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestPersonFrom_DefaultsAndCountry(t *testing.T) {
	p, err := PersonFrom(map[string]any{
		"_id":                  json.Number("8"),
		"name":                 "Acme s.r.o.",
		"identificationNumber": json.Number("12345678"),
		"country":              "SLOVAKIA",
	})
	require.NoError(t, err)

	assert.Equal(t, ID(8), p.ID)
	assert.Equal(t, "Acme s.r.o.", p.Name)
	assert.Equal(t, "12345678", p.IdentificationNumber)
	assert.Equal(t, "", p.TaxNumber)
	assert.Equal(t, "", p.Note)
	require.NotNil(t, p.Country)
	assert.Equal(t, CountryForeign, *p.Country)

	p, err = PersonFrom(map[string]any{"id": 1, "country": "ATLANTIS"})
	require.NoError(t, err)
	assert.Nil(t, p.Country)
}

func TestCountry_JSON(t *testing.T) {
	data, err := json.Marshal(CountryDomestic)
	require.NoError(t, err)
	assert.Equal(t, `"CZECHIA"`, string(data))

	var c Country
	require.NoError(t, json.Unmarshal([]byte(`"SLOVAKIA"`), &c))
	assert.Equal(t, CountryForeign, c)

	assert.Error(t, json.Unmarshal([]byte(`"MARS"`), &c))
}

func TestNormalizer_PersonsMixedList(t *testing.T) {
	raw := testsupport.LoadRawPayload(t, testsupport.FixturePath("persons_mixed.json"))

	persons := newTestNormalizer().Persons(raw)

	require.Len(t, persons, 2)
	assert.Equal(t, ID(1), persons[0].ID)
	assert.Equal(t, "Y", persons[0].Name)
	assert.Equal(t, ID(3), persons[1].ID)
	assert.Equal(t, "X", persons[1].Name)
}

func TestNormalizer_InvoicesGolden(t *testing.T) {
	raw := testsupport.LoadRawPayload(t, testsupport.FixturePath("invoices.json"))

	invoices := newTestNormalizer().Invoices(raw)

	require.Len(t, invoices, 2)
	testsupport.CompareJSONWithGolden(t, testsupport.GoldenPath("invoices.json"), invoices)
}

func TestNormalizer_CollectionsAreSortedAndIdempotent(t *testing.T) {
	n := newTestNormalizer()
	raw := []any{
		map[string]any{"id": json.Number("20"), "invoiceNumber": "b"},
		map[string]any{"id": json.Number("3"), "invoiceNumber": "a"},
		map[string]any{"id": json.Number("100"), "invoiceNumber": "c"},
		map[string]any{"invoiceNumber": "orphan"},
	}

	first := n.Invoices(raw)
	second := n.Invoices(raw)

	require.Len(t, first, 3)
	assert.Equal(t, []ID{3, 20, 100}, []ID{first[0].ID, first[1].ID, first[2].ID})
	assert.Equal(t, first, second)

	again := make([]any, 0, len(first))
	for _, inv := range first {
		again = append(again, map[string]any{"id": int64(inv.ID), "invoiceNumber": inv.InvoiceNumber})
	}
	assert.Equal(t, first, n.Invoices(again))
}

func TestNormalizer_NonArrayYieldsEmpty(t *testing.T) {
	n := newTestNormalizer()

	assert.NotNil(t, n.Persons(map[string]any{"id": 1}))
	assert.Empty(t, n.Persons(nil))
	assert.Empty(t, n.Invoices("oops"))
	assert.Empty(t, n.PersonRevenues(nil))
}

func TestInvoiceFrom_NumberNormalizedToText(t *testing.T) {
	inv, err := InvoiceFrom(map[string]any{"id": 1, "invoiceNumber": json.Number("12")})
	require.NoError(t, err)
	assert.Equal(t, "12", inv.InvoiceNumber)
	assert.True(t, inv.Price.IsZero())
	assert.True(t, inv.VAT.IsZero())
}

func TestSummaryFrom(t *testing.T) {
	zero := SummaryFrom("not an object")
	assert.True(t, zero.CurrentYearSum.IsZero())
	assert.True(t, zero.AllTimeSum.IsZero())
	assert.Equal(t, int64(0), zero.InvoicesCount)

	s := SummaryFrom(map[string]any{
		"currentYearSum": json.Number("1500.25"),
		"invoicesCount":  json.Number("12"),
	})
	assert.True(t, s.CurrentYearSum.Equal(decimal.RequireFromString("1500.25")))
	assert.True(t, s.AllTimeSum.IsZero())
	assert.Equal(t, int64(12), s.InvoicesCount)
}

func TestNormalizer_PersonRevenuesKeepServerOrder(t *testing.T) {
	raw := testsupport.LoadRawPayload(t, testsupport.FixturePath("person_statistics.json"))

	rows := newTestNormalizer().PersonRevenues(raw)

	require.Len(t, rows, 3)
	require.NotNil(t, rows[0].PersonID)
	assert.Equal(t, ID(2), *rows[0].PersonID)
	assert.True(t, rows[0].Revenue.Equal(decimal.RequireFromString("5000.5")))

	assert.Nil(t, rows[1].PersonID)
	assert.Equal(t, UnknownSubject, rows[1].PersonName)
	assert.True(t, rows[1].Revenue.IsZero())

	assert.Equal(t, "Acme s.r.o.", rows[2].PersonName)
	assert.True(t, rows[2].Revenue.Equal(decimal.NewFromInt(120)))
}

func TestInvoicePayload(t *testing.T) {
	seller := ID(1)
	payload := InvoicePayload(InvoiceInput{
		InvoiceNumber: "FV-1",
		Product:       "Hosting",
		Price:         decimal.RequireFromString("99.90"),
		SellerID:      &seller,
	})

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"invoiceNumber": "FV-1",
		"issued": null,
		"dueDate": null,
		"product": "Hosting",
		"price": 99.9,
		"vat": 0,
		"note": "",
		"seller": {"id": 1},
		"buyer": null
	}`, string(data))
}

func TestPersonPayload(t *testing.T) {
	domestic := CountryDomestic
	payload := PersonPayload(PersonInput{Name: "Acme", Country: &domestic})

	assert.Equal(t, "Acme", payload["name"])
	assert.Equal(t, "CZECHIA", payload["country"])
	assert.Equal(t, "", payload["iban"])

	payload = PersonPayload(PersonInput{Name: "Nowhere"})
	assert.Nil(t, payload["country"])
}

func TestInputFromInvoice_RoundTrip(t *testing.T) {
	inv, err := InvoiceFrom(map[string]any{
		"id":     1,
		"price":  json.Number("10"),
		"seller": map[string]any{"id": json.Number("4"), "name": "S"},
	})
	require.NoError(t, err)

	in := InputFromInvoice(*inv)
	require.NotNil(t, in.SellerID)
	assert.Equal(t, ID(4), *in.SellerID)
	assert.Nil(t, in.BuyerID)
	assert.True(t, in.Price.Equal(decimal.NewFromInt(10)))
}
