package normalize

import (
	"github.com/shopspring/decimal"
)

// PartyRef is the reduced projection of a person referenced by an invoice.
type PartyRef struct {
	ID   *ID    `json:"id"`
	Name string `json:"name"`
}

// PartyRefFrom normalizes a seller or buyer reference. Anything that is not
// an object yields an empty reference.
func PartyRefFrom(raw any) PartyRef {
	obj, ok := asObject(raw)
	if !ok {
		return PartyRef{}
	}
	return PartyRef{
		ID:   optionalID(obj["id"]),
		Name: text(obj, "name"),
	}
}

// Invoice is an issued invoice between a seller and a buyer.
type Invoice struct {
	ID            ID              `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Issued        string          `json:"issued"`
	DueDate       string          `json:"dueDate"`
	Product       string          `json:"product"`
	Price         decimal.Decimal `json:"price"`
	VAT           decimal.Decimal `json:"vat"`
	Note          string          `json:"note"`
	Seller        PartyRef        `json:"seller"`
	Buyer         PartyRef        `json:"buyer"`
}

// InvoiceFrom normalizes a raw invoice record. The invoice number is always
// text, even when the backend sends a number.
func InvoiceFrom(raw any) (*Invoice, error) {
	obj, ok := asObject(raw)
	if !ok {
		return nil, notAnObject("invoice")
	}

	id, ok := recordID(obj)
	if !ok {
		return nil, missingID("invoice")
	}

	return &Invoice{
		ID:            id,
		InvoiceNumber: text(obj, "invoiceNumber"),
		Issued:        text(obj, "issued"),
		DueDate:       text(obj, "dueDate"),
		Product:       text(obj, "product"),
		Price:         amount(obj, "price"),
		VAT:           amount(obj, "vat"),
		Note:          text(obj, "note"),
		Seller:        PartyRefFrom(obj["seller"]),
		Buyer:         PartyRefFrom(obj["buyer"]),
	}, nil
}
