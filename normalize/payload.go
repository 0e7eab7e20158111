package normalize

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// InvoiceInput is the writable part of an invoice.
type InvoiceInput struct {
	InvoiceNumber string
	Issued        string
	DueDate       string
	Product       string
	Price         decimal.Decimal
	VAT           decimal.Decimal
	Note          string
	SellerID      *ID
	BuyerID       *ID
}

// InvoicePayload shapes the request body for creating or updating an invoice.
// Seller and buyer are sent as {id} references, or null when unset.
func InvoicePayload(in InvoiceInput) map[string]any {
	return map[string]any{
		"invoiceNumber": in.InvoiceNumber,
		"issued":        nullableText(in.Issued),
		"dueDate":       nullableText(in.DueDate),
		"product":       in.Product,
		"price":         number(in.Price),
		"vat":           number(in.VAT),
		"note":          in.Note,
		"seller":        reference(in.SellerID),
		"buyer":         reference(in.BuyerID),
	}
}

// PersonInput is the writable part of a person.
type PersonInput struct {
	Name                 string
	IdentificationNumber string
	TaxNumber            string
	AccountNumber        string
	BankCode             string
	IBAN                 string
	Telephone            string
	Mail                 string
	Street               string
	Zip                  string
	City                 string
	Country              *Country
	Note                 string
}

// PersonPayload shapes the request body for creating or updating a person.
func PersonPayload(in PersonInput) map[string]any {
	var country any
	if in.Country != nil {
		country = in.Country.Wire()
	}

	return map[string]any{
		"name":                 in.Name,
		"identificationNumber": in.IdentificationNumber,
		"taxNumber":            in.TaxNumber,
		"accountNumber":        in.AccountNumber,
		"bankCode":             in.BankCode,
		"iban":                 in.IBAN,
		"telephone":            in.Telephone,
		"mail":                 in.Mail,
		"street":               in.Street,
		"zip":                  in.Zip,
		"city":                 in.City,
		"country":              country,
		"note":                 in.Note,
	}
}

// InputFromPerson returns the writable fields of p.
func InputFromPerson(p Person) PersonInput {
	return PersonInput{
		Name:                 p.Name,
		IdentificationNumber: p.IdentificationNumber,
		TaxNumber:            p.TaxNumber,
		AccountNumber:        p.AccountNumber,
		BankCode:             p.BankCode,
		IBAN:                 p.IBAN,
		Telephone:            p.Telephone,
		Mail:                 p.Mail,
		Street:               p.Street,
		Zip:                  p.Zip,
		City:                 p.City,
		Country:              p.Country,
		Note:                 p.Note,
	}
}

// InputFromInvoice returns the writable fields of inv.
func InputFromInvoice(inv Invoice) InvoiceInput {
	return InvoiceInput{
		InvoiceNumber: inv.InvoiceNumber,
		Issued:        inv.Issued,
		DueDate:       inv.DueDate,
		Product:       inv.Product,
		Price:         inv.Price,
		VAT:           inv.VAT,
		Note:          inv.Note,
		SellerID:      inv.Seller.ID,
		BuyerID:       inv.Buyer.ID,
	}
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// number encodes d as a JSON number rather than decimal's quoted form.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func reference(id *ID) any {
	if id == nil {
		return nil
	}
	return map[string]any{"id": *id}
}
