package normalize

import (
	"encoding/json"
	"fmt"
)

// Country is the residence of a person.
type Country string

const (
	CountryDomestic Country = "DOMESTIC"
	CountryForeign  Country = "FOREIGN"
)

// Wire values used by the backend.
const (
	wireDomestic = "CZECHIA"
	wireForeign  = "SLOVAKIA"
)

// CountryFrom maps a wire or enum value to a Country. Unknown values yield nil.
func CountryFrom(raw any) *Country {
	s, ok := raw.(string)
	if !ok {
		return nil
	}

	var c Country
	switch s {
	case wireDomestic, string(CountryDomestic):
		c = CountryDomestic
	case wireForeign, string(CountryForeign):
		c = CountryForeign
	default:
		return nil
	}
	return &c
}

// Wire returns the backend representation of c.
func (c Country) Wire() string {
	switch c {
	case CountryDomestic:
		return wireDomestic
	case CountryForeign:
		return wireForeign
	default:
		return string(c)
	}
}

func (c Country) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Wire())
}

func (c *Country) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed := CountryFrom(s)
	if parsed == nil {
		return fmt.Errorf("normalize: unknown country %q", s)
	}
	*c = *parsed
	return nil
}

// Person is a business partner: a seller or buyer of invoices.
type Person struct {
	ID                   ID       `json:"id"`
	Name                 string   `json:"name"`
	IdentificationNumber string   `json:"identificationNumber"`
	TaxNumber            string   `json:"taxNumber"`
	AccountNumber        string   `json:"accountNumber"`
	BankCode             string   `json:"bankCode"`
	IBAN                 string   `json:"iban"`
	Telephone            string   `json:"telephone"`
	Mail                 string   `json:"mail"`
	Street               string   `json:"street"`
	Zip                  string   `json:"zip"`
	City                 string   `json:"city"`
	Country              *Country `json:"country"`
	Note                 string   `json:"note"`
}

// PersonFrom normalizes a raw person record.
func PersonFrom(raw any) (*Person, error) {
	obj, ok := asObject(raw)
	if !ok {
		return nil, notAnObject("person")
	}

	id, ok := recordID(obj)
	if !ok {
		return nil, missingID("person")
	}

	return &Person{
		ID:                   id,
		Name:                 text(obj, "name"),
		IdentificationNumber: text(obj, "identificationNumber"),
		TaxNumber:            text(obj, "taxNumber"),
		AccountNumber:        text(obj, "accountNumber"),
		BankCode:             text(obj, "bankCode"),
		IBAN:                 text(obj, "iban"),
		Telephone:            text(obj, "telephone"),
		Mail:                 text(obj, "mail"),
		Street:               text(obj, "street"),
		Zip:                  text(obj, "zip"),
		City:                 text(obj, "city"),
		Country:              CountryFrom(obj["country"]),
		Note:                 text(obj, "note"),
	}, nil
}
