package normalize

import "github.com/shopspring/decimal"

// UnknownSubject is the name used for revenue rows without a person name.
const UnknownSubject = "Unknown subject"

// StatisticsSummary aggregates invoice revenue. All fields default to zero.
type StatisticsSummary struct {
	CurrentYearSum decimal.Decimal `json:"currentYearSum"`
	AllTimeSum     decimal.Decimal `json:"allTimeSum"`
	InvoicesCount  int64           `json:"invoicesCount"`
}

// SummaryFrom normalizes the invoice statistics payload. A payload that is not
// an object yields the zero summary.
func SummaryFrom(raw any) StatisticsSummary {
	obj, ok := asObject(raw)
	if !ok {
		return StatisticsSummary{CurrentYearSum: decimal.Zero, AllTimeSum: decimal.Zero}
	}
	return StatisticsSummary{
		CurrentYearSum: amount(obj, "currentYearSum"),
		AllTimeSum:     amount(obj, "allTimeSum"),
		InvoicesCount:  count(obj, "invoicesCount"),
	}
}

// PersonRevenue is the revenue of one person.
type PersonRevenue struct {
	PersonID   *ID             `json:"personId"`
	PersonName string          `json:"personName"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// PersonRevenueFrom normalizes one revenue row. Rows are never dropped; a
// missing person id stays nil.
func PersonRevenueFrom(raw any) PersonRevenue {
	obj, ok := asObject(raw)
	if !ok {
		return PersonRevenue{PersonName: UnknownSubject, Revenue: decimal.Zero}
	}
	return PersonRevenue{
		PersonID:   optionalID(obj["personId"]),
		PersonName: textOr(obj, "personName", UnknownSubject),
		Revenue:    amount(obj, "revenue"),
	}
}
