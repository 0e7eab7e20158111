package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

func asObject(raw any) (map[string]any, bool) {
	obj, ok := raw.(map[string]any)
	return obj, ok && obj != nil
}

func asArray(raw any) []any {
	arr, _ := raw.([]any)
	return arr
}

// text returns field as text. Numbers are rendered in their JSON form,
// missing or null fields yield "".
func text(obj map[string]any, field string) string {
	switch v := obj[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// textOr is text with a placeholder for missing or null fields.
func textOr(obj map[string]any, field, fallback string) string {
	if obj[field] == nil {
		return fallback
	}
	return text(obj, field)
}

// amount returns field as a decimal, defaulting to zero when it is missing
// or not numeric.
func amount(obj map[string]any, field string) decimal.Decimal {
	switch v := obj[field].(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		return decimal.Zero
	}
}

func count(obj map[string]any, field string) int64 {
	return amount(obj, field).IntPart()
}

func optionalID(raw any) *ID {
	id, ok := IDFrom(raw)
	if !ok {
		return nil
	}
	return &id
}
