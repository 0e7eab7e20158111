package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ID is a backend assigned identifier. A normalized entity always carries a
// valid one.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a textual identifier such as a CLI argument.
func ParseID(s string) (ID, error) {
	id, ok := IDFrom(s)
	if !ok {
		return 0, &ValidationError{Entity: "id", Index: -1, Reason: "not an integral number: " + strconv.Quote(s)}
	}
	return id, nil
}

// IDFrom coerces a raw identifier. Numbers and numeric strings are accepted
// when they are finite and integral.
func IDFrom(raw any) (ID, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case ID:
		return v, true
	case int:
		return ID(v), true
	case int64:
		return ID(v), true
	case json.Number:
		return idFromText(string(v))
	case float64:
		return idFromFloat(v)
	case string:
		return idFromText(v)
	default:
		return 0, false
	}
}

func idFromText(s string) (ID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return idFromFloat(f)
}

func idFromFloat(f float64) (ID, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return ID(f), true
}

// recordID reads `id`, falling back to the legacy `_id` field.
func recordID(obj map[string]any) (ID, bool) {
	if raw, ok := obj["id"]; ok && raw != nil {
		return IDFrom(raw)
	}
	if raw, ok := obj["_id"]; ok && raw != nil {
		return IDFrom(raw)
	}
	return 0, false
}
