package normalize

import "fmt"

// ValidationError describes a record that could not be normalized. Collection
// normalizers log it and drop the record instead of returning it.
type ValidationError struct {
	Entity string
	// Index is the position of the record in its collection, or -1.
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("normalize: %s[%d]: %s", e.Entity, e.Index, e.Reason)
	}
	return fmt.Sprintf("normalize: %s: %s", e.Entity, e.Reason)
}

func notAnObject(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Index: -1, Reason: "not an object"}
}

func missingID(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Index: -1, Reason: "missing or invalid identifier"}
}
