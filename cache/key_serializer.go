package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// KeySerializer turns a key argument into a single key segment. It must be
// deterministic: equal arguments always produce equal segments.
type KeySerializer interface {
	SerializeSegment(v any) string
}

// defaultKeySerializer implements KeySerializer using reflection.
// Pointers are dereferenced, map entries are sorted and structs fall back to
// JSON so the same filter always yields the same key.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

var defaultSerializer = NewDefaultKeySerializer()

// NewKey builds a key from a family and arguments using the default serializer.
//
//	cache.NewKey("person", 7)                     // person::7
//	cache.NewKey("invoices", "/invoices?limit=5") // invoices::/invoices?limit=5
func NewKey(family string, args ...any) Key {
	return NewKeyWith(defaultSerializer, family, args...)
}

// NewKeyWith builds a key using the given serializer.
func NewKeyWith(s KeySerializer, family string, args ...any) Key {
	key := make(Key, 0, len(args)+1)
	key = append(key, family)
	for _, arg := range args {
		key = append(key, s.SerializeSegment(arg))
	}
	return key
}

// SerializeSegment returns the segment representation of v.
func (s *defaultKeySerializer) SerializeSegment(v any) string {
	if v == nil {
		return "nil"
	}

	if str, ok := v.(fmt.Stringer); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr || !rv.IsNil() {
			return str.String()
		}
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.SerializeSegment(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "[]"
		}
		return s.serializeList(rv)
	case reflect.Array:
		return s.serializeList(rv)
	case reflect.Map:
		return s.serializeMap(rv)
	case reflect.Struct:
		return s.jsonFallback(v)
	case reflect.Func, reflect.Chan:
		return fmt.Sprintf("%s:%p", rt.Kind(), v)
	}

	return fmt.Sprintf("%v", v)
}

func (s *defaultKeySerializer) serializeList(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.SerializeSegment(rv.Index(i).Interface())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// serializeMap renders entries as k=v pairs in key order. Nil values are
// skipped, matching how query parameters are built.
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		value := iter.Value().Interface()
		if isNil(value) {
			continue
		}
		pairs = append(pairs, s.SerializeSegment(iter.Key().Interface())+"="+s.SerializeSegment(value))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, "&") + "}"
}

func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(data)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
