package cache

import (
	"encoding/json"
	"reflect"
)

// Kind is the closed set of value kinds an entry can be stored as.
type Kind uint8

const (
	KindObject Kind = iota + 1
	KindNumber
	KindBoolean
	KindString
	// KindFunction never results from a write; it exists so that entries
	// tagged "function" by other writers decode to a distinct error.
	KindFunction
)

var kindTags = map[Kind]string{
	KindObject:   "object",
	KindNumber:   "number",
	KindBoolean:  "boolean",
	KindString:   "string",
	KindFunction: "function",
}

// String returns the tag persisted in the type slot.
func (k Kind) String() string {
	if t, ok := kindTags[k]; ok {
		return t
	}
	return "unknown"
}

// ParseKind maps a stored tag back to its Kind.
func ParseKind(tag string) (Kind, bool) {
	for k, t := range kindTags {
		if t == tag {
			return k, true
		}
	}
	return 0, false
}

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// kindOf classifies v. ok is false for values that cannot be stored at all.
func kindOf(v any) (k Kind, ok bool) {
	if v == nil {
		return KindObject, true
	}
	rv := reflect.ValueOf(v)
	if rv.Type().Implements(marshalerType) {
		return KindObject, true
	}
	switch rv.Kind() {
	case reflect.Func:
		return KindFunction, true
	case reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return 0, false
	case reflect.String:
		return KindString, true
	case reflect.Bool:
		return KindBoolean, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return KindNumber, true
	default:
		return KindObject, true
	}
}
