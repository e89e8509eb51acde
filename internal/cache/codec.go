package cache

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// encode turns v into its stored kind and payload.
func encode(v any) (Kind, string, error) {
	k, ok := kindOf(v)
	if !ok {
		return 0, "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	switch k {
	case KindFunction:
		return 0, "", ErrNotSerializable
	case KindObject:
		b, err := json.Marshal(v)
		if err != nil {
			return 0, "", fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return k, string(b), nil
	case KindString:
		return k, reflect.ValueOf(v).String(), nil
	case KindBoolean:
		return k, strconv.FormatBool(reflect.ValueOf(v).Bool()), nil
	case KindNumber:
		return k, formatNumber(reflect.ValueOf(v)), nil
	}
	return 0, "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func formatNumber(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	default:
		return strconv.FormatUint(rv.Uint(), 10)
	}
}

// decode reverses encode for the given stored tag.
func decode(tag, raw string) (any, error) {
	k, ok := ParseKind(tag)
	if !ok {
		return nil, ErrUnknownType
	}
	switch k {
	case KindObject:
		var out any
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return out, nil
	case KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return math.NaN(), nil
		}
		return f, nil
	case KindBoolean:
		return raw == "true", nil
	case KindString:
		return raw, nil
	case KindFunction:
		return nil, ErrFunctionValue
	}
	return nil, ErrUnknownType
}

// scan decodes raw into dst, a non-nil pointer.
func scan(k Kind, raw string, dst any) error {
	switch k {
	case KindString:
		if p, ok := dst.(*string); ok {
			*p = raw
			return nil
		}
		b, _ := json.Marshal(raw)
		return json.Unmarshal(b, dst)
	case KindBoolean:
		return json.Unmarshal([]byte(strconv.FormatBool(raw == "true")), dst)
	case KindObject, KindNumber:
		return json.Unmarshal([]byte(raw), dst)
	}
	return ErrUnknownType
}
