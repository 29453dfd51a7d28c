// Package jsonvalue provides helpers for the generic JSON trees
// (map[string]any, []any and scalars) that releases decode into.
package jsonvalue

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
)

// Shape classifies a value as a literal, an object or an array.
type Shape int

const (
	ShapeLiteral Shape = iota
	ShapeObject
	ShapeArray
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeArray:
		return "array"
	default:
		return "literal"
	}
}

// ShapeOf reports the shape of value.
func ShapeOf(value any) Shape {
	switch value.(type) {
	case map[string]any:
		return ShapeObject
	case []any:
		return ShapeArray
	default:
		return ShapeLiteral
	}
}

// IsEmptyContainer reports whether value is an empty object or array.
func IsEmptyContainer(value any) bool {
	switch typed := value.(type) {
	case map[string]any:
		return len(typed) == 0
	case []any:
		return len(typed) == 0
	default:
		return false
	}
}

// Clone returns a deep copy of value. Maps and slices are copied, everything
// else is returned as-is.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return map[string]any(nil)
		}
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = Clone(item)
		}
		return out
	case []any:
		if typed == nil {
			return []any(nil)
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Clone(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return value
	}
}

// CloneObject deep copies an object.
func CloneObject(value map[string]any) map[string]any {
	if value == nil {
		return nil
	}
	return Clone(value).(map[string]any)
}

// Equal reports structural equality. Numbers compare by exact decimal value
// regardless of their Go representation, so json.Number("1"), 1 and 1.0 are
// equal while integers beyond float64 precision stay distinct.
func Equal(a, b any) bool {
	if an, ok := toRat(a); ok {
		bn, ok := toRat(b)
		return ok && an.Cmp(bn) == 0
	}
	switch left := a.(type) {
	case nil:
		return b == nil
	case string:
		right, ok := b.(string)
		return ok && left == right
	case bool:
		right, ok := b.(bool)
		return ok && left == right
	case map[string]any:
		right, ok := b.(map[string]any)
		if !ok || len(left) != len(right) {
			return false
		}
		for key, item := range left {
			other, exists := right[key]
			if !exists || !Equal(item, other) {
				return false
			}
		}
		return true
	case []any:
		right, ok := b.([]any)
		if !ok || len(left) != len(right) {
			return false
		}
		for i := range left {
			if !Equal(left[i], right[i]) {
				return false
			}
		}
		return true
	case []string:
		return Equal(stringsToAny(left), b)
	default:
		if right, ok := b.([]string); ok {
			return Equal(a, stringsToAny(right))
		}
		return reflect.DeepEqual(a, b)
	}
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(string(typed), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	default:
		return 0, false
	}
}

// IsNumber reports whether value holds a JSON number representation.
func IsNumber(value any) bool {
	_, ok := toFloat(value)
	return ok
}

// Number returns value as float64 when it is numeric.
func Number(value any) (float64, bool) {
	return toFloat(value)
}

// NumberKey returns a canonical text for numeric values: equal numbers yield
// equal keys and distinct numbers, however large, yield distinct keys.
func NumberKey(value any) (string, bool) {
	r, ok := toRat(value)
	if !ok {
		return "", false
	}
	return r.RatString(), true
}

// toRat converts a number to an exact rational. Floats go through their
// shortest decimal form so 0.1 and json.Number("0.1") agree.
func toRat(value any) (*big.Rat, bool) {
	var text string
	switch typed := value.(type) {
	case json.Number:
		text = string(typed)
	case float64:
		text = strconv.FormatFloat(typed, 'g', -1, 64)
	case float32:
		text = strconv.FormatFloat(float64(typed), 'g', -1, 32)
	case int:
		return new(big.Rat).SetInt64(int64(typed)), true
	case int8:
		return new(big.Rat).SetInt64(int64(typed)), true
	case int16:
		return new(big.Rat).SetInt64(int64(typed)), true
	case int32:
		return new(big.Rat).SetInt64(int64(typed)), true
	case int64:
		return new(big.Rat).SetInt64(typed), true
	case uint:
		return new(big.Rat).SetUint64(uint64(typed)), true
	case uint8:
		return new(big.Rat).SetUint64(uint64(typed)), true
	case uint16:
		return new(big.Rat).SetUint64(uint64(typed)), true
	case uint32:
		return new(big.Rat).SetUint64(uint64(typed)), true
	case uint64:
		return new(big.Rat).SetUint64(typed), true
	default:
		return nil, false
	}
	r, ok := new(big.Rat).SetString(text)
	return r, ok
}

// Render formats value for diagnostics, preferring its JSON encoding.
func Render(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

// String renders scalars the way they appear inside composite identifiers:
// strings verbatim, nil as the empty string, everything else via Render.
func String(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	default:
		return Render(value)
	}
}
