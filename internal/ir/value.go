package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"
)

// IRValue is a sealed interface representing constrained attribute values.
// Only IRNull, IRString, IRInt, IRBool, IRArray, and IRObject implement this.
// There is no float type: floats would make checksums platform dependent.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents an explicit null (e.g. an empty front matter key).
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to IRValue elements.
// Item attributes, layout attributes, filter params and the site config
// are all IRObjects. Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// Get returns the value for key and whether it was present.
func (obj IRObject) Get(key string) (IRValue, bool) {
	v, ok := obj[key]
	return v, ok
}

// String returns the value for key if it is an IRString.
func (obj IRObject) String(key string) (string, bool) {
	s, ok := obj[key].(IRString)
	return string(s), ok
}

// Clone returns a deep copy, so frozen objects never share maps with drafts.
func (obj IRObject) Clone() IRObject {
	if obj == nil {
		return IRObject{}
	}
	out := make(IRObject, len(obj))
	for k, v := range obj {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies arrays and objects; scalars are returned as is.
func CloneValue(v IRValue) IRValue {
	switch val := v.(type) {
	case IRObject:
		return val.Clone()
	case IRArray:
		arr := make(IRArray, len(val))
		for i, e := range val {
			arr[i] = CloneValue(e)
		}
		return arr
	default:
		return v
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for supplementary
// plane characters.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// FromAny converts a decoded YAML/JSON/CUE value into an IRValue.
//
// Floats are not representable. Integral floats become IRInt; other floats
// are kept as their shortest decimal string so front matter like
// `price: 9.99` still round-trips into templates.
func FromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return IRInt(val), nil
	case float64:
		return floatValue(val), nil
	case float32:
		return floatValue(float64(val)), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return IRInt(n), nil
		}
		return IRString(val.String()), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	case map[any]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			key := fmt.Sprint(k)
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", key, err)
			}
			obj[key] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type: %T", v)
	}
}

// ObjectFromMap converts a decoded map into an IRObject.
func ObjectFromMap(m map[string]any) (IRObject, error) {
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	return v.(IRObject), nil
}

func floatValue(f float64) IRValue {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return IRInt(int64(f))
	}
	return IRString(strconv.FormatFloat(f, 'g', -1, 64))
}

// ToAny converts an IRValue back to plain Go values, for templates.
func ToAny(v IRValue) any {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = ToAny(e)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = ToAny(e)
		}
		return out
	default:
		return nil
	}
}
