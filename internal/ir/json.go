package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON encoding of attribute values, for the stores and CLI output. It is
// not canonical: use MarshalCanonical for anything that is checksummed.

func (IRNull) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON writes the object with its keys sorted.
func (obj IRObject) MarshalJSON() ([]byte, error) { return json.Marshal(ToAny(obj)) }

// MarshalIRValue encodes a single value.
func MarshalIRValue(v IRValue) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("marshal nil IRValue")
	}
	return json.Marshal(ToAny(v))
}

// UnmarshalJSON decodes an object. Numbers must be integers; null leaves
// the object nil.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case IRNull:
		*obj = nil
	case IRObject:
		*obj = val
	default:
		return fmt.Errorf("IRObject: got %T", v)
	}
	return nil
}

// UnmarshalJSON decodes an array. Numbers must be integers.
func (arr *IRArray) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case IRNull:
		*arr = nil
	case IRArray:
		*arr = val
	default:
		return fmt.Errorf("IRArray: got %T", v)
	}
	return nil
}

func decodeJSON(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return fromJSON(raw)
}

// fromJSON is FromAny without the float fallback.
func fromJSON(v any) (IRValue, error) {
	switch val := v.(type) {
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are not allowed in attribute values: %s", val)
		}
		return IRInt(n), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			e, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("IRArray index %d: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			e, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("IRObject key %q: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return FromAny(v)
	}
}
