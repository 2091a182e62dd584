package value

import (
	"errors"
	"fmt"
)

// ErrNotSerializable is returned when a value has no JSON representation.
// Node and edge references are not expected inside serialized storage.
var ErrNotSerializable = errors.New("value: not serializable")

// ToJSON converts a value to its JSON-compatible representation: primitives
// as themselves and lists as arrays. References return ErrNotSerializable.
func ToJSON(v Value) (any, error) {
	switch v := v.(type) {
	case Boolean:
		return bool(v), nil
	case Number:
		return float64(v), nil
	case String:
		return string(v), nil
	case List:
		out := make([]any, len(v))
		for i, e := range v {
			enc, err := ToJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case NodeRef, EdgeRef:
		return nil, fmt.Errorf("%w: %s reference", ErrNotSerializable, v.Type())
	default:
		return nil, fmt.Errorf("%w: unknown value kind %T", ErrNotSerializable, v)
	}
}

// FromJSON converts a decoded JSON value (bool, float64, string, []any, plus
// the integer types the yaml decoder produces) back into a Value.
func FromJSON(raw any) (Value, error) {
	switch raw := raw.(type) {
	case bool:
		return Boolean(raw), nil
	case float64:
		return Number(raw), nil
	case int:
		return Number(raw), nil
	case int64:
		return Number(raw), nil
	case string:
		return String(raw), nil
	case []any:
		out := make(List, len(raw))
		for i, e := range raw {
			v, err := FromJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot decode %T", ErrNotSerializable, raw)
	}
}
