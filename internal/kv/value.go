package kv

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is a sealed interface over the supported KV value types.
// Only String, Int, Bool, and Object implement it.
type Value interface {
	kvValue() // Sealed - only these types implement it
}

// String is a string value.
type String string

func (String) kvValue() {}

// Int is an integer value. Always int64.
type Int int64

func (Int) kvValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) kvValue() {}

// Object is a structured object value. Numbers inside an Object are decoded
// as json.Number so large integers survive a round trip without float
// precision loss.
type Object map[string]any

func (Object) kvValue() {}

// Type tags persisted alongside every value. The tag is what guarantees a
// boolean comes back a boolean and not a string.
const (
	tagString = "str"
	tagInt    = "int"
	tagBool   = "bool"
	tagObject = "obj"
)

// envelope is the wire form of a tagged value.
type envelope struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

// marshalValue encodes a Value with its type tag.
func marshalValue(v Value) ([]byte, error) {
	var (
		tag     string
		payload any
	)
	switch val := v.(type) {
	case String:
		tag, payload = tagString, string(val)
	case Int:
		tag, payload = tagInt, int64(val)
	case Bool:
		tag, payload = tagBool, bool(val)
	case Object:
		tag, payload = tagObject, map[string]any(val)
	default:
		return nil, fmt.Errorf("marshal value: unsupported type %T", v)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal value payload: %w", err)
	}
	data, err := json.Marshal(envelope{T: tag, V: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal value envelope: %w", err)
	}
	return data, nil
}

// unmarshalValue decodes a tagged value, restoring its original type.
func unmarshalValue(data []byte) (Value, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal value envelope: %w", err)
	}

	switch env.T {
	case tagString:
		var s string
		if err := json.Unmarshal(env.V, &s); err != nil {
			return nil, fmt.Errorf("unmarshal string value: %w", err)
		}
		return String(s), nil
	case tagInt:
		var n int64
		if err := json.Unmarshal(env.V, &n); err != nil {
			return nil, fmt.Errorf("unmarshal int value: %w", err)
		}
		return Int(n), nil
	case tagBool:
		var b bool
		if err := json.Unmarshal(env.V, &b); err != nil {
			return nil, fmt.Errorf("unmarshal bool value: %w", err)
		}
		return Bool(b), nil
	case tagObject:
		dec := json.NewDecoder(bytes.NewReader(env.V))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("unmarshal object value: %w", err)
		}
		return Object(m), nil
	default:
		return nil, fmt.Errorf("unmarshal value: unknown type tag %q", env.T)
	}
}

// FromNative converts a plain Go value into a Value. Supported inputs:
// string, bool, int/int64, and map[string]any. Floats are rejected at the
// scalar level - there is no silent coercion into a different type.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case map[string]any:
		return Object(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Native converts a Value back into a plain Go value (string, int64, bool,
// or map[string]any).
func Native(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case Object:
		return map[string]any(val)
	default:
		return nil
	}
}
