package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Value is a JSON value carried in notification custom data. The concrete
// types are Null, Bool, Number, String, Array and Object.
type Value interface {
	isValue()
}

type (
	Null   struct{}
	Bool   bool
	Number json.Number // kept as the literal so large integers survive
	String string
	Array  []Value
	Object map[string]Value
)

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (Array) isValue()  {}
func (Object) isValue() {}

func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON writes the number literal unchanged.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(json.Number(n))
}

// Data is the top-level custom data of a notification.
type Data map[string]Value

// UnmarshalJSON decodes an arbitrary JSON object into typed values.
func (d *Data) UnmarshalJSON(b []byte) error {
	v, err := ParseValue(b)
	if err != nil {
		return err
	}
	switch obj := v.(type) {
	case Object:
		*d = Data(obj)
	case Null:
		*d = nil
	default:
		return fmt.Errorf("custom data must be a JSON object, got %T", v)
	}
	return nil
}

// ParseValue decodes one JSON document into a Value.
func ParseValue(b []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON value: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid JSON value: trailing data")
	}
	return FromAny(raw)
}

// FromAny converts the output of encoding/json (or plain Go scalars) into a Value.
func FromAny(v interface{}) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return Number(x), nil
	case float64:
		return Number(strconv.FormatFloat(x, 'g', -1, 64)), nil
	case int:
		return Number(strconv.Itoa(x)), nil
	case int64:
		return Number(strconv.FormatInt(x, 10)), nil
	case []interface{}:
		arr := make(Array, 0, len(x))
		for _, item := range x {
			val, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		return arr, nil
	case map[string]interface{}:
		obj := make(Object, len(x))
		for k, item := range x {
			val, err := FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			obj[k] = val
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value type %T", v)
	}
}
