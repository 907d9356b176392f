package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindAbsent is the empty/undefined sentinel. It is the zero Kind.
	KindAbsent Kind = iota

	// KindString holds a string payload.
	KindString

	// KindBool holds a boolean payload.
	KindBool

	// KindNumber holds a float64 payload.
	KindNumber
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	default:
		return "absent"
	}
}

// Value is the value stored for an object under a state variable, and the
// desired value carried by a goal. The zero Value is Absent.
type Value struct {
	kind Kind
	str  string
	b    bool
	num  float64
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Number returns a numeric value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// Absent returns the empty/undefined value.
func Absent() Value {
	return Value{}
}

// ValueOf converts a decoded scalar (from JSON, YAML, CUE or Starlark) into a Value.
func ValueOf(v interface{}) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Absent(), nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Number(float64(val)), nil
	case int32:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case uint:
		return Number(float64(val)), nil
	case uint32:
		return Number(float64(val)), nil
	case uint64:
		return Number(float64(val)), nil
	case float32:
		return Number(float64(val)), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Absent(), fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	default:
		return Absent(), fmt.Errorf("unsupported value type: %T", v)
	}
}

// MustValueOf is like ValueOf but panics on unsupported types.
// It is intended for literals in domain definitions and tests.
func MustValueOf(v interface{}) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether v is the empty/undefined sentinel.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

// Str returns the string payload and whether v holds a string.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// AsBool returns the boolean payload and whether v holds a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsNumber returns the numeric payload and whether v holds a number.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Truthy reports whether v counts as true in a domain precondition:
// non-empty strings, true, and non-zero numbers.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		return v.str != ""
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	default:
		return false
	}
}

// Equal reports whether v and other hold the same variant and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.num == other.num
	default:
		return true
	}
}

// Interface returns the payload as a plain Go value (nil for Absent).
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	default:
		return nil
	}
}

// String renders the payload for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return "<absent>"
	}
}

// MarshalJSON encodes the payload as a JSON scalar; Absent encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON scalar into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}
