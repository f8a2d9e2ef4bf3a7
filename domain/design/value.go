package design

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"gosim/domain/core"
)

// Kind enumerates the scalar types a parameter value may hold
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Value is a typed scalar used for parameter and axis values.
// The zero Value is invalid.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

func IntValue(i int64) Value     { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func BoolValue(b bool) Value     { return Value{kind: KindBool, b: b} }
func StringValue(s string) Value { return Value{kind: KindString, s: s} }
func (v Value) Kind() Kind       { return v.kind }
func (v Value) IsValid() bool    { return v.kind != KindInvalid }

// NewValue normalizes a Go scalar into a Value. Integers of any width become
// KindInt, float32/float64 become KindFloat. NaN and infinities are rejected.
func NewValue(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case Value:
		if !x.IsValid() {
			return Value{}, fmt.Errorf("%w: invalid value", core.ErrInvalidParameter)
		}
		return x, nil
	case int:
		return IntValue(int64(x)), nil
	case int8:
		return IntValue(int64(x)), nil
	case int16:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint:
		return IntValue(int64(x)), nil
	case uint8:
		return IntValue(int64(x)), nil
	case uint16:
		return IntValue(int64(x)), nil
	case uint32:
		return IntValue(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d overflows int64", core.ErrInvalidParameter, x)
		}
		return IntValue(int64(x)), nil
	case float32:
		return newFloat(float64(x))
	case float64:
		return newFloat(x)
	case bool:
		return BoolValue(x), nil
	case string:
		return StringValue(x), nil
	case json.Number:
		return numberValue(x)
	default:
		return Value{}, fmt.Errorf("%w: unsupported value type %T", core.ErrInvalidParameter, raw)
	}
}

// MustValue is NewValue for literals known to be valid
func MustValue(raw interface{}) Value {
	v, err := NewValue(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func newFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: non-finite value %v", core.ErrInvalidParameter, f)
	}
	return FloatValue(f), nil
}

func numberValue(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return IntValue(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q is not a number", core.ErrInvalidParameter, n)
	}
	return newFloat(f)
}

// Interface returns the underlying Go value
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindString:
		return v.s
	default:
		return nil
	}
}

// AsFloat converts numeric kinds to float64
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsInt converts ints, and floats with an integral value, to int64
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) <= math.MaxInt64 {
			return int64(v.f), true
		}
	}
	return 0, false
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Equal compares kind and payload. 1 and 1.0 are different values.
func (v Value) Equal(o Value) bool {
	return v == o
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	default:
		return "<invalid>"
	}
}

// MarshalJSON writes integral floats with a decimal point so they decode
// back as floats
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat {
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return []byte(s), nil
	}
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := NewValue(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := NewValue(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}
