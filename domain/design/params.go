package design

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"gosim/domain/core"
)

// Params is an immutable name -> Value mapping. Generators and analyzers read
// their inputs from Params by name, never by position.
type Params struct {
	values map[string]Value
}

// NewParams builds Params from plain Go scalars
func NewParams(raw map[string]interface{}) (Params, error) {
	values := make(map[string]Value, len(raw))
	for name, r := range raw {
		if strings.TrimSpace(name) == "" {
			return Params{}, fmt.Errorf("%w: empty parameter name", core.ErrInvalidParameter)
		}
		v, err := NewValue(r)
		if err != nil {
			return Params{}, fmt.Errorf("parameter %s: %w", name, err)
		}
		values[name] = v
	}
	return Params{values: values}, nil
}

// MustParams is NewParams for literals known to be valid
func MustParams(raw map[string]interface{}) Params {
	p, err := NewParams(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// With returns a copy of p with name set to v
func (p Params) With(name string, v Value) Params {
	values := make(map[string]Value, len(p.values)+1)
	for k, existing := range p.values {
		values[k] = existing
	}
	values[name] = v
	return Params{values: values}
}

// Merge returns a copy of p overlaid by other; other wins on conflicts
func (p Params) Merge(other Params) Params {
	values := make(map[string]Value, len(p.values)+len(other.values))
	for k, v := range p.values {
		values[k] = v
	}
	for k, v := range other.values {
		values[k] = v
	}
	return Params{values: values}
}

// Only returns the subset of p restricted to names
func (p Params) Only(names []string) Params {
	values := make(map[string]Value, len(names))
	for _, name := range names {
		if v, ok := p.values[name]; ok {
			values[name] = v
		}
	}
	return Params{values: values}
}

func (p Params) Get(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

func (p Params) Len() int {
	return len(p.values)
}

// Names returns parameter names in sorted order
func (p Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for name := range p.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Params) lookup(name string) (Value, error) {
	v, ok := p.values[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", core.ErrParameterNotFound, name)
	}
	return v, nil
}

func (p Params) Int(name string) (int, error) {
	v, err := p.lookup(name)
	if err != nil {
		return 0, err
	}
	i, ok := v.AsInt()
	if !ok {
		return 0, core.NewParameterError(name, v, "is not an integer")
	}
	return int(i), nil
}

func (p Params) Float(name string) (float64, error) {
	v, err := p.lookup(name)
	if err != nil {
		return 0, err
	}
	f, ok := v.AsFloat()
	if !ok {
		return 0, core.NewParameterError(name, v, "is not numeric")
	}
	return f, nil
}

func (p Params) Bool(name string) (bool, error) {
	v, err := p.lookup(name)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, core.NewParameterError(name, v, "is not a boolean")
	}
	return b, nil
}

func (p Params) String(name string) (string, error) {
	v, err := p.lookup(name)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", core.NewParameterError(name, v, "is not a string")
	}
	return s, nil
}

// Map returns the parameters as plain Go values
func (p Params) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(p.values))
	for k, v := range p.values {
		out[k] = v.Interface()
	}
	return out
}

// Format renders "a=1, b=true" in sorted name order
func (p Params) Format() string {
	parts := make([]string, 0, len(p.values))
	for _, name := range p.Names() {
		parts = append(parts, name+"="+p.values[name].String())
	}
	return strings.Join(parts, ", ")
}

// Hash identifies the parameter set independent of insertion order
func (p Params) Hash() core.ParamsHash {
	return core.ComputeParamsHash(p.Map())
}

// Bind decodes the parameters into a struct whose fields carry `param` tags.
// Every tagged field must be present in p; extra parameters are ignored so
// the same row can feed both a generator and an analyzer.
func (p Params) Bind(target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "param",
		ErrorUnset: true,
		DecodeHook: rejectLossyInt,
		Result:     target,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(p.Map()); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidParameter, err)
	}
	return nil
}

// rejectLossyInt refuses to truncate a fractional float into an int field
func rejectLossyInt(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f, ok := data.(float64); ok && f != math.Trunc(f) {
			return nil, fmt.Errorf("cannot use %v as an integer", f)
		}
	}
	return data, nil
}

func (p Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.values)
}

func (p *Params) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := NewParams(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Params) MarshalYAML() (interface{}, error) {
	return p.Map(), nil
}

func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	var values map[string]Value
	if err := node.Decode(&values); err != nil {
		return err
	}
	*p = Params{values: values}
	return nil
}
