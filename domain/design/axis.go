package design

import (
	"fmt"
	"strings"

	"gosim/domain/core"
)

// RepColumn is the reserved name of the replication index
const RepColumn = "rep"

// Axis is one varied factor of a simulation design
type Axis struct {
	Name   string  `json:"name" yaml:"name"`
	Values []Value `json:"values" yaml:"values"`
}

// NewAxis builds an axis from plain Go scalars
func NewAxis(name string, raw ...interface{}) (Axis, error) {
	values := make([]Value, 0, len(raw))
	for _, r := range raw {
		v, err := NewValue(r)
		if err != nil {
			return Axis{}, fmt.Errorf("axis %s: %w", name, err)
		}
		values = append(values, v)
	}
	axis := Axis{Name: name, Values: values}
	if err := axis.Validate(); err != nil {
		return Axis{}, err
	}
	return axis, nil
}

// MustAxis is NewAxis for literals known to be valid
func MustAxis(name string, raw ...interface{}) Axis {
	axis, err := NewAxis(name, raw...)
	if err != nil {
		panic(err)
	}
	return axis
}

func (a Axis) Validate() error {
	name := strings.TrimSpace(a.Name)
	switch {
	case name == "":
		return core.NewGridError("axis with empty name")
	case name == RepColumn:
		return core.NewGridError(fmt.Sprintf("axis name %q is reserved", RepColumn))
	case len(a.Values) == 0:
		return core.NewGridError(fmt.Sprintf("axis %s has no values", a.Name))
	}
	for i, v := range a.Values {
		if !v.IsValid() {
			return core.NewGridError(fmt.Sprintf("axis %s value %d is invalid", a.Name, i))
		}
		for _, prev := range a.Values[:i] {
			if prev.Equal(v) {
				return core.NewGridError(fmt.Sprintf("axis %s repeats value %s", a.Name, v))
			}
		}
	}
	return nil
}

func (a Axis) Len() int {
	return len(a.Values)
}
