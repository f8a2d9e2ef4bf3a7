package ports

import (
	"fmt"

	"gosim/domain/core"
	"gosim/domain/design"
)

// ParamSpec declares one named input of a generator or analyzer.
// An invalid Default marks the parameter as required.
type ParamSpec struct {
	Name    string       `json:"name"`
	Kind    design.Kind  `json:"kind"`
	Default design.Value `json:"default"`
	Doc     string       `json:"doc,omitempty"`
}

func Required(name string, kind design.Kind, doc string) ParamSpec {
	return ParamSpec{Name: name, Kind: kind, Doc: doc}
}

func Optional(name string, def design.Value, doc string) ParamSpec {
	return ParamSpec{Name: name, Kind: def.Kind(), Default: def, Doc: doc}
}

func (s ParamSpec) IsRequired() bool {
	return !s.Default.IsValid()
}

// ApplyDefaults fills in defaulted parameters absent from params and checks
// that every declared parameter converts to its declared kind.
func ApplyDefaults(specs []ParamSpec, params design.Params) (design.Params, error) {
	out := params
	for _, spec := range specs {
		v, ok := params.Get(spec.Name)
		if !ok {
			if spec.IsRequired() {
				return design.Params{}, fmt.Errorf("%w: %s", core.ErrParameterNotFound, spec.Name)
			}
			out = out.With(spec.Name, spec.Default)
			continue
		}
		if !convertible(v, spec.Kind) {
			return design.Params{}, core.NewParameterError(spec.Name, v, "must be "+spec.Kind.String())
		}
	}
	return out, nil
}

func convertible(v design.Value, kind design.Kind) bool {
	switch kind {
	case design.KindFloat:
		_, ok := v.AsFloat()
		return ok
	case design.KindInt:
		_, ok := v.AsInt()
		return ok
	default:
		return v.Kind() == kind
	}
}

// ParamNames lists the names declared by specs
func ParamNames(specs []ParamSpec) []string {
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	return names
}
