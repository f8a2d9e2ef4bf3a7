package summary

import (
	"fmt"
	"strings"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/domain/result"
)

// MetricKind selects how a metric reduces the records of one cell
type MetricKind string

const (
	KindProportion  MetricKind = "proportion"
	KindMean        MetricKind = "mean"
	KindBias        MetricKind = "bias"
	KindEmpiricalSE MetricKind = "empirical_se"
	KindCoverage    MetricKind = "coverage"
)

// Truth names the population value an estimate is compared against: a
// constant, a parameter, or the difference of two parameters.
type Truth struct {
	Value *float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Param string   `json:"param,omitempty" yaml:"param,omitempty"`
	Minus string   `json:"minus,omitempty" yaml:"minus,omitempty"`
}

// Resolve evaluates the truth for one cell's params
func (t Truth) Resolve(params design.Params) (float64, error) {
	if t.Value != nil {
		return *t.Value, nil
	}
	v, err := params.Float(t.Param)
	if err != nil {
		return 0, err
	}
	if t.Minus == "" {
		return v, nil
	}
	m, err := params.Float(t.Minus)
	if err != nil {
		return 0, err
	}
	return v - m, nil
}

func (t Truth) String() string {
	switch {
	case t.Value != nil:
		return fmt.Sprintf("%g", *t.Value)
	case t.Minus != "":
		return t.Param + " - " + t.Minus
	default:
		return t.Param
	}
}

// Metric declares one summary column
type Metric struct {
	Name      string     `json:"name" yaml:"name"`
	Kind      MetricKind `json:"kind" yaml:"kind"`
	Field     string     `json:"field,omitempty" yaml:"field,omitempty"`
	Threshold float64    `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Above     bool       `json:"above,omitempty" yaml:"above,omitempty"`
	Truth     *Truth     `json:"truth,omitempty" yaml:"truth,omitempty"`
	Lower     string     `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper     string     `json:"upper,omitempty" yaml:"upper,omitempty"`
}

// RejectionRate is the usual "p_value < alpha" proportion
func RejectionRate(name string, alpha float64) Metric {
	return Metric{Name: name, Kind: KindProportion, Field: "p_value", Threshold: alpha}
}

// Validate checks the metric against the analyzer's result fields
func (m Metric) Validate(fields result.Schema) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: metric with empty name", core.ErrInvalidStudy)
	}
	need := func(field, role string) error {
		if field == "" {
			return fmt.Errorf("%w: metric %s needs a %s field", core.ErrInvalidStudy, m.Name, role)
		}
		if !fields.Has(field) {
			return fmt.Errorf("%w: metric %s references unknown field %s", core.ErrInvalidStudy, m.Name, field)
		}
		return nil
	}
	needTruth := func() error {
		if m.Truth == nil || (m.Truth.Value == nil && m.Truth.Param == "") {
			return fmt.Errorf("%w: metric %s needs a truth", core.ErrInvalidStudy, m.Name)
		}
		return nil
	}

	switch m.Kind {
	case KindProportion, KindMean, KindEmpiricalSE:
		return need(m.Field, "value")
	case KindBias:
		if err := need(m.Field, "value"); err != nil {
			return err
		}
		return needTruth()
	case KindCoverage:
		if err := need(m.Lower, "lower"); err != nil {
			return err
		}
		if err := need(m.Upper, "upper"); err != nil {
			return err
		}
		return needTruth()
	default:
		return fmt.Errorf("%w: metric %s has unknown kind %q", core.ErrInvalidStudy, m.Name, m.Kind)
	}
}

// TruthParams lists the parameter names a metric reads
func (m Metric) TruthParams() []string {
	if m.Truth == nil || m.Truth.Value != nil {
		return nil
	}
	names := []string{m.Truth.Param}
	if m.Truth.Minus != "" {
		names = append(names, m.Truth.Minus)
	}
	return names
}
