package study

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/domain/summary"
)

const (
	DefaultAlpha  = 0.05
	DefaultDigits = 3
)

var studyValidate = validator.New()

// Study is a complete simulation study definition as read from a YAML or
// JSON file. JSON documents are accepted as the YAML subset they are.
type Study struct {
	Name         string           `json:"name" yaml:"name" validate:"required"`
	Description  string           `json:"description,omitempty" yaml:"description,omitempty"`
	Seed         int64            `json:"seed" yaml:"seed"`
	Replications int              `json:"replications" yaml:"replications" validate:"required,gte=1"`
	Generator    string           `json:"generator" yaml:"generator" validate:"required"`
	Analyzer     string           `json:"analyzer" yaml:"analyzer" validate:"required"`
	Fixed        design.Params    `json:"fixed" yaml:"fixed"`
	Axes         []design.Axis    `json:"axes,omitempty" yaml:"axes,omitempty"`
	Metrics      []summary.Metric `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Workers      int              `json:"workers,omitempty" yaml:"workers,omitempty" validate:"gte=0"`
	Alpha        float64          `json:"alpha,omitempty" yaml:"alpha,omitempty" validate:"gte=0,lt=1"`
	Digits       int              `json:"digits,omitempty" yaml:"digits,omitempty" validate:"gte=0,lte=12"`
	FailFast     bool             `json:"fail_fast,omitempty" yaml:"fail_fast,omitempty"`
	RetainData   bool             `json:"retain_data,omitempty" yaml:"retain_data,omitempty"`
}

// Parse decodes a study document and applies defaults
func Parse(data []byte) (*Study, error) {
	var s Study
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidStudy, err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Study) ApplyDefaults() {
	if s.Alpha == 0 {
		s.Alpha = DefaultAlpha
	}
	if s.Digits == 0 {
		s.Digits = DefaultDigits
	}
}

// Validate checks the structure of the study. Whether the generator and
// analyzer exist, and whether every axis is consumed, is checked when the
// study is resolved against the catalog.
func (s *Study) Validate() error {
	if err := studyValidate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidStudy, err)
	}
	for _, axis := range s.Axes {
		if err := axis.Validate(); err != nil {
			return fmt.Errorf("%w: %v", core.ErrInvalidStudy, err)
		}
	}
	names := make(map[string]bool, len(s.Metrics))
	for _, m := range s.Metrics {
		if names[m.Name] {
			return fmt.Errorf("%w: metric %s declared twice", core.ErrInvalidStudy, m.Name)
		}
		names[m.Name] = true
	}
	return nil
}

// Rows is the number of trials the study runs, replications times the size
// of every axis, computed without building the grid. A count past MaxInt
// fails with ErrInvalidGrid.
func (s *Study) Rows() (int, error) {
	rows := s.Replications
	if rows < 1 {
		return 0, fmt.Errorf("%w: replications must be at least 1", core.ErrInvalidGrid)
	}
	for _, axis := range s.Axes {
		n := axis.Len()
		if n == 0 {
			return 0, nil
		}
		if rows > math.MaxInt/n {
			return 0, fmt.Errorf("%w: trial count overflows", core.ErrInvalidGrid)
		}
		rows *= n
	}
	return rows, nil
}

// Grid builds the condition table of the study
func (s *Study) Grid() (*design.ConditionTable, error) {
	return design.Cross(s.Fixed, s.Axes, s.Replications)
}

// Hash fingerprints everything that influences results. Presentation
// settings (digits, workers) and the description are excluded.
func (s *Study) Hash() (core.StudyHash, error) {
	canonical := struct {
		Generator    string           `json:"generator"`
		Analyzer     string           `json:"analyzer"`
		Seed         int64            `json:"seed"`
		Replications int              `json:"replications"`
		Fixed        design.Params    `json:"fixed"`
		Axes         []design.Axis    `json:"axes"`
		Metrics      []summary.Metric `json:"metrics"`
		Alpha        float64          `json:"alpha"`
	}{s.Generator, s.Analyzer, s.Seed, s.Replications, s.Fixed, s.Axes, s.Metrics, s.Alpha}

	data, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}
	return core.ComputeStudyHash(data), nil
}

// Summary renders a one-line description for logs and listings
func (s *Study) Summary() string {
	axes := make([]string, len(s.Axes))
	for i, a := range s.Axes {
		axes[i] = fmt.Sprintf("%s[%d]", a.Name, a.Len())
	}
	return fmt.Sprintf("%s: %s -> %s, axes {%s}, %d reps, seed %d",
		s.Name, s.Generator, s.Analyzer, strings.Join(axes, " "), s.Replications, s.Seed)
}
