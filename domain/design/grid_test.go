package design

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gosim/domain/core"
)

func TestCross_OrderAndShadowing(t *testing.T) {
	fixed := MustParams(map[string]interface{}{"n": 10, "sd": 1.0})
	axes := []Axis{
		MustAxis("n", 20, 50),
		MustAxis("var_equal", true, false),
	}

	ct, err := Cross(fixed, axes, 3)
	require.NoError(t, err)
	require.Equal(t, 12, ct.Len())
	assert.Equal(t, 4, ct.Cells())

	// replication fastest, first axis slowest
	first := ct.Rows[0]
	assert.Equal(t, 0, first.Cell)
	assert.Equal(t, 1, first.Rep)
	assert.Equal(t, 3, ct.Rows[2].Rep)
	assert.Equal(t, 1, ct.Rows[3].Cell)

	n, err := ct.Rows[0].Params.Int("n")
	require.NoError(t, err)
	assert.Equal(t, 20, n, "axis value shadows fixed param")

	n, err = ct.Rows[11].Params.Int("n")
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	ve, err := ct.Rows[3].Params.Bool("var_equal")
	require.NoError(t, err)
	assert.False(t, ve)

	sd, err := ct.Rows[7].Params.Float("sd")
	require.NoError(t, err)
	assert.Equal(t, 1.0, sd)

	assert.Equal(t, "n=50,var_equal=false", ct.CellKey(ct.Rows[11]))
	assert.NoError(t, ct.Validate())
}

func TestCross_ZeroAxes(t *testing.T) {
	ct, err := Cross(MustParams(map[string]interface{}{"n": 5}), nil, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, ct.Len())
	assert.Equal(t, 1, ct.Cells())
	assert.Equal(t, "", ct.CellKey(ct.Rows[0]))

	rep, err := ct.Rows[6].Params.Int(RepColumn)
	require.NoError(t, err)
	assert.Equal(t, 7, rep)
	assert.False(t, ct.CellParams(0).Has(RepColumn))
}

func TestCross_Rejects(t *testing.T) {
	tests := []struct {
		name string
		axes []Axis
		reps int
	}{
		{"zero replications", []Axis{MustAxis("n", 1)}, 0},
		{"negative replications", nil, -3},
		{"duplicate axis", []Axis{MustAxis("n", 1), MustAxis("n", 2)}, 1},
		{"reserved name", []Axis{{Name: RepColumn, Values: []Value{IntValue(1)}}}, 1},
		{"empty axis", []Axis{{Name: "n"}}, 1},
		{"repeated value", []Axis{{Name: "n", Values: []Value{IntValue(1), IntValue(1)}}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Cross(Params{}, tt.axes, tt.reps)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInvalidGrid))
		})
	}
}

func TestConditionTable_ValidateDetectsDuplicates(t *testing.T) {
	ct, err := Cross(Params{}, []Axis{MustAxis("n", 1, 2)}, 2)
	require.NoError(t, err)
	ct.Rows[1].Rep = 1
	assert.Error(t, ct.Validate())
}

func TestCross_Cardinality(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numAxes := rapid.IntRange(0, 4).Draw(rt, "numAxes")
		reps := rapid.IntRange(1, 20).Draw(rt, "reps")

		axes := make([]Axis, numAxes)
		want := reps
		for i := range axes {
			levels := rapid.IntRange(1, 5).Draw(rt, fmt.Sprintf("levels_%d", i))
			values := make([]Value, levels)
			for j := range values {
				values[j] = IntValue(int64(j))
			}
			axes[i] = Axis{Name: fmt.Sprintf("a%d", i), Values: values}
			want *= levels
		}

		ct, err := Cross(Params{}, axes, reps)
		if err != nil {
			rt.Fatalf("cross failed: %v", err)
		}
		if ct.Len() != want {
			rt.Fatalf("expected %d rows, got %d", want, ct.Len())
		}
		if err := ct.Validate(); err != nil {
			rt.Fatalf("validate: %v", err)
		}

		perCell := make(map[string]int)
		for _, row := range ct.Rows {
			perCell[ct.CellKey(row)]++
		}
		if len(perCell) != ct.Cells() {
			rt.Fatalf("expected %d distinct cells, got %d", ct.Cells(), len(perCell))
		}
		for key, n := range perCell {
			if n != reps {
				rt.Fatalf("cell %q has %d rows, want %d", key, n, reps)
			}
		}
	})
}
