package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{"run-1", RunID("run-1"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseRunID(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for input '%s'", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for input '%s': %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestComputeParamsHash_OrderIndependent(t *testing.T) {
	a := ComputeParamsHash(map[string]interface{}{"n": 50, "sd": 1.0})
	b := ComputeParamsHash(map[string]interface{}{"sd": 1.0, "n": 50})
	if a != b {
		t.Errorf("hash depends on map order: %s vs %s", a, b)
	}

	c := ComputeParamsHash(map[string]interface{}{"sd": 2.0, "n": 50})
	if a == c {
		t.Error("different params produced the same hash")
	}
}
