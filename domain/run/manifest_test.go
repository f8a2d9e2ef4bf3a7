package run

import (
	"testing"

	"gosim/domain/core"
)

func TestRunFingerprint_Deterministic(t *testing.T) {
	studyHash := core.StudyHash("test-study")
	seed := int64(42)
	codeVersion := "1.0.0"

	fp1 := NewRunFingerprint(studyHash, seed, codeVersion)
	fp2 := NewRunFingerprint(studyHash, seed, codeVersion)

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.StudyHash != studyHash {
		t.Errorf("StudyHash mismatch: %s vs %s", fp1.StudyHash, studyHash)
	}
	if fp1.Seed != seed {
		t.Errorf("Seed mismatch: %d vs %d", fp1.Seed, seed)
	}
	if fp1.CodeVersion != codeVersion {
		t.Errorf("CodeVersion mismatch: %s vs %s", fp1.CodeVersion, codeVersion)
	}
}

func TestRunFingerprint_Unique(t *testing.T) {
	base := NewRunFingerprint(core.StudyHash("test-study"), 42, "1.0.0")

	testCases := []struct {
		name string
		fp   RunFingerprint
	}{
		{"different study", NewRunFingerprint(core.StudyHash("other-study"), 42, "1.0.0")},
		{"different seed", NewRunFingerprint(core.StudyHash("test-study"), 43, "1.0.0")},
		{"different code", NewRunFingerprint(core.StudyHash("test-study"), 42, "1.0.1")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.fp.Fingerprint == base.Fingerprint {
				t.Errorf("Fingerprint should be different for %s", tc.name)
			}
		})
	}
}

func TestRunManifest_Complete(t *testing.T) {
	runID := core.RunID("test-run")
	manifest := NewRunManifest(runID, "welch", "two_group", "t_test",
		core.StudyHash("test-study"), 42, 200, 16, 4, "1.0.0")

	if manifest.RunID != runID {
		t.Errorf("RunID not set correctly")
	}
	if manifest.Rows() != 3200 {
		t.Errorf("Rows = %d, want 3200", manifest.Rows())
	}
	if manifest.Fingerprint.Fingerprint == "" {
		t.Errorf("Fingerprint not computed")
	}
	if err := manifest.Validate(); err != nil {
		t.Errorf("Manifest validation failed: %v", err)
	}

	replay := NewRunManifest(core.NewRunID(), "welch", "two_group", "t_test",
		core.StudyHash("test-study"), 42, 200, 16, 1, "1.0.0")
	if !manifest.SameReplay(replay) {
		t.Errorf("manifests with identical study, seed and code should replay identically")
	}

	manifest.CodeVersion = ""
	if err := manifest.Validate(); err == nil {
		t.Errorf("expected validation error for empty code version")
	}
}
