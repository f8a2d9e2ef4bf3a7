package run

import (
	"fmt"

	"gosim/domain/core"
)

// RunManifest records everything needed to replay a run
// It is written before any trial results are persisted
type RunManifest struct {
	RunID        core.RunID     `json:"run_id" db:"id"`
	StudyName    string         `json:"study_name" db:"study_name"`
	Generator    string         `json:"generator" db:"generator"`
	Analyzer     string         `json:"analyzer" db:"analyzer"`
	StudyHash    core.StudyHash `json:"study_hash" db:"study_hash"`
	Seed         int64          `json:"seed" db:"seed"`
	Replications int            `json:"replications" db:"replications"`
	Cells        int            `json:"cells" db:"cells"`
	Workers      int            `json:"workers" db:"workers"`
	CodeVersion  string         `json:"code_version" db:"code_version"`
	Fingerprint  RunFingerprint `json:"fingerprint" db:"-"`
	CreatedAt    core.Timestamp `json:"created_at" db:"-"`
}

// NewRunManifest creates a manifest for a new run
func NewRunManifest(
	runID core.RunID,
	studyName string,
	generator string,
	analyzer string,
	studyHash core.StudyHash,
	seed int64,
	replications int,
	cells int,
	workers int,
	codeVersion string,
) *RunManifest {
	return &RunManifest{
		RunID:        runID,
		StudyName:    studyName,
		Generator:    generator,
		Analyzer:     analyzer,
		StudyHash:    studyHash,
		Seed:         seed,
		Replications: replications,
		Cells:        cells,
		Workers:      workers,
		CodeVersion:  codeVersion,
		Fingerprint:  NewRunFingerprint(studyHash, seed, codeVersion),
		CreatedAt:    core.Now(),
	}
}

// Rows is the number of trials the run executes
func (r *RunManifest) Rows() int {
	return r.Cells * r.Replications
}

// Validate checks if the manifest is complete
func (r *RunManifest) Validate() error {
	if core.ID(r.RunID).IsEmpty() {
		return fmt.Errorf("%w: run_id cannot be empty", core.ErrInvalidStudy)
	}
	if r.StudyHash == "" {
		return fmt.Errorf("%w: study_hash cannot be empty", core.ErrInvalidStudy)
	}
	if r.CodeVersion == "" {
		return fmt.Errorf("%w: code_version cannot be empty", core.ErrInvalidStudy)
	}
	if r.Replications < 1 || r.Cells < 1 {
		return fmt.Errorf("%w: run must have at least one cell and replication", core.ErrInvalidStudy)
	}
	return nil
}

// SameReplay reports whether two manifests must produce identical results
func (r *RunManifest) SameReplay(o *RunManifest) bool {
	return r.Fingerprint.Fingerprint == o.Fingerprint.Fingerprint
}
