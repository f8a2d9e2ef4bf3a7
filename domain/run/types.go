package run

import (
	"crypto/sha256"
	"fmt"
	"time"

	"gosim/domain/core"
)

// Status is the lifecycle state of a run
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run is the listing view of a stored run
type Run struct {
	Manifest *RunManifest  `json:"manifest"`
	Status   Status        `json:"status"`
	Trials   int           `json:"trials"`
	Failures int           `json:"failures"`
	Elapsed  time.Duration `json:"elapsed"`
	Error    string        `json:"error,omitempty"`
}

// RunFingerprint ensures deterministic replay
type RunFingerprint struct {
	StudyHash   core.StudyHash `json:"study_hash"`
	Seed        int64          `json:"seed"`
	CodeVersion string         `json:"code_version"`
	Fingerprint core.Hash      `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(studyHash core.StudyHash, seed int64, codeVersion string) RunFingerprint {
	return RunFingerprint{
		StudyHash:   studyHash,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(studyHash, seed, codeVersion),
	}
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(studyHash core.StudyHash, seed int64, codeVersion string) core.Hash {
	data := fmt.Sprintf("study:%s|seed:%d|code:%s", studyHash, seed, codeVersion)
	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
