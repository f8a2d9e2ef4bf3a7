package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough to tell runs apart in reports
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Domain-specific hash types
type (
	StudyHash   Hash
	ParamsHash  Hash
	CodeVersion Hash
)

func (h StudyHash) String() string  { return Hash(h).String() }
func (h ParamsHash) String() string { return Hash(h).String() }

// ComputeParamsHash hashes a parameter mapping independent of key order
func ComputeParamsHash(params map[string]interface{}) ParamsHash {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString("=")
		data.WriteString(fmt.Sprintf("%v", params[key]))
		data.WriteString(";")
	}

	return ParamsHash(NewHash([]byte(data.String())))
}

// ComputeStudyHash hashes the canonical encoding of a study definition
func ComputeStudyHash(canonical []byte) StudyHash {
	return StudyHash(NewHash(canonical))
}
