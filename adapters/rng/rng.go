package rng

import (
	"context"
	"math/rand/v2"

	"gosim/ports"
)

// StreamAdapter derives independent PCG streams from a run seed. Each stream
// is keyed by (seed, row) or (seed, name) through splitmix64, so a row's draws
// never depend on which worker ran it or when.
type StreamAdapter struct{}

var _ ports.RNGPort = (*StreamAdapter)(nil)

func NewStreamAdapter() *StreamAdapter {
	return &StreamAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *StreamAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := mix(uint64(seed) ^ uint64(hashString(name))<<32)
	return rand.New(rand.NewPCG(key, mix(key))), nil
}

// TrialStream creates the stream for one condition row
func (a *StreamAdapter) TrialStream(ctx context.Context, seed int64, row int) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(TrialSource(seed, row)), nil
}

// TrialSource is the PCG source behind TrialStream
func TrialSource(seed int64, row int) *rand.PCG {
	hi := mix(uint64(seed))
	lo := mix(hi ^ mix(uint64(row)+1))
	return rand.NewPCG(hi, lo)
}

// mix is the splitmix64 finalizer
func mix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
