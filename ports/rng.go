package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// TrialStream creates the stream for one condition row. Streams of
	// different rows are independent, so results do not depend on the order
	// or concurrency in which rows run.
	TrialStream(ctx context.Context, seed int64, row int) (*rand.Rand, error)
}
