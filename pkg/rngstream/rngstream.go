// Package rngstream provides deterministic random streams for chunked
// voxelwise computation. Each chunk receives a private stream that is
// bit-identical to skip-ahead from a single sequential stream seeded the
// same way, so stochastic voxel functions produce the same output no
// matter how the voxel set is partitioned across workers.
package rngstream

import (
	"golang.org/x/exp/rand"
)

// DiscardBatch is the number of draws discarded per skip-ahead step.
// Skipping is done in bounded batches rather than one unbounded pass so
// that transient work per step stays fixed regardless of chunk offset.
const DiscardBatch = 100000

// New returns a sequential stream seeded with the given value. The same
// seed always yields the same draw sequence.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// ForChunk returns the private stream for a chunk whose first voxel sits
// at the given compact-index offset. The stream is positioned exactly
// offset*drawsPerVoxel draws past the start of the sequential stream for
// the same seed, so each voxel's draws depend only on its compact-index
// position.
func ForChunk(seed uint64, offset, drawsPerVoxel int) *rand.Rand {
	rng := New(seed)
	Skip(rng, offset*drawsPerVoxel)
	return rng
}

// Skip advances a stream past n draws without using the drawn values.
func Skip(rng *rand.Rand, n int) {
	for n > DiscardBatch {
		discard(rng, DiscardBatch)
		n -= DiscardBatch
	}
	discard(rng, n)
}

func discard(rng *rand.Rand, n int) {
	for i := 0; i < n; i++ {
		rng.Float64()
	}
}
