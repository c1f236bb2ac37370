package engine

import (
	"runtime"
)

// Chunk is a contiguous half-open range [Offset, Offset+Len) over the
// compact voxel index, assigned to exactly one worker. Chunks never
// overlap and together cover the whole index.
type Chunk struct {
	// ID identifies the chunk in 0..K; results are tagged with it so
	// reassembly does not depend on completion order.
	ID int

	// Offset is the chunk's starting position in the compact index.
	Offset int

	// Len is the number of voxels in the chunk.
	Len int
}

// ResolveWorkers resolves a requested worker count: zero or negative
// means the detected hardware concurrency, and the count is clamped so
// there are never more chunks than active voxels.
func ResolveWorkers(requested, activeVoxels int) int {
	k := requested
	if k <= 0 {
		k = runtime.NumCPU()
	}
	if activeVoxels > 0 && k > activeVoxels {
		k = activeVoxels
	}
	if k < 1 {
		k = 1
	}
	return k
}

// SplitChunks divides m voxels into k chunks of near-equal size: with
// q = m/k and r = m%k, the first r chunks have size q+1 and the rest
// have size q. This exact rule keeps chunk boundaries, and therefore
// RNG skip-ahead counts, deterministic for a given (m, k) pair.
func SplitChunks(m, k int) []Chunk {
	if m <= 0 {
		return nil
	}
	k = ResolveWorkers(k, m)

	q, r := m/k, m%k
	chunks := make([]Chunk, k)
	offset := 0
	for i := 0; i < k; i++ {
		size := q
		if i < r {
			size++
		}
		chunks[i] = Chunk{ID: i, Offset: offset, Len: size}
		offset += size
	}
	return chunks
}
