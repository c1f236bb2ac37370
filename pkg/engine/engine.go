// Package engine implements chunked parallel voxelwise computation over
// masked volumes. The active voxels of a volume are enumerated into a
// compact index, split into near-equal chunks, processed by a pluggable
// voxel function on one worker per chunk, and reassembled into result
// volumes in the original layout. A deterministic per-chunk random
// stream keeps stochastic voxel functions bit-exact regardless of the
// number of workers used.
package engine

import (
	"fmt"
	"log"

	"voxelflow/pkg/rngstream"
	"voxelflow/pkg/volume"
)

// Options configures one engine call.
type Options struct {
	// Mask optionally restricts the active voxels; it is combined by
	// logical AND with the derived nonzero-channel mask.
	Mask *volume.Mask

	// Workers is the requested worker count; 0 means the detected
	// hardware concurrency. It is clamped so there are never more
	// chunks than active voxels.
	Workers int

	// Seed determines the random stream for stochastic voxel
	// functions. The same seed yields bit-identical results for any
	// worker count.
	Seed uint64
}

// Result is the reassembled output of one engine call.
type Result struct {
	// Volumes holds one result volume per declared output, keyed by
	// OutputSpec name. Non-masked coordinates remain at zero.
	Volumes map[string]*volume.Volume

	// Aggregates holds the combined cross-chunk reductions, keyed by
	// AggregateSpec name.
	Aggregates map[string]float64

	// EffectiveMask is the mask actually processed: the caller's mask
	// ANDed with the derived nonzero-channel mask.
	EffectiveMask *volume.Mask

	// ActiveVoxels is the number of voxels processed.
	ActiveVoxels int
}

// Run executes a voxel function over every active voxel of a volume and
// blocks until all chunks complete and reassembly finishes.
//
// Contract violations detectable up front (mask dimension mismatch,
// unacceptable input, missing shared parameters) fail with a
// ConfigError before any work starts. An unrecoverable worker failure
// fails the whole call with a WorkerCrashError and no partial results.
// An empty effective mask is not an error: the call logs a warning and
// returns all-zero result volumes of the correct shape.
func Run(vol *volume.Volume, fn VoxelFunction, shared *SharedParams, opts Options) (*Result, error) {
	spec := fn.Spec()
	if err := validate(vol, fn, shared, spec); err != nil {
		return nil, err
	}

	effective, index, err := volume.BuildIndex(vol, opts.Mask)
	if err != nil {
		return nil, &ConfigError{Reason: "invalid mask", Err: err}
	}

	m := len(index)
	if m == 0 {
		log.Printf("voxelflow: no active voxels in the effective mask, returning zero volumes")
		return emptyResult(vol, spec, effective), nil
	}

	rows := gatherRows(vol, index)
	chunks := SplitChunks(m, opts.Workers)

	results, err := dispatch(chunks, rows, fn, shared, spec, opts.Seed)
	if err != nil {
		return nil, err
	}

	return reduce(vol, spec, effective, index, chunks, results), nil
}

func validate(vol *volume.Volume, fn VoxelFunction, shared *SharedParams, spec FuncSpec) error {
	if len(spec.Outputs) == 0 {
		return &ConfigError{Reason: "voxel function declares no outputs"}
	}
	if spec.DrawsPerVoxel < 0 {
		return &ConfigError{Reason: fmt.Sprintf("negative draws per voxel (%d)", spec.DrawsPerVoxel)}
	}
	if v, ok := fn.(InputValidator); ok {
		if err := v.ValidateInput(vol.C); err != nil {
			return &ConfigError{Reason: "unacceptable input", Err: err}
		}
	}
	if v, ok := fn.(ParamValidator); ok {
		if err := v.ValidateParams(shared); err != nil {
			return &ConfigError{Reason: "missing shared parameters", Err: err}
		}
	}
	return nil
}

// gatherRows builds the compact list of per-voxel channel rows. Each row
// aliases the volume's backing array; the volume is read-only for the
// duration of the call, so sharing the rows across workers is safe.
func gatherRows(vol *volume.Volume, index []volume.Coord) [][]float64 {
	rows := make([][]float64, len(index))
	for i, c := range index {
		rows[i] = vol.Channels(c.X, c.Y, c.Z)
	}
	return rows
}

// chunkOutcome carries one worker's result or failure back to the
// dispatcher.
type chunkOutcome struct {
	res *ChunkResult
	err error
}

// dispatch runs one chunk per worker in parallel. Workers own their
// chunk and random stream exclusively and may complete in any order;
// results are tagged by chunk ID. The first unrecoverable worker
// failure aborts the call without waiting for the remaining workers.
func dispatch(chunks []Chunk, rows [][]float64, fn VoxelFunction, shared *SharedParams, spec FuncSpec, seed uint64) ([]*ChunkResult, error) {
	outcomes := make(chan chunkOutcome, len(chunks))

	for _, chunk := range chunks {
		go func(chunk Chunk) {
			defer func() {
				if r := recover(); r != nil {
					outcomes <- chunkOutcome{err: &WorkerCrashError{
						ChunkID: chunk.ID,
						Cause:   fmt.Errorf("panic: %v", r),
					}}
				}
			}()

			rng := rngstream.ForChunk(seed, chunk.Offset, spec.DrawsPerVoxel)
			batch := &Batch{
				ChunkID: chunk.ID,
				Offset:  chunk.Offset,
				Rows:    rows[chunk.Offset : chunk.Offset+chunk.Len],
			}

			res, err := fn.Apply(batch, shared, rng)
			if err != nil {
				outcomes <- chunkOutcome{err: &WorkerCrashError{ChunkID: chunk.ID, Cause: err}}
				return
			}
			if err := checkShape(res, chunk, spec); err != nil {
				outcomes <- chunkOutcome{err: &WorkerCrashError{ChunkID: chunk.ID, Cause: err}}
				return
			}
			outcomes <- chunkOutcome{res: res}
		}(chunk)
	}

	// The channel is buffered to len(chunks), so returning on the first
	// failure never blocks the outstanding workers.
	results := make([]*ChunkResult, len(chunks))
	for range chunks {
		o := <-outcomes
		if o.err != nil {
			return nil, o.err
		}
		results[o.res.ChunkID] = o.res
	}
	return results, nil
}

// checkShape verifies a chunk result matches the declared spec before
// the reducer scatters it.
func checkShape(res *ChunkResult, chunk Chunk, spec FuncSpec) error {
	if len(res.Outputs) != len(spec.Outputs) {
		return fmt.Errorf("chunk produced %d outputs, spec declares %d", len(res.Outputs), len(spec.Outputs))
	}
	for k, out := range spec.Outputs {
		if want := chunk.Len * out.Channels; len(res.Outputs[k]) != want {
			return fmt.Errorf("output %q has %d values, want %d", out.Name, len(res.Outputs[k]), want)
		}
	}
	if len(res.Aggregates) != len(spec.Aggregates) {
		return fmt.Errorf("chunk produced %d aggregates, spec declares %d", len(res.Aggregates), len(spec.Aggregates))
	}
	return nil
}

// reduce merges chunk outputs back into volume layout. Placement is
// determined purely by each chunk's offset in the compact index, so
// merge order never affects the final content; aggregates are folded
// with their declared associative combinators.
func reduce(vol *volume.Volume, spec FuncSpec, effective *volume.Mask, index []volume.Coord, chunks []Chunk, results []*ChunkResult) *Result {
	out := &Result{
		Volumes:       make(map[string]*volume.Volume, len(spec.Outputs)),
		Aggregates:    make(map[string]float64, len(spec.Aggregates)),
		EffectiveMask: effective,
		ActiveVoxels:  len(index),
	}

	vols := make([]*volume.Volume, len(spec.Outputs))
	for k, o := range spec.Outputs {
		vols[k] = volume.New(vol.X, vol.Y, vol.Z, o.Channels)
		out.Volumes[o.Name] = vols[k]
	}

	combined := make([]float64, len(spec.Aggregates))
	for a, agg := range spec.Aggregates {
		combined[a] = agg.Identity
	}

	for _, chunk := range chunks {
		res := results[chunk.ID]
		for k, o := range spec.Outputs {
			values := res.Outputs[k]
			for j := 0; j < chunk.Len; j++ {
				c := index[chunk.Offset+j]
				base := vols[k].Index(c.X, c.Y, c.Z, 0)
				copy(vols[k].Data[base:base+o.Channels], values[j*o.Channels:(j+1)*o.Channels])
			}
		}
		for a, agg := range spec.Aggregates {
			combined[a] = agg.Combine(combined[a], res.Aggregates[a])
		}
	}

	for a, agg := range spec.Aggregates {
		out.Aggregates[agg.Name] = combined[a]
	}
	return out
}

func emptyResult(vol *volume.Volume, spec FuncSpec, effective *volume.Mask) *Result {
	out := &Result{
		Volumes:       make(map[string]*volume.Volume, len(spec.Outputs)),
		Aggregates:    make(map[string]float64, len(spec.Aggregates)),
		EffectiveMask: effective,
	}
	for _, o := range spec.Outputs {
		out.Volumes[o.Name] = volume.New(vol.X, vol.Y, vol.Z, o.Channels)
	}
	for _, agg := range spec.Aggregates {
		out.Aggregates[agg.Name] = agg.Identity
	}
	return out
}
