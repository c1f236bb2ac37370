package engine

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// OutputSpec describes one per-voxel output array produced by a voxel
// function: a named result volume with a fixed number of channels.
type OutputSpec struct {
	Name     string
	Channels int
}

// AggregateSpec describes one scalar reduction carried across chunks.
// Combine must be associative and commutative so the combined result is
// independent of chunk count and processing order; Identity is its
// neutral starting value (for example -Inf for a maximum).
type AggregateSpec struct {
	Name     string
	Identity float64
	Combine  func(a, b float64) float64
}

// MaxAggregate returns the spec for a running maximum, the most common
// cross-chunk reduction.
func MaxAggregate(name string) AggregateSpec {
	return AggregateSpec{Name: name, Identity: math.Inf(-1), Combine: math.Max}
}

// SumAggregate returns the spec for a cross-chunk sum.
func SumAggregate(name string) AggregateSpec {
	return AggregateSpec{Name: name, Identity: 0, Combine: func(a, b float64) float64 { return a + b }}
}

// FuncSpec declares the shape of a voxel function: its outputs, its
// cross-chunk aggregates, and how many random draws it consumes per
// voxel. DrawsPerVoxel drives RNG skip-ahead, so a function must consume
// exactly that many draws for every voxel it is handed.
type FuncSpec struct {
	Outputs       []OutputSpec
	Aggregates    []AggregateSpec
	DrawsPerVoxel int
}

// SharedParams carries read-only broadcast parameters into every chunk.
// Workers share it by reference; voxel functions must not mutate it.
// Flags doubles as the home for capability switches (for example whether
// an optional numerical backend is available), keeping the engine
// agnostic to what a voxel function does with them.
type SharedParams struct {
	Floats   map[string]float64
	Ints     map[string]int
	Flags    map[string]bool
	Matrices map[string]*mat.Dense
}

// Float returns a named float parameter or the given default.
func (p *SharedParams) Float(name string, def float64) float64 {
	if p == nil || p.Floats == nil {
		return def
	}
	if v, ok := p.Floats[name]; ok {
		return v
	}
	return def
}

// Flag returns a named capability flag, false when unset.
func (p *SharedParams) Flag(name string) bool {
	return p != nil && p.Flags != nil && p.Flags[name]
}

// Matrix returns a named broadcast matrix, nil when unset.
func (p *SharedParams) Matrix(name string) *mat.Dense {
	if p == nil || p.Matrices == nil {
		return nil
	}
	return p.Matrices[name]
}

// Batch is the slice of per-voxel input rows handed to one chunk's
// Apply call. Rows alias the input volume's backing array and are
// read-only for the duration of the call.
type Batch struct {
	ChunkID int
	Offset  int
	Rows    [][]float64
}

// ChunkResult carries one chunk's outputs back to the reducer, tagged
// with the chunk identity that determines where they land in the result
// volumes.
type ChunkResult struct {
	ChunkID int

	// Outputs[k] holds len(Rows)*Outputs[k].Channels values, voxel-major.
	Outputs [][]float64

	// Aggregates holds one partial value per declared AggregateSpec.
	Aggregates []float64
}

// VoxelFunction is the pluggable computation unit consumed by the
// engine. Implementations are stateless with respect to the call: Apply
// may run concurrently on disjoint batches, must not mutate shared, and
// must honor two contracts the engine does not enforce itself:
//
//   - a row that is entirely zero is skipped without computation, left
//     at the output default;
//   - a per-voxel compute failure is caught inside Apply and yields a
//     well-defined sentinel output for that voxel instead of aborting
//     the batch.
//
// The PerVoxel adapter implements both contracts for kernel-style
// functions.
type VoxelFunction interface {
	Spec() FuncSpec
	Apply(batch *Batch, shared *SharedParams, rng *rand.Rand) (*ChunkResult, error)
}

// ParamValidator is implemented by voxel functions requiring particular
// shared parameters. The engine calls it before any work starts and
// reports a failure as a ConfigError.
type ParamValidator interface {
	ValidateParams(shared *SharedParams) error
}

// InputValidator is implemented by voxel functions that only accept a
// particular channel count. The engine calls it before any work starts
// and reports a failure as a ConfigError.
type InputValidator interface {
	ValidateInput(channels int) error
}

// Kernel computes the outputs for a single voxel. row is the voxel's
// channel data, draws holds exactly DrawsPerVoxel uniform [0, 1) values
// from the voxel's position in the random stream, and out[k] is the
// pre-sliced destination for output k (Outputs[k].Channels values). The
// returned slice holds this voxel's contribution to each declared
// aggregate, or nil for none. A returned error marks the voxel as
// failed: its outputs become NaN sentinels and it contributes nothing
// to the aggregates.
type Kernel func(row, draws []float64, shared *SharedParams, out [][]float64) ([]float64, error)

// PerVoxel adapts a per-voxel kernel into a VoxelFunction that honors
// the engine's batch contracts: zero rows are skipped without invoking
// the kernel, kernel errors become NaN sentinel outputs for that voxel
// only, and exactly DrawsPerVoxel values are drawn for every row, kept
// or skipped, so the stream position always matches the voxel's
// compact-index position.
type PerVoxel struct {
	spec      FuncSpec
	kernel    Kernel
	validate  func(shared *SharedParams) error
	wantChans int // 0 = any
}

// NewPerVoxel wraps a kernel with the given spec.
func NewPerVoxel(spec FuncSpec, kernel Kernel) *PerVoxel {
	return &PerVoxel{spec: spec, kernel: kernel}
}

// RequireParams attaches a shared-parameter check run before dispatch.
func (f *PerVoxel) RequireParams(validate func(shared *SharedParams) error) *PerVoxel {
	f.validate = validate
	return f
}

// RequireChannels constrains the accepted input channel count.
func (f *PerVoxel) RequireChannels(channels int) *PerVoxel {
	f.wantChans = channels
	return f
}

// Spec implements VoxelFunction.
func (f *PerVoxel) Spec() FuncSpec { return f.spec }

// ValidateParams implements ParamValidator.
func (f *PerVoxel) ValidateParams(shared *SharedParams) error {
	if f.validate == nil {
		return nil
	}
	return f.validate(shared)
}

// ValidateInput implements InputValidator.
func (f *PerVoxel) ValidateInput(channels int) error {
	if f.wantChans != 0 && channels != f.wantChans {
		return fmt.Errorf("function expects %d channels, volume has %d", f.wantChans, channels)
	}
	return nil
}

// Apply implements VoxelFunction.
func (f *PerVoxel) Apply(batch *Batch, shared *SharedParams, rng *rand.Rand) (*ChunkResult, error) {
	n := len(batch.Rows)
	res := &ChunkResult{
		ChunkID: batch.ChunkID,
		Outputs: make([][]float64, len(f.spec.Outputs)),
	}
	for k, spec := range f.spec.Outputs {
		res.Outputs[k] = make([]float64, n*spec.Channels)
	}
	res.Aggregates = make([]float64, len(f.spec.Aggregates))
	for a, spec := range f.spec.Aggregates {
		res.Aggregates[a] = spec.Identity
	}

	draws := make([]float64, f.spec.DrawsPerVoxel)
	out := make([][]float64, len(f.spec.Outputs))

	for i, row := range batch.Rows {
		// Draw before the zero check: every compact-index position
		// accounts for DrawsPerVoxel draws, so later voxels see the
		// same stream position under any partition.
		for d := range draws {
			draws[d] = rng.Float64()
		}
		if allZero(row) {
			continue
		}

		for k, spec := range f.spec.Outputs {
			out[k] = res.Outputs[k][i*spec.Channels : (i+1)*spec.Channels]
		}

		contrib, err := f.kernel(row, draws, shared, out)
		if err != nil {
			for k := range out {
				fill(out[k], math.NaN())
			}
			continue
		}
		for a, spec := range f.spec.Aggregates {
			if contrib != nil {
				res.Aggregates[a] = spec.Combine(res.Aggregates[a], contrib[a])
			}
		}
	}

	return res, nil
}

func allZero(row []float64) bool {
	for _, v := range row {
		if v != 0 {
			return false
		}
	}
	return true
}

func fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}
