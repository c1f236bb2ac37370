package voxelfn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"voxelflow/pkg/engine"
)

// NewScalarMaps returns a voxel function deriving scalar maps from each
// voxel's channel profile: the mean, the root mean square, and an
// anisotropy ratio (standard deviation over RMS, in [0, 1]).
//
// Two global maxima are tracked across the volume: "max_profile_sum",
// the largest clipped profile sum, and "global_max", the largest single
// channel value among voxels whose anisotropy reaches the shared
// "anisotropy_thr" parameter (default 0). The two maxima are folded
// independently, each chunk's value into its own running maximum.
func NewScalarMaps() *engine.PerVoxel {
	spec := engine.FuncSpec{
		Outputs: []engine.OutputSpec{
			{Name: "mean", Channels: 1},
			{Name: "rms", Channels: 1},
			{Name: "anisotropy", Channels: 1},
		},
		Aggregates: []engine.AggregateSpec{
			engine.MaxAggregate("max_profile_sum"),
			engine.MaxAggregate("global_max"),
		},
	}

	return engine.NewPerVoxel(spec, func(row, draws []float64, shared *engine.SharedParams, out [][]float64) ([]float64, error) {
		thr := shared.Float("anisotropy_thr", 0)

		// Negative profile values carry no signal; clip like the
		// profile sums used for display rescaling.
		sum := 0.0
		peak := 0.0
		for _, v := range row {
			if v > 0 {
				sum += v
			}
			if v > peak {
				peak = v
			}
		}

		mean := stat.Mean(row, nil)
		energy := floats.Dot(row, row)
		rms := math.Sqrt(energy / float64(len(row)))

		anisotropy := 0.0
		if energy > 0 && len(row) > 1 {
			ss := 0.0
			for _, v := range row {
				d := v - mean
				ss += d * d
			}
			anisotropy = math.Sqrt(float64(len(row)) * ss / (float64(len(row)-1) * energy))
		}

		out[0][0] = mean
		out[1][0] = rms
		out[2][0] = anisotropy

		globalMax := math.Inf(-1)
		if anisotropy >= thr {
			globalMax = peak
		}
		return []float64{sum, globalMax}, nil
	})
}
