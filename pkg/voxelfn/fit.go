package voxelfn

import (
	"fmt"
	"math"

	"voxelflow/pkg/engine"
)

// RefineFlag is the SharedParams capability flag enabling the
// deterministic refinement pass of NewExpDecayFit. It stands in for the
// availability of an optional numerical backend: when unset the fit
// returns the best randomized candidate as-is.
const RefineFlag = "refine"

// maxDecayRate bounds the decay-rate search range.
const maxDecayRate = 10.0

// NewExpDecayFit returns a voxel function fitting a two-parameter
// exponential decay s(t) = s0·exp(-k·t) to each voxel's channel profile,
// with t spanning [0, 1] across the channels. Initial parameters come
// from a randomized search of randomIters candidates drawn from the
// chunk's private random stream, two draws per candidate, so the fit is
// bit-exact for a fixed seed regardless of worker count.
//
// Outputs are "params" (s0, k) and "residual" (root mean square error of
// the kept candidate). Voxels with non-finite input yield NaN sentinel
// records instead of aborting the batch.
func NewExpDecayFit(randomIters int) *engine.PerVoxel {
	if randomIters <= 0 {
		randomIters = 50
	}
	spec := engine.FuncSpec{
		Outputs: []engine.OutputSpec{
			{Name: "params", Channels: 2},
			{Name: "residual", Channels: 1},
		},
		Aggregates:    []engine.AggregateSpec{engine.MaxAggregate("max_residual")},
		DrawsPerVoxel: 2 * randomIters,
	}

	return engine.NewPerVoxel(spec, func(row, draws []float64, shared *engine.SharedParams, out [][]float64) ([]float64, error) {
		peak := 0.0
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("non-finite input value %v", v)
			}
			if v > peak {
				peak = v
			}
		}
		if peak == 0 {
			peak = 1
		}

		bestS0, bestK := 0.0, 0.0
		bestErr := math.Inf(1)
		for i := 0; i < randomIters; i++ {
			s0 := draws[2*i] * 2 * peak
			k := draws[2*i+1] * maxDecayRate
			if e := residual(row, s0, k); e < bestErr {
				bestS0, bestK, bestErr = s0, k, e
			}
		}

		if shared.Flag(RefineFlag) {
			bestS0, bestK, bestErr = refine(row, bestS0, bestK, bestErr, peak)
		}

		out[0][0] = bestS0
		out[0][1] = bestK
		out[1][0] = bestErr
		return []float64{bestErr}, nil
	})
}

// residual is the RMS error of the model against the channel profile.
func residual(row []float64, s0, k float64) float64 {
	n := len(row)
	step := 0.0
	if n > 1 {
		step = 1 / float64(n-1)
	}
	sse := 0.0
	for i, v := range row {
		d := s0*math.Exp(-k*float64(i)*step) - v
		sse += d * d
	}
	return math.Sqrt(sse / float64(n))
}

// refine runs a deterministic shrinking grid search around the best
// randomized candidate. It uses no random draws, keeping the stream
// position independent of whether refinement is enabled.
func refine(row []float64, s0, k, best, peak float64) (float64, float64, float64) {
	stepS := peak / 4
	stepK := maxDecayRate / 8
	for pass := 0; pass < 6; pass++ {
		for ds := -1; ds <= 1; ds++ {
			for dk := -1; dk <= 1; dk++ {
				cs := s0 + float64(ds)*stepS
				ck := k + float64(dk)*stepK
				if cs < 0 || ck < 0 {
					continue
				}
				if e := residual(row, cs, ck); e < best {
					s0, k, best = cs, ck, e
				}
			}
		}
		stepS /= 2
		stepK /= 2
	}
	return s0, k, best
}
