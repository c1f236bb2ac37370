package voxelfn

import (
	"sort"

	"voxelflow/pkg/engine"
)

// PeaksParams configures peak extraction over the channel profile.
type PeaksParams struct {
	// NPeaks is the maximum number of peaks kept per voxel.
	NPeaks int

	// RelativeThreshold drops peaks smaller than this fraction of the
	// voxel's largest peak.
	RelativeThreshold float64

	// AbsoluteThreshold zeroes profile values below it before the
	// search.
	AbsoluteThreshold float64

	// Normalize rescales kept peak values relative to the largest one.
	Normalize bool
}

// DefaultPeaksParams mirrors the usual peak-extraction settings: up to
// five peaks, each at least half the largest.
func DefaultPeaksParams() PeaksParams {
	return PeaksParams{NPeaks: 5, RelativeThreshold: 0.5}
}

// NewChannelPeaks returns a voxel function extracting the top local
// maxima of each voxel's channel profile. It produces two result
// volumes, "peak_values" and "peak_indices", each with NPeaks channels;
// missing peaks are marked with value 0 and index -1. The aggregate
// "global_max" is the largest leading peak across the volume.
func NewChannelPeaks(p PeaksParams) *engine.PerVoxel {
	if p.NPeaks <= 0 {
		p.NPeaks = 1
	}
	spec := engine.FuncSpec{
		Outputs: []engine.OutputSpec{
			{Name: "peak_values", Channels: p.NPeaks},
			{Name: "peak_indices", Channels: p.NPeaks},
		},
		Aggregates: []engine.AggregateSpec{engine.MaxAggregate("global_max")},
	}

	return engine.NewPerVoxel(spec, func(row, draws []float64, shared *engine.SharedParams, out [][]float64) ([]float64, error) {
		values, indices := out[0], out[1]
		for i := range indices {
			indices[i] = -1
		}

		type peak struct {
			value float64
			index int
		}
		var peaks []peak
		for i, v := range row {
			if v <= p.AbsoluteThreshold {
				continue
			}
			left := i == 0 || row[i-1] <= v
			right := i == len(row)-1 || row[i+1] <= v
			if left && right {
				peaks = append(peaks, peak{value: v, index: i})
			}
		}
		if len(peaks) == 0 {
			return []float64{spec.Aggregates[0].Identity}, nil
		}

		sort.Slice(peaks, func(a, b int) bool { return peaks[a].value > peaks[b].value })

		largest := peaks[0].value
		n := 0
		for _, pk := range peaks {
			if n == p.NPeaks || pk.value < p.RelativeThreshold*largest {
				break
			}
			values[n] = pk.value
			indices[n] = float64(pk.index)
			n++
		}
		if p.Normalize {
			for i := 0; i < n; i++ {
				values[i] /= largest
			}
		}

		return []float64{largest}, nil
	})
}
