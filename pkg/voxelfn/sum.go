// Package voxelfn provides reference voxel functions for the voxelflow
// engine: per-voxel computations over the channel profile of diffusion
// volumes, each built on the engine's PerVoxel kernel contract.
package voxelfn

import (
	"gonum.org/v1/gonum/floats"

	"voxelflow/pkg/engine"
)

// NewChannelSum returns a voxel function that sums the channel values of
// each voxel into a single scalar map and tracks the global maximum sum
// across the volume.
func NewChannelSum() *engine.PerVoxel {
	spec := engine.FuncSpec{
		Outputs:    []engine.OutputSpec{{Name: "sum", Channels: 1}},
		Aggregates: []engine.AggregateSpec{engine.MaxAggregate("max_sum")},
	}
	return engine.NewPerVoxel(spec, func(row, draws []float64, shared *engine.SharedParams, out [][]float64) ([]float64, error) {
		s := floats.Sum(row)
		out[0][0] = s
		return []float64{s}, nil
	})
}
