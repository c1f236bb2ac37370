package voxelfn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"voxelflow/pkg/engine"
)

// BasisMatrixParam is the SharedParams matrix key holding the change of
// basis applied by NewBasisProject.
const BasisMatrixParam = "basis"

// NewBasisProject returns a voxel function projecting each voxel's
// channel row through a broadcast basis matrix: out = Bᵀ·row, where B is
// the inChannels×outChannels matrix stored under BasisMatrixParam in
// the shared parameters. A missing or mis-shaped matrix is reported as
// a configuration error before any work starts.
func NewBasisProject(inChannels, outChannels int) *engine.PerVoxel {
	spec := engine.FuncSpec{
		Outputs: []engine.OutputSpec{{Name: "projected", Channels: outChannels}},
	}

	fn := engine.NewPerVoxel(spec, func(row, draws []float64, shared *engine.SharedParams, out [][]float64) ([]float64, error) {
		basis := shared.Matrix(BasisMatrixParam)
		in := mat.NewVecDense(len(row), row)
		dst := mat.NewVecDense(len(out[0]), out[0])
		dst.MulVec(basis.T(), in)
		return nil, nil
	})

	fn.RequireChannels(inChannels)
	fn.RequireParams(func(shared *engine.SharedParams) error {
		basis := shared.Matrix(BasisMatrixParam)
		if basis == nil {
			return fmt.Errorf("shared matrix %q is required", BasisMatrixParam)
		}
		r, c := basis.Dims()
		if r != inChannels || c != outChannels {
			return fmt.Errorf("shared matrix %q is %dx%d, want %dx%d",
				BasisMatrixParam, r, c, inChannels, outChannels)
		}
		return nil
	})
	return fn
}
