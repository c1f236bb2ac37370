// Package interp provides clamped voxel access and position lookups over
// a volume in physical (mm) space, with nearest-neighbor or trilinear
// interpolation across the spatial axes. Channel values are interpolated
// independently.
package interp

import (
	"fmt"
	"math"

	"voxelflow/pkg/volume"
)

// Method selects how positions between voxel centers are resolved.
type Method int

const (
	// Trilinear blends the eight surrounding voxel centers.
	Trilinear Method = iota

	// NearestNeighbor snaps to the closest voxel center.
	NearestNeighbor
)

// Dataset wraps a volume with its physical voxel size for position
// lookups. The voxel at integer coordinate (i, j, k) has its center at
// ((i+0.5)·sx, (j+0.5)·sy, (k+0.5)·sz) in mm space.
type Dataset struct {
	vol    *volume.Volume
	size   [3]float64
	method Method
}

// NewDataset creates a dataset over vol with the given voxel size in mm.
func NewDataset(vol *volume.Volume, sx, sy, sz float64, method Method) (*Dataset, error) {
	if sx <= 0 || sy <= 0 || sz <= 0 {
		return nil, fmt.Errorf("voxel size must be positive, got (%g, %g, %g)", sx, sy, sz)
	}
	return &Dataset{vol: vol, size: [3]float64{sx, sy, sz}, method: method}, nil
}

// VoxelValue returns the channel values at integer voxel coordinates.
// Out-of-bound coordinates clamp to the nearest voxel.
func (d *Dataset) VoxelValue(x, y, z int) []float64 {
	x = clampInt(x, d.vol.X-1)
	y = clampInt(y, d.vol.Y-1)
	z = clampInt(z, d.vol.Z-1)
	row := d.vol.Channels(x, y, z)
	out := make([]float64, len(row))
	copy(out, row)
	return out
}

// InBounds reports whether the mm-space position falls inside the
// volume extent.
func (d *Dataset) InBounds(x, y, z float64) bool {
	return x >= 0 && x < float64(d.vol.X)*d.size[0] &&
		y >= 0 && y < float64(d.vol.Y)*d.size[1] &&
		z >= 0 && z < float64(d.vol.Z)*d.size[2]
}

// PositionValue returns the interpolated channel values at a mm-space
// position. Out-of-bound positions clamp to the volume border before
// interpolation.
func (d *Dataset) PositionValue(x, y, z float64) []float64 {
	// Continuous voxel coordinates, with voxel centers at i+0.5.
	cx := clampFloat(x/d.size[0]-0.5, float64(d.vol.X-1))
	cy := clampFloat(y/d.size[1]-0.5, float64(d.vol.Y-1))
	cz := clampFloat(z/d.size[2]-0.5, float64(d.vol.Z-1))

	switch d.method {
	case NearestNeighbor:
		return d.VoxelValue(int(math.Round(cx)), int(math.Round(cy)), int(math.Round(cz)))
	default:
		return d.trilinear(cx, cy, cz)
	}
}

func (d *Dataset) trilinear(cx, cy, cz float64) []float64 {
	x0, y0, z0 := int(math.Floor(cx)), int(math.Floor(cy)), int(math.Floor(cz))
	fx, fy, fz := cx-float64(x0), cy-float64(y0), cz-float64(z0)

	out := make([]float64, d.vol.C)
	for dx := 0; dx <= 1; dx++ {
		for dy := 0; dy <= 1; dy++ {
			for dz := 0; dz <= 1; dz++ {
				w := weight(fx, dx) * weight(fy, dy) * weight(fz, dz)
				if w == 0 {
					continue
				}
				row := d.vol.Channels(
					clampInt(x0+dx, d.vol.X-1),
					clampInt(y0+dy, d.vol.Y-1),
					clampInt(z0+dz, d.vol.Z-1),
				)
				for c, v := range row {
					out[c] += w * v
				}
			}
		}
	}
	return out
}

func weight(frac float64, side int) float64 {
	if side == 1 {
		return frac
	}
	return 1 - frac
}

func clampInt(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
