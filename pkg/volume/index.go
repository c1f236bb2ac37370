package volume

import (
	"fmt"
)

// BuildIndex derives the effective mask for a volume and builds the compact
// index over its active voxels.
//
// The derived mask marks every voxel carrying at least one nonzero channel
// value. When userMask is non-nil it is combined with the derived mask by
// logical AND, so a voxel is active only if the caller selected it and it
// carries data. A userMask whose extent does not match the volume's spatial
// dimensions is a configuration error.
//
// The compact index enumerates active voxel coordinates in row-major scan
// order (x slowest, z fastest). This order is stable for identical mask
// content regardless of platform or worker count; chunk boundaries and RNG
// skip-ahead counts are defined relative to it.
func BuildIndex(vol *Volume, userMask *Mask) (*Mask, []Coord, error) {
	if userMask != nil && !userMask.Matches(vol) {
		return nil, nil, fmt.Errorf("mask dimensions (%d, %d, %d) do not match volume (%d, %d, %d)",
			userMask.X, userMask.Y, userMask.Z, vol.X, vol.Y, vol.Z)
	}

	effective := NewMask(vol.X, vol.Y, vol.Z)
	var index []Coord

	for x := 0; x < vol.X; x++ {
		for y := 0; y < vol.Y; y++ {
			for z := 0; z < vol.Z; z++ {
				if userMask != nil && !userMask.At(x, y, z) {
					continue
				}
				if !anyNonzero(vol.Channels(x, y, z)) {
					continue
				}
				effective.Set(x, y, z, true)
				index = append(index, Coord{X: x, Y: y, Z: z})
			}
		}
	}

	return effective, index, nil
}

func anyNonzero(row []float64) bool {
	for _, v := range row {
		if v != 0 {
			return true
		}
	}
	return false
}
