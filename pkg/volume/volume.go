// Package volume provides the dense volumetric array types shared by the
// voxelflow engine: a channelled 3D volume, a boolean mask of matching
// spatial extent, and the compact index enumerating active voxels.
package volume

import (
	"fmt"
)

// Coord is the spatial position of a single voxel.
type Coord struct {
	X, Y, Z int
}

// Volume is a dense (X, Y, Z, C) array of float64 values stored in C-order:
// x varies slowest, z varies fastest among the spatial axes, and the C
// channel values of one voxel are contiguous. C may be 1 for scalar data.
//
// A Volume passed into the engine is owned by the caller and treated as
// read-only for the duration of the call.
type Volume struct {
	// X, Y, Z are the spatial dimensions in voxels.
	X, Y, Z int

	// C is the number of channels per voxel.
	C int

	// Data is the backing array, length X*Y*Z*C.
	Data []float64
}

// New allocates a zero-filled volume with the given dimensions.
func New(x, y, z, c int) *Volume {
	if x <= 0 || y <= 0 || z <= 0 || c <= 0 {
		panic(fmt.Sprintf("volume: invalid dimensions (%d, %d, %d, %d)", x, y, z, c))
	}
	return &Volume{
		X:    x,
		Y:    y,
		Z:    z,
		C:    c,
		Data: make([]float64, x*y*z*c),
	}
}

// Index returns the position of element (x, y, z, c) in Data.
func (v *Volume) Index(x, y, z, c int) int {
	return ((x*v.Y+y)*v.Z+z)*v.C + c
}

// At returns the value at (x, y, z, c). Out-of-range coordinates panic.
func (v *Volume) At(x, y, z, c int) float64 {
	v.check(x, y, z, c)
	return v.Data[v.Index(x, y, z, c)]
}

// Set stores a value at (x, y, z, c). Out-of-range coordinates panic.
func (v *Volume) Set(x, y, z, c int, value float64) {
	v.check(x, y, z, c)
	v.Data[v.Index(x, y, z, c)] = value
}

// Channels returns the C channel values of voxel (x, y, z) as a slice
// aliasing the backing array. Callers must not mutate it when the volume
// is shared with the engine.
func (v *Volume) Channels(x, y, z int) []float64 {
	v.check(x, y, z, 0)
	base := v.Index(x, y, z, 0)
	return v.Data[base : base+v.C]
}

// InBounds reports whether (x, y, z) lies inside the spatial extent.
func (v *Volume) InBounds(x, y, z int) bool {
	return x >= 0 && x < v.X && y >= 0 && y < v.Y && z >= 0 && z < v.Z
}

func (v *Volume) check(x, y, z, c int) {
	if !v.InBounds(x, y, z) || c < 0 || c >= v.C {
		panic(fmt.Sprintf("volume: coordinate (%d, %d, %d, %d) out of range (%d, %d, %d, %d)",
			x, y, z, c, v.X, v.Y, v.Z, v.C))
	}
}

// Mask is a boolean volume selecting which voxels are active. Its extent
// must match the spatial dimensions of the volume it applies to.
type Mask struct {
	X, Y, Z int
	Data    []bool
}

// NewMask allocates an all-false mask with the given spatial dimensions.
func NewMask(x, y, z int) *Mask {
	return &Mask{X: x, Y: y, Z: z, Data: make([]bool, x*y*z)}
}

// At returns the mask value at (x, y, z).
func (m *Mask) At(x, y, z int) bool {
	return m.Data[(x*m.Y+y)*m.Z+z]
}

// Set stores a mask value at (x, y, z).
func (m *Mask) Set(x, y, z int, value bool) {
	m.Data[(x*m.Y+y)*m.Z+z] = value
}

// Count returns the number of true entries.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Data {
		if b {
			n++
		}
	}
	return n
}

// Matches reports whether the mask extent equals the volume's spatial
// dimensions.
func (m *Mask) Matches(v *Volume) bool {
	return m.X == v.X && m.Y == v.Y && m.Z == v.Z
}
