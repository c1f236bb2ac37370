package interp

import (
	"math"
	"testing"

	"voxelflow/pkg/volume"
)

func gradientVolume() *volume.Volume {
	// Value increases linearly along x, constant elsewhere.
	vol := volume.New(4, 3, 3, 2)
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			for z := 0; z < 3; z++ {
				vol.Set(x, y, z, 0, float64(x))
				vol.Set(x, y, z, 1, 10*float64(x))
			}
		}
	}
	return vol
}

func TestVoxelValueClamping(t *testing.T) {
	ds, err := NewDataset(gradientVolume(), 1, 1, 1, Trilinear)
	if err != nil {
		t.Fatalf("NewDataset failed: %v", err)
	}

	if got := ds.VoxelValue(2, 1, 1); got[0] != 2 {
		t.Errorf("Expected value 2, got %v", got)
	}
	// Out-of-bound coordinates clamp to the nearest voxel.
	if got := ds.VoxelValue(-5, 1, 1); got[0] != 0 {
		t.Errorf("Expected clamped value 0, got %v", got)
	}
	if got := ds.VoxelValue(9, 1, 1); got[0] != 3 {
		t.Errorf("Expected clamped value 3, got %v", got)
	}
}

func TestTrilinearAtVoxelCenter(t *testing.T) {
	ds, err := NewDataset(gradientVolume(), 2, 2, 2, Trilinear)
	if err != nil {
		t.Fatalf("NewDataset failed: %v", err)
	}

	// Voxel (1,1,1) with 2mm voxels has its center at (3,3,3).
	got := ds.PositionValue(3, 3, 3)
	if math.Abs(got[0]-1) > 1e-12 || math.Abs(got[1]-10) > 1e-12 {
		t.Errorf("Expected (1, 10) at voxel center, got %v", got)
	}
}

func TestTrilinearBetweenCenters(t *testing.T) {
	ds, err := NewDataset(gradientVolume(), 1, 1, 1, Trilinear)
	if err != nil {
		t.Fatalf("NewDataset failed: %v", err)
	}

	// Halfway between the centers of voxels x=1 and x=2 along the
	// linear gradient.
	got := ds.PositionValue(2.0, 1.5, 1.5)
	if math.Abs(got[0]-1.5) > 1e-12 {
		t.Errorf("Expected interpolated value 1.5, got %v", got)
	}
}

func TestNearestNeighbor(t *testing.T) {
	ds, err := NewDataset(gradientVolume(), 1, 1, 1, NearestNeighbor)
	if err != nil {
		t.Fatalf("NewDataset failed: %v", err)
	}

	// 2.2mm is closest to the center of voxel x=2 (at 2.5mm).
	if got := ds.PositionValue(2.2, 1.5, 1.5); got[0] != 2 {
		t.Errorf("Expected nearest value 2, got %v", got)
	}
	if got := ds.PositionValue(1.4, 1.5, 1.5); got[0] != 1 {
		t.Errorf("Expected nearest value 1, got %v", got)
	}
}

func TestPositionClamping(t *testing.T) {
	ds, err := NewDataset(gradientVolume(), 1, 1, 1, Trilinear)
	if err != nil {
		t.Fatalf("NewDataset failed: %v", err)
	}

	if ds.InBounds(-0.1, 1, 1) {
		t.Error("Expected negative position to be out of bounds")
	}
	if !ds.InBounds(3.9, 2.9, 2.9) {
		t.Error("Expected position inside the extent to be in bounds")
	}

	// Out-of-bound positions clamp to the border value.
	if got := ds.PositionValue(100, 1.5, 1.5); got[0] != 3 {
		t.Errorf("Expected clamped border value 3, got %v", got)
	}
}

func TestInvalidVoxelSize(t *testing.T) {
	if _, err := NewDataset(gradientVolume(), 0, 1, 1, Trilinear); err == nil {
		t.Error("Expected error for non-positive voxel size")
	}
}
