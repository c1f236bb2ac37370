package volume

import (
	"testing"
)

// fillVolume creates a volume populated through a per-voxel channel
// pattern function.
func fillVolume(x, y, z, c int, pattern func(x, y, z, c int) float64) *Volume {
	vol := New(x, y, z, c)
	for i := 0; i < x; i++ {
		for j := 0; j < y; j++ {
			for k := 0; k < z; k++ {
				for ch := 0; ch < c; ch++ {
					vol.Set(i, j, k, ch, pattern(i, j, k, ch))
				}
			}
		}
	}
	return vol
}

func TestVolumeAccess(t *testing.T) {
	vol := fillVolume(3, 4, 5, 2, func(x, y, z, c int) float64 {
		return float64(x*1000 + y*100 + z*10 + c)
	})

	if got := vol.At(2, 3, 4, 1); got != 2341 {
		t.Errorf("Expected 2341 at (2,3,4,1), got %g", got)
	}

	row := vol.Channels(1, 2, 3)
	if len(row) != 2 {
		t.Fatalf("Expected 2 channels, got %d", len(row))
	}
	if row[0] != 1230 || row[1] != 1231 {
		t.Errorf("Expected channels [1230 1231], got %v", row)
	}

	if vol.InBounds(3, 0, 0) {
		t.Error("Expected (3,0,0) to be out of bounds")
	}
	if !vol.InBounds(2, 3, 4) {
		t.Error("Expected (2,3,4) to be in bounds")
	}
}

func TestVolumeAtPanicsOutOfRange(t *testing.T) {
	vol := New(2, 2, 2, 1)
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for out-of-range access")
		}
	}()
	vol.At(2, 0, 0, 0)
}

func TestBuildIndexDerivedMask(t *testing.T) {
	// Only voxels with some nonzero channel are active.
	vol := New(2, 2, 2, 3)
	vol.Set(0, 0, 0, 1, 5)
	vol.Set(1, 1, 1, 0, -2)

	mask, index, err := BuildIndex(vol, nil)
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	if mask.Count() != 2 {
		t.Errorf("Expected 2 active voxels, got %d", mask.Count())
	}
	want := []Coord{{0, 0, 0}, {1, 1, 1}}
	if len(index) != len(want) {
		t.Fatalf("Expected index length %d, got %d", len(want), len(index))
	}
	for i, c := range want {
		if index[i] != c {
			t.Errorf("Expected index[%d] = %v, got %v", i, c, index[i])
		}
	}
}

func TestBuildIndexUserMaskAND(t *testing.T) {
	// The user mask is combined with the derived mask: a selected voxel
	// with all-zero channels stays inactive.
	vol := New(2, 2, 1, 1)
	vol.Set(0, 0, 0, 0, 1)
	vol.Set(0, 1, 0, 0, 1)

	userMask := NewMask(2, 2, 1)
	userMask.Set(0, 1, 0, true)
	userMask.Set(1, 1, 0, true) // zero data, must stay inactive

	mask, index, err := BuildIndex(vol, userMask)
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	if mask.Count() != 1 {
		t.Errorf("Expected 1 active voxel, got %d", mask.Count())
	}
	if len(index) != 1 || index[0] != (Coord{0, 1, 0}) {
		t.Errorf("Expected index [{0 1 0}], got %v", index)
	}
}

func TestBuildIndexDimensionMismatch(t *testing.T) {
	vol := New(2, 2, 2, 1)
	userMask := NewMask(2, 2, 3)

	if _, _, err := BuildIndex(vol, userMask); err == nil {
		t.Error("Expected error for mismatched mask dimensions")
	}
}

func TestBuildIndexScanOrder(t *testing.T) {
	// The compact index must enumerate coordinates in row-major order:
	// x slowest, z fastest.
	vol := fillVolume(2, 2, 2, 1, func(x, y, z, c int) float64 { return 1 })

	_, index, err := BuildIndex(vol, nil)
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	want := []Coord{
		{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {0, 1, 1},
		{1, 0, 0}, {1, 0, 1}, {1, 1, 0}, {1, 1, 1},
	}
	for i, c := range want {
		if index[i] != c {
			t.Errorf("Expected index[%d] = %v, got %v", i, c, index[i])
		}
	}
}
