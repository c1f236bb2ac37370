package visualization

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"voxelflow/pkg/volume"
)

// testVolume creates a single-channel volume where each z-slice holds a
// unique constant value.
func testVolume(x, y, z int) *volume.Volume {
	vol := volume.New(x, y, z, 1)
	for i := 0; i < x; i++ {
		for j := 0; j < y; j++ {
			for k := 0; k < z; k++ {
				vol.Set(i, j, k, 0, float64(k+1))
			}
		}
	}
	return vol
}

func TestNewViewerChannelRange(t *testing.T) {
	vol := testVolume(4, 4, 2)

	if _, err := NewViewer(vol, 0); err != nil {
		t.Errorf("Expected channel 0 to be valid: %v", err)
	}
	if _, err := NewViewer(vol, 1); err == nil {
		t.Error("Expected error for channel out of range")
	}
}

func TestExtractSliceDimensions(t *testing.T) {
	vol := testVolume(10, 8, 5)
	viewer, err := NewViewer(vol, 0)
	if err != nil {
		t.Fatalf("NewViewer failed: %v", err)
	}

	cases := []struct {
		axis          string
		width, height int
	}{
		{"x", 5, 8},  // YZ plane
		{"y", 10, 5}, // XZ plane
		{"z", 10, 8}, // XY plane
	}
	for _, tc := range cases {
		img, err := viewer.ExtractSlice(tc.axis, 0)
		if err != nil {
			t.Fatalf("ExtractSlice(%s) failed: %v", tc.axis, err)
		}
		bounds := img.Bounds()
		if bounds.Dx() != tc.width || bounds.Dy() != tc.height {
			t.Errorf("Axis %s: expected %dx%d slice, got %dx%d",
				tc.axis, tc.width, tc.height, bounds.Dx(), bounds.Dy())
		}
	}
}

func TestExtractSliceScaling(t *testing.T) {
	vol := testVolume(2, 2, 4) // values 1..4, max 4
	viewer, err := NewViewer(vol, 0)
	if err != nil {
		t.Fatalf("NewViewer failed: %v", err)
	}

	// The brightest slice maps to white.
	img, err := viewer.ExtractSlice("z", 3)
	if err != nil {
		t.Fatalf("ExtractSlice failed: %v", err)
	}
	if g := color.Gray16Model.Convert(img.At(0, 0)).(color.Gray16); g.Y != 65535 {
		t.Errorf("Expected maximum value to map to 65535, got %d", g.Y)
	}

	// Half-range values map to mid gray.
	img, err = viewer.ExtractSlice("z", 1)
	if err != nil {
		t.Fatalf("ExtractSlice failed: %v", err)
	}
	if g := color.Gray16Model.Convert(img.At(0, 0)).(color.Gray16); g.Y != 32767 && g.Y != 32768 {
		t.Errorf("Expected mid-range value near 32768, got %d", g.Y)
	}
}

func TestExtractSliceNaNSentinel(t *testing.T) {
	vol := testVolume(2, 2, 2)
	vol.Set(0, 0, 0, 0, math.NaN())

	viewer, err := NewViewer(vol, 0)
	if err != nil {
		t.Fatalf("NewViewer failed: %v", err)
	}

	img, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("ExtractSlice failed: %v", err)
	}
	if g := color.Gray16Model.Convert(img.At(0, 0)).(color.Gray16); g.Y != 0 {
		t.Errorf("Expected NaN sentinel to render black, got %d", g.Y)
	}
}

func TestExtractSliceErrors(t *testing.T) {
	viewer, err := NewViewer(testVolume(4, 4, 4), 0)
	if err != nil {
		t.Fatalf("NewViewer failed: %v", err)
	}

	if _, err := viewer.ExtractSlice("w", 0); err == nil {
		t.Error("Expected error for invalid axis")
	}
	if _, err := viewer.ExtractSlice("z", 4); err == nil {
		t.Error("Expected error for out-of-range position")
	}
	if _, err := viewer.ExtractSlice("z", -1); err == nil {
		t.Error("Expected error for negative position")
	}
}

func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file output test in short mode")
	}

	viewer, err := NewViewer(testVolume(3, 3, 3), 0)
	if err != nil {
		t.Fatalf("NewViewer failed: %v", err)
	}

	dir := t.TempDir()
	if err := viewer.SaveSliceSequence("z", dir); err != nil {
		t.Fatalf("SaveSliceSequence failed: %v", err)
	}

	for pos := 0; pos < 3; pos++ {
		path := filepath.Join(dir, fmt.Sprintf("slice_z_%03d.jpg", pos))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected slice file %s: %v", path, err)
		}
	}
}
