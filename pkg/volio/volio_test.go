package volio

import (
	"os"
	"path/filepath"
	"testing"

	"voxelflow/pkg/volume"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.vox")

	vol := volume.New(3, 4, 5, 2)
	for i := range vol.Data {
		vol.Data[i] = float64(i) * 0.5
	}

	if err := Save(vol, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.X != 3 || loaded.Y != 4 || loaded.Z != 5 || loaded.C != 2 {
		t.Fatalf("Expected dimensions 3x4x5x2, got %dx%dx%dx%d",
			loaded.X, loaded.Y, loaded.Z, loaded.C)
	}
	for i, v := range vol.Data {
		if loaded.Data[i] != v {
			t.Fatalf("Data differs at element %d: %v != %v", i, loaded.Data[i], v)
		}
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.vox")
	if err := os.WriteFile(path, []byte("not a volume file"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for file without magic tag")
	}
}

func TestLoadMask(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mask.vox")

	vol := volume.New(2, 2, 2, 1)
	vol.Set(0, 1, 0, 0, 1)
	vol.Set(1, 1, 1, 0, 0.5)
	if err := Save(vol, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mask, err := LoadMask(path)
	if err != nil {
		t.Fatalf("LoadMask failed: %v", err)
	}

	if mask.Count() != 2 {
		t.Errorf("Expected 2 selected voxels, got %d", mask.Count())
	}
	if !mask.At(0, 1, 0) || !mask.At(1, 1, 1) {
		t.Error("Expected nonzero voxels to be selected")
	}
	if mask.At(0, 0, 0) {
		t.Error("Expected zero voxel to be unselected")
	}
}
