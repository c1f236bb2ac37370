// Package volio reads and writes volumes in a simple little-endian
// binary container used by the voxelflow CLI: a magic tag, four int32
// dimensions (X, Y, Z, C), then X*Y*Z*C float64 values in the volume's
// native C-order layout. It is a demo persistence surface, not a
// neuroimaging interchange format.
package volio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"voxelflow/pkg/volume"
)

// magic identifies a voxelflow volume file.
var magic = [4]byte{'V', 'O', 'X', 'L'}

// maxDim bounds each dimension read from a header, rejecting corrupt
// files before a huge allocation.
const maxDim = 1 << 14

// Save writes a volume to path, creating or truncating the file.
func Save(vol *volume.Volume, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create volume file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := w.Write(magic[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	dims := []int32{int32(vol.X), int32(vol.Y), int32(vol.Z), int32(vol.C)}
	if err := binary.Write(w, binary.LittleEndian, dims); err != nil {
		return fmt.Errorf("failed to write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, vol.Data); err != nil {
		return fmt.Errorf("failed to write voxel data: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush volume file: %w", err)
	}
	return nil
}

// Load reads a volume from path.
func Load(path string) (*volume.Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume file: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var tag [4]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if tag != magic {
		return nil, fmt.Errorf("%s is not a voxelflow volume file", path)
	}

	dims := make([]int32, 4)
	if err := binary.Read(r, binary.LittleEndian, dims); err != nil {
		return nil, fmt.Errorf("failed to read dimensions: %w", err)
	}
	for _, d := range dims {
		if d <= 0 || d > maxDim {
			return nil, fmt.Errorf("invalid dimension %d in %s", d, path)
		}
	}

	vol := volume.New(int(dims[0]), int(dims[1]), int(dims[2]), int(dims[3]))
	if err := binary.Read(r, binary.LittleEndian, vol.Data); err != nil {
		return nil, fmt.Errorf("failed to read voxel data: %w", err)
	}
	return vol, nil
}

// LoadMask reads a volume from path and converts it to a mask: a voxel
// is selected when any of its channel values is nonzero.
func LoadMask(path string) (*volume.Mask, error) {
	vol, err := Load(path)
	if err != nil {
		return nil, err
	}
	mask := volume.NewMask(vol.X, vol.Y, vol.Z)
	for x := 0; x < vol.X; x++ {
		for y := 0; y < vol.Y; y++ {
			for z := 0; z < vol.Z; z++ {
				for _, v := range vol.Channels(x, y, z) {
					if v != 0 {
						mask.Set(x, y, z, true)
						break
					}
				}
			}
		}
	}
	return mask, nil
}
