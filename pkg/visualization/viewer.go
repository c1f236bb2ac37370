// Package visualization extracts 2D grayscale views from result volumes
// so scalar maps produced by the engine can be inspected slice by slice
// along any axis.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"voxelflow/pkg/volume"
)

// Viewer renders one channel of a volume as grayscale slice images.
// Values are scaled linearly so the volume's largest finite value maps
// to white; NaN sentinel voxels render as black.
type Viewer struct {
	vol     *volume.Volume
	channel int
	scale   float64
}

// NewViewer creates a viewer over the given channel of a volume.
func NewViewer(vol *volume.Volume, channel int) (*Viewer, error) {
	if channel < 0 || channel >= vol.C {
		return nil, fmt.Errorf("channel %d out of range, volume has %d", channel, vol.C)
	}

	max := 0.0
	for x := 0; x < vol.X; x++ {
		for y := 0; y < vol.Y; y++ {
			for z := 0; z < vol.Z; z++ {
				v := vol.At(x, y, z, channel)
				if !math.IsNaN(v) && !math.IsInf(v, 0) && v > max {
					max = v
				}
			}
		}
	}
	scale := 0.0
	if max > 0 {
		scale = 65535.0 / max
	}

	return &Viewer{vol: vol, channel: channel, scale: scale}, nil
}

// ExtractSlice extracts a 2D slice from the volume along the specified
// axis at the given position.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray16

	switch axis {
	case "x", "X":
		// Slice in the YZ plane
		if position >= v.vol.X {
			return nil, fmt.Errorf("position %d exceeds X extent %d", position, v.vol.X)
		}
		img = image.NewGray16(image.Rect(0, 0, v.vol.Z, v.vol.Y))
		for y := 0; y < v.vol.Y; y++ {
			for z := 0; z < v.vol.Z; z++ {
				img.SetGray16(z, y, v.gray(position, y, z))
			}
		}

	case "y", "Y":
		// Slice in the XZ plane
		if position >= v.vol.Y {
			return nil, fmt.Errorf("position %d exceeds Y extent %d", position, v.vol.Y)
		}
		img = image.NewGray16(image.Rect(0, 0, v.vol.X, v.vol.Z))
		for z := 0; z < v.vol.Z; z++ {
			for x := 0; x < v.vol.X; x++ {
				img.SetGray16(x, z, v.gray(x, position, z))
			}
		}

	case "z", "Z":
		// Slice in the XY plane
		if position >= v.vol.Z {
			return nil, fmt.Errorf("position %d exceeds Z extent %d", position, v.vol.Z)
		}
		img = image.NewGray16(image.Rect(0, 0, v.vol.X, v.vol.Y))
		for y := 0; y < v.vol.Y; y++ {
			for x := 0; x < v.vol.X; x++ {
				img.SetGray16(x, y, v.gray(x, y, position))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

func (v *Viewer) gray(x, y, z int) color.Gray16 {
	val := v.vol.At(x, y, z, v.channel)
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return color.Gray16{}
	}
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, val*v.scale)))}
}

// SaveSlice saves an extracted slice as a JPEG image.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along the specified
// axis into outputDir.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.vol.X
	case "y", "Y":
		maxPos = v.vol.Y
	case "z", "Z":
		maxPos = v.vol.Z
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
