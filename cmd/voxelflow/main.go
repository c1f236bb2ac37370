package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"voxelflow/pkg/config"
	"voxelflow/pkg/engine"
	"voxelflow/pkg/visualization"
	"voxelflow/pkg/volio"
	"voxelflow/pkg/voxelfn"
)

func main() {
	inputPath := flag.String("input", "", "Input volume file (.vox)")
	maskPath := flag.String("mask", "", "Optional mask volume file (.vox)")
	op := flag.String("op", "sum", "Voxelwise operation: sum, peaks, maps, fit or project")
	matrixPath := flag.String("matrix", "", "Basis matrix YAML file (required for -op project)")
	outputPrefix := flag.String("output", "result", "Output file prefix; each result volume is saved as <prefix>_<name>.vox")
	configPath := flag.String("config", "voxelflow.yaml", "Configuration file")
	workers := flag.Int("workers", 0, "Number of parallel workers (0 = all available cores)")
	seed := flag.Uint64("seed", 42, "Seed for stochastic operations")
	saveSlices := flag.Bool("slices", false, "Save JPEG slice sequences of each result volume")
	slicesDir := flag.String("slices-dir", "", "Directory for extracted slices (default from config)")
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Processing.Workers = *workers
		case "seed":
			cfg.Processing.Seed = *seed
		case "slices":
			cfg.Output.SaveSlices = *saveSlices
		case "slices-dir":
			cfg.Output.SlicesDir = *slicesDir
		}
	})

	vol, err := volio.Load(*inputPath)
	if err != nil {
		log.Fatalf("Failed to load volume: %v", err)
	}
	fmt.Printf("Loaded volume %dx%dx%d with %d channels\n", vol.X, vol.Y, vol.Z, vol.C)

	opts := engine.Options{
		Workers: cfg.Processing.Workers,
		Seed:    cfg.Processing.Seed,
	}
	if *maskPath != "" {
		mask, err := volio.LoadMask(*maskPath)
		if err != nil {
			log.Fatalf("Failed to load mask: %v", err)
		}
		opts.Mask = mask
	}

	fn, shared, err := buildOperation(*op, *matrixPath, cfg, vol.C)
	if err != nil {
		log.Fatalf("Failed to set up operation %q: %v", *op, err)
	}

	fmt.Printf("Running %q with %d workers (0 = auto), seed %d...\n",
		*op, cfg.Processing.Workers, cfg.Processing.Seed)
	start := time.Now()

	result, err := engine.Run(vol, fn, shared, opts)
	if err != nil {
		var cfgErr *engine.ConfigError
		if errors.As(err, &cfgErr) {
			log.Fatalf("Invalid configuration: %v", err)
		}
		log.Fatalf("Processing failed: %v", err)
	}

	fmt.Printf("Processed %d voxels in %.2f seconds\n",
		result.ActiveVoxels, time.Since(start).Seconds())

	for _, name := range sortedKeys(result.Volumes) {
		out := fmt.Sprintf("%s_%s.vox", *outputPrefix, name)
		if err := volio.Save(result.Volumes[name], out); err != nil {
			log.Fatalf("Failed to save %s: %v", out, err)
		}
		fmt.Printf("Saved %s\n", out)
	}

	if len(result.Aggregates) > 0 {
		fmt.Println("Aggregates:")
		for _, name := range sortedKeys(result.Aggregates) {
			fmt.Printf("  %s: %g\n", name, result.Aggregates[name])
		}
	}

	if cfg.Output.SaveSlices {
		for _, name := range sortedKeys(result.Volumes) {
			viewer, err := visualization.NewViewer(result.Volumes[name], 0)
			if err != nil {
				log.Fatalf("Failed to create viewer for %s: %v", name, err)
			}
			dir := fmt.Sprintf("%s/%s", cfg.Output.SlicesDir, name)
			for _, axis := range []string{"x", "y", "z"} {
				if err := viewer.SaveSliceSequence(axis, fmt.Sprintf("%s/%s", dir, axis)); err != nil {
					log.Printf("Warning: failed to save %s-axis slices for %s: %v", axis, name, err)
				}
			}
			fmt.Printf("Saved slice sequences for %s to %s\n", name, dir)
		}
	}
}

// buildOperation constructs the voxel function and shared parameters for
// a named CLI operation.
func buildOperation(op, matrixPath string, cfg *config.Config, channels int) (engine.VoxelFunction, *engine.SharedParams, error) {
	switch op {
	case "sum":
		return voxelfn.NewChannelSum(), nil, nil

	case "peaks":
		return voxelfn.NewChannelPeaks(voxelfn.PeaksParams{
			NPeaks:            cfg.Peaks.NPeaks,
			RelativeThreshold: cfg.Peaks.RelativeThreshold,
			AbsoluteThreshold: cfg.Peaks.AbsoluteThreshold,
			Normalize:         cfg.Peaks.Normalize,
		}), nil, nil

	case "maps":
		shared := &engine.SharedParams{
			Floats: map[string]float64{"anisotropy_thr": cfg.Maps.AnisotropyThreshold},
		}
		return voxelfn.NewScalarMaps(), shared, nil

	case "fit":
		shared := &engine.SharedParams{
			Flags: map[string]bool{voxelfn.RefineFlag: cfg.Fit.Refine},
		}
		return voxelfn.NewExpDecayFit(cfg.Fit.RandomIters), shared, nil

	case "project":
		if matrixPath == "" {
			return nil, nil, fmt.Errorf("-matrix is required")
		}
		basis, err := loadMatrix(matrixPath)
		if err != nil {
			return nil, nil, err
		}
		rows, cols := basis.Dims()
		if rows != channels {
			return nil, nil, fmt.Errorf("matrix has %d rows, volume has %d channels", rows, channels)
		}
		shared := &engine.SharedParams{
			Matrices: map[string]*mat.Dense{voxelfn.BasisMatrixParam: basis},
		}
		return voxelfn.NewBasisProject(rows, cols), shared, nil

	default:
		return nil, nil, fmt.Errorf("unknown operation (must be sum, peaks, maps, fit or project)")
	}
}

// loadMatrix reads a dense matrix from a YAML file holding a list of
// equal-length rows.
func loadMatrix(path string) (*mat.Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix file: %w", err)
	}

	var rows [][]float64
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse matrix file: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("matrix file %s is empty", path)
	}

	cols := len(rows[0])
	flat := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("matrix row %d has %d values, want %d", i, len(row), cols)
		}
		flat = append(flat, row...)
	}
	return mat.NewDense(len(rows), cols, flat), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
