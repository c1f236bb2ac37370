package engine

import (
	"fmt"
)

// ConfigError reports a contract violation detected before any work
// starts: a mask/volume dimension mismatch, an input the voxel function
// cannot accept, or a missing required shared parameter. Calls failing
// with a ConfigError have produced no partial results.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine config: %s: %v", e.Reason, e.Err)
	}
	return "engine config: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// WorkerCrashError reports an unrecoverable failure inside a worker, as
// opposed to a per-voxel compute failure (which the voxel function
// converts to a sentinel output). It is fatal to the whole call; no
// partial result volumes are returned.
type WorkerCrashError struct {
	ChunkID int
	Cause   error
}

func (e *WorkerCrashError) Error() string {
	return fmt.Sprintf("worker crashed on chunk %d: %v", e.ChunkID, e.Cause)
}

func (e *WorkerCrashError) Unwrap() error { return e.Cause }
