package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Environment variables that override the computed worker counts.
const (
	IndexWorkersEnv     = "INDEX_WORKERS"
	ThumbnailWorkersEnv = "THUMBNAIL_WORKERS"
)

// Count returns the number of workers for a task type. It respects container
// CPU limits via GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// A positive integer in the environment variable named by overrideEnv wins
// over the computed value. limit caps the result; use 0 for no limit.
func Count(overrideEnv string, multiplier float64, limit int) int {
	if overrideEnv != "" {
		if override := os.Getenv(overrideEnv); override != "" {
			if count, err := strconv.Atoi(override); err == nil && count > 0 {
				if limit > 0 && count > limit {
					return limit
				}
				return count
			}
		}
	}

	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForIndexing returns the directory walker pool size. Walking is dominated by
// stat and readdir calls, so it scales at 2 workers per CPU.
func ForIndexing(limit int) int {
	return Count(IndexWorkersEnv, 2.0, limit)
}

// ForThumbnails returns the thumbnail pool size (1 worker per CPU).
func ForThumbnails(limit int) int {
	return Count(ThumbnailWorkersEnv, 1.0, limit)
}
