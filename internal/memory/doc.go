// Package memory keeps the gallery server inside its container memory limit.
//
// Decoding images for dimensions and thumbnails is the largest source of
// heap growth. [ConfigureFromEnv] derives GOMEMLIMIT from the container
// limit, and a [Monitor] pauses record building while the heap is above a
// critical share of that limit:
//
//	memory.ConfigureFromEnv()
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	idx := indexer.New(events, cache, db, thumbs, indexer.Config{Memory: monitor})
//
// # Environment Variables
//
//   - GOMEMLIMIT: standard Go variable; when set it takes precedence.
//   - MEMORY_LIMIT: container limit in bytes, typically from the Kubernetes
//     Downward API (resourceFieldRef: limits.memory).
//   - MEMORY_RATIO: heap share of MEMORY_LIMIT, default 0.85.
//
// A paused Monitor resumes once usage falls below the high water mark, so
// short spikes do not flap between states.
package memory
