// Package main runs the local gallery server.
//
// The server keeps an in-memory library of indexed image folders, fed by
// lifecycle events from its own indexer, its folder watcher and remote
// indexers posting to /api/events. Every change is persisted to SQLite so
// the library survives restarts.
//
// # Application Lifecycle
//
//  1. Memory configuration: GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
//  2. Configuration loading from the environment and an optional .env file
//  3. Database initialization and library restore
//  4. Component initialization:
//     - Library event loop consuming indexer and watcher events
//     - Memory monitor pausing image decoding under pressure
//     - Thumbnail generator (disabled when CACHE_DIR is not writable)
//     - Indexer: initial pass over ROOTS and known roots, then periodic rescans
//     - Folder watcher (WATCH_ENABLED)
//     - Metrics collector (METRICS_ENABLED)
//  5. HTTP server setup with access logging, request metrics and gzip
//  6. Graceful shutdown on SIGINT/SIGTERM, flushing pending database writes
//
// # Configuration
//
//	DATABASE_DIR      directory holding gallery.db
//	CACHE_DIR         directory holding thumbnails/
//	PORT              HTTP port (default 8080)
//	ROOTS             comma-separated folders indexed at startup
//	INDEX_INTERVAL    periodic rescan interval, 0 disables (default 30m)
//	INDEX_BATCH_SIZE  records per batch event (default 10)
//	INDEX_WORKERS     concurrent record builders
//	WATCH_ENABLED     watch indexed folders for changes (default true)
//	WATCH_DEBOUNCE    coalescing delay for watcher events (default 200ms)
//	THUMBNAIL_SIZE    thumbnail bounding box in pixels (default 300)
//	METRICS_ENABLED   expose /metrics (default true)
//	LOG_LEVEL         debug, info, warn or error
package main
