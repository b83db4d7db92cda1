// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] first loads a .env file with godotenv (ENV_FILE overrides the
// location; variables already set in the environment win), then reads:
//
//   - DATABASE_DIR: directory holding gallery.db (default: ./data)
//   - CACHE_DIR: directory for generated thumbnails (default: ./cache)
//   - PORT: HTTP server port (default: 8080)
//   - ROOTS: comma-separated folders indexed at startup
//   - INDEX_INTERVAL: periodic rescan of known roots, 0 disables (default: 30m)
//   - INDEX_BATCH_SIZE: records per RecordBatchUpsert event (default: 10)
//   - INDEX_WORKERS: directory walker pool size (default: 2 per CPU)
//   - WATCH_ENABLED: watch indexed roots for changes (default: true)
//   - WATCH_DEBOUNCE: coalescing window for watcher events (default: 200ms)
//   - THUMBNAIL_SIZE: longest thumbnail edge in pixels (default: 300)
//   - METRICS_ENABLED: expose /metrics (default: true)
//   - LOG_HEALTH_CHECKS: log /health, /livez and /readyz requests (default: false)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//
// # Directory Setup
//
// The database directory must exist or be creatable and writable; startup
// fails otherwise. The thumbnail directory is optional: when it cannot be
// written, thumbnails are disabled and records carry no thumbnail path.
//
// # Startup Logging
//
// Startup is logged in sections (banner, system information, configuration,
// directory setup, HTTP routes, server started) so a container log shows at
// a glance how the server was configured.
package startup
