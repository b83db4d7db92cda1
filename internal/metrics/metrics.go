package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Library (synchronization cache) metrics
var (
	LibraryEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_library_events_total",
			Help: "Total number of lifecycle events applied to the library cache",
		},
		[]string{"kind"},
	)

	LibraryApplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_library_apply_duration_seconds",
			Help:    "Time spent applying one lifecycle event",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"kind"},
	)

	LibraryRecordChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_library_record_changes_total",
			Help: "Records inserted, replaced, removed or found unchanged",
		},
		[]string{"change"},
	)

	LibraryRecordsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_library_records_skipped_total",
			Help: "Records ignored by the library cache by reason",
		},
		[]string{"reason"}, // "malformed_path", "malformed_root", "invalid_record", "out_of_scope"
	)

	LibraryResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_library_resets_total",
			Help: "Total number of root resets",
		},
	)

	LibraryRoots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_library_roots",
			Help: "Number of indexed roots known to the cache",
		},
	)

	LibraryRootsSyncing = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_library_roots_syncing",
			Help: "Number of roots with an indexing pass in flight",
		},
	)

	LibraryRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_library_records",
			Help: "Number of file records held by the cache",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gallery_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	StoreQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_store_queue_depth",
			Help: "Library changes waiting to be persisted",
		},
	)

	StoreBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_store_batch_size",
			Help:    "Number of library changes committed per transaction",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	StoreDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_store_dropped_total",
			Help: "Library changes that could not be persisted",
		},
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_indexer_runs_total",
			Help: "Total number of indexer runs",
		},
		[]string{"trigger"}, // "startup", "schedule", "manual", "watch"
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_indexer_last_run_timestamp",
			Help: "Timestamp of the last indexer run",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_indexer_last_run_duration_seconds",
			Help: "Duration of the last indexer run in seconds",
		},
	)

	IndexerFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_indexer_files_processed_total",
			Help: "Total number of files processed by the indexer",
		},
	)

	IndexerFoldersSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_indexer_folders_skipped_total",
			Help: "Folders whose snapshot matched and were not rescanned",
		},
	)

	IndexerEventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_indexer_events_emitted_total",
			Help: "Lifecycle events emitted by the indexer",
		},
		[]string{"kind"},
	)

	IndexerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_indexer_errors_total",
			Help: "Total number of indexer errors",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_indexer_running",
			Help: "Whether the indexer is currently running (1 = running, 0 = idle)",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_memory_usage_ratio",
			Help: "Go heap allocation as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_memory_paused",
			Help: "Whether record building is paused for memory pressure (1 = paused)",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_memory_pauses_total",
			Help: "Number of times record building was paused for memory pressure",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	ThumbnailCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_thumbnail_cache_size_bytes",
			Help: "Total size of the thumbnail cache in bytes",
		},
	)

	ThumbnailCacheCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_thumbnail_cache_count",
			Help: "Number of thumbnails in the cache",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration by volume and operation",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_filesystem_retry_attempts_total",
			Help: "Retries of filesystem operations after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_filesystem_stale_errors_total",
			Help: "Stale file handle errors seen by filesystem operations",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retried filesystem operations",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gallery_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
