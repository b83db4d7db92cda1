// Package metrics provides Prometheus instrumentation for the gallery server.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "gallery_". Mount promhttp.Handler() to expose them.
//
// # Metric Categories
//
// ## Library
//
// Track the synchronization cache:
//   - LibraryEventsTotal / LibraryApplyDuration: events applied, by kind
//   - LibraryRecordChangesTotal: inserted, replaced, unchanged, removed records
//   - LibraryRecordsSkippedTotal: records dropped, by reason
//   - LibraryRoots, LibraryRootsSyncing, LibraryRecords: gauges set by the [Collector]
//
// ## Indexer
//
//   - IndexerRunsTotal by trigger (startup, schedule, manual, watch)
//   - IndexerFilesProcessed, IndexerFoldersSkipped, IndexerErrors
//   - IndexerEventsEmitted by event kind
//
// ## Database
//
//   - DBQueryTotal / DBQueryDuration by operation
//   - DBSizeBytes for the main, WAL and SHM files
//   - StoreQueueDepth, StoreBatchSize, StoreDroppedTotal for the async writer
//
// ## Memory
//
//   - MemoryUsageRatio, MemoryPaused, MemoryPausesTotal from the memory monitor
//
// ## HTTP, Thumbnail, Watcher and Filesystem
//
// Request counts and latency, thumbnail cache hits and generation time,
// fsnotify events and filesystem retry behaviour on network mounts.
//
// # Collector
//
// [Collector] periodically reads a [StatsProvider] and the database file
// sizes:
//
//	collector := metrics.NewCollector(statsProvider, dbPath, 1*time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Events applied per second by kind:
//
//	sum(rate(gallery_library_events_total[5m])) by (kind)
//
// Share of replayed records that changed nothing:
//
//	rate(gallery_library_record_changes_total{change="unchanged"}[1h]) /
//	sum(rate(gallery_library_record_changes_total[1h]))
package metrics
