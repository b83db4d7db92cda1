package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	// --- Library event kinds ---
	for _, kind := range []string{"started", "progress", "upsert", "batch_upsert", "completed", "remove"} {
		LibraryEventsTotal.WithLabelValues(kind)
		LibraryApplyDuration.WithLabelValues(kind)
		IndexerEventsEmitted.WithLabelValues(kind)
	}
	for _, change := range []string{"inserted", "replaced", "unchanged", "removed"} {
		LibraryRecordChangesTotal.WithLabelValues(change)
	}
	for _, reason := range []string{"malformed_path", "malformed_root", "invalid_record", "out_of_scope"} {
		LibraryRecordsSkippedTotal.WithLabelValues(reason)
	}

	// --- Indexer triggers ---
	for _, trigger := range []string{"startup", "schedule", "manual", "watch"} {
		IndexerRunsTotal.WithLabelValues(trigger)
	}

	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"library", "cache", "database", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"read", "write", "stat", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open", "readdir"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, status := range []string{"success", "error", "error_decode", "error_encode"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"initialize_schema", "load_library", "commit_changes", "reset_root",
		"get_snapshot", "save_snapshot", "get_setting", "set_setting"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, ev := range []string{"create", "write", "remove", "rename", "chmod"} {
		WatcherEventsTotal.WithLabelValues(ev)
	}
}
