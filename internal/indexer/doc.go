// Package indexer scans indexed folders and reports what it finds as
// library lifecycle events.
//
// Every pass over a root emits, in order:
//
//	Started
//	Progress("Checking folder snapshot...")
//	Progress("Scanning for image files...")
//	RecordRemove              (files that disappeared, if any)
//	RecordBatchUpsert ...     (new or changed files, INDEX_BATCH_SIZE at a time)
//	Progress("Checked N files...") every 50 files
//	CompletedSummary
//
// Folders are indexed flat: only image files directly inside the root are
// considered. When the folder snapshot (image count and summed modification
// time) matches the one saved by the previous pass, the scan is skipped and
// the pass completes with an all-unchanged summary.
//
// Records are built in parallel by a bounded worker pool. Each record gets
// its pixel dimensions, a cached thumbnail and any sidecar caption or JSON
// metadata. Hidden files (prefixed with '.') are excluded. When a
// [MemoryGate] is configured, each worker waits on it before decoding.
//
// The indexer operates in multiple modes:
//   - Initial index: every configured root on startup
//   - Periodic index: all known roots on a configurable interval
//   - Manual trigger: on-demand re-indexing via API
package indexer
