// Package watcher keeps indexed folders current between indexer passes.
//
// Each watched root is observed non-recursively with fsnotify. Events for
// supported image files are coalesced by a Debouncer; when it fires, files
// that still exist are rebuilt and sent as one RecordBatchUpsert per root,
// and files that vanished are sent as one RecordRemove per root.
package watcher
