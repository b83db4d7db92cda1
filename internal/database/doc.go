// Package database persists the gallery library in SQLite.
//
// It stores:
//   - indexed roots with their last sync summary
//   - every root's records, in the order the library holds them
//   - folder snapshots used to skip unchanged folders on rescans
//   - small key/value settings such as the last selected folder
//
// A Database is registered as a library.Observer. Changes published by the
// cache are queued and committed by a background writer in batched
// transactions, so applying events never waits on disk. LoadLibrary replays
// the stored state into a fresh cache at startup.
//
// The database uses WAL mode for improved concurrent read performance
// and creates its schema on first open.
package database
