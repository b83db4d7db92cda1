package library

import (
	"fmt"
	"strings"
)

// Event is one lifecycle notification from the indexer. The set of events
// is closed: Started, Progress, RecordUpsert, RecordBatchUpsert,
// CompletedSummary and RecordRemove.
type Event interface {
	// Kind is a short, stable label used in logs and metrics.
	Kind() string
	isEvent()
}

// Started marks the beginning of an indexing pass over Root.
type Started struct {
	Root string
}

// Progress carries a human-readable status line for a pass in flight.
type Progress struct {
	Root    string
	Message string
}

// RecordUpsert adds or replaces a single record. When Root is empty the
// record belongs to the root named by its parent directory.
type RecordUpsert struct {
	Root   string
	Record FileRecord
}

// RecordBatchUpsert adds or replaces many records as one visible step.
type RecordBatchUpsert struct {
	Root    string
	Records []FileRecord
}

// Summary is the indexer's account of a finished pass.
type Summary struct {
	Total     int `json:"total"`
	Upserted  int `json:"upserted"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// CompletedSummary ends a pass over Root.
type CompletedSummary struct {
	Root string
	Summary
}

// RecordRemove drops files that no longer exist on disk.
type RecordRemove struct {
	Root  string
	Paths []string
}

func (Started) Kind() string           { return "started" }
func (Progress) Kind() string          { return "progress" }
func (RecordUpsert) Kind() string      { return "upsert" }
func (RecordBatchUpsert) Kind() string { return "batch_upsert" }
func (CompletedSummary) Kind() string  { return "completed" }
func (RecordRemove) Kind() string      { return "remove" }

func (Started) isEvent()           {}
func (Progress) isEvent()          {}
func (RecordUpsert) isEvent()      {}
func (RecordBatchUpsert) isEvent() {}
func (CompletedSummary) isEvent()  {}
func (RecordRemove) isEvent()      {}

func kindOf(ev Event) string {
	if ev == nil {
		return "nil"
	}
	return ev.Kind()
}

// SyncState is the per-root lifecycle state.
type SyncState int

const (
	// Idle means no pass is running for the root.
	Idle SyncState = iota
	// Syncing means a pass has started and not yet completed.
	Syncing
)

func (s SyncState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Syncing:
		return "syncing"
	default:
		return fmt.Sprintf("SyncState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SyncState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SyncState) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "idle":
		*s = Idle
	case "syncing":
		*s = Syncing
	default:
		return fmt.Errorf("unknown sync state %q", b)
	}
	return nil
}
