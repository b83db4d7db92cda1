package library

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Wire names of the lifecycle events.
const (
	TypeStarted   = "indexing-started"
	TypeProgress  = "indexing-progress"
	TypeUpsert    = "file-indexed"
	TypeBatch     = "files-indexed-batch"
	TypeCompleted = "indexing-completed"
	TypeRemove    = "files-removed"
)

type envelope struct {
	Type    string       `json:"type"`
	Root    string       `json:"root,omitempty"`
	Message string       `json:"message,omitempty"`
	Record  *FileRecord  `json:"record,omitempty"`
	Records []FileRecord `json:"records,omitempty"`
	Paths   []string     `json:"paths,omitempty"`
	*Summary
}

// EncodeEvent renders ev as a JSON object tagged with its wire name.
func EncodeEvent(ev Event) ([]byte, error) {
	var env envelope
	switch e := ev.(type) {
	case Started:
		env = envelope{Type: TypeStarted, Root: e.Root}
	case Progress:
		env = envelope{Type: TypeProgress, Root: e.Root, Message: e.Message}
	case RecordUpsert:
		rec := e.Record
		env = envelope{Type: TypeUpsert, Root: e.Root, Record: &rec}
	case RecordBatchUpsert:
		env = envelope{Type: TypeBatch, Root: e.Root, Records: e.Records}
	case CompletedSummary:
		s := e.Summary
		env = envelope{Type: TypeCompleted, Root: e.Root, Summary: &s}
	case RecordRemove:
		env = envelope{Type: TypeRemove, Root: e.Root, Paths: e.Paths}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	return json.Marshal(env)
}

// DecodeEvent parses one JSON event produced by EncodeEvent or by an
// external indexer speaking the same format.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return env.event()
}

func (env envelope) event() (Event, error) {
	switch env.Type {
	case TypeStarted:
		return Started{Root: env.Root}, nil
	case TypeProgress:
		return Progress{Root: env.Root, Message: env.Message}, nil
	case TypeUpsert:
		if env.Record == nil {
			return nil, fmt.Errorf("decode event: %s without record", env.Type)
		}
		return RecordUpsert{Root: env.Root, Record: *env.Record}, nil
	case TypeBatch:
		return RecordBatchUpsert{Root: env.Root, Records: env.Records}, nil
	case TypeCompleted:
		ev := CompletedSummary{Root: env.Root}
		if env.Summary != nil {
			ev.Summary = *env.Summary
		}
		return ev, nil
	case TypeRemove:
		return RecordRemove{Root: env.Root, Paths: env.Paths}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

// DecodeEvents reads a stream of concatenated or newline-delimited JSON
// events. Decoding stops at the first malformed value.
func DecodeEvents(r io.Reader) ([]Event, error) {
	dec := json.NewDecoder(r)
	var events []Event
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, fmt.Errorf("decode event %d: %w", len(events), err)
		}
		ev, err := DecodeEvent(bytes.TrimSpace(raw))
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}
