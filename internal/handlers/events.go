package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"local-gallery/internal/library"
	"local-gallery/internal/logging"
)

const maxEventBody = 32 << 20

// EventResult reports what one submitted event did.
type EventResult struct {
	Kind      string `json:"kind"`
	Root      string `json:"root,omitempty"`
	Inserted  int    `json:"inserted,omitempty"`
	Replaced  int    `json:"replaced,omitempty"`
	Unchanged int    `json:"unchanged,omitempty"`
	Removed   int    `json:"removed,omitempty"`
	Skipped   int    `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PostEvents applies lifecycle events sent by an external indexer. The body
// is one event envelope, a JSON array of envelopes, or newline-delimited
// envelopes. Events apply in order; a rejected event does not stop the rest.
func (h *Handlers) PostEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	events, err := decodeEventBody(body)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(events) == 0 {
		writeJSONError(w, "no events in request body", http.StatusBadRequest)
		return
	}

	results := make([]EventResult, 0, len(events))
	for _, ev := range events {
		out, applyErr := h.cache.Apply(ev)
		res := EventResult{
			Kind:      ev.Kind(),
			Root:      eventRoot(ev),
			Inserted:  out.Inserted,
			Replaced:  out.Replaced,
			Unchanged: out.Unchanged,
			Removed:   out.Removed,
			Skipped:   out.Skipped,
		}
		if applyErr != nil {
			res.Error = applyErr.Error()
			logging.Debug("Rejected %s event: %v", ev.Kind(), applyErr)
		}
		results = append(results, res)
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"applied": len(results),
		"results": results,
	})
}

func decodeEventBody(body []byte) ([]library.Event, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return library.DecodeEvents(bytes.NewReader(body))
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	events := make([]library.Event, 0, len(raws))
	for i, raw := range raws {
		ev, err := library.DecodeEvent(raw)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func eventRoot(ev library.Event) string {
	switch e := ev.(type) {
	case library.Started:
		return e.Root
	case library.Progress:
		return e.Root
	case library.RecordUpsert:
		return e.Root
	case library.RecordBatchUpsert:
		return e.Root
	case library.CompletedSummary:
		return e.Root
	case library.RecordRemove:
		return e.Root
	}
	return ""
}
