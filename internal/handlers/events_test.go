package handlers

import (
	"net/http"
	"strings"
	"testing"

	"local-gallery/internal/library"
)

func TestPostEventsBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		applied int
		records int
	}{
		{
			name:    "single envelope",
			body:    `{"type":"file-indexed","root":"/photos","record":{"path":"/photos/a.jpg","size":1}}`,
			applied: 1,
			records: 1,
		},
		{
			name: "array",
			body: `[{"type":"indexing-started","root":"/photos"},
				{"type":"files-indexed-batch","root":"/photos","records":[{"path":"/photos/a.jpg","size":1},{"path":"/photos/b.jpg","size":2}]},
				{"type":"indexing-completed","root":"/photos","total":2,"upserted":2,"deleted":0,"unchanged":0}]`,
			applied: 3,
			records: 2,
		},
		{
			name: "newline delimited",
			body: `{"type":"indexing-started","root":"/photos"}
{"type":"file-indexed","root":"/photos","record":{"path":"/photos/a.jpg","size":1}}`,
			applied: 2,
			records: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := do(t, env.h.PostEvents, http.MethodPost, "/api/events", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			resp := decode[struct {
				Applied int           `json:"applied"`
				Results []EventResult `json:"results"`
			}](t, rec)
			if resp.Applied != tt.applied || len(resp.Results) != tt.applied {
				t.Errorf("applied = %d (%d results), want %d", resp.Applied, len(resp.Results), tt.applied)
			}
			if got := len(env.cache.RecordsForRoot("/photos")); got != tt.records {
				t.Errorf("records = %d, want %d", got, tt.records)
			}
		})
	}
}

func TestPostEventsReportsRejectedRecords(t *testing.T) {
	env := newTestEnv(t)
	body := `[{"type":"files-indexed-batch","root":"/photos","records":[{"path":"/photos/ok.jpg","size":1},{"path":"/photos/bad.jpg","size":-5}]},
		{"type":"file-indexed","root":"/photos","record":{"path":"/photos/later.jpg","size":3}}]`

	rec := do(t, env.h.PostEvents, http.MethodPost, "/api/events", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[struct {
		Results []EventResult `json:"results"`
	}](t, rec)

	first := resp.Results[0]
	if first.Kind != "batch_upsert" || first.Inserted != 1 || first.Skipped != 1 || first.Error == "" {
		t.Errorf("first result = %+v", first)
	}
	if second := resp.Results[1]; second.Error != "" || second.Inserted != 1 {
		t.Errorf("second result = %+v", second)
	}
	if got := len(env.cache.RecordsForRoot("/photos")); got != 2 {
		t.Errorf("records = %d, want 2", got)
	}
}

func TestPostEventsRejectsBadBodies(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"empty array":  "[]",
		"not json":     "photos",
		"unknown type": `{"type":"folder-renamed","root":"/photos"}`,
		"array member": `[{"type":"indexing-started","root":"/a"},{"type":"file-indexed","root":"/a"}]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := do(t, env.h.PostEvents, http.MethodPost, "/api/events", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if env.cache.Stats().Roots != 0 {
				t.Error("a rejected body changed the library")
			}
		})
	}
}

func TestDecodeEventBodyKeepsOrder(t *testing.T) {
	body := ` [ {"type":"indexing-started","root":"/a"}, {"type":"files-removed","root":"/a","paths":["/a/x.jpg"]} ] `
	events, err := decodeEventBody([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Kind() != "started" || events[1].Kind() != "remove" {
		t.Fatalf("events = %v", events)
	}
	if got := eventRoot(events[1]); got != "/a" {
		t.Errorf("root = %q", got)
	}
	if _, ok := events[1].(library.RecordRemove); !ok {
		t.Errorf("second event is %T", events[1])
	}
	if strings.TrimSpace(eventRoot(nil)) != "" {
		t.Error("nil event has a root")
	}
}
