package handlers

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"local-gallery/internal/indexer"
	"local-gallery/internal/library"
	"local-gallery/internal/media"
)

type fakeIndexer struct {
	mu        sync.Mutex
	triggered []string
	indexing  map[string]bool
	ready     bool
	health    indexer.HealthStatus
	err       error
}

func (f *fakeIndexer) TriggerIndex(root string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.triggered = append(f.triggered, root)
	return nil
}

func (f *fakeIndexer) IsIndexing(root string) bool { return f.indexing[root] }
func (f *fakeIndexer) IsReady() bool               { return f.ready }
func (f *fakeIndexer) GetHealthStatus() indexer.HealthStatus {
	hs := f.health
	hs.Ready = f.ready
	return hs
}

type fakeWatcher struct {
	mu    sync.Mutex
	roots []string
}

func (f *fakeWatcher) Watch(root string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.roots, root) {
		f.roots = append(f.roots, root)
	}
	return nil
}

func (f *fakeWatcher) Unwatch(root string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roots = slices.DeleteFunc(f.roots, func(r string) bool { return r == root })
	return nil
}

func (f *fakeWatcher) Roots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.roots)
}

type testEnv struct {
	h       *Handlers
	cache   *library.Cache
	idx     *fakeIndexer
	watcher *fakeWatcher
	thumbs  *media.ThumbnailGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		cache:   library.New(),
		idx:     &fakeIndexer{ready: true, indexing: map[string]bool{}},
		watcher: &fakeWatcher{},
		thumbs:  media.NewThumbnailGenerator(t.TempDir(), 64, true),
	}
	env.h = New(env.cache, Options{
		Indexer:    env.idx,
		Watcher:    env.watcher,
		Thumbnails: env.thumbs,
	})
	return env
}

// seed adds count records named img1.jpg..imgN.jpg under root.
func (env *testEnv) seed(t *testing.T, root string, count int) []library.FileRecord {
	t.Helper()
	records := make([]library.FileRecord, count)
	for i := range records {
		records[i] = library.FileRecord{
			Path:       filepath.Join(root, fmt.Sprintf("img%d.jpg", i+1)),
			Size:       int64(100 + i),
			ModifiedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	for _, ev := range []library.Event{
		library.Started{Root: root},
		library.RecordBatchUpsert{Root: root, Records: records},
		library.CompletedSummary{Root: root, Summary: library.Summary{Total: count, Upserted: count}},
	} {
		if _, err := env.cache.Apply(ev); err != nil {
			t.Fatalf("apply %s: %v", ev.Kind(), err)
		}
	}
	return records
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func do(t *testing.T, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func q(path string) string {
	return url.QueryEscape(path)
}
