package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"local-gallery/internal/library"
	"local-gallery/internal/logging"
	"local-gallery/internal/mediatypes"
	"local-gallery/internal/metrics"
	"local-gallery/internal/pathset"
)

// RecordBuilder builds the record of a file on disk.
type RecordBuilder interface {
	BuildRecord(path string) (library.FileRecord, error)
}

// Watcher turns filesystem notifications into library events.
type Watcher struct {
	fsw       *fsnotify.Watcher
	events    chan<- library.Event
	builder   RecordBuilder
	debouncer *Debouncer

	mu    sync.Mutex
	roots map[pathset.Path]string

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Watcher that sends events to events once changes have been
// quiet for debounce.
func New(events chan<- library.Event, builder RecordBuilder, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fsw:       fsw,
		events:    events,
		builder:   builder,
		debouncer: NewDebouncer(debounce),
		roots:     make(map[pathset.Path]string),
		ctx:       ctx,
		cancel:    cancel,
	}
	w.debouncer.OnFire(w.flush)

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Watch starts watching root. Watching a root twice is a no-op.
func (w *Watcher) Watch(root string) error {
	key, err := watchKey(root)
	if err != nil {
		return err
	}
	dir := filepath.Clean(root)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.roots[key]; ok {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		metrics.WatcherErrors.Inc()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.roots[key] = dir
	metrics.WatchedDirectories.Set(float64(len(w.roots)))
	logging.Debug("Watching %s", dir)
	return nil
}

// Unwatch stops watching root. Unknown roots are ignored.
func (w *Watcher) Unwatch(root string) error {
	key, err := watchKey(root)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	dir, ok := w.roots[key]
	if !ok {
		return nil
	}
	delete(w.roots, key)
	metrics.WatchedDirectories.Set(float64(len(w.roots)))
	if err := w.fsw.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return fmt.Errorf("unwatch %s: %w", dir, err)
	}
	logging.Debug("Stopped watching %s", dir)
	return nil
}

// watchKey keys root by its cleaned form, so "a/b/.." and "a" share a watch.
func watchKey(root string) (pathset.Path, error) {
	if _, err := pathset.Normalize(root); err != nil {
		return "", err
	}
	return pathset.Normalize(filepath.Clean(root))
}

// Roots returns the watched roots in natural order.
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	out := make([]string, 0, len(w.roots))
	for _, dir := range w.roots {
		out = append(out, dir)
	}
	w.mu.Unlock()
	pathset.SortNatural(out)
	return out
}

// Close stops watching everything. Queued changes are discarded.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.debouncer.Stop()
		w.cancel()
		err = w.fsw.Close()
		w.wg.Wait()
		metrics.WatchedDirectories.Set(0)
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			metrics.WatcherErrors.Inc()
			logging.Warn("File watcher error: %v", err)
		}
	}
}

func opLabel(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return "chmod"
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	label := opLabel(ev.Op)
	metrics.WatcherEventsTotal.WithLabelValues(label).Inc()
	if label == "chmod" {
		return
	}

	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !mediatypes.IsImagePath(name) {
		return
	}
	if _, ok := w.rootOf(ev.Name); !ok {
		return
	}
	logging.Debug("File watcher: %s %s", label, ev.Name)
	w.debouncer.Push(ev.Name)
}

// rootOf returns the watched root directly containing path.
func (w *Watcher) rootOf(path string) (string, bool) {
	key, err := pathset.Normalize(filepath.Dir(path))
	if err != nil {
		return "", false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	dir, ok := w.roots[key]
	return dir, ok
}

// flush turns a set of changed paths into per-root remove and upsert events.
func (w *Watcher) flush(paths []string) {
	type pending struct {
		removed []string
		records []library.FileRecord
	}
	byRoot := make(map[string]*pending)
	var order []string

	for _, path := range paths {
		root, ok := w.rootOf(path)
		if !ok {
			continue
		}
		p := byRoot[root]
		if p == nil {
			p = &pending{}
			byRoot[root] = p
			order = append(order, root)
		}

		rec, err := w.builder.BuildRecord(path)
		switch {
		case err == nil:
			p.records = append(p.records, rec)
		case errors.Is(err, fs.ErrNotExist) || isGone(path):
			p.removed = append(p.removed, path)
		default:
			metrics.WatcherErrors.Inc()
			logging.Warn("File watcher: cannot index %s: %v", path, err)
		}
	}

	for _, root := range order {
		p := byRoot[root]
		if len(p.removed) > 0 {
			if !w.send(library.RecordRemove{Root: root, Paths: p.removed}) {
				return
			}
		}
		if len(p.records) > 0 {
			if !w.send(library.RecordBatchUpsert{Root: root, Records: p.records}) {
				return
			}
		}
		logging.Debug("File watcher: %s: %d updated, %d removed", root, len(p.records), len(p.removed))
	}
}

func isGone(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}

func (w *Watcher) send(ev library.Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.ctx.Done():
		return false
	}
}
