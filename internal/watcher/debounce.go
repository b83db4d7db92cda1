package watcher

import (
	"strings"
	"sync"
	"time"

	"local-gallery/internal/pathset"
)

// Debouncer collects paths and hands them over in one call once no new
// path has arrived for the configured delay.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	queued  map[string]struct{}
	onFire  func(paths []string)
	stopped bool
}

// NewDebouncer creates a Debouncer. A non-positive delay defaults to 200ms.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Debouncer{
		delay:  delay,
		queued: map[string]struct{}{},
	}
}

// OnFire sets the callback receiving the coalesced paths.
func (d *Debouncer) OnFire(fn func(paths []string)) {
	d.mu.Lock()
	d.onFire = fn
	d.mu.Unlock()
}

// Push queues path and restarts the delay.
func (d *Debouncer) Push(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.queued[path] = struct{}{}
	if d.timer != nil {
		_ = d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Pending returns the number of queued paths.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queued)
}

// Stop discards queued paths and ignores further pushes.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		_ = d.timer.Stop()
	}
	d.queued = map[string]struct{}{}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	queued := d.queued
	d.queued = map[string]struct{}{}
	fn := d.onFire
	d.mu.Unlock()

	if fn == nil || len(queued) == 0 {
		return
	}

	paths := make([]string, 0, len(queued))
	for p := range queued {
		paths = append(paths, p)
	}
	pathset.SortNatural(paths)
	fn(paths)
}
