package library

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"local-gallery/internal/logging"
	"local-gallery/internal/metrics"
	"local-gallery/internal/pathset"
)

// Observer is notified of every change the cache publishes. Callbacks run
// while the affected roots are still locked, so for any one root they arrive
// in publish order and a reset is never reported ahead of a change published
// before it. An observer may block to apply backpressure, which stalls
// writers of those roots, but must not call back into the cache.
type Observer interface {
	Applied(ev Event, out Outcome)
	Reset(root string)
}

// Change describes what one event did to one root.
type Change struct {
	Root     RootInfo
	Upserted []FileRecord
	Removed  []string
}

// Outcome summarizes the effect of a single Apply call.
type Outcome struct {
	Inserted  int
	Replaced  int
	Unchanged int
	Removed   int
	Skipped   int
	Changes   []Change
}

// RootInfo is the read model of an indexed root.
type RootInfo struct {
	Path         string    `json:"path"`
	Key          string    `json:"key"`
	State        SyncState `json:"state"`
	RecordCount  int       `json:"recordCount"`
	LastSummary  *Summary  `json:"lastSummary,omitempty"`
	Progress     string    `json:"progress,omitempty"`
	SyncingSince time.Time `json:"syncingSince,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Stats is a point-in-time count of the cache contents.
type Stats struct {
	Roots   int `json:"roots"`
	Syncing int `json:"syncing"`
	Records int `json:"records"`
}

// rootView is one published, immutable state of a root.
type rootView struct {
	display      string
	records      Snapshot
	state        SyncState
	summary      *Summary
	progress     string
	syncingSince time.Time
	updatedAt    time.Time
}

func (v *rootView) info(key pathset.Path) RootInfo {
	info := RootInfo{
		Path:         v.display,
		Key:          string(key),
		State:        v.state,
		RecordCount:  v.records.Len(),
		Progress:     v.progress,
		SyncingSince: v.syncingSince,
		UpdatedAt:    v.updatedAt,
	}
	if v.summary != nil {
		s := *v.summary
		info.LastSummary = &s
	}
	return info
}

type rootState struct {
	key pathset.Path

	mu      sync.Mutex // serializes writers of this root
	removed bool

	// indexMu pairs index with the published view for Lookup. Writers
	// hold mu first.
	indexMu sync.RWMutex
	index   map[pathset.Path]int

	view atomic.Pointer[rootView]
}

// Cache holds one record collection per indexed root.
type Cache struct {
	mu    sync.RWMutex
	roots map[pathset.Path]*rootState

	observers []Observer
	now       func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithObserver registers an observer for published changes.
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithClock replaces the time source used for root timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		roots: make(map[pathset.Path]*rootState),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run applies events from ch in order until ch is closed or ctx is done.
// Event errors are logged and never stop the loop.
func (c *Cache) Run(ctx context.Context, ch <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := c.Apply(ev); err != nil {
				logging.Warn("library: %s event: %v", kindOf(ev), err)
			}
		}
	}
}

// Apply folds one event into the cache. Records that cannot be stored are
// skipped and reported in the returned error; the remaining records of the
// event are still applied.
func (c *Cache) Apply(ev Event) (Outcome, error) {
	start := time.Now()
	kind := kindOf(ev)

	var (
		out Outcome
		err error
	)
	switch e := ev.(type) {
	case Started:
		out, err = c.transition(ev, e.Root, func(v *rootView, now time.Time) {
			v.state = Syncing
			v.syncingSince = now
			v.progress = ""
		})
	case Progress:
		out, err = c.transition(ev, e.Root, func(v *rootView, now time.Time) {
			if v.state != Syncing {
				v.state = Syncing
				v.syncingSince = now
			}
			v.progress = e.Message
		})
	case CompletedSummary:
		summary := e.Summary
		out, err = c.transition(ev, e.Root, func(v *rootView, _ time.Time) {
			v.state = Idle
			v.summary = &summary
			v.progress = ""
			v.syncingSince = time.Time{}
		})
	case RecordUpsert:
		out, err = c.upsert(ev, e.Root, []FileRecord{e.Record})
	case RecordBatchUpsert:
		out, err = c.upsert(ev, e.Root, e.Records)
	case RecordRemove:
		out, err = c.remove(ev, e.Root, e.Paths)
	default:
		return Outcome{}, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	metrics.LibraryEventsTotal.WithLabelValues(kind).Inc()
	metrics.LibraryApplyDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if out.Inserted > 0 {
		metrics.LibraryRecordChangesTotal.WithLabelValues("inserted").Add(float64(out.Inserted))
	}
	if out.Replaced > 0 {
		metrics.LibraryRecordChangesTotal.WithLabelValues("replaced").Add(float64(out.Replaced))
	}
	if out.Unchanged > 0 {
		metrics.LibraryRecordChangesTotal.WithLabelValues("unchanged").Add(float64(out.Unchanged))
	}
	if out.Removed > 0 {
		metrics.LibraryRecordChangesTotal.WithLabelValues("removed").Add(float64(out.Removed))
	}
	return out, err
}

// notify reports a published outcome. Callers hold the locks of every root
// in out.Changes.
func (c *Cache) notify(ev Event, out Outcome) {
	if len(out.Changes) == 0 {
		return
	}
	for _, o := range c.observers {
		o.Applied(ev, out)
	}
}

// acquire returns the locked state for key, creating the root if needed.
// A root removed by a concurrent reset is re-created.
func (c *Cache) acquire(key pathset.Path, display string) (rs *rootState, created bool) {
	for {
		c.mu.RLock()
		rs = c.roots[key]
		c.mu.RUnlock()

		if rs == nil {
			c.mu.Lock()
			rs = c.roots[key]
			if rs == nil {
				rs = &rootState{key: key, index: make(map[pathset.Path]int)}
				now := c.now()
				rs.view.Store(&rootView{
					display:      display,
					state:        Syncing,
					syncingSince: now,
					updatedAt:    now,
				})
				c.roots[key] = rs
				created = true
			}
			c.mu.Unlock()
		}

		rs.mu.Lock()
		if !rs.removed {
			return rs, created
		}
		rs.mu.Unlock()
		created = false
	}
}

// lookup returns the locked state for key or nil when the root is unknown.
func (c *Cache) lookup(key pathset.Path) *rootState {
	c.mu.RLock()
	rs := c.roots[key]
	c.mu.RUnlock()
	if rs == nil {
		return nil
	}
	rs.mu.Lock()
	if rs.removed {
		rs.mu.Unlock()
		return nil
	}
	return rs
}

func (c *Cache) transition(ev Event, root string, fn func(v *rootView, now time.Time)) (Outcome, error) {
	display, err := pathset.Clean(root)
	if err != nil {
		metrics.LibraryRecordsSkippedTotal.WithLabelValues("malformed_root").Inc()
		return Outcome{}, err
	}
	key := pathset.Path(toKey(display))

	rs, _ := c.acquire(key, display)
	defer rs.mu.Unlock()

	now := c.now()
	next := *rs.view.Load()
	fn(&next, now)
	next.updatedAt = now
	rs.view.Store(&next)

	out := Outcome{Changes: []Change{{Root: next.info(key)}}}
	c.notify(ev, out)
	return out, nil
}

type group struct {
	key     pathset.Path
	display string
	items   []prepared
	paths   []pathset.Path
}

// scope resolves the root every record belongs to. With an explicit root,
// records outside it are dropped.
func scope(root string) (key pathset.Path, display string, err error) {
	if root == "" {
		return "", "", nil
	}
	display, err = pathset.Clean(root)
	if err != nil {
		return "", "", err
	}
	return pathset.Path(toKey(display)), display, nil
}

func (c *Cache) upsert(ev Event, root string, records []FileRecord) (Outcome, error) {
	var out Outcome

	hint, hintDisplay, err := scope(root)
	if err != nil {
		out.Skipped = len(records)
		metrics.LibraryRecordsSkippedTotal.WithLabelValues("malformed_root").Add(float64(len(records)))
		return out, err
	}

	var errs []error
	groups := make(map[pathset.Path]*group)
	for _, r := range records {
		p, err := prepare(r)
		if err != nil {
			out.Skipped++
			errs = append(errs, err)
			metrics.LibraryRecordsSkippedTotal.WithLabelValues(skipReason(err)).Inc()
			continue
		}
		display := p.rootDir
		if hint != "" {
			if p.rootKey != hint {
				out.Skipped++
				metrics.LibraryRecordsSkippedTotal.WithLabelValues("out_of_scope").Inc()
				logging.Debug("library: ignoring %s, not part of root %s", r.Path, root)
				continue
			}
			display = hintDisplay
		}
		g := groups[p.rootKey]
		if g == nil {
			g = &group{key: p.rootKey, display: display}
			groups[p.rootKey] = g
		}
		g.items = append(g.items, p)
	}

	ordered := sortedGroups(groups)
	locked := make([]*rootState, len(ordered))
	for i, g := range ordered {
		rs, created := c.acquire(g.key, g.display)
		if created {
			logging.Debug("library: root %s created by record event", g.display)
		}
		locked[i] = rs
	}
	defer unlockAll(locked)

	now := c.now()
	for i, g := range ordered {
		rs := locked[i]
		cur := rs.view.Load()
		b := newBuilder(cur.records)

		rs.indexMu.Lock()
		var changed []FileRecord
		for _, p := range g.items {
			if pos, ok := rs.index[p.key]; ok {
				if sameRecord(b.at(pos), p.rec) {
					out.Unchanged++
					continue
				}
				b.set(pos, p.rec)
				out.Replaced++
			} else {
				rs.index[p.key] = b.add(p.rec)
				out.Inserted++
			}
			changed = append(changed, p.rec)
		}
		if len(changed) == 0 {
			rs.indexMu.Unlock()
			continue
		}

		next := *cur
		next.records = b.snapshot()
		next.updatedAt = now
		rs.view.Store(&next)
		rs.indexMu.Unlock()
		out.Changes = append(out.Changes, Change{Root: next.info(g.key), Upserted: changed})
	}

	c.notify(ev, out)
	return out, errors.Join(errs...)
}

func (c *Cache) remove(ev Event, root string, paths []string) (Outcome, error) {
	var out Outcome

	hint, _, err := scope(root)
	if err != nil {
		return out, err
	}

	var errs []error
	groups := make(map[pathset.Path]*group)
	for _, path := range paths {
		key, err := pathset.Normalize(path)
		if err != nil {
			out.Skipped++
			errs = append(errs, err)
			metrics.LibraryRecordsSkippedTotal.WithLabelValues("malformed_path").Inc()
			continue
		}
		rootKey := pathset.Path(pathset.Parent(string(key)))
		if hint != "" && rootKey != hint {
			out.Skipped++
			metrics.LibraryRecordsSkippedTotal.WithLabelValues("out_of_scope").Inc()
			logging.Debug("library: ignoring removal of %s, not part of root %s", path, root)
			continue
		}
		g := groups[rootKey]
		if g == nil {
			g = &group{key: rootKey}
			groups[rootKey] = g
		}
		g.paths = append(g.paths, key)
	}

	ordered := sortedGroups(groups)
	locked := make([]*rootState, 0, len(ordered))
	defer func() { unlockAll(locked) }()

	now := c.now()
	for _, g := range ordered {
		rs := c.lookup(g.key)
		if rs == nil {
			continue
		}
		locked = append(locked, rs)

		cur := rs.view.Load()
		drop := make(map[int]bool, len(g.paths))
		var removed []string
		for _, key := range g.paths {
			if pos, ok := rs.index[key]; ok && !drop[pos] {
				drop[pos] = true
				removed = append(removed, cur.records.At(pos).Path)
			}
		}
		if len(drop) == 0 {
			continue
		}

		positions := make([]int, 0, len(drop))
		for pos := range drop {
			positions = append(positions, pos)
		}
		sort.Ints(positions)
		rs.indexMu.Lock()
		for key, pos := range rs.index {
			if drop[pos] {
				delete(rs.index, key)
				continue
			}
			rs.index[key] = pos - sort.SearchInts(positions, pos)
		}

		next := *cur
		next.records = without(cur.records, drop)
		next.updatedAt = now
		rs.view.Store(&next)
		rs.indexMu.Unlock()

		out.Removed += len(removed)
		out.Changes = append(out.Changes, Change{Root: next.info(g.key), Removed: removed})
	}

	c.notify(ev, out)
	return out, errors.Join(errs...)
}

func sortedGroups(groups map[pathset.Path]*group) []*group {
	out := make([]*group, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *group) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	return out
}

func unlockAll(states []*rootState) {
	for i := len(states) - 1; i >= 0; i-- {
		states[i].mu.Unlock()
	}
}

func skipReason(err error) string {
	var malformed *MalformedPathError
	if errors.As(err, &malformed) {
		return "malformed_path"
	}
	return "invalid_record"
}

// ResetRoot forgets a root and all of its records. Resetting an unknown
// root is a no-op.
func (c *Cache) ResetRoot(path string) error {
	key, err := pathset.Normalize(path)
	if err != nil {
		return err
	}
	c.resetKey(key)
	return nil
}

func (c *Cache) resetKey(key pathset.Path) {
	rs := c.lookup(key)
	if rs == nil {
		return
	}
	defer rs.mu.Unlock()

	rs.removed = true
	c.mu.Lock()
	delete(c.roots, key)
	c.mu.Unlock()

	display := rs.view.Load().display
	rs.indexMu.Lock()
	rs.index = nil
	rs.view.Store(&rootView{display: display, state: Idle, updatedAt: c.now()})
	rs.indexMu.Unlock()

	metrics.LibraryResetsTotal.Inc()
	logging.Info("library: reset root %s", display)
	for _, o := range c.observers {
		o.Reset(display)
	}
}

// ResetAll forgets every root.
func (c *Cache) ResetAll() {
	c.mu.RLock()
	keys := make([]pathset.Path, 0, len(c.roots))
	for key := range c.roots {
		keys = append(keys, key)
	}
	c.mu.RUnlock()

	for _, key := range keys {
		c.resetKey(key)
	}
}

func (c *Cache) load(path string) (pathset.Path, *rootView) {
	key, err := pathset.Normalize(path)
	if err != nil {
		return "", nil
	}
	c.mu.RLock()
	rs := c.roots[key]
	c.mu.RUnlock()
	if rs == nil {
		return key, nil
	}
	return key, rs.view.Load()
}

// Snapshot returns the current immutable view of a root's records. Unknown
// roots yield an empty snapshot.
func (c *Cache) Snapshot(path string) Snapshot {
	if _, v := c.load(path); v != nil {
		return v.records
	}
	return Snapshot{}
}

// Lookup returns the record stored for path. A record always lives in the
// root of its parent folder, so this is one map lookup.
func (c *Cache) Lookup(path string) (FileRecord, bool) {
	key, err := pathset.Normalize(path)
	if err != nil {
		return FileRecord{}, false
	}
	c.mu.RLock()
	rs := c.roots[pathset.Path(pathset.Parent(string(key)))]
	c.mu.RUnlock()
	if rs == nil {
		return FileRecord{}, false
	}

	rs.indexMu.RLock()
	defer rs.indexMu.RUnlock()
	pos, ok := rs.index[key]
	if !ok {
		return FileRecord{}, false
	}
	return rs.view.Load().records.At(pos), true
}

// RecordsForRoot returns a copy of the root's records in insertion order.
func (c *Cache) RecordsForRoot(path string) []FileRecord {
	return c.Snapshot(path).All()
}

// IsRootKnown reports whether any event has referenced the root since the
// last reset.
func (c *Cache) IsRootKnown(path string) bool {
	_, v := c.load(path)
	return v != nil
}

// SyncStateOf returns the root's state; unknown roots are Idle.
func (c *Cache) SyncStateOf(path string) SyncState {
	if _, v := c.load(path); v != nil {
		return v.state
	}
	return Idle
}

// LastSummaryOf returns the summary of the root's last completed pass.
func (c *Cache) LastSummaryOf(path string) (Summary, bool) {
	if _, v := c.load(path); v != nil && v.summary != nil {
		return *v.summary, true
	}
	return Summary{}, false
}

// Root returns the read model of one root.
func (c *Cache) Root(path string) (RootInfo, error) {
	key, v := c.load(path)
	if v == nil {
		return RootInfo{}, fmt.Errorf("%w: %s", ErrUnknownRoot, path)
	}
	return v.info(key), nil
}

// Roots lists every known root in natural order of their display paths.
func (c *Cache) Roots() []RootInfo {
	c.mu.RLock()
	out := make([]RootInfo, 0, len(c.roots))
	for key, rs := range c.roots {
		out = append(out, rs.view.Load().info(key))
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b RootInfo) int {
		return pathset.NaturalCompare(a.Path, b.Path)
	})
	return out
}

// RootPaths lists the display paths of every known root.
func (c *Cache) RootPaths() []string {
	roots := c.Roots()
	out := make([]string, len(roots))
	for i, r := range roots {
		out[i] = r.Path
	}
	return out
}

// Stats counts roots and records.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Roots: len(c.roots)}
	for _, rs := range c.roots {
		v := rs.view.Load()
		s.Records += v.records.Len()
		if v.state == Syncing {
			s.Syncing++
		}
	}
	return s
}

func toKey(cleaned string) string {
	key, _ := pathset.Normalize(cleaned)
	return string(key)
}
