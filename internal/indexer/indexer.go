package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_snapshot_store.go -package=mocks local-gallery/internal/indexer SnapshotStore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"local-gallery/internal/database"
	"local-gallery/internal/library"
	"local-gallery/internal/logging"
	"local-gallery/internal/media"
	"local-gallery/internal/metrics"
	"local-gallery/internal/pathset"
)

const (
	// DefaultBatchSize is the number of records per RecordBatchUpsert.
	DefaultBatchSize = 10

	// progressEvery is how many files are checked between progress events.
	progressEvery = 50
)

// ErrAlreadyIndexing is returned when a pass for the same root is running.
var ErrAlreadyIndexing = errors.New("root is already being indexed")

// SnapshotStore persists folder snapshots between passes.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, root string) (database.FolderSnapshot, bool, error)
	SaveSnapshot(ctx context.Context, root string, snap database.FolderSnapshot) error
}

// RecordSource is the indexer's view of what the library already holds.
type RecordSource interface {
	RecordsForRoot(path string) []library.FileRecord
	IsRootKnown(path string) bool
	RootPaths() []string
}

// MemoryGate holds back record building under memory pressure.
type MemoryGate interface {
	Wait(ctx context.Context) error
}

// Config configures an Indexer.
type Config struct {
	// BatchSize is the number of records per batch event (0 = DefaultBatchSize).
	BatchSize int
	// Workers bounds concurrent record building (0 = 1).
	Workers int
	// Interval between periodic rescans of every known root (0 disables).
	Interval time.Duration
	// Roots are indexed when Start is called, in addition to known roots.
	Roots []string
	// Memory, when set, is waited on before each record is built.
	Memory MemoryGate
}

// Indexer turns folder scans into library events.
type Indexer struct {
	events chan<- library.Event
	source RecordSource
	store  SnapshotStore
	thumbs *media.ThumbnailGenerator
	memory MemoryGate

	batchSize int
	workers   int
	interval  time.Duration
	roots     []string

	runMu   sync.Mutex
	running map[pathset.Path]string

	// Progress tracking
	filesIndexed atomic.Int64
	startTime    time.Time

	stateMu              sync.Mutex
	lastIndexTime        time.Time
	lastError            error
	initialIndexComplete bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Indexer sending events to events. store and thumbs may be
// nil, which disables snapshot skipping and thumbnail generation.
func New(events chan<- library.Event, source RecordSource, store SnapshotStore, thumbs *media.ThumbnailGenerator, cfg Config) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		events:    events,
		source:    source,
		store:     store,
		thumbs:    thumbs,
		memory:    cfg.Memory,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		interval:  cfg.Interval,
		roots:     cfg.Roots,
		running:   make(map[pathset.Path]string),
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start indexes the configured and known roots in the background and then
// rescans them every Interval.
func (idx *Indexer) Start() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()

		logging.Info("Starting initial index in background...")
		idx.indexAll(idx.ctx, "startup")
		idx.stateMu.Lock()
		idx.initialIndexComplete = true
		idx.stateMu.Unlock()

		if idx.interval <= 0 {
			logging.Info("Periodic re-indexing disabled")
			return
		}

		ticker := time.NewTicker(idx.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				idx.indexAll(idx.ctx, "schedule")
			case <-idx.ctx.Done():
				logging.Info("Periodic indexing stopped")
				return
			}
		}
	}()
}

// Stop cancels running passes and waits for background work to finish.
func (idx *Indexer) Stop() {
	idx.cancel()
	idx.wg.Wait()
}

// TriggerIndex starts a pass over root in the background.
func (idx *Indexer) TriggerIndex(root string) error {
	root, err := resolveRoot(root)
	if err != nil {
		return err
	}
	if idx.IsIndexing(root) {
		return ErrAlreadyIndexing
	}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		if _, err := idx.run(idx.ctx, root, "manual"); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Index of %s failed: %v", root, err)
		}
	}()
	return nil
}

// IndexFolder runs one synchronous pass over root and returns its summary.
func (idx *Indexer) IndexFolder(ctx context.Context, root string) (library.Summary, error) {
	return idx.run(ctx, root, "manual")
}

// IsIndexing reports whether a pass over root is running.
func (idx *Indexer) IsIndexing(root string) bool {
	key, err := pathset.Normalize(root)
	if err != nil {
		return false
	}
	idx.runMu.Lock()
	defer idx.runMu.Unlock()
	_, ok := idx.running[key]
	return ok
}

func (idx *Indexer) indexAll(ctx context.Context, trigger string) {
	candidates := append(slices.Clone(idx.roots), idx.source.RootPaths()...)
	roots := make([]string, 0, len(candidates))
	seen := make(map[pathset.Path]bool)
	for _, r := range candidates {
		key, err := pathset.Normalize(r)
		if err != nil || seen[key] {
			continue
		}
		seen[key] = true
		roots = append(roots, r)
	}

	for _, root := range roots {
		if ctx.Err() != nil {
			return
		}
		if _, err := idx.run(ctx, root, trigger); err != nil && !errors.Is(err, ErrAlreadyIndexing) {
			logging.Error("Index of %s failed: %v", root, err)
		}
	}
}

// resolveRoot makes root absolute and resolves "." and ".." so the pass,
// its batches and its records all share one root path.
func resolveRoot(root string) (string, error) {
	if _, err := pathset.Normalize(root); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", root, err)
	}
	return pathset.Clean(abs)
}

func (idx *Indexer) run(ctx context.Context, root, trigger string) (library.Summary, error) {
	display, err := resolveRoot(root)
	if err != nil {
		return library.Summary{}, err
	}
	key, err := pathset.Normalize(display)
	if err != nil {
		return library.Summary{}, err
	}

	idx.runMu.Lock()
	if _, busy := idx.running[key]; busy {
		idx.runMu.Unlock()
		logging.Info("Index of %s already in progress, skipping...", display)
		return library.Summary{}, ErrAlreadyIndexing
	}
	idx.running[key] = display
	metrics.IndexerIsRunning.Set(float64(len(idx.running)))
	idx.runMu.Unlock()

	defer func() {
		idx.runMu.Lock()
		delete(idx.running, key)
		metrics.IndexerIsRunning.Set(float64(len(idx.running)))
		idx.runMu.Unlock()
	}()

	metrics.IndexerRunsTotal.WithLabelValues(trigger).Inc()
	start := time.Now()

	summary, err := idx.indexFolder(ctx, display)

	idx.stateMu.Lock()
	idx.lastIndexTime = time.Now()
	idx.lastError = err
	idx.stateMu.Unlock()

	if err != nil {
		metrics.IndexerErrors.Inc()
		return summary, err
	}

	duration := time.Since(start)
	metrics.IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.IndexerLastRunDuration.Set(duration.Seconds())
	logging.Info("Indexed %s in %v: %d files, %d upserted, %d deleted, %d unchanged",
		display, duration.Round(time.Millisecond), summary.Total, summary.Upserted, summary.Deleted, summary.Unchanged)
	return summary, nil
}

func (idx *Indexer) emit(ctx context.Context, ev library.Event) error {
	select {
	case idx.events <- ev:
		metrics.IndexerEventsEmitted.WithLabelValues(ev.Kind()).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (idx *Indexer) progress(ctx context.Context, root, message string) error {
	return idx.emit(ctx, library.Progress{Root: root, Message: message})
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready        bool      `json:"ready"`
	Indexing     bool      `json:"indexing"`
	ActiveRoots  []string  `json:"activeRoots,omitempty"`
	StartTime    time.Time `json:"startTime"`
	Uptime       string    `json:"uptime"`
	LastIndexed  time.Time `json:"lastIndexed,omitzero"`
	LastError    string    `json:"lastError,omitempty"`
	FilesIndexed int64     `json:"filesIndexed"`
}

// IsReady reports whether the initial pass over every root has finished.
func (idx *Indexer) IsReady() bool {
	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()
	return idx.initialIndexComplete
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	idx.runMu.Lock()
	active := make([]string, 0, len(idx.running))
	for _, display := range idx.running {
		active = append(active, display)
	}
	idx.runMu.Unlock()
	pathset.SortNatural(active)

	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()

	status := HealthStatus{
		Ready:        idx.initialIndexComplete,
		Indexing:     len(active) > 0,
		ActiveRoots:  active,
		StartTime:    idx.startTime,
		Uptime:       time.Since(idx.startTime).Round(time.Second).String(),
		LastIndexed:  idx.lastIndexTime,
		FilesIndexed: idx.filesIndexed.Load(),
	}
	if idx.lastError != nil {
		status.LastError = fmt.Sprint(idx.lastError)
	}
	return status
}
