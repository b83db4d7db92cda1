package metrics

import (
	"os"
	"sync/atomic"
	"time"

	"local-gallery/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	Roots        int
	SyncingRoots int
	Records      int
}

// StatsFunc adapts a function to StatsProvider.
type StatsFunc func() Stats

// GetStats calls f.
func (f StatsFunc) GetStats() Stats { return f() }

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
	stopped       chan struct{}
	started       atomic.Bool
}

// NewCollector creates a new metrics collector. dbPath may be empty to skip
// database file size collection.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
		stopped:       make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	if c.started.CompareAndSwap(false, true) {
		go c.collectLoop()
	}
}

// Stop stops the metrics collection and waits for the loop to exit
func (c *Collector) Stop() {
	select {
	case <-c.stopChan:
		return
	default:
		close(c.stopChan)
	}
	if c.started.Load() {
		<-c.stopped
	}
}

func (c *Collector) collectLoop() {
	defer close(c.stopped)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectDBSize()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	LibraryRoots.Set(float64(stats.Roots))
	LibraryRootsSyncing.Set(float64(stats.SyncingRoots))
	LibraryRecords.Set(float64(stats.Records))

	logging.Debug("Metrics collected: roots=%d, syncing=%d, records=%d",
		stats.Roots, stats.SyncingRoots, stats.Records)
}

func (c *Collector) collectDBSize() {
	if c.dbPath == "" {
		return
	}
	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		info, err := os.Stat(c.dbPath + suffix)
		if err != nil {
			DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}
