package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"syscall"
	"time"

	"local-gallery/internal/database"
	"local-gallery/internal/filesystem"
	"local-gallery/internal/handlers"
	"local-gallery/internal/indexer"
	"local-gallery/internal/library"
	"local-gallery/internal/logging"
	"local-gallery/internal/media"
	"local-gallery/internal/memory"
	"local-gallery/internal/metrics"
	"local-gallery/internal/middleware"
	"local-gallery/internal/startup"
	"local-gallery/internal/watcher"

	"github.com/gorilla/mux"
)

// eventBuffer is the capacity of the channel between producers (indexer,
// watcher) and the library cache.
const eventBuffer = 256

func main() {
	startTime := time.Now()

	// Configure GOMEMLIMIT before the library is loaded
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string][]string{
		"library":  config.Roots,
		"cache":    {config.CacheDir},
		"database": {config.DatabaseDir},
	}))

	// Initialize database and restore the library
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	cache := library.New(library.WithObserver(db))
	roots, records, err := db.LoadLibrary(context.Background(), cache)
	if err != nil {
		logging.Fatal("Failed to load library: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart), roots, records)

	// The cache consumes events from the indexer and watcher in order
	events := make(chan library.Event, eventBuffer)
	runCtx, stopRun := context.WithCancel(context.Background())
	cacheDone := make(chan struct{})
	go func() {
		defer close(cacheDone)
		if err := cache.Run(runCtx, events); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Library event loop stopped: %v", err)
		}
	}()

	thumbs := media.NewThumbnailGenerator(config.ThumbnailDir, config.ThumbnailSize, config.ThumbnailsEnabled)

	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	// Initialize indexer
	startup.LogIndexerInit(config.IndexInterval, len(config.Roots))
	idx := indexer.New(events, cache, db, thumbs, indexer.Config{
		BatchSize: config.IndexBatchSize,
		Workers:   config.IndexWorkers,
		Interval:  config.IndexInterval,
		Roots:     config.Roots,
		Memory:    memMonitor,
	})
	idx.Start()
	startup.LogIndexerStarted()

	// Watch configured and restored roots
	var fw *watcher.Watcher
	if config.WatchEnabled {
		fw, err = watcher.New(events, idx, config.WatchDebounce)
		if err != nil {
			logging.Error("Failed to start folder watcher: %v", err)
		} else {
			for _, root := range slices.Concat(config.Roots, cache.RootPaths()) {
				if err := fw.Watch(root); err != nil {
					logging.Warn("Cannot watch %s: %v", root, err)
				}
			}
		}
	}
	startup.LogWatcherInit(fw != nil, config.WatchDebounce)

	var collector *metrics.Collector
	if config.MetricsEnabled {
		collector = metrics.NewCollector(metrics.StatsFunc(func() metrics.Stats {
			s := cache.Stats()
			return metrics.Stats{Roots: s.Roots, SyncingRoots: s.Syncing, Records: s.Records}
		}), config.DatabasePath, time.Minute)
		collector.Start()
	}

	// Initialize handlers
	opts := handlers.Options{DB: db, Indexer: idx, Thumbnails: thumbs}
	if fw != nil {
		opts.Watcher = fw
	}
	h := handlers.New(cache, opts)

	// Setup router
	router := setupRouter(h, config.MetricsEnabled)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		handleShutdown(srv, shutdownDeps{
			indexer:   idx,
			memory:    memMonitor,
			watcher:   fw,
			collector: collector,
			stopCache: func() {
				stopRun()
				<-cacheDone
			},
			db: db,
		})
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("Server error: %v", err)
	}
	<-shutdownDone
}

func setupRouter(h *handlers.Handlers, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	// Event ingestion from external indexers
	api.HandleFunc("/events", h.PostEvents).Methods(http.MethodPost)

	// Roots
	api.HandleFunc("/roots", h.ListRoots).Methods(http.MethodGet)
	api.HandleFunc("/roots", h.ResetRoot).Methods(http.MethodDelete)
	api.HandleFunc("/roots/records", h.GetRootRecords).Methods(http.MethodGet)
	api.HandleFunc("/roots/index", h.IndexRoot).Methods(http.MethodPost)
	api.HandleFunc("/library", h.ResetLibrary).Methods(http.MethodDelete)

	// Browsing
	api.HandleFunc("/tree", h.GetTree).Methods(http.MethodGet)
	api.HandleFunc("/layout", h.GetLayout).Methods(http.MethodGet)
	api.HandleFunc("/window", h.GetWindow).Methods(http.MethodGet)
	api.HandleFunc("/sidecar", h.GetSidecar).Methods(http.MethodGet)
	api.HandleFunc("/thumbnail", h.GetThumbnail).Methods(http.MethodGet)

	// Library state
	api.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	api.HandleFunc("/state", h.PutState).Methods(http.MethodPut)

	return r
}

type shutdownDeps struct {
	indexer   *indexer.Indexer
	memory    *memory.Monitor
	watcher   *watcher.Watcher
	collector *metrics.Collector
	stopCache func()
	db        *database.Database
}

func handleShutdown(srv *http.Server, deps shutdownDeps) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if deps.watcher != nil {
		startup.LogShutdownStep("Stopping folder watcher")
		if err := deps.watcher.Close(); err != nil {
			logging.Warn("Watcher shutdown error: %v", err)
		}
		startup.LogShutdownStepComplete("Folder watcher stopped")
	}

	startup.LogShutdownStep("Stopping indexer")
	deps.indexer.Stop()
	deps.memory.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	if deps.collector != nil {
		deps.collector.Stop()
	}

	startup.LogShutdownStep("Stopping library event loop")
	deps.stopCache()
	startup.LogShutdownStepComplete("Library event loop stopped")

	startup.LogShutdownStep("Flushing database")
	if err := deps.db.Flush(ctx); err != nil {
		logging.Warn("Database flush error: %v", err)
	}
	if err := deps.db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}
