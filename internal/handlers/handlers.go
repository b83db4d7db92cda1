package handlers

import (
	"local-gallery/internal/database"
	"local-gallery/internal/indexer"
	"local-gallery/internal/library"
	"local-gallery/internal/media"
)

// Indexer is the part of the folder indexer the API drives.
type Indexer interface {
	TriggerIndex(root string) error
	IsIndexing(root string) bool
	IsReady() bool
	GetHealthStatus() indexer.HealthStatus
}

// Watcher is the part of the folder watcher the API drives.
type Watcher interface {
	Watch(root string) error
	Unwatch(root string) error
	Roots() []string
}

// Handlers serves the gallery API.
type Handlers struct {
	cache    *library.Cache
	db       *database.Database
	indexer  Indexer
	watcher  Watcher
	thumbGen *media.ThumbnailGenerator
}

// Options carries the optional collaborators of Handlers. A nil DB disables
// library state and persistence flushes; a nil Watcher disables folder
// watching; a nil Indexer rejects index requests.
type Options struct {
	DB         *database.Database
	Indexer    Indexer
	Watcher    Watcher
	Thumbnails *media.ThumbnailGenerator
}

// New creates Handlers reading from cache.
func New(cache *library.Cache, opts Options) *Handlers {
	return &Handlers{
		cache:    cache,
		db:       opts.DB,
		indexer:  opts.Indexer,
		watcher:  opts.Watcher,
		thumbGen: opts.Thumbnails,
	}
}
