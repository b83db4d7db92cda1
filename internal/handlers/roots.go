package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"local-gallery/internal/database"
	"local-gallery/internal/filesystem"
	"local-gallery/internal/indexer"
	"local-gallery/internal/library"
	"local-gallery/internal/logging"
	"local-gallery/internal/pathset"
)

const (
	defaultPageSize = 200
	maxPageSize     = 5000
)

// RecordsPage is one page of a root's records.
type RecordsPage struct {
	Root    library.RootInfo     `json:"root"`
	Offset  int                  `json:"offset"`
	Limit   int                  `json:"limit"`
	Total   int                  `json:"total"`
	Records []library.FileRecord `json:"records"`
}

// ListRoots returns every known root with its sync state.
func (h *Handlers) ListRoots(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"roots": h.cache.Roots(),
		"stats": h.cache.Stats(),
	})
}

// GetRootRecords returns a page of one root's records in display order.
func (h *Handlers) GetRootRecords(w http.ResponseWriter, r *http.Request) {
	root, ok := requireRoot(w, r)
	if !ok {
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit = min(limit, maxPageSize)

	info, err := h.cache.Root(root)
	if err != nil {
		writeJSONError(w, "root not found", http.StatusNotFound)
		return
	}

	snap := h.cache.Snapshot(root)
	writeJSONResponse(w, http.StatusOK, RecordsPage{
		Root:    info,
		Offset:  offset,
		Limit:   limit,
		Total:   snap.Len(),
		Records: snap.Range(offset, offset+limit),
	})
}

// IndexRoot starts an indexing pass over a folder, begins watching it and
// remembers it as the last selected folder.
func (h *Handlers) IndexRoot(w http.ResponseWriter, r *http.Request) {
	root, ok := requireRoot(w, r)
	if !ok {
		return
	}
	if h.indexer == nil {
		writeJSONError(w, "indexing is not available", http.StatusServiceUnavailable)
		return
	}
	root, err := filepath.Abs(root)
	if err != nil {
		writeJSONError(w, "invalid root path", http.StatusBadRequest)
		return
	}

	info, err := filesystem.StatWithRetry(root, filesystem.DefaultRetryConfig())
	if err != nil || !info.IsDir() {
		writeJSONError(w, "directory does not exist", http.StatusBadRequest)
		return
	}

	if err := h.indexer.TriggerIndex(root); err != nil {
		if errors.Is(err, indexer.ErrAlreadyIndexing) {
			writeJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.watcher != nil {
		if err := h.watcher.Watch(root); err != nil {
			logging.Warn("Failed to watch %s: %v", root, err)
		}
	}
	if h.db != nil {
		if err := h.db.SetSetting(r.Context(), database.SettingLastSelectedFolder, displayPath(root)); err != nil {
			logging.Warn("Failed to save last selected folder: %v", err)
		}
	}

	writeJSONResponse(w, http.StatusAccepted, map[string]string{
		"status": "indexing",
		"root":   displayPath(root),
	})
}

// ResetRoot forgets one root: its records, summary, snapshot, thumbnails
// and watch.
func (h *Handlers) ResetRoot(w http.ResponseWriter, r *http.Request) {
	root, ok := requireRoot(w, r)
	if !ok {
		return
	}
	if !h.cache.IsRootKnown(root) {
		writeJSONError(w, "root not found", http.StatusNotFound)
		return
	}
	if h.indexer != nil && h.indexer.IsIndexing(root) {
		writeJSONError(w, "root is being indexed", http.StatusConflict)
		return
	}

	records := h.cache.RecordsForRoot(root)
	if err := h.cache.ResetRoot(root); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	paths := make([]string, len(records))
	for i, rec := range records {
		paths[i] = rec.Path
	}
	removed := h.thumbGen.RemoveForPaths(paths)

	if h.watcher != nil {
		if err := h.watcher.Unwatch(root); err != nil {
			logging.Warn("Failed to stop watching %s: %v", root, err)
		}
	}
	if !h.flush(w, r) {
		return
	}

	logging.Info("Reset root %s (%d records, %d thumbnails)", displayPath(root), len(records), removed)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":            "reset",
		"root":              displayPath(root),
		"removedRecords":    len(records),
		"removedThumbnails": removed,
	})
}

// ResetLibrary forgets every root and clears the thumbnail cache.
func (h *Handlers) ResetLibrary(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats()
	h.cache.ResetAll()

	removed, err := h.thumbGen.RemoveAll()
	if err != nil {
		logging.Warn("Failed to clear some thumbnails: %v", err)
	}
	if h.watcher != nil {
		for _, root := range h.watcher.Roots() {
			if err := h.watcher.Unwatch(root); err != nil {
				logging.Warn("Failed to stop watching %s: %v", root, err)
			}
		}
	}
	if h.db != nil {
		if err := h.db.SetSetting(r.Context(), database.SettingLastSelectedFolder, ""); err != nil {
			logging.Warn("Failed to clear last selected folder: %v", err)
		}
	}
	if !h.flush(w, r) {
		return
	}

	logging.Info("Library reset (%d roots, %d records, %d thumbnails)", stats.Roots, stats.Records, removed)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":            "reset",
		"removedRoots":      stats.Roots,
		"removedRecords":    stats.Records,
		"removedThumbnails": removed,
	})
}

// flush waits until queued library changes are on disk. It writes an error
// response and returns false when that fails.
func (h *Handlers) flush(w http.ResponseWriter, r *http.Request) bool {
	if h.db == nil {
		return true
	}
	if err := h.db.Flush(r.Context()); err != nil {
		logging.Error("Failed to persist library changes: %v", err)
		writeJSONError(w, "failed to persist library changes", http.StatusInternalServerError)
		return false
	}
	return true
}

// requireRoot reads the root query parameter and rejects malformed paths.
func requireRoot(w http.ResponseWriter, r *http.Request) (string, bool) {
	root := r.URL.Query().Get("root")
	if root == "" {
		writeJSONError(w, "root parameter required", http.StatusBadRequest)
		return "", false
	}
	if _, err := pathset.Normalize(root); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return root, true
}

func displayPath(path string) string {
	cleaned, err := pathset.Clean(path)
	if err != nil {
		return path
	}
	return cleaned
}
