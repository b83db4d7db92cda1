package handlers

import (
	"net/http"
	"runtime"
	"time"

	"local-gallery/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string   `json:"status"`
	Ready        bool     `json:"ready"`
	Version      string   `json:"version"`
	Uptime       string   `json:"uptime"`
	Indexing     bool     `json:"indexing"`
	ActiveRoots  []string `json:"activeRoots,omitempty"`
	LastIndexed  string   `json:"lastIndexed,omitempty"`
	LastError    string   `json:"lastError,omitempty"`
	FilesIndexed int64    `json:"filesIndexed"`

	// Library summary
	Roots        int `json:"roots"`
	SyncingRoots int `json:"syncingRoots"`
	Records      int `json:"records"`
	Watched      int `json:"watchedFolders"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	stats := h.cache.Stats()
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Roots:        stats.Roots,
		SyncingRoots: stats.Syncing,
		Records:      stats.Records,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if h.watcher != nil {
		response.Watched = len(h.watcher.Roots())
	}

	if h.indexer != nil {
		hs := h.indexer.GetHealthStatus()
		response.Ready = hs.Ready
		response.Uptime = hs.Uptime
		response.Indexing = hs.Indexing
		response.ActiveRoots = hs.ActiveRoots
		response.FilesIndexed = hs.FilesIndexed
		response.LastError = hs.LastError
		if !hs.LastIndexed.IsZero() {
			response.LastIndexed = hs.LastIndexed.Format(time.RFC3339)
		}
		switch {
		case !hs.Ready:
			response.Status = statusStarting
		case hs.LastError != "":
			response.Status = statusDegraded
		}
	}

	status := http.StatusOK
	if !response.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// HEAD requests get headers only
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 once the initial index pass has finished.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.indexer != nil && !h.indexer.IsReady() {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

// GetVersion reports the build the server was compiled from.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONResponse(w, http.StatusOK, startup.GetBuildInfo())
}
