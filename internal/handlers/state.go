package handlers

import (
	"encoding/json"
	"net/http"

	"local-gallery/internal/database"
	"local-gallery/internal/logging"
	"local-gallery/internal/pathset"
)

// LibraryState is what a client needs to restore its previous session.
type LibraryState struct {
	LastSelectedFolder *string  `json:"lastSelectedFolder"`
	IndexedFolders     []string `json:"indexedFolders"`
}

// GetState returns the last selected folder and the indexed folders.
func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	state := LibraryState{IndexedFolders: h.cache.RootPaths()}
	if h.db != nil {
		value, ok, err := h.db.GetSetting(r.Context(), database.SettingLastSelectedFolder)
		if err != nil {
			logging.Error("Failed to read library state: %v", err)
			writeJSONError(w, "failed to read library state", http.StatusInternalServerError)
			return
		}
		if ok {
			state.LastSelectedFolder = &value
		}
	}
	writeJSONResponse(w, http.StatusOK, state)
}

// UpdateStateRequest changes the remembered folder. A missing field leaves
// it unchanged; an empty string clears it.
type UpdateStateRequest struct {
	LastSelectedFolder *string `json:"lastSelectedFolder"`
}

// PutState updates the remembered folder.
func (h *Handlers) PutState(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSONError(w, "library state is not available", http.StatusServiceUnavailable)
		return
	}

	var req UpdateStateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.LastSelectedFolder == nil {
		writeJSONStatus(w, "unchanged")
		return
	}

	value := *req.LastSelectedFolder
	if value != "" {
		cleaned, err := pathset.Clean(value)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		value = cleaned
	}
	if err := h.db.SetSetting(r.Context(), database.SettingLastSelectedFolder, value); err != nil {
		logging.Error("Failed to save library state: %v", err)
		writeJSONError(w, "failed to save library state", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "updated")
}
