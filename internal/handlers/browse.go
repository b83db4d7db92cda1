package handlers

import (
	"errors"
	"net/http"

	"local-gallery/internal/foldertree"
	"local-gallery/internal/layout"
	"local-gallery/internal/library"
	"local-gallery/internal/logging"
	"local-gallery/internal/media"
	"local-gallery/internal/pathset"
)

const (
	defaultCellSize = 200
	defaultGap      = 8
	defaultOverscan = 2
)

// GetTree returns the folder tree of every known root.
func (h *Handlers) GetTree(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"tree": foldertree.Build(h.cache.RootPaths()),
	})
}

// LayoutResponse describes a grid for a viewport and record count.
type LayoutResponse struct {
	Layout        layout.Layout `json:"layout"`
	RowHeight     float64       `json:"rowHeight"`
	Rows          int           `json:"rows"`
	ContentHeight float64       `json:"contentHeight"`
}

// GetLayout computes the grid for width, cell and gap. With count the
// response also carries the number of rows and the scrollable height.
func (h *Handlers) GetLayout(w http.ResponseWriter, r *http.Request) {
	l, err := layoutFromQuery(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	count, err := queryInt(r, "count", 0)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSONResponse(w, http.StatusOK, newLayoutResponse(l, count))
}

func newLayoutResponse(l layout.Layout, count int) LayoutResponse {
	rows := l.Rows(count)
	return LayoutResponse{
		Layout:        l,
		RowHeight:     l.RowHeight(),
		Rows:          rows,
		ContentHeight: float64(rows) * l.RowHeight(),
	}
}

// WindowItem is a visible cell together with the record drawn in it.
type WindowItem struct {
	layout.Cell
	Record library.FileRecord `json:"record"`
}

// WindowResponse lists the cells to render for a scroll position.
type WindowResponse struct {
	LayoutResponse
	Range layout.IndexRange `json:"range"`
	Total int               `json:"total"`
	Items []WindowItem      `json:"items"`
}

// GetWindow returns the records of a root that are visible, plus overscan
// rows, for a viewport scrolled to scrollTop.
func (h *Handlers) GetWindow(w http.ResponseWriter, r *http.Request) {
	root, ok := requireRoot(w, r)
	if !ok {
		return
	}
	l, err := layoutFromQuery(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	height, err := queryFloat(r, "height", 0)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	scrollTop, err := queryFloat(r, "scrollTop", 0)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	overscan, err := queryInt(r, "overscan", defaultOverscan)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.cache.IsRootKnown(root) {
		writeJSONError(w, "root not found", http.StatusNotFound)
		return
	}

	snap := h.cache.Snapshot(root)
	visible := layout.Rect{Y: scrollTop, Width: l.ViewportWidth, Height: height}
	cells := l.Window(visible, snap.Len(), overscan)

	resp := WindowResponse{
		LayoutResponse: newLayoutResponse(l, snap.Len()),
		Range:          layout.VisibleIndexRange(scrollTop, height, l.Columns, l.RowHeight(), overscan, snap.Len()),
		Total:          snap.Len(),
		Items:          make([]WindowItem, 0, len(cells)),
	}
	for _, c := range cells {
		resp.Items = append(resp.Items, WindowItem{Cell: c, Record: snap.At(c.Index)})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func layoutFromQuery(r *http.Request) (layout.Layout, error) {
	width, err := queryFloat(r, "width", 0)
	if err != nil {
		return layout.Layout{}, err
	}
	cell, err := queryFloat(r, "cell", defaultCellSize)
	if err != nil {
		return layout.Layout{}, err
	}
	gap, err := queryFloat(r, "gap", defaultGap)
	if err != nil {
		return layout.Layout{}, err
	}
	return layout.Compute(width, cell, gap), nil
}

// GetSidecar returns the caption and JSON metadata stored next to an
// indexed image.
func (h *Handlers) GetSidecar(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.requireRecord(w, r)
	if !ok {
		return
	}
	sc := media.ReadSidecar(rec.Path)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"path":     rec.Path,
		"caption":  sc.Caption,
		"metadata": sc.Metadata,
	})
}

// GetThumbnail serves the cached thumbnail of an indexed image, generating
// it on first request.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.requireRecord(w, r)
	if !ok {
		return
	}
	if !h.thumbGen.IsEnabled() {
		writeJSONError(w, "thumbnails are disabled", http.StatusNotFound)
		return
	}

	thumbPath, err := h.thumbGen.Generate(rec.Path)
	if err != nil {
		if errors.Is(err, media.ErrThumbnailsDisabled) {
			writeJSONError(w, "thumbnails are disabled", http.StatusNotFound)
			return
		}
		logging.Warn("Thumbnail for %s failed: %v", rec.Path, err)
		writeJSONError(w, "failed to generate thumbnail", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, thumbPath)
}

// requireRecord resolves the path query parameter to an indexed record.
// Only files the library knows about are served.
func (h *Handlers) requireRecord(w http.ResponseWriter, r *http.Request) (library.FileRecord, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "path parameter required", http.StatusBadRequest)
		return library.FileRecord{}, false
	}
	if _, err := pathset.Normalize(path); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return library.FileRecord{}, false
	}
	rec, ok := h.cache.Lookup(path)
	if !ok {
		writeJSONError(w, "file not found", http.StatusNotFound)
		return library.FileRecord{}, false
	}
	return rec, true
}
