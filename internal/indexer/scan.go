package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"local-gallery/internal/database"
	"local-gallery/internal/filesystem"
	"local-gallery/internal/library"
	"local-gallery/internal/logging"
	"local-gallery/internal/media"
	"local-gallery/internal/mediatypes"
	"local-gallery/internal/metrics"
	"local-gallery/internal/pathset"
)

// scannedFile is an image found directly inside a root.
type scannedFile struct {
	path string
	info fs.FileInfo
}

// scanFolder lists the supported image files directly inside root in
// natural name order.
func scanFolder(root string) ([]scannedFile, error) {
	entries, err := filesystem.ReadDirWithRetry(root, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}

	files := make([]scannedFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || entry.IsDir() || !mediatypes.IsImagePath(name) {
			continue
		}
		path := filepath.Join(root, name)

		info, err := entry.Info()
		if err == nil && info.Mode()&fs.ModeSymlink != 0 {
			info, err = filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
		}
		if err != nil {
			logging.Debug("Skipping %s: %v", path, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, scannedFile{path: path, info: info})
	}

	slices.SortFunc(files, func(a, b scannedFile) int {
		return pathset.NaturalCompare(a.info.Name(), b.info.Name())
	})
	return files, nil
}

// snapshotOf summarizes a scan for the unchanged-folder check.
func snapshotOf(files []scannedFile) database.FolderSnapshot {
	snap := database.FolderSnapshot{FileCount: len(files)}
	for _, f := range files {
		snap.TotalMtime += f.info.ModTime().Unix()
	}
	return snap
}

// unchanged reports whether prev still describes the file on disk.
func unchanged(prev library.FileRecord, info fs.FileInfo) bool {
	return prev.Size == info.Size() && prev.ModifiedAt.Unix() == info.ModTime().Unix()
}

// indexFolder performs one pass over root and emits its events. Once
// Started has been sent, the pass always ends with CompletedSummary so the
// root does not stay in the syncing state.
func (idx *Indexer) indexFolder(ctx context.Context, root string) (summary library.Summary, err error) {
	info, err := filesystem.StatWithRetry(root, filesystem.DefaultRetryConfig())
	if err != nil {
		return summary, fmt.Errorf("directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return summary, fmt.Errorf("%s is not a directory", root)
	}

	if err := idx.emit(ctx, library.Started{Root: root}); err != nil {
		return summary, err
	}
	defer func() {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// nobody is listening any more
			return
		}
		if err != nil {
			_ = idx.progress(ctx, root, "Indexing failed: "+err.Error())
		}
		if emitErr := idx.emit(ctx, library.CompletedSummary{Root: root, Summary: summary}); emitErr != nil && err == nil {
			err = emitErr
		}
	}()

	if err := idx.progress(ctx, root, "Checking folder snapshot..."); err != nil {
		return summary, err
	}
	files, err := scanFolder(root)
	if err != nil {
		return summary, err
	}
	snap := snapshotOf(files)
	summary.Total = len(files)

	if idx.store != nil && idx.source.IsRootKnown(root) {
		last, ok, err := idx.store.GetSnapshot(ctx, root)
		switch {
		case err != nil:
			logging.Warn("Could not read folder snapshot for %s: %v", root, err)
		case ok && last.Matches(snap):
			logging.Debug("Folder %s unchanged since last scan, skipping", root)
			metrics.IndexerFoldersSkipped.Inc()
			summary.Unchanged = len(files)
			return summary, nil
		}
	}

	if err := idx.progress(ctx, root, "Scanning for image files..."); err != nil {
		return summary, err
	}

	existing := make(map[pathset.Path]library.FileRecord)
	for _, rec := range idx.source.RecordsForRoot(root) {
		if key, err := pathset.Normalize(rec.Path); err == nil {
			existing[key] = rec
		}
	}

	present := make(map[pathset.Path]bool, len(files))
	for _, f := range files {
		if key, err := pathset.Normalize(f.path); err == nil {
			present[key] = true
		}
	}

	var gone []string
	for key, rec := range existing {
		if !present[key] {
			gone = append(gone, rec.Path)
		}
	}
	if len(gone) > 0 {
		pathset.SortNatural(gone)
		if err := idx.emit(ctx, library.RecordRemove{Root: root, Paths: gone}); err != nil {
			return summary, err
		}
		if idx.thumbs != nil {
			idx.thumbs.RemoveForPaths(gone)
		}
		summary.Deleted = len(gone)
	}

	pending := make([]scannedFile, 0, idx.batchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		records, err := idx.buildBatch(ctx, pending)
		pending = pending[:0]
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		summary.Upserted += len(records)
		return idx.emit(ctx, library.RecordBatchUpsert{Root: root, Records: records})
	}

	for i, f := range files {
		key, _ := pathset.Normalize(f.path)
		if prev, ok := existing[key]; ok && unchanged(prev, f.info) {
			summary.Unchanged++
		} else {
			pending = append(pending, f)
			if len(pending) >= idx.batchSize {
				if err := flush(); err != nil {
					return summary, err
				}
			}
		}

		if checked := i + 1; checked%progressEvery == 0 {
			if err := idx.progress(ctx, root, fmt.Sprintf("Checked %d files...", checked)); err != nil {
				return summary, err
			}
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}

	if idx.store != nil {
		if err := idx.store.SaveSnapshot(ctx, root, snap); err != nil {
			logging.Warn("Could not save folder snapshot for %s: %v", root, err)
		}
	}
	return summary, nil
}

// buildBatch builds records for files in parallel, keeping their order.
// Files that cannot be read are logged and left out.
func (idx *Indexer) buildBatch(ctx context.Context, files []scannedFile) ([]library.FileRecord, error) {
	records := make([]library.FileRecord, len(files))
	built := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if idx.memory != nil {
				if err := idx.memory.Wait(gctx); err != nil {
					return err
				}
			}
			rec, err := idx.buildRecord(f.path, f.info)
			if err != nil {
				logging.Warn("Failed to index %s: %v", f.path, err)
				metrics.IndexerErrors.Inc()
				return nil
			}
			records[i] = rec
			built[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := records[:0]
	for i, rec := range records {
		if built[i] {
			out = append(out, rec)
		}
	}
	idx.filesIndexed.Add(int64(len(out)))
	metrics.IndexerFilesProcessed.Add(float64(len(out)))
	return out, nil
}

// BuildRecord stats path and builds its record.
func (idx *Indexer) BuildRecord(path string) (library.FileRecord, error) {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return library.FileRecord{}, err
	}
	if !info.Mode().IsRegular() {
		return library.FileRecord{}, fmt.Errorf("%s is not a regular file", path)
	}
	return idx.buildRecord(path, info)
}

func (idx *Indexer) buildRecord(path string, info fs.FileInfo) (library.FileRecord, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !mediatypes.IsImage(ext) {
		return library.FileRecord{}, fmt.Errorf("unsupported file type %q", ext)
	}

	rec := library.FileRecord{
		Path: path,
		Name: info.Name(),
		Size: info.Size(),
		// no portable birth time; the modification time stands in
		CreatedAt:  info.ModTime().UTC(),
		ModifiedAt: info.ModTime().UTC(),
		FileType:   strings.TrimPrefix(ext, "."),
	}

	if dims, err := media.GetImageDimensions(path); err == nil {
		rec.Dimensions = &library.Dimensions{Width: dims.Width, Height: dims.Height}
	} else {
		logging.Debug("No dimensions for %s: %v", path, err)
	}

	if idx.thumbs.IsEnabled() {
		if thumb, err := idx.thumbs.Generate(path); err == nil {
			rec.ThumbnailPath = thumb
		} else {
			logging.Debug("No thumbnail for %s: %v", path, err)
		}
	}

	if sc := media.ReadSidecar(path); !sc.Empty() {
		data, err := json.Marshal(sc)
		if err != nil {
			return library.FileRecord{}, err
		}
		rec.Metadata = data
	}
	return rec, nil
}
