package media

import (
	"crypto/md5"
	"errors"
	"fmt"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"local-gallery/internal/filesystem"
	"local-gallery/internal/logging"
	"local-gallery/internal/metrics"
	"local-gallery/internal/pathset"
)

// ErrThumbnailsDisabled is returned by Generate when the generator was
// created without a usable cache directory.
var ErrThumbnailsDisabled = errors.New("thumbnails disabled")

const thumbnailQuality = 80

// ThumbnailGenerator writes JPEG previews into a cache directory.
type ThumbnailGenerator struct {
	cacheDir string
	size     int
	enabled  bool

	// keyed locks so two workers never encode the same preview at once
	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

// NewThumbnailGenerator creates a generator producing previews that fit in a
// size x size box.
func NewThumbnailGenerator(cacheDir string, size int, enabled bool) *ThumbnailGenerator {
	if enabled {
		logging.Debug("ThumbnailGenerator: enabled, cache dir: %s, size: %d", cacheDir, size)
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			logging.Warn("ThumbnailGenerator: failed to create cache dir: %v", err)
			enabled = false
		}
	} else {
		logging.Debug("ThumbnailGenerator: disabled")
	}
	return &ThumbnailGenerator{
		cacheDir: cacheDir,
		size:     size,
		enabled:  enabled,
		inflight: make(map[string]*sync.Mutex),
	}
}

// IsEnabled reports whether thumbnails are generated.
func (t *ThumbnailGenerator) IsEnabled() bool {
	return t != nil && t.enabled
}

// Size returns the bounding box edge in pixels.
func (t *ThumbnailGenerator) Size() int {
	return t.size
}

// CachePath returns where the thumbnail for srcPath is stored.
func (t *ThumbnailGenerator) CachePath(srcPath string) (string, error) {
	key, err := pathset.Normalize(srcPath)
	if err != nil {
		return "", err
	}
	hash := md5.Sum([]byte(fmt.Sprintf("%s|%d", key, t.size)))
	return filepath.Join(t.cacheDir, fmt.Sprintf("%x.jpg", hash)), nil
}

func (t *ThumbnailGenerator) lockFor(cachePath string) func() {
	t.mu.Lock()
	m, ok := t.inflight[cachePath]
	if !ok {
		m = &sync.Mutex{}
		t.inflight[cachePath] = m
	}
	t.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Generate returns the path of an up-to-date thumbnail for srcPath,
// creating it when missing or older than the source.
func (t *ThumbnailGenerator) Generate(srcPath string) (string, error) {
	if !t.IsEnabled() {
		return "", ErrThumbnailsDisabled
	}

	srcInfo, err := filesystem.StatWithRetry(srcPath, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("file not accessible: %w", err)
	}

	cachePath, err := t.CachePath(srcPath)
	if err != nil {
		return "", err
	}

	if fresh(cachePath, srcInfo.ModTime()) {
		metrics.ThumbnailCacheHits.Inc()
		return cachePath, nil
	}

	unlock := t.lockFor(cachePath)
	defer unlock()

	if fresh(cachePath, srcInfo.ModTime()) {
		metrics.ThumbnailCacheHits.Inc()
		return cachePath, nil
	}
	metrics.ThumbnailCacheMisses.Inc()

	start := time.Now()
	logging.Debug("Thumbnail generating: %s", srcPath)

	img, err := LoadImageConstrained(srcPath, MaxImageDimension, MaxImagePixels)
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_decode").Inc()
		return "", fmt.Errorf("thumbnail generation failed: %w", err)
	}

	thumb := imaging.Fit(img, t.size, t.size, imaging.Lanczos)

	tmp, err := os.CreateTemp(t.cacheDir, ".thumb-*")
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("create temp thumbnail: %w", err)
	}
	tmpName := tmp.Name()

	if err := jpeg.Encode(tmp, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_encode").Inc()
		return "", errors.Join(fmt.Errorf("failed to encode thumbnail: %w", err), tmp.Close(), os.Remove(tmpName))
	}
	if err := tmp.Close(); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
		return "", errors.Join(err, os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, cachePath); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
		return "", errors.Join(fmt.Errorf("store thumbnail: %w", err), os.Remove(tmpName))
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()
	metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	logging.Debug("Thumbnail cached: %s -> %s", srcPath, cachePath)
	return cachePath, nil
}

func fresh(cachePath string, srcModTime time.Time) bool {
	info, err := os.Stat(cachePath)
	return err == nil && !info.ModTime().Before(srcModTime)
}

// RemoveForPaths deletes the cached thumbnails of the given source files and
// returns how many were removed.
func (t *ThumbnailGenerator) RemoveForPaths(paths []string) int {
	if !t.IsEnabled() {
		return 0
	}
	removed := 0
	for _, p := range paths {
		cachePath, err := t.CachePath(p)
		if err != nil {
			continue
		}
		switch err := os.Remove(cachePath); {
		case err == nil:
			removed++
		case !errors.Is(err, fs.ErrNotExist):
			logging.Warn("Failed to remove thumbnail %s: %v", cachePath, err)
		}
	}
	if removed > 0 {
		logging.Debug("Removed %d thumbnails", removed)
	}
	return removed
}

// RemoveAll clears the thumbnail cache directory.
func (t *ThumbnailGenerator) RemoveAll() (int, error) {
	if !t.IsEnabled() {
		return 0, nil
	}
	entries, err := os.ReadDir(t.cacheDir)
	if err != nil {
		return 0, fmt.Errorf("read thumbnail cache: %w", err)
	}
	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		if err := os.Remove(filepath.Join(t.cacheDir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	logging.Info("Cleared thumbnail cache: %d files removed", removed)
	return removed, errors.Join(errs...)
}

// UpdateCacheMetrics publishes the size and count of the cache directory.
func (t *ThumbnailGenerator) UpdateCacheMetrics() {
	if !t.IsEnabled() {
		return
	}
	entries, err := os.ReadDir(t.cacheDir)
	if err != nil {
		logging.Debug("Thumbnail cache metrics: %v", err)
		return
	}
	var count, size int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		size += info.Size()
	}
	metrics.ThumbnailCacheCount.Set(float64(count))
	metrics.ThumbnailCacheSize.Set(float64(size))
}
