package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"local-gallery/internal/logging"
	"local-gallery/internal/pathset"
)

// recordNamespace seeds the name-based UUIDs used as record identifiers.
var recordNamespace = uuid.MustParse("8d4f3c2e-6a1b-5c7d-9e0f-1a2b3c4d5e6f")

// Dimensions is the pixel size of an image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FileRecord is an immutable snapshot of one indexed image file. Records
// handed out by the cache share their slices and pointers with the stored
// copy and must be treated as read-only.
type FileRecord struct {
	ID            string          `json:"id"`
	Path          string          `json:"path"`
	Name          string          `json:"name"`
	Size          int64           `json:"size"`
	CreatedAt     time.Time       `json:"createdAt"`
	ModifiedAt    time.Time       `json:"modifiedAt"`
	FileType      string          `json:"fileType"`
	Dimensions    *Dimensions     `json:"dimensions,omitempty"`
	ThumbnailPath string          `json:"thumbnailPath,omitempty"`
	Tags          []string        `json:"tags"`
	Rating        *int            `json:"rating,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// HasThumbnail reports whether a preview has been generated for the file.
func (r FileRecord) HasThumbnail() bool {
	return r.ThumbnailPath != ""
}

// RecordID returns the stable identifier for a file path. Paths that differ
// only in case or separators share an identifier.
func RecordID(path string) (string, error) {
	key, err := pathset.Normalize(path)
	if err != nil {
		return "", err
	}
	return idFor(key), nil
}

func idFor(key pathset.Path) string {
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}

// prepared is a validated record together with its lookup keys.
type prepared struct {
	rec     FileRecord
	key     pathset.Path
	rootKey pathset.Path
	rootDir string // cleaned parent directory, original case
}

// prepare validates rec and returns the form that is stored. The stored copy
// owns its pointers and slices so later changes by the caller cannot leak in.
func prepare(rec FileRecord) (prepared, error) {
	cleaned, err := pathset.Clean(rec.Path)
	if err != nil {
		return prepared{}, err
	}
	key := pathset.Path(strings.ToLower(cleaned))
	if rec.Size < 0 {
		return prepared{}, fmt.Errorf("%w: negative size %d for %s", ErrInvalidRecord, rec.Size, rec.Path)
	}

	out := rec
	out.ID = idFor(key)
	if out.Name == "" {
		out.Name = pathset.Base(cleaned)
	}
	if rec.Dimensions != nil {
		if rec.Dimensions.Width <= 0 || rec.Dimensions.Height <= 0 {
			logging.Warn("library: dropping invalid dimensions %dx%d for %s",
				rec.Dimensions.Width, rec.Dimensions.Height, rec.Path)
			out.Dimensions = nil
		} else {
			d := *rec.Dimensions
			out.Dimensions = &d
		}
	}
	if rec.Rating != nil {
		if *rec.Rating < 1 || *rec.Rating > 5 {
			logging.Warn("library: dropping out-of-range rating %d for %s", *rec.Rating, rec.Path)
			out.Rating = nil
		} else {
			r := *rec.Rating
			out.Rating = &r
		}
	}
	out.Tags = normalizeTags(rec.Tags)
	if len(rec.Metadata) > 0 {
		out.Metadata = bytes.Clone(rec.Metadata)
	} else {
		out.Metadata = nil
	}

	return prepared{
		rec:     out,
		key:     key,
		rootKey: pathset.Path(pathset.Parent(string(key))),
		rootDir: pathset.Parent(cleaned),
	}, nil
}

// normalizeTags gives tags set semantics: trimmed, de-duplicated, sorted.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// sameRecord reports whether two prepared records are indistinguishable.
func sameRecord(a, b FileRecord) bool {
	return a.ID == b.ID &&
		a.Path == b.Path &&
		a.Name == b.Name &&
		a.Size == b.Size &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		a.ModifiedAt.Equal(b.ModifiedAt) &&
		a.FileType == b.FileType &&
		sameDimensions(a.Dimensions, b.Dimensions) &&
		a.ThumbnailPath == b.ThumbnailPath &&
		slices.Equal(a.Tags, b.Tags) &&
		sameRating(a.Rating, b.Rating) &&
		bytes.Equal(a.Metadata, b.Metadata)
}

func sameDimensions(a, b *Dimensions) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameRating(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
