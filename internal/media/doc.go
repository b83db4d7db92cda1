// Package media reads what the indexer needs from image files: pixel
// dimensions, cached JPEG thumbnails and sidecar files.
//
// Thumbnails are written to a flat cache directory keyed by an md5 of the
// normalized source path and the target size, so a file renamed only in
// case keeps its preview. A cached thumbnail is reused while it is newer
// than the source.
//
// Sidecars are looked up next to the image by stem: the first readable
// of stem.txt, stem.caption.txt and stem.md provides the caption, and
// stem.json provides free-form metadata.
package media
