/*
Package filesystem wraps the filesystem calls made by the indexer and the
thumbnail generator with retry logic for NFS stale file handle errors.

Photo libraries often live on a NAS. When the server re-exports a share, open
handles go stale (ESTALE) for a short while; these helpers retry such errors
with exponential backoff and fail fast on everything else.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())

Defaults: 3 retries, 50ms initial backoff, 500ms cap.

Operation timings and retry counts are reported through an [Observer]
installed with SetObserver, labelled by the volume a path lives on as
resolved by a [VolumeResolver] ("library", "cache", "database").
*/
package filesystem
