/*
Package workers sizes the goroutine pools used by the indexer and the
thumbnail generator.

Counts are derived from runtime.GOMAXPROCS(0) rather than runtime.NumCPU(),
so a container limited to 2 CPUs on a 64-core host gets 2-based pools:

	walkers := workers.ForIndexing(16)  // 2 per CPU, at most 16
	thumbs := workers.ForThumbnails(8)  // 1 per CPU, at most 8

INDEX_WORKERS and THUMBNAIL_WORKERS override the computed values; the limit
still applies.
*/
package workers
