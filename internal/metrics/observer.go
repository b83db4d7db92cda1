package metrics

import "local-gallery/internal/filesystem"

type filesystemObserver struct{}

// NewFilesystemObserver returns a filesystem.Observer backed by the
// gallery_filesystem_* metrics.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveOperation(volume, operation string, seconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(seconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (filesystemObserver) ObserveRetry(r filesystem.RetryReport) {
	op, vol := r.Operation, r.Volume
	FilesystemRetryDuration.WithLabelValues(op, vol).Observe(r.Seconds)
	if r.Stale > 0 {
		FilesystemStaleErrors.WithLabelValues(op, vol).Add(float64(r.Stale))
	}
	if r.Retries > 0 {
		FilesystemRetryAttempts.WithLabelValues(op, vol).Add(float64(r.Retries))
		if r.Succeeded {
			FilesystemRetrySuccess.WithLabelValues(op, vol).Inc()
		}
	}
	if r.Exhausted() {
		FilesystemRetryFailures.WithLabelValues(op, vol).Inc()
	}
}
