package filesystem

// RetryReport summarizes one call through the retry wrapper.
type RetryReport struct {
	Operation string
	Volume    string
	// Stale counts ESTALE results, Retries the sleeps between attempts.
	Stale     int
	Retries   int
	Succeeded bool
	Seconds   float64
}

// Exhausted reports whether the call still failed on a stale handle after
// every retry.
func (r RetryReport) Exhausted() bool {
	return !r.Succeeded && r.Stale > r.Retries
}

// Observer receives filesystem timings. The metrics package provides the
// Prometheus implementation.
type Observer interface {
	// ObserveOperation is called once per attempt.
	ObserveOperation(volume, operation string, seconds float64, err error)
	// ObserveRetry is called once per call, after the last attempt.
	ObserveRetry(report RetryReport)
}

var defaultObserver Observer

// SetObserver installs the package-level observer; nil disables it.
func SetObserver(o Observer) {
	defaultObserver = o
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string, float64, error) {}
func (nopObserver) ObserveRetry(RetryReport)                        {}

func observe() Observer {
	if defaultObserver == nil {
		return nopObserver{}
	}
	return defaultObserver
}
