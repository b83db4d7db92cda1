package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeResolver(t *testing.T) {
	vr := NewVolumeResolver(map[string][]string{
		"library":  {"/photos", "/mnt/nas/pictures"},
		"cache":    {"/photos/.cache"},
		"database": {"/var/lib/gallery", ""},
	})

	tests := []struct {
		path string
		want string
	}{
		{"/photos/2024/a.jpg", "library"},
		{"/photos", "library"},
		{"/mnt/nas/pictures/x.png", "library"},
		{"/photos/.cache/thumb.jpg", "cache"},
		{"/var/lib/gallery/gallery.db", "database"},
		{"/photosx/a.jpg", "unknown"},
		{"/elsewhere", "unknown"},
	}
	for _, tt := range tests {
		if got := vr.Resolve(tt.path); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	var nilResolver *VolumeResolver
	if got := nilResolver.Resolve("/photos"); got != "unknown" {
		t.Errorf("nil resolver = %q, want unknown", got)
	}
}

func TestStatAndReadDirWithRetry(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(file, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(file, DefaultRetryConfig())
	if err != nil || info.Size() != 4 {
		t.Fatalf("StatWithRetry = %v, %v", info, err)
	}

	entries, err := ReadDirWithRetry(dir, DefaultRetryConfig())
	if err != nil || len(entries) != 1 {
		t.Fatalf("ReadDirWithRetry = %v, %v", entries, err)
	}

	f, err := OpenWithRetry(file, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry: %v", err)
	}
	f.Close()
}

func TestStatWithRetryFailsFastOnNonStaleErrors(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Second, MaxBackoff: time.Second}

	start := time.Now()
	_, err := StatWithRetry(filepath.Join(t.TempDir(), "missing"), config)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not exist", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("non-stale error was retried")
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	ops     int
	reports []RetryReport
}

func (o *recordingObserver) ObserveOperation(string, string, float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops++
}

func (o *recordingObserver) ObserveRetry(r RetryReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
}

func TestWithRetryRetriesStaleHandles(t *testing.T) {
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	config := RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		VolumeResolver: NewVolumeResolver(map[string][]string{"library": {"/photos"}}),
	}

	calls := 0
	got, err := withRetry("stat", "/photos/a.jpg", config, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, syscall.ESTALE
		}
		return 7, nil
	})
	if err != nil || got != 7 || calls != 3 {
		t.Fatalf("withRetry = %d, %v after %d calls", got, err, calls)
	}

	_, err = withRetry("stat", "/photos/a.jpg", config, func() (int, error) {
		return 0, syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Errorf("err = %v, want ESTALE", err)
	}

	_, err = withRetry("open", "/elsewhere/b.jpg", config, func() (int, error) {
		return 0, os.ErrNotExist
	})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not exist", err)
	}

	if obs.ops != 3+4+1 {
		t.Errorf("operations observed = %d, want 8", obs.ops)
	}
	want := []struct {
		op, volume         string
		stale, retries     int
		succeeded, exhaust bool
	}{
		{"stat", "library", 2, 2, true, false},
		{"stat", "library", 4, 3, false, true},
		{"open", "unknown", 0, 0, false, false},
	}
	if len(obs.reports) != len(want) {
		t.Fatalf("reports = %+v", obs.reports)
	}
	for i, w := range want {
		r := obs.reports[i]
		if r.Operation != w.op || r.Volume != w.volume || r.Stale != w.stale || r.Retries != w.retries ||
			r.Succeeded != w.succeeded || r.Exhausted() != w.exhaust {
			t.Errorf("report %d = %+v (exhausted %v), want %+v", i, r, r.Exhausted(), w)
		}
	}
}
