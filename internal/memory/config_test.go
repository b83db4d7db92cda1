package memory

import (
	"runtime/debug"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LimitBytes != 0 {
		t.Errorf("Expected LimitBytes to be 0, got %d", cfg.LimitBytes)
	}
	if cfg.HighWaterMark >= cfg.CriticalWaterMark {
		t.Errorf("HighWaterMark %.2f should be below CriticalWaterMark %.2f", cfg.HighWaterMark, cfg.CriticalWaterMark)
	}
	if cfg.CheckInterval != 5*time.Second {
		t.Errorf("Expected CheckInterval to be 5s, got %v", cfg.CheckInterval)
	}
}

// restoreLimit puts the runtime memory limit back after a test changes it.
func restoreLimit(t *testing.T) {
	t.Helper()
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })
}

func TestConfigureFromEnv(t *testing.T) {
	gib := int64(1 << 30)

	tests := []struct {
		name       string
		limit      string
		ratio      string
		configured bool
		source     string
		wantLimit  int64
		wantRatio  float64
	}{
		{name: "nothing set", source: SourceNone},
		{name: "container limit", limit: "1073741824", configured: true, source: SourceMemoryLimit,
			wantLimit: int64(float64(gib) * DefaultMemoryRatio), wantRatio: DefaultMemoryRatio},
		{name: "custom ratio", limit: "1073741824", ratio: "0.5", configured: true, source: SourceMemoryLimit,
			wantLimit: gib / 2, wantRatio: 0.5},
		{name: "ratio of one", limit: "1073741824", ratio: "1", configured: true, source: SourceMemoryLimit,
			wantLimit: gib, wantRatio: 1},
		{name: "ratio out of range", limit: "1073741824", ratio: "1.5", configured: true, source: SourceMemoryLimit,
			wantLimit: int64(float64(gib) * DefaultMemoryRatio), wantRatio: DefaultMemoryRatio},
		{name: "ratio not a number", limit: "1073741824", ratio: "half", configured: true, source: SourceMemoryLimit,
			wantLimit: int64(float64(gib) * DefaultMemoryRatio), wantRatio: DefaultMemoryRatio},
		{name: "zero ratio", limit: "1073741824", ratio: "0", configured: true, source: SourceMemoryLimit,
			wantLimit: int64(float64(gib) * DefaultMemoryRatio), wantRatio: DefaultMemoryRatio},
		{name: "invalid limit", limit: "lots", source: SourceNone},
		{name: "negative limit", limit: "-1", source: SourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()

			if result.Configured != tt.configured {
				t.Errorf("Configured = %v, want %v", result.Configured, tt.configured)
			}
			if result.Source != tt.source {
				t.Errorf("Source = %q, want %q", result.Source, tt.source)
			}
			if result.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, tt.wantLimit)
			}
			if result.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", result.Ratio, tt.wantRatio)
			}
			if tt.configured {
				if got := debug.SetMemoryLimit(-1); got != tt.wantLimit {
					t.Errorf("runtime limit = %d, want %d", got, tt.wantLimit)
				}
			}
		})
	}
}

func TestConfigureFromEnvPrefersGOMEMLIMIT(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "512MiB")
	t.Setenv("MEMORY_LIMIT", "1073741824")

	// the runtime only reads GOMEMLIMIT at startup
	debug.SetMemoryLimit(512 << 20)

	result := ConfigureFromEnv()
	if result.Source != SourceGOMEMLIMIT {
		t.Fatalf("Source = %q, want %q", result.Source, SourceGOMEMLIMIT)
	}
	if !result.Configured || result.GoMemLimit != 512<<20 {
		t.Errorf("got %+v, want configured with 512MiB", result)
	}
	if result.ContainerLimit != 0 {
		t.Errorf("ContainerLimit = %d, want 0 when GOMEMLIMIT wins", result.ContainerLimit)
	}
}
