package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestMonitor(limit int64) *Monitor {
	return NewMonitor(Config{
		LimitBytes:        limit,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     10 * time.Millisecond,
	})
}

func TestNewMonitorDefaultsInterval(t *testing.T) {
	m := NewMonitor(Config{LimitBytes: 100})
	if m.config.CheckInterval != DefaultConfig().CheckInterval {
		t.Errorf("CheckInterval = %v, want default", m.config.CheckInterval)
	}
}

func TestObservePausesAndResumes(t *testing.T) {
	m := newTestMonitor(1000)

	tests := []struct {
		alloc  uint64
		paused bool
	}{
		{alloc: 500, paused: false},
		{alloc: 800, paused: false},
		{alloc: 900, paused: true},
		// between the marks the state holds
		{alloc: 750, paused: true},
		{alloc: 600, paused: false},
		{alloc: 849, paused: false},
	}
	for _, tt := range tests {
		m.observe(tt.alloc)
		if got := m.IsPaused(); got != tt.paused {
			t.Errorf("after observe(%d): paused = %v, want %v", tt.alloc, got, tt.paused)
		}
	}

	current, limit, usage := m.Stats()
	if current != 849 || limit != 1000 {
		t.Errorf("Stats() = %d, %d; want 849, 1000", current, limit)
	}
	if usage < 0.848 || usage > 0.85 {
		t.Errorf("usage = %v, want 0.849", usage)
	}
}

func TestObserveWithoutLimitNeverPauses(t *testing.T) {
	m := &Monitor{config: DefaultConfig(), stop: make(chan struct{}), resume: make(chan struct{})}
	m.observe(1 << 40)
	if m.IsPaused() {
		t.Error("monitor without limit paused")
	}
	if _, _, usage := m.Stats(); usage != 0 {
		t.Errorf("usage = %v, want 0", usage)
	}
}

func TestWaitReturnsImmediatelyWhenNotPaused(t *testing.T) {
	m := newTestMonitor(1000)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
}

func TestWaitBlocksUntilResume(t *testing.T) {
	m := newTestMonitor(1000)
	m.observe(950)

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("Wait returned %v while paused", err)
	case <-time.After(30 * time.Millisecond):
	}

	m.observe(100)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after resume")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	m := newTestMonitor(1000)
	m.observe(950)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() = %v, want context.Canceled", err)
	}
}

func TestStopReleasesWaiters(t *testing.T) {
	m := newTestMonitor(1000)
	m.Start()
	m.observe(950)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Wait(context.Background())
		}()
	}

	m.Stop()
	m.Stop()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Wait() = %v after Stop", err)
		}
	}
}

func TestStartSamplesHeap(t *testing.T) {
	if testing.Short() {
		t.Skip("samples the live heap")
	}
	m := newTestMonitor(1 << 50)
	m.Start()
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if current, _, _ := m.Stats(); current > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("monitor never sampled the heap")
}

func TestConcurrentObserveAndWait(_ *testing.T) {
	m := newTestMonitor(1000)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				if (i+j)%2 == 0 {
					m.observe(uint64(900 + j))
				} else {
					m.observe(uint64(j))
				}
				_ = m.Wait(ctx)
				_, _, _ = m.Stats()
			}
		}()
	}
	wg.Wait()
}
