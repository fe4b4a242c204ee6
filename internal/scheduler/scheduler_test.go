package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingFlusher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFlusher) FlushUsage(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return 1, f.err
}

func TestSchedulerFlushesPeriodically(t *testing.T) {
	flusher := &countingFlusher{}
	s := New(flusher, 20*time.Millisecond)
	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for flusher.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if got := flusher.calls.Load(); got < 3 {
		t.Errorf("expected at least 2 scheduled flushes plus a final one, got %d calls", got)
	}
}

func TestStopFlushesEvenOnError(t *testing.T) {
	flusher := &countingFlusher{err: errors.New("redis down")}
	s := New(flusher, time.Hour)
	s.Stop()

	if got := flusher.calls.Load(); got != 1 {
		t.Errorf("expected one final flush, got %d", got)
	}
}
