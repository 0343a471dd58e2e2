package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"TradeMood/internal/domain/models"
)

func testWindow() models.Window {
	return models.WindowFor(time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC), 5*time.Minute)
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c := NewTrendCache(time.Minute)
	w := testWindow()
	var calls int32

	compute := func(context.Context) (models.TrendSignal, error) {
		atomic.AddInt32(&calls, 1)
		return models.TrendSignal{Symbol: "AAPL", Window: w, MeanScore: 0.4}, nil
	}

	for i := 0; i < 3; i++ {
		ts, err := c.GetOrCompute(context.Background(), "AAPL", w, compute)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if ts.MeanScore != 0.4 {
			t.Fatalf("get %d: mean = %v", i, ts.MeanScore)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("compute calls = %d, want 1", got)
	}
}

func TestGetOrComputeCollapsesConcurrentCallers(t *testing.T) {
	c := NewTrendCache(time.Minute)
	w := testWindow()
	var calls int32
	gate := make(chan struct{})

	compute := func(context.Context) (models.TrendSignal, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return models.TrendSignal{Symbol: "AAPL", Window: w, MeanScore: 0.2}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrCompute(context.Background(), "AAPL", w, compute); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("compute calls = %d, want 1", got)
	}
}

func TestGetOrComputeFailureCachesNothing(t *testing.T) {
	c := NewTrendCache(time.Minute)
	w := testWindow()
	var calls int32
	boom := errors.New("upstream down")

	failing := func(context.Context) (models.TrendSignal, error) {
		atomic.AddInt32(&calls, 1)
		return models.TrendSignal{}, boom
	}
	if _, err := c.GetOrCompute(context.Background(), "AAPL", w, failing); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	// next caller recomputes rather than seeing a cached failure
	ok := func(context.Context) (models.TrendSignal, error) {
		atomic.AddInt32(&calls, 1)
		return models.TrendSignal{Symbol: "AAPL", Window: w, MeanScore: 0.1}, nil
	}
	ts, err := c.GetOrCompute(context.Background(), "AAPL", w, ok)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ts.MeanScore != 0.1 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("mean = %v calls = %d, want 0.1 and 2", ts.MeanScore, calls)
	}
}

func TestGetOrComputeExpiry(t *testing.T) {
	c := NewTrendCache(30 * time.Millisecond)
	w := testWindow()
	var calls int32

	compute := func(context.Context) (models.TrendSignal, error) {
		atomic.AddInt32(&calls, 1)
		return models.TrendSignal{Symbol: "AAPL", Window: w}, nil
	}

	if _, err := c.GetOrCompute(context.Background(), "AAPL", w, compute); err != nil {
		t.Fatalf("get 1: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := c.GetOrCompute(context.Background(), "AAPL", w, compute); err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("compute calls = %d, want 2 after expiry", got)
	}
}

func TestCacheKeysAreWindowScoped(t *testing.T) {
	c := NewTrendCache(time.Minute)
	w0 := testWindow()
	w1 := models.Window{Start: w0.End, End: w0.End.Add(5 * time.Minute)}
	var calls int32

	compute := func(context.Context) (models.TrendSignal, error) {
		atomic.AddInt32(&calls, 1)
		return models.TrendSignal{}, nil
	}
	_, _ = c.GetOrCompute(context.Background(), "AAPL", w0, compute)
	_, _ = c.GetOrCompute(context.Background(), "AAPL", w1, compute)
	_, _ = c.GetOrCompute(context.Background(), "MSFT", w0, compute)

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("compute calls = %d, want 3 distinct keys", got)
	}

	if _, ok := c.Peek(context.Background(), "AAPL", w0); !ok {
		t.Fatalf("peek miss for cached window")
	}
}
