package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"TradeMood/internal/domain/models"
	xlogger "TradeMood/pkg/logger"
)

type blockingRunner struct {
	runs    int32
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context, _ string, _ time.Time) error {
	atomic.AddInt32(&r.runs, 1)
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
		}
	}
	return nil
}

type fakeCalendar struct{ open bool }

func (c fakeCalendar) IsOpen(string, time.Time) bool { return c.open }

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{outcomes: make(map[string]int)}
}

func (m *countingMetrics) RecordCycle(_, outcome string) {
	m.mu.Lock()
	m.outcomes[outcome]++
	m.mu.Unlock()
}
func (m *countingMetrics) outcome(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[name]
}
func (m *countingMetrics) RecordSignal(string, string)          {}
func (m *countingMetrics) RecordTrade(string, string, float64)  {}
func (m *countingMetrics) RecordCacheLookup(bool)               {}
func (m *countingMetrics) RecordError(string)                   {}
func (m *countingMetrics) RecordLastPrice(string, float64)      {}
func (m *countingMetrics) RecordLatency(string, float64)        {}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestSchedulerSkipsWhileInFlight(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	m := newCountingMetrics()
	s := New(runner, fakeCalendar{open: true}, m, testLogger(t), []string{"AAPL"}, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Start(ctx) }()

	// first tick fires immediately and blocks; subsequent ticks must skip,
	// never queue a second concurrent cycle
	time.Sleep(90 * time.Millisecond)
	if got := atomic.LoadInt32(&runner.runs); got != 1 {
		t.Fatalf("runs = %d, want 1 while first cycle blocks", got)
	}
	if m.outcome("skipped") == 0 {
		t.Fatalf("expected skipped ticks while cycle in flight")
	}

	close(runner.release)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSchedulerResumesAfterCycleEnds(t *testing.T) {
	runner := &blockingRunner{}
	m := newCountingMetrics()
	s := New(runner, fakeCalendar{open: true}, m, testLogger(t), []string{"AAPL"}, 15*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Start(ctx) }()

	time.Sleep(80 * time.Millisecond)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if got := atomic.LoadInt32(&runner.runs); got < 2 {
		t.Fatalf("runs = %d, want ticking to continue", got)
	}
}

func TestSchedulerGatesOnClosedMarket(t *testing.T) {
	runner := &blockingRunner{}
	m := newCountingMetrics()
	s := New(runner, fakeCalendar{open: false}, m, testLogger(t), []string{"AAPL", "MSFT"}, 15*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Start(ctx) }()

	time.Sleep(60 * time.Millisecond)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if got := atomic.LoadInt32(&runner.runs); got != 0 {
		t.Fatalf("runs = %d, want 0 on a closed market", got)
	}
	if m.outcome("closed") == 0 {
		t.Fatalf("expected closed outcomes recorded")
	}
}

func TestTriggerNowRunsOutsideCadence(t *testing.T) {
	runner := &blockingRunner{}
	m := newCountingMetrics()
	s := New(runner, fakeCalendar{open: true}, m, testLogger(t), []string{"AAPL"}, time.Hour)

	if err := s.TriggerNow(context.Background(), "AAPL", time.Now()); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if got := atomic.LoadInt32(&runner.runs); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
}

func TestTriggerNowRefusedOnClosedMarket(t *testing.T) {
	runner := &blockingRunner{}
	s := New(runner, fakeCalendar{open: false}, newCountingMetrics(), testLogger(t), []string{"AAPL"}, time.Hour)

	err := s.TriggerNow(context.Background(), "AAPL", time.Now())
	if !errors.Is(err, models.ErrMarketClosed) {
		t.Fatalf("err = %v, want ErrMarketClosed", err)
	}
	if got := atomic.LoadInt32(&runner.runs); got != 0 {
		t.Fatalf("runs = %d, want 0", got)
	}
}

func TestTriggerNowRefusedWhileInFlight(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	s := New(runner, fakeCalendar{open: true}, newCountingMetrics(), testLogger(t), []string{"AAPL"}, time.Hour)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- s.TriggerNow(context.Background(), "AAPL", time.Now())
	}()
	<-started
	for atomic.LoadInt32(&runner.runs) == 0 {
		time.Sleep(time.Millisecond)
	}

	if err := s.TriggerNow(context.Background(), "AAPL", time.Now()); !errors.Is(err, models.ErrCycleInFlight) {
		t.Fatalf("err = %v, want ErrCycleInFlight", err)
	}

	close(runner.release)
	if err := <-done; err != nil {
		t.Fatalf("first trigger: %v", err)
	}
}

func TestSchedulerStopIsIdempotentBeforeStart(t *testing.T) {
	s := New(&blockingRunner{}, fakeCalendar{open: true}, newCountingMetrics(), testLogger(t), nil, time.Minute)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
}
