package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"TradeMood/internal/domain/models"
)

type flakyWriter struct {
	mu       sync.Mutex
	failures int // fail this many writes before succeeding
	writes   []RecordKind
}

func (w *flakyWriter) Write(_ context.Context, rec *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failures > 0 {
		w.failures--
		return errors.New("store down")
	}
	w.writes = append(w.writes, rec.Kind)
	return nil
}

func (w *flakyWriter) written() []RecordKind {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]RecordKind, len(w.writes))
	copy(out, w.writes)
	return out
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string, string)          {}
func (nopMetrics) RecordSignal(string, string)         {}
func (nopMetrics) RecordTrade(string, string, float64) {}
func (nopMetrics) RecordCacheLookup(bool)              {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordLastPrice(string, float64)     {}
func (nopMetrics) RecordLatency(string, float64)       {}

func sampleRecord() *Record {
	return &Record{Kind: KindSample, Sample: &models.SentimentSample{
		Symbol: "AAPL", Source: "news", Timestamp: time.Now(), Label: models.LabelPositive, Confidence: 0.7,
	}}
}

func TestPersistWritesThrough(t *testing.T) {
	w := &flakyWriter{}
	p := NewPersistPipeline(w, nopMetrics{})

	if err := p.Persist(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if got := w.written(); len(got) != 1 || got[0] != KindSample {
		t.Fatalf("writes = %v", got)
	}
	if p.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", p.Pending())
	}
}

func TestPersistBuffersOnFailureAndFlushes(t *testing.T) {
	w := &flakyWriter{failures: 2} // initial write fails, first retry fails too
	p := NewPersistPipeline(w, nopMetrics{})

	if err := p.Persist(context.Background(), sampleRecord()); err == nil {
		t.Fatalf("expected persist error while store is down")
	}
	if p.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", p.Pending())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(w.written()) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := w.written(); len(got) != 1 {
		t.Fatalf("record never flushed, writes = %v", got)
	}
	if p.Pending() != 0 {
		t.Fatalf("pending = %d after flush, want 0", p.Pending())
	}
}

func TestPersistRejectsInvalidRecords(t *testing.T) {
	p := NewPersistPipeline(&flakyWriter{}, nopMetrics{})

	cases := []*Record{
		nil,
		{Kind: KindSample},                                     // missing payload
		{Kind: KindTrend, Trend: &models.TrendSignal{}},        // missing symbol
		{Kind: RecordKind("bogus"), Sample: &models.SentimentSample{Symbol: "A"}},
	}
	for i, rec := range cases {
		if err := p.Persist(context.Background(), rec); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if p.Pending() != 0 {
		t.Fatalf("invalid records must not be buffered, pending = %d", p.Pending())
	}
}

func TestPipelineStartStopIdempotent(t *testing.T) {
	p := NewPersistPipeline(&flakyWriter{}, nopMetrics{})
	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx)
	p.Stop()
	p.Stop()
}
