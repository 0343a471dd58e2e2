package usecase

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"TradeMood/internal/domain/models"
	"TradeMood/internal/middleware"
	icache "TradeMood/internal/service/cache"
	xlogger "TradeMood/pkg/logger"
)

// fakeSource serves one batch per window; Text encodes "label:confidence" so
// the fake scorer stays trivial.
type fakeSource struct {
	mu      sync.Mutex
	batches map[string][]models.RawSample // keyed by window start RFC3339
	fetches int
	fail    bool
}

func (f *fakeSource) Fetch(_ context.Context, _ string, w models.Window) ([]models.RawSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fail {
		return nil, models.ErrFetch
	}
	return f.batches[w.Start.UTC().Format(time.RFC3339)], nil
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type fakeScorer struct{}

func (fakeScorer) Score(_ context.Context, text string) (models.Label, float64, error) {
	parts := strings.SplitN(text, ":", 2)
	conf, _ := strconv.ParseFloat(parts[1], 64)
	return models.Label(parts[0]), conf, nil
}

type fakePrices struct{ price float64 }

func (f fakePrices) Latest(_ context.Context, symbol string) (models.PriceSnapshot, error) {
	return models.PriceSnapshot{Symbol: symbol, Price: f.price, Timestamp: time.Now()}, nil
}

type fakeWriter struct {
	mu    sync.Mutex
	kinds []middleware.RecordKind
}

func (f *fakeWriter) Write(_ context.Context, rec *middleware.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, rec.Kind)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string, string)        {}
func (nopMetrics) RecordSignal(string, string)       {}
func (nopMetrics) RecordTrade(string, string, float64) {}
func (nopMetrics) RecordCacheLookup(bool)            {}
func (nopMetrics) RecordError(string)                {}
func (nopMetrics) RecordLastPrice(string, float64)   {}
func (nopMetrics) RecordLatency(string, float64)     {}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func batch(n int, label models.Label, conf float64, w models.Window) []models.RawSample {
	out := make([]models.RawSample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.RawSample{
			Source:    "news",
			Timestamp: w.Start,
			Text:      string(label) + ":" + strconv.FormatFloat(conf, 'f', -1, 64),
		})
	}
	return out
}

func newTestRunner(t *testing.T, src *fakeSource, prices fakePrices) *CycleRunner {
	t.Helper()
	cadence := 5 * time.Minute
	return NewCycleRunner(
		src,
		fakeScorer{},
		prices,
		icache.NewTrendCache(time.Duration(1.5*float64(cadence))),
		NewTrendAggregator(0),
		NewSignalPolicy(DefaultPolicyConfig()),
		NewPositionTracker(),
		middleware.NewPersistPipeline(&fakeWriter{}, nopMetrics{}),
		nil,
		nopMetrics{},
		testLogger(t),
		CycleConfig{Cadence: cadence, FetchRetries: 1, FetchBackoff: time.Millisecond},
	)
}

func TestCycleEmitsSignalAndIncrementsSequence(t *testing.T) {
	cadence := 5 * time.Minute
	t0 := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	w0 := models.WindowFor(t0, cadence)
	w1 := models.WindowFor(t0.Add(cadence), cadence)

	src := &fakeSource{batches: map[string][]models.RawSample{
		w0.Start.UTC().Format(time.RFC3339): batch(5, models.LabelPositive, 0.6, w0),
		w1.Start.UTC().Format(time.RFC3339): batch(5, models.LabelPositive, 0.6, w1),
	}}
	r := newTestRunner(t, src, fakePrices{price: 100})

	if err := r.Run(context.Background(), "AAPL", t0); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	sig, ok := r.LatestSignal("AAPL")
	if !ok {
		t.Fatalf("no signal after run")
	}
	if sig.Sequence != 1 || sig.Action != models.ActionBuy {
		t.Fatalf("signal = seq %d action %v, want seq 1 BUY", sig.Sequence, sig.Action)
	}

	if err := r.Run(context.Background(), "AAPL", t0.Add(cadence)); err != nil {
		t.Fatalf("run 2: %v", err)
	}
	sig, _ = r.LatestSignal("AAPL")
	if sig.Sequence != 2 {
		t.Fatalf("sequence = %d, want 2", sig.Sequence)
	}
}

func TestCycleBurnsSequenceOnFailure(t *testing.T) {
	cadence := 5 * time.Minute
	t0 := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	w1 := models.WindowFor(t0.Add(cadence), cadence)

	src := &fakeSource{fail: true, batches: map[string][]models.RawSample{
		w1.Start.UTC().Format(time.RFC3339): batch(5, models.LabelPositive, 0.6, w1),
	}}
	r := newTestRunner(t, src, fakePrices{price: 100})

	if err := r.Run(context.Background(), "AAPL", t0); err == nil {
		t.Fatalf("expected fetch failure")
	}
	if _, ok := r.LatestSignal("AAPL"); ok {
		t.Fatalf("failed cycle must not emit a signal")
	}

	src.mu.Lock()
	src.fail = false
	src.mu.Unlock()

	if err := r.Run(context.Background(), "AAPL", t0.Add(cadence)); err != nil {
		t.Fatalf("run 2: %v", err)
	}
	sig, _ := r.LatestSignal("AAPL")
	if sig.Sequence != 2 {
		t.Fatalf("sequence = %d, want 2 (gap for the burned attempt)", sig.Sequence)
	}
}

func TestCycleInsufficientHoldsFlat(t *testing.T) {
	t0 := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	src := &fakeSource{batches: map[string][]models.RawSample{}} // no items
	r := newTestRunner(t, src, fakePrices{price: 100})

	if err := r.Run(context.Background(), "AAPL", t0); err != nil {
		t.Fatalf("run: %v", err)
	}
	sig, ok := r.LatestSignal("AAPL")
	if !ok {
		t.Fatalf("insufficient window still emits HOLD")
	}
	if sig.Action != models.ActionHold || sig.Confidence != 0 {
		t.Fatalf("signal = %v conf %v, want HOLD conf 0", sig.Action, sig.Confidence)
	}
	if !sig.Trend.Insufficient {
		t.Fatalf("trend should be flagged insufficient")
	}
	if _, ok := r.LatestTrend("AAPL"); ok {
		t.Fatalf("insufficient trend must not become the direction baseline")
	}
}

func TestCycleDedupesWindow(t *testing.T) {
	cadence := 5 * time.Minute
	t0 := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	w0 := models.WindowFor(t0, cadence)

	src := &fakeSource{batches: map[string][]models.RawSample{
		w0.Start.UTC().Format(time.RFC3339): batch(3, models.LabelPositive, 0.5, w0),
	}}
	r := newTestRunner(t, src, fakePrices{price: 100})

	if err := r.Run(context.Background(), "AAPL", t0); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	// retry of the same window hits the cache, the upstream is not re-fetched
	if err := r.Run(context.Background(), "AAPL", t0.Add(time.Minute)); err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if got := src.count(); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}

	sig, _ := r.LatestSignal("AAPL")
	if sig.Sequence != 2 {
		t.Fatalf("sequence = %d, want 2 (each cycle emits)", sig.Sequence)
	}
}

func TestCycleHysteresisSurvivesHold(t *testing.T) {
	cadence := 5 * time.Minute
	t0 := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	windows := make([]models.Window, 3)
	for i := range windows {
		windows[i] = models.WindowFor(t0.Add(time.Duration(i)*cadence), cadence)
	}

	src := &fakeSource{batches: map[string][]models.RawSample{
		windows[0].Start.UTC().Format(time.RFC3339): batch(4, models.LabelNegative, 0.5, windows[0]),
		windows[1].Start.UTC().Format(time.RFC3339): batch(4, models.LabelPositive, 0.35, windows[1]),
		windows[2].Start.UTC().Format(time.RFC3339): batch(4, models.LabelPositive, 0.5, windows[2]),
	}}
	r := newTestRunner(t, src, fakePrices{price: 100})

	// window 0: mean -0.5 -> SELL opens a short
	if err := r.Run(context.Background(), "AAPL", t0); err != nil {
		t.Fatalf("run 0: %v", err)
	}
	sig, _ := r.LatestSignal("AAPL")
	if sig.Action != models.ActionSell {
		t.Fatalf("window 0 action = %v, want SELL", sig.Action)
	}

	// window 1: mean +0.35 clears the base threshold but not the widened one
	if err := r.Run(context.Background(), "AAPL", t0.Add(cadence)); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	sig, _ = r.LatestSignal("AAPL")
	if sig.Action != models.ActionHold {
		t.Fatalf("window 1 action = %v, want HOLD (hysteresis)", sig.Action)
	}

	// window 2: +0.5 crosses the widened threshold; the HOLD in between must
	// not have erased the band
	if err := r.Run(context.Background(), "AAPL", t0.Add(2*cadence)); err != nil {
		t.Fatalf("run 2: %v", err)
	}
	sig, _ = r.LatestSignal("AAPL")
	if sig.Action != models.ActionBuy {
		t.Fatalf("window 2 action = %v, want BUY", sig.Action)
	}
}
