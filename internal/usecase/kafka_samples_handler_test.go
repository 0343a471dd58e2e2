package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"TradeMood/internal/domain/models"
)

type memoryStore struct {
	mu      sync.Mutex
	samples []*models.SentimentSample
}

func (s *memoryStore) Init(context.Context) error { return nil }
func (s *memoryStore) StoreSample(_ context.Context, sm *models.SentimentSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sm)
	return nil
}
func (s *memoryStore) StoreTrend(context.Context, *models.TrendSignal) error    { return nil }
func (s *memoryStore) StoreSignal(context.Context, *models.TradingSignal) error { return nil }
func (s *memoryStore) StoreTrade(context.Context, *models.Trade) error          { return nil }
func (s *memoryStore) QueryTrades(context.Context, string, time.Time, time.Time, int) ([]*models.Trade, error) {
	return nil, nil
}
func (s *memoryStore) QuerySignals(context.Context, string, time.Time, time.Time, int) ([]*models.TradingSignal, error) {
	return nil, nil
}
func (s *memoryStore) Health(context.Context) error { return nil }
func (s *memoryStore) Close() error                 { return nil }

func TestSamplesHandlerStoresValidMessage(t *testing.T) {
	store := &memoryStore{}
	h := NewKafkaSamplesHandler("sentiment.samples", store, nopMetrics{})

	msg := []byte(`{"symbol":"AAPL","source":"twitter","ts":1748872800,"label":"negative","confidence":0.82}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(store.samples))
	}
	got := store.samples[0]
	if got.Symbol != "AAPL" || got.Label != models.LabelNegative || got.Confidence != 0.82 {
		t.Fatalf("unexpected sample %+v", got)
	}
	if got.Score() != -0.82 {
		t.Fatalf("score = %v, want -0.82", got.Score())
	}
}

func TestSamplesHandlerNormalizesMillisecondTimestamps(t *testing.T) {
	store := &memoryStore{}
	h := NewKafkaSamplesHandler("sentiment.samples", store, nopMetrics{})

	msg := []byte(`{"symbol":"AAPL","source":"news","ts":1748872800000,"label":"positive","confidence":0.5}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if got := store.samples[0].Timestamp.Unix(); got != 1748872800 {
		t.Fatalf("ts = %d, want 1748872800", got)
	}
}

func TestSamplesHandlerRejectsBadPayloads(t *testing.T) {
	store := &memoryStore{}
	h := NewKafkaSamplesHandler("sentiment.samples", store, nopMetrics{})

	cases := []string{
		`not json`,
		`{"symbol":"AAPL","ts":1748872800,"label":"ecstatic","confidence":0.5}`,
		`{"symbol":"AAPL","ts":1748872800,"label":"positive","confidence":1.5}`,
	}
	for i, msg := range cases {
		if err := h.Handle(context.Background(), []byte(msg)); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.samples) != 0 {
		t.Fatalf("bad payloads must not be stored, got %d", len(store.samples))
	}
}
