package repository

import (
	"context"
	"time"

	"TradeMood/internal/domain/models"
)

// SampleSource acquires raw text observations for an instrument over a window.
// Implementations handle pagination/rate limiting internally; failures are
// transient and wrapped around models.ErrFetch.
type SampleSource interface {
	Fetch(ctx context.Context, symbol string, window models.Window) ([]models.RawSample, error)
}

// Scorer maps raw text to a sentiment label and confidence. May be slow;
// failures are wrapped around models.ErrScore and skip the sample.
type Scorer interface {
	Score(ctx context.Context, text string) (models.Label, float64, error)
}

// PriceSource provides the current price snapshot for an instrument.
type PriceSource interface {
	Latest(ctx context.Context, symbol string) (models.PriceSnapshot, error)
}

// Calendar gates cycles to an instrument's trading session.
type Calendar interface {
	IsOpen(symbol string, at time.Time) bool
}

// SignalStore persists pipeline output. Writes are idempotent upserts keyed by
// (symbol, window) for trends and by sequence number for signals and trades.
type SignalStore interface {
	Init(ctx context.Context) error
	StoreSample(ctx context.Context, s *models.SentimentSample) error
	StoreTrend(ctx context.Context, t *models.TrendSignal) error
	StoreSignal(ctx context.Context, s *models.TradingSignal) error
	StoreTrade(ctx context.Context, t *models.Trade) error
	QueryTrades(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Trade, error)
	QuerySignals(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.TradingSignal, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher emits pipeline output to downstream consumers.
type Publisher interface {
	PublishSignal(ctx context.Context, s *models.TradingSignal) error
	PublishTrade(ctx context.Context, t *models.Trade) error
	Close() error
}

// Metrics abstracts operational counters away from the instrumentation backend.
type Metrics interface {
	RecordCycle(symbol, outcome string)
	RecordSignal(symbol, action string)
	RecordTrade(symbol, side string, realizedPNL float64)
	RecordCacheLookup(hit bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
