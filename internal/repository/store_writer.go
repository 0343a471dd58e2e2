package repository

import (
	"context"
	"fmt"

	"TradeMood/internal/domain/repository"
	"TradeMood/internal/middleware"
)

// StoreWriter adapts a SignalStore to the persistence pipeline's Writer.
type StoreWriter struct {
	store repository.SignalStore
}

// NewStoreWriter wraps store for use behind the retry pipeline.
func NewStoreWriter(store repository.SignalStore) *StoreWriter {
	return &StoreWriter{store: store}
}

func (w *StoreWriter) Write(ctx context.Context, rec *middleware.Record) error {
	switch rec.Kind {
	case middleware.KindSample:
		return w.store.StoreSample(ctx, rec.Sample)
	case middleware.KindTrend:
		return w.store.StoreTrend(ctx, rec.Trend)
	case middleware.KindSignal:
		return w.store.StoreSignal(ctx, rec.Signal)
	case middleware.KindTrade:
		return w.store.StoreTrade(ctx, rec.Trade)
	default:
		return fmt.Errorf("unknown record kind %q", rec.Kind)
	}
}

var _ middleware.Writer = (*StoreWriter)(nil)
