package usecase

import (
	"fmt"
	"sync"

	"TradeMood/internal/domain/models"
)

// PositionTracker owns Position and Trade state per instrument and applies
// the FLAT/LONG/SHORT transition table to incoming signals. It is the only
// writer of that state; the scheduler serializes cycles per instrument, the
// mutex covers read-only queries from the presentation layer.
type PositionTracker struct {
	mu              sync.RWMutex
	positions       map[string]models.Position
	trades          map[string][]models.Trade
	quantity        float64
	shortingEnabled bool
}

// TrackerOption configures a PositionTracker.
type TrackerOption func(*PositionTracker)

// WithQuantity sets the position size per trade (default 1 unit).
func WithQuantity(q float64) TrackerOption {
	return func(t *PositionTracker) {
		if q > 0 {
			t.quantity = q
		}
	}
}

// WithShorting enables or disables opening SHORT positions.
func WithShorting(enabled bool) TrackerOption {
	return func(t *PositionTracker) { t.shortingEnabled = enabled }
}

// NewPositionTracker creates a tracker with no open positions.
func NewPositionTracker(opts ...TrackerOption) *PositionTracker {
	t := &PositionTracker{
		positions:       make(map[string]models.Position),
		trades:          make(map[string][]models.Trade),
		quantity:        1,
		shortingEnabled: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply consumes one signal and returns the trade it closed, if any.
// The transition table is total over {BUY, SELL, HOLD} x {FLAT, LONG, SHORT};
// only an unknown action is an error.
func (t *PositionTracker) Apply(sig *models.TradingSignal) (*models.Trade, error) {
	if sig == nil || !sig.Action.IsValid() {
		return nil, fmt.Errorf("%w: %+v", models.ErrInvalidTransition, sig)
	}
	if sig.Action == models.ActionHold {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[sig.Symbol]
	if !ok {
		pos = models.Position{Symbol: sig.Symbol, State: models.PositionFlat}
	}

	switch sig.Action {
	case models.ActionBuy:
		switch pos.State {
		case models.PositionFlat:
			t.positions[sig.Symbol] = t.open(sig, models.PositionLong)
			return nil, nil
		case models.PositionShort:
			trade := t.close(pos, sig, models.SideShort)
			return &trade, nil
		default: // already LONG
			return nil, nil
		}
	default: // SELL
		switch pos.State {
		case models.PositionFlat:
			if !t.shortingEnabled {
				return nil, nil
			}
			t.positions[sig.Symbol] = t.open(sig, models.PositionShort)
			return nil, nil
		case models.PositionLong:
			trade := t.close(pos, sig, models.SideLong)
			return &trade, nil
		default: // already SHORT
			return nil, nil
		}
	}
}

func (t *PositionTracker) open(sig *models.TradingSignal, state models.PositionState) models.Position {
	return models.Position{
		Symbol:       sig.Symbol,
		State:        state,
		EntryPrice:   sig.Price.Price,
		EntryTime:    sig.Timestamp,
		Quantity:     t.quantity,
		OpenSequence: sig.Sequence,
	}
}

func (t *PositionTracker) close(pos models.Position, sig *models.TradingSignal, side models.Side) models.Trade {
	trade := models.Trade{
		Symbol:        pos.Symbol,
		Side:          side,
		Quantity:      pos.Quantity,
		EntryPrice:    pos.EntryPrice,
		EntryTime:     pos.EntryTime,
		ExitPrice:     sig.Price.Price,
		ExitTime:      sig.Timestamp,
		RealizedPNL:   pos.UnrealizedPNL(sig.Price.Price),
		OpenSequence:  pos.OpenSequence,
		CloseSequence: sig.Sequence,
	}
	t.positions[pos.Symbol] = models.Position{Symbol: pos.Symbol, State: models.PositionFlat}
	t.trades[pos.Symbol] = append(t.trades[pos.Symbol], trade)
	return trade
}

// Position returns the current position for symbol (FLAT if never traded).
func (t *PositionTracker) Position(symbol string) models.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if pos, ok := t.positions[symbol]; ok {
		return pos
	}
	return models.Position{Symbol: symbol, State: models.PositionFlat}
}

// Trades returns a copy of the closed-trade history for symbol.
func (t *PositionTracker) Trades(symbol string) []models.Trade {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Trade, len(t.trades[symbol]))
	copy(out, t.trades[symbol])
	return out
}

// UnrealizedPNL computes open P&L for symbol against the current price.
func (t *PositionTracker) UnrealizedPNL(symbol string, currentPrice float64) float64 {
	return t.Position(symbol).UnrealizedPNL(currentPrice)
}
