package models

import "time"

// Action is a discrete trading recommendation.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// IsValid returns true for a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	default:
		return false
	}
}

// PriceSnapshot is the market price context a signal was derived from.
type PriceSnapshot struct {
	Symbol    string
	Price     float64
	Timestamp time.Time
}

// TradingSignal is one decision for one instrument at one timestamp.
// Immutable once emitted; history is append-only.
type TradingSignal struct {
	Symbol     string
	Sequence   uint64 // strictly increasing per instrument
	Timestamp  time.Time
	Action     Action
	Confidence float64 // [0, 1]
	Trend      TrendSignal
	Price      PriceSnapshot
}
