package models

import "time"

// PositionState is the current exposure for an instrument.
type PositionState string

const (
	PositionFlat  PositionState = "FLAT"
	PositionLong  PositionState = "LONG"
	PositionShort PositionState = "SHORT"
)

// Position is the current (at most one non-FLAT per instrument) exposure.
type Position struct {
	Symbol       string
	State        PositionState
	EntryPrice   float64
	EntryTime    time.Time
	Quantity     float64
	OpenSequence uint64 // sequence of the signal that opened it
}

// UnrealizedPNL computes open P&L against the current price. Pure query;
// zero for a FLAT position.
func (p Position) UnrealizedPNL(currentPrice float64) float64 {
	switch p.State {
	case PositionLong:
		return (currentPrice - p.EntryPrice) * p.Quantity
	case PositionShort:
		return (p.EntryPrice - currentPrice) * p.Quantity
	default:
		return 0
	}
}

// Side of a closed round-trip.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Trade is a closed round-trip. Immutable once closed; history is append-only.
type Trade struct {
	Symbol        string
	Side          Side
	Quantity      float64
	EntryPrice    float64
	EntryTime     time.Time
	ExitPrice     float64
	ExitTime      time.Time
	RealizedPNL   float64
	OpenSequence  uint64
	CloseSequence uint64
}
