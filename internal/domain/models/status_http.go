package models

// Requests for the read-only status HTTP endpoints. Defined in domain for
// consistency and reuse.

type TrendRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type SignalRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type PositionRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type CycleRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type TradesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// PositionStatus is the presentation view of an open position.
type PositionStatus struct {
	Position      Position
	CurrentPrice  float64
	UnrealizedPNL float64
}
