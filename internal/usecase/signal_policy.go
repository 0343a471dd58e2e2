package usecase

import (
	"time"

	"TradeMood/internal/domain/models"
)

// PolicyConfig holds the decision thresholds. All values live on the [-1, 1]
// mean-score scale.
type PolicyConfig struct {
	BuyThreshold   float64 // default +0.3
	SellThreshold  float64 // default -0.3
	HysteresisBand float64 // extra margin required to reverse an open action
}

// DefaultPolicyConfig returns the baseline thresholds. The exact values are
// configuration, not contract.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		BuyThreshold:   0.3,
		SellThreshold:  -0.3,
		HysteresisBand: 0.1,
	}
}

// SignalPolicy maps (trend, price, prior signal) to a TradingSignal.
// Pure and deterministic; hysteresis state arrives via the prior signal.
type SignalPolicy struct {
	cfg PolicyConfig
}

func NewSignalPolicy(cfg PolicyConfig) *SignalPolicy {
	return &SignalPolicy{cfg: cfg}
}

// Decide produces the next signal. Sequence assignment is the caller's job;
// the returned signal carries Sequence 0.
//
// Fails closed: an insufficient trend always yields HOLD with confidence 0.
// Exact threshold equality favors the conservative action.
func (p *SignalPolicy) Decide(trend models.TrendSignal, price models.PriceSnapshot, prior *models.TradingSignal) models.TradingSignal {
	sig := models.TradingSignal{
		Symbol:    trend.Symbol,
		Timestamp: time.Now(),
		Action:    models.ActionHold,
		Trend:     trend,
		Price:     price,
	}

	if trend.Insufficient {
		return sig
	}

	buyAt := p.cfg.BuyThreshold
	sellAt := p.cfg.SellThreshold
	buyStrict, sellStrict := false, false
	if prior != nil {
		// widen the reversal threshold after a non-HOLD action so noise near
		// the boundary cannot flip the recommendation back and forth; the
		// widened threshold must be strictly crossed, equality stays HOLD
		switch prior.Action {
		case models.ActionSell:
			buyAt += p.cfg.HysteresisBand
			buyStrict = true
		case models.ActionBuy:
			sellAt -= p.cfg.HysteresisBand
			sellStrict = true
		}
	}

	buyHit := trend.MeanScore >= buyAt && !(buyStrict && trend.MeanScore == buyAt)
	sellHit := trend.MeanScore <= sellAt && !(sellStrict && trend.MeanScore == sellAt)

	switch {
	case buyHit && trend.Direction != models.DirectionFalling:
		sig.Action = models.ActionBuy
	case sellHit && trend.Direction != models.DirectionRising:
		sig.Action = models.ActionSell
	}

	if sig.Action != models.ActionHold {
		sig.Confidence = p.confidence(trend)
	}
	return sig
}

// confidence scales |mean| into [0, 1] and discounts it by dispersion: high
// disagreement among samples lowers confidence even when the mean is extreme.
func (p *SignalPolicy) confidence(trend models.TrendSignal) float64 {
	c := trend.MeanScore
	if c < 0 {
		c = -c
	}
	if c > 1 {
		c = 1
	}
	c *= 1 - clamp01(trend.Dispersion)
	return clamp01(c)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
