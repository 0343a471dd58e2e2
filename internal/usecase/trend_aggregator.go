package usecase

import (
	"math"
	"time"

	"TradeMood/internal/domain/models"
)

// DefaultDirectionEpsilon is the noise threshold under which window-to-window
// mean movement counts as flat, on the [-1, 1] score scale.
const DefaultDirectionEpsilon = 0.05

// TrendAggregator reduces a batch of scored samples for one window into a
// single TrendSignal. Stateless; the previous window's trend is passed in by
// the caller for the direction comparison.
type TrendAggregator struct {
	epsilon float64
}

// NewTrendAggregator creates an aggregator with the given direction epsilon.
// Non-positive epsilon falls back to the default.
func NewTrendAggregator(epsilon float64) *TrendAggregator {
	if epsilon <= 0 {
		epsilon = DefaultDirectionEpsilon
	}
	return &TrendAggregator{epsilon: epsilon}
}

// Aggregate computes the trend over one window. An empty batch yields an
// INSUFFICIENT-flagged signal, never a silent neutral one.
func (a *TrendAggregator) Aggregate(samples []models.SentimentSample, symbol string, window models.Window, previous *models.TrendSignal) models.TrendSignal {
	out := models.TrendSignal{
		Symbol:      symbol,
		Window:      window,
		SampleCount: len(samples),
		Direction:   models.DirectionFlat,
		GeneratedAt: time.Now(),
	}

	if len(samples) == 0 {
		out.Insufficient = true
		return out
	}

	var sum float64
	for _, s := range samples {
		sum += s.Score()
	}
	mean := sum / float64(len(samples))

	// sample standard deviation; 0 for a single observation
	var sd float64
	if len(samples) > 1 {
		var sq float64
		for _, s := range samples {
			d := s.Score() - mean
			sq += d * d
		}
		sd = math.Sqrt(sq / float64(len(samples)-1))
	}

	out.MeanScore = mean
	out.Dispersion = sd
	if previous != nil && !previous.Insufficient {
		switch {
		case mean-previous.MeanScore > a.epsilon:
			out.Direction = models.DirectionRising
		case mean-previous.MeanScore < -a.epsilon:
			out.Direction = models.DirectionFalling
		}
	}
	return out
}
