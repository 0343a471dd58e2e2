package models

import "time"

// Label classifies the sentiment of a single scored text.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// Score maps a label plus model confidence onto a signed scalar in [-1, 1]:
// positive -> +confidence, negative -> -confidence, neutral -> 0.
func (l Label) Score(confidence float64) float64 {
	switch l {
	case LabelPositive:
		return confidence
	case LabelNegative:
		return -confidence
	default:
		return 0
	}
}

// IsValid returns true for a known label.
func (l Label) IsValid() bool {
	switch l {
	case LabelPositive, LabelNeutral, LabelNegative:
		return true
	default:
		return false
	}
}

// SentimentSample is one scored observation. Immutable once created.
type SentimentSample struct {
	Symbol     string
	Source     string
	Timestamp  time.Time
	Label      Label
	Confidence float64 // [0, 1]
}

// Score returns the signed scalar score of the sample.
func (s SentimentSample) Score() float64 { return s.Label.Score(s.Confidence) }

// RawSample is an unscored observation as delivered by a feed source.
type RawSample struct {
	Source    string
	Timestamp time.Time
	Text      string
}

// Window is a closed time bucket [Start, End) over which samples aggregate.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor buckets t into the cadence-aligned window containing it.
func WindowFor(t time.Time, cadence time.Duration) Window {
	start := t.Truncate(cadence)
	return Window{Start: start, End: start.Add(cadence)}
}

// Key renders a stable cache/storage key for the window.
func (w Window) Key(symbol string) string {
	return symbol + ":" + w.Start.UTC().Format(time.RFC3339)
}

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Direction of a trend relative to the preceding window.
type Direction string

const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
	DirectionFlat    Direction = "flat"
)

// TrendSignal is the aggregate over one window for one instrument.
type TrendSignal struct {
	Symbol       string
	Window       Window
	SampleCount  int
	MeanScore    float64
	Dispersion   float64 // sample standard deviation of per-sample scores
	Direction    Direction
	Insufficient bool // set when SampleCount == 0; excluded from signal generation
	GeneratedAt  time.Time
}
