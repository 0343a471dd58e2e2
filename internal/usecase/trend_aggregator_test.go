package usecase

import (
	"math"
	"testing"
	"time"

	"TradeMood/internal/domain/models"
)

func window(t *testing.T) models.Window {
	t.Helper()
	return models.WindowFor(time.Date(2025, 6, 2, 14, 3, 0, 0, time.UTC), 5*time.Minute)
}

func sample(label models.Label, conf float64) models.SentimentSample {
	return models.SentimentSample{Symbol: "AAPL", Source: "news", Timestamp: time.Now(), Label: label, Confidence: conf}
}

func TestAggregateEmptyIsInsufficient(t *testing.T) {
	agg := NewTrendAggregator(0)
	got := agg.Aggregate(nil, "AAPL", window(t), nil)
	if !got.Insufficient {
		t.Fatalf("expected insufficient")
	}
	if got.SampleCount != 0 || got.MeanScore != 0 || got.Direction != models.DirectionFlat {
		t.Fatalf("unexpected trend %+v", got)
	}
}

func TestAggregateMeanAndDispersion(t *testing.T) {
	agg := NewTrendAggregator(0)
	samples := []models.SentimentSample{
		sample(models.LabelPositive, 0.8),
		sample(models.LabelNegative, 0.4),
		sample(models.LabelNeutral, 0.9), // neutral scores 0 regardless of confidence
	}
	got := agg.Aggregate(samples, "AAPL", window(t), nil)
	if got.Insufficient {
		t.Fatalf("unexpected insufficient")
	}

	wantMean := (0.8 - 0.4 + 0.0) / 3
	if math.Abs(got.MeanScore-wantMean) > 1e-9 {
		t.Fatalf("mean = %v, want %v", got.MeanScore, wantMean)
	}

	// sample stddev, n-1 denominator
	var sq float64
	for _, s := range []float64{0.8, -0.4, 0} {
		d := s - wantMean
		sq += d * d
	}
	wantSD := math.Sqrt(sq / 2)
	if math.Abs(got.Dispersion-wantSD) > 1e-9 {
		t.Fatalf("dispersion = %v, want %v", got.Dispersion, wantSD)
	}
}

func TestAggregateSingleSampleZeroDispersion(t *testing.T) {
	agg := NewTrendAggregator(0)
	got := agg.Aggregate([]models.SentimentSample{sample(models.LabelPositive, 0.7)}, "AAPL", window(t), nil)
	if got.Dispersion != 0 {
		t.Fatalf("dispersion = %v, want 0", got.Dispersion)
	}
	if got.MeanScore != 0.7 {
		t.Fatalf("mean = %v, want 0.7", got.MeanScore)
	}
}

func TestAggregateDirection(t *testing.T) {
	agg := NewTrendAggregator(0.05)
	prev := &models.TrendSignal{MeanScore: 0.2}

	cases := []struct {
		name string
		conf float64
		want models.Direction
	}{
		{"rising", 0.5, models.DirectionRising},
		{"within epsilon is flat", 0.24, models.DirectionFlat},
		{"exactly epsilon is flat", 0.25, models.DirectionFlat},
	}
	for _, tc := range cases {
		got := agg.Aggregate([]models.SentimentSample{sample(models.LabelPositive, tc.conf)}, "AAPL", window(t), prev)
		if got.Direction != tc.want {
			t.Fatalf("%s: direction = %v, want %v", tc.name, got.Direction, tc.want)
		}
	}

	got := agg.Aggregate([]models.SentimentSample{sample(models.LabelNegative, 0.5)}, "AAPL", window(t), prev)
	if got.Direction != models.DirectionFalling {
		t.Fatalf("direction = %v, want falling", got.Direction)
	}
}

func TestAggregateDirectionNoPrevious(t *testing.T) {
	agg := NewTrendAggregator(0)
	got := agg.Aggregate([]models.SentimentSample{sample(models.LabelPositive, 0.9)}, "AAPL", window(t), nil)
	if got.Direction != models.DirectionFlat {
		t.Fatalf("first window should be flat, got %v", got.Direction)
	}

	// an insufficient previous window must not feed the comparison
	insuff := &models.TrendSignal{Insufficient: true}
	got = agg.Aggregate([]models.SentimentSample{sample(models.LabelPositive, 0.9)}, "AAPL", window(t), insuff)
	if got.Direction != models.DirectionFlat {
		t.Fatalf("direction after insufficient previous = %v, want flat", got.Direction)
	}
}
