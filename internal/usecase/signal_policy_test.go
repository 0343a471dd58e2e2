package usecase

import (
	"math"
	"testing"
	"time"

	"TradeMood/internal/domain/models"
)

func trend(mean, dispersion float64, dir models.Direction) models.TrendSignal {
	return models.TrendSignal{
		Symbol:      "AAPL",
		Window:      models.WindowFor(time.Now(), 5*time.Minute),
		SampleCount: 10,
		MeanScore:   mean,
		Dispersion:  dispersion,
		Direction:   dir,
	}
}

func priorSignal(action models.Action) *models.TradingSignal {
	return &models.TradingSignal{Symbol: "AAPL", Action: action}
}

var testPrice = models.PriceSnapshot{Symbol: "AAPL", Price: 190.5, Timestamp: time.Now()}

func TestDecideThresholds(t *testing.T) {
	p := NewSignalPolicy(DefaultPolicyConfig())

	cases := []struct {
		name string
		mean float64
		dir  models.Direction
		want models.Action
	}{
		{"strong positive", 0.6, models.DirectionRising, models.ActionBuy},
		{"exactly at buy threshold", 0.3, models.DirectionFlat, models.ActionBuy},
		{"below buy threshold", 0.29, models.DirectionRising, models.ActionHold},
		{"strong negative", -0.6, models.DirectionFalling, models.ActionSell},
		{"exactly at sell threshold", -0.3, models.DirectionFlat, models.ActionSell},
		{"above sell threshold", -0.29, models.DirectionFalling, models.ActionHold},
		{"neutral", 0.0, models.DirectionFlat, models.ActionHold},
	}
	for _, tc := range cases {
		got := p.Decide(trend(tc.mean, 0, tc.dir), testPrice, nil)
		if got.Action != tc.want {
			t.Fatalf("%s: action = %v, want %v", tc.name, got.Action, tc.want)
		}
	}
}

// Ten samples, seven positive at 0.6 and three negative at 0.4, average to a
// mean of exactly +0.30 and must produce BUY at the default threshold.
func TestDecideMixedBatchAtThreshold(t *testing.T) {
	agg := NewTrendAggregator(0)
	var samples []models.SentimentSample
	for i := 0; i < 7; i++ {
		samples = append(samples, sample(models.LabelPositive, 0.6))
	}
	for i := 0; i < 3; i++ {
		samples = append(samples, sample(models.LabelNegative, 0.4))
	}
	tr := agg.Aggregate(samples, "AAPL", models.WindowFor(time.Now(), 5*time.Minute), nil)
	if math.Abs(tr.MeanScore-0.30) > 1e-9 {
		t.Fatalf("mean = %v, want 0.30", tr.MeanScore)
	}

	p := NewSignalPolicy(DefaultPolicyConfig())
	got := p.Decide(tr, testPrice, nil)
	if got.Action != models.ActionBuy {
		t.Fatalf("action = %v, want BUY", got.Action)
	}
	if got.Confidence <= 0 {
		t.Fatalf("confidence = %v, want > 0", got.Confidence)
	}
}

func TestDecideDirectionGate(t *testing.T) {
	p := NewSignalPolicy(DefaultPolicyConfig())

	// mean clears the threshold but momentum contradicts it
	if got := p.Decide(trend(0.5, 0, models.DirectionFalling), testPrice, nil); got.Action != models.ActionHold {
		t.Fatalf("falling BUY: action = %v, want HOLD", got.Action)
	}
	if got := p.Decide(trend(-0.5, 0, models.DirectionRising), testPrice, nil); got.Action != models.ActionHold {
		t.Fatalf("rising SELL: action = %v, want HOLD", got.Action)
	}
	// flat direction does not block either side
	if got := p.Decide(trend(0.5, 0, models.DirectionFlat), testPrice, nil); got.Action != models.ActionBuy {
		t.Fatalf("flat BUY: action = %v, want BUY", got.Action)
	}
}

func TestDecideHysteresis(t *testing.T) {
	p := NewSignalPolicy(DefaultPolicyConfig()) // buy 0.3, band 0.1

	cases := []struct {
		name  string
		mean  float64
		prior *models.TradingSignal
		want  models.Action
	}{
		{"reversal below widened threshold", 0.35, priorSignal(models.ActionSell), models.ActionHold},
		{"reversal exactly at widened threshold", 0.4, priorSignal(models.ActionSell), models.ActionHold},
		{"reversal beyond widened threshold", 0.45, priorSignal(models.ActionSell), models.ActionBuy},
		{"same side keeps base threshold", 0.3, priorSignal(models.ActionBuy), models.ActionBuy},
		{"sell reversal below widened threshold", -0.35, priorSignal(models.ActionBuy), models.ActionHold},
		{"sell reversal beyond widened threshold", -0.45, priorSignal(models.ActionBuy), models.ActionSell},
		{"hold prior does not widen", 0.3, priorSignal(models.ActionHold), models.ActionBuy},
	}
	for _, tc := range cases {
		got := p.Decide(trend(tc.mean, 0, models.DirectionFlat), testPrice, tc.prior)
		if got.Action != tc.want {
			t.Fatalf("%s: action = %v, want %v", tc.name, got.Action, tc.want)
		}
	}
}

func TestDecideInsufficientFailsClosed(t *testing.T) {
	p := NewSignalPolicy(DefaultPolicyConfig())
	tr := trend(0.9, 0, models.DirectionRising)
	tr.Insufficient = true

	got := p.Decide(tr, testPrice, nil)
	if got.Action != models.ActionHold {
		t.Fatalf("action = %v, want HOLD", got.Action)
	}
	if got.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", got.Confidence)
	}
}

func TestDecideConfidence(t *testing.T) {
	p := NewSignalPolicy(DefaultPolicyConfig())

	// dispersion discounts confidence
	got := p.Decide(trend(0.8, 0.5, models.DirectionFlat), testPrice, nil)
	if math.Abs(got.Confidence-0.4) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.4", got.Confidence)
	}

	// zero dispersion passes |mean| through
	got = p.Decide(trend(-0.8, 0, models.DirectionFlat), testPrice, nil)
	if got.Action != models.ActionSell {
		t.Fatalf("action = %v, want SELL", got.Action)
	}
	if math.Abs(got.Confidence-0.8) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.8", got.Confidence)
	}

	// HOLD always carries zero confidence
	got = p.Decide(trend(0.1, 0, models.DirectionFlat), testPrice, nil)
	if got.Confidence != 0 {
		t.Fatalf("hold confidence = %v, want 0", got.Confidence)
	}
}
