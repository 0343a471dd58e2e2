package repository

import (
	"context"

	"TradeMood/internal/domain/models"
	"TradeMood/internal/domain/repository"
	pkgkafka "TradeMood/pkg/kafka"
)

// KafkaPublisher emits signals and trades to Kafka topics, keyed by symbol so
// per-instrument ordering survives partitioning.
type KafkaPublisher struct {
	producer    *pkgkafka.Producer
	signalTopic string
	tradeTopic  string
}

// NewKafkaPublisher creates a Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, signalTopic, tradeTopic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, signalTopic: signalTopic, tradeTopic: tradeTopic}
}

func (p *KafkaPublisher) PublishSignal(ctx context.Context, s *models.TradingSignal) error {
	return p.producer.Publish(ctx, p.signalTopic, []byte(s.Symbol), map[string]interface{}{
		"symbol":     s.Symbol,
		"seq":        s.Sequence,
		"ts":         s.Timestamp.Unix(),
		"action":     string(s.Action),
		"confidence": s.Confidence,
		"mean_score": s.Trend.MeanScore,
		"direction":  string(s.Trend.Direction),
		"price":      s.Price.Price,
	})
}

func (p *KafkaPublisher) PublishTrade(ctx context.Context, t *models.Trade) error {
	return p.producer.Publish(ctx, p.tradeTopic, []byte(t.Symbol), map[string]interface{}{
		"symbol":       t.Symbol,
		"side":         string(t.Side),
		"quantity":     t.Quantity,
		"entry_price":  t.EntryPrice,
		"entry_ts":     t.EntryTime.Unix(),
		"exit_price":   t.ExitPrice,
		"exit_ts":      t.ExitTime.Unix(),
		"realized_pnl": t.RealizedPNL,
		"open_seq":     t.OpenSequence,
		"close_seq":    t.CloseSequence,
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
