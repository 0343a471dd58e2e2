package repository

import (
	"context"

	pkgkafka "TradeMood/pkg/kafka"
	applogger "TradeMood/pkg/logger"
)

// LogPublisher ships aggregated error logs to a Kafka topic.
type LogPublisher struct {
	producer *pkgkafka.Producer
}

// NewLogPublisher adapts the Kafka producer to the logger's collector.
func NewLogPublisher(producer *pkgkafka.Producer) *LogPublisher {
	return &LogPublisher{producer: producer}
}

func (p *LogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

var _ applogger.Publisher = (*LogPublisher)(nil)
