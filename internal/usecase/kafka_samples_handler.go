package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TradeMood/internal/domain/models"
	domrepo "TradeMood/internal/domain/repository"
	pkgkafka "TradeMood/pkg/kafka"
)

// KafkaSamplesHandler consumes pre-scored sentiment samples from Kafka and
// writes them to storage. This is the push-based ingest path: an external
// scorer can publish samples instead of being polled through the feeds.
type KafkaSamplesHandler struct {
	topic   string
	store   domrepo.SignalStore
	metrics domrepo.Metrics
}

func NewKafkaSamplesHandler(topic string, store domrepo.SignalStore, metrics domrepo.Metrics) *KafkaSamplesHandler {
	return &KafkaSamplesHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaSamplesHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, source, ts, label, confidence}
func (h *KafkaSamplesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol     string  `json:"symbol"`
		Source     string  `json:"source"`
		TS         int64   `json:"ts"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.TS > 1e11 { // ms
		m.TS = m.TS / 1000
	}
	label := models.Label(m.Label)
	if !label.IsValid() || m.Confidence < 0 || m.Confidence > 1 {
		h.metrics.RecordError("consumer_invalid_sample")
		return fmt.Errorf("invalid sample: label=%q confidence=%v", m.Label, m.Confidence)
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.TS, 0)).Seconds())

	start := time.Now()
	err := h.store.StoreSample(ctx, &models.SentimentSample{
		Symbol:     m.Symbol,
		Source:     m.Source,
		Timestamp:  time.Unix(m.TS, 0),
		Label:      label,
		Confidence: m.Confidence,
	})
	h.metrics.RecordLatency("sample_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSamplesHandler)(nil)
