package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeMood/internal/domain/models"
	domrepo "TradeMood/internal/domain/repository"
)

// RecordKind tags what a persistence record carries.
type RecordKind string

const (
	KindSample RecordKind = "sample"
	KindTrend  RecordKind = "trend"
	KindSignal RecordKind = "signal"
	KindTrade  RecordKind = "trade"
)

// Record is one pending durable write. Exactly one payload field is set,
// matching Kind.
type Record struct {
	Kind   RecordKind
	Sample *models.SentimentSample
	Trend  *models.TrendSignal
	Signal *models.TradingSignal
	Trade  *models.Trade
}

// Writer applies a record to durable storage. Writes must be idempotent
// upserts so the pipeline can retry at-least-once.
type Writer interface {
	Write(ctx context.Context, rec *Record) error
}

// PersistPipeline sits between the cycle runner and storage. A failed write
// does not fail the cycle: the record is buffered and flushed in the
// background with capped exponential backoff. Decided Position/Trade state is
// never rolled back on persistence failure; the write simply retries.
type PersistPipeline struct {
	writer  Writer
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *Record
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// PipelineOption configures a PersistPipeline.
type PipelineOption func(*PersistPipeline)

// WithBufferSize sets the retry buffer capacity.
func WithBufferSize(n int) PipelineOption {
	return func(p *PersistPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewPersistPipeline creates a pipeline in front of writer.
func NewPersistPipeline(writer Writer, metrics domrepo.Metrics, opts ...PipelineOption) *PersistPipeline {
	p := &PersistPipeline{
		writer:  writer,
		metrics: metrics,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *Record, p.bufSize)
	return p
}

// Start launches background flushing of buffered records.
func (p *PersistPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case rec := <-p.bufCh:
				if rec == nil {
					continue
				}
				if err := p.writer.Write(ctx, rec); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("persist_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- rec:
					default:
						p.metrics.RecordError("persist_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *PersistPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Persist validates and writes a record, buffering it on failure.
func (p *PersistPipeline) Persist(ctx context.Context, rec *Record) error {
	start := time.Now()
	if err := validateRecord(rec); err != nil {
		p.metrics.RecordError("persist_validate")
		return err
	}

	if err := p.writer.Write(ctx, rec); err != nil {
		p.metrics.RecordError("persist_write")
		select {
		case p.bufCh <- rec:
		default:
			p.metrics.RecordError("persist_buffer_full")
		}
		return fmt.Errorf("persist %s: %w", rec.Kind, err)
	}
	p.metrics.RecordLatency("persist_write", time.Since(start).Seconds())
	return nil
}

// Pending returns the number of buffered, not yet flushed records.
func (p *PersistPipeline) Pending() int { return len(p.bufCh) }

func validateRecord(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record nil")
	}
	switch rec.Kind {
	case KindSample:
		if rec.Sample == nil || rec.Sample.Symbol == "" {
			return fmt.Errorf("sample record invalid")
		}
	case KindTrend:
		if rec.Trend == nil || rec.Trend.Symbol == "" {
			return fmt.Errorf("trend record invalid")
		}
	case KindSignal:
		if rec.Signal == nil || rec.Signal.Symbol == "" {
			return fmt.Errorf("signal record invalid")
		}
	case KindTrade:
		if rec.Trade == nil || rec.Trade.Symbol == "" {
			return fmt.Errorf("trade record invalid")
		}
	default:
		return fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	return nil
}
