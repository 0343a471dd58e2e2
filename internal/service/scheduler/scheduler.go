package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeMood/internal/domain/models"
	domrepo "TradeMood/internal/domain/repository"
	xlogger "TradeMood/pkg/logger"
)

// Runner executes one pipeline cycle for an instrument.
type Runner interface {
	Run(ctx context.Context, symbol string, now time.Time) error
}

// Scheduler drives one cycle per configured instrument on a fixed cadence,
// gated by the trading-session calendar. Instruments run in parallel;
// cycles for the same instrument never overlap. A cycle still running when
// the next tick fires is skipped, never queued.
type Scheduler struct {
	runner   Runner
	calendar domrepo.Calendar
	metrics  domrepo.Metrics
	logger   *xlogger.Logger
	symbols  []string
	cadence  time.Duration

	mu       sync.Mutex
	wg       sync.WaitGroup
	inFlight map[string]bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
}

// New creates a scheduler over the given instruments.
func New(runner Runner, calendar domrepo.Calendar, metrics domrepo.Metrics, logger *xlogger.Logger, symbols []string, cadence time.Duration) *Scheduler {
	if cadence <= 0 {
		cadence = 5 * time.Minute
	}
	return &Scheduler{
		runner:   runner,
		calendar: calendar,
		metrics:  metrics,
		logger:   logger,
		symbols:  symbols,
		cadence:  cadence,
		inFlight: make(map[string]bool),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins ticking. The first round fires immediately; subsequent rounds
// follow the cadence. Blocks until Stop or ctx cancellation; run it in a
// goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()

	s.tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

// Stop halts ticking and waits for in-flight cycles to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	close(s.stopCh)

	flushed := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(flushed)
	}()
	select {
	case <-s.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tick launches one round of cycles, one goroutine per open instrument, and
// returns without waiting so a slow cycle can never stall the ticker. The
// in-flight guard makes a still-running instrument skip the round.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, symbol := range s.symbols {
		if !s.calendar.IsOpen(symbol, now) {
			s.metrics.RecordCycle(symbol, "closed")
			s.logger.Debug("market closed", xlogger.String("symbol", symbol))
			continue
		}
		if !s.acquire(symbol) {
			s.metrics.RecordCycle(symbol, "skipped")
			s.logger.Warn("cycle still in flight, skipping tick", xlogger.String("symbol", symbol))
			continue
		}
		sym := symbol
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(sym)
			if err := s.runner.Run(ctx, sym, now); err != nil {
				// a failed cycle means no new signal this period; the
				// scheduler keeps going
				s.logger.Error("cycle failed", xlogger.String("symbol", sym), xlogger.Error(err))
			}
		}()
	}
}

// TriggerNow runs one cycle for symbol outside the regular cadence,
// synchronously. The same guards apply as on a tick: a closed market or a
// still-running cycle refuses the trigger instead of queueing it.
func (s *Scheduler) TriggerNow(ctx context.Context, symbol string, now time.Time) error {
	if !s.calendar.IsOpen(symbol, now) {
		s.metrics.RecordCycle(symbol, "closed")
		return fmt.Errorf("%w: %s at %s", models.ErrMarketClosed, symbol, now.Format(time.RFC3339))
	}
	if !s.acquire(symbol) {
		s.metrics.RecordCycle(symbol, "skipped")
		return fmt.Errorf("%w: %s", models.ErrCycleInFlight, symbol)
	}
	defer s.release(symbol)
	return s.runner.Run(ctx, symbol, now)
}

func (s *Scheduler) acquire(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[symbol] {
		return false
	}
	s.inFlight[symbol] = true
	return true
}

func (s *Scheduler) release(symbol string) {
	s.mu.Lock()
	delete(s.inFlight, symbol)
	s.mu.Unlock()
}
