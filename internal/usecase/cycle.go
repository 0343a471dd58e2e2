package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TradeMood/internal/domain/models"
	domrepo "TradeMood/internal/domain/repository"
	"TradeMood/internal/middleware"
	icache "TradeMood/internal/service/cache"
	xlogger "TradeMood/pkg/logger"
)

// CycleConfig tunes one pipeline cycle.
type CycleConfig struct {
	Cadence      time.Duration // window size and tick interval
	Timeout      time.Duration // hard deadline per cycle
	FetchRetries int           // bounded attempts for the sample fetch
	FetchBackoff time.Duration // base backoff between fetch attempts
}

// CycleRunner executes one pipeline cycle per instrument: fetch -> score ->
// aggregate (through the dedup cache) -> decide -> track -> persist/publish.
// Cycles for one instrument are serialized by the scheduler; the runner only
// guards its per-instrument bookkeeping.
type CycleRunner struct {
	source  domrepo.SampleSource
	scorer  domrepo.Scorer
	prices  domrepo.PriceSource
	cache   *icache.TrendCache
	agg     *TrendAggregator
	policy  *SignalPolicy
	tracker *PositionTracker
	persist *middleware.PersistPipeline
	pub     domrepo.Publisher
	metrics domrepo.Metrics
	logger  *xlogger.Logger
	cfg     CycleConfig

	mu     sync.Mutex
	states map[string]*instrumentState
}

// instrumentState is the per-instrument bookkeeping that survives cycles.
type instrumentState struct {
	seq        uint64
	lastTrend  *models.TrendSignal  // previous window, for direction
	lastSignal *models.TradingSignal // latest emitted signal
	lastAction *models.TradingSignal // latest non-HOLD signal, for hysteresis
}

// NewCycleRunner wires a runner. pub may be nil (publishing disabled).
func NewCycleRunner(
	source domrepo.SampleSource,
	scorer domrepo.Scorer,
	prices domrepo.PriceSource,
	cache *icache.TrendCache,
	agg *TrendAggregator,
	policy *SignalPolicy,
	tracker *PositionTracker,
	persist *middleware.PersistPipeline,
	pub domrepo.Publisher,
	metrics domrepo.Metrics,
	logger *xlogger.Logger,
	cfg CycleConfig,
) *CycleRunner {
	if cfg.Cadence <= 0 {
		cfg.Cadence = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Cadence / 2
	}
	if cfg.FetchRetries <= 0 {
		cfg.FetchRetries = 3
	}
	if cfg.FetchBackoff <= 0 {
		cfg.FetchBackoff = 500 * time.Millisecond
	}
	return &CycleRunner{
		source:  source,
		scorer:  scorer,
		prices:  prices,
		cache:   cache,
		agg:     agg,
		policy:  policy,
		tracker: tracker,
		persist: persist,
		pub:     pub,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		states:  make(map[string]*instrumentState),
	}
}

// Run executes one cycle for symbol at the tick time now. A failed cycle
// leaves position and hysteresis state untouched; its sequence number is
// burned so gaps stay observable while order never reverses.
func (r *CycleRunner) Run(ctx context.Context, symbol string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	st := r.state(symbol)
	window := models.WindowFor(now, r.cfg.Cadence)
	seq := r.nextSeq(st)

	prevTrend := r.previousTrend(st)
	trend, err := r.cache.GetOrCompute(ctx, symbol, window, func(cctx context.Context) (models.TrendSignal, error) {
		return r.computeTrend(cctx, symbol, window, prevTrend)
	})
	if err != nil {
		r.metrics.RecordCycle(symbol, "failed")
		r.metrics.RecordError("cycle_trend")
		return fmt.Errorf("cycle %s seq %d: %w", symbol, seq, err)
	}

	price, err := r.prices.Latest(ctx, symbol)
	if err != nil {
		r.metrics.RecordCycle(symbol, "failed")
		r.metrics.RecordError("cycle_price")
		return fmt.Errorf("cycle %s seq %d price: %w", symbol, seq, err)
	}
	r.metrics.RecordLastPrice(symbol, price.Price)

	sig := r.policy.Decide(trend, price, r.hysteresisPrior(st))
	sig.Sequence = seq

	trade, err := r.tracker.Apply(&sig)
	if err != nil {
		// contract violation; the policy only emits valid actions
		r.logger.Error("invalid transition", xlogger.String("symbol", symbol), xlogger.Error(err))
		r.metrics.RecordError("invalid_transition")
		return err
	}

	r.commit(st, trend, sig)
	r.metrics.RecordSignal(symbol, string(sig.Action))
	if trade != nil {
		r.metrics.RecordTrade(symbol, string(trade.Side), trade.RealizedPNL)
	}

	// durable writes ride the retry pipeline; a slow store cannot fail the
	// already-committed decision
	_ = r.persist.Persist(ctx, &middleware.Record{Kind: middleware.KindSignal, Signal: &sig})
	if trade != nil {
		_ = r.persist.Persist(ctx, &middleware.Record{Kind: middleware.KindTrade, Trade: trade})
	}
	r.publish(ctx, &sig, trade)

	r.metrics.RecordCycle(symbol, "ok")
	r.metrics.RecordLatency("cycle", time.Since(start).Seconds())
	r.logger.Info("cycle complete",
		xlogger.String("symbol", symbol),
		xlogger.Int64("seq", int64(seq)),
		xlogger.String("action", string(sig.Action)),
		xlogger.Float64("mean_score", trend.MeanScore),
		xlogger.Int("samples", trend.SampleCount),
	)
	return nil
}

// computeTrend is the expensive path behind the cache: fetch with bounded
// retries, score sample by sample, aggregate, persist the trend.
func (r *CycleRunner) computeTrend(ctx context.Context, symbol string, window models.Window, prev *models.TrendSignal) (models.TrendSignal, error) {
	raw, err := r.fetchWithRetry(ctx, symbol, window)
	if err != nil {
		return models.TrendSignal{}, err
	}

	samples := make([]models.SentimentSample, 0, len(raw))
	for _, rs := range raw {
		label, conf, err := r.scorer.Score(ctx, rs.Text)
		if err != nil {
			// model unavailable for this sample; skip it, keep the cycle
			r.metrics.RecordError("score_skip")
			r.logger.Warn("score failed", xlogger.String("symbol", symbol), xlogger.String("source", rs.Source), xlogger.Error(err))
			continue
		}
		s := models.SentimentSample{
			Symbol:     symbol,
			Source:     rs.Source,
			Timestamp:  rs.Timestamp,
			Label:      label,
			Confidence: conf,
		}
		samples = append(samples, s)
		_ = r.persist.Persist(ctx, &middleware.Record{Kind: middleware.KindSample, Sample: &s})
	}

	trend := r.agg.Aggregate(samples, symbol, window, prev)
	if trend.Insufficient {
		r.logger.Warn("suppressing signal for window",
			xlogger.String("symbol", symbol),
			xlogger.Int("fetched", len(raw)),
			xlogger.Error(models.ErrInsufficientData),
		)
	}
	_ = r.persist.Persist(ctx, &middleware.Record{Kind: middleware.KindTrend, Trend: &trend})
	return trend, nil
}

func (r *CycleRunner) fetchWithRetry(ctx context.Context, symbol string, window models.Window) ([]models.RawSample, error) {
	backoff := r.cfg.FetchBackoff
	var lastErr error
	for attempt := 0; attempt < r.cfg.FetchRetries; attempt++ {
		raw, err := r.source.Fetch(ctx, symbol, window)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		r.metrics.RecordError("fetch_retry")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", models.ErrFetch, ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 10*time.Second {
			backoff *= 2
		}
	}
	if !errors.Is(lastErr, models.ErrFetch) {
		lastErr = fmt.Errorf("%w: %v", models.ErrFetch, lastErr)
	}
	return nil, lastErr
}

func (r *CycleRunner) publish(ctx context.Context, sig *models.TradingSignal, trade *models.Trade) {
	if r.pub == nil {
		return
	}
	if err := r.pub.PublishSignal(ctx, sig); err != nil {
		r.metrics.RecordError("publish_signal")
		r.logger.Warn("publish signal failed", xlogger.String("symbol", sig.Symbol), xlogger.Error(err))
	}
	if trade != nil {
		if err := r.pub.PublishTrade(ctx, trade); err != nil {
			r.metrics.RecordError("publish_trade")
			r.logger.Warn("publish trade failed", xlogger.String("symbol", trade.Symbol), xlogger.Error(err))
		}
	}
}

func (r *CycleRunner) state(symbol string) *instrumentState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[symbol]
	if !ok {
		st = &instrumentState{}
		r.states[symbol] = st
	}
	return st
}

func (r *CycleRunner) nextSeq(st *instrumentState) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	st.seq++
	return st.seq
}

func (r *CycleRunner) previousTrend(st *instrumentState) *models.TrendSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return st.lastTrend
}

// hysteresisPrior returns the latest non-HOLD signal: HOLD cycles must not
// erase the reversal band of an earlier BUY/SELL.
func (r *CycleRunner) hysteresisPrior(st *instrumentState) *models.TradingSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return st.lastAction
}

func (r *CycleRunner) commit(st *instrumentState, trend models.TrendSignal, sig models.TradingSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !trend.Insufficient {
		st.lastTrend = &trend
	}
	st.lastSignal = &sig
	if sig.Action != models.ActionHold {
		st.lastAction = &sig
	}
}

// LatestSignal returns the most recent emitted signal for symbol, if any.
func (r *CycleRunner) LatestSignal(symbol string) (models.TradingSignal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[symbol]
	if !ok || st.lastSignal == nil {
		return models.TradingSignal{}, false
	}
	return *st.lastSignal, true
}

// LatestTrend returns the most recent sufficient trend for symbol, if any.
func (r *CycleRunner) LatestTrend(symbol string) (models.TrendSignal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[symbol]
	if !ok || st.lastTrend == nil {
		return models.TrendSignal{}, false
	}
	return *st.lastTrend, true
}
