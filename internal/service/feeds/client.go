package feeds

import (
	"context"
	"fmt"
	"sort"
	"time"

	"TradeMood/internal/domain/models"
	domrepo "TradeMood/internal/domain/repository"
	imetrics "TradeMood/internal/service/metrics"
	"TradeMood/internal/service/ratelimit"
	xhttp "TradeMood/pkg/http"
	xlogger "TradeMood/pkg/logger"
)

// Source is one upstream feed endpoint returning text items for a symbol.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Client aggregates raw samples from multiple feed sources. Sources that fail
// are skipped; the fetch fails only when every source fails, wrapped around
// models.ErrFetch so the cycle retries it as transient.
type Client struct {
	sources []Source
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	logger  *xlogger.Logger

	// token bucket per source
	burst      float64
	refillRate float64
}

// ClientOption configures a feeds client.
type ClientOption func(*Client)

// WithRateLimit sets the per-source token bucket (burst capacity and
// sustained requests per second).
func WithRateLimit(burst, perSec float64) ClientOption {
	return func(c *Client) {
		if burst > 0 {
			c.burst = burst
		}
		if perSec > 0 {
			c.refillRate = perSec
		}
	}
}

// New creates a feeds client over the configured sources.
func New(sources []Source, timeout time.Duration, logger *xlogger.Logger, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		sources:    sources,
		client:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:    ratelimit.New(),
		logger:     logger,
		burst:      5,
		refillRate: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type feedItem struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Published time.Time `json:"published"`
}

type feedResponse struct {
	Items []feedItem `json:"items"`
}

// Fetch implements the domain SampleSource interface. Items outside the
// window are dropped; the result is ordered by timestamp.
func (c *Client) Fetch(ctx context.Context, symbol string, window models.Window) ([]models.RawSample, error) {
	if len(c.sources) == 0 {
		return nil, fmt.Errorf("%w: no feed sources configured", models.ErrFetch)
	}

	var out []models.RawSample
	failures := 0
	for _, src := range c.sources {
		if !c.limiter.Allow(src.Name, c.burst, c.refillRate) {
			c.logger.Warn("feed source throttled", xlogger.String("source", src.Name))
			continue
		}
		items, err := c.fetchSource(ctx, src, symbol, window)
		if err != nil {
			failures++
			c.logger.Warn("feed source failed", xlogger.String("source", src.Name), xlogger.Error(err))
			continue
		}
		out = append(out, items...)
	}
	if failures == len(c.sources) {
		return nil, fmt.Errorf("%w: all %d sources failed", models.ErrFetch, failures)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (c *Client) fetchSource(ctx context.Context, src Source, symbol string, window models.Window) ([]models.RawSample, error) {
	start := time.Now()
	defer func() { imetrics.CollaboratorLatency.WithLabelValues("feed_" + src.Name).Observe(time.Since(start).Seconds()) }()

	var fr feedResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    src.URL,
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"from":   {window.Start.UTC().Format(time.RFC3339)},
			"to":     {window.End.UTC().Format(time.RFC3339)},
		},
	}, &fr)
	if err != nil {
		imetrics.CollaboratorErrors.WithLabelValues("feed_" + src.Name).Inc()
		return nil, err
	}

	samples := make([]models.RawSample, 0, len(fr.Items))
	for _, it := range fr.Items {
		ts := it.Published
		if ts.IsZero() {
			ts = window.Start
		}
		if !window.Contains(ts) {
			continue
		}
		text := it.Title
		if it.Summary != "" {
			text += " " + it.Summary
		}
		if text == "" {
			continue
		}
		samples = append(samples, models.RawSample{
			Source:    src.Name,
			Timestamp: ts,
			Text:      text,
		})
	}
	return samples, nil
}

var _ domrepo.SampleSource = (*Client)(nil)
