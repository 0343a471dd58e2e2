package scoring

import (
	"context"
	"fmt"
	"time"

	"TradeMood/internal/domain/models"
	domrepo "TradeMood/internal/domain/repository"
	imetrics "TradeMood/internal/service/metrics"
	xhttp "TradeMood/pkg/http"
)

// Client calls the external sentiment-model HTTP service. The model is a
// collaborator, not part of the core: a failure here skips the sample, never
// the cycle.
type Client struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
}

// New creates a scoring client. timeout bounds one inference call.
func New(baseURL string, timeout time.Duration, attempts int) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if attempts <= 0 {
		attempts = 2
	}
	return &Client{
		baseURL:  baseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		attempts: attempts,
	}
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Score implements the domain Scorer interface.
func (c *Client) Score(ctx context.Context, text string) (models.Label, float64, error) {
	if c.baseURL == "" {
		return "", 0, fmt.Errorf("%w: scoring service not configured", models.ErrScore)
	}

	start := time.Now()
	defer func() { imetrics.CollaboratorLatency.WithLabelValues("scoring").Observe(time.Since(start).Seconds()) }()

	var sr scoreResponse
	var err error
	for i := 1; i <= c.attempts; i++ {
		err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodPost,
			URL:     c.baseURL + "/score",
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    scoreRequest{Text: text},
		}, &sr)
		if err == nil {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return "", 0, fmt.Errorf("%w: %v", models.ErrScore, ctx.Err())
		}
	}
	if err != nil {
		imetrics.CollaboratorErrors.WithLabelValues("scoring").Inc()
		return "", 0, fmt.Errorf("%w: %v", models.ErrScore, err)
	}

	label := models.Label(sr.Label)
	if !label.IsValid() {
		return "", 0, fmt.Errorf("%w: unknown label %q", models.ErrScore, sr.Label)
	}
	if sr.Confidence < 0 || sr.Confidence > 1 {
		return "", 0, fmt.Errorf("%w: confidence %v out of range", models.ErrScore, sr.Confidence)
	}
	return label, sr.Confidence, nil
}

var _ domrepo.Scorer = (*Client)(nil)
