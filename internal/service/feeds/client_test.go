package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TradeMood/internal/domain/models"
	xlogger "TradeMood/pkg/logger"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func feedServer(t *testing.T, items []map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "" {
			t.Errorf("missing symbol query param")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
	}))
}

func TestFetchFiltersAndOrders(t *testing.T) {
	w := models.WindowFor(time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC), 5*time.Minute)
	srv := feedServer(t, []map[string]interface{}{
		{"title": "late item", "published": w.Start.Add(4 * time.Minute).Format(time.RFC3339)},
		{"title": "early item", "summary": "details", "published": w.Start.Add(time.Minute).Format(time.RFC3339)},
		{"title": "outside window", "published": w.End.Add(time.Minute).Format(time.RFC3339)},
		{"summary": "", "published": w.Start.Format(time.RFC3339)}, // empty text dropped
	})
	defer srv.Close()

	c := New([]Source{{Name: "news", URL: srv.URL}}, time.Second, testLogger(t))
	got, err := c.Fetch(context.Background(), "AAPL", w)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("samples = %d, want 2", len(got))
	}
	if got[0].Text != "early item details" || got[1].Text != "late item" {
		t.Fatalf("unexpected order/text: %+v", got)
	}
	if got[0].Source != "news" {
		t.Fatalf("source = %q, want news", got[0].Source)
	}
}

func TestFetchSurvivesPartialSourceFailure(t *testing.T) {
	w := models.WindowFor(time.Now().UTC(), 5*time.Minute)
	good := feedServer(t, []map[string]interface{}{
		{"title": "only story", "published": w.Start.Format(time.RFC3339)},
	})
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	c := New([]Source{
		{Name: "down", URL: bad.URL},
		{Name: "up", URL: good.URL},
	}, time.Second, testLogger(t))

	got, err := c.Fetch(context.Background(), "AAPL", w)
	if err != nil {
		t.Fatalf("one healthy source should carry the fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("samples = %d, want 1", len(got))
	}
}

func TestFetchFailsWhenAllSourcesFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	c := New([]Source{{Name: "a", URL: bad.URL}, {Name: "b", URL: bad.URL}}, time.Second, testLogger(t))
	_, err := c.Fetch(context.Background(), "AAPL", models.WindowFor(time.Now(), 5*time.Minute))
	if !errors.Is(err, models.ErrFetch) {
		t.Fatalf("err = %v, want ErrFetch", err)
	}

	empty := New(nil, time.Second, testLogger(t))
	if _, err := empty.Fetch(context.Background(), "AAPL", models.WindowFor(time.Now(), 5*time.Minute)); !errors.Is(err, models.ErrFetch) {
		t.Fatalf("err = %v, want ErrFetch for no sources", err)
	}
}

func TestFetchRateLimitThrottlesSource(t *testing.T) {
	w := models.WindowFor(time.Now().UTC(), 5*time.Minute)
	srv := feedServer(t, []map[string]interface{}{
		{"title": "story", "published": w.Start.Format(time.RFC3339)},
	})
	defer srv.Close()

	// burst of 1 and effectively no refill: the second fetch is throttled,
	// which drains the only source but is not a hard failure
	c := New([]Source{{Name: "news", URL: srv.URL}}, time.Second, testLogger(t), WithRateLimit(1, 0.0001))

	if _, err := c.Fetch(context.Background(), "AAPL", w); err != nil {
		t.Fatalf("fetch 1: %v", err)
	}
	got, err := c.Fetch(context.Background(), "AAPL", w)
	if err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("throttled fetch should return no samples, got %d", len(got))
	}
}
