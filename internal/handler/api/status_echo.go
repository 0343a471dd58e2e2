package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"TradeMood/internal/domain/models"
	domrepo "TradeMood/internal/domain/repository"
	"TradeMood/internal/usecase"
	xhttp "TradeMood/pkg/http"
	xlogger "TradeMood/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Trigger runs a cycle on demand, outside the regular cadence.
type Trigger interface {
	TriggerNow(ctx context.Context, symbol string, now time.Time) error
}

// StatusEchoHandler serves the status API: latest trend and signal per
// instrument, current position with mark-to-market P&L, trade history out of
// storage, and a manual cycle trigger.
type StatusEchoHandler struct {
	log     *xlogger.Logger
	runner  *usecase.CycleRunner
	tracker *usecase.PositionTracker
	prices  domrepo.PriceSource
	store   domrepo.SignalStore
	trigger Trigger
}

// NewStatusEchoHandler creates the Echo status handler.
func NewStatusEchoHandler(
	log *xlogger.Logger,
	runner *usecase.CycleRunner,
	tracker *usecase.PositionTracker,
	prices domrepo.PriceSource,
	store domrepo.SignalStore,
	trigger Trigger,
) *StatusEchoHandler {
	return &StatusEchoHandler{log: log, runner: runner, tracker: tracker, prices: prices, store: store, trigger: trigger}
}

// RegisterRoutes implements pkg/http.Handler.
func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/trend", h.Trend)
	g.GET("/signal", h.Signal)
	g.GET("/position", h.Position)
	g.GET("/trades", h.Trades)
	g.GET("/signals", h.Signals)
	g.POST("/cycle", h.Cycle)
	e.GET("/healthz", h.Health)
}

// Trend returns the latest sufficient trend for a symbol.
func (h *StatusEchoHandler) Trend(c echo.Context) error {
	var req models.TrendRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	trend, ok := h.runner.LatestTrend(req.Symbol)
	if !ok {
		return xhttp.NotFoundResponse(c, "no trend for symbol")
	}
	return xhttp.SuccessResponse(c, trend)
}

// Signal returns the latest emitted trading signal for a symbol.
func (h *StatusEchoHandler) Signal(c echo.Context) error {
	var req models.SignalRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	sig, ok := h.runner.LatestSignal(req.Symbol)
	if !ok {
		return xhttp.NotFoundResponse(c, "no signal for symbol")
	}
	return xhttp.SuccessResponse(c, sig)
}

// Position returns the current position with unrealized P&L against the
// latest price. A flat position is still a valid answer.
func (h *StatusEchoHandler) Position(c echo.Context) error {
	var req models.PositionRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	pos := h.tracker.Position(req.Symbol)
	status := models.PositionStatus{Position: pos}
	if pos.State != models.PositionFlat {
		if snap, err := h.prices.Latest(c.Request().Context(), req.Symbol); err == nil {
			status.CurrentPrice = snap.Price
			status.UnrealizedPNL = pos.UnrealizedPNL(snap.Price)
		} else {
			h.log.Warn("price unavailable for position view",
				xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, status)
}

// Trades returns closed trades for a symbol from storage, newest first.
func (h *StatusEchoHandler) Trades(c echo.Context) error {
	var req models.TradesRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	now := time.Now()
	from := xhttp.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := xhttp.ParseTimeDefault(req.To, now)

	trades, err := h.store.QueryTrades(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.log.Error("trade history query failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, trades, int64(len(trades)))
}

// Signals returns the emitted signal history for a symbol from storage.
func (h *StatusEchoHandler) Signals(c echo.Context) error {
	var req models.TradesRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	now := time.Now()
	from := xhttp.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := xhttp.ParseTimeDefault(req.To, now)

	sigs, err := h.store.QuerySignals(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.log.Error("signal history query failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

// Cycle runs one pipeline cycle for a symbol immediately. Refused with a
// conflict when the market is closed or a cycle is already running.
func (h *StatusEchoHandler) Cycle(c echo.Context) error {
	var req models.CycleRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	err := h.trigger.TriggerNow(c.Request().Context(), req.Symbol, time.Now())
	switch {
	case err == nil:
		sig, _ := h.runner.LatestSignal(req.Symbol)
		return xhttp.SuccessResponse(c, sig)
	case errors.Is(err, models.ErrMarketClosed):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_MARKET_CLOSED", "", err.Error(), http.StatusConflict))
	case errors.Is(err, models.ErrCycleInFlight):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_CYCLE_IN_FLIGHT", "", err.Error(), http.StatusConflict))
	default:
		h.log.Error("manual cycle failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}

// Health reports storage health.
func (h *StatusEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Health(ctx); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_STORAGE", "", "storage unavailable", 503).WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

var _ xhttp.Handler = (*StatusEchoHandler)(nil)
