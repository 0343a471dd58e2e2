package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"TradeMood/internal/domain/repository"
	mid "TradeMood/internal/middleware"
	"TradeMood/internal/service/pricefeed"
	"TradeMood/internal/service/scheduler"
	pkgch "TradeMood/pkg/clickhouse"
	"TradeMood/pkg/config"
	xhttp "TradeMood/pkg/http"
	pkgkafka "TradeMood/pkg/kafka"
	applogger "TradeMood/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	sched      *scheduler.Scheduler
	persist    *mid.PersistPipeline
	prices     *pricefeed.Client
	consumer   *pkgkafka.Consumer
	sh         pkgkafka.MessageHandler
	chClient   *pkgch.Client
	pub        repository.Publisher
	httpServer *xhttp.Server
	handler    xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	sched *scheduler.Scheduler,
	persist *mid.PersistPipeline,
	prices *pricefeed.Client,
	consumer *pkgkafka.Consumer,
	sh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	pub repository.Publisher,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		sched:    sched,
		persist:  persist,
		prices:   prices,
		consumer: consumer,
		sh:       sh,
		chClient: chClient,
		pub:      pub,
		handler:  handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverOpts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled {
		path := a.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		serverOpts = append(serverOpts, xhttp.WithMetricsPath(path))
	}
	a.httpServer = xhttp.NewServer(a.handler, serverOpts...)

	a.persist.Start(ctx)

	// Price stream: failed first connect is non-fatal, Start reconnects.
	if err := a.prices.Connect(ctx); err != nil {
		a.log.Warn("price stream connect failed, will retry", applogger.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.prices.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return a.sched.Start(gctx)
	})

	if a.consumer != nil && a.sh != nil {
		a.consumer.RegisterHandler(a.sh)
		g.Go(func() error {
			return a.consumer.Start()
		})
		a.log.Info("kafka consumer started", applogger.String("topic", a.sh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("pipeline started",
		applogger.Strings("symbols", a.cfg.Symbols()),
		applogger.String("cadence", a.cfg.Pipeline.Cadence),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		a.log.Info("shutdown signal received")
	case <-gctx.Done():
		a.log.Warn("component failed, shutting down", applogger.Error(gctx.Err()))
	}

	err := a.shutdown(context.Background())
	cancel()
	_ = g.Wait()
	return err
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.sched.Stop(shutdownCtx); err != nil {
		a.log.Warn("scheduler stop error", applogger.Error(err))
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.prices.Close(); err != nil {
		a.log.Warn("price stream close error", applogger.Error(err))
	}

	if a.persist.Pending() > 0 {
		a.log.Warn("persistence buffer not empty at shutdown", applogger.Int("pending", a.persist.Pending()))
	}
	a.persist.Stop()

	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
