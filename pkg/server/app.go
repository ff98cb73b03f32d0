package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "FinTrader/internal/domain/repository"
	"FinTrader/internal/handler/api"
	mid "FinTrader/internal/middleware"
	"FinTrader/internal/usecase"
	"FinTrader/pkg/config"
	xhttp "FinTrader/pkg/http"
	pkgkafka "FinTrader/pkg/kafka"
	applogger "FinTrader/pkg/logger"
)

// App encapsulates the application lifecycle: the HTTP API, the Kafka tick
// consumer, the tick pipeline flush loop, and graceful teardown of the
// storage and messaging clients.
type App struct {
	cfg        *config.Config
	handler    *api.TradingEchoHandler
	pipeline   *mid.TickPipeline
	consumer   *pkgkafka.Consumer
	th         *usecase.KafkaTickHandler
	store      domrepo.TradeStore
	publisher  domrepo.EventPublisher
	httpServer *xhttp.Server
	log        *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	handler *api.TradingEchoHandler,
	pipeline *mid.TickPipeline,
	consumer *pkgkafka.Consumer,
	th *usecase.KafkaTickHandler,
	store domrepo.TradeStore,
	publisher domrepo.EventPublisher,
	log *applogger.Logger,
) *App {
	return &App{
		cfg:       cfg,
		handler:   handler,
		pipeline:  pipeline,
		consumer:  consumer,
		th:        th,
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetricsLogger(a.log, 500*time.Millisecond),
	)

	a.pipeline.Start(ctx)
	a.log.Info("tick pipeline started",
		applogger.Strings("symbols", a.cfg.Trading.Symbols))

	if a.consumer != nil && a.th != nil {
		a.consumer.RegisterHandler(a.th)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.th.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.pipeline.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("trade store close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
