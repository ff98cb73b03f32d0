package di

import (
	"context"
	"fmt"
	"time"

	domrepo "FinTrader/internal/domain/repository"
	"FinTrader/internal/handler/api"
	mid "FinTrader/internal/middleware"
	internalrepo "FinTrader/internal/repository"
	"FinTrader/internal/services/cache"
	"FinTrader/internal/services/narrative"
	"FinTrader/internal/services/portfolio"
	"FinTrader/internal/services/ratelimit"
	"FinTrader/internal/services/risk"
	"FinTrader/internal/services/scoring"
	"FinTrader/internal/usecase"
	pkgch "FinTrader/pkg/clickhouse"
	"FinTrader/pkg/config"
	pkgkafka "FinTrader/pkg/kafka"
	applogger "FinTrader/pkg/logger"
	"FinTrader/pkg/metrics"
	"FinTrader/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTradeStore creates the ClickHouse trade store and ensures its schema.
func ProvideTradeStore(chClient *pkgch.Client, l *applogger.Logger) (domrepo.TradeStore, error) {
	store := internalrepo.NewCHTradeStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = chClient.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher creates the Kafka decision-event publisher.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.EventPublisher {
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
}

// ProvideKafkaConsumer creates the tick consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideSummaryCache picks Redis when configured, in-process memory otherwise.
func ProvideSummaryCache(cfg *config.Config) cache.BytesCache {
	if cfg.Narrative.Redis.Enabled {
		return cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Narrative.Redis.Addr,
			Password: cfg.Narrative.Redis.Password,
			DB:       cfg.Narrative.Redis.DB,
		})
	}
	return cache.NewMemory()
}

// ProvideNarrativeClient creates the narrative service client.
func ProvideNarrativeClient(cfg *config.Config, c cache.BytesCache, l *applogger.Logger) *narrative.Client {
	return narrative.NewClient(cfg, c, l)
}

// ProvidePortfolio creates the in-memory position book.
func ProvidePortfolio(cfg *config.Config, l *applogger.Logger) *portfolio.Portfolio {
	return portfolio.New(cfg, l)
}

// ProvideScorer creates the signal scorer.
func ProvideScorer(cfg *config.Config, l *applogger.Logger) *scoring.Scorer {
	return scoring.New(cfg, l)
}

// ProvideGate creates the trade validation gate backed by the book.
func ProvideGate(cfg *config.Config, book *portfolio.Portfolio, l *applogger.Logger) *risk.Gate {
	return risk.NewGate(cfg, book, l)
}

// ProvideEvaluator wires the evaluation use case.
func ProvideEvaluator(
	scorer *scoring.Scorer,
	gate *risk.Gate,
	book *portfolio.Portfolio,
	nc *narrative.Client,
	publisher domrepo.EventPublisher,
	store domrepo.TradeStore,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Evaluator {
	return usecase.NewEvaluator(scorer, gate, book, nc, publisher, store, m, l)
}

// ProvidePositionUpdater wires the tick-driven position updater.
func ProvidePositionUpdater(
	book *portfolio.Portfolio,
	publisher domrepo.EventPublisher,
	store domrepo.TradeStore,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.PositionUpdater {
	return usecase.NewPositionUpdater(book, publisher, store, m, l)
}

// ProvideTickPipeline builds the validation/throttle stage in front of the
// position updater.
func ProvideTickPipeline(updater *usecase.PositionUpdater, m domrepo.Metrics, cfg *config.Config) *mid.TickPipeline {
	return mid.NewTickPipeline(updater, m,
		mid.WithSymbols(cfg.Trading.Symbols),
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
}

// ProvideKafkaTickHandler registers the handler for the ticks topic.
func ProvideKafkaTickHandler(pipeline *mid.TickPipeline, m domrepo.Metrics, cfg *config.Config) *usecase.KafkaTickHandler {
	return usecase.NewKafkaTickHandler(cfg.Kafka.TicksTopic, pipeline, m)
}

// ProvideRateLimiter creates the per-symbol evaluation limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New(10, 2)
}

// ProvideTradingHandler creates the Echo API handler.
func ProvideTradingHandler(
	l *applogger.Logger,
	evaluator *usecase.Evaluator,
	updater *usecase.PositionUpdater,
	pipeline *mid.TickPipeline,
	book *portfolio.Portfolio,
	store domrepo.TradeStore,
	summaries cache.BytesCache,
	limiter *ratelimit.Limiter,
) *api.TradingEchoHandler {
	return api.NewTradingEchoHandler(l, evaluator, updater, pipeline, book, store, summaries, limiter)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	handler *api.TradingEchoHandler,
	pipeline *mid.TickPipeline,
	consumer *pkgkafka.Consumer,
	th *usecase.KafkaTickHandler,
	store domrepo.TradeStore,
	publisher domrepo.EventPublisher,
	l *applogger.Logger,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, handler, pipeline, consumer, th, store, publisher, l)
}
