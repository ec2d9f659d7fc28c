package di

import (
	"context"
	"fmt"
	"time"

	domrepo "FinRisk/internal/domain/repository"
	domsvc "FinRisk/internal/domain/service"
	"FinRisk/internal/handler/api"
	internalrepo "FinRisk/internal/repository"
	"FinRisk/internal/service/ratelimit"
	"FinRisk/internal/services/analytics"
	"FinRisk/internal/usecase"
	"FinRisk/pkg/cache"
	pkgch "FinRisk/pkg/clickhouse"
	"FinRisk/pkg/config"
	xhttp "FinRisk/pkg/http"
	pkgkafka "FinRisk/pkg/kafka"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/metrics"
	"FinRisk/pkg/queue"
	"FinRisk/pkg/server"

	"github.com/redis/go-redis/v9"
)

// Caches groups the cache backends handed to the use case.
type Caches struct {
	// Shared holds submissions and refresh locks.
	Shared cache.Service
	// AI memoizes forecaster responses.
	AI cache.Service
}

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics registers collectors on the default registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(nil)
}

// ProvideRedisClient connects to Redis when storage or the queue needs it,
// and returns nil otherwise.
func ProvideRedisClient(cfg *config.Config, log *applogger.Logger) (*redis.Client, func(), error) {
	if cfg.Storage.Backend != config.StorageRedis && !cfg.Queue.Enabled {
		return nil, func() {}, nil
	}
	client, err := cache.Dial(context.Background(),
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisDialTimeout(cfg.Redis.DialTimeout),
	)
	if err != nil {
		return nil, nil, err
	}
	log.Info("redis connected", applogger.String("addr", cfg.Redis.Addr))
	return client, func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close", applogger.Error(err))
		}
	}, nil
}

// ProvideCaches picks Redis-backed caches when storage is redis. The AI cache
// then keeps a short in-process copy in front of Redis.
func ProvideCaches(cfg *config.Config, client *redis.Client) (Caches, func()) {
	if cfg.Storage.Backend == config.StorageRedis && client != nil {
		shared := cache.NewRedisCache(client, "finrisk")
		ai := cache.NewLayeredCache(shared, 30*time.Second)
		return Caches{Shared: shared, AI: ai}, func() { _ = ai.Close() }
	}
	shared := cache.NewMemoryCache(cache.WithMemoryMaxSize(10000))
	ai := cache.NewMemoryCache(
		cache.WithMemoryCleanup(time.Minute),
		cache.WithMemoryDefaultTTL(cfg.Forecast.AICacheTTL),
	)
	return Caches{Shared: shared, AI: ai}, func() {
		_ = shared.Close()
		_ = ai.Close()
	}
}

// ProvideSubmissionStore selects the store for storage.backend and prepares
// its schema.
func ProvideSubmissionStore(cfg *config.Config, caches Caches, log *applogger.Logger) (domrepo.SubmissionStore, func(), error) {
	if cfg.Storage.Backend != config.StorageClickHouse {
		// cache-backed stores share the cache lifecycle
		return internalrepo.NewCacheSubmissionStore(caches.Shared, 0), func() {}, nil
	}

	ch, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithDialTimeout(cfg.ClickHouse.DialTimeout),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithCreateDatabase(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	store := internalrepo.NewCHSubmissionStore(ch, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn("clickhouse close", applogger.Error(err))
		}
	}, nil
}

// ProvideQueue builds the Redis list queue, or nil when disabled.
func ProvideQueue(cfg *config.Config, client *redis.Client, log *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || client == nil {
		return nil
	}
	return queue.NewRedisQueue(log, queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		MaxPending: cfg.Queue.MaxPending,
	}, client,
		queue.WithKeyPrefix(cfg.Queue.Prefix),
		queue.WithPermanentErrors(pkgkafka.ErrPermanent),
	)
}

// ProvideKafkaProducer creates a producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	p, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.AutoCreateTopics),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, func() {
		if err := p.Close(); err != nil {
			log.Warn("kafka producer close", applogger.Error(err))
		}
	}, nil
}

// ProvideEventPublisher prefers Kafka, then the Redis queue.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, q *queue.RedisQueue) domrepo.EventPublisher {
	switch {
	case producer != nil:
		return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.SubmissionsTopic)
	case q != nil:
		return internalrepo.NewQueueEventPublisher(q)
	default:
		return internalrepo.NopEventPublisher{}
	}
}

func ProvideAnalyticsBase(cfg *config.Config, log *applogger.Logger) *analytics.HTTPServiceBase {
	return analytics.NewHTTPServiceBase(cfg, analytics.WithLogger(log))
}

func ProvideMarketData(base *analytics.HTTPServiceBase) domsvc.MarketData {
	return analytics.NewHTTPMarketData(base)
}

func ProvideAIForecaster(base *analytics.HTTPServiceBase) domsvc.AIForecaster {
	return analytics.NewHTTPAIForecaster(base)
}

func ProvidePredictionSink(base *analytics.HTTPServiceBase) domsvc.PredictionSink {
	return analytics.NewHTTPPredictionSink(base)
}

func ProvideBoardRegistry(cfg *config.Config) *usecase.BoardRegistry {
	return usecase.NewBoardRegistry(cfg.Forecast.Steps, cfg.Forecast.BoardTTL)
}

// ProvideForecastUseCase wires the board engine.
func ProvideForecastUseCase(
	cfg *config.Config,
	market domsvc.MarketData,
	ai domsvc.AIForecaster,
	sink domsvc.PredictionSink,
	store domrepo.SubmissionStore,
	events domrepo.EventPublisher,
	m *metrics.Recorder,
	caches Caches,
	boards *usecase.BoardRegistry,
	log *applogger.Logger,
) *usecase.ForecastUseCase {
	return usecase.NewForecastUseCase(market, ai, sink, store, events, m, caches.AI, boards, usecase.Options{
		Step:         cfg.Forecast.Step,
		OpenWait:     cfg.Forecast.OpenWait,
		FetchTimeout: fetchTimeout(cfg),
		AICacheTTL:   cfg.Forecast.AICacheTTL,
	}, log)
}

func ProvideActualCandlesHandler(cfg *config.Config, uc *usecase.ForecastUseCase, m *metrics.Recorder, log *applogger.Logger) *usecase.ActualCandlesHandler {
	return usecase.NewActualCandlesHandler(cfg.Kafka.ActualTopic, uc, m, log)
}

// ProvideKafkaConsumer subscribes the actual-candle handler, or returns nil
// when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, h *usecase.ActualCandlesHandler, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	c.RegisterHandler(h)
	return c, nil
}

func ProvideRefresher(cfg *config.Config, uc *usecase.ForecastUseCase, caches Caches, log *applogger.Logger) *usecase.Refresher {
	return usecase.NewRefresher(cfg.Forecast.RefreshCron, uc, caches.Shared, fetchTimeout(cfg), log)
}

func ProvideBoardsHandler(cfg *config.Config, uc *usecase.ForecastUseCase, log *applogger.Logger) *api.BoardsHandler {
	return api.NewBoardsHandler(log, uc, ratelimit.New(), cfg.Forecast.SubmitPerMin)
}

func ProvideHTTPServer(cfg *config.Config, h *api.BoardsHandler, log *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(log, h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp assembles the lifecycle. Consumers start after the HTTP server
// and stop before it.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	h *usecase.ActualCandlesHandler,
	refresher *usecase.Refresher,
) *server.App {
	app := server.New(log, cfg.Server.ShutdownTimeout).Add("http", srv)
	if consumer != nil {
		app.Add("kafka-consumer", consumer)
	}
	if q != nil {
		q.Handle(h.Topic(), h.Handle)
		app.Add("redis-queue", q)
	}
	return app.Add("refresher", refresher)
}

// fetchTimeout covers every retry of one analytics call.
func fetchTimeout(cfg *config.Config) time.Duration {
	return cfg.Analytics.Timeout * time.Duration(cfg.Analytics.MaxRetries+1)
}
