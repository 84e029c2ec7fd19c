package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gurubamal/iimcat-sub002/internal/domain/repository"
	"github.com/gurubamal/iimcat-sub002/internal/domain/service"
	"github.com/gurubamal/iimcat-sub002/internal/handler/api"
	internalrepo "github.com/gurubamal/iimcat-sub002/internal/repository"
	"github.com/gurubamal/iimcat-sub002/internal/service/cache"
	collabmetrics "github.com/gurubamal/iimcat-sub002/internal/service/metrics"
	"github.com/gurubamal/iimcat-sub002/internal/service/quotes"
	"github.com/gurubamal/iimcat-sub002/internal/service/ratelimit"
	"github.com/gurubamal/iimcat-sub002/internal/services/analytics"
	"github.com/gurubamal/iimcat-sub002/internal/services/rebound"
	"github.com/gurubamal/iimcat-sub002/internal/usecase"
	pkgch "github.com/gurubamal/iimcat-sub002/pkg/clickhouse"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
	pkgkafka "github.com/gurubamal/iimcat-sub002/pkg/kafka"
	"github.com/gurubamal/iimcat-sub002/pkg/logger"
	"github.com/gurubamal/iimcat-sub002/pkg/metrics"
	"github.com/gurubamal/iimcat-sub002/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideRegisterer returns the process registry shared by every collector.
// The kafka producer registers on the default registry, so everything else does too.
func ProvideRegisterer() prometheus.Registerer {
	reg := prometheus.DefaultRegisterer
	collabmetrics.Register(reg)
	pkgkafka.SetConsumerMetricsRegisterer(reg)
	return reg
}

// ProvideMetrics creates the decision metrics recorder.
func ProvideMetrics(cfg *config.Config, reg prometheus.Registerer) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(reg)
}

// ProvideClickHouseClient connects and creates the schema. Nil when disabled.
func ProvideClickHouseClient(cfg *config.Config, l *logger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		l.Info("clickhouse disabled; runs need inline inputs")
		return nil, nil
	}
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", logger.String("database", cfg.ClickHouse.Database))
	return client, nil
}

// ProvideMarketStore returns nil without ClickHouse.
func ProvideMarketStore(ch *pkgch.Client, l *logger.Logger) repository.MarketDataStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHMarketStore(ch.DB(), ch.Database(), l)
}

func ProvideDecisionStore(ch *pkgch.Client) *internalrepo.CHDecisionStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHDecisionStore(ch.DB(), ch.Database())
}

// ProvideOutcomeStore returns nil without ClickHouse.
func ProvideOutcomeStore(store *internalrepo.CHDecisionStore) repository.OutcomeStore {
	if store == nil {
		return nil
	}
	return store
}

// ProvideKafkaProducer creates a Kafka producer. Nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideDecisionSink fans decisions out to every configured sink.
func ProvideDecisionSink(cfg *config.Config, producer *pkgkafka.Producer, store *internalrepo.CHDecisionStore) repository.DecisionSink {
	var sinks internalrepo.MultiSink
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.DecisionsTopic))
	}
	if store != nil {
		sinks = append(sinks, store)
	}
	if len(sinks) == 0 {
		return nil
	}
	return sinks
}

// ProvideKafkaConsumer creates the requests consumer. Nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideRedisCache returns nil when redis is disabled.
func ProvideRedisCache(cfg *config.Config) *cache.RedisCache {
	if !cfg.Redis.Enabled {
		return nil
	}
	return cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   "rebound:",
	})
}

// ProvideSnapshotCache prefers redis so replicas share one market snapshot.
func ProvideSnapshotCache(r *cache.RedisCache) cache.BytesCache {
	if r != nil {
		return r
	}
	return cache.NewTTLCache()
}

// ProvideQuoteStream returns nil when the live feed is disabled.
func ProvideQuoteStream(cfg *config.Config, l *logger.Logger) *quotes.Client {
	if !cfg.Quotes.Enabled {
		return nil
	}
	return quotes.New(cfg.Quotes.WebSocketURL, cfg.Quotes.APIKey, []string{cfg.Run.IndexSymbol},
		quotes.WithReconnectDelay(cfg.Quotes.ReconnectDelay),
		quotes.WithPingInterval(cfg.Quotes.PingInterval),
		quotes.WithMaxAge(cfg.Quotes.MaxAge),
		quotes.WithLogger(l),
	)
}

// ProvideBridgeBase builds the AI bridge transport. Nil without a bridge URL.
func ProvideBridgeBase(cfg *config.Config) *analytics.HTTPServiceBase {
	c := cfg.Collaborators
	if c.AIBridgeURL == "" {
		return nil
	}
	return analytics.NewHTTPServiceBase("ai-bridge", c.AIBridgeURL,
		analytics.WithTimeout(c.Timeout),
		analytics.WithRetries(c.Retries, 100*time.Millisecond),
		analytics.WithBreaker(analytics.BreakerSettings{
			MaxRequests:      c.Breaker.MaxRequests,
			Interval:         c.Breaker.Interval,
			OpenTimeout:      c.Breaker.OpenTimeout,
			FailureThreshold: c.Breaker.FailureThreshold,
		}),
		analytics.WithLimiter(ratelimit.New(20, 20)),
	)
}

func ProvideCatalystProvider(base *analytics.HTTPServiceBase) service.CatalystProvider {
	if base == nil {
		return nil
	}
	return analytics.NewHTTPCatalystProvider(base)
}

func ProvideCrisisProvider(base *analytics.HTTPServiceBase) service.CrisisProvider {
	if base == nil {
		return nil
	}
	return analytics.NewHTTPCrisisProvider(base)
}

// ProvideSupervisor selects the second-opinion reviewer of boosted decisions.
func ProvideSupervisor(cfg *config.Config, base *analytics.HTTPServiceBase) service.DecisionValidator {
	switch cfg.Collaborators.Supervisor {
	case "rules":
		return rebound.NewRuleSupervisor()
	case "ai":
		if base != nil {
			return analytics.NewHTTPSupervisor(base)
		}
	}
	return nil
}

func ProvideEngine(cfg *config.Config) *rebound.Engine {
	return rebound.NewEngine(cfg.Engine)
}

func ProvideBatchEvaluator(cfg *config.Config, engine *rebound.Engine, sup service.DecisionValidator, m repository.Metrics, l *logger.Logger) *usecase.BatchEvaluator {
	return usecase.NewBatchEvaluator(engine, sup, m, l, cfg.Run.Workers)
}

// Collaborators groups the optional inputs of a run.
type Collaborators struct {
	Catalysts service.CatalystProvider
	Crises    service.CrisisProvider
	Quotes    *quotes.Client
	Sink      repository.DecisionSink
	Outcomes  repository.OutcomeStore
	Cache     cache.BytesCache
}

func ProvideCollaborators(
	catalysts service.CatalystProvider,
	crises service.CrisisProvider,
	q *quotes.Client,
	sink repository.DecisionSink,
	outcomes repository.OutcomeStore,
	c cache.BytesCache,
) Collaborators {
	return Collaborators{Catalysts: catalysts, Crises: crises, Quotes: q, Sink: sink, Outcomes: outcomes, Cache: c}
}

// ProvideRunUseCase attaches only the collaborators that are configured.
func ProvideRunUseCase(
	cfg *config.Config,
	engine *rebound.Engine,
	evaluator *usecase.BatchEvaluator,
	store repository.MarketDataStore,
	m repository.Metrics,
	collab Collaborators,
	l *logger.Logger,
) *usecase.RunUseCase {
	opts := []usecase.RunOption{
		usecase.WithSnapshotCache(collab.Cache),
		usecase.WithRunLogger(l),
	}
	if collab.Catalysts != nil {
		opts = append(opts, usecase.WithCatalysts(collab.Catalysts))
	}
	if collab.Crises != nil {
		opts = append(opts, usecase.WithCrises(collab.Crises))
	}
	if collab.Quotes != nil {
		opts = append(opts, usecase.WithQuotes(collab.Quotes))
	}
	if collab.Sink != nil {
		opts = append(opts, usecase.WithSink(collab.Sink))
	}
	if collab.Outcomes != nil {
		opts = append(opts, usecase.WithOutcomes(collab.Outcomes))
	}
	return usecase.NewRunUseCase(engine, evaluator, store, m, usecase.RunConfig{
		Bars:          cfg.Run.Bars,
		Workers:       cfg.Run.Workers,
		IndexSymbol:   cfg.Run.IndexSymbol,
		VIXSymbol:     cfg.Run.VIXSymbol,
		SectorIndices: cfg.Run.SectorIndices,
		SnapshotTTL:   cfg.Run.SnapshotTTL,
		FetchTimeout:  cfg.Run.FetchTimeout,
		Location:      cfg.Location(),
	}, opts...)
}

// ProvideRequestsHandler returns nil when kafka is disabled.
func ProvideRequestsHandler(cfg *config.Config, uc *usecase.RunUseCase, m repository.Metrics, l *logger.Logger) *usecase.RequestsHandler {
	if !cfg.Kafka.Enabled {
		return nil
	}
	return usecase.NewRequestsHandler(cfg.Kafka.RequestsTopic, uc, m, l)
}

// ProvideScheduler returns nil without a schedule.
func ProvideScheduler(cfg *config.Config, uc *usecase.RunUseCase, l *logger.Logger) *usecase.Scheduler {
	if cfg.Run.Schedule == "" {
		return nil
	}
	return usecase.NewScheduler(uc, cfg.Run.Watchlist, cfg.Location(), 5*time.Minute, l)
}

// ProvideHTTPHandler registers a health check for each enabled backend.
func ProvideHTTPHandler(cfg *config.Config, l *logger.Logger, uc *usecase.RunUseCase, ch *pkgch.Client, r *cache.RedisCache) *api.ReboundEchoHandler {
	checks := map[string]api.HealthCheck{}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}
	if r != nil {
		checks["redis"] = r.Ping
	}
	return api.NewReboundEchoHandler(l, uc, cfg.Engine, checks)
}

// ProvideApp assembles the server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	reg prometheus.Registerer,
	handler *api.ReboundEchoHandler,
	consumer *pkgkafka.Consumer,
	requests *usecase.RequestsHandler,
	scheduler *usecase.Scheduler,
	q *quotes.Client,
	collab Collaborators,
	ch *pkgch.Client,
	r *cache.RedisCache,
) *server.App {
	opts := []server.Option{
		server.WithHandler(handler),
		server.WithRegisterer(reg),
		server.WithSink(collab.Sink),
	}
	if consumer != nil && requests != nil {
		opts = append(opts, server.WithConsumer(consumer, requests))
	}
	if scheduler != nil {
		opts = append(opts, server.WithScheduler(scheduler))
	}
	if q != nil {
		opts = append(opts, server.WithQuotes(q))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch.Close))
	}
	if r != nil {
		opts = append(opts, server.WithCloser("redis", r.Close))
	}
	return server.New(cfg, l, opts...)
}
