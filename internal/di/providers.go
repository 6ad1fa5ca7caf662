package di

import (
	"context"
	"fmt"
	"time"

	"VolSurf/internal/domain/repository"
	"VolSurf/internal/handler/api"
	internalrepo "VolSurf/internal/repository"
	"VolSurf/internal/service/ratelimit"
	"VolSurf/internal/services/surface"
	"VolSurf/internal/usecase"
	"VolSurf/pkg/cache"
	pkgch "VolSurf/pkg/clickhouse"
	"VolSurf/pkg/config"
	xhttp "VolSurf/pkg/http"
	pkgkafka "VolSurf/pkg/kafka"
	"VolSurf/pkg/logger"
	"VolSurf/pkg/metrics"
	"VolSurf/pkg/server"
)

// ProvideLogger creates the application logger. With log.digest enabled,
// warn and error entries are also folded into a digest published on Kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Digest.Enabled && producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Log.Digest.Interval,
			CountThreshold: cfg.Log.Digest.Threshold,
			Topic:          cfg.Log.Digest.Topic,
			Publisher:      producer,
		})
	}
	return l.With(logger.String("service", "volsurf"), logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideDomainMetrics exposes the recorder through the domain interface.
func ProvideDomainMetrics(r *metrics.Recorder) repository.Metrics {
	return r
}

// ProvideEngine creates the surface engine.
func ProvideEngine(cfg *config.Config, l *logger.Logger, rec *metrics.Recorder) (*surface.Engine, error) {
	policy, err := surface.ParseDuplicatePolicy(cfg.Surface.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	return surface.NewEngine(
		surface.WithDuplicatePolicy(policy),
		surface.WithGridWorkers(cfg.Surface.GridWorkers),
		surface.WithDefaultResolution(cfg.Surface.DefaultResolution),
		surface.WithLogger(l.With(logger.String("component", "surface"))),
		surface.WithRebuildHook(rec.Rebuild),
	), nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
// It returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
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
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database},
		internalrepo.SchemaStatements(sampleTable(cfg))...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func sampleTable(cfg *config.Config) string {
	return cfg.ClickHouse.Database + "." + cfg.ClickHouse.Table
}

// ProvideSampleRepository creates the ClickHouse sample store, or nil when
// persistence is disabled.
func ProvideSampleRepository(client *pkgch.Client, cfg *config.Config) repository.SampleRepository {
	if client == nil {
		return nil
	}
	return internalrepo.NewClickHouseSampleStore(client.DB(), sampleTable(cfg))
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
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

// ProvideGridPublisher creates the Kafka grid publisher, or nil without a producer.
func ProvideGridPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.GridPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaGridPublisher(producer, cfg.Kafka.GridsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when Kafka is disabled.
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
		pkgkafka.WithConsumerLogger(l.With(logger.String("component", "kafka"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook{},
		pkgkafka.LoggingHook{Log: l, Slow: time.Second},
	))
	return consumer, nil
}

// ProvideGridCache creates the grid cache: in-process only, or layered over
// Redis when Redis is enabled.
func ProvideGridCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryTTL(cfg.Redis.TTL)), nil
	}
	remote, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(remote, cache.WithLayeredMemoryTTL(time.Minute)), nil
}

// ProvideSampleIngestor creates the ingestion use case.
func ProvideSampleIngestor(engine *surface.Engine, repo repository.SampleRepository, m repository.Metrics, l *logger.Logger) *usecase.SampleIngestor {
	return usecase.NewSampleIngestor(engine, repo, m, l)
}

// ProvideKafkaSamplesHandler creates the handler for the samples topic.
func ProvideKafkaSamplesHandler(cfg *config.Config, ing *usecase.SampleIngestor, l *logger.Logger) *usecase.KafkaSamplesHandler {
	return usecase.NewKafkaSamplesHandler(cfg.Kafka.SamplesTopic, ing, l)
}

// ProvideSurfaceQuery creates the read use case.
func ProvideSurfaceQuery(engine *surface.Engine, c cache.Service, m repository.Metrics, l *logger.Logger, cfg *config.Config) *usecase.SurfaceQuery {
	return usecase.NewSurfaceQuery(engine, c, m, l, usecase.SurfaceQueryConfig{
		DefaultSteps: cfg.Surface.DefaultResolution,
		MaxSteps:     cfg.Surface.MaxSteps,
		CacheTTL:     cfg.Redis.TTL,
	})
}

// ProvideSurfaceStream creates the WebSocket hub.
func ProvideSurfaceStream(l *logger.Logger, m repository.Metrics) *api.SurfaceStream {
	return api.NewSurfaceStream(l, m)
}

// ProvideSurfaceBroadcaster creates the broadcaster, or nil when disabled.
func ProvideSurfaceBroadcaster(
	cfg *config.Config,
	q *usecase.SurfaceQuery,
	pub repository.GridPublisher,
	m repository.Metrics,
	l *logger.Logger,
	stream *api.SurfaceStream,
) *usecase.SurfaceBroadcaster {
	if !cfg.Broadcast.Enabled {
		return nil
	}
	return usecase.NewSurfaceBroadcaster(q, pub, m, l, cfg.Broadcast.Interval, cfg.Broadcast.Steps, stream)
}

// ProvideRateLimiter creates the token-bucket limiter for grid queries.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideSurfaceHandler creates the HTTP handler.
func ProvideSurfaceHandler(
	cfg *config.Config,
	l *logger.Logger,
	ing *usecase.SampleIngestor,
	q *usecase.SurfaceQuery,
	stream *api.SurfaceStream,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return api.NewSurfaceEchoHandler(l, ing, q,
		api.WithStream(stream),
		api.WithGridRateLimit(limiter, cfg.Server.GridRateLimit, cfg.Server.GridRefillPerSec),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	engine *surface.Engine,
	ing *usecase.SampleIngestor,
	q *usecase.SurfaceQuery,
	broadcaster *usecase.SurfaceBroadcaster,
	stream *api.SurfaceStream,
	handler xhttp.Handler,
	limiter *ratelimit.Limiter,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSamplesHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	gridCache cache.Service,
) *server.App {
	deps := server.Deps{
		Logger:      l,
		Engine:      engine,
		Ingestor:    ing,
		Query:       q,
		Broadcaster: broadcaster,
		Stream:      stream,
		Handler:     handler,
		Limiter:     limiter,
		Consumer:    consumer,
		Producer:    producer,
		ClickHouse:  chClient,
		Cache:       gridCache,
	}
	if consumer != nil {
		deps.Handlers = []pkgkafka.MessageHandler{kh}
	}
	return server.New(cfg, deps)
}
