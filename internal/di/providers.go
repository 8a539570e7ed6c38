package di

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"LoadCoach/internal/domain/repository"
	"LoadCoach/internal/handler/api"
	mid "LoadCoach/internal/middleware"
	internalrepo "LoadCoach/internal/repository"
	reccache "LoadCoach/internal/service/cache"
	apimetrics "LoadCoach/internal/service/metrics"
	"LoadCoach/internal/service/ratelimit"
	"LoadCoach/internal/services/features"
	"LoadCoach/internal/services/modeling"
	"LoadCoach/internal/services/sessions"
	"LoadCoach/internal/usecase"
	pkgcache "LoadCoach/pkg/cache"
	pkgch "LoadCoach/pkg/clickhouse"
	"LoadCoach/pkg/config"
	xhttp "LoadCoach/pkg/http"
	pkgkafka "LoadCoach/pkg/kafka"
	"LoadCoach/pkg/logger"
	"LoadCoach/pkg/metrics"
	"LoadCoach/pkg/queue"
	"LoadCoach/pkg/server"
)

// Infra holds the shared connections. Fields are nil when no component
// selected the backend.
type Infra struct {
	SQLite     *internalrepo.SQLiteStore
	ClickHouse *pkgch.Client
	Redis      *pkgcache.RedisCache

	once sync.Once
	err  error
}

// Close releases every open connection. Safe to call more than once.
func (i *Infra) Close() error {
	i.once.Do(func() {
		var errs []error
		if i.SQLite != nil {
			errs = append(errs, i.SQLite.Close())
		}
		if i.ClickHouse != nil {
			errs = append(errs, i.ClickHouse.Close())
		}
		if i.Redis != nil {
			errs = append(errs, i.Redis.Close())
		}
		i.err = errors.Join(errs...)
	})
	return i.err
}

// Services is the non-HTTP surface used by the command line.
type Services struct {
	Log      *logger.Logger
	Engine   *usecase.RecommendationEngine
	Training *usecase.TrainingUseCase
	Load     *usecase.LoadUseCase
	pipeline *mid.AnalyticsPipeline
}

func (s *Services) Start(ctx context.Context) {
	if s.pipeline != nil {
		s.pipeline.Start(ctx)
	}
}

// Stop flushes pending analytics events.
func (s *Services) Stop(ctx context.Context) error {
	if s.pipeline == nil {
		return nil
	}
	return s.pipeline.Stop(ctx)
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideInfra opens the connections the configured backends need.
func ProvideInfra(cfg *config.Config, log *logger.Logger) (*Infra, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	infra := &Infra{}
	fail := func(err error) (*Infra, func(), error) {
		_ = infra.Close()
		return nil, nil, err
	}

	if cfg.UsesSQLite() {
		store, err := internalrepo.NewSQLiteStore(ctx, cfg.SQLite.Path)
		if err != nil {
			return fail(fmt.Errorf("sqlite: %w", err))
		}
		infra.SQLite = store
		log.Info("sqlite ready", logger.String("path", cfg.SQLite.Path))
	}

	if cfg.UsesClickHouse() {
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return fail(fmt.Errorf("clickhouse client: %w", err))
		}
		infra.ClickHouse = client
		if cfg.ClickHouse.InitSchema {
			if err := client.InitSchema(ctx); err != nil {
				return fail(fmt.Errorf("clickhouse schema: %w", err))
			}
		}
		log.Info("clickhouse ready", logger.String("database", client.Database()))
	}

	if cfg.UsesRedis() {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
			pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.Timeout),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return fail(fmt.Errorf("redis: %w", err))
		}
		infra.Redis = rc
		log.Info("redis ready", logger.String("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)))
	}

	return infra, func() {
		if err := infra.Close(); err != nil {
			log.Warn("infra close", logger.Error(err))
		}
	}, nil
}

// ProvideHistoryStore selects the session source and puts it behind a
// circuit breaker.
func ProvideHistoryStore(cfg *config.Config, infra *Infra, log *logger.Logger) (repository.LoadHistoryStore, error) {
	var inner repository.LoadHistoryStore
	switch cfg.History.Backend {
	case config.BackendSQLite:
		inner = infra.SQLite
	case config.BackendClickHouse:
		ch := internalrepo.NewCHHistoryStore(infra.ClickHouse)
		ch.SetLogger(log)
		inner = ch
	case config.BackendHTTP:
		base := sessions.NewHTTPServiceBase(cfg.History.BaseURL, cfg.History.Token, cfg.History.Timeout, cfg.History.Attempts)
		inner = sessions.NewHTTPHistoryStore(base)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}

	bc := internalrepo.DefaultBreakerConfig()
	bc.FailureThreshold = cfg.History.Breaker.FailureThreshold
	bc.MaxRequests = cfg.History.Breaker.MaxRequests
	bc.Interval = cfg.History.Breaker.Interval
	bc.Timeout = cfg.History.Breaker.Timeout
	return internalrepo.NewResilientHistoryStore(inner, bc, log), nil
}

// ProvideCacheService backs the load series cache and the training locks.
func ProvideCacheService(cfg *config.Config, infra *Infra) (pkgcache.Service, func()) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		// closed with the rest of the infra
		return infra.Redis, func() {}
	case config.BackendLayered:
		lc := pkgcache.NewLayeredCache(infra.Redis, cfg.Cache.MemoryMaxSize, cfg.Cache.L1TTL)
		return lc, func() { _ = lc.Close() }
	default:
		mc := pkgcache.NewMemoryCache(
			pkgcache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			pkgcache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
		)
		return mc, func() { _ = mc.Close() }
	}
}

// ProvideRecommendationCache keeps recommendations in process unless Redis
// is selected, in which case instances share them.
func ProvideRecommendationCache(cfg *config.Config, infra *Infra, log *logger.Logger) reccache.RecommendationCache {
	if cfg.Cache.Backend == config.BackendMemory {
		return reccache.NewTTLCache(cfg.Cache.TTL)
	}
	return reccache.NewRedisCache(infra.Redis.Client(), cfg.Redis.Prefix, cfg.Cache.TTL, log)
}

// ProvideArtifactStore returns nil when models are kept in memory only.
func ProvideArtifactStore(cfg *config.Config, infra *Infra) repository.ModelArtifactStore {
	switch cfg.Model.Store {
	case config.BackendSQLite:
		return infra.SQLite
	case config.BackendRedis:
		return internalrepo.NewRedisModelStore(infra.Redis.Client(), cfg.Redis.Prefix)
	default:
		return nil
	}
}

func ProvideExtractor(cfg *config.Config, store repository.LoadHistoryStore, log *logger.Logger) *features.Extractor {
	return features.NewExtractor(store,
		features.WithLookbackDays(cfg.History.LookbackDays),
		features.WithTimeConstants(cfg.History.ChronicTau, cfg.History.AcuteTau),
		features.WithBatchWorkers(cfg.Model.BatchWorkers),
		features.WithLogger(log),
	)
}

func ProvideRegistry(cfg *config.Config, artifacts repository.ModelArtifactStore, log *logger.Logger) *modeling.Registry {
	opts := []modeling.RegistryOption{
		modeling.WithRegistryLogger(log),
		modeling.WithHydrateInterval(cfg.Model.HydrateInterval),
	}
	if artifacts != nil {
		opts = append(opts, modeling.WithArtifactStore(artifacts))
	}
	return modeling.NewRegistry(opts...)
}

func ProvideTrainer(cfg *config.Config, registry *modeling.Registry, log *logger.Logger) *modeling.Trainer {
	tc := modeling.DefaultTrainerConfig()
	tc.Ridge = cfg.Model.Ridge
	tc.Forest.Trees = cfg.Model.Trees
	tc.Forest.MaxDepth = cfg.Model.MaxDepth
	tc.Forest.Seed = cfg.Model.Seed
	return modeling.NewTrainer(registry,
		modeling.WithTrainerConfig(tc),
		modeling.WithTrainerLogger(log),
	)
}

func ProvidePredictor(registry *modeling.Registry) *modeling.Predictor {
	return modeling.NewPredictor(registry)
}

func ProvideLoadUseCase(store repository.LoadHistoryStore, cache pkgcache.Service, log *logger.Logger) *usecase.LoadUseCase {
	return usecase.NewLoadUseCase(store, cache, log)
}

// ProvideAnalyticsPipeline returns nil when analytics are disabled.
func ProvideAnalyticsPipeline(cfg *config.Config, infra *Infra, m repository.Metrics, log *logger.Logger) (*mid.AnalyticsPipeline, error) {
	var sink repository.AnalyticsSink
	switch cfg.Analytics.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendSQLite:
		sink = infra.SQLite
	case config.BackendClickHouse:
		sink = internalrepo.NewCHAnalyticsSink(infra.ClickHouse)
	case config.BackendKafka:
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchTimeout),
			pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		sink = internalrepo.NewKafkaAnalyticsSink(producer, cfg.Analytics.Topic)
	default:
		return nil, fmt.Errorf("unknown analytics backend %q", cfg.Analytics.Backend)
	}

	return mid.NewAnalyticsPipeline(sink,
		mid.WithBufferSize(cfg.Analytics.BufferSize),
		mid.WithBatching(cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval),
		mid.WithRetry(cfg.Analytics.MaxRetries, 50*time.Millisecond),
		mid.WithPipelineMetrics(m),
		mid.WithPipelineLogger(log),
	), nil
}

func ProvideEngine(
	cfg *config.Config,
	cache reccache.RecommendationCache,
	extractor *features.Extractor,
	predictor *modeling.Predictor,
	pipeline *mid.AnalyticsPipeline,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.RecommendationEngine {
	ec := usecase.DefaultEngineConfig()
	ec.MinDataPoints = cfg.Engine.MinDataPoints
	ec.NewUserThresholdDays = cfg.Engine.NewUserThresholdDays
	ec.FallbackEasy = cfg.Engine.FallbackEasy
	ec.FallbackModerate = cfg.Engine.FallbackModerate
	ec.FallbackHard = cfg.Engine.FallbackHard
	ec.MaxBalanceForHard = cfg.Engine.MaxBalanceForHard
	ec.MinBalanceForRecovery = cfg.Engine.MinBalanceForRecovery
	ec.DetrainingCeiling = cfg.Engine.DetrainingCeiling

	opts := []usecase.EngineOption{
		usecase.WithEngineConfig(ec),
		usecase.WithMetrics(m),
		usecase.WithEngineLogger(log),
	}
	// a nil *AnalyticsPipeline must not become a non-nil recorder
	if pipeline != nil {
		opts = append(opts, usecase.WithAnalytics(pipeline))
	}
	return usecase.NewRecommendationEngine(cache, extractor, predictor, opts...)
}

func ProvideTrainingUseCase(
	cfg *config.Config,
	extractor *features.Extractor,
	trainer *modeling.Trainer,
	registry *modeling.Registry,
	locks pkgcache.Service,
	engine *usecase.RecommendationEngine,
	load *usecase.LoadUseCase,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.TrainingUseCase {
	return usecase.NewTrainingUseCase(extractor, trainer, registry,
		usecase.WithTrainingConfig(usecase.TrainingConfig{
			WindowDays:       cfg.Model.WindowDays,
			ForestMinSamples: cfg.Model.ForestMinSamples,
			BatchWorkers:     cfg.Model.BatchWorkers,
			LockTTL:          cfg.Model.LockTTL,
		}),
		usecase.WithTrainingLocks(locks),
		usecase.WithInvalidator(engine, load),
		usecase.WithTrainingMetrics(m),
		usecase.WithTrainingLogger(log),
	)
}

func ProvideQueue(cfg *config.Config, infra *Infra, log *logger.Logger) queue.Queue {
	qc := queue.Config{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	if cfg.Queue.Backend == config.BackendRedis {
		return queue.NewRedisQueue(log, qc, infra.Redis.Client(), cfg.Queue.KeyPrefix)
	}
	return queue.NewMemoryQueue(log, qc)
}

func ProvideTrainUserJob(training *usecase.TrainingUseCase, log *logger.Logger) *usecase.TrainUserJob {
	return usecase.NewTrainUserJob(training, log)
}

func ProvideWorkoutEventsHandler(
	cfg *config.Config,
	q queue.Queue,
	m repository.Metrics,
	log *logger.Logger,
	engine *usecase.RecommendationEngine,
	load *usecase.LoadUseCase,
) *usecase.WorkoutEventsHandler {
	return usecase.NewWorkoutEventsHandler(cfg.Events.Topic, q, m, log, engine, load)
}

// ProvideKafkaConsumer returns nil when the event consumer is disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.TrainBurst, cfg.Server.RateLimit.TrainPerMinute/60)
}

func ProvideHTTPHandler(
	log *logger.Logger,
	engine *usecase.RecommendationEngine,
	training *usecase.TrainingUseCase,
	load *usecase.LoadUseCase,
	extractor *features.Extractor,
	limiter *ratelimit.Limiter,
) *api.RecommendationsEchoHandler {
	return api.NewRecommendationsEchoHandler(log, engine, training, load, extractor, limiter)
}

func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, h *api.RecommendationsEchoHandler) *xhttp.Server {
	apimetrics.Register()
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(cfg.Server.MetricsPath),
		xhttp.WithLogger(log),
	)
}

// ProvideApp assembles the server lifecycle.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	events *usecase.WorkoutEventsHandler,
	q queue.Queue,
	job *usecase.TrainUserJob,
	pipeline *mid.AnalyticsPipeline,
	infra *Infra,
) *server.App {
	opts := []server.Option{
		server.WithQueue(q, job),
		server.WithPipeline(pipeline),
		server.WithCloser("infra", infra),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, events))
	}
	return server.New(log, srv, opts...)
}

func ProvideServices(
	log *logger.Logger,
	engine *usecase.RecommendationEngine,
	training *usecase.TrainingUseCase,
	load *usecase.LoadUseCase,
	pipeline *mid.AnalyticsPipeline,
) *Services {
	return &Services{Log: log, Engine: engine, Training: training, Load: load, pipeline: pipeline}
}
