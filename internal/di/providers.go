package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"TradeMood/internal/domain/repository"
	"TradeMood/internal/handler/api"
	mid "TradeMood/internal/middleware"
	internalrepo "TradeMood/internal/repository"
	icache "TradeMood/internal/service/cache"
	"TradeMood/internal/service/calendar"
	"TradeMood/internal/service/feeds"
	imetrics "TradeMood/internal/service/metrics"
	"TradeMood/internal/service/pricefeed"
	"TradeMood/internal/service/scheduler"
	"TradeMood/internal/service/scoring"
	"TradeMood/internal/usecase"
	pkgcache "TradeMood/pkg/cache"
	pkgch "TradeMood/pkg/clickhouse"
	"TradeMood/pkg/config"
	pkgkafka "TradeMood/pkg/kafka"
	applogger "TradeMood/pkg/logger"
	"TradeMood/pkg/metrics"
	"TradeMood/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	imetrics.Register()
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client with schema applied.
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideSignalStore creates ClickHouse-backed signal storage.
func ProvideSignalStore(chClient *pkgch.Client, cfg *config.Config) repository.SignalStore {
	return internalrepo.NewClickHouseStore(chClient.DB(), cfg.ClickHouse.Database)
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

// ProvidePublisher creates the Kafka signal/trade publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SignalTopic, cfg.Kafka.TradeTopic)
}

// ProvideKafkaConsumer creates the samples consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
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
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideSamplesHandler registers the handler for the pre-scored samples topic.
func ProvideSamplesHandler(store repository.SignalStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaSamplesHandler {
	return usecase.NewKafkaSamplesHandler(cfg.Kafka.SamplesTopic, store, m)
}

// ProvidePersistPipeline puts the retry buffer in front of storage.
func ProvidePersistPipeline(store repository.SignalStore, m repository.Metrics, cfg *config.Config) *mid.PersistPipeline {
	return mid.NewPersistPipeline(
		internalrepo.NewStoreWriter(store),
		m,
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
	)
}

// ProvideTrendCache builds the dedup cache. TTL is cadence times the safety
// factor so a retried window still hits while the next window never does.
func ProvideTrendCache(cfg *config.Config, m repository.Metrics) (*icache.TrendCache, error) {
	cadence := repository.NormalizeCadence(cfg.Pipeline.Cadence).Duration()
	factor := cfg.Pipeline.TTLSafetyFactor
	if factor == 0 {
		factor = 1.5
	}
	ttl := time.Duration(float64(cadence) * factor)

	opts := []icache.TrendCacheOption{
		icache.WithHitCallback(m.RecordCacheLookup),
	}
	if cfg.Redis.Enabled {
		host, port := splitHostPort(cfg.Redis.Addr)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		opts = append(opts, icache.WithRedisLayer(rc))
	}
	return icache.NewTrendCache(ttl, opts...), nil
}

// ProvideSampleSource creates the multi-source feeds client.
func ProvideSampleSource(cfg *config.Config, logger *applogger.Logger) repository.SampleSource {
	sources := make([]feeds.Source, 0, len(cfg.Feeds.Sources))
	for _, s := range cfg.Feeds.Sources {
		sources = append(sources, feeds.Source{Name: s.Name, URL: s.URL})
	}
	return feeds.New(sources, cfg.Feeds.Timeout, logger,
		feeds.WithRateLimit(cfg.Feeds.Burst, cfg.Feeds.PerSec),
	)
}

// ProvideScorer creates the sentiment scoring HTTP client.
func ProvideScorer(cfg *config.Config) repository.Scorer {
	return scoring.New(cfg.Scoring.URL, cfg.Scoring.Timeout, cfg.Scoring.MaxRetries)
}

// ProvidePriceFeed creates the streaming price source.
func ProvidePriceFeed(cfg *config.Config, logger *applogger.Logger) *pricefeed.Client {
	return pricefeed.New(
		cfg.PriceFeed.APIKey,
		cfg.PriceFeed.WebSocketURL,
		cfg.Symbols(),
		cfg.PriceFeed.ReconnectDelay,
		cfg.PriceFeed.PingInterval,
		cfg.PriceFeed.StaleAfter,
		logger,
	)
}

// ProvideCalendar builds the per-instrument trading-session registry.
func ProvideCalendar(cfg *config.Config) (repository.Calendar, error) {
	cals := make(map[string]calendar.Config)
	if def, ok := cfg.Calendars["default"]; ok {
		c, err := toCalendarConfig(def)
		if err != nil {
			return nil, fmt.Errorf("calendar default: %w", err)
		}
		cals[""] = c
	}
	for _, in := range cfg.Instruments {
		if in.Calendar == "" {
			continue
		}
		raw, ok := cfg.Calendars[in.Calendar]
		if !ok {
			return nil, fmt.Errorf("instrument %s references unknown calendar %q", in.Symbol, in.Calendar)
		}
		c, err := toCalendarConfig(raw)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", in.Calendar, err)
		}
		cals[in.Symbol] = c
	}
	return calendar.NewRegistry(cals)
}

func toCalendarConfig(raw config.CalendarConfig) (calendar.Config, error) {
	out := calendar.Config{
		Timezone: raw.Timezone,
		Holidays: raw.Holidays,
	}
	for _, s := range raw.Sessions {
		wd, err := parseWeekday(s.Weekday)
		if err != nil {
			return calendar.Config{}, err
		}
		out.Sessions = append(out.Sessions, calendar.Session{Weekday: wd, Open: s.Open, Close: s.Close})
	}
	return out, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if s == wd.String() {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvidePositionTracker creates the position/trade state machine.
func ProvidePositionTracker(cfg *config.Config) *usecase.PositionTracker {
	return usecase.NewPositionTracker(
		usecase.WithQuantity(cfg.Pipeline.Quantity),
		usecase.WithShorting(cfg.Pipeline.ShortingEnabled),
	)
}

// ProvideCycleRunner wires the pipeline use cases into one runner.
func ProvideCycleRunner(
	source repository.SampleSource,
	scorer repository.Scorer,
	prices *pricefeed.Client,
	cache *icache.TrendCache,
	tracker *usecase.PositionTracker,
	persist *mid.PersistPipeline,
	pub repository.Publisher,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.CycleRunner {
	policyCfg := usecase.DefaultPolicyConfig()
	if cfg.Pipeline.BuyThreshold != 0 {
		policyCfg.BuyThreshold = cfg.Pipeline.BuyThreshold
	}
	if cfg.Pipeline.SellThreshold != 0 {
		policyCfg.SellThreshold = cfg.Pipeline.SellThreshold
	}
	if cfg.Pipeline.HysteresisBand != 0 {
		policyCfg.HysteresisBand = cfg.Pipeline.HysteresisBand
	}

	return usecase.NewCycleRunner(
		source,
		scorer,
		prices,
		cache,
		usecase.NewTrendAggregator(cfg.Pipeline.DirectionEpsilon),
		usecase.NewSignalPolicy(policyCfg),
		tracker,
		persist,
		pub,
		m,
		logger,
		usecase.CycleConfig{
			Cadence:      repository.NormalizeCadence(cfg.Pipeline.Cadence).Duration(),
			Timeout:      cfg.Pipeline.CycleTimeout,
			FetchRetries: cfg.Pipeline.FetchRetries,
			FetchBackoff: cfg.Pipeline.FetchBackoff,
		},
	)
}

// ProvideScheduler drives the runner on the configured cadence.
func ProvideScheduler(
	runner *usecase.CycleRunner,
	cal repository.Calendar,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *scheduler.Scheduler {
	return scheduler.New(runner, cal, m, logger,
		cfg.Symbols(),
		repository.NormalizeCadence(cfg.Pipeline.Cadence).Duration(),
	)
}

// ProvideStatusHandler creates the read-only status API handler.
func ProvideStatusHandler(
	logger *applogger.Logger,
	runner *usecase.CycleRunner,
	tracker *usecase.PositionTracker,
	prices *pricefeed.Client,
	store repository.SignalStore,
	sched *scheduler.Scheduler,
) *api.StatusEchoHandler {
	return api.NewStatusEchoHandler(logger, runner, tracker, prices, store, sched)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	sched *scheduler.Scheduler,
	persist *mid.PersistPipeline,
	prices *pricefeed.Client,
	consumer *pkgkafka.Consumer,
	sh *usecase.KafkaSamplesHandler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	pub repository.Publisher,
	handler *api.StatusEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	attachLogCollector(logger, producer, cfg)
	return server.New(cfg, logger, sched, persist, prices, consumer, sh, chClient, pub, handler)
}

// attachLogCollector ships aggregated error logs to Kafka when a log topic is
// configured.
func attachLogCollector(logger *applogger.Logger, producer *pkgkafka.Producer, cfg *config.Config) {
	if cfg.Kafka.LogTopic == "" {
		return
	}
	logger.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.LogTopic,
		Publisher:      internalrepo.NewLogPublisher(producer),
	})
}
