package di

import (
	"context"
	"fmt"

	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/handler/api"
	"QuantPulse/internal/handler/ws"
	internalrepo "QuantPulse/internal/repository"
	"QuantPulse/internal/service/binance"
	"QuantPulse/internal/service/ratelimit"
	"QuantPulse/internal/services/engine"
	"QuantPulse/internal/usecase"
	"QuantPulse/pkg/cache"
	pkgch "QuantPulse/pkg/clickhouse"
	"QuantPulse/pkg/config"
	xhttp "QuantPulse/pkg/http"
	pkgkafka "QuantPulse/pkg/kafka"
	applogger "QuantPulse/pkg/logger"
	pkgmetrics "QuantPulse/pkg/metrics"
	"QuantPulse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the prometheus recorder.
func ProvideMetrics() domrepo.Metrics {
	return pkgmetrics.New()
}

// ProvideHTTPClient creates the outbound REST client used by the feed.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Feed.Refresh))
}

// ProvideClickHouseClient creates the ClickHouse client, or nil when
// persistence is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ch, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return ch, nil
}

// ProvideCandleStore creates the candle store on top of ClickHouse, or nil
// when persistence is disabled.
func ProvideCandleStore(cfg *config.Config, ch *pkgch.Client, log *applogger.Logger) (*internalrepo.CHCandleStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.Table)
	store.SetLogger(log)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClickHouse.DialTimeout)
	defer cancel()
	if err := store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("candle schema: %w", err)
	}
	return store, nil
}

// ProvideCandleFeed creates the Binance candle feed. A non-nil store seeds
// windows from persisted candles before the first REST backfill.
func ProvideCandleFeed(cfg *config.Config, rest *xhttp.Client, store *internalrepo.CHCandleStore, log *applogger.Logger) domrepo.CandleFeed {
	opts := binance.Options{
		RESTURL:        cfg.Feed.RESTURL,
		WSURL:          cfg.Feed.WSURL,
		Symbols:        cfg.Feed.Symbols,
		Interval:       domrepo.NormalizeInterval(cfg.Feed.Interval),
		History:        cfg.Feed.History,
		Refresh:        cfg.Feed.Refresh,
		Stream:         cfg.Feed.Stream,
		ReconnectDelay: cfg.Feed.Reconnect,
		PingInterval:   cfg.Feed.Ping,
	}
	if store != nil {
		opts.Warmup = store
	}
	return binance.New(opts, rest, log.Zerolog())
}

// ProvideWSHub creates the websocket push hub.
func ProvideWSHub(log *applogger.Logger) *ws.Hub {
	return ws.NewHub(log.Zerolog())
}

// ProvidePublishers assembles the snapshot fan-out set. The hub is always
// present; kafka joins when enabled.
func ProvidePublishers(cfg *config.Config, hub *ws.Hub) ([]domrepo.SnapshotPublisher, error) {
	pubs := []domrepo.SnapshotPublisher{hub}
	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithBatchSize(cfg.Kafka.BatchSize),
			pkgkafka.WithBatchTimeout(cfg.Kafka.Linger),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
			pkgkafka.WithAsync(cfg.Kafka.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		pubs = append(pubs, internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic))
	}
	return pubs, nil
}

// ProvideAssembler creates the signal synthesis pipeline.
func ProvideAssembler(cfg *config.Config) *engine.Assembler {
	return engine.NewAssembler(&cfg.Engine)
}

// ProvideSnapshotService creates the snapshot use case service.
func ProvideSnapshotService(
	feed domrepo.CandleFeed,
	assembler *engine.Assembler,
	pubs []domrepo.SnapshotPublisher,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *usecase.SnapshotService {
	return usecase.NewSnapshotService(feed, assembler, pubs, metrics, log.Zerolog())
}

// ProvideScheduler creates the per-symbol refresh scheduler.
func ProvideScheduler(cfg *config.Config, svc *usecase.SnapshotService, log *applogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(svc, cfg.Engine.Cycle, log.Zerolog())
}

// ProvideResponseCache selects the snapshot response cache backend.
func ProvideResponseCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Backend == "layered" {
			return cache.NewLayeredCache(rc), nil
		}
		return rc, nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

// ProvideRateLimiter creates the per-client API rate limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHandler creates the REST API handler.
func ProvideHandler(
	cfg *config.Config,
	log *applogger.Logger,
	svc *usecase.SnapshotService,
	feed domrepo.CandleFeed,
	respCache cache.Service,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return api.NewSnapshotsEchoHandler(log, svc, feed, respCache, limiter,
		cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.PerSecond, cfg.Cache.SnapshotTTL)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	feed domrepo.CandleFeed,
	svc *usecase.SnapshotService,
	sched *usecase.Scheduler,
	hub *ws.Hub,
	pubs []domrepo.SnapshotPublisher,
	store *internalrepo.CHCandleStore,
	ch *pkgch.Client,
	respCache cache.Service,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, feed, svc, sched, hub, pubs, store, ch, respCache, handler)
}
