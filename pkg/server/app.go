package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/handler/ws"
	internalrepo "QuantPulse/internal/repository"
	"QuantPulse/internal/usecase"
	"QuantPulse/pkg/cache"
	pkgch "QuantPulse/pkg/clickhouse"
	"QuantPulse/pkg/config"
	xhttp "QuantPulse/pkg/http"
	applogger "QuantPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle: feed warmup, the
// analysis scheduler, snapshot publishers, and the HTTP surface.
type App struct {
	cfg   *config.Config
	log   *applogger.Logger
	feed  domrepo.CandleFeed
	svc   *usecase.SnapshotService
	sched *usecase.Scheduler
	hub   *ws.Hub
	pubs  []domrepo.SnapshotPublisher
	store  *internalrepo.CHCandleStore
	ch     *pkgch.Client
	rcache cache.Service

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	feed domrepo.CandleFeed,
	svc *usecase.SnapshotService,
	sched *usecase.Scheduler,
	hub *ws.Hub,
	pubs []domrepo.SnapshotPublisher,
	store *internalrepo.CHCandleStore,
	ch *pkgch.Client,
	rcache cache.Service,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		feed:        feed,
		svc:         svc,
		sched:       sched,
		hub:         hub,
		pubs:        pubs,
		store:       store,
		ch:          ch,
		rcache:      rcache,
		httpHandler: handler,
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
		serverOpts = append(serverOpts, xhttp.WithRequestMetrics(a.log, time.Second))
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, serverOpts...)
	if a.hub != nil {
		a.hub.RegisterRoutes(a.httpServer.Echo())
	}

	if err := a.feed.Start(ctx); err != nil {
		a.log.Error("feed start error", applogger.Error(err))
		return err
	}
	a.log.Info("candle feed started",
		applogger.Strings("symbols", a.cfg.Feed.Symbols),
		applogger.String("interval", a.cfg.Feed.Interval),
	)

	a.sched.Start(ctx)
	a.log.Info("analysis scheduler started", applogger.Duration("cycle", a.cfg.Engine.Cycle))

	if a.store != nil {
		go a.persistCandles(ctx)
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

// persistCandles periodically writes every window to ClickHouse so the
// next start can warm up without hammering the exchange.
func (a *App) persistCandles(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Feed.Refresh)
	defer ticker.Stop()
	iv := domrepo.NormalizeInterval(a.cfg.Feed.Interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range a.feed.Symbols() {
				window, err := a.feed.Window(symbol)
				if err != nil || len(window) == 0 {
					continue
				}
				if err := a.store.StoreBatch(ctx, iv, window); err != nil {
					a.log.Warn("candle persist failed",
						applogger.String("symbol", symbol), applogger.Error(err))
				}
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.sched.Stop()

	if err := a.feed.Close(); err != nil {
		a.log.Warn("feed close error", applogger.Error(err))
	}

	for _, p := range a.pubs {
		if err := p.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.rcache != nil {
		if err := a.rcache.Close(); err != nil {
			a.log.Warn("response cache close error", applogger.Error(err))
		}
	}

	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
