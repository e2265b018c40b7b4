package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	imetrics "QuantPulse/internal/service/metrics"
	"QuantPulse/internal/service/ratelimit"
	"QuantPulse/internal/services/engine"
	"QuantPulse/internal/usecase"
	"QuantPulse/pkg/cache"
	xhttp "QuantPulse/pkg/http"
	xlogger "QuantPulse/pkg/logger"
)

// SnapshotsEchoHandler serves the read-only snapshot API. Every response
// is a point-in-time view of the last published snapshot; the handler
// never triggers analysis.
type SnapshotsEchoHandler struct {
	logger  *xlogger.Logger
	svc     *usecase.SnapshotService
	feed    domrepo.CandleFeed
	cache   cache.Service
	limiter *ratelimit.Limiter
	burst   float64
	refill  float64
	ttl     time.Duration
}

func NewSnapshotsEchoHandler(
	logger *xlogger.Logger,
	svc *usecase.SnapshotService,
	feed domrepo.CandleFeed,
	respCache cache.Service,
	limiter *ratelimit.Limiter,
	burst, refill float64,
	ttl time.Duration,
) *SnapshotsEchoHandler {
	imetrics.Register()
	return &SnapshotsEchoHandler{
		logger:  logger,
		svc:     svc,
		feed:    feed,
		cache:   respCache,
		limiter: limiter,
		burst:   burst,
		refill:  refill,
		ttl:     ttl,
	}
}

func (h *SnapshotsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/snapshots", h.Snapshots)
	g.GET("/symbols", h.SymbolList)
	g.GET("/candles", h.Candles)
	e.GET("/healthz", h.Health)
}

func (h *SnapshotsEchoHandler) Snapshot(c echo.Context) error {
	timer := prometheus.NewTimer(imetrics.APILatency.WithLabelValues("snapshot"))
	defer timer.ObserveDuration()

	if !h.allow(c) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		imetrics.APIErrors.WithLabelValues("snapshot").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	key := cache.GenerateKey("snapshot", req.Symbol)
	if b, ok := h.cached(c.Request().Context(), key); ok {
		return rawJSON(c, b)
	}

	snap, err := h.svc.Latest(req.Symbol)
	if err != nil {
		return h.snapshotError(c, "snapshot", req.Symbol, err)
	}
	h.store(c.Request().Context(), key, snap)
	return xhttp.SuccessResponse(c, snap)
}

func (h *SnapshotsEchoHandler) Snapshots(c echo.Context) error {
	timer := prometheus.NewTimer(imetrics.APILatency.WithLabelValues("snapshots"))
	defer timer.ObserveDuration()

	if !h.allow(c) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	if b, ok := h.cached(c.Request().Context(), "snapshots:all"); ok {
		return rawJSON(c, b)
	}

	list := h.svc.All()
	h.store(c.Request().Context(), "snapshots:all", list)
	return xhttp.SuccessResponse(c, list)
}

func (h *SnapshotsEchoHandler) SymbolList(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbols": h.svc.Symbols(),
	})
}

// Candles exposes the working candle window behind each snapshot. Optional
// limit and from parameters trim the response to the most recent bars.
func (h *SnapshotsEchoHandler) Candles(c echo.Context) error {
	timer := prometheus.NewTimer(imetrics.APILatency.WithLabelValues("candles"))
	defer timer.ObserveDuration()

	if !h.allow(c) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		imetrics.APIErrors.WithLabelValues("candles").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	window, err := h.feed.Window(req.Symbol)
	if err != nil {
		return xhttp.NotFoundResponse(c, "symbol "+req.Symbol+" is not tracked")
	}

	from := xhttp.ParseTimeDefault(c.QueryParam("from"), time.Time{})
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	if limit < 1 {
		limit = 1
	}

	views := make([]models.CandleView, 0, len(window))
	for _, cd := range window {
		if !from.IsZero() && cd.OpenTime.Before(from) {
			continue
		}
		views = append(views, models.NewCandleView(cd))
	}
	if len(views) > limit {
		views = views[len(views)-limit:]
	}

	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":  req.Symbol,
		"count":   len(views),
		"candles": views,
	})
}

func (h *SnapshotsEchoHandler) Health(c echo.Context) error {
	now := time.Now().UTC()
	status := http.StatusOK
	body := map[string]interface{}{
		"status":       "ok",
		"connected":    h.feed.IsConnected(),
		"ready":        h.svc.All().Count,
		"symbols":      len(h.svc.Symbols()),
		"session":      engine.ActiveSession(now),
		"next_session": engine.NextSessionEvent(now),
	}
	if !h.feed.IsConnected() {
		body["status"] = "degraded"
	}
	return c.JSON(status, body)
}

func (h *SnapshotsEchoHandler) snapshotError(c echo.Context, endpoint, symbol string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrUnknownSymbol):
		return xhttp.NotFoundResponse(c, "symbol "+symbol+" is not tracked")
	case errors.Is(err, usecase.ErrNotReady):
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, "snapshot not ready, feed warming up")
	default:
		imetrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("snapshot lookup failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}

// allow applies a per-client token bucket keyed by remote IP.
func (h *SnapshotsEchoHandler) allow(c echo.Context) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(c.RealIP(), h.burst, h.refill)
}

func (h *SnapshotsEchoHandler) cached(ctx context.Context, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	var body string
	if err := h.cache.Get(ctx, key, &body); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("cache read failed", xlogger.String("key", key), xlogger.Error(err))
		}
		return nil, false
	}
	return []byte(body), true
}

// store caches the full response envelope so cache hits and misses are
// byte-identical to the client.
func (h *SnapshotsEchoHandler) store(ctx context.Context, key string, data interface{}) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, key, string(b), h.ttl); err != nil {
		h.logger.Warn("cache write failed", xlogger.String("key", key), xlogger.Error(err))
	}
}

func rawJSON(c echo.Context, b []byte) error {
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, b)
}
