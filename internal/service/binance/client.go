package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	pkghttp "QuantPulse/pkg/http"
)

// Options configures the Binance candle feed.
type Options struct {
	RESTURL        string
	WSURL          string
	Symbols        []string
	Interval       domrepo.Interval
	History        int
	Refresh        time.Duration
	Stream         bool
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	// Warmup, when set, seeds the windows from storage before the first
	// REST backfill so restarts do not begin from an empty window.
	Warmup domrepo.CandleStore
}

// Feed implements a CandleFeed backed by the Binance klines REST endpoint
// with an optional WebSocket kline stream for live bar updates.
type Feed struct {
	opts Options
	rest *pkghttp.Client
	log  zerolog.Logger

	windows   map[string]*window
	connected atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the feed. Windows are empty until Start.
func New(opts Options, rest *pkghttp.Client, log zerolog.Logger) *Feed {
	windows := make(map[string]*window, len(opts.Symbols))
	for _, s := range opts.Symbols {
		windows[s] = newWindow(opts.History)
	}
	return &Feed{
		opts:    opts,
		rest:    rest,
		log:     log.With().Str("component", "binance_feed").Logger(),
		windows: windows,
	}
}

// Start warms up every window, then launches the refresh loop and, when
// streaming is enabled, the WebSocket kline consumer. Warmup failures for
// individual symbols are logged; the refresh loop retries them.
func (f *Feed) Start(ctx context.Context) error {
	ctx, f.cancel = context.WithCancel(ctx)

	for _, symbol := range f.opts.Symbols {
		if err := f.backfill(ctx, symbol); err != nil {
			f.log.Warn().Err(err).Str("symbol", symbol).Msg("initial backfill failed")
		}
	}

	f.wg.Add(1)
	go f.refreshLoop(ctx)

	if f.opts.Stream {
		f.wg.Add(1)
		go f.streamLoop(ctx)
	} else {
		f.connected.Store(true)
	}
	return nil
}

// Window returns a copy of the candle window for symbol, oldest-first.
func (f *Feed) Window(symbol string) ([]models.Candle, error) {
	w, ok := f.windows[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not configured", symbol)
	}
	return w.Snapshot(), nil
}

// LatestPrice returns the close of the newest bar.
func (f *Feed) LatestPrice(symbol string) (float64, bool) {
	w, ok := f.windows[symbol]
	if !ok {
		return 0, false
	}
	c, ok := w.Last()
	if !ok {
		return 0, false
	}
	return c.Close, true
}

// Symbols returns the configured symbol universe.
func (f *Feed) Symbols() []string {
	out := make([]string, len(f.opts.Symbols))
	copy(out, f.opts.Symbols)
	return out
}

// IsConnected reports whether the live stream (or polling fallback) is up.
func (f *Feed) IsConnected() bool { return f.connected.Load() }

// Close stops the loops and waits for them to exit.
func (f *Feed) Close() error {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
	return nil
}

// backfill loads the window for one symbol: storage warmup first when
// available, then the REST klines endpoint as the source of truth.
func (f *Feed) backfill(ctx context.Context, symbol string) error {
	if f.opts.Warmup != nil {
		if cs, err := f.opts.Warmup.GetLatestNCandles(ctx, symbol, f.opts.History, f.opts.Interval); err == nil && len(cs) > 0 {
			f.windows[symbol].Replace(cs)
			f.log.Debug().Str("symbol", symbol).Int("bars", len(cs)).Msg("window seeded from storage")
		}
	}

	cs, err := f.fetchKlines(ctx, symbol)
	if err != nil {
		return err
	}
	f.windows[symbol].Replace(cs)
	f.log.Debug().Str("symbol", symbol).Int("bars", len(cs)).Msg("window backfilled")
	return nil
}

// fetchKlines pulls up to History bars from the klines endpoint.
func (f *Feed) fetchKlines(ctx context.Context, symbol string) ([]models.Candle, error) {
	var raw [][]json.RawMessage
	err := f.rest.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    f.opts.RESTURL + "/klines",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {string(f.opts.Interval)},
			"limit":    {strconv.Itoa(f.opts.History)},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("klines %s: %w", symbol, err)
	}

	out := make([]models.Candle, 0, len(raw))
	for _, row := range raw {
		c, err := parseKlineRow(symbol, row)
		if err != nil {
			return nil, fmt.Errorf("klines %s: %w", symbol, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// parseKlineRow decodes one klines array entry:
// [openTime, open, high, low, close, volume, ...], prices as strings.
func parseKlineRow(symbol string, row []json.RawMessage) (models.Candle, error) {
	var c models.Candle
	if len(row) < 6 {
		return c, fmt.Errorf("kline row has %d fields", len(row))
	}
	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return c, fmt.Errorf("open time: %w", err)
	}
	fields := [5]*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, dst := range fields {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return c, fmt.Errorf("field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c, fmt.Errorf("field %d: %w", i+1, err)
		}
		*dst = v
	}
	c.OpenTime = time.UnixMilli(openMs).UTC()
	c.Symbol = symbol
	return c, nil
}

// refreshLoop reconciles every window against REST on the configured
// period. With streaming enabled this repairs gaps from dropped frames;
// without it, it is the sole bar source.
func (f *Feed) refreshLoop(ctx context.Context) {
	defer f.wg.Done()
	ticker := time.NewTicker(f.opts.Refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range f.opts.Symbols {
				if err := f.backfill(ctx, symbol); err != nil {
					f.log.Warn().Err(err).Str("symbol", symbol).Msg("refresh failed")
				}
			}
		}
	}
}

// klineEvent is the payload of a combined-stream kline frame.
type klineEvent struct {
	Data struct {
		Symbol string `json:"s"`
		Kline  struct {
			OpenTime int64  `json:"t"`
			Open     string `json:"o"`
			High     string `json:"h"`
			Low      string `json:"l"`
			Close    string `json:"c"`
			Volume   string `json:"v"`
			Final    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

func (f *Feed) streamURL() string {
	streams := make([]string, 0, len(f.opts.Symbols))
	for _, s := range f.opts.Symbols {
		streams = append(streams, fmt.Sprintf("%s@kline_%s", strings.ToLower(s), f.opts.Interval))
	}
	return f.opts.WSURL + "?streams=" + strings.Join(streams, "/")
}

// streamLoop maintains the WebSocket connection, reconnecting with a fixed
// delay on any failure.
func (f *Feed) streamLoop(ctx context.Context) {
	defer f.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		if err := f.consumeStream(ctx); err != nil {
			f.connected.Store(false)
			f.log.Warn().Err(err).Dur("retry_in", f.opts.ReconnectDelay).Msg("stream dropped")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.opts.ReconnectDelay):
		}
	}
}

func (f *Feed) consumeStream(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	f.connected.Store(true)
	f.log.Info().Int("symbols", len(f.opts.Symbols)).Msg("kline stream connected")

	// The ping goroutine is tied to this connection, not the feed: a
	// reconnect must not strand the previous connection's ticker.
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(f.opts.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-connCtx.Done():
				_ = conn.Close()
				return
			case <-ticker.C:
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var ev klineEvent
		if err := json.Unmarshal(b, &ev); err != nil {
			continue // not a kline frame
		}
		f.applyKline(ev)
	}
}

// applyKline upserts the streamed bar into its window. Non-final bars
// update the live candle in place; a final bar settles it before the next
// open time arrives.
func (f *Feed) applyKline(ev klineEvent) {
	w, ok := f.windows[ev.Data.Symbol]
	if !ok || ev.Data.Kline.OpenTime == 0 {
		return
	}
	k := ev.Data.Kline
	open, err1 := strconv.ParseFloat(k.Open, 64)
	high, err2 := strconv.ParseFloat(k.High, 64)
	low, err3 := strconv.ParseFloat(k.Low, 64)
	closeP, err4 := strconv.ParseFloat(k.Close, 64)
	vol, err5 := strconv.ParseFloat(k.Volume, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return
	}
	w.Upsert(models.Candle{
		OpenTime: time.UnixMilli(k.OpenTime).UTC(),
		Symbol:   ev.Data.Symbol,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closeP,
		Volume:   vol,
	})
}
