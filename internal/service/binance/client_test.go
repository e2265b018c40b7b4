package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	domrepo "QuantPulse/internal/domain/repository"
	pkghttp "QuantPulse/pkg/http"
)

func klineRow(openMs int64, o, h, l, c, v string) []interface{} {
	return []interface{}{openMs, o, h, l, c, v, openMs + 3599999, "0", 0, "0", "0", "0"}
}

func TestFetchKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/klines" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1h" || q.Get("limit") != "500" {
			t.Fatalf("unexpected query %v", q)
		}
		rows := []interface{}{
			klineRow(1700000000000, "100.5", "102", "99.5", "101", "34.2"),
			klineRow(1700003600000, "101", "103", "100", "102.5", "12.0"),
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	f := New(Options{
		RESTURL:  srv.URL,
		Symbols:  []string{"BTCUSDT"},
		Interval: domrepo.Interval("1h"),
		History:  500,
	}, pkghttp.NewClient(pkghttp.WithTimeout(time.Second)), zerolog.Nop())

	cs, err := f.fetchKlines(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("candle count %d, want 2", len(cs))
	}
	first := cs[0]
	if first.Open != 100.5 || first.High != 102 || first.Low != 99.5 || first.Close != 101 || first.Volume != 34.2 {
		t.Fatalf("parsed candle %+v", first)
	}
	if first.Symbol != "BTCUSDT" {
		t.Fatalf("symbol %q", first.Symbol)
	}
	if !first.OpenTime.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Fatalf("open time %v", first.OpenTime)
	}
}

func TestFetchKlinesBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rows := []interface{}{[]interface{}{1700000000000, "not-a-number", "1", "1", "1", "1"}}
		_ = json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	f := New(Options{
		RESTURL:  srv.URL,
		Symbols:  []string{"BTCUSDT"},
		Interval: domrepo.Interval("1h"),
		History:  10,
	}, pkghttp.NewClient(pkghttp.WithTimeout(time.Second)), zerolog.Nop())

	if _, err := f.fetchKlines(context.Background(), "BTCUSDT"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestWindowUnknownSymbol(t *testing.T) {
	f := New(Options{Symbols: []string{"BTCUSDT"}, History: 10},
		pkghttp.NewClient(), zerolog.Nop())
	if _, err := f.Window("DOGEUSDT"); err == nil {
		t.Fatalf("expected error for unconfigured symbol")
	}
	if _, ok := f.LatestPrice("DOGEUSDT"); ok {
		t.Fatalf("expected no price for unconfigured symbol")
	}
}

func TestStreamURL(t *testing.T) {
	f := New(Options{
		WSURL:    "wss://stream.binance.com:9443/stream",
		Symbols:  []string{"BTCUSDT", "ETHUSDT"},
		Interval: domrepo.Interval("1h"),
		History:  10,
	}, pkghttp.NewClient(), zerolog.Nop())

	want := "wss://stream.binance.com:9443/stream?streams=btcusdt@kline_1h/ethusdt@kline_1h"
	if got := f.streamURL(); got != want {
		t.Fatalf("stream url %q, want %q", got, want)
	}
}

func TestConsumeStreamReleasesPingGoroutine(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	f := New(Options{
		WSURL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		Symbols:      []string{"BTCUSDT"},
		Interval:     domrepo.Interval("1h"),
		History:      10,
		PingInterval: time.Minute,
	}, pkghttp.NewClient(), zerolog.Nop())

	before := runtime.NumGoroutine()
	for i := 0; i < 25; i++ {
		if err := f.consumeStream(context.Background()); err == nil {
			t.Fatalf("expected read error on dropped connection")
		}
	}
	time.Sleep(100 * time.Millisecond)
	after := runtime.NumGoroutine()

	// Each reconnect must release its ping goroutine with the connection.
	if after > before+5 {
		t.Fatalf("goroutines grew from %d to %d across reconnects", before, after)
	}
}

func TestApplyKlineUpsertsLiveBar(t *testing.T) {
	f := New(Options{Symbols: []string{"BTCUSDT"}, History: 10},
		pkghttp.NewClient(), zerolog.Nop())

	var ev klineEvent
	ev.Data.Symbol = "BTCUSDT"
	ev.Data.Kline.OpenTime = 1700000000000
	ev.Data.Kline.Open = "100"
	ev.Data.Kline.High = "105"
	ev.Data.Kline.Low = "99"
	ev.Data.Kline.Close = "104"
	ev.Data.Kline.Volume = "7.5"
	f.applyKline(ev)

	ev.Data.Kline.Close = "104.5"
	f.applyKline(ev)

	w, err := f.Window("BTCUSDT")
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(w) != 1 {
		t.Fatalf("bar count %d, want 1 live bar", len(w))
	}
	if w[0].Close != 104.5 {
		t.Fatalf("live close %v, want 104.5", w[0].Close)
	}
}
