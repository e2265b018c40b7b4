package repository

import (
	"context"

	"QuantPulse/internal/domain/models"
)

// CandleFeed maintains per-instrument candle windows. Only the feed appends;
// consumers get an independent copy of the window.
type CandleFeed interface {
	Start(ctx context.Context) error
	// Window returns a copy of the current candle window for symbol,
	// oldest-first. Unconfigured symbols return an error.
	Window(symbol string) ([]models.Candle, error)
	LatestPrice(symbol string) (float64, bool)
	Symbols() []string
	IsConnected() bool
	Close() error
}

// CandleStore provides read access to historical candles for feed warmup.
type CandleStore interface {
	GetLatestNCandles(ctx context.Context, symbol string, n int, iv Interval) ([]models.Candle, error)
}

// SnapshotPublisher receives every published snapshot (push transport,
// message bus). Publish failures must not abort the analysis pass.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snap *models.Snapshot) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordPass(symbol string, seconds float64)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordSignalScore(symbol string, score float64)
}
