package binance

import (
	"sync"

	"QuantPulse/internal/domain/models"
)

// window is a bounded per-symbol candle buffer. The feed is the only
// writer; readers always get an independent copy so an analysis pass sees
// a consistent view while new bars keep arriving.
type window struct {
	mu      sync.RWMutex
	candles []models.Candle
	limit   int
}

func newWindow(limit int) *window {
	return &window{limit: limit, candles: make([]models.Candle, 0, limit)}
}

// Upsert inserts a candle keyed by its open time. A bar matching the last
// open time replaces it in place (the streaming update of the live bar),
// a newer bar appends and evicts the oldest past the limit, and anything
// older than the last bar is dropped.
func (w *window) Upsert(c models.Candle) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.candles)
	if n > 0 {
		last := w.candles[n-1]
		if c.OpenTime.Equal(last.OpenTime) {
			w.candles[n-1] = c
			return
		}
		if c.OpenTime.Before(last.OpenTime) {
			return
		}
	}
	w.candles = append(w.candles, c)
	if len(w.candles) > w.limit {
		w.candles = w.candles[len(w.candles)-w.limit:]
	}
}

// Replace swaps the whole buffer, keeping only the trailing limit bars.
// Used by warmup and periodic REST reconciliation.
func (w *window) Replace(cs []models.Candle) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(cs) > w.limit {
		cs = cs[len(cs)-w.limit:]
	}
	w.candles = append(w.candles[:0], cs...)
}

// Snapshot returns a copy of the buffer, oldest-first.
func (w *window) Snapshot() []models.Candle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return models.CloneWindow(w.candles)
}

// Last returns the newest candle.
func (w *window) Last() (models.Candle, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.candles) == 0 {
		return models.Candle{}, false
	}
	return w.candles[len(w.candles)-1], true
}

// Len returns the current bar count.
func (w *window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.candles)
}
