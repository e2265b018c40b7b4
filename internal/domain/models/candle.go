package models

import "time"

// Candle represents one OHLCV bar. Windows are ordered oldest-first and
// append-only; a candle is never mutated after insertion.
type Candle struct {
	OpenTime time.Time
	Symbol   string
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// CloneWindow returns an independent copy of a candle window so a
// recomputation pass can operate on a consistent view while the feed
// keeps appending.
func CloneWindow(w []Candle) []Candle {
	if len(w) == 0 {
		return nil
	}
	out := make([]Candle, len(w))
	copy(out, w)
	return out
}

// Closes extracts the close series from a window.
func Closes(w []Candle) []float64 {
	out := make([]float64, len(w))
	for i := range w {
		out[i] = w[i].Close
	}
	return out
}

// Volumes extracts the volume series from a window.
func Volumes(w []Candle) []float64 {
	out := make([]float64, len(w))
	for i := range w {
		out[i] = w[i].Volume
	}
	return out
}
