package models

import "time"

// Requests for snapshot HTTP endpoints. Defined in domain for consistency and reuse.

type SnapshotRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,min=3,max=20"`
}

// CandleView is the wire form of one OHLCV bar.
type CandleView struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// NewCandleView converts a window candle for the API.
func NewCandleView(c Candle) CandleView {
	return CandleView{
		OpenTime: c.OpenTime,
		Open:     c.Open,
		High:     c.High,
		Low:      c.Low,
		Close:    c.Close,
		Volume:   c.Volume,
	}
}
