package engine

import (
	"testing"
	"time"

	"github.com/creasty/defaults"

	"QuantPulse/internal/domain/models"
	"QuantPulse/pkg/config"
)

func testConfig(t *testing.T) *config.EngineConfig {
	t.Helper()
	var c config.Config
	if err := defaults.Set(&c); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	return &c.Engine
}

var testEpoch = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// flatWindow builds n identical bars at the given price and volume.
func flatWindow(n int, price, volume float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			OpenTime: testEpoch.Add(time.Duration(i) * time.Hour),
			Symbol:   "BTCUSDT",
			Open:     price,
			High:     price,
			Low:      price,
			Close:    price,
			Volume:   volume,
		}
	}
	return out
}

// trendWindow builds n bars stepping by delta per bar with a small range
// around each close.
func trendWindow(n int, start, delta, volume float64) []models.Candle {
	out := make([]models.Candle, n)
	price := start
	for i := range out {
		next := price + delta
		hi, lo := next, price
		if delta < 0 {
			hi, lo = price, next
		}
		out[i] = models.Candle{
			OpenTime: testEpoch.Add(time.Duration(i) * time.Hour),
			Symbol:   "BTCUSDT",
			Open:     price,
			High:     hi + absF(delta)*0.2,
			Low:      lo - absF(delta)*0.2,
			Close:    next,
			Volume:   volume,
		}
		price = next
	}
	return out
}

func bullishSet() models.IndicatorSet {
	return models.IndicatorSet{
		Close:       50500,
		PrevClose:   50000,
		High:        50600,
		Low:         49900,
		EMA20:       50300,
		EMA50:       50000,
		EMA100:      49700,
		EMA200:      49000,
		HasEMA50:    true,
		HasEMA100:   true,
		HasEMA200:   true,
		EMA20Slope:  120,
		RSI7:        60,
		RSI14:       58,
		RSI21:       56,
		MACD:        45,
		MACDSignal:  20,
		MACDHist:    25,
		BBUpper:     51500,
		BBMiddle:    50200,
		BBLower:     48900,
		BBPosition:  61,
		BBWidth:     5.2,
		BBWidthAvg:  5.0,
		ATR:         400,
		ATRPercent:  0.79,
		ATRAvg:      400,
		ADX:         32,
		PlusDI:      28,
		MinusDI:     14,
		OBV:         1500,
		OBVTrend:    300,
		VolumeSMA:   100,
		VolumeNow:   190,
		VolumeRatio: 1.9,
		VWAP:        49900,
		VWAPDistPct: 1.2,
	}
}
