package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"QuantPulse/internal/domain/models"
)

func TestComputeInsufficientHistory(t *testing.T) {
	bank := NewBank(testConfig(t))
	_, err := bank.Compute(flatWindow(50, 100, 10))
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestComputeFlatWindow(t *testing.T) {
	bank := NewBank(testConfig(t))
	ind, err := bank.Compute(flatWindow(250, 100, 10))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ind.RSI14 != 50 {
		t.Fatalf("flat window RSI %v, want 50", ind.RSI14)
	}
	if ind.MACD != 0 || ind.MACDSignal != 0 {
		t.Fatalf("flat window MACD %v/%v, want 0/0", ind.MACD, ind.MACDSignal)
	}
	if ind.BBPosition != 50 {
		t.Fatalf("degenerate band position %v, want 50", ind.BBPosition)
	}
	if ind.ATR != 0 {
		t.Fatalf("flat window ATR %v, want 0", ind.ATR)
	}
	if ind.VWAP != 100 {
		t.Fatalf("flat window VWAP %v, want 100", ind.VWAP)
	}
	if ind.VolumeRatio != 1 {
		t.Fatalf("flat window volume ratio %v, want 1", ind.VolumeRatio)
	}
	if ind.EMA20 != 100 || ind.EMA200 != 100 {
		t.Fatalf("flat window EMAs %v/%v, want 100", ind.EMA20, ind.EMA200)
	}
}

func TestComputeRisingWindow(t *testing.T) {
	bank := NewBank(testConfig(t))
	ind, err := bank.Compute(trendWindow(250, 1000, 2, 50))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ind.RSI14 != 100 {
		t.Fatalf("monotonic rise RSI %v, want 100", ind.RSI14)
	}
	if ind.EMA20 <= ind.EMA50 || ind.EMA50 <= ind.EMA100 || ind.EMA100 <= ind.EMA200 {
		t.Fatalf("EMA stack not ascending: %v %v %v %v", ind.EMA20, ind.EMA50, ind.EMA100, ind.EMA200)
	}
	if !ind.HasEMA100 || !ind.HasEMA200 {
		t.Fatalf("long EMAs should be available at 250 bars")
	}
	if ind.EMA20Slope <= 0 {
		t.Fatalf("rising window EMA20 slope %v, want > 0", ind.EMA20Slope)
	}
	if ind.OBVTrend <= 0 {
		t.Fatalf("rising window OBV trend %v, want > 0", ind.OBVTrend)
	}
	if ind.PlusDI <= ind.MinusDI {
		t.Fatalf("+DI %v should exceed -DI %v on a steady rise", ind.PlusDI, ind.MinusDI)
	}
	if ind.Close <= ind.VWAP {
		t.Fatalf("close %v should sit above window VWAP %v on a steady rise", ind.Close, ind.VWAP)
	}
}

func TestComputeShortWindowSkipsLongEMAs(t *testing.T) {
	cfg := testConfig(t)
	cfg.MinHistory = 60
	bank := NewBank(cfg)
	ind, err := bank.Compute(trendWindow(80, 1000, 1, 50))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ind.HasEMA100 || ind.HasEMA200 {
		t.Fatalf("80-bar window must not report EMA100/EMA200")
	}
	if !ind.HasEMA50 {
		t.Fatalf("80-bar window should report EMA50")
	}
}

func TestComputeShortWindowSkipsEMA50(t *testing.T) {
	cfg := testConfig(t)
	cfg.MinHistory = 40
	bank := NewBank(cfg)
	ind, err := bank.Compute(trendWindow(45, 2000, -2, 50))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ind.HasEMA50 {
		t.Fatalf("45-bar window must not report EMA50")
	}
	if ind.EMA50 != 0 {
		t.Fatalf("unavailable EMA50 should stay zero, got %v", ind.EMA50)
	}
}

func TestComputeZeroVolume(t *testing.T) {
	bank := NewBank(testConfig(t))
	w := trendWindow(250, 1000, 1, 0)
	ind, err := bank.Compute(w)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ind.VolumeRatio != 1 {
		t.Fatalf("zero-volume ratio %v, want neutral 1", ind.VolumeRatio)
	}
	if ind.VWAP != w[len(w)-1].Close {
		t.Fatalf("zero-volume VWAP %v, want last close %v", ind.VWAP, w[len(w)-1].Close)
	}
}

func TestComputeDeterministic(t *testing.T) {
	bank := NewBank(testConfig(t))
	w := trendWindow(250, 2000, 3, 40)
	a, err := bank.Compute(models.CloneWindow(w))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	b, err := bank.Compute(models.CloneWindow(w))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same window produced different indicator sets")
	}
}

func TestSMA(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	if got := sma(xs, 3); got != 4 {
		t.Fatalf("sma %v, want 4", got)
	}
	if got := sma(xs, 10); got != 0 {
		t.Fatalf("short series sma %v, want 0", got)
	}
}

func TestStdDevPopulation(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := stdDev(xs, len(xs))
	if math.Abs(got-2) > 1e-9 {
		t.Fatalf("population stddev %v, want 2", got)
	}
}

func TestEMASeriesSeed(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6}
	s := emaSeries(xs, 3)
	if len(s) != 4 {
		t.Fatalf("series length %d, want 4", len(s))
	}
	if s[0] != 2 {
		t.Fatalf("seed %v, want SMA of first period 2", s[0])
	}
	// k = 0.5 for period 3: next = (4-2)*0.5 + 2 = 3.
	if s[1] != 3 {
		t.Fatalf("second value %v, want 3", s[1])
	}
}

func TestRSIBounds(t *testing.T) {
	up := make([]float64, 30)
	down := make([]float64, 30)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 200 - float64(i)
	}
	if got := rsi(up, 14); got != 100 {
		t.Fatalf("all-gains RSI %v, want 100", got)
	}
	if got := rsi(down, 14); got != 0 {
		t.Fatalf("all-losses RSI %v, want 0", got)
	}
	if got := rsi([]float64{1, 2}, 14); got != 50 {
		t.Fatalf("short series RSI %v, want neutral 50", got)
	}
}

func TestBandPosition(t *testing.T) {
	if got := bandPosition(100, 90, 110); got != 50 {
		t.Fatalf("mid position %v, want 50", got)
	}
	if got := bandPosition(120, 90, 110); got != 100 {
		t.Fatalf("above-band position %v, want clamped 100", got)
	}
	if got := bandPosition(100, 100, 100); got != 50 {
		t.Fatalf("degenerate envelope %v, want 50", got)
	}
}

func TestVWAPWeighting(t *testing.T) {
	w := []models.Candle{
		{High: 10, Low: 10, Close: 10, Volume: 1},
		{High: 20, Low: 20, Close: 20, Volume: 3},
	}
	got := vwap(w)
	want := (10*1 + 20*3) / 4.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("vwap %v, want %v", got, want)
	}
}
