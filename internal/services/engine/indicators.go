// Package engine implements the signal synthesis pipeline: indicators,
// weighted directional factors, composite classification, risk profiling,
// and entry-point generation. Every stage is a pure function of the candle
// window and the engine configuration.
package engine

import (
	"errors"
	"math"

	"QuantPulse/internal/domain/models"
	"QuantPulse/pkg/config"
)

// ErrInsufficientHistory signals that the candle window is shorter than the
// configured minimum lookback. Recoverable: it resolves once enough candles
// accumulate.
var ErrInsufficientHistory = errors.New("insufficient candle history")

const (
	emaFastPeriod   = 12
	emaSlowPeriod   = 26
	macdSignalSpan  = 9
	bbPeriod        = 20
	bbStdDevs       = 2.0
	atrPeriod       = 14
	adxPeriod       = 14
	volumeSMAPeriod = 20
	obvLookback     = 20
	atrAvgLookback  = 50
	slopeLookback   = 5
)

// Bank computes the fixed indicator set from a candle window.
type Bank struct {
	minHistory int
}

// NewBank creates an indicator bank bound to the engine configuration.
func NewBank(cfg *config.EngineConfig) *Bank {
	return &Bank{minHistory: cfg.MinHistory}
}

// Compute derives the full indicator set. The window must hold at least the
// configured minimum history; shorter windows return ErrInsufficientHistory.
// Same window in, same set out.
func (b *Bank) Compute(window []models.Candle) (models.IndicatorSet, error) {
	var ind models.IndicatorSet
	if len(window) < b.minHistory {
		return ind, ErrInsufficientHistory
	}

	closes := models.Closes(window)
	volumes := models.Volumes(window)
	last := window[len(window)-1]

	ind.Close = last.Close
	ind.PrevClose = window[len(window)-2].Close
	ind.High = last.High
	ind.Low = last.Low
	ind.VolumeNow = last.Volume

	// Trend EMAs. Longer lookbacks are marked unavailable rather than
	// extrapolated when the window is short.
	ind.EMA20 = emaLast(closes, 20)
	if len(closes) >= 50 {
		ind.EMA50 = emaLast(closes, 50)
		ind.HasEMA50 = true
	}
	if len(closes) >= 100 {
		ind.EMA100 = emaLast(closes, 100)
		ind.HasEMA100 = true
	}
	if len(closes) >= 200 {
		ind.EMA200 = emaLast(closes, 200)
		ind.HasEMA200 = true
	}
	ema20s := emaSeries(closes, 20)
	if len(ema20s) > slopeLookback {
		ind.EMA20Slope = ema20s[len(ema20s)-1] - ema20s[len(ema20s)-1-slopeLookback]
	}

	// Momentum.
	ind.RSI7 = rsi(closes, 7)
	ind.RSI14 = rsi(closes, 14)
	ind.RSI21 = rsi(closes, 21)
	ind.MACD, ind.MACDSignal, ind.MACDHist = macd(closes)

	// Volatility envelope.
	ind.BBMiddle = sma(closes, bbPeriod)
	sd := stdDev(closes, bbPeriod)
	ind.BBUpper = ind.BBMiddle + bbStdDevs*sd
	ind.BBLower = ind.BBMiddle - bbStdDevs*sd
	ind.BBPosition = bandPosition(ind.Close, ind.BBLower, ind.BBUpper)
	ind.BBWidth = bandWidth(ind.BBUpper, ind.BBLower, ind.BBMiddle)
	ind.BBWidthAvg = avgBandWidth(closes, obvLookback)

	trs := trueRanges(window)
	atrs := wilderSeries(trs, atrPeriod)
	if len(atrs) > 0 {
		ind.ATR = atrs[len(atrs)-1]
		ind.ATRAvg = mean(tail(atrs, atrAvgLookback))
	}
	if ind.Close > 0 {
		ind.ATRPercent = ind.ATR / ind.Close * 100
	}

	ind.ADX, ind.PlusDI, ind.MinusDI = adx(window, adxPeriod)

	// Volume flow.
	ind.OBV, ind.OBVTrend = obv(closes, volumes)
	ind.VolumeSMA = sma(volumes, volumeSMAPeriod)
	if ind.VolumeSMA > 0 {
		ind.VolumeRatio = ind.VolumeNow / ind.VolumeSMA
	} else {
		// Zero-volume window: neutral ratio, never a division fault.
		ind.VolumeRatio = 1
	}

	ind.VWAP = vwap(window)
	if ind.VWAP > 0 {
		ind.VWAPDistPct = (ind.Close - ind.VWAP) / ind.VWAP * 100
	}

	return ind, nil
}

// sma returns the simple moving average of the trailing period values.
func sma(xs []float64, period int) float64 {
	if period <= 0 || len(xs) < period {
		return 0
	}
	return mean(xs[len(xs)-period:])
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev returns the population standard deviation of the trailing period
// values, matching the conventional Bollinger computation.
func stdDev(xs []float64, period int) float64 {
	if period <= 1 || len(xs) < period {
		return 0
	}
	w := xs[len(xs)-period:]
	m := mean(w)
	sum := 0.0
	for _, x := range w {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(period))
}

// emaSeries computes the exponential moving average seeded with the SMA of
// the first period values. The returned series has len(xs)-period+1 entries,
// one per bar from the seed onward.
func emaSeries(xs []float64, period int) []float64 {
	if period <= 0 || len(xs) < period {
		return nil
	}
	out := make([]float64, 0, len(xs)-period+1)
	seed := mean(xs[:period])
	out = append(out, seed)
	k := 2.0 / float64(period+1)
	prev := seed
	for i := period; i < len(xs); i++ {
		prev = (xs[i]-prev)*k + prev
		out = append(out, prev)
	}
	return out
}

func emaLast(xs []float64, period int) float64 {
	s := emaSeries(xs, period)
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// rsi computes the Wilder-smoothed relative strength index.
func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// macd returns the MACD(12,26,9) line, signal, and histogram.
func macd(closes []float64) (line, signal, hist float64) {
	fast := emaSeries(closes, emaFastPeriod)
	slow := emaSeries(closes, emaSlowPeriod)
	if len(slow) == 0 || len(fast) < len(slow) {
		return 0, 0, 0
	}
	// Align the fast series to the slow seed bar.
	fast = fast[len(fast)-len(slow):]
	macdLine := make([]float64, len(slow))
	for i := range slow {
		macdLine[i] = fast[i] - slow[i]
	}
	sig := emaSeries(macdLine, macdSignalSpan)
	line = macdLine[len(macdLine)-1]
	if len(sig) > 0 {
		signal = sig[len(sig)-1]
	}
	return line, signal, line - signal
}

// trueRanges returns the TR series (one entry per bar after the first).
func trueRanges(w []models.Candle) []float64 {
	if len(w) < 2 {
		return nil
	}
	out := make([]float64, 0, len(w)-1)
	for i := 1; i < len(w); i++ {
		hl := w[i].High - w[i].Low
		hc := math.Abs(w[i].High - w[i-1].Close)
		lc := math.Abs(w[i].Low - w[i-1].Close)
		out = append(out, math.Max(hl, math.Max(hc, lc)))
	}
	return out
}

// wilderSeries applies Wilder smoothing: seed with the mean of the first
// period values, then s = (prev*(n-1) + x) / n.
func wilderSeries(xs []float64, period int) []float64 {
	if period <= 0 || len(xs) < period {
		return nil
	}
	out := make([]float64, 0, len(xs)-period+1)
	prev := mean(xs[:period])
	out = append(out, prev)
	for i := period; i < len(xs); i++ {
		prev = (prev*float64(period-1) + xs[i]) / float64(period)
		out = append(out, prev)
	}
	return out
}

// adx computes the Wilder ADX with +DI/-DI over the window.
func adx(w []models.Candle, period int) (adxV, plusDI, minusDI float64) {
	if len(w) < 2*period+1 {
		return 0, 0, 0
	}
	n := len(w) - 1
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	trs := trueRanges(w)
	for i := 1; i < len(w); i++ {
		up := w[i].High - w[i-1].High
		down := w[i-1].Low - w[i].Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	atrS := wilderSeries(trs, period)
	pdmS := wilderSeries(plusDM, period)
	mdmS := wilderSeries(minusDM, period)
	m := len(atrS)
	dx := make([]float64, 0, m)
	for i := 0; i < m; i++ {
		if atrS[i] == 0 {
			dx = append(dx, 0)
			continue
		}
		pdi := pdmS[i] / atrS[i] * 100
		mdi := mdmS[i] / atrS[i] * 100
		sum := pdi + mdi
		if sum == 0 {
			dx = append(dx, 0)
			continue
		}
		dx = append(dx, math.Abs(pdi-mdi)/sum*100)
		if i == m-1 {
			plusDI, minusDI = pdi, mdi
		}
	}
	adxS := wilderSeries(dx, period)
	if len(adxS) > 0 {
		adxV = adxS[len(adxS)-1]
	}
	return adxV, plusDI, minusDI
}

// obv returns the cumulative on-balance volume and its change over the
// trailing lookback.
func obv(closes, volumes []float64) (last, trend float64) {
	if len(closes) < 2 {
		return 0, 0
	}
	series := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			series[i] = series[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			series[i] = series[i-1] - volumes[i]
		default:
			series[i] = series[i-1]
		}
	}
	last = series[len(series)-1]
	ref := len(series) - 1 - obvLookback
	if ref < 0 {
		ref = 0
	}
	return last, last - series[ref]
}

// vwap computes the volume-weighted average price over the window, falling
// back to the last close on a zero-volume window.
func vwap(w []models.Candle) float64 {
	var pv, vol float64
	for _, c := range w {
		typical := (c.High + c.Low + c.Close) / 3
		pv += typical * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		return w[len(w)-1].Close
	}
	return pv / vol
}

// bandPosition maps price into its Bollinger envelope as 0..100.
func bandPosition(price, lower, upper float64) float64 {
	r := upper - lower
	if r <= 0 {
		return 50
	}
	return clamp((price-lower)/r*100, 0, 100)
}

func bandWidth(upper, lower, middle float64) float64 {
	if middle == 0 {
		return 0
	}
	return (upper - lower) / middle * 100
}

// avgBandWidth computes the mean Bollinger width over the trailing lookback
// end positions, used to judge squeeze versus expansion.
func avgBandWidth(closes []float64, lookback int) float64 {
	if len(closes) < bbPeriod+lookback {
		return 0
	}
	sum := 0.0
	for off := 0; off < lookback; off++ {
		end := len(closes) - off
		w := closes[:end]
		mid := sma(w, bbPeriod)
		sd := stdDev(w, bbPeriod)
		sum += bandWidth(mid+bbStdDevs*sd, mid-bbStdDevs*sd, mid)
	}
	return sum / float64(lookback)
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
