package engine

import (
	"fmt"

	"QuantPulse/internal/domain/models"
	"QuantPulse/pkg/config"
)

// Scorer converts an indicator set into exactly five weighted directional
// factors. Each factor's raw reading lives in [-100, 100] and is scaled by
// its configured weight, so impacts stay within [-50, 50] and the
// sum of all five spans [-100, 100].
type Scorer struct {
	cfg *config.EngineConfig
}

func NewScorer(cfg *config.EngineConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score produces the five factors in fixed order: Trend Strength, Momentum,
// Volatility, Volume, Market Structure.
func (s *Scorer) Score(ind models.IndicatorSet) []models.Factor {
	w := s.cfg.Weights
	return []models.Factor{
		s.trend(ind, w.Trend),
		s.momentum(ind, w.Momentum),
		s.volatility(ind, w.Volatility),
		s.volume(ind, w.Volume),
		s.structure(ind, w.Structure),
	}
}

func makeFactor(name string, raw, weight float64, desc string) models.Factor {
	impact := clamp(raw, -100, 100) * weight
	impact = clamp(impact, -50, 50)
	dir := models.DirectionBullish
	if impact < 0 {
		dir = models.DirectionBearish
	}
	return models.Factor{
		Name:        name,
		Impact:      round2(impact),
		Description: desc,
		Direction:   dir,
	}
}

// trend scores the EMA stack and directional movement, gated by ADX: a
// stacked EMA ladder means little when ADX shows no directional strength.
func (s *Scorer) trend(ind models.IndicatorSet, weight float64) models.Factor {
	raw := 0.0
	if ind.HasEMA50 {
		if ind.EMA20 > ind.EMA50 {
			raw += 40
		} else if ind.EMA20 < ind.EMA50 {
			raw -= 40
		}
	}
	if ind.HasEMA50 && ind.HasEMA100 {
		if ind.EMA50 > ind.EMA100 {
			raw += 20
		} else if ind.EMA50 < ind.EMA100 {
			raw -= 20
		}
	}
	if ind.HasEMA100 && ind.HasEMA200 {
		if ind.EMA100 > ind.EMA200 {
			raw += 15
		} else if ind.EMA100 < ind.EMA200 {
			raw -= 15
		}
	}
	if ind.PlusDI > ind.MinusDI {
		raw += 15
	} else if ind.PlusDI < ind.MinusDI {
		raw -= 15
	}

	mult := adxMultiplier(ind.ADX)
	raw *= mult

	desc := fmt.Sprintf("EMA stack 20/50/100/200 = %.2f/%.2f/%.2f/%.2f, ADX %.1f (+DI %.1f, -DI %.1f)",
		ind.EMA20, ind.EMA50, ind.EMA100, ind.EMA200, ind.ADX, ind.PlusDI, ind.MinusDI)
	if ind.ADX < 20 {
		desc += ", weak trend: signal damped"
	}
	return makeFactor("Trend Strength", raw, weight, desc)
}

// adxMultiplier trusts trend structure only when ADX confirms it.
func adxMultiplier(adx float64) float64 {
	switch {
	case adx >= 30:
		return 1.2
	case adx >= 25:
		return 1.0
	case adx >= 20:
		return 0.8
	default:
		return 0.35
	}
}

// momentum combines RSI zoning with MACD crossover. The two must agree for
// full magnitude; disagreement halves the reading.
func (s *Scorer) momentum(ind models.IndicatorSet, weight float64) models.Factor {
	rsiScore, zone := rsiZoneScore(ind.RSI14)
	macdScore := 40.0
	macdDesc := "MACD bullish"
	if ind.MACD <= ind.MACDSignal {
		macdScore = -40
		macdDesc = "MACD bearish"
	}

	raw := rsiScore + macdScore
	if rsiScore*macdScore < 0 {
		raw *= 0.5
	}

	desc := fmt.Sprintf("RSI14 %.1f (%s), %s (line %.4f vs signal %.4f)",
		ind.RSI14, zone, macdDesc, ind.MACD, ind.MACDSignal)
	return makeFactor("Momentum", raw, weight, desc)
}

// rsiZoneScore scores the RSI zone. Extremes reverse the expected
// continuation: oversold reads bullish, overbought bearish.
func rsiZoneScore(rsi float64) (float64, string) {
	switch {
	case rsi > 70:
		return -45, "overbought"
	case rsi > 60:
		return 35, "bullish momentum"
	case rsi > 50:
		return 45, "strong bullish"
	case rsi > 40:
		return -30, "weak bearish"
	case rsi >= 30:
		return -45, "strong bearish"
	default:
		return 45, "oversold"
	}
}

// volatility reads the Bollinger position contrarily near the bands and
// scales by ATR expansion against its own recent average.
func (s *Scorer) volatility(ind models.IndicatorSet, weight float64) models.Factor {
	b := ind.BBPosition
	var raw float64
	var zone string
	switch {
	case b > 85:
		raw, zone = -80, "at upper band, exhaustion likely"
	case b > 70:
		raw, zone = -35, "upper band zone"
	case b < 15:
		raw, zone = 80, "at lower band, bounce potential"
	case b < 30:
		raw, zone = 35, "lower band zone"
	default:
		raw, zone = 20, "mid-band"
	}

	expansion := 1.0
	if ind.ATRAvg > 0 {
		expansion = ind.ATR / ind.ATRAvg
	}
	switch {
	case expansion > 1.3:
		raw *= 1.25
	case expansion < 0.7:
		raw *= 0.8
	}

	desc := fmt.Sprintf("BB position %.0f%% (%s), ATR %.2f (%.2f%% of price, %.2fx recent avg)",
		b, zone, ind.ATR, ind.ATRPercent, expansion)
	return makeFactor("Volatility", raw, weight, desc)
}

// volume scores the current/average volume ratio in the direction of the
// last move. A zero-volume window is neutral, never a fault.
func (s *Scorer) volume(ind models.IndicatorSet, weight float64) models.Factor {
	if ind.VolumeNow == 0 || ind.VolumeSMA == 0 {
		return makeFactor("Volume", 0, weight, "no volume data, factor neutral")
	}

	sign := 1.0
	move := "up move"
	if ind.Close < ind.PrevClose {
		sign = -1
		move = "down move"
	}

	ratio := ind.VolumeRatio
	var raw float64
	var kind string
	switch {
	case ratio > 1.8:
		raw, kind = sign*85, "explosive"
	case ratio > 1.5:
		raw, kind = sign*60, "strong"
	case ratio > 1.1:
		raw, kind = sign*35, "above average"
	default:
		raw, kind = -15, "below average"
	}

	desc := fmt.Sprintf("%s volume %.2fx the 20-bar average on %s", kind, ratio, move)
	return makeFactor("Volume", raw, weight, desc)
}

// structure scores price against VWAP and the Bollinger mid-band, scaled by
// distance from fair value.
func (s *Scorer) structure(ind models.IndicatorSet, weight float64) models.Factor {
	aboveVWAP := ind.Close > ind.VWAP
	aboveMid := ind.Close > ind.BBMiddle

	var raw float64
	var desc string
	switch {
	case aboveVWAP && aboveMid:
		raw = 70
		desc = "above VWAP and BB middle, strong structure"
	case aboveVWAP:
		raw = 35
		desc = "above VWAP, mixed structure"
	case !aboveVWAP && !aboveMid:
		raw = -70
		desc = "below VWAP and BB middle, weak structure"
	default:
		raw = -35
		desc = "below VWAP, mixed structure"
	}

	dist := ind.VWAPDistPct
	scale := 1 + minF(0.4, absF(dist)/5)
	raw *= scale

	desc = fmt.Sprintf("%s (%+.2f%% vs VWAP %.2f)", desc, dist, ind.VWAP)
	return makeFactor("Market Structure", raw, weight, desc)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
