package engine

import (
	"fmt"
	"sort"

	"QuantPulse/internal/domain/models"
	"QuantPulse/pkg/config"
)

// Anchor identifiers for entry candidates.
const (
	anchorBand      = "band"
	anchorEMA       = "ema20"
	anchorVWAP      = "vwap"
	anchorATROffset = "atr_offset"
)

// Generator proposes up to four entry candidates, each anchored to a
// distinct reference level, with TP/SL as configured ATR multiples and a
// heuristic win-rate estimate.
type Generator struct {
	cfg *config.EngineConfig
}

func NewGenerator(cfg *config.EngineConfig) *Generator {
	return &Generator{cfg: cfg}
}

type anchor struct {
	kind   string
	price  float64
	reason string
	base   float64 // base strength for ranking
}

// Generate returns candidates consistent with the signal direction, ranked
// by win rate then strength, truncated to the configured maximum. NEUTRAL
// signals emit both sides at halved strength.
func (g *Generator) Generate(ind models.IndicatorSet, sig models.Signal, regime string, price float64) []models.EntryPoint {
	atr := ind.ATR
	if atr <= 0 {
		// Degenerate range: fall back to a small fraction of price so
		// TP/SL sides stay well ordered.
		atr = price * 0.005
	}
	if price <= 0 {
		return nil
	}

	var out []models.EntryPoint
	switch {
	case sig.IsBullish():
		out = g.side(ind, sig, regime, price, atr, models.OrderBuy)
	case sig.IsBearish():
		out = g.side(ind, sig, regime, price, atr, models.OrderSell)
	default:
		buys := g.side(ind, sig, regime, price, atr, models.OrderBuy)
		sells := g.side(ind, sig, regime, price, atr, models.OrderSell)
		out = append(buys, sells...)
		for i := range out {
			half := out[i].Strength * 0.5
			if half < 30 {
				half = 30
			}
			out[i].Strength = round2(half)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].Strength > out[j].Strength
	})
	if len(out) > g.cfg.MaxEntries {
		out = out[:g.cfg.MaxEntries]
	}
	return out
}

func (g *Generator) side(ind models.IndicatorSet, sig models.Signal, regime string, price, atr float64, orderType string) []models.EntryPoint {
	anchors := g.anchors(ind, price, atr, orderType)
	out := make([]models.EntryPoint, 0, len(anchors))
	for _, a := range anchors {
		if !consistent(a.price, price, orderType) {
			// A support level above price (or resistance below) would
			// contradict the signal; suppress rather than emit.
			continue
		}
		ep, ok := g.build(a, ind, sig, regime, atr, orderType)
		if !ok {
			continue
		}
		out = append(out, ep)
	}
	return out
}

// anchors returns the four reference levels for one side.
func (g *Generator) anchors(ind models.IndicatorSet, price, atr float64, orderType string) []anchor {
	e := g.cfg.Entries
	if orderType == models.OrderBuy {
		return []anchor{
			{anchorBand, ind.BBLower, "lower Bollinger band support", 80},
			{anchorEMA, ind.EMA20, "EMA-20 dynamic support", 70},
			{anchorVWAP, ind.VWAP, "VWAP fair-value reversion", 75},
			{anchorATROffset, price - atr*e.ATROffset.Offset, fmt.Sprintf("current price - %.1f ATR limit", e.ATROffset.Offset), 60},
		}
	}
	return []anchor{
		{anchorBand, ind.BBUpper, "upper Bollinger band resistance", 80},
		{anchorEMA, ind.EMA20, "EMA-20 dynamic resistance", 70},
		{anchorVWAP, ind.VWAP, "VWAP fair-value reversion", 75},
		{anchorATROffset, price + atr*e.ATROffset.Offset, fmt.Sprintf("current price + %.1f ATR limit", e.ATROffset.Offset), 60},
	}
}

// consistent enforces support-below / resistance-above with a small
// tolerance for levels sitting on top of price.
func consistent(entry, price float64, orderType string) bool {
	tol := price * 0.001
	if orderType == models.OrderBuy {
		return entry > 0 && entry <= price+tol
	}
	return entry > 0 && entry >= price-tol
}

func (g *Generator) multipliers(kind string) (tp, sl float64) {
	e := g.cfg.Entries
	switch kind {
	case anchorBand:
		return e.Band.TP, e.Band.SL
	case anchorEMA:
		return e.EMA.TP, e.EMA.SL
	case anchorVWAP:
		return e.VWAP.TP, e.VWAP.SL
	default:
		return e.ATROffset.TP, e.ATROffset.SL
	}
}

func (g *Generator) build(a anchor, ind models.IndicatorSet, sig models.Signal, regime string, atr float64, orderType string) (models.EntryPoint, bool) {
	tpMult, slMult := g.multipliers(a.kind)

	var tp, sl float64
	if orderType == models.OrderBuy {
		tp = a.price + atr*tpMult
		sl = a.price - atr*slMult
	} else {
		tp = a.price - atr*tpMult
		sl = a.price + atr*slMult
	}
	if sl <= 0 || tp <= 0 {
		return models.EntryPoint{}, false
	}

	// Both distances are ATR multiples of the same entry, so the ratio is
	// exactly tp/sl and stays in the configured band by validation.
	rrr := tpMult / slMult

	winRate := g.winRate(a.kind, rrr, ind, sig, regime, orderType)
	strength := g.strength(a, ind, sig, atr)

	return models.EntryPoint{
		Price:           round2(a.price),
		OrderType:       orderType,
		Reason:          fmt.Sprintf("%s (RRR %.2f:1)", a.reason, rrr),
		Strength:        round2(strength),
		WinRate:         round2(winRate),
		TPPrice:         round2(tp),
		SLPrice:         round2(sl),
		RiskRewardRatio: round2(rrr),
	}, true
}

// winRate applies the additive bonus table to the base rate and clamps the
// result. Bonuses are monotonic in their inputs.
func (g *Generator) winRate(kind string, rrr float64, ind models.IndicatorSet, sig models.Signal, regime, orderType string) float64 {
	wr := g.cfg.WinRate
	rate := wr.Base

	// Confidence above/below the midpoint, scaled to the cap.
	rate += (sig.Confidence - 50) / 50 * wr.ConfidenceMax

	// Risk/reward quality, linear from the min bonus at 1:1.
	if rrr >= 1.0 {
		b := wr.RRRMin + (rrr-1.0)/2.0*(wr.RRRMax-wr.RRRMin)
		rate += clamp(b, wr.RRRMin, wr.RRRMax)
	}

	// Regime agreement with the trade direction.
	switch {
	case regime == models.RegimeTrendingUp && orderType == models.OrderBuy,
		regime == models.RegimeTrendingDown && orderType == models.OrderSell:
		rate += wr.Regime
	case regime == models.RegimeTrendingUp && orderType == models.OrderSell,
		regime == models.RegimeTrendingDown && orderType == models.OrderBuy:
		rate -= wr.Regime
	}

	// Volume confirmation scaled by the ratio.
	rate += clamp((ind.VolumeRatio-1)*wr.Volume, -wr.Volume, wr.Volume)

	// Entry-type quality: fair-value and band anchors rate higher than a
	// plain ATR offset.
	switch kind {
	case anchorVWAP:
		rate += wr.QualityVWAP
	case anchorBand:
		rate += wr.QualityBand
	case anchorEMA:
		rate += wr.QualityEMA
	default:
		rate += wr.QualityATR
	}

	// RSI extreme consistent with the trade direction is a reversal edge.
	if orderType == models.OrderBuy && ind.RSI14 < 30 {
		rate += rsiExtremeBonus(30-ind.RSI14, wr.RSIExtremeMin, wr.RSIExtremeMax)
	}
	if orderType == models.OrderSell && ind.RSI14 > 70 {
		rate += rsiExtremeBonus(ind.RSI14-70, wr.RSIExtremeMin, wr.RSIExtremeMax)
	}

	return clamp(rate, wr.Floor, wr.Ceil)
}

// rsiExtremeBonus scales from the min to the max bonus as the RSI pushes
// deeper past the extreme threshold (saturating 10 points past it).
func rsiExtremeBonus(depth, lo, hi float64) float64 {
	return clamp(lo+depth/10*(hi-lo), lo, hi)
}

// strength is a secondary ranking score: anchor base, boosted by high
// confidence and by confluence with VWAP.
func (g *Generator) strength(a anchor, ind models.IndicatorSet, sig models.Signal, atr float64) float64 {
	s := a.base
	if sig.Confidence > 75 {
		s += 10
	}
	if a.kind != anchorVWAP && absF(a.price-ind.VWAP) < atr {
		s += 5
	}
	return s
}
