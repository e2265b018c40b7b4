package engine

import (
	"strings"
	"testing"

	"QuantPulse/internal/domain/models"
)

func buySignal(conf float64) models.Signal {
	return models.Signal{Type: models.SignalBuy, Score: 40, Confidence: conf, Label: "BUY"}
}

func sellSignal(conf float64) models.Signal {
	return models.Signal{Type: models.SignalSell, Score: -40, Confidence: conf, Label: "SELL"}
}

func TestGenerateBuyInvariants(t *testing.T) {
	cfg := testConfig(t)
	g := NewGenerator(cfg)
	ind := bullishSet()

	entries := g.Generate(ind, buySignal(70), models.RegimeTrendingUp, ind.Close)
	if len(entries) == 0 {
		t.Fatalf("expected entry candidates")
	}
	if len(entries) > cfg.MaxEntries {
		t.Fatalf("entry count %d exceeds limit %d", len(entries), cfg.MaxEntries)
	}
	for _, e := range entries {
		if e.OrderType != models.OrderBuy {
			t.Fatalf("buy signal produced %s entry", e.OrderType)
		}
		if !(e.SLPrice < e.Price && e.Price < e.TPPrice) {
			t.Fatalf("BUY ordering violated: sl %v, entry %v, tp %v", e.SLPrice, e.Price, e.TPPrice)
		}
		if e.Price > ind.Close*1.001 {
			t.Fatalf("BUY entry %v above current price %v", e.Price, ind.Close)
		}
		if e.RiskRewardRatio < cfg.Entries.RRRMin || e.RiskRewardRatio > cfg.Entries.RRRMax {
			t.Fatalf("risk/reward %v outside [%v, %v]", e.RiskRewardRatio, cfg.Entries.RRRMin, cfg.Entries.RRRMax)
		}
		if e.WinRate < cfg.WinRate.Floor || e.WinRate > cfg.WinRate.Ceil {
			t.Fatalf("win rate %v outside [%v, %v]", e.WinRate, cfg.WinRate.Floor, cfg.WinRate.Ceil)
		}
		if e.Reason == "" {
			t.Fatalf("entry has empty reason")
		}
	}
}

func TestGenerateSellInvariants(t *testing.T) {
	cfg := testConfig(t)
	g := NewGenerator(cfg)

	ind := bullishSet()
	ind.Close = 49000
	ind.PrevClose = 49500
	ind.VWAP = 49600
	ind.BBUpper = 50500
	ind.EMA20 = 49400

	entries := g.Generate(ind, sellSignal(70), models.RegimeTrendingDown, ind.Close)
	if len(entries) == 0 {
		t.Fatalf("expected entry candidates")
	}
	for _, e := range entries {
		if e.OrderType != models.OrderSell {
			t.Fatalf("sell signal produced %s entry", e.OrderType)
		}
		if !(e.TPPrice < e.Price && e.Price < e.SLPrice) {
			t.Fatalf("SELL ordering violated: tp %v, entry %v, sl %v", e.TPPrice, e.Price, e.SLPrice)
		}
		if e.Price < ind.Close*0.999 {
			t.Fatalf("SELL entry %v below current price %v", e.Price, ind.Close)
		}
	}
}

// An anchor on the wrong side of price must be suppressed, not clamped.
func TestGenerateSuppressesInconsistentAnchor(t *testing.T) {
	g := NewGenerator(testConfig(t))

	ind := bullishSet()
	ind.EMA20 = 52000 // above price: not a support level

	entries := g.Generate(ind, buySignal(70), models.RegimeRanging, ind.Close)
	for _, e := range entries {
		if strings.Contains(e.Reason, "EMA-20") {
			t.Fatalf("EMA anchor above price should be suppressed, got %+v", e)
		}
		if e.Price > ind.Close*1.001 {
			t.Fatalf("entry %v above price %v survived suppression", e.Price, ind.Close)
		}
	}
}

func TestGenerateNeutralBothSides(t *testing.T) {
	g := NewGenerator(testConfig(t))
	ind := bullishSet()
	sig := models.Signal{Type: models.SignalNeutral, Score: 5, Confidence: 55, Label: "NEUTRAL"}

	entries := g.Generate(ind, sig, models.RegimeRanging, ind.Close)
	for _, e := range entries {
		if e.Strength < 30 {
			t.Fatalf("neutral entry strength %v below floor 30", e.Strength)
		}
	}
}

func TestGenerateRankedByWinRate(t *testing.T) {
	g := NewGenerator(testConfig(t))
	ind := bullishSet()

	entries := g.Generate(ind, buySignal(80), models.RegimeTrendingUp, ind.Close)
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.WinRate > prev.WinRate {
			t.Fatalf("entries not sorted by win rate: %v before %v", prev.WinRate, cur.WinRate)
		}
		if cur.WinRate == prev.WinRate && cur.Strength > prev.Strength {
			t.Fatalf("win-rate tie not broken by strength")
		}
	}
}

// Distances stay proportional to volatility: with ATR 400 at price 50000
// the VWAP anchor yields a target three ATR out and a stop just over one
// ATR in, clearing a 2:1 reward floor.
func TestGenerateVWAPAnchorDistances(t *testing.T) {
	cfg := testConfig(t)
	g := NewGenerator(cfg)

	ind := bullishSet()
	ind.Close = 50000
	ind.ATR = 400
	ind.VWAP = 49900
	ind.BBLower = 49000
	ind.EMA20 = 49800

	entries := g.Generate(ind, buySignal(75), models.RegimeTrendingUp, ind.Close)
	var vwapEntry *models.EntryPoint
	for i := range entries {
		if strings.Contains(entries[i].Reason, "VWAP") {
			vwapEntry = &entries[i]
			break
		}
	}
	if vwapEntry == nil {
		t.Fatalf("VWAP anchor missing from %+v", entries)
	}
	if vwapEntry.Price != 49900 {
		t.Fatalf("VWAP entry price %v, want 49900", vwapEntry.Price)
	}
	if vwapEntry.TPPrice != 49900+400*cfg.Entries.VWAP.TP {
		t.Fatalf("VWAP tp %v, want %v", vwapEntry.TPPrice, 49900+400*cfg.Entries.VWAP.TP)
	}
	if vwapEntry.SLPrice != 49900-400*cfg.Entries.VWAP.SL {
		t.Fatalf("VWAP sl %v, want %v", vwapEntry.SLPrice, 49900-400*cfg.Entries.VWAP.SL)
	}
	if vwapEntry.TPPrice < 50000+2*400*0.5 {
		t.Fatalf("target %v not meaningfully above price", vwapEntry.TPPrice)
	}
}

func TestGenerateATRFallback(t *testing.T) {
	g := NewGenerator(testConfig(t))

	ind := bullishSet()
	ind.ATR = 0 // degenerate flat range

	entries := g.Generate(ind, buySignal(70), models.RegimeRanging, ind.Close)
	for _, e := range entries {
		if e.TPPrice <= e.Price || e.SLPrice >= e.Price {
			t.Fatalf("fallback ATR produced unordered levels: %+v", e)
		}
	}
}

func TestWinRateMonotonicInConfidence(t *testing.T) {
	g := NewGenerator(testConfig(t))
	ind := bullishSet()

	low := g.Generate(ind, buySignal(55), models.RegimeTrendingUp, ind.Close)
	high := g.Generate(ind, buySignal(95), models.RegimeTrendingUp, ind.Close)
	if len(low) == 0 || len(high) == 0 {
		t.Fatalf("expected candidates at both confidence levels")
	}
	if high[0].WinRate <= low[0].WinRate {
		t.Fatalf("top win rate %v at confidence 95 not above %v at 55", high[0].WinRate, low[0].WinRate)
	}
}

func TestWinRateRegimePenalty(t *testing.T) {
	g := NewGenerator(testConfig(t))
	ind := bullishSet()

	with := g.Generate(ind, buySignal(70), models.RegimeTrendingUp, ind.Close)
	against := g.Generate(ind, buySignal(70), models.RegimeTrendingDown, ind.Close)
	if len(with) == 0 || len(against) == 0 {
		t.Fatalf("expected candidates in both regimes")
	}
	if against[0].WinRate >= with[0].WinRate {
		t.Fatalf("counter-trend win rate %v not below with-trend %v", against[0].WinRate, with[0].WinRate)
	}
}

func TestWinRateOversoldBonus(t *testing.T) {
	g := NewGenerator(testConfig(t))

	base := bullishSet()
	base.RSI14 = 45
	oversold := bullishSet()
	oversold.RSI14 = 22

	a := g.Generate(base, buySignal(70), models.RegimeRanging, base.Close)
	b := g.Generate(oversold, buySignal(70), models.RegimeRanging, oversold.Close)
	if len(a) == 0 || len(b) == 0 {
		t.Fatalf("expected candidates")
	}
	if b[0].WinRate <= a[0].WinRate {
		t.Fatalf("oversold BUY win rate %v not above baseline %v", b[0].WinRate, a[0].WinRate)
	}
}
