package engine

import (
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/domain/service"
	"QuantPulse/pkg/config"
)

// marketDataBars is the trailing bar count summarized as 24h stats. It
// assumes hourly candles, the engine's default interval.
const marketDataBars = 24

// Assembler runs the full stage pipeline over one candle window and
// produces an immutable snapshot. It is pure given the window and the
// timestamp, so repeated passes over identical input are byte-identical.
type Assembler struct {
	indicators service.IndicatorBank
	scorer     service.FactorScorer
	classifier service.SignalClassifier
	profiler   service.RiskProfiler
	generator  service.EntryPointGenerator
}

func NewAssembler(cfg *config.EngineConfig) *Assembler {
	return &Assembler{
		indicators: NewBank(cfg),
		scorer:     NewScorer(cfg),
		classifier: NewClassifier(cfg),
		profiler:   NewProfiler(cfg),
		generator:  NewGenerator(cfg),
	}
}

// Assemble builds the snapshot for one symbol from its candle window.
// Returns ErrInsufficientHistory until the window reaches the configured
// minimum depth.
func (a *Assembler) Assemble(symbol string, window []models.Candle, ts time.Time) (*models.Snapshot, error) {
	ind, err := a.indicators.Compute(window)
	if err != nil {
		return nil, err
	}

	factors := a.scorer.Score(ind)
	sig, regime := a.classifier.Classify(factors, ind)
	risk := a.profiler.Profile(ind, sig)
	entries := a.generator.Generate(ind, sig, regime, ind.Close)

	snap := &models.Snapshot{
		Symbol:         symbol,
		Timestamp:      ts.UTC(),
		MarketData:     marketData(window),
		Signal:         sig,
		Factors:        factors,
		Risk:           risk,
		Regime:         regime,
		EntryPoints:    entries,
		ActiveSession:  ActiveSession(ts),
		Recommendation: recommendation(sig, risk, entries),
	}
	return snap, nil
}

// marketData summarizes the trailing bars as 24h statistics.
func marketData(window []models.Candle) models.MarketData {
	bars := window
	if len(bars) > marketDataBars {
		bars = bars[len(bars)-marketDataBars:]
	}
	if len(bars) == 0 {
		return models.MarketData{}
	}

	open := bars[0].Open
	last := bars[len(bars)-1].Close
	high := bars[0].High
	low := bars[0].Low
	var volume float64
	for _, c := range bars {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		volume += c.Volume
	}

	change := last - open
	var changePct float64
	if open > 0 {
		changePct = change / open * 100
	}
	return models.MarketData{
		Price:            round2(last),
		Change24h:        round2(change),
		ChangePercent24h: round2(changePct),
		High24h:          round2(high),
		Low24h:           round2(low),
		Volume24h:        round2(volume),
	}
}

// recommendation renders a one-line trade plan from the top-ranked entry.
func recommendation(sig models.Signal, risk models.RiskProfile, entries []models.EntryPoint) string {
	if len(entries) == 0 || sig.Type == models.SignalNeutral {
		return fmt.Sprintf("%s: no actionable setup, volatility %s", sig.Label, risk.VolatilityState)
	}
	top := entries[0]
	return fmt.Sprintf("%s: %s near %.2f, target %.2f, stop %.2f (%.2f:1), size %.0f%%",
		sig.Label, top.OrderType, top.Price, top.TPPrice, top.SLPrice,
		top.RiskRewardRatio, risk.RecommendedPositionSize*100)
}
