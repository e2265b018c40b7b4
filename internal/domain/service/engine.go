package service

import "QuantPulse/internal/domain/models"

// IndicatorBank computes the full indicator set from a candle window.
// Pure: the same window always yields the same output.
type IndicatorBank interface {
	Compute(window []models.Candle) (models.IndicatorSet, error)
}

// FactorScorer maps an indicator set to exactly five weighted,
// bounded directional factors.
type FactorScorer interface {
	Score(ind models.IndicatorSet) []models.Factor
}

// SignalClassifier aggregates factors into a composite score, confidence,
// and label, and derives the market regime.
type SignalClassifier interface {
	Classify(factors []models.Factor, ind models.IndicatorSet) (models.Signal, string)
}

// RiskProfiler derives volatility state, position sizing, and stop distance.
type RiskProfiler interface {
	Profile(ind models.IndicatorSet, sig models.Signal) models.RiskProfile
}

// EntryPointGenerator proposes ranked trade-entry candidates consistent
// with the signal direction.
type EntryPointGenerator interface {
	Generate(ind models.IndicatorSet, sig models.Signal, regime string, price float64) []models.EntryPoint
}
