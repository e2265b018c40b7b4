package engine

import (
	"QuantPulse/internal/domain/models"
	"QuantPulse/pkg/config"
)

// Profiler classifies volatility and derives position sizing and stop
// distance. Thresholds and multipliers are configuration, not code.
type Profiler struct {
	cfg *config.EngineConfig
}

func NewProfiler(cfg *config.EngineConfig) *Profiler {
	return &Profiler{cfg: cfg}
}

// Profile derives the risk profile from the indicator set and the signal
// confidence. Position size shrinks with volatility and with low
// confidence; stop distance stays proportional to observed noise with a
// minimum floor for degenerate ATR.
func (p *Profiler) Profile(ind models.IndicatorSet, sig models.Signal) models.RiskProfile {
	r := p.cfg.Risk

	state, size, stopMult := p.classify(ind.ATRPercent)

	size *= sig.Confidence / 100
	if sig.Confidence < r.LowConfidence {
		size *= 0.5
	}

	stop := ind.ATR * stopMult
	floor := ind.Close * r.StopFloorPct / 100
	if stop < floor {
		stop = floor
	}

	return models.RiskProfile{
		VolatilityState:         state,
		ATRPercent:              round2(ind.ATRPercent),
		RecommendedPositionSize: round2(clamp(size, 0, 1)),
		StopLossDistance:        round2(stop),
	}
}

func (p *Profiler) classify(atrPercent float64) (state string, size, stopMult float64) {
	r := p.cfg.Risk
	switch {
	case atrPercent < r.LowMax:
		return models.VolLow, r.SizeLow, r.StopATRLow
	case atrPercent < r.NormalMax:
		return models.VolNormal, r.SizeNormal, r.StopATRNormal
	case atrPercent < r.HighMax:
		return models.VolHigh, r.SizeHigh, r.StopATRHigh
	default:
		return models.VolExtreme, r.SizeExtreme, r.StopATRExtreme
	}
}
