package engine

import (
	"QuantPulse/internal/domain/models"
	"QuantPulse/pkg/config"
)

// Classifier aggregates factor impacts into a composite score, label, and
// confidence, and derives the market regime from trend and volatility
// structure instead of the score itself.
type Classifier struct {
	cfg *config.EngineConfig
}

func NewClassifier(cfg *config.EngineConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify returns the composite signal and the regime label.
func (c *Classifier) Classify(factors []models.Factor, ind models.IndicatorSet) (models.Signal, string) {
	score := 0.0
	for _, f := range factors {
		score += f.Impact
	}
	score = clamp(score, -100, 100)

	sigType := c.labelScore(score)
	conf := c.confidence(score, factors, ind)

	sig := models.Signal{
		Type:       sigType,
		Score:      round2(score),
		Confidence: round2(conf),
		Label:      models.LabelFor(sigType),
	}
	return sig, c.regime(ind)
}

// labelScore maps score to the canonical non-overlapping label thresholds.
func (c *Classifier) labelScore(score float64) string {
	t := c.cfg.Thresholds
	switch {
	case score > t.StrongBuy:
		return models.SignalStrongBuy
	case score > t.Buy:
		return models.SignalBuy
	case score >= -t.Buy:
		return models.SignalNeutral
	case score >= -t.StrongBuy:
		return models.SignalSell
	default:
		return models.SignalStrongSell
	}
}

// confidence blends factor-direction agreement with score magnitude.
// Unanimous large-magnitude readings approach 100; near-zero or split
// readings sit at the 50 floor. Below-average volume shaves confidence,
// since thin tape weakens every other factor.
func (c *Classifier) confidence(score float64, factors []models.Factor, ind models.IndicatorSet) float64 {
	bull, bear := 0, 0
	for _, f := range factors {
		if f.Direction == models.DirectionBullish {
			bull++
		} else {
			bear++
		}
	}
	major := bull
	if bear > bull {
		major = bear
	}
	n := len(factors)
	if n == 0 {
		return 50
	}

	// agreement in [0, 1]: 0 at an even split, 1 when unanimous.
	agreement := float64(2*major-n) / float64(n)
	if agreement < 0 {
		agreement = 0
	}

	conf := 50 + agreement*30 + absF(score)/100*20
	if ind.VolumeRatio < 0.8 {
		conf -= 10
	}
	return clamp(conf, 50, 100)
}

// regime classifies the market state from ADX, EMA slope, RSI extremity,
// and Bollinger width expansion, independent of the composite score.
func (c *Classifier) regime(ind models.IndicatorSet) string {
	switch {
	case ind.ADX > 35:
		if ind.EMA20Slope > 0 {
			return models.RegimeTrendingUp
		}
		return models.RegimeTrendingDown
	case ind.ADX < 20:
		return models.RegimeRanging
	case absF(ind.RSI14-50) > 35:
		return models.RegimeReversal
	case ind.BBWidthAvg > 0 && ind.BBWidth > ind.BBWidthAvg*1.15 && ind.ADX >= 25:
		return models.RegimeBreakout
	default:
		return models.RegimeRanging
	}
}
