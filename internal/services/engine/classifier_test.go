package engine

import (
	"testing"

	"QuantPulse/internal/domain/models"
)

func fac(impact float64) models.Factor {
	dir := models.DirectionBullish
	if impact < 0 {
		dir = models.DirectionBearish
	}
	return models.Factor{Name: "x", Impact: impact, Direction: dir}
}

func factorsTotal(vals ...float64) []models.Factor {
	out := make([]models.Factor, 0, len(vals))
	for _, v := range vals {
		out = append(out, fac(v))
	}
	return out
}

func TestClassifyLabelThresholds(t *testing.T) {
	cl := NewClassifier(testConfig(t))
	ind := bullishSet()

	cases := []struct {
		total float64
		want  string
	}{
		{80, models.SignalStrongBuy},
		{66, models.SignalStrongBuy},
		{65, models.SignalBuy}, // threshold itself stays in the lower band
		{26, models.SignalBuy},
		{25, models.SignalNeutral},
		{0, models.SignalNeutral},
		{-25, models.SignalNeutral},
		{-26, models.SignalSell},
		{-65, models.SignalSell},
		{-66, models.SignalStrongSell},
		{-90, models.SignalStrongSell},
	}
	for _, c := range cases {
		sig, _ := cl.Classify(factorsTotal(c.total, 0, 0, 0, 0), ind)
		if sig.Type != c.want {
			t.Fatalf("score %v classified %q, want %q", c.total, sig.Type, c.want)
		}
		if sig.Label != models.LabelFor(c.want) {
			t.Fatalf("score %v label %q, want %q", c.total, sig.Label, models.LabelFor(c.want))
		}
	}
}

func TestClassifyScoreClamped(t *testing.T) {
	cl := NewClassifier(testConfig(t))
	sig, _ := cl.Classify(factorsTotal(50, 50, 50, 10, 10), bullishSet())
	if sig.Score != 100 {
		t.Fatalf("score %v, want clamped 100", sig.Score)
	}
}

func TestConfidenceUnanimousVersusSplit(t *testing.T) {
	cl := NewClassifier(testConfig(t))
	ind := bullishSet() // volume ratio above the thin-tape cutoff

	unanimous, _ := cl.Classify(factorsTotal(10, 10, 10, 10, 10), ind)
	// agreement 1.0, |score| 50: 50 + 30 + 10 = 90.
	if unanimous.Confidence != 90 {
		t.Fatalf("unanimous confidence %v, want 90", unanimous.Confidence)
	}

	split, _ := cl.Classify(factorsTotal(20, 10, -10, -5, -5), ind)
	// 2 bull vs 3 bear: agreement 0.2, |score| 10: 50 + 6 + 2 = 58.
	if split.Confidence != 58 {
		t.Fatalf("split confidence %v, want 58", split.Confidence)
	}
}

func TestConfidenceThinVolumePenalty(t *testing.T) {
	cl := NewClassifier(testConfig(t))

	thin := bullishSet()
	thin.VolumeRatio = 0.5
	sigThin, _ := cl.Classify(factorsTotal(10, 10, 10, 10, 10), thin)
	if sigThin.Confidence != 80 {
		t.Fatalf("thin-volume confidence %v, want 80", sigThin.Confidence)
	}
}

func TestConfidenceBounds(t *testing.T) {
	cl := NewClassifier(testConfig(t))
	ind := bullishSet()
	ind.VolumeRatio = 0.5

	low, _ := cl.Classify(factorsTotal(1, -1, 1, -1, 0), ind)
	if low.Confidence < 50 || low.Confidence > 100 {
		t.Fatalf("confidence %v outside [50, 100]", low.Confidence)
	}
	high, _ := cl.Classify(factorsTotal(30, 30, 20, 10, 10), bullishSet())
	if high.Confidence > 100 {
		t.Fatalf("confidence %v exceeds 100", high.Confidence)
	}
}

func TestRegimeClassification(t *testing.T) {
	cl := NewClassifier(testConfig(t))

	cases := []struct {
		name   string
		mutate func(*models.IndicatorSet)
		want   string
	}{
		{"strong adx rising", func(i *models.IndicatorSet) { i.ADX = 40; i.EMA20Slope = 5 }, models.RegimeTrendingUp},
		{"strong adx falling", func(i *models.IndicatorSet) { i.ADX = 40; i.EMA20Slope = -5 }, models.RegimeTrendingDown},
		{"no direction", func(i *models.IndicatorSet) { i.ADX = 12 }, models.RegimeRanging},
		{"rsi extreme", func(i *models.IndicatorSet) { i.ADX = 25; i.RSI14 = 88 }, models.RegimeReversal},
		{"width expansion", func(i *models.IndicatorSet) {
			i.ADX = 27
			i.RSI14 = 55
			i.BBWidth = 7
			i.BBWidthAvg = 5
		}, models.RegimeBreakout},
		{"default ranging", func(i *models.IndicatorSet) {
			i.ADX = 22
			i.RSI14 = 55
			i.BBWidth = 5
			i.BBWidthAvg = 5
		}, models.RegimeRanging},
	}
	for _, c := range cases {
		ind := bullishSet()
		c.mutate(&ind)
		_, regime := cl.Classify(factorsTotal(10, 0, 0, 0, 0), ind)
		if regime != c.want {
			t.Fatalf("%s: regime %q, want %q", c.name, regime, c.want)
		}
	}
}
