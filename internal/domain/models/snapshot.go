package models

import "time"

// Signal labels, ordered from most bearish to most bullish.
const (
	SignalStrongSell = "strong_sell"
	SignalSell       = "sell"
	SignalNeutral    = "neutral"
	SignalBuy        = "buy"
	SignalStrongBuy  = "strong_buy"
)

// Market regimes.
const (
	RegimeTrendingUp   = "trending_up"
	RegimeTrendingDown = "trending_down"
	RegimeRanging      = "ranging"
	RegimeBreakout     = "breakout"
	RegimeReversal     = "reversal"
)

// Volatility states.
const (
	VolLow     = "low"
	VolNormal  = "normal"
	VolHigh    = "high"
	VolExtreme = "extreme"
)

// Factor directions.
const (
	DirectionBullish = "bullish"
	DirectionBearish = "bearish"
)

// Order sides for entry points.
const (
	OrderBuy  = "BUY"
	OrderSell = "SELL"
)

// IndicatorSet is the output of one indicator pass over a candle window.
// Values whose lookback exceeds the window carry their Has* flag false and
// must not be read.
type IndicatorSet struct {
	Close      float64
	PrevClose  float64
	High       float64
	Low        float64
	EMA20      float64
	EMA50      float64
	EMA100     float64
	EMA200     float64
	HasEMA50   bool
	HasEMA100  bool
	HasEMA200  bool
	EMA20Slope float64 // EMA20 now minus EMA20 five bars back
	RSI7       float64
	RSI14      float64
	RSI21      float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	BBPosition float64 // price location inside the envelope, 0..100
	BBWidth    float64
	BBWidthAvg float64
	ATR        float64
	ATRPercent float64
	ATRAvg     float64 // mean ATR over the recent lookback, for expansion
	ADX        float64
	PlusDI     float64
	MinusDI    float64
	OBV        float64
	OBVTrend   float64 // OBV now minus OBV twenty bars back
	VolumeSMA  float64
	VolumeNow  float64
	VolumeRatio float64
	VWAP        float64
	VWAPDistPct float64 // signed distance of close from VWAP, percent
}

// Factor is one weighted directional component of the composite score.
type Factor struct {
	Name        string  `json:"name"`
	Impact      float64 `json:"impact"` // bounded to [-50, +50]
	Description string  `json:"description"`
	Direction   string  `json:"direction"`
}

// Signal is the composite scored output for one instrument.
type Signal struct {
	Type       string  `json:"type"`
	Score      float64 `json:"score"`      // [-100, 100]
	Confidence float64 `json:"confidence"` // [0, 100]
	Label      string  `json:"label"`
}

// RiskProfile carries volatility classification and sizing guidance.
type RiskProfile struct {
	VolatilityState         string  `json:"volatility_state"`
	ATRPercent              float64 `json:"atr_percent"`
	RecommendedPositionSize float64 `json:"recommended_position_size"` // [0, 1]
	StopLossDistance        float64 `json:"stop_loss_distance"`
}

// EntryPoint is one ranked trade-entry candidate.
// Invariant: BUY implies SL < Price < TP; SELL implies TP < Price < SL.
type EntryPoint struct {
	Price           float64 `json:"price"`
	OrderType       string  `json:"order_type"`
	Reason          string  `json:"reason"`
	Strength        float64 `json:"strength"`
	WinRate         float64 `json:"win_rate"` // clamped to [20, 95]
	TPPrice         float64 `json:"tp_price"`
	SLPrice         float64 `json:"sl_price"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
}

// MarketData summarizes the trailing 24 bars of the window.
type MarketData struct {
	Price            float64 `json:"price"`
	Change24h        float64 `json:"change_24h"`
	ChangePercent24h float64 `json:"change_percent_24h"`
	High24h          float64 `json:"high_24h"`
	Low24h           float64 `json:"low_24h"`
	Volume24h        float64 `json:"volume_24h"`
}

// Snapshot is the immutable per-instrument result of one analysis pass.
// Publication replaces the prior snapshot atomically; consumers only ever
// see a complete snapshot.
type Snapshot struct {
	Symbol         string       `json:"symbol"`
	Timestamp      time.Time    `json:"timestamp"`
	MarketData     MarketData   `json:"market_data"`
	Signal         Signal       `json:"signal"`
	Factors        []Factor     `json:"factors"`
	Risk           RiskProfile  `json:"risk"`
	Regime         string       `json:"regime"`
	EntryPoints    []EntryPoint `json:"entry_points"`
	ActiveSession  string       `json:"active_session"`
	Recommendation string       `json:"recommendation"`
}

// SnapshotList is the aggregate listing across all configured instruments.
type SnapshotList struct {
	Count     int         `json:"count"`
	Timestamp time.Time   `json:"timestamp"`
	Snapshots []*Snapshot `json:"snapshots"`
}

// LabelFor maps a signal type to its display label.
func LabelFor(signalType string) string {
	switch signalType {
	case SignalStrongBuy:
		return "STRONG BUY"
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	case SignalStrongSell:
		return "STRONG SELL"
	default:
		return "NEUTRAL"
	}
}

// IsBullish reports whether the signal type calls for long exposure.
func (s Signal) IsBullish() bool {
	return s.Type == SignalBuy || s.Type == SignalStrongBuy
}

// IsBearish reports whether the signal type calls for short exposure.
func (s Signal) IsBearish() bool {
	return s.Type == SignalSell || s.Type == SignalStrongSell
}
