package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	passDuration *prometheus.HistogramVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	signalScore  *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		passDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantpulse_analysis_pass_duration_seconds",
				Help:    "Duration of one analysis pass per symbol",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantpulse_last_price",
				Help: "Last analyzed price for a symbol",
			},
			[]string{"symbol"},
		),
		signalScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantpulse_signal_score",
				Help: "Composite signal score of the latest snapshot",
			},
			[]string{"symbol"},
		),
	}
}

// RecordPass records the duration of one analysis pass.
func (r *Recorder) RecordPass(symbol string, seconds float64) {
	r.passDuration.WithLabelValues(symbol).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last analyzed price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordSignalScore records the latest composite score for a symbol.
func (r *Recorder) RecordSignalScore(symbol string, score float64) {
	r.signalScore.WithLabelValues(symbol).Set(score)
}
