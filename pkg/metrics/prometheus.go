package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	lapsProcessed    *prometheus.CounterVec
	outliersRejected *prometheus.CounterVec
	recommendations  *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	degSlope         *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		lapsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitwall_laps_processed_total",
				Help: "Total number of lap records accepted into the estimators",
			},
			[]string{"competitor"},
		),
		outliersRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitwall_outliers_rejected_total",
				Help: "Total number of lap times excluded from model updates",
			},
			[]string{"competitor"},
		),
		recommendations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitwall_recommendations_total",
				Help: "Total number of strategy recommendations emitted",
			},
			[]string{"action"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitwall_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		degSlope: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pitwall_deg_slope_seconds_per_lap",
				Help: "Latest estimated degradation slope per competitor",
			},
			[]string{"competitor"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitwall_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordLapProcessed records one lap accepted for a competitor.
func (r *Recorder) RecordLapProcessed(competitor string) {
	r.lapsProcessed.WithLabelValues(competitor).Inc()
}

// RecordOutlierRejected records one lap excluded from model updates.
func (r *Recorder) RecordOutlierRejected(competitor string) {
	r.outliersRejected.WithLabelValues(competitor).Inc()
}

// RecordRecommendation records an emitted recommendation by action.
func (r *Recorder) RecordRecommendation(action string) {
	r.recommendations.WithLabelValues(action).Inc()
}

// RecordDegSlope records the latest slope estimate for a competitor.
func (r *Recorder) RecordDegSlope(competitor string, slope float64) {
	r.degSlope.WithLabelValues(competitor).Set(slope)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
