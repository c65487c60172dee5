package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	nodesInspected  *prometheus.CounterVec
	nodesCalibrated *prometheus.CounterVec
	calibrationTime *prometheus.HistogramVec
	measurements    *prometheus.CounterVec
	qoiRejections   *prometheus.CounterVec
	activeRuns      prometheus.Gauge
}

// NewCollector creates a collector registered on reg. A nil reg uses the
// default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		nodesInspected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autocal_nodes_inspected_total",
				Help: "Total number of node inspections by resulting data status",
			},
			[]string{"status"},
		),
		nodesCalibrated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autocal_nodes_calibrated_total",
				Help: "Total number of node calibrations by result",
			},
			[]string{"node", "result"},
		),
		calibrationTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autocal_node_calibration_duration_seconds",
				Help:    "Node calibration duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"node"},
		),
		measurements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autocal_measurements_total",
				Help: "Total number of schedule executions",
			},
			[]string{"node"},
		),
		qoiRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autocal_qoi_rejections_total",
				Help: "Total number of analysis results rejected by the acceptance policy",
			},
			[]string{"node"},
		),
		activeRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "autocal_active_runs",
				Help: "Number of calibration runs in progress",
			},
		),
	}
}

// RecordNodeInspected counts an inspection with its data status
func (c *Collector) RecordNodeInspected(status string) {
	c.nodesInspected.WithLabelValues(status).Inc()
}

// RecordNodeCalibrated counts a calibration and observes its duration
func (c *Collector) RecordNodeCalibrated(node, result string, duration time.Duration) {
	c.nodesCalibrated.WithLabelValues(node, result).Inc()
	c.calibrationTime.WithLabelValues(node).Observe(duration.Seconds())
}

// RecordMeasurement counts one schedule execution
func (c *Collector) RecordMeasurement(node string) {
	c.measurements.WithLabelValues(node).Inc()
}

// RecordRejection counts a rejected analysis result
func (c *Collector) RecordRejection(node string) {
	c.qoiRejections.WithLabelValues(node).Inc()
}

// SetActiveRuns sets the number of active runs
func (c *Collector) SetActiveRuns(n int) {
	c.activeRuns.Set(float64(n))
}
