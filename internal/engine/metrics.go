package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

type engineMetrics struct {
	evaluations *prometheus.CounterVec
	executed    *prometheus.CounterVec
}

func newEngineMetrics() *engineMetrics {
	return &engineMetrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homehub",
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Number of rule evaluation passes",
		}, []string{"trigger"}),
		executed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homehub",
			Subsystem: "engine",
			Name:      "actions_executed_total",
			Help:      "Number of actions handed to the executor",
		}, []string{"kind"}),
	}
}

var (
	rulesMetric = prometheus.NewDesc(
		prometheus.BuildFQName("homehub", "engine", "rules"),
		"Number of configured rules", nil, nil)
	enabledMetric = prometheus.NewDesc(
		prometheus.BuildFQName("homehub", "engine", "rules_enabled"),
		"Number of enabled rules", nil, nil)
	activeMetric = prometheus.NewDesc(
		prometheus.BuildFQName("homehub", "engine", "rules_active"),
		"Number of currently active rules", nil, nil)
)

var _ prometheus.Collector = &Engine{}

// Describe implements the prometheus.Collector interface.
func (e *Engine) Describe(ch chan<- *prometheus.Desc) {
	ch <- rulesMetric
	ch <- enabledMetric
	ch <- activeMetric
	e.metrics.evaluations.Describe(ch)
	e.metrics.executed.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (e *Engine) Collect(ch chan<- prometheus.Metric) {
	status := e.Status()
	ch <- prometheus.MustNewConstMetric(rulesMetric, prometheus.GaugeValue, float64(status.Rules))
	ch <- prometheus.MustNewConstMetric(enabledMetric, prometheus.GaugeValue, float64(status.Enabled))
	ch <- prometheus.MustNewConstMetric(activeMetric, prometheus.GaugeValue, float64(status.Active))
	e.metrics.evaluations.Collect(ch)
	e.metrics.executed.Collect(ch)
}
