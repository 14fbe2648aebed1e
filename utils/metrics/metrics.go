package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var registry = prometheus.NewRegistry()

// Registry returns the process-wide registry used when no registerer is given
func Registry() *prometheus.Registry {
	return registry
}

// SettlementMetrics tracks flash swap settlements
type SettlementMetrics struct {
	Attempts      prometheus.Counter
	Commits       prometheus.Counter
	Aborts        *prometheus.CounterVec
	InFlight      prometheus.Gauge
	ExecutionTime prometheus.Histogram
	ProfitTotal   prometheus.Counter
	SwapLegs      *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics with reg. A nil reg
// uses Registry().
func NewSettlementMetrics(reg prometheus.Registerer, namespace string) *SettlementMetrics {
	if reg == nil {
		reg = registry
	}
	factory := promauto.With(reg)

	return &SettlementMetrics{
		Attempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_attempts_total",
			Help:      "Total number of flash swap initiations",
		}),
		Commits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_commits_total",
			Help:      "Total number of committed settlements",
		}),
		Aborts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_aborts_total",
			Help:      "Total number of aborted settlements by kind",
		}, []string{"kind"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "settlement_in_flight",
			Help:      "Flash swaps currently awaiting settlement",
		}),
		ExecutionTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_execution_time_seconds",
			Help:      "Time taken to settle a flash swap",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16),
		}),
		ProfitTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_profit_total_wei",
			Help:      "Total realized profit in the borrowed asset's base units",
		}),
		SwapLegs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_legs_total",
			Help:      "Swap legs executed by leg and result",
		}, []string{"leg", "result"}),
	}
}

// Sample is one gathered series
type Sample struct {
	Name  string
	Value float64
}

func (s Sample) String() string {
	return fmt.Sprintf("%s %g", s.Name, s.Value)
}

// Gather flattens counters, gauges and histogram sample counts from g into
// sorted samples, for printing a run summary
func Gather(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var samples []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := seriesName(mf.GetName(), m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				samples = append(samples, Sample{name, m.GetCounter().GetValue()})
			case dto.MetricType_GAUGE:
				samples = append(samples, Sample{name, m.GetGauge().GetValue()})
			case dto.MetricType_HISTOGRAM:
				samples = append(samples, Sample{name + "_count", float64(m.GetHistogram().GetSampleCount())})
			}
		}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}

func seriesName(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}
