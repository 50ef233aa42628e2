package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector adapts a Registry into a prometheus.Collector so it can
// be registered into a real prometheus.Registry and served through
// promhttp.Handler (SPEC_FULL domain-stack wiring: exercise
// prometheus/client_golang rather than reimplement text-format scraping
// end-to-end by hand).
type PrometheusCollector struct {
	reg *Registry
}

// NewPrometheusCollector wraps reg for registration with client_golang.
func NewPrometheusCollector(reg *Registry) *PrometheusCollector {
	return &PrometheusCollector{reg: reg}
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)

// Describe is intentionally a no-op: family/label shapes are dynamic, so
// this collector is unchecked (registered via prometheus.Registry without
// descriptor pre-validation), matching how dynamically-labeled collectors
// are commonly exposed.
func (c *PrometheusCollector) Describe(chan<- *prometheus.Desc) {}

// Collect snapshots every family/series and emits it as a const metric.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	c.reg.mu.Lock()
	names := append([]string(nil), c.reg.order...)
	fams := make(map[string]*family, len(names))
	for _, n := range names {
		fams[n] = c.reg.families[n]
	}
	c.reg.mu.Unlock()

	for _, name := range names {
		f := fams[name]
		f.mu.Lock()
		for _, k := range f.order {
			s := f.series[k]
			labelNames, labelValues := labelPairs(s.labels)
			desc := prometheus.NewDesc(name, f.help, labelNames, nil)

			s.mu().Lock()
			switch f.kind {
			case kindCounter:
				ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, s.value, labelValues...)
			case kindGauge:
				ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, s.value, labelValues...)
			case kindHistogram:
				buckets := make(map[float64]uint64, len(f.buckets))
				for i, bound := range f.buckets {
					buckets[bound] = uint64(s.bucketCounts[i])
				}
				ch <- prometheus.MustNewConstHistogram(desc, uint64(s.count), s.sum, buckets, labelValues...)
			case kindSummary:
				objectives := make(map[float64]float64, len(SummaryQuantiles))
				for _, q := range SummaryQuantiles {
					objectives[q] = quantile(s.samples, q)
				}
				ch <- prometheus.MustNewConstSummary(desc, uint64(s.count), s.sum, objectives, labelValues...)
			}
			s.mu().Unlock()
		}
		f.mu.Unlock()
	}
}

func labelPairs(l Labels) (names, values []string) {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	for _, k := range sortedCopy(keys) {
		names = append(names, k)
		values = append(values, l[k])
	}
	return names, values
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
