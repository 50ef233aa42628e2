// Package metrics implements MetricsCollector: in-memory
// counters, gauges, histograms, and summaries with deterministic label-set
// hashing, plus a Prometheus text-format exporter.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Labels is a string→string label set.
type Labels map[string]string

// key deterministically hashes a label set by sorting keys and joining
// "k=v" pairs.
func (l Labels) key() string {
	if len(l) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(l[k])
	}
	return b.String()
}

type metricKind int

const (
	kindCounter metricKind = iota
	kindGauge
	kindHistogram
	kindSummary
)

func (k metricKind) promType() string {
	switch k {
	case kindCounter:
		return "counter"
	case kindGauge:
		return "gauge"
	case kindHistogram:
		return "histogram"
	case kindSummary:
		return "summary"
	default:
		return "untyped"
	}
}

// Registry owns every named metric family in the process.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
	order    []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{families: map[string]*family{}}
}

type family struct {
	name    string
	help    string
	kind    metricKind
	buckets []float64 // histogram only, ascending
	maxSamples int    // summary only: bounded sample window

	mu     sync.Mutex
	series map[string]*series
	order  []string
}

type series struct {
	labels Labels
	value  float64 // counter/gauge

	// histogram
	bucketCounts []int64
	sum          float64
	count        int64

	// summary: bounded ring of recent samples
	samples    []float64
	sampleHead int
}

func (r *Registry) getOrCreate(name, help string, kind metricKind, buckets []float64, maxSamples int) *family {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[name]
	if !ok {
		f = &family{name: name, help: help, kind: kind, buckets: buckets, maxSamples: maxSamples, series: map[string]*series{}}
		r.families[name] = f
		r.order = append(r.order, name)
	}
	return f
}

func (f *family) getSeries(l Labels) *series {
	k := l.key()
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[k]
	if !ok {
		s = &series{labels: l}
		if f.kind == kindHistogram {
			s.bucketCounts = make([]int64, len(f.buckets))
		}
		f.series[k] = s
		f.order = append(f.order, k)
	}
	return s
}

// Counter is a monotonically increasing named+labeled value.
type Counter struct {
	f *family
}

// NewCounter registers (or looks up) a counter family.
func (r *Registry) NewCounter(name, help string) *Counter {
	return &Counter{f: r.getOrCreate(name, help, kindCounter, nil, 0)}
}

// Inc adds delta (must be >= 0) to the series identified by labels.
func (c *Counter) Inc(labels Labels, delta float64) {
	if delta < 0 {
		delta = 0
	}
	s := c.f.getSeries(labels)
	s.mu().Lock()
	s.value += delta
	s.mu().Unlock()
}

// mu is a per-series lock embedded via a package-level map keyed by pointer,
// avoiding an extra field on the hot-path series struct.
var seriesLocks sync.Map // map[*series]*sync.Mutex

func (s *series) mu() *sync.Mutex {
	v, _ := seriesLocks.LoadOrStore(s, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Gauge is an arbitrarily increasing/decreasing named+labeled value.
type Gauge struct {
	f *family
}

func (r *Registry) NewGauge(name, help string) *Gauge {
	return &Gauge{f: r.getOrCreate(name, help, kindGauge, nil, 0)}
}

func (g *Gauge) Set(labels Labels, v float64) {
	s := g.f.getSeries(labels)
	s.mu().Lock()
	s.value = v
	s.mu().Unlock()
}

func (g *Gauge) Add(labels Labels, delta float64) {
	s := g.f.getSeries(labels)
	s.mu().Lock()
	s.value += delta
	s.mu().Unlock()
}

// Histogram observes values into cumulative buckets plus sum/count.
type Histogram struct {
	f *family
}

// DefaultLatencyBuckets mirrors commonly used request-latency boundaries.
var DefaultLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

func (r *Registry) NewHistogram(name, help string, buckets []float64) *Histogram {
	if len(buckets) == 0 {
		buckets = DefaultLatencyBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	return &Histogram{f: r.getOrCreate(name, help, kindHistogram, sorted, 0)}
}

func (h *Histogram) Observe(labels Labels, v float64) {
	s := h.f.getSeries(labels)
	s.mu().Lock()
	defer s.mu().Unlock()
	s.sum += v
	s.count++
	for i, bound := range h.f.buckets {
		if v <= bound {
			s.bucketCounts[i]++
		}
	}
}

// Summary tracks a bounded sample window and computes quantiles at export
// time.
type Summary struct {
	f *family
}

func (r *Registry) NewSummary(name, help string, maxSamples int) *Summary {
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	return &Summary{f: r.getOrCreate(name, help, kindSummary, nil, maxSamples)}
}

func (s *Summary) Observe(labels Labels, v float64) {
	ser := s.f.getSeries(labels)
	ser.mu().Lock()
	defer ser.mu().Unlock()
	ser.sum += v
	ser.count++
	if len(ser.samples) < s.f.maxSamples {
		ser.samples = append(ser.samples, v)
	} else {
		ser.samples[ser.sampleHead] = v
		ser.sampleHead = (ser.sampleHead + 1) % s.f.maxSamples
	}
}

func quantile(samples []float64, q float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// SummaryQuantiles is the default quantile set exported for every summary.
var SummaryQuantiles = []float64{0.5, 0.9, 0.99}

// escapeLabelValue escapes `\`, newline, and `"` for Prometheus text exposition.
func escapeLabelValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

func formatLabels(l Labels, extra ...[2]string) string {
	if len(l) == 0 && len(extra) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+len(extra))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", k, escapeLabelValue(l[k])))
	}
	for _, e := range extra {
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", e[0], escapeLabelValue(e[1])))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	if math.IsInf(v, -1) {
		return "-Inf"
	}
	return fmt.Sprintf("%g", v)
}

// WriteText renders the registry in Prometheus text exposition format.
func (r *Registry) WriteText() string {
	r.mu.Lock()
	names := append([]string(nil), r.order...)
	families := make(map[string]*family, len(names))
	for _, n := range names {
		families[n] = r.families[n]
	}
	r.mu.Unlock()

	var b strings.Builder
	for _, name := range names {
		f := families[name]
		f.mu.Lock()
		fmt.Fprintf(&b, "# HELP %s %s\n", name, f.help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, f.kind.promType())
		for _, k := range f.order {
			s := f.series[k]
			s.mu().Lock()
			switch f.kind {
			case kindCounter, kindGauge:
				fmt.Fprintf(&b, "%s%s %s\n", name, formatLabels(s.labels), formatFloat(s.value))
			case kindHistogram:
				for i, bound := range f.buckets {
					fmt.Fprintf(&b, "%s_bucket%s %d\n", name, formatLabels(s.labels, [2]string{"le", formatFloat(bound)}), s.bucketCounts[i])
				}
				fmt.Fprintf(&b, "%s_bucket%s %d\n", name, formatLabels(s.labels, [2]string{"le", "+Inf"}), s.count)
				fmt.Fprintf(&b, "%s_sum%s %s\n", name, formatLabels(s.labels), formatFloat(s.sum))
				fmt.Fprintf(&b, "%s_count%s %d\n", name, formatLabels(s.labels), s.count)
			case kindSummary:
				for _, q := range SummaryQuantiles {
					fmt.Fprintf(&b, "%s%s %s\n", name, formatLabels(s.labels, [2]string{"quantile", formatFloat(q)}), formatFloat(quantile(s.samples, q)))
				}
				fmt.Fprintf(&b, "%s_sum%s %s\n", name, formatLabels(s.labels), formatFloat(s.sum))
				fmt.Fprintf(&b, "%s_count%s %d\n", name, formatLabels(s.labels), s.count)
			}
			s.mu().Unlock()
		}
		f.mu.Unlock()
	}
	return b.String()
}
