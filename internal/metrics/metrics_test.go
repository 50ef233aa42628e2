package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterAccumulatesPerLabelSet(t *testing.T) {
	reg := NewRegistry()
	c := reg.NewCounter("routex_requests_total", "total requests")
	c.Inc(Labels{"channel": "a"}, 1)
	c.Inc(Labels{"channel": "a"}, 2)
	c.Inc(Labels{"channel": "b"}, 5)

	text := reg.WriteText()
	require.Contains(t, text, `routex_requests_total{channel="a"} 3`)
	require.Contains(t, text, `routex_requests_total{channel="b"} 5`)
	require.Contains(t, text, "# HELP routex_requests_total total requests")
	require.Contains(t, text, "# TYPE routex_requests_total counter")
}

func TestLabelKeyOrderIsDeterministic(t *testing.T) {
	a := Labels{"b": "2", "a": "1"}.key()
	b := Labels{"a": "1", "b": "2"}.key()
	require.Equal(t, a, b)
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	reg := NewRegistry()
	h := reg.NewHistogram("routex_latency_seconds", "latency", []float64{0.1, 0.5, 1})
	h.Observe(Labels{}, 0.05)
	h.Observe(Labels{}, 0.3)
	h.Observe(Labels{}, 2.0)

	text := reg.WriteText()
	require.Contains(t, text, `routex_latency_seconds_bucket{le="0.1"} 1`)
	require.Contains(t, text, `routex_latency_seconds_bucket{le="0.5"} 2`)
	require.Contains(t, text, `routex_latency_seconds_bucket{le="1"} 2`)
	require.Contains(t, text, `routex_latency_seconds_bucket{le="+Inf"} 3`)
	require.Contains(t, text, "routex_latency_seconds_count 3")
}

func TestSummaryQuantilesComputeFromSamples(t *testing.T) {
	reg := NewRegistry()
	s := reg.NewSummary("routex_token_cost", "cost", 100)
	for i := 1; i <= 100; i++ {
		s.Observe(Labels{}, float64(i))
	}
	text := reg.WriteText()
	require.Contains(t, text, `quantile="0.5"`)
	require.Contains(t, text, `quantile="0.99"`)
}

func TestLabelValueEscaping(t *testing.T) {
	reg := NewRegistry()
	g := reg.NewGauge("routex_channel_up", "up")
	g.Set(Labels{"name": "quote\"backslash\\newline\nend"}, 1)

	text := reg.WriteText()
	require.True(t, strings.Contains(text, `\"`))
	require.True(t, strings.Contains(text, `\\`))
	require.True(t, strings.Contains(text, `\n`))
}

func TestGaugeAddAndSet(t *testing.T) {
	reg := NewRegistry()
	g := reg.NewGauge("routex_queue_size", "queue size")
	g.Set(Labels{}, 10)
	g.Add(Labels{}, -3)
	text := reg.WriteText()
	require.Contains(t, text, "routex_queue_size 7")
}
