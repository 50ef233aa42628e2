package balancer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/routex/routex/internal/channelset"
)

func threeChannels() []*channelset.Channel {
	a := channelset.New(1, "a", channelset.ProviderOpenAI)
	b := channelset.New(2, "b", channelset.ProviderOpenAI)
	c := channelset.New(3, "c", channelset.ProviderOpenAI)
	return []*channelset.Channel{a, b, c}
}

func TestRoundRobinCyclesExactlyOncePerChannel(t *testing.T) {
	chans := threeChannels()
	cursors := NewMemoryCursorStore()
	seen := map[int64]int{}
	for i := 0; i < 6; i++ {
		c := pick(StrategyRoundRobin, "rr", chans, cursors, nil)
		seen[c.ID]++
	}
	require.Equal(t, 2, seen[1])
	require.Equal(t, 2, seen[2])
	require.Equal(t, 2, seen[3])
}

func TestWeightedConvergesToWeightRatio(t *testing.T) {
	a := channelset.New(1, "a", channelset.ProviderOpenAI)
	a.Weight = 3
	b := channelset.New(2, "b", channelset.ProviderOpenAI)
	b.Weight = 1
	chans := []*channelset.Channel{a, b}
	cursors := NewMemoryCursorStore()

	counts := map[int64]int{}
	n := 4000
	seq := 0
	rng := func() float64 {
		seq++
		// deterministic low-discrepancy sequence in [0,1)
		return float64(seq%1000) / 1000.0
	}
	for i := 0; i < n; i++ {
		c := pick(StrategyWeighted, "w", chans, cursors, rng)
		counts[c.ID]++
	}
	ratio := float64(counts[1]) / float64(counts[2])
	require.InDelta(t, 3.0, ratio, 0.5)
}

func TestWeightedFallsBackToRoundRobinWhenAllWeightsZero(t *testing.T) {
	a := channelset.New(1, "a", channelset.ProviderOpenAI)
	a.Weight = 0
	b := channelset.New(2, "b", channelset.ProviderOpenAI)
	b.Weight = 0
	chans := []*channelset.Channel{a, b}
	cursors := NewMemoryCursorStore()

	seen := map[int64]int{}
	for i := 0; i < 4; i++ {
		c := pick(StrategyWeighted, "w0", chans, cursors, nil)
		seen[c.ID]++
	}
	require.Equal(t, 2, seen[1])
	require.Equal(t, 2, seen[2])
}

func TestLeastUsedPicksLowestRequestCount(t *testing.T) {
	chans := threeChannels()
	chans[0].RecordDispatch(time.Now())
	chans[0].RecordDispatch(time.Now())
	chans[1].RecordDispatch(time.Now())
	c := pickLeastUsed(chans)
	require.Equal(t, int64(3), c.ID)
}

func TestPriorityPicksLowestPriorityThenLowestRequestCount(t *testing.T) {
	a := channelset.New(1, "a", channelset.ProviderOpenAI)
	a.Priority = 10
	b := channelset.New(2, "b", channelset.ProviderOpenAI)
	b.Priority = 5
	chans := []*channelset.Channel{a, b}
	c := pickPriority(chans)
	require.Equal(t, int64(2), c.ID)
}

func TestSessionAffinityStickyWhileEligible(t *testing.T) {
	lb := New(StrategyWeighted, 100, time.Hour)
	registry := channelset.NewRegistry(threeChannels()...)

	first := lb.Pick(BalanceContext{SessionID: "sess-1"}, registry)
	require.NotNil(t, first)
	second := lb.Pick(BalanceContext{SessionID: "sess-1"}, registry)
	require.Equal(t, first.ID, second.ID)
}

func TestSessionAffinityRepicksWhenChannelDisabled(t *testing.T) {
	lb := New(StrategyPriority, 100, time.Hour)
	chans := threeChannels()
	registry := channelset.NewRegistry(chans...)

	first := lb.Pick(BalanceContext{SessionID: "sess-2"}, registry)
	require.NotNil(t, first)
	first.SetStatus(channelset.StatusDisabled)

	second := lb.Pick(BalanceContext{SessionID: "sess-2"}, registry)
	require.NotNil(t, second)
	require.NotEqual(t, first.ID, second.ID)
}

func TestEligibleFiltersDisabledAndRateLimited(t *testing.T) {
	chans := threeChannels()
	chans[0].SetStatus(channelset.StatusDisabled)
	chans[1].RateLimit(time.Now(), time.Hour)
	out := Eligible(time.Now(), "", chans)
	require.Len(t, out, 1)
	require.Equal(t, int64(3), out[0].ID)
}
