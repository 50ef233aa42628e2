package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/routex/routex/internal/analyzer"
	"github.com/routex/routex/internal/chatmsg"
	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/rules"
	"github.com/routex/routex/internal/tokenest"
)

func buildCtx(model string, userText string) Context {
	messages := []chatmsg.Message{{Role: chatmsg.RoleUser, Blocks: []chatmsg.Block{{Type: chatmsg.BlockText, Text: userText}}}}
	a := analyzer.Analyze(messages, nil)
	return Context{
		Model:        model,
		Messages:     messages,
		Analysis:     a,
		EstimatedTok: tokenest.Estimate(messages, tokenest.NormalizeFamily(model)),
	}
}

func TestLongContextRoutingScenario(t *testing.T) {
	big := channelset.New(1, "channel-big", channelset.ProviderAnthropic)
	small := channelset.New(2, "channel-small", channelset.ProviderAnthropic)
	registry := channelset.NewRegistry(big, small)

	// 2100 chunks of 101 chars estimate to about 60.8k tokens at 3.5
	// chars/token, just over the 60000 threshold below.
	longText := ""
	for i := 0; i < 2100; i++ {
		longText += "0123456789012345678901234567890123456789012345678901234567890123456789012345678901234567890123456789 "
	}
	ctx := buildCtx("claude-3-5-sonnet", longText)

	rule := rules.Rule{
		ID: 1, Name: "longContext", Priority: 100, Enabled: true,
		Condition:     rules.Condition{Predicates: []rules.Predicate{rules.TokenThreshold{Threshold: 60000}}},
		TargetChannel: "channel-big",
	}

	rt := New(nil)
	result := rt.Route(time.Now(), ctx, []rules.Rule{rule}, registry)
	require.False(t, result.None())
	require.Equal(t, "channel-big", result.Channel.Name)
	require.Equal(t, "longContext", result.Rule.Name)
}

func TestUnresolvableTargetFallsThrough(t *testing.T) {
	small := channelset.New(2, "channel-small", channelset.ProviderAnthropic)
	registry := channelset.NewRegistry(small)
	ctx := buildCtx("claude-3-5-sonnet", "hi")

	r1 := rules.Rule{ID: 1, Name: "r1", Priority: 100, Enabled: true, TargetChannel: "missing"}
	r2 := rules.Rule{ID: 2, Name: "r2", Priority: 50, Enabled: true, TargetChannel: "channel-small"}

	rt := New(nil)
	result := rt.Route(time.Now(), ctx, []rules.Rule{r1, r2}, registry)
	require.False(t, result.None())
	require.Equal(t, "channel-small", result.Channel.Name)
}

func TestDisabledChannelTargetIsUnresolvable(t *testing.T) {
	disabled := channelset.New(1, "disabled-chan", channelset.ProviderAnthropic)
	disabled.SetStatus(channelset.StatusDisabled)
	registry := channelset.NewRegistry(disabled)
	ctx := buildCtx("claude-3", "hi")

	r := rules.Rule{ID: 1, Name: "r", Priority: 100, Enabled: true, TargetChannel: "disabled-chan"}
	rt := New(nil)
	result := rt.Route(time.Now(), ctx, []rules.Rule{r}, registry)
	require.True(t, result.None())
}

func TestNoRuleFiresReturnsNone(t *testing.T) {
	registry := channelset.NewRegistry(channelset.New(1, "a", channelset.ProviderOpenAI))
	ctx := buildCtx("gpt-4", "hi")
	rt := New(nil)
	result := rt.Route(time.Now(), ctx, nil, registry)
	require.True(t, result.None())
}

func TestCustomRouterShortCircuitsLoadBalancing(t *testing.T) {
	experimental := channelset.New(99, "experimentalChannel", channelset.ProviderOpenAI)
	registry := channelset.NewRegistry(experimental)
	customRegistry := rules.NewCustomRouterRegistry()
	customRegistry.Register("abTest", func(c rules.EvalContext) (bool, *channelset.Channel) {
		return false, experimental
	}, rules.RouterInfo{Name: "abTest"})

	ctx := buildCtx("gpt-4", "hello")
	rule := rules.Rule{
		ID: 1, Name: "ab", Priority: 100, Enabled: true,
		Condition: rules.Condition{Predicates: []rules.Predicate{rules.CustomFunction{Name: "abTest"}}},
	}
	rt := New(customRegistry)
	result := rt.Route(time.Now(), ctx, []rules.Rule{rule}, registry)
	require.False(t, result.None())
	require.Equal(t, "experimentalChannel", result.Channel.Name)
}
