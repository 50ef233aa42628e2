package transform

import (
	"context"
	"testing"

	"github.com/routex/routex/internal/jsonvalue"
	"github.com/stretchr/testify/require"
)

func anthropicBody(t *testing.T) *jsonvalue.Object {
	t.Helper()
	v, err := jsonvalue.Decode([]byte(`{
		"model": "claude-3-opus",
		"max_tokens": 5000,
		"system": "be terse",
		"messages": [{"role": "user", "content": [{"type": "text", "text": "hi"}]}]
	}`))
	require.NoError(t, err)
	obj, ok := v.(*jsonvalue.Object)
	require.True(t, ok)
	return obj
}

func TestPipelineAppliesInDeclaredOrderOnRequest(t *testing.T) {
	registry := NewDefaultRegistry()
	pipeline := NewPipeline(registry)
	specs := []Spec{
		{Name: "maxtoken", Options: Options{"maxTokens": float64(1000)}},
		{Name: "openai"},
	}

	out, _, meta, err := pipeline.Request(context.Background(), anthropicBody(t), PipelineContext{}, specs)
	require.NoError(t, err)
	require.Equal(t, []string{"maxtoken", "openai"}, meta.AppliedTransformers)

	mt, ok := out.Get("max_tokens")
	require.True(t, ok)
	require.Equal(t, float64(1000), mt)

	_, hasTopLevelSystem := out.Get("system")
	require.False(t, hasTopLevelSystem)
}

func TestPipelineAppliesInReverseOrderOnResponse(t *testing.T) {
	registry := NewDefaultRegistry()
	pipeline := NewPipeline(registry)
	specs := []Spec{
		{Name: "maxtoken", Options: Options{"maxTokens": float64(1000)}},
		{Name: "openai"},
	}

	respV, err := jsonvalue.Decode([]byte(`{
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5}
	}`))
	require.NoError(t, err)
	resp, ok := respV.(*jsonvalue.Object)
	require.True(t, ok)

	out, meta, err := pipeline.Response(context.Background(), resp, PipelineContext{}, specs)
	require.NoError(t, err)
	require.Equal(t, []string{"openai", "maxtoken"}, meta.AppliedTransformers)

	content, ok := out.Get("content")
	require.True(t, ok)
	require.Len(t, content.(jsonvalue.Array), 1)
}

func TestSkipOnErrorContinuesChain(t *testing.T) {
	registry := NewDefaultRegistry()
	pipeline := NewPipeline(registry)
	specs := []Spec{
		{Name: "maxtoken", Options: Options{"maxTokens": float64(100), "strict": true}, SkipOnError: true},
		{Name: "cleancache"},
	}

	out, _, meta, err := pipeline.Request(context.Background(), anthropicBody(t), PipelineContext{}, specs)
	require.NoError(t, err)
	require.Contains(t, meta.SkippedTransformers, "maxtoken")
	require.Contains(t, meta.AppliedTransformers, "cleancache")
	require.NotNil(t, out)
}

func TestHardErrorAbortsChainWithoutSkipOnError(t *testing.T) {
	registry := NewDefaultRegistry()
	pipeline := NewPipeline(registry)
	specs := []Spec{
		{Name: "maxtoken", Options: Options{"maxTokens": float64(100), "strict": true}},
	}

	_, _, _, err := pipeline.Request(context.Background(), anthropicBody(t), PipelineContext{}, specs)
	require.Error(t, err)
}

func TestConditionSkipsTransformer(t *testing.T) {
	registry := NewDefaultRegistry()
	pipeline := NewPipeline(registry)
	specs := []Spec{
		{Name: "maxtoken", Options: Options{"maxTokens": float64(100)}, Condition: func(*jsonvalue.Object, PipelineContext) bool { return false }},
	}

	out, _, meta, err := pipeline.Request(context.Background(), anthropicBody(t), PipelineContext{}, specs)
	require.NoError(t, err)
	require.Contains(t, meta.SkippedTransformers, "maxtoken")
	mt, _ := out.Get("max_tokens")
	require.Equal(t, float64(5000), mt)
}

func TestCleanCacheTransformerStripsNestedFields(t *testing.T) {
	registry := NewDefaultRegistry()
	pipeline := NewPipeline(registry)
	bodyV, err := jsonvalue.Decode([]byte(`{
		"messages": [{"role": "user", "content": [{"type": "text", "text": "hi", "cache_control": {"type": "ephemeral"}}]}],
		"cache_ttl": 60
	}`))
	require.NoError(t, err)
	body, ok := bodyV.(*jsonvalue.Object)
	require.True(t, ok)

	out, _, _, err := pipeline.Request(context.Background(), body, PipelineContext{}, []Spec{{Name: "cleancache"}})
	require.NoError(t, err)

	_, hasTTL := out.Get("cache_ttl")
	require.False(t, hasTTL)
}

func TestComposePresetsConcatenatesInOrder(t *testing.T) {
	specs := Compose([]string{"safe", "quality"})
	require.True(t, len(specs) == len(PresetSafe)+len(PresetQuality))
	require.Equal(t, "cleancache", specs[0].Name)
}
