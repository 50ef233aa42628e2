package transform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/routex/routex/internal/jsonvalue"
)

// MaxTokenTransformer clamps max_tokens, optionally failing strictly on
// overage instead of silently clamping.
type MaxTokenTransformer struct{ BaseTransformer }

func (MaxTokenTransformer) TransformRequest(_ context.Context, body *jsonvalue.Object, opts Options, _ PipelineContext) (*jsonvalue.Object, http.Header, error) {
	maxTokens, _ := opts["maxTokens"].(float64)
	if maxTokens <= 0 {
		if i, ok := opts["maxTokens"].(int); ok {
			maxTokens = float64(i)
		}
	}
	if maxTokens <= 0 {
		return body, nil, nil
	}

	strict, _ := opts["strict"].(bool)
	out := body.Clone()
	cur, _ := out.Get("max_tokens")
	curF, hasCur := cur.(float64)

	if hasCur && curF > maxTokens {
		if strict {
			return body, nil, fmt.Errorf("max_tokens %v exceeds configured limit %v", curF, maxTokens)
		}
		out.Set("max_tokens", maxTokens)
	} else if !hasCur {
		out.Set("max_tokens", maxTokens)
	}
	return out, nil, nil
}

// SamplingTransformer clamps temperature/top_p to configured ranges and can
// inject defaults when absent.
type SamplingTransformer struct{ BaseTransformer }

func (SamplingTransformer) TransformRequest(_ context.Context, body *jsonvalue.Object, opts Options, _ PipelineContext) (*jsonvalue.Object, http.Header, error) {
	out := body.Clone()
	clampField(out, "temperature", opts, "minTemperature", "maxTemperature", "defaultTemperature")
	clampField(out, "top_p", opts, "minTopP", "maxTopP", "defaultTopP")
	return out, nil, nil
}

func clampField(obj *jsonvalue.Object, field string, opts Options, minKey, maxKey, defKey string) {
	v, has := obj.Get(field)
	f, isNum := v.(float64)

	if !has || !isNum {
		if def, ok := numOpt(opts, defKey); ok {
			obj.Set(field, def)
		}
		return
	}

	if minV, ok := numOpt(opts, minKey); ok && f < minV {
		f = minV
	}
	if maxV, ok := numOpt(opts, maxKey); ok && f > maxV {
		f = maxV
	}
	obj.Set(field, f)
}

func numOpt(opts Options, key string) (float64, bool) {
	v, ok := opts[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

// CleanCacheTransformer strips cache-control metadata fields from content
// blocks and top-level cache hints.
type CleanCacheTransformer struct{ BaseTransformer }

var cacheFields = []string{"cache_control", "cache_ttl"}

func (CleanCacheTransformer) TransformRequest(_ context.Context, body *jsonvalue.Object, _ Options, _ PipelineContext) (*jsonvalue.Object, http.Header, error) {
	out := body.Clone()
	stripCacheFields(out)
	return out, nil, nil
}

func stripCacheFields(v jsonvalue.Value) {
	switch t := v.(type) {
	case *jsonvalue.Object:
		for _, f := range cacheFields {
			t.Delete(f)
		}
		for _, k := range t.Keys() {
			child, _ := t.Get(k)
			stripCacheFields(child)
		}
	case jsonvalue.Array:
		for _, e := range t {
			stripCacheFields(e)
		}
	}
}
