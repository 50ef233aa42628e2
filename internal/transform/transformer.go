// Package transform implements TransformerPipeline: an ordered,
// conditional, bidirectional chain of request/response body mutators.
package transform

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/routex/routex/internal/jsonvalue"
)

// Options is the per-spec configuration blob handed to a transformer.
type Options map[string]any

// PipelineContext is the per-request view transformers and conditions see.
type PipelineContext struct {
	Model       string
	ChannelName string
	ChannelType string
	Metadata    map[string]string
}

// Transformer is a registered, named request/response mutator.
// Implementations should be side-effect-free beyond the body/header they
// return — the pipeline, not the transformer, owns ordering and error
// policy.
type Transformer interface {
	// TransformRequest mutates the outgoing body; returned headers (if any)
	// are merged into the pipeline's accumulating header map.
	TransformRequest(ctx context.Context, body *jsonvalue.Object, opts Options, pctx PipelineContext) (*jsonvalue.Object, http.Header, error)
	// TransformResponse mutates the inbound body.
	TransformResponse(ctx context.Context, body *jsonvalue.Object, opts Options, pctx PipelineContext) (*jsonvalue.Object, error)
}

// BaseTransformer provides no-op defaults so built-ins only need to
// implement the direction they actually affect.
type BaseTransformer struct{}

func (BaseTransformer) TransformRequest(_ context.Context, body *jsonvalue.Object, _ Options, _ PipelineContext) (*jsonvalue.Object, http.Header, error) {
	return body, nil, nil
}

func (BaseTransformer) TransformResponse(_ context.Context, body *jsonvalue.Object, _ Options, _ PipelineContext) (*jsonvalue.Object, error) {
	return body, nil
}

// Registry is the process-wide name→Transformer map: an interface-based
// registry behind a copy-on-write snapshot rather than a mutable map.
type Registry struct {
	ptr atomic.Pointer[map[string]Transformer]
	mu  sync.Mutex
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	m := map[string]Transformer{}
	r.ptr.Store(&m)
	return r
}

// Register installs t under name.
func (r *Registry) Register(name string, t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.ptr.Load()
	next := make(map[string]Transformer, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[name] = t
	r.ptr.Store(&next)
}

// Lookup returns the transformer registered under name.
func (r *Registry) Lookup(name string) (Transformer, bool) {
	m := *r.ptr.Load()
	t, ok := m[name]
	return t, ok
}

// Names lists all registered transformer names.
func (r *Registry) Names() []string {
	m := *r.ptr.Load()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// NewDefaultRegistry builds a Registry preloaded with the standard
// built-in transformer families.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("anthropic", AnthropicFormatTransformer{})
	r.Register("openai", OpenAIFormatTransformer{})
	r.Register("maxtoken", MaxTokenTransformer{})
	r.Register("sampling", SamplingTransformer{})
	r.Register("cleancache", CleanCacheTransformer{})
	return r
}
