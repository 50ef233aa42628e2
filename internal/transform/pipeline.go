package transform

import (
	"context"
	"net/http"

	"github.com/routex/routex/common/errs"
	"github.com/routex/routex/internal/jsonvalue"
)

// ConditionFunc is the optional predicate gating a transformer's application.
type ConditionFunc func(body *jsonvalue.Object, pctx PipelineContext) bool

// Spec is one ordered pipeline entry naming a registered transformer.
type Spec struct {
	Name        string
	Options     Options
	Condition   ConditionFunc
	SkipOnError bool
}

// Metadata reports what the pipeline actually did.
type Metadata struct {
	AppliedTransformers []string
	SkippedTransformers []string
	Errors              []string
}

// Pipeline executes an ordered Spec list against a Registry.
type Pipeline struct {
	Registry *Registry
}

// NewPipeline builds a Pipeline bound to the given registry.
func NewPipeline(registry *Registry) *Pipeline {
	return &Pipeline{Registry: registry}
}

// Request applies specs in declared order. It returns the transformed body, the merged header overlay,
// and execution metadata. A non-skippable transformer error aborts and is
// returned as a *errs.Error of kind TransformerError.
func (p *Pipeline) Request(ctx context.Context, body *jsonvalue.Object, pctx PipelineContext, specs []Spec) (*jsonvalue.Object, http.Header, Metadata, error) {
	meta := Metadata{}
	headers := http.Header{}
	cur := body

	for _, spec := range specs {
		if spec.Condition != nil && !spec.Condition(cur, pctx) {
			meta.SkippedTransformers = append(meta.SkippedTransformers, spec.Name)
			continue
		}

		t, ok := p.Registry.Lookup(spec.Name)
		if !ok {
			meta.SkippedTransformers = append(meta.SkippedTransformers, spec.Name)
			meta.Errors = append(meta.Errors, "unknown transformer: "+spec.Name)
			continue
		}

		out, h, err := t.TransformRequest(ctx, cur, spec.Options, pctx)
		if err != nil {
			if spec.SkipOnError {
				meta.SkippedTransformers = append(meta.SkippedTransformers, spec.Name)
				meta.Errors = append(meta.Errors, spec.Name+": "+err.Error())
				continue
			}
			return cur, headers, meta, errs.Transformer(err, "transformer "+spec.Name+" failed on request")
		}

		cur = out
		meta.AppliedTransformers = append(meta.AppliedTransformers, spec.Name)
		for k, vs := range h {
			for _, v := range vs {
				headers.Set(k, v) // last write wins across the chain
			}
		}
	}

	return cur, headers, meta, nil
}

// Response applies specs in REVERSE declared order, invoking only TransformResponse.
func (p *Pipeline) Response(ctx context.Context, body *jsonvalue.Object, pctx PipelineContext, specs []Spec) (*jsonvalue.Object, Metadata, error) {
	meta := Metadata{}
	cur := body

	for i := len(specs) - 1; i >= 0; i-- {
		spec := specs[i]
		if spec.Condition != nil && !spec.Condition(cur, pctx) {
			meta.SkippedTransformers = append(meta.SkippedTransformers, spec.Name)
			continue
		}

		t, ok := p.Registry.Lookup(spec.Name)
		if !ok {
			meta.SkippedTransformers = append(meta.SkippedTransformers, spec.Name)
			meta.Errors = append(meta.Errors, "unknown transformer: "+spec.Name)
			continue
		}

		out, err := t.TransformResponse(ctx, cur, spec.Options, pctx)
		if err != nil {
			if spec.SkipOnError {
				meta.SkippedTransformers = append(meta.SkippedTransformers, spec.Name)
				meta.Errors = append(meta.Errors, spec.Name+": "+err.Error())
				continue
			}
			return cur, meta, errs.Transformer(err, "transformer "+spec.Name+" failed on response")
		}

		cur = out
		meta.AppliedTransformers = append(meta.AppliedTransformers, spec.Name)
	}

	return cur, meta, nil
}
