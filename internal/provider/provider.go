// Package provider implements ProviderAdapter: building the
// upstream HTTP request and parsing the upstream response per channel kind.
package provider

import (
	"context"
	"net/http"

	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/jsonvalue"
)

// TokenUsage is the adapter-normalized usage extracted from a response body.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	CachedTokens int
}

// Adaptor is the per-kind contract: build the request, authenticate it,
// and parse the response. Implementations run their own transformRequest/
// transformResponse AFTER the user's transformer pipeline has already run.
type Adaptor interface {
	Kind() channelset.ProviderKind
	DefaultBaseURL() string
	AuthHeaders(channel channelset.Snapshot) http.Header
	BuildURL(channel channelset.Snapshot, path string) (string, error)
	TransformRequest(ctx context.Context, body *jsonvalue.Object) (*jsonvalue.Object, error)
	TransformResponse(ctx context.Context, body *jsonvalue.Object) (*jsonvalue.Object, error)
	ExtractTokenUsage(body *jsonvalue.Object) TokenUsage
	Validate(channel channelset.Snapshot) error
}

// BaseAdaptor provides pass-through defaults so concrete adapters only
// implement the methods their format actually needs.
type BaseAdaptor struct{}

func (BaseAdaptor) TransformRequest(_ context.Context, body *jsonvalue.Object) (*jsonvalue.Object, error) {
	return body, nil
}

func (BaseAdaptor) TransformResponse(_ context.Context, body *jsonvalue.Object) (*jsonvalue.Object, error) {
	return body, nil
}

// numField reads a float64- or int-valued field from body, defaulting to 0.
func numField(body *jsonvalue.Object, key string) int {
	if body == nil {
		return 0
	}
	v, ok := body.Get(key)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	default:
		return 0
	}
}
