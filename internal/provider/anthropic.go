package provider

import (
	"fmt"
	"net/http"

	"github.com/routex/routex/common/errs"
	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/jsonvalue"
)

// AnthropicAdaptor talks the Anthropic Messages API.
type AnthropicAdaptor struct{ BaseAdaptor }

func (AnthropicAdaptor) Kind() channelset.ProviderKind { return channelset.ProviderAnthropic }

func (AnthropicAdaptor) DefaultBaseURL() string { return "https://api.anthropic.com" }

func (AnthropicAdaptor) AuthHeaders(channel channelset.Snapshot) http.Header {
	h := http.Header{}
	h.Set("x-api-key", channel.Credential)
	h.Set("anthropic-version", "2023-06-01")
	h.Set("Content-Type", "application/json")
	return h
}

func (a AnthropicAdaptor) BuildURL(channel channelset.Snapshot, path string) (string, error) {
	base := channel.BaseURL
	if base == "" {
		base = a.DefaultBaseURL()
	}
	return base + path, nil
}

func (AnthropicAdaptor) ExtractTokenUsage(body *jsonvalue.Object) TokenUsage {
	usageV, ok := body.Get("usage")
	if !ok {
		return TokenUsage{}
	}
	usage, ok := usageV.(*jsonvalue.Object)
	if !ok {
		return TokenUsage{}
	}
	return TokenUsage{
		InputTokens:  numField(usage, "input_tokens"),
		OutputTokens: numField(usage, "output_tokens"),
		CachedTokens: numField(usage, "cache_read_input_tokens"),
	}
}

func (AnthropicAdaptor) Validate(channel channelset.Snapshot) error {
	if channel.Credential == "" {
		return errs.Validation(fmt.Sprintf("channel %q missing anthropic api key", channel.Name))
	}
	return nil
}
