package provider

import (
	"fmt"
	"net/http"

	"github.com/routex/routex/common/errs"
	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/jsonvalue"
)

// OpenAIAdaptor talks the OpenAI Chat Completions API.
type OpenAIAdaptor struct{ BaseAdaptor }

func (OpenAIAdaptor) Kind() channelset.ProviderKind { return channelset.ProviderOpenAI }

func (OpenAIAdaptor) DefaultBaseURL() string { return "https://api.openai.com" }

func (OpenAIAdaptor) AuthHeaders(channel channelset.Snapshot) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+channel.Credential)
	h.Set("Content-Type", "application/json")
	return h
}

func (a OpenAIAdaptor) BuildURL(channel channelset.Snapshot, path string) (string, error) {
	base := channel.BaseURL
	if base == "" {
		base = a.DefaultBaseURL()
	}
	return base + path, nil
}

func (OpenAIAdaptor) ExtractTokenUsage(body *jsonvalue.Object) TokenUsage {
	usageV, ok := body.Get("usage")
	if !ok {
		return TokenUsage{}
	}
	usage, ok := usageV.(*jsonvalue.Object)
	if !ok {
		return TokenUsage{}
	}
	cached := 0
	if detailsV, ok := usage.Get("prompt_tokens_details"); ok {
		if details, ok := detailsV.(*jsonvalue.Object); ok {
			cached = numField(details, "cached_tokens")
		}
	}
	if cached == 0 {
		cached = numField(usage, "cached_tokens")
	}
	return TokenUsage{
		InputTokens:  numField(usage, "prompt_tokens"),
		OutputTokens: numField(usage, "completion_tokens"),
		CachedTokens: cached,
	}
}

func (OpenAIAdaptor) Validate(channel channelset.Snapshot) error {
	if channel.Credential == "" {
		return errs.Validation(fmt.Sprintf("channel %q missing openai api key", channel.Name))
	}
	return nil
}

// AzureAdaptor talks Azure OpenAI deployments: same usage shape as OpenAI,
// but `api-key` auth and a mandatory operator-supplied base URL.
type AzureAdaptor struct{ OpenAIAdaptor }

func (AzureAdaptor) Kind() channelset.ProviderKind { return channelset.ProviderAzure }

func (AzureAdaptor) DefaultBaseURL() string { return "" }

func (AzureAdaptor) AuthHeaders(channel channelset.Snapshot) http.Header {
	h := http.Header{}
	h.Set("api-key", channel.Credential)
	h.Set("Content-Type", "application/json")
	return h
}

func (AzureAdaptor) BuildURL(channel channelset.Snapshot, path string) (string, error) {
	if channel.BaseURL == "" {
		return "", errs.Validation(fmt.Sprintf("channel %q (azure) requires a base url", channel.Name))
	}
	return channel.BaseURL + path, nil
}

func (AzureAdaptor) Validate(channel channelset.Snapshot) error {
	if channel.BaseURL == "" {
		return errs.Validation(fmt.Sprintf("channel %q (azure) requires a base url", channel.Name))
	}
	if channel.Credential == "" {
		return errs.Validation(fmt.Sprintf("channel %q missing azure api key", channel.Name))
	}
	return nil
}

// CustomAdaptor serves OpenAI-compatible third-party endpoints: mandatory
// base URL, Bearer auth, OpenAI usage shape.
type CustomAdaptor struct{ OpenAIAdaptor }

func (CustomAdaptor) Kind() channelset.ProviderKind { return channelset.ProviderCustom }

func (CustomAdaptor) DefaultBaseURL() string { return "" }

func (CustomAdaptor) BuildURL(channel channelset.Snapshot, path string) (string, error) {
	if channel.BaseURL == "" {
		return "", errs.Validation(fmt.Sprintf("channel %q (custom) requires a base url", channel.Name))
	}
	return channel.BaseURL + path, nil
}

func (CustomAdaptor) Validate(channel channelset.Snapshot) error {
	if channel.BaseURL == "" {
		return errs.Validation(fmt.Sprintf("channel %q (custom) requires a base url", channel.Name))
	}
	if channel.Credential == "" {
		return errs.Validation(fmt.Sprintf("channel %q missing api key", channel.Name))
	}
	return nil
}
