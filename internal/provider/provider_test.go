package provider

import (
	"testing"

	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/jsonvalue"
	"github.com/stretchr/testify/require"
)

func decodeObj(t *testing.T, s string) *jsonvalue.Object {
	t.Helper()
	v, err := jsonvalue.Decode([]byte(s))
	require.NoError(t, err)
	obj, ok := v.(*jsonvalue.Object)
	require.True(t, ok)
	return obj
}

func TestAnthropicAdaptorAuthAndUsage(t *testing.T) {
	a := AnthropicAdaptor{}
	ch := channelset.Snapshot{Name: "c1", Credential: "sk-ant-test"}
	h := a.AuthHeaders(ch)
	require.Equal(t, "sk-ant-test", h.Get("x-api-key"))
	require.Equal(t, "2023-06-01", h.Get("anthropic-version"))

	usage := a.ExtractTokenUsage(decodeObj(t, `{"usage":{"input_tokens":10,"output_tokens":5,"cache_read_input_tokens":2}}`))
	require.Equal(t, TokenUsage{InputTokens: 10, OutputTokens: 5, CachedTokens: 2}, usage)

	require.Error(t, a.Validate(channelset.Snapshot{Name: "c1"}))
}

func TestOpenAIAdaptorAuthAndUsage(t *testing.T) {
	a := OpenAIAdaptor{}
	ch := channelset.Snapshot{Name: "c2", Credential: "sk-test"}
	h := a.AuthHeaders(ch)
	require.Equal(t, "Bearer sk-test", h.Get("Authorization"))

	usage := a.ExtractTokenUsage(decodeObj(t, `{"usage":{"prompt_tokens":8,"completion_tokens":4,"prompt_tokens_details":{"cached_tokens":1}}}`))
	require.Equal(t, TokenUsage{InputTokens: 8, OutputTokens: 4, CachedTokens: 1}, usage)
}

func TestAzureAdaptorRequiresBaseURL(t *testing.T) {
	a := AzureAdaptor{}
	require.Error(t, a.Validate(channelset.Snapshot{Name: "c3", Credential: "key"}))
	require.NoError(t, a.Validate(channelset.Snapshot{Name: "c3", Credential: "key", BaseURL: "https://foo.openai.azure.com"}))

	h := a.AuthHeaders(channelset.Snapshot{Credential: "key"})
	require.Equal(t, "key", h.Get("api-key"))
}

func TestGoogleAdaptorAppendsKeyQueryParam(t *testing.T) {
	a := GoogleAdaptor{}
	url, err := a.BuildURL(channelset.Snapshot{Credential: "gk"}, "/v1/models/gemini-pro:generateContent")
	require.NoError(t, err)
	require.Contains(t, url, "?key=gk")

	usage := a.ExtractTokenUsage(decodeObj(t, `{"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":7,"cachedContentTokenCount":1}}`))
	require.Equal(t, TokenUsage{InputTokens: 3, OutputTokens: 7, CachedTokens: 1}, usage)
}

func TestCustomAdaptorRequiresBaseURLAndKey(t *testing.T) {
	a := CustomAdaptor{}
	require.Error(t, a.Validate(channelset.Snapshot{Name: "c4"}))
	require.NoError(t, a.Validate(channelset.Snapshot{Name: "c4", BaseURL: "https://my-proxy.example.com", Credential: "tok"}))
}

func TestRegistryDispatchesByKind(t *testing.T) {
	reg := NewRegistry()
	a, err := reg.For(channelset.ProviderAnthropic)
	require.NoError(t, err)
	require.Equal(t, channelset.ProviderAnthropic, a.Kind())

	_, err = reg.For(channelset.ProviderZhipu)
	require.Error(t, err)
}
