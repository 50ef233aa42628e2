package provider

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/routex/routex/common/errs"
	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/jsonvalue"
)

// GoogleAdaptor talks the Gemini generateContent API. Credentials travel as
// a `?key=` query parameter rather than a header.
type GoogleAdaptor struct{ BaseAdaptor }

func (GoogleAdaptor) Kind() channelset.ProviderKind { return channelset.ProviderGoogle }

func (GoogleAdaptor) DefaultBaseURL() string {
	return "https://generativelanguage.googleapis.com"
}

func (GoogleAdaptor) AuthHeaders(channelset.Snapshot) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}

func (a GoogleAdaptor) BuildURL(channel channelset.Snapshot, path string) (string, error) {
	base := channel.BaseURL
	if base == "" {
		base = a.DefaultBaseURL()
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return base + path + sep + "key=" + url.QueryEscape(channel.Credential), nil
}

func (GoogleAdaptor) ExtractTokenUsage(body *jsonvalue.Object) TokenUsage {
	metaV, ok := body.Get("usageMetadata")
	if !ok {
		return TokenUsage{}
	}
	meta, ok := metaV.(*jsonvalue.Object)
	if !ok {
		return TokenUsage{}
	}
	return TokenUsage{
		InputTokens:  numField(meta, "promptTokenCount"),
		OutputTokens: numField(meta, "candidatesTokenCount"),
		CachedTokens: numField(meta, "cachedContentTokenCount"),
	}
}

func (GoogleAdaptor) Validate(channel channelset.Snapshot) error {
	if channel.Credential == "" {
		return errs.Validation(fmt.Sprintf("channel %q missing google api key", channel.Name))
	}
	return nil
}
