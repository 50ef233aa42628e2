package provider

import (
	"fmt"

	"github.com/routex/routex/internal/channelset"
)

// Registry dispatches a channel's ProviderKind to its Adaptor. Unlike the
// copy-on-write registries elsewhere in the gateway, the kind→Adaptor map is
// fixed at startup: provider kinds are a closed set, not operator-extensible.
type Registry struct {
	adaptors map[channelset.ProviderKind]Adaptor
}

// NewRegistry builds the registry with the built-in kinds wired in.
func NewRegistry() *Registry {
	return &Registry{adaptors: map[channelset.ProviderKind]Adaptor{
		channelset.ProviderAnthropic: AnthropicAdaptor{},
		channelset.ProviderOpenAI:    OpenAIAdaptor{},
		channelset.ProviderAzure:     AzureAdaptor{},
		channelset.ProviderGoogle:    GoogleAdaptor{},
		channelset.ProviderCustom:    CustomAdaptor{},
	}}
}

// For returns the Adaptor registered for kind.
func (r *Registry) For(kind channelset.ProviderKind) (Adaptor, error) {
	a, ok := r.adaptors[kind]
	if !ok {
		return nil, fmt.Errorf("provider: no adaptor registered for kind %q", kind)
	}
	return a, nil
}
