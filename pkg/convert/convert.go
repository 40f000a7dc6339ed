package convert

import (
	"fmt"
)

// Converter translates canonical chat requests/responses to and from one
// provider's wire format. One implementation is registered per provider
// type, the same granularity channel.HealthProber uses.
type Converter interface {
	ToProviderRequest(req ChatRequest) (map[string]any, error)
	FromProviderResponse(raw map[string]any) (ChatResponse, error)
	// FromProviderStreamChunk returns nil, nil to signal the chunk should
	// be skipped rather than relayed (e.g. a provider heartbeat).
	FromProviderStreamChunk(raw map[string]any) (*StreamResponse, error)
}

// Registry dispatches by provider type string (channel.Channel.ProviderType).
type Registry struct {
	converters map[string]Converter
}

func NewRegistry() *Registry {
	return &Registry{
		converters: map[string]Converter{
			"openai":    OpenAIConverter{},
			"anthropic": AnthropicConverter{},
		},
	}
}

func (r *Registry) Register(providerType string, c Converter) {
	r.converters[providerType] = c
}

func (r *Registry) For(providerType string) (Converter, error) {
	c, ok := r.converters[providerType]
	if !ok {
		return nil, fmt.Errorf("convert: unsupported provider type %q", providerType)
	}
	return c, nil
}

// ToProviderRequest converts req into a ProviderRequest addressed at the
// channel identified by channelID/providerType.
func (r *Registry) ToProviderRequest(channelID, providerType string, req ChatRequest) (*ProviderRequest, error) {
	c, err := r.For(providerType)
	if err != nil {
		return nil, err
	}
	params, err := c.ToProviderRequest(req)
	if err != nil {
		return nil, err
	}
	return &ProviderRequest{ChannelID: channelID, ProviderType: providerType, Params: params}, nil
}

func (r *Registry) FromProviderResponse(providerType string, raw map[string]any) (ChatResponse, error) {
	c, err := r.For(providerType)
	if err != nil {
		return ChatResponse{}, err
	}
	return c.FromProviderResponse(raw)
}

func (r *Registry) FromProviderStreamChunk(providerType string, raw map[string]any) (*StreamResponse, error) {
	c, err := r.For(providerType)
	if err != nil {
		return nil, err
	}
	return c.FromProviderStreamChunk(raw)
}
