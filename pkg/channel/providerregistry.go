package channel

import (
	"context"
	"sort"
)

// ProviderType describes one provider family a channel can be configured
// against: its identity, the models it's known to serve, and a validator
// that exercises a candidate credential the same way the health loop does.
type ProviderType struct {
	ID     string
	Name   string
	Models []string

	validator HealthProber
}

// ProviderTypeRegistry answers list_types/get_type/validate_credentials/
// supported_models against the same HealthProber implementations the health
// loop already uses, so "does this key work" means one thing everywhere in
// the module rather than a second, drifting definition.
type ProviderTypeRegistry struct {
	types map[string]ProviderType
}

func NewProviderTypeRegistry() *ProviderTypeRegistry {
	return &ProviderTypeRegistry{types: make(map[string]ProviderType)}
}

// Register adds or replaces a provider type. Called once per family at
// container construction, alongside the matching HealthProber registered
// with Manager.
func (r *ProviderTypeRegistry) Register(id, name string, models []string, validator HealthProber) {
	r.types[id] = ProviderType{ID: id, Name: name, Models: models, validator: validator}
}

// ListTypes returns every registered provider type, ordered by ID so the
// HTTP surface is stable across requests.
func (r *ProviderTypeRegistry) ListTypes() []ProviderType {
	out := make([]ProviderType, 0, len(r.types))
	for _, pt := range r.types {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetType returns a single provider type by id.
func (r *ProviderTypeRegistry) GetType(id string) (ProviderType, bool) {
	pt, ok := r.types[id]
	return pt, ok
}

// SupportedModels returns the model list for a provider type.
func (r *ProviderTypeRegistry) SupportedModels(id string) ([]string, bool) {
	pt, ok := r.types[id]
	if !ok {
		return nil, false
	}
	return pt.Models, true
}

// ValidateCredentials runs the provider type's own live probe against a
// candidate credential, the same minimal call the health sweep performs
// against already-registered channels. Returns ErrUnknownProviderType if id
// isn't registered.
func (r *ProviderTypeRegistry) ValidateCredentials(ctx context.Context, id, credential string) error {
	pt, ok := r.types[id]
	if !ok {
		return ErrUnknownProviderType(id)
	}
	return pt.validator.Probe(ctx, credential)
}
