package channel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/manifesto/pkg/channel"
)

type fakeProber struct {
	err error
}

func (p fakeProber) Probe(ctx context.Context, credential string) error {
	return p.err
}

func newTestRegistry() *channel.ProviderTypeRegistry {
	r := channel.NewProviderTypeRegistry()
	r.Register("openai", "OpenAI", []string{"gpt-4o", "gpt-4o-mini"}, fakeProber{})
	r.Register("anthropic", "Anthropic", []string{"claude-sonnet-4-20250514"}, fakeProber{err: errors.New("bad key")})
	return r
}

func TestListTypesReturnsEveryRegisteredTypeSortedByID(t *testing.T) {
	r := newTestRegistry()
	types := r.ListTypes()
	if len(types) != 2 {
		t.Fatalf("expected 2 provider types, got %d", len(types))
	}
	if types[0].ID != "anthropic" || types[1].ID != "openai" {
		t.Fatalf("expected types sorted by id, got %q then %q", types[0].ID, types[1].ID)
	}
}

func TestGetTypeReturnsFalseForUnknownID(t *testing.T) {
	r := newTestRegistry()
	if _, ok := r.GetType("bedrock"); ok {
		t.Fatal("expected an unregistered provider type to be absent")
	}
}

func TestSupportedModelsReturnsRegisteredModels(t *testing.T) {
	r := newTestRegistry()
	models, ok := r.SupportedModels("openai")
	if !ok {
		t.Fatal("expected openai to be registered")
	}
	if len(models) != 2 || models[0] != "gpt-4o" {
		t.Fatalf("unexpected model list: %v", models)
	}
}

func TestValidateCredentialsDelegatesToTheRegisteredProber(t *testing.T) {
	r := newTestRegistry()

	if err := r.ValidateCredentials(context.Background(), "openai", "sk-good"); err != nil {
		t.Fatalf("expected the openai prober's nil error to surface, got %v", err)
	}
	if err := r.ValidateCredentials(context.Background(), "anthropic", "sk-bad"); err == nil {
		t.Fatal("expected the anthropic prober's error to surface")
	}
}

func TestValidateCredentialsRejectsUnknownProviderType(t *testing.T) {
	r := newTestRegistry()
	err := r.ValidateCredentials(context.Background(), "does-not-exist", "key")
	if err == nil {
		t.Fatal("expected an error for an unregistered provider type")
	}
	if got := channel.ErrUnknownProviderType("does-not-exist").Error(); got == "" {
		t.Fatal("sanity: ErrUnknownProviderType should produce a non-empty error")
	}
}
