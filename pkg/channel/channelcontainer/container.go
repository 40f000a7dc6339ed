// Package channelcontainer composes the provider-channel routing core the
// same way iamcontainer composes identity: explicit Deps in, a Container
// with only the public surface cmd/ needs out.
package channelcontainer

import (
	"context"
	"encoding/base64"

	"github.com/Abraxas-365/manifesto/pkg/channel"
	"github.com/Abraxas-365/manifesto/pkg/channel/channelhealth"
	"github.com/Abraxas-365/manifesto/pkg/channel/channelinfra"
	"github.com/Abraxas-365/manifesto/pkg/config"
	"github.com/Abraxas-365/manifesto/pkg/convert"
	"github.com/Abraxas-365/manifesto/pkg/kv"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/Abraxas-365/manifesto/pkg/proxyhandler"
	"github.com/jmoiron/sqlx"
)

type Deps struct {
	DB  *sqlx.DB
	KV  kv.Store
	Cfg *config.Config
}

type Container struct {
	Manager       *channel.Manager
	Vault         *channel.Vault
	Registry      *convert.Registry
	ProviderTypes *channel.ProviderTypeRegistry
	Handler       *proxyhandler.Handler
}

func New(deps Deps) *Container {
	logx.Info("🔧 Initializing channel container...")

	c := &Container{}

	repo := channelinfra.NewPostgresRepository(deps.DB)

	key, err := vaultKey(deps.Cfg.Vault.EncryptionKey)
	if err != nil {
		logx.Fatalf("invalid VAULT_ENCRYPTION_KEY: %v", err)
	}
	vault, err := channel.NewVault(key)
	if err != nil {
		logx.Fatalf("failed to initialize credential vault: %v", err)
	}
	c.Vault = vault

	openaiProber := channelhealth.NewOpenAIProber("")
	anthropicProber := channelhealth.NewAnthropicProber("")
	probers := map[string]channel.HealthProber{
		"openai":    openaiProber,
		"anthropic": anthropicProber,
	}
	c.Manager = channel.NewManager(repo, probers, c.Vault)

	c.ProviderTypes = channel.NewProviderTypeRegistry()
	c.ProviderTypes.Register("openai", "OpenAI", []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-3.5-turbo"}, openaiProber)
	c.ProviderTypes.Register("anthropic", "Anthropic", []string{"claude-sonnet-4-20250514", "claude-opus-4-20250514", "claude-3-5-haiku-20241022"}, anthropicProber)

	c.Registry = convert.NewRegistry()

	limiter := channel.NewKVRateLimiter(deps.KV)
	c.Handler = proxyhandler.NewHandler(c.Manager, c.Registry, c.Vault, limiter)

	logx.Info("✅ Channel container initialized")
	return c
}

// vaultKey derives a 32-byte AES-256 key from the configured secret. A
// base64-encoded 32-byte value is used verbatim; anything else is treated
// as a passphrase and padded/truncated, so local dev can run with a plain
// string while production supplies a proper random key.
func vaultKey(secret string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	key := make([]byte, 32)
	copy(key, secret)
	return key, nil
}

// Start launches the channel manager's background health-check loop.
// Call after Load has populated the in-memory index.
func (c *Container) Start(ctx context.Context) error {
	if err := c.Manager.Load(ctx); err != nil {
		return err
	}
	go c.Manager.Start(ctx)
	return nil
}
