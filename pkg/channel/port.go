package channel

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// Repository persists channel configuration. Metrics are kept in memory by
// Manager and never round-trip through the repository.
type Repository interface {
	Save(ctx context.Context, ch Channel) error
	FindByID(ctx context.Context, id kernel.ChannelID, tenantID kernel.TenantID) (*Channel, error)
	ListForTenant(ctx context.Context, tenantID kernel.TenantID) ([]*Channel, error)
	ListActive(ctx context.Context) ([]*Channel, error)
	Delete(ctx context.Context, id kernel.ChannelID, tenantID kernel.TenantID) error
}

// HealthProber performs a cheap live call against a provider account to
// confirm the credential still works. One prober per provider type is
// registered with Manager at construction time.
type HealthProber interface {
	Probe(ctx context.Context, credential string) error
}

// RateLimiter enforces a channel's max-requests-per-minute budget. Backed
// by the same sliding-window kv.Store primitive used for login lockout and
// MFA send throttling.
type RateLimiter interface {
	Allow(ctx context.Context, channelID kernel.ChannelID, limitPerMinute int) (bool, error)
}
