package tenant

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

type TenantRepository interface {
	Save(ctx context.Context, t Tenant) error
	FindByID(ctx context.Context, id kernel.TenantID) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Delete(ctx context.Context, id kernel.TenantID) error
}
