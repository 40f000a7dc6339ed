package user

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

type UserRepository interface {
	Save(ctx context.Context, u User) error
	FindByID(ctx context.Context, id kernel.UserID, tenantID kernel.TenantID) (*User, error)
	FindByEmail(ctx context.Context, tenantID kernel.TenantID, email string) (*User, error)
	Delete(ctx context.Context, id kernel.UserID, tenantID kernel.TenantID) error
}
