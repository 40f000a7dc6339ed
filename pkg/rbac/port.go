package rbac

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// RoleRepository persists tenant-scoped roles.
type RoleRepository interface {
	Create(ctx context.Context, role Role) error
	Update(ctx context.Context, role Role) error
	Delete(ctx context.Context, id kernel.RoleID, tenantID kernel.TenantID) error
	FindByID(ctx context.Context, id kernel.RoleID, tenantID kernel.TenantID) (*Role, error)
	FindByName(ctx context.Context, tenantID kernel.TenantID, name string) (*Role, error)
	ListForTenant(ctx context.Context, tenantID kernel.TenantID) ([]*Role, error)
}

// UserRoleRepository resolves which roles are assigned to a user.
type UserRoleRepository interface {
	RolesForUser(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) ([]*Role, error)
	AssignRole(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, roleID kernel.RoleID) error
	UnassignRole(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, roleID kernel.RoleID) error
}
