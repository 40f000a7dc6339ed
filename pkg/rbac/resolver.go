package rbac

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// Resolver answers permission and administration questions against a
// user's assigned roles. It implements auth.PermissionResolver so the
// Authenticator can populate access tokens without importing this package
// directly (wired at the composition root instead).
type Resolver struct {
	userRoles UserRoleRepository
}

func NewResolver(userRoles UserRoleRepository) *Resolver {
	return &Resolver{userRoles: userRoles}
}

// ResolvePermissions flattens every role assigned to userID into a single,
// deduplicated permission set.
func (r *Resolver) ResolvePermissions(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) ([]string, error) {
	roles, err := r.userRoles.RolesForUser(ctx, userID, tenantID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to resolve roles for user", errx.TypeInternal)
	}

	seen := make(map[string]struct{})
	permissions := make([]string, 0)
	for _, role := range roles {
		for _, p := range role.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			permissions = append(permissions, p)
		}
	}
	return permissions, nil
}

// Check reports whether userID, through any assigned role, holds
// permission in tenantID.
func (r *Resolver) Check(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, permission string) (bool, error) {
	roles, err := r.userRoles.RolesForUser(ctx, userID, tenantID)
	if err != nil {
		return false, errx.Wrap(err, "failed to resolve roles for user", errx.TypeInternal)
	}
	for _, role := range roles {
		if role.HasPermission(permission) || role.HasPermission("*") {
			return true, nil
		}
	}
	return false, nil
}

// HighestLevel returns the highest hierarchy level among userID's assigned
// roles, used to decide which other roles it may administer.
func (r *Resolver) HighestLevel(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) (HierarchyLevel, error) {
	roles, err := r.userRoles.RolesForUser(ctx, userID, tenantID)
	if err != nil {
		return LevelUnknown, errx.Wrap(err, "failed to resolve roles for user", errx.TypeInternal)
	}
	highest := LevelUnknown
	for _, role := range roles {
		if lvl := role.Level(); lvl > highest {
			highest = lvl
		}
	}
	return highest, nil
}

// CanAdminister reports whether actor (by their highest role level) may
// administer a role at target's level.
func (r *Resolver) CanAdminister(ctx context.Context, actorID kernel.UserID, tenantID kernel.TenantID, target Role) (bool, error) {
	level, err := r.HighestLevel(ctx, actorID, tenantID)
	if err != nil {
		return false, err
	}
	return level > target.Level(), nil
}
