package rbac

import (
	"context"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/google/uuid"
)

// RoleService is the tenant-facing CRUD surface over custom roles. System
// roles (member/manager/admin/super_admin) are seeded per tenant and are
// read-only through this service.
type RoleService struct {
	repo     RoleRepository
	resolver *Resolver
}

func NewRoleService(repo RoleRepository, resolver *Resolver) *RoleService {
	return &RoleService{repo: repo, resolver: resolver}
}

type CreateRoleRequest struct {
	TenantID    kernel.TenantID
	ActorID     kernel.UserID
	Name        string
	Description string
	Permissions []string
}

// Create adds a custom role. The actor must already hold roles:write
// (directly or via system:admin) against their own current assignments —
// a live check via Resolver.Check, independent of whatever permission
// snapshot a caller's access token happened to carry at login.
func (s *RoleService) Create(ctx context.Context, req CreateRoleRequest) (*Role, error) {
	allowed, err := s.resolver.Check(ctx, req.ActorID, req.TenantID, "roles:write")
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrPermissionDenied()
	}

	if existing, _ := s.repo.FindByName(ctx, req.TenantID, req.Name); existing != nil {
		return nil, ErrRoleNameTaken()
	}

	role := Role{
		ID:          kernel.NewRoleID(uuid.NewString()),
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		IsSystem:    false,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.repo.Create(ctx, role); err != nil {
		return nil, errx.Wrap(err, "failed to create role", errx.TypeInternal)
	}
	return &role, nil
}

type UpdateRoleRequest struct {
	Name        *string
	Description *string
	Permissions []string
}

// Update modifies a custom role. actorID must hold a hierarchy level above
// the role's own (always true for a custom role, whose level is
// LevelUnknown, unless the actor also holds no system role).
func (s *RoleService) Update(ctx context.Context, id kernel.RoleID, tenantID kernel.TenantID, actorID kernel.UserID, req UpdateRoleRequest) (*Role, error) {
	role, err := s.repo.FindByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound()
	}
	if role.IsSystem {
		return nil, ErrSystemRoleProtected()
	}

	canAdminister, err := s.resolver.CanAdminister(ctx, actorID, tenantID, *role)
	if err != nil {
		return nil, err
	}
	if !canAdminister {
		return nil, ErrInsufficientLevel()
	}

	if req.Name != nil {
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.Permissions != nil {
		role.Permissions = req.Permissions
	}
	role.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, *role); err != nil {
		return nil, errx.Wrap(err, "failed to update role", errx.TypeInternal)
	}
	return role, nil
}

func (s *RoleService) Delete(ctx context.Context, id kernel.RoleID, tenantID kernel.TenantID, actorID kernel.UserID) error {
	role, err := s.repo.FindByID(ctx, id, tenantID)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrRoleNotFound()
	}
	if role.IsSystem {
		return ErrSystemRoleProtected()
	}

	canAdminister, err := s.resolver.CanAdminister(ctx, actorID, tenantID, *role)
	if err != nil {
		return err
	}
	if !canAdminister {
		return ErrInsufficientLevel()
	}

	return s.repo.Delete(ctx, id, tenantID)
}

func (s *RoleService) ListForTenant(ctx context.Context, tenantID kernel.TenantID) ([]*Role, error) {
	return s.repo.ListForTenant(ctx, tenantID)
}

func (s *RoleService) Get(ctx context.Context, id kernel.RoleID, tenantID kernel.TenantID) (*Role, error) {
	role, err := s.repo.FindByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound()
	}
	return role, nil
}
