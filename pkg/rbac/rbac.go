// Package rbac resolves role-based permissions within a tenant: custom
// roles composed of wildcarded permission strings, plus a fixed hierarchy
// of system roles used to decide who may administer whom.
package rbac

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// HierarchyLevel ranks the built-in system roles. A role can only
// administer roles at a strictly lower level than its own.
type HierarchyLevel int

const (
	LevelUnknown     HierarchyLevel = 0
	LevelEndUser     HierarchyLevel = 1
	LevelAdmin       HierarchyLevel = 2
	LevelTenantAdmin HierarchyLevel = 3
	LevelSuperAdmin  HierarchyLevel = 4
)

// SystemRoleLevels maps the built-in role names to their fixed hierarchy
// level. Custom tenant roles are assigned LevelUnknown for administration
// purposes — only system roles participate in the hierarchy.
var SystemRoleLevels = map[string]HierarchyLevel{
	"end_user":     LevelEndUser,
	"admin":        LevelAdmin,
	"tenant_admin": LevelTenantAdmin,
	"super_admin":  LevelSuperAdmin,
}

// Role is a named, tenant-scoped bundle of permission strings. Permissions
// may be wildcarded ("channels:*") and are matched the same way
// kernel.AuthContext.HasPermission matches them.
type Role struct {
	ID          kernel.RoleID   `db:"id" json:"id"`
	TenantID    kernel.TenantID `db:"tenant_id" json:"tenant_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Permissions []string        `db:"permissions" json:"permissions"`
	IsSystem    bool            `db:"is_system" json:"is_system"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Level returns the role's hierarchy level for administration checks.
// Non-system (custom) roles are always LevelUnknown: a tenant-defined role
// never outranks the fixed system roles.
func (r Role) Level() HierarchyLevel {
	if r.IsSystem {
		if lvl, ok := SystemRoleLevels[r.Name]; ok {
			return lvl
		}
	}
	return LevelUnknown
}

// HasPermission checks for an exact or wildcard match within the role's
// own permission list. "system:admin" matches anything, per the same rule
// kernel.AuthContext.HasPermission applies to token claims.
func (r Role) HasPermission(permission string) bool {
	for _, p := range r.Permissions {
		if p == permission || p == "*" || p == "system:admin" {
			return true
		}
		if len(p) > 2 && p[len(p)-2:] == ":*" {
			prefix := p[:len(p)-2]
			if len(permission) > len(prefix) && permission[:len(prefix)] == prefix && permission[len(prefix)] == ':' {
				return true
			}
		}
	}
	return false
}

// CanAdminister reports whether a role at this level may manage roles at
// target's level — strictly lower levels only, so a manager can never
// administer another manager.
func (r Role) CanAdminister(target Role) bool {
	return r.Level() > target.Level()
}

var ErrRegistry = errx.NewRegistry("RBAC")

var (
	CodeRoleNotFound      = ErrRegistry.Register("ROLE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Role not found")
	CodeRoleNameTaken     = ErrRegistry.Register("ROLE_NAME_TAKEN", errx.TypeConflict, http.StatusConflict, "A role with this name already exists for the tenant")
	CodeSystemRoleProtect = ErrRegistry.Register("SYSTEM_ROLE_PROTECTED", errx.TypeBusiness, http.StatusForbidden, "System roles cannot be modified or deleted")
	CodeInsufficientLevel = ErrRegistry.Register("INSUFFICIENT_HIERARCHY_LEVEL", errx.TypeAuthorization, http.StatusForbidden, "Insufficient hierarchy level to administer this role")
	CodePermissionDenied  = ErrRegistry.Register("PERMISSION_DENIED", errx.TypeAuthorization, http.StatusForbidden, "Permission denied")
)

func ErrRoleNotFound() *errx.Error      { return ErrRegistry.New(CodeRoleNotFound) }
func ErrRoleNameTaken() *errx.Error     { return ErrRegistry.New(CodeRoleNameTaken) }
func ErrSystemRoleProtected() *errx.Error {
	return ErrRegistry.New(CodeSystemRoleProtect)
}
func ErrInsufficientLevel() *errx.Error { return ErrRegistry.New(CodeInsufficientLevel) }
func ErrPermissionDenied() *errx.Error  { return ErrRegistry.New(CodePermissionDenied) }
