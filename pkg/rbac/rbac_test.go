package rbac_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/rbac"
)

func TestHasPermissionExactMatch(t *testing.T) {
	r := rbac.Role{Permissions: []string{"channels:read"}}
	if !r.HasPermission("channels:read") {
		t.Fatal("expected exact match to grant")
	}
	if r.HasPermission("channels:write") {
		t.Fatal("expected no match for a different action")
	}
}

func TestHasPermissionWildcardPrefix(t *testing.T) {
	r := rbac.Role{Permissions: []string{"channels:*"}}
	if !r.HasPermission("channels:write") {
		t.Fatal("expected prefix wildcard to grant")
	}
	if r.HasPermission("providers:write") {
		t.Fatal("expected prefix wildcard to stay scoped to its own resource")
	}
}

func TestHasPermissionGlobalWildcard(t *testing.T) {
	r := rbac.Role{Permissions: []string{"*"}}
	if !r.HasPermission("anything:at-all") {
		t.Fatal("expected bare * to grant everything")
	}
}

func TestHasPermissionSystemAdminBypassesEverything(t *testing.T) {
	r := rbac.Role{Permissions: []string{"system:admin"}}
	if !r.HasPermission("channels:write") {
		t.Fatal("expected system:admin to grant any permission")
	}
	if !r.HasPermission("roles:delete") {
		t.Fatal("expected system:admin to grant any permission")
	}
}

func TestRoleLevelSystemRoles(t *testing.T) {
	cases := []struct {
		name string
		want rbac.HierarchyLevel
	}{
		{"end_user", rbac.LevelEndUser},
		{"admin", rbac.LevelAdmin},
		{"tenant_admin", rbac.LevelTenantAdmin},
		{"super_admin", rbac.LevelSuperAdmin},
	}
	for _, tc := range cases {
		r := rbac.Role{Name: tc.name, IsSystem: true}
		if got := r.Level(); got != tc.want {
			t.Fatalf("%s: expected level %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestRoleLevelCustomRoleIsUnknown(t *testing.T) {
	r := rbac.Role{Name: "super_admin", IsSystem: false}
	if r.Level() != rbac.LevelUnknown {
		t.Fatal("expected a non-system role to never inherit a system role's level, even by name collision")
	}
}

func TestCanAdministerRequiresStrictlyLowerLevel(t *testing.T) {
	admin := rbac.Role{Name: "admin", IsSystem: true}
	tenantAdmin := rbac.Role{Name: "tenant_admin", IsSystem: true}
	if !tenantAdmin.CanAdminister(admin) {
		t.Fatal("expected tenant_admin to administer admin")
	}
	if admin.CanAdminister(tenantAdmin) {
		t.Fatal("expected admin to not administer tenant_admin")
	}
	if admin.CanAdminister(admin) {
		t.Fatal("expected a role to not administer its own level")
	}
}

// fakeUserRoleRepo backs Resolver in tests without a database.
type fakeUserRoleRepo struct {
	roles map[kernel.UserID][]*rbac.Role
}

func newFakeUserRoleRepo() *fakeUserRoleRepo {
	return &fakeUserRoleRepo{roles: make(map[kernel.UserID][]*rbac.Role)}
}

func (f *fakeUserRoleRepo) RolesForUser(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) ([]*rbac.Role, error) {
	return f.roles[userID], nil
}

func (f *fakeUserRoleRepo) AssignRole(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, roleID kernel.RoleID) error {
	return nil
}

func (f *fakeUserRoleRepo) UnassignRole(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, roleID kernel.RoleID) error {
	return nil
}

func TestResolverCheckGrantsExactPermission(t *testing.T) {
	repo := newFakeUserRoleRepo()
	userID := kernel.NewUserID("u1")
	tenantID := kernel.NewTenantID("t1")
	repo.roles[userID] = []*rbac.Role{{Name: "custom", Permissions: []string{"channels:read"}}}

	resolver := rbac.NewResolver(repo)
	allowed, err := resolver.Check(context.Background(), userID, tenantID, "channels:read")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatal("expected Check to grant a permission held exactly by an assigned role")
	}
}

func TestResolverCheckGrantsViaSystemAdmin(t *testing.T) {
	repo := newFakeUserRoleRepo()
	userID := kernel.NewUserID("u1")
	tenantID := kernel.NewTenantID("t1")
	repo.roles[userID] = []*rbac.Role{{Name: "super_admin", IsSystem: true, Permissions: []string{"system:admin"}}}

	resolver := rbac.NewResolver(repo)
	allowed, err := resolver.Check(context.Background(), userID, tenantID, "roles:write")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatal("expected Check to grant any permission when a role holds system:admin")
	}
}

func TestResolverCheckDeniesUnassignedPermission(t *testing.T) {
	repo := newFakeUserRoleRepo()
	userID := kernel.NewUserID("u1")
	tenantID := kernel.NewTenantID("t1")
	repo.roles[userID] = []*rbac.Role{{Name: "custom", Permissions: []string{"channels:read"}}}

	resolver := rbac.NewResolver(repo)
	allowed, err := resolver.Check(context.Background(), userID, tenantID, "roles:write")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("expected Check to deny a permission no assigned role grants")
	}
}

func TestResolverHighestLevelAndCanAdminister(t *testing.T) {
	repo := newFakeUserRoleRepo()
	userID := kernel.NewUserID("u1")
	tenantID := kernel.NewTenantID("t1")
	repo.roles[userID] = []*rbac.Role{
		{Name: "end_user", IsSystem: true},
		{Name: "tenant_admin", IsSystem: true},
	}

	resolver := rbac.NewResolver(repo)
	level, err := resolver.HighestLevel(context.Background(), userID, tenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level != rbac.LevelTenantAdmin {
		t.Fatalf("expected highest level %d, got %d", rbac.LevelTenantAdmin, level)
	}

	canAdminister, err := resolver.CanAdminister(context.Background(), userID, tenantID, rbac.Role{Name: "admin", IsSystem: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !canAdminister {
		t.Fatal("expected a tenant_admin-level actor to administer an admin role")
	}

	canAdminister, err = resolver.CanAdminister(context.Background(), userID, tenantID, rbac.Role{Name: "super_admin", IsSystem: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canAdminister {
		t.Fatal("expected a tenant_admin-level actor to not administer a super_admin role")
	}
}

func TestResolverResolvePermissionsDeduplicates(t *testing.T) {
	repo := newFakeUserRoleRepo()
	userID := kernel.NewUserID("u1")
	tenantID := kernel.NewTenantID("t1")
	repo.roles[userID] = []*rbac.Role{
		{Name: "a", Permissions: []string{"channels:read", "channels:write"}},
		{Name: "b", Permissions: []string{"channels:write", "roles:read"}},
	}

	resolver := rbac.NewResolver(repo)
	perms, err := resolver.ResolvePermissions(context.Background(), userID, tenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(perms) != 3 {
		t.Fatalf("expected 3 deduplicated permissions, got %d: %v", len(perms), perms)
	}
}
