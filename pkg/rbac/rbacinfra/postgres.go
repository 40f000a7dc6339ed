package rbacinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/rbac"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresRoleRepository is the Postgres implementation of
// rbac.RoleRepository, following the same persistence-struct conversion
// idiom as the API key repository.
type PostgresRoleRepository struct {
	db *sqlx.DB
}

func NewPostgresRoleRepository(db *sqlx.DB) *PostgresRoleRepository {
	return &PostgresRoleRepository{db: db}
}

type rolePersistence struct {
	ID          string    `db:"id"`
	TenantID    string    `db:"tenant_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Permissions pq.StringArray `db:"permissions"`
	IsSystem    bool      `db:"is_system"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toPersistence(r rbac.Role) rolePersistence {
	return rolePersistence{
		ID:          r.ID.String(),
		TenantID:    r.TenantID.String(),
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		IsSystem:    r.IsSystem,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toDomain(p rolePersistence) rbac.Role {
	return rbac.Role{
		ID:          kernel.NewRoleID(p.ID),
		TenantID:    kernel.NewTenantID(p.TenantID),
		Name:        p.Name,
		Description: p.Description,
		Permissions: p.Permissions,
		IsSystem:    p.IsSystem,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r *PostgresRoleRepository) Create(ctx context.Context, role rbac.Role) error {
	query := `
		INSERT INTO roles (id, tenant_id, name, description, permissions, is_system, created_at, updated_at)
		VALUES (:id, :tenant_id, :name, :description, :permissions, :is_system, :created_at, :updated_at)`

	_, err := r.db.NamedExecContext(ctx, query, toPersistence(role))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return rbac.ErrRoleNameTaken()
		}
		return errx.Wrap(err, "failed to create role", errx.TypeInternal).WithDetail("role_id", role.ID.String())
	}
	return nil
}

func (r *PostgresRoleRepository) Update(ctx context.Context, role rbac.Role) error {
	query := `
		UPDATE roles SET
			name = :name,
			description = :description,
			permissions = :permissions,
			updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id AND is_system = false`

	result, err := r.db.NamedExecContext(ctx, query, toPersistence(role))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return rbac.ErrRoleNameTaken()
		}
		return errx.Wrap(err, "failed to update role", errx.TypeInternal).WithDetail("role_id", role.ID.String())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on role update", errx.TypeInternal)
	}
	if rows == 0 {
		return rbac.ErrRoleNotFound()
	}
	return nil
}

func (r *PostgresRoleRepository) Delete(ctx context.Context, id kernel.RoleID, tenantID kernel.TenantID) error {
	query := `DELETE FROM roles WHERE id = $1 AND tenant_id = $2 AND is_system = false`
	result, err := r.db.ExecContext(ctx, query, id.String(), tenantID.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete role", errx.TypeInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on role delete", errx.TypeInternal)
	}
	if rows == 0 {
		return rbac.ErrRoleNotFound()
	}
	return nil
}

func (r *PostgresRoleRepository) FindByID(ctx context.Context, id kernel.RoleID, tenantID kernel.TenantID) (*rbac.Role, error) {
	var p rolePersistence
	query := `SELECT * FROM roles WHERE id = $1 AND tenant_id = $2`
	err := r.db.GetContext(ctx, &p, query, id.String(), tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find role by id", errx.TypeInternal)
	}
	role := toDomain(p)
	return &role, nil
}

func (r *PostgresRoleRepository) FindByName(ctx context.Context, tenantID kernel.TenantID, name string) (*rbac.Role, error) {
	var p rolePersistence
	query := `SELECT * FROM roles WHERE tenant_id = $1 AND name = $2`
	err := r.db.GetContext(ctx, &p, query, tenantID.String(), name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find role by name", errx.TypeInternal)
	}
	role := toDomain(p)
	return &role, nil
}

func (r *PostgresRoleRepository) ListForTenant(ctx context.Context, tenantID kernel.TenantID) ([]*rbac.Role, error) {
	var rows []rolePersistence
	query := `SELECT * FROM roles WHERE tenant_id = $1 ORDER BY is_system DESC, name ASC`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list roles for tenant", errx.TypeInternal)
	}
	roles := make([]*rbac.Role, len(rows))
	for i, p := range rows {
		role := toDomain(p)
		roles[i] = &role
	}
	return roles, nil
}

// PostgresUserRoleRepository implements rbac.UserRoleRepository over a
// many-to-many user_roles join table.
type PostgresUserRoleRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRoleRepository(db *sqlx.DB) *PostgresUserRoleRepository {
	return &PostgresUserRoleRepository{db: db}
}

func (r *PostgresUserRoleRepository) RolesForUser(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) ([]*rbac.Role, error) {
	var rows []rolePersistence
	query := `
		SELECT r.* FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1 AND r.tenant_id = $2`
	if err := r.db.SelectContext(ctx, &rows, query, userID.String(), tenantID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to resolve roles for user", errx.TypeInternal)
	}
	roles := make([]*rbac.Role, len(rows))
	for i, p := range rows {
		role := toDomain(p)
		roles[i] = &role
	}
	return roles, nil
}

func (r *PostgresUserRoleRepository) AssignRole(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, roleID kernel.RoleID) error {
	query := `
		INSERT INTO user_roles (user_id, tenant_id, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, role_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, userID.String(), tenantID.String(), roleID.String())
	if err != nil {
		return errx.Wrap(err, "failed to assign role", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresUserRoleRepository) UnassignRole(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, roleID kernel.RoleID) error {
	query := `DELETE FROM user_roles WHERE user_id = $1 AND tenant_id = $2 AND role_id = $3`
	_, err := r.db.ExecContext(ctx, query, userID.String(), tenantID.String(), roleID.String())
	if err != nil {
		return errx.Wrap(err, "failed to unassign role", errx.TypeInternal)
	}
	return nil
}
