package userinfra

import (
	"context"
	"database/sql"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/iam/user"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PostgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Save(ctx context.Context, u user.User) error {
	query := `
		INSERT INTO users (id, tenant_id, email, name, password_hash, status, email_verified_at, mfa_enabled, created_at, updated_at)
		VALUES (:id, :tenant_id, :email, :name, :password_hash, :status, :email_verified_at, :mfa_enabled, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash,
			status = EXCLUDED.status,
			email_verified_at = EXCLUDED.email_verified_at,
			mfa_enabled = EXCLUDED.mfa_enabled,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return user.ErrEmailTaken()
		}
		return errx.Wrap(err, "failed to save user", errx.TypeInternal).WithDetail("user_id", u.ID.String())
	}
	return nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID, tenantID kernel.TenantID) (*user.User, error) {
	var u user.User
	query := `SELECT * FROM users WHERE id = $1 AND tenant_id = $2`
	err := r.db.GetContext(ctx, &u, query, id.String(), tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find user by id", errx.TypeInternal)
	}
	return &u, nil
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, tenantID kernel.TenantID, email string) (*user.User, error) {
	var u user.User
	query := `SELECT * FROM users WHERE tenant_id = $1 AND email = $2`
	err := r.db.GetContext(ctx, &u, query, tenantID.String(), email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find user by email", errx.TypeInternal)
	}
	return &u, nil
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id kernel.UserID, tenantID kernel.TenantID) error {
	query := `DELETE FROM users WHERE id = $1 AND tenant_id = $2`
	_, err := r.db.ExecContext(ctx, query, id.String(), tenantID.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete user", errx.TypeInternal)
	}
	return nil
}
