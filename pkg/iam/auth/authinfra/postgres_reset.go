package authinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/iam/auth"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresPasswordResetRepository implements auth.PasswordResetRepository.
type PostgresPasswordResetRepository struct {
	db *sqlx.DB
}

func NewPostgresPasswordResetRepository(db *sqlx.DB) auth.PasswordResetRepository {
	return &PostgresPasswordResetRepository{db: db}
}

func (r *PostgresPasswordResetRepository) SaveResetToken(ctx context.Context, token auth.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (id, token, user_id, expires_at, created_at, is_used)
		VALUES (:id, :token, :user_id, :expires_at, :created_at, :is_used)`
	_, err := r.db.NamedExecContext(ctx, query, toResetPersistence(token))
	if err != nil {
		return errx.Wrap(err, "failed to save password reset token", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresPasswordResetRepository) FindResetToken(ctx context.Context, tokenValue string) (*auth.PasswordResetToken, error) {
	var p passwordResetPersistence
	query := `SELECT * FROM password_reset_tokens WHERE token = $1`
	err := r.db.GetContext(ctx, &p, query, tokenValue)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find password reset token", errx.TypeInternal)
	}
	reset := toResetDomain(p)
	return &reset, nil
}

func (r *PostgresPasswordResetRepository) ConsumeResetToken(ctx context.Context, tokenValue string) error {
	query := `UPDATE password_reset_tokens SET is_used = true WHERE token = $1`
	result, err := r.db.ExecContext(ctx, query, tokenValue)
	if err != nil {
		return errx.Wrap(err, "failed to consume password reset token", errx.TypeInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on consume", errx.TypeInternal)
	}
	if rows == 0 {
		return auth.ErrInvalidRefreshToken().WithDetail("reason", "reset token not found")
	}
	return nil
}

func (r *PostgresPasswordResetRepository) CleanExpiredResetTokens(ctx context.Context) error {
	query := `DELETE FROM password_reset_tokens WHERE expires_at < NOW()`
	_, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return errx.Wrap(err, "failed to clean expired password reset tokens", errx.TypeInternal)
	}
	return nil
}

type passwordResetPersistence struct {
	ID        string        `db:"id"`
	Token     string        `db:"token"`
	UserID    kernel.UserID `db:"user_id"`
	ExpiresAt time.Time     `db:"expires_at"`
	CreatedAt time.Time     `db:"created_at"`
	IsUsed    bool          `db:"is_used"`
}

func toResetPersistence(t auth.PasswordResetToken) passwordResetPersistence {
	return passwordResetPersistence{
		ID:        t.ID,
		Token:     t.Token,
		UserID:    t.UserID,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
		IsUsed:    t.IsUsed,
	}
}

func toResetDomain(p passwordResetPersistence) auth.PasswordResetToken {
	return auth.PasswordResetToken{
		ID:        p.ID,
		Token:     p.Token,
		UserID:    p.UserID,
		ExpiresAt: p.ExpiresAt,
		CreatedAt: p.CreatedAt,
		IsUsed:    p.IsUsed,
	}
}
