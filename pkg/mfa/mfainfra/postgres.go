package mfainfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/mfa"
	"github.com/jmoiron/sqlx"
)

// PostgresFactorRepository is the Postgres implementation of
// mfa.FactorRepository, following the same persistence-struct conversion
// idiom used for roles.
type PostgresFactorRepository struct {
	db *sqlx.DB
}

func NewPostgresFactorRepository(db *sqlx.DB) *PostgresFactorRepository {
	return &PostgresFactorRepository{db: db}
}

type factorPersistence struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	TenantID   string     `db:"tenant_id"`
	Method     string     `db:"method"`
	Secret     string     `db:"secret"`
	Contact    string     `db:"contact"`
	Enabled    bool       `db:"enabled"`
	CreatedAt  time.Time  `db:"created_at"`
	VerifiedAt *time.Time `db:"verified_at"`
}

func factorToPersistence(f mfa.Factor) factorPersistence {
	return factorPersistence{
		ID:         f.ID,
		UserID:     f.UserID.String(),
		TenantID:   f.TenantID.String(),
		Method:     string(f.Method),
		Secret:     f.Secret,
		Contact:    f.Contact,
		Enabled:    f.Enabled,
		CreatedAt:  f.CreatedAt,
		VerifiedAt: f.VerifiedAt,
	}
}

func factorToDomain(p factorPersistence) mfa.Factor {
	return mfa.Factor{
		ID:         p.ID,
		UserID:     kernel.NewUserID(p.UserID),
		TenantID:   kernel.NewTenantID(p.TenantID),
		Method:     mfa.Method(p.Method),
		Secret:     p.Secret,
		Contact:    p.Contact,
		Enabled:    p.Enabled,
		CreatedAt:  p.CreatedAt,
		VerifiedAt: p.VerifiedAt,
	}
}

func (r *PostgresFactorRepository) Save(ctx context.Context, factor mfa.Factor) error {
	query := `
		INSERT INTO mfa_factors (id, user_id, tenant_id, method, secret, contact, enabled, created_at, verified_at)
		VALUES (:id, :user_id, :tenant_id, :method, :secret, :contact, :enabled, :created_at, :verified_at)
		ON CONFLICT (user_id, method) DO UPDATE SET
			secret = EXCLUDED.secret,
			contact = EXCLUDED.contact,
			enabled = EXCLUDED.enabled,
			verified_at = EXCLUDED.verified_at`

	_, err := r.db.NamedExecContext(ctx, query, factorToPersistence(factor))
	if err != nil {
		return errx.Wrap(err, "failed to save mfa factor", errx.TypeInternal).WithDetail("user_id", factor.UserID.String())
	}
	return nil
}

func (r *PostgresFactorRepository) FindByUserAndMethod(ctx context.Context, userID kernel.UserID, method mfa.Method) (*mfa.Factor, error) {
	var p factorPersistence
	query := `SELECT * FROM mfa_factors WHERE user_id = $1 AND method = $2`
	err := r.db.GetContext(ctx, &p, query, userID.String(), string(method))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find mfa factor", errx.TypeInternal)
	}
	factor := factorToDomain(p)
	return &factor, nil
}

func (r *PostgresFactorRepository) ListForUser(ctx context.Context, userID kernel.UserID) ([]*mfa.Factor, error) {
	var rows []factorPersistence
	query := `SELECT * FROM mfa_factors WHERE user_id = $1`
	if err := r.db.SelectContext(ctx, &rows, query, userID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list mfa factors", errx.TypeInternal)
	}
	factors := make([]*mfa.Factor, len(rows))
	for i, p := range rows {
		f := factorToDomain(p)
		factors[i] = &f
	}
	return factors, nil
}

func (r *PostgresFactorRepository) Delete(ctx context.Context, userID kernel.UserID, method mfa.Method) error {
	query := `DELETE FROM mfa_factors WHERE user_id = $1 AND method = $2`
	_, err := r.db.ExecContext(ctx, query, userID.String(), string(method))
	if err != nil {
		return errx.Wrap(err, "failed to delete mfa factor", errx.TypeInternal)
	}
	return nil
}

// PostgresBackupCodeRepository is the Postgres implementation of
// mfa.BackupCodeRepository.
type PostgresBackupCodeRepository struct {
	db *sqlx.DB
}

func NewPostgresBackupCodeRepository(db *sqlx.DB) *PostgresBackupCodeRepository {
	return &PostgresBackupCodeRepository{db: db}
}

type backupCodePersistence struct {
	ID       string     `db:"id"`
	UserID   string     `db:"user_id"`
	CodeHash string     `db:"code_hash"`
	UsedAt   *time.Time `db:"used_at"`
}

func (r *PostgresBackupCodeRepository) ReplaceAll(ctx context.Context, userID kernel.UserID, codes []mfa.BackupCode) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to start backup code replace transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mfa_backup_codes WHERE user_id = $1`, userID.String()); err != nil {
		return errx.Wrap(err, "failed to clear backup codes", errx.TypeInternal)
	}

	for _, code := range codes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO mfa_backup_codes (id, user_id, code_hash, used_at)
			VALUES ($1, $2, $3, $4)`,
			code.ID, userID.String(), code.CodeHash, code.UsedAt)
		if err != nil {
			return errx.Wrap(err, "failed to insert backup code", errx.TypeInternal)
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit backup code replace transaction", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresBackupCodeRepository) FindUnused(ctx context.Context, userID kernel.UserID) ([]mfa.BackupCode, error) {
	var rows []backupCodePersistence
	query := `SELECT * FROM mfa_backup_codes WHERE user_id = $1 AND used_at IS NULL`
	if err := r.db.SelectContext(ctx, &rows, query, userID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to find unused backup codes", errx.TypeInternal)
	}
	codes := make([]mfa.BackupCode, len(rows))
	for i, p := range rows {
		codes[i] = mfa.BackupCode{
			ID:       p.ID,
			UserID:   kernel.NewUserID(p.UserID),
			CodeHash: p.CodeHash,
			UsedAt:   p.UsedAt,
		}
	}
	return codes, nil
}

func (r *PostgresBackupCodeRepository) MarkUsed(ctx context.Context, codeID string) error {
	now := time.Now()
	query := `UPDATE mfa_backup_codes SET used_at = $1 WHERE id = $2 AND used_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, now, codeID)
	if err != nil {
		return errx.Wrap(err, "failed to mark backup code used", errx.TypeInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on backup code use", errx.TypeInternal)
	}
	if rows == 0 {
		return mfa.ErrCodeAlreadyUsed()
	}
	return nil
}

func (r *PostgresBackupCodeRepository) CountUnused(ctx context.Context, userID kernel.UserID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM mfa_backup_codes WHERE user_id = $1 AND used_at IS NULL`
	if err := r.db.GetContext(ctx, &count, query, userID.String()); err != nil {
		return 0, errx.Wrap(err, "failed to count unused backup codes", errx.TypeInternal)
	}
	return count, nil
}
