package channelinfra

import (
	"context"
	"database/sql"

	"github.com/Abraxas-365/manifesto/pkg/channel"
	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) channel.Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, ch channel.Channel) error {
	query := `
		INSERT INTO channels (
			id, tenant_id, name, provider_type, base_url, encrypted_credential,
			models, status, priority, weight, max_requests_per_min, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :name, :provider_type, :base_url, :encrypted_credential,
			:models, :status, :priority, :weight, :max_requests_per_min, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			name = :name,
			provider_type = :provider_type,
			base_url = :base_url,
			encrypted_credential = :encrypted_credential,
			models = :models,
			status = :status,
			priority = :priority,
			weight = :weight,
			max_requests_per_min = :max_requests_per_min,
			updated_at = :updated_at`

	_, err := r.db.NamedExecContext(ctx, query, toPersistence(ch))
	if err != nil {
		return errx.Wrap(err, "failed to save channel", errx.TypeInternal).
			WithDetail("channel_id", ch.ID.String())
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id kernel.ChannelID, tenantID kernel.TenantID) (*channel.Channel, error) {
	var p channelPersistence
	query := `SELECT * FROM channels WHERE id = $1 AND tenant_id = $2`
	err := r.db.GetContext(ctx, &p, query, id.String(), tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, channel.ErrChannelNotFound()
		}
		return nil, errx.Wrap(err, "failed to find channel", errx.TypeInternal)
	}
	ch := toDomain(p)
	return &ch, nil
}

func (r *PostgresRepository) ListForTenant(ctx context.Context, tenantID kernel.TenantID) ([]*channel.Channel, error) {
	var rows []channelPersistence
	query := `SELECT * FROM channels WHERE tenant_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list channels for tenant", errx.TypeInternal)
	}
	return toDomainSlice(rows), nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]*channel.Channel, error) {
	var rows []channelPersistence
	query := `SELECT * FROM channels WHERE status = $1 ORDER BY tenant_id`
	if err := r.db.SelectContext(ctx, &rows, query, channel.StatusActive); err != nil {
		return nil, errx.Wrap(err, "failed to list active channels", errx.TypeInternal)
	}
	return toDomainSlice(rows), nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id kernel.ChannelID, tenantID kernel.TenantID) error {
	query := `DELETE FROM channels WHERE id = $1 AND tenant_id = $2`
	result, err := r.db.ExecContext(ctx, query, id.String(), tenantID.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete channel", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return channel.ErrChannelNotFound()
	}
	return nil
}

type channelPersistence struct {
	ID                  kernel.ChannelID `db:"id"`
	TenantID            kernel.TenantID  `db:"tenant_id"`
	Name                string           `db:"name"`
	ProviderType        string           `db:"provider_type"`
	BaseURL             sql.NullString   `db:"base_url"`
	EncryptedCredential string           `db:"encrypted_credential"`
	Models              pq.StringArray   `db:"models"`
	Status              channel.Status   `db:"status"`
	Priority            int              `db:"priority"`
	Weight              float64          `db:"weight"`
	MaxRequestsPerMin   int              `db:"max_requests_per_min"`
	CreatedAt           sql.NullTime     `db:"created_at"`
	UpdatedAt           sql.NullTime     `db:"updated_at"`
}

func toPersistence(ch channel.Channel) channelPersistence {
	return channelPersistence{
		ID:                  ch.ID,
		TenantID:            ch.TenantID,
		Name:                ch.Name,
		ProviderType:        ch.ProviderType,
		BaseURL:             sql.NullString{String: ch.BaseURL, Valid: ch.BaseURL != ""},
		EncryptedCredential: ch.EncryptedCredential,
		Models:              ch.Models,
		Status:              ch.Status,
		Priority:            ch.Priority,
		Weight:              ch.Weight,
		MaxRequestsPerMin:   ch.MaxRequestsPerMin,
		CreatedAt:           sql.NullTime{Time: ch.CreatedAt, Valid: !ch.CreatedAt.IsZero()},
		UpdatedAt:           sql.NullTime{Time: ch.UpdatedAt, Valid: !ch.UpdatedAt.IsZero()},
	}
}

func toDomain(p channelPersistence) channel.Channel {
	return channel.Channel{
		ID:                  p.ID,
		TenantID:            p.TenantID,
		Name:                p.Name,
		ProviderType:        p.ProviderType,
		BaseURL:             p.BaseURL.String,
		EncryptedCredential: p.EncryptedCredential,
		Models:              p.Models,
		Status:              p.Status,
		Priority:            p.Priority,
		Weight:              p.Weight,
		MaxRequestsPerMin:   p.MaxRequestsPerMin,
		CreatedAt:           p.CreatedAt.Time,
		UpdatedAt:           p.UpdatedAt.Time,
	}
}

func toDomainSlice(rows []channelPersistence) []*channel.Channel {
	out := make([]*channel.Channel, len(rows))
	for i, p := range rows {
		ch := toDomain(p)
		out[i] = &ch
	}
	return out
}
