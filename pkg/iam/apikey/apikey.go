// Package apikey issues and validates long-lived API keys tenants use to
// call the provider proxy programmatically, as an alternative to a
// short-lived access token.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

const (
	KeyPrefixLive = "mk_live"
	KeyPrefixTest = "mk_test"
)

// APIKey is a long-lived credential scoped to a tenant and, optionally, a
// single user within it.
type APIKey struct {
	ID          string          `db:"id"`
	KeyHash     string          `db:"key_hash"`
	KeyPrefix   string          `db:"key_prefix"`
	TenantID    kernel.TenantID `db:"tenant_id"`
	UserID      *kernel.UserID  `db:"user_id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Scopes      []string        `db:"scopes"`
	IsActive    bool            `db:"is_active"`
	ExpiresAt   *time.Time      `db:"expires_at"`
	LastUsedAt  *time.Time      `db:"last_used_at"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (k APIKey) IsExpired() bool {
	return k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt)
}

func (k APIKey) IsValid() bool {
	return k.IsActive && !k.IsExpired()
}

func (k *APIKey) Revoke() {
	k.IsActive = false
	k.UpdatedAt = time.Now().UTC()
}

func (k APIKey) ToDTO() APIKeyDTO {
	return APIKeyDTO{
		ID:          k.ID,
		KeyPrefix:   k.KeyPrefix,
		TenantID:    k.TenantID,
		UserID:      k.UserID,
		Name:        k.Name,
		Description: k.Description,
		Scopes:      k.Scopes,
		IsActive:    k.IsActive,
		ExpiresAt:   k.ExpiresAt,
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
	}
}

// APIKeyDTO is the API key shape returned to clients; it never carries the
// key hash or the plaintext secret.
type APIKeyDTO struct {
	ID          string          `json:"id"`
	KeyPrefix   string          `json:"key_prefix"`
	TenantID    kernel.TenantID `json:"tenant_id"`
	UserID      *kernel.UserID  `json:"user_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Scopes      []string        `json:"scopes"`
	IsActive    bool            `json:"is_active"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time      `json:"last_used_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CreateAPIKeyRequest struct {
	UserID      *kernel.UserID
	Name        string
	Description string
	Scopes      []string
	Environment string // "live" or "test"
	ExpiresIn   *int   // days
}

type CreateAPIKeyResponse struct {
	APIKey    APIKeyDTO `json:"api_key"`
	SecretKey string    `json:"secret_key"`
	Message   string    `json:"message"`
}

type UpdateAPIKeyRequest struct {
	Name        *string
	Description *string
	Scopes      []string
	IsActive    *bool
}

type APIKeyListResponse struct {
	APIKeys []APIKeyDTO `json:"api_keys"`
	Total   int         `json:"total"`
}

// GeneratedKey is the one-time plaintext secret produced by GenerateAPIKey.
type GeneratedKey struct {
	Key       string
	KeyPrefix string
}

// GenerateAPIKey mints a new secret as prefix_<32 random bytes, base64url>.
func GenerateAPIKey(prefix string) (*GeneratedKey, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, errx.Wrap(err, "failed to generate API key", errx.TypeInternal)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)
	return &GeneratedKey{
		Key:       prefix + "_" + secret,
		KeyPrefix: prefix,
	}, nil
}

// HashAPIKey hashes a plaintext key for at-rest storage and lookup.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ValidateAPIKeyFormat checks a key has a recognized prefix before the
// (comparatively expensive) hash-and-lookup round trip is attempted.
func ValidateAPIKeyFormat(key string) bool {
	return strings.HasPrefix(key, KeyPrefixLive+"_") || strings.HasPrefix(key, KeyPrefixTest+"_")
}

var ErrRegistry = errx.NewRegistry("APIKEY")

var (
	CodeAPIKeyNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "API key not found")
	CodeAPIKeyInvalid  = ErrRegistry.Register("INVALID", errx.TypeValidation, http.StatusUnauthorized, "Invalid API key")
	CodeAPIKeyExpired  = ErrRegistry.Register("EXPIRED", errx.TypeAuthorization, http.StatusUnauthorized, "API key has expired")
	CodeAPIKeyRevoked  = ErrRegistry.Register("REVOKED", errx.TypeAuthorization, http.StatusUnauthorized, "API key has been revoked")
)

func ErrAPIKeyNotFound() *errx.Error { return ErrRegistry.New(CodeAPIKeyNotFound) }
func ErrAPIKeyInvalid() *errx.Error  { return ErrRegistry.New(CodeAPIKeyInvalid) }
func ErrAPIKeyExpired() *errx.Error  { return ErrRegistry.New(CodeAPIKeyExpired) }
func ErrAPIKeyRevoked() *errx.Error  { return ErrRegistry.New(CodeAPIKeyRevoked) }
