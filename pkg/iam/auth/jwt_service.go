package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes access tokens from refresh tokens so a refresh
// token can never be presented where an access token is expected.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Revoker checks and records token revocation. Implemented over the KV
// store so a logout or a forced session kill takes effect immediately,
// without waiting for the token to expire on its own.
type Revoker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	RevokeAllForUser(ctx context.Context, userID kernel.UserID, ttl time.Duration) error
	IsUserRevoked(ctx context.Context, userID kernel.UserID, issuedAt time.Time) (bool, error)
}

// JWTService issues and validates HS256 tokens carrying tenant-scoped
// identity and the permission set resolved at login time.
type JWTService struct {
	secretKey       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	issuer          string
	revoker         Revoker
}

// NewJWTService creates a token service. revoker may be nil, in which case
// ValidateAccessToken skips the revocation check (used in tests).
func NewJWTService(secretKey string, accessTokenTTL, refreshTokenTTL time.Duration, issuer string, revoker Revoker) *JWTService {
	if accessTokenTTL == 0 {
		accessTokenTTL = 60 * time.Minute
	}
	if refreshTokenTTL == 0 {
		refreshTokenTTL = 7 * 24 * time.Hour
	}
	if issuer == "" {
		issuer = "manifesto"
	}

	return &JWTService{
		secretKey:       []byte(secretKey),
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		issuer:          issuer,
		revoker:         revoker,
	}
}

// JWTClaims is the wire shape of both access and refresh tokens. Refresh
// tokens leave Permissions empty — a refresh token authorizes minting a new
// access token, not acting with any permission itself.
type JWTClaims struct {
	UserID      kernel.UserID   `json:"user_id"`
	TenantID    kernel.TenantID `json:"tenant_id"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Permissions []string        `json:"permissions,omitempty"`
	Kind        TokenKind       `json:"kind"`
	jwt.RegisteredClaims
}

// GenerateAccessToken mints a short-lived access token carrying the
// permission set resolved by RBAC at login time.
func (j *JWTService) GenerateAccessToken(userID kernel.UserID, tenantID kernel.TenantID, email, name string, permissions []string) (string, string, error) {
	now := time.Now()
	tokenID := uuid.NewString()

	if permissions == nil {
		permissions = []string{}
	}

	claims := JWTClaims{
		UserID:      userID,
		TenantID:    tenantID,
		Email:       email,
		Name:        name,
		Permissions: permissions,
		Kind:        TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    j.issuer,
			Subject:   userID.String(),
			Audience:  []string{j.issuer + "-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", "", ErrTokenGenerationFailed().WithDetail("error", err.Error())
	}

	return signed, tokenID, nil
}

// ValidateAccessToken parses, verifies, and checks revocation for an access
// token, returning the resolved claims.
func (j *JWTService) ValidateAccessToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims, err := j.parse(tokenString, TokenKindAccess)
	if err != nil {
		return nil, err
	}

	if j.revoker != nil {
		revoked, err := j.revoker.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return nil, ErrTokenValidationFailed().WithDetail("error", err.Error())
		}
		if revoked {
			return nil, ErrTokenRevoked()
		}

		userRevoked, err := j.revoker.IsUserRevoked(ctx, claims.UserID, claims.IssuedAt)
		if err != nil {
			return nil, ErrTokenValidationFailed().WithDetail("error", err.Error())
		}
		if userRevoked {
			return nil, ErrTokenRevoked()
		}
	}

	return claims, nil
}

// GenerateRefreshToken mints a long-lived, permission-free refresh token.
func (j *JWTService) GenerateRefreshToken(userID kernel.UserID, tenantID kernel.TenantID) (string, string, error) {
	now := time.Now()
	tokenID := uuid.NewString()

	claims := JWTClaims{
		UserID:   userID,
		TenantID: tenantID,
		Kind:     TokenKindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    j.issuer,
			Subject:   userID.String(),
			Audience:  []string{j.issuer + "-refresh"},
			ExpiresAt: jwt.NewNumericDate(now.Add(j.refreshTokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", "", ErrTokenGenerationFailed().WithDetail("error", err.Error())
	}

	return signed, tokenID, nil
}

// ValidateRefreshToken parses and checks revocation for a refresh token.
func (j *JWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims, err := j.parse(tokenString, TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	if j.revoker != nil {
		revoked, err := j.revoker.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return nil, ErrTokenValidationFailed().WithDetail("error", err.Error())
		}
		if revoked {
			return nil, ErrExpiredRefreshToken()
		}
	}

	return claims, nil
}

// RevokeToken marks a single token ID as revoked for the remainder of its
// natural lifetime.
func (j *JWTService) RevokeToken(ctx context.Context, claims *TokenClaims) error {
	if j.revoker == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return j.revoker.Revoke(ctx, claims.TokenID, ttl)
}

// RevokeAllForUser invalidates every token issued to userID up to now —
// used on password change or an admin-forced logout.
func (j *JWTService) RevokeAllForUser(ctx context.Context, userID kernel.UserID) error {
	if j.revoker == nil {
		return nil
	}
	return j.revoker.RevokeAllForUser(ctx, userID, j.refreshTokenTTL)
}

func (j *JWTService) parse(tokenString string, wantKind TokenKind) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, ErrTokenValidationFailed().WithDetail("error", err.Error())
	}
	if !token.Valid {
		return nil, ErrTokenValidationFailed().WithDetail("error", "token is invalid")
	}

	jwtClaims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, ErrTokenValidationFailed().WithDetail("error", "invalid claims type")
	}
	if jwtClaims.Kind != wantKind {
		return nil, ErrTokenValidationFailed().WithDetail("error", "unexpected token kind").WithDetail("kind", string(jwtClaims.Kind))
	}

	return &TokenClaims{
		TokenID:     jwtClaims.ID,
		UserID:      jwtClaims.UserID,
		TenantID:    jwtClaims.TenantID,
		Email:       jwtClaims.Email,
		Name:        jwtClaims.Name,
		Permissions: jwtClaims.Permissions,
		IssuedAt:    jwtClaims.IssuedAt.Time,
		ExpiresAt:   jwtClaims.ExpiresAt.Time,
	}, nil
}
