package auth

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// TokenRepository defines the contract for token persistence
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token RefreshToken) error
	FindRefreshToken(ctx context.Context, tokenValue string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenValue string) error
	RevokeAllUserTokens(ctx context.Context, userID kernel.UserID) error
	CleanExpiredTokens(ctx context.Context) error
}

// SessionRepository defines the contract for session persistence
type SessionRepository interface {
	SaveSession(ctx context.Context, session UserSession) error
	FindSession(ctx context.Context, sessionID string) (*UserSession, error)
	FindUserSessions(ctx context.Context, userID kernel.UserID) ([]*UserSession, error)
	UpdateSessionActivity(ctx context.Context, sessionID string) error
	RevokeSession(ctx context.Context, sessionID string) error
	RevokeAllUserSessions(ctx context.Context, userID kernel.UserID) error
	CleanExpiredSessions(ctx context.Context) error
}

// PasswordResetRepository defines the contract for password reset tokens
type PasswordResetRepository interface {
	SaveResetToken(ctx context.Context, token PasswordResetToken) error
	FindResetToken(ctx context.Context, tokenValue string) (*PasswordResetToken, error)
	ConsumeResetToken(ctx context.Context, tokenValue string) error
	CleanExpiredResetTokens(ctx context.Context) error
}

// TokenService defines the contract for JWT token management. JWTService
// is the only implementation; callers that only need validation (e.g. the
// provider-proxy gateway) can depend on this narrower interface instead.
type TokenService interface {
	ValidateAccessToken(ctx context.Context, token string) (*TokenClaims, error)
}

// AuditService defines the contract for authentication audit logging
type AuditService interface {
	LogLoginAttempt(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, method string, success bool, ip string, userAgent string)
	LogLogout(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, ip string)
	LogTokenRefresh(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, ip string)
	LogOTPVerification(ctx context.Context, contact string, success bool, ip string)
	LogAccountCreated(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, method string, ip string)
	LogAccountLinked(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, method string, ip string)
}

// Credentials is the minimal user-account view the Authenticator needs,
// kept here (rather than importing the user package) to avoid a dependency
// cycle between auth and user.
type Credentials struct {
	UserID        kernel.UserID
	TenantID      kernel.TenantID
	Email         string
	Name          string
	PasswordHash  string
	Active        bool
	Locked        bool
	EmailVerified bool
	TenantActive  bool
	MFAEnabled    bool
	MFAMethods    []string
}

// CredentialLookup resolves login credentials by tenant-scoped email.
type CredentialLookup interface {
	FindByEmail(ctx context.Context, tenantID kernel.TenantID, email string) (*Credentials, error)
}

// PasswordUpdater writes a new password hash for a user, used to complete a
// reset without pulling the whole user package into auth. It embeds
// CredentialLookup so PasswordResetService can resolve the requesting
// email through the same port it uses to write the new hash.
type PasswordUpdater interface {
	CredentialLookup
	FindByID(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) (*Credentials, error)
	UpdatePasswordHash(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, passwordHash string) error
}

// ResetMailer sends the reset link to the requesting user's address.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, toEmail, resetToken string) error
}

// PermissionResolver resolves the permission set granted to a user, used to
// populate the access token at login time.
type PermissionResolver interface {
	ResolvePermissions(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) ([]string, error)
}

// SessionRegistrar records an opaque audit session alongside a successful
// login and removes it at logout. It is independent of token validity by
// design: a revoked or expired session neither issues nor invalidates any
// token, and a caller missing or failing this dependency must not block
// login from completing.
type SessionRegistrar interface {
	Create(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, remember bool, clientIP, userAgent string) (id string, err error)
	Delete(ctx context.Context, sessionID string) error
}

// Invitation represents an invitation (to avoid circular dependency)
type Invitation interface {
	GetID() string
	GetTenantID() kernel.TenantID
	GetEmail() string
	CanBeAccepted() bool
	IsExpired() bool
	Accept(userID kernel.UserID) error
}
