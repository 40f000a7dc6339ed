package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/kv"
)

// LoginResult carries everything issued on a successful password login.
type LoginResult struct {
	AccessToken      string
	AccessTokenID    string
	RefreshToken     string
	RefreshTokenID   string
	SessionID        string
	UserID           kernel.UserID
	TenantID         kernel.TenantID
	Permissions      []string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Authenticator resolves the password-login flow: lockout check, password
// verification, failure counting, token issuance. The lockout counter lives
// in the KV store as a sliding window rather than a single counter column,
// so a burst of failures ages out instead of requiring an explicit reset.
type Authenticator struct {
	lookup     CredentialLookup
	resolver   PermissionResolver
	hasher     PasswordHasher
	tokens     *JWTService
	sessions   SessionRegistrar
	kv         kv.Store
	threshold  int
	window     time.Duration
	lockFor    time.Duration
}

// NewAuthenticator wires the password-login flow. sessions may be nil, in
// which case Login and CompleteMFA skip session creation entirely rather
// than fail — the session registry is an audit surface, not a dependency
// token issuance should ever block on.
func NewAuthenticator(lookup CredentialLookup, resolver PermissionResolver, hasher PasswordHasher, tokens *JWTService, sessions SessionRegistrar, store kv.Store, threshold int, window, lockFor time.Duration) *Authenticator {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if lockFor <= 0 {
		lockFor = 15 * time.Minute
	}
	return &Authenticator{
		lookup:    lookup,
		resolver:  resolver,
		hasher:    hasher,
		tokens:    tokens,
		sessions:  sessions,
		kv:        store,
		threshold: threshold,
		window:    window,
		lockFor:   lockFor,
	}
}

func lockoutKey(tenantID kernel.TenantID, email string) string {
	return fmt.Sprintf("auth:lockout:%s:%s", tenantID.String(), email)
}

func lockedKey(tenantID kernel.TenantID, email string) string {
	return fmt.Sprintf("auth:locked:%s:%s", tenantID.String(), email)
}

// Login verifies tenant-scoped email/password credentials and, on success,
// issues an access/refresh token pair. MFA enrollment is reported back to
// the caller via ErrMFARequired rather than issuing tokens directly, so the
// HTTP layer can drive the challenge step before minting anything.
func (a *Authenticator) Login(ctx context.Context, tenantID kernel.TenantID, email, password string, remember bool, clientIP, userAgent string) (*LoginResult, error) {
	locked, ttl, err := a.isLocked(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, ErrAccountLocked(ttl)
	}

	creds, err := a.lookup.FindByEmail(ctx, tenantID, email)
	if err != nil || creds == nil {
		a.recordFailure(ctx, tenantID, email)
		return nil, ErrInvalidCredentials()
	}

	if !creds.TenantActive {
		return nil, ErrTenantInactive()
	}
	if creds.Locked {
		return nil, ErrAccountLocked(a.lockFor)
	}
	if !creds.EmailVerified {
		return nil, ErrEmailNotVerified()
	}
	if !creds.Active {
		return nil, ErrAccountInactive()
	}

	if err := a.hasher.Compare(creds.PasswordHash, password); err != nil {
		locked, err := a.recordFailure(ctx, tenantID, email)
		if err != nil {
			return nil, err
		}
		if locked {
			return nil, ErrAccountLocked(a.lockFor)
		}
		return nil, ErrInvalidCredentials()
	}

	// Successful password check clears the failure window.
	if err := a.kv.ClearEvents(ctx, lockoutKey(tenantID, email)); err != nil {
		return nil, err
	}

	if creds.MFAEnabled {
		return nil, ErrMFARequired(creds.MFAMethods)
	}

	return a.issueTokens(ctx, creds, remember, clientIP, userAgent)
}

// CompleteMFA issues tokens after an MFA challenge has already been
// verified by the caller (pkg/mfa), bypassing the password step since it
// was already satisfied by Login.
func (a *Authenticator) CompleteMFA(ctx context.Context, tenantID kernel.TenantID, email string, remember bool, clientIP, userAgent string) (*LoginResult, error) {
	creds, err := a.lookup.FindByEmail(ctx, tenantID, email)
	if err != nil || creds == nil {
		return nil, ErrInvalidCredentials()
	}
	return a.issueTokens(ctx, creds, remember, clientIP, userAgent)
}

func (a *Authenticator) issueTokens(ctx context.Context, creds *Credentials, remember bool, clientIP, userAgent string) (*LoginResult, error) {
	permissions, err := a.resolver.ResolvePermissions(ctx, creds.UserID, creds.TenantID)
	if err != nil {
		return nil, err
	}

	access, accessID, err := a.tokens.GenerateAccessToken(creds.UserID, creds.TenantID, creds.Email, creds.Name, permissions)
	if err != nil {
		return nil, err
	}
	refresh, refreshID, err := a.tokens.GenerateRefreshToken(creds.UserID, creds.TenantID)
	if err != nil {
		return nil, err
	}

	var sessionID string
	if a.sessions != nil {
		if id, err := a.sessions.Create(ctx, creds.UserID, creds.TenantID, remember, clientIP, userAgent); err == nil {
			sessionID = id
		}
	}

	now := time.Now()
	return &LoginResult{
		AccessToken:      access,
		AccessTokenID:    accessID,
		RefreshToken:     refresh,
		RefreshTokenID:   refreshID,
		SessionID:        sessionID,
		UserID:           creds.UserID,
		TenantID:         creds.TenantID,
		Permissions:      permissions,
		AccessExpiresAt:  now.Add(a.tokens.accessTokenTTL),
		RefreshExpiresAt: now.Add(a.tokens.refreshTokenTTL),
	}, nil
}

func (a *Authenticator) isLocked(ctx context.Context, tenantID kernel.TenantID, email string) (bool, time.Duration, error) {
	_, found, err := a.kv.Get(ctx, lockedKey(tenantID, email))
	if err != nil {
		return false, 0, err
	}
	if !found {
		return false, 0, nil
	}
	return true, a.lockFor, nil
}

// recordFailure appends a failure to the sliding window and, once the
// window holds threshold-or-more entries, flips the separate lock key for
// lockFor — the lock outlives the counting window on purpose, so the
// account doesn't unlock the moment the window ages out.
func (a *Authenticator) recordFailure(ctx context.Context, tenantID kernel.TenantID, email string) (bool, error) {
	count, err := a.kv.RecordEvent(ctx, lockoutKey(tenantID, email), a.window)
	if err != nil {
		return false, err
	}
	if count >= int64(a.threshold) {
		if err := a.kv.Set(ctx, lockedKey(tenantID, email), "1", a.lockFor); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
