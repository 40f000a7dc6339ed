package iamcontainer

import (
	"context"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/config"
	"github.com/Abraxas-365/manifesto/pkg/iam/apikey/apikeyinfra"
	"github.com/Abraxas-365/manifesto/pkg/iam/apikey/apikeysrv"
	"github.com/Abraxas-365/manifesto/pkg/iam/auth"
	"github.com/Abraxas-365/manifesto/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/manifesto/pkg/iam/invitation"
	"github.com/Abraxas-365/manifesto/pkg/iam/invitation/invitationinfra"
	"github.com/Abraxas-365/manifesto/pkg/iam/tenant"
	"github.com/Abraxas-365/manifesto/pkg/iam/tenant/tenantinfra"
	"github.com/Abraxas-365/manifesto/pkg/iam/user"
	"github.com/Abraxas-365/manifesto/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/manifesto/pkg/iam/user/usernotify"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/kv"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/Abraxas-365/manifesto/pkg/mfa"
	"github.com/Abraxas-365/manifesto/pkg/mfa/mfainfra"
	"github.com/Abraxas-365/manifesto/pkg/mfa/mfanotify"
	"github.com/Abraxas-365/manifesto/pkg/notifx"
	"github.com/Abraxas-365/manifesto/pkg/rbac"
	"github.com/Abraxas-365/manifesto/pkg/rbac/rbacinfra"
	"github.com/Abraxas-365/manifesto/pkg/session"
	"github.com/jmoiron/sqlx"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// No hidden globals, no ambient state — everything comes through here.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	KV    kv.Store
	Cfg   *config.Config
	Email *notifx.Client
	SMS   mfanotify.SMSSender
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// Only expose what other modules or cmd/ actually need.
// Internal repos, infra details, etc. stay private.
// ---------------------------------------------------------------------------

type Container struct {
	TenantService        *tenant.Service
	UserService          *user.Service
	RoleService          *rbac.RoleService
	Resolver             *rbac.Resolver
	MFAService           *mfa.Service
	Authenticator        *auth.Authenticator
	Tokens               *auth.JWTService
	APIKeyService        *apikeysrv.APIKeyService
	InvitationService    *invitation.Service
	PasswordResetService *auth.PasswordResetService
	Audit                auth.AuditService

	AuthMiddleware *auth.TokenMiddleware
	Sessions       *session.Service

	resetRepo auth.PasswordResetRepository
}

// sessionRegistrarAdapter narrows session.Service to auth.SessionRegistrar,
// returning just the id Authenticator needs rather than the full record.
type sessionRegistrarAdapter struct {
	svc *session.Service
}

func (a sessionRegistrarAdapter) Create(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, remember bool, clientIP, userAgent string) (string, error) {
	sess, err := a.svc.Create(ctx, userID, tenantID, remember, clientIP, userAgent)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

func (a sessionRegistrarAdapter) Delete(ctx context.Context, sessionID string) error {
	return a.svc.Delete(ctx, sessionID)
}

// ---------------------------------------------------------------------------
// New: constructs the entire IAM dependency graph.
// Order matters: infra → repos → services → handlers → middleware.
// ---------------------------------------------------------------------------

func New(deps Deps) *Container {
	logx.Info("🔧 Initializing IAM container...")

	c := &Container{}

	// ── Repositories ─────────────────────────────────────────────────────

	tenantRepo := tenantinfra.NewPostgresTenantRepository(deps.DB)
	userRepo := userinfra.NewPostgresUserRepository(deps.DB)
	roleRepo := rbacinfra.NewPostgresRoleRepository(deps.DB)
	userRoleRepo := rbacinfra.NewPostgresUserRoleRepository(deps.DB)
	factorRepo := mfainfra.NewPostgresFactorRepository(deps.DB)
	backupCodeRepo := mfainfra.NewPostgresBackupCodeRepository(deps.DB)
	apiKeyRepo := apikeyinfra.NewPostgresAPIKeyRepository(deps.DB)

	// ── Domain services ──────────────────────────────────────────────────

	c.TenantService = tenant.NewService(tenantRepo)

	totpEngine := mfa.NewTOTPEngine(deps.Cfg.MFA.TOTPIssuer)
	mfaNotifier := mfanotify.NewNotifier(deps.Email, deps.SMS, "")
	c.MFAService = mfa.NewService(
		factorRepo,
		backupCodeRepo,
		mfaNotifier,
		totpEngine,
		deps.KV,
		deps.Cfg.MFA.CodeTTL,
		deps.Cfg.MFA.BackupCodeCount,
	)

	verificationMailer := usernotify.NewEmailNotifier(deps.Email, "no-reply@manifesto.dev", "https://app.manifesto.dev/verify?token=%s")
	hasher := auth.NewBcryptHasher(deps.Cfg.Auth.BcryptCost)
	c.UserService = user.NewService(userRepo, hasher, c.MFAService, verificationMailer)

	c.Resolver = rbac.NewResolver(userRoleRepo)
	c.RoleService = rbac.NewRoleService(roleRepo, c.Resolver)

	revoker := auth.NewKVRevoker(deps.KV)
	c.Tokens = auth.NewJWTService(deps.Cfg.Auth.SigningSecret, deps.Cfg.Auth.AccessTokenTTL, deps.Cfg.Auth.RefreshTokenTTL, deps.Cfg.Auth.Issuer, revoker)

	c.Sessions = session.NewService(deps.KV, deps.Cfg.Auth.SessionTTL, deps.Cfg.Auth.RememberSessionTTL)

	credentialLookup := user.NewCredentialLookup(userRepo, tenantRepo, c.MFAService)
	c.Authenticator = auth.NewAuthenticator(
		credentialLookup,
		c.Resolver,
		hasher,
		c.Tokens,
		sessionRegistrarAdapter{svc: c.Sessions},
		deps.KV,
		deps.Cfg.Auth.LockoutThreshold,
		deps.Cfg.Auth.LockoutWindow,
		deps.Cfg.Auth.LockoutDuration,
	)

	c.APIKeyService = apikeysrv.NewAPIKeyService(apiKeyRepo, tenantRepo, userRepo)

	invitationRepo := invitationinfra.NewPostgresInvitationRepository(deps.DB)
	invitationMailer := usernotify.NewEmailNotifier(deps.Email, "no-reply@manifesto.dev", "https://app.manifesto.dev/verify?token=%s").
		WithInviteURLFmt("https://app.manifesto.dev/accept-invite?token=%s")
	c.InvitationService = invitation.NewService(invitationRepo, invitationMailer, 7*24*time.Hour)

	c.resetRepo = authinfra.NewPostgresPasswordResetRepository(deps.DB)
	passwordUpdater := user.NewPasswordUpdaterAdapter(user.NewCredentialLookup(userRepo, tenantRepo, c.MFAService), userRepo)
	resetMailer := usernotify.NewEmailNotifier(deps.Email, "no-reply@manifesto.dev", "https://app.manifesto.dev/verify?token=%s").
		WithResetURLFmt("https://app.manifesto.dev/reset-password?token=%s")
	c.PasswordResetService = auth.NewPasswordResetService(c.resetRepo, passwordUpdater, hasher, resetMailer, deps.KV, time.Hour)

	// ── Middleware ────────────────────────────────────────────────────────

	c.AuthMiddleware = auth.NewAuthMiddleware(c.Tokens)

	c.Audit = authinfra.NewLogxAuditService()

	logx.Info("✅ IAM container initialized")
	return c
}

// StartBackgroundServices launches the periodic cleanup of expired,
// one-shot credentials (reset tokens) so the table doesn't grow
// unbounded. Mirrors channel.Manager.Start's ticker-loop shape.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	go c.runResetTokenCleanup(ctx)
}

func (c *Container) runResetTokenCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.resetRepo.CleanExpiredResetTokens(ctx); err != nil {
				logx.WithFields(logx.Fields{"error": err.Error()}).Warn("iamcontainer: failed to clean expired password reset tokens")
			}
		}
	}
}
