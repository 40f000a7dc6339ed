package user

import (
	"context"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/iam/auth"
	"github.com/Abraxas-365/manifesto/pkg/iam/tenant"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// CredentialLookup adapts UserRepository and tenant.TenantRepository to
// auth.CredentialLookup, wired at the composition root so pkg/iam/auth
// never imports pkg/iam/user or pkg/iam/tenant directly.
type CredentialLookup struct {
	users   UserRepository
	tenants tenant.TenantRepository
	mfa     MFAStatusLookup
}

func NewCredentialLookup(users UserRepository, tenants tenant.TenantRepository, mfaLookup MFAStatusLookup) *CredentialLookup {
	return &CredentialLookup{users: users, tenants: tenants, mfa: mfaLookup}
}

func (l *CredentialLookup) FindByEmail(ctx context.Context, tenantID kernel.TenantID, email string) (*auth.Credentials, error) {
	u, err := l.users.FindByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}

	t, err := l.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	tenantActive := t != nil && t.IsActive()

	var mfaMethods []string
	mfaEnabled := false
	if l.mfa != nil {
		mfaMethods, mfaEnabled, err = l.mfa.EnabledMethods(ctx, u.ID)
		if err != nil {
			return nil, err
		}
	}

	return &auth.Credentials{
		UserID:        u.ID,
		TenantID:      u.TenantID,
		Email:         u.Email,
		Name:          u.Name,
		PasswordHash:  u.PasswordHash,
		Active:        u.IsActive(),
		Locked:        u.Status == StatusLocked,
		EmailVerified: u.EmailVerifiedAt != nil,
		TenantActive:  tenantActive,
		MFAEnabled:    mfaEnabled,
		MFAMethods:    mfaMethods,
	}, nil
}

// PasswordUpdaterAdapter adapts UserRepository to auth.PasswordUpdater,
// wired at the composition root alongside CredentialLookup.
type PasswordUpdaterAdapter struct {
	*CredentialLookup
	users UserRepository
}

func NewPasswordUpdaterAdapter(lookup *CredentialLookup, users UserRepository) *PasswordUpdaterAdapter {
	return &PasswordUpdaterAdapter{CredentialLookup: lookup, users: users}
}

func (a *PasswordUpdaterAdapter) FindByID(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) (*auth.Credentials, error) {
	u, err := a.users.FindByID(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	return &auth.Credentials{
		UserID:        u.ID,
		TenantID:      u.TenantID,
		Email:         u.Email,
		Name:          u.Name,
		PasswordHash:  u.PasswordHash,
		Active:        u.IsActive(),
		Locked:        u.Status == StatusLocked,
		EmailVerified: u.EmailVerifiedAt != nil,
	}, nil
}

func (a *PasswordUpdaterAdapter) UpdatePasswordHash(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, passwordHash string) error {
	u, err := a.users.FindByID(ctx, userID, tenantID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound()
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return a.users.Save(ctx, *u)
}
