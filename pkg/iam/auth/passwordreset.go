package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/kv"
	"github.com/google/uuid"
)

// PasswordResetService drives the forgot-password flow: a short-lived
// single-use token mailed to the account's address, exchanged once for a
// new password hash. It never reveals whether an email is registered —
// Request always succeeds from the caller's point of view.
type PasswordResetService struct {
	repo     PasswordResetRepository
	users    PasswordUpdater
	hasher   PasswordHasher
	mailer   ResetMailer
	kv       kv.Store
	ttl      time.Duration
	cooldown time.Duration
}

func NewPasswordResetService(repo PasswordResetRepository, users PasswordUpdater, hasher PasswordHasher, mailer ResetMailer, store kv.Store, ttl time.Duration) *PasswordResetService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PasswordResetService{
		repo:     repo,
		users:    users,
		hasher:   hasher,
		mailer:   mailer,
		kv:       store,
		ttl:      ttl,
		cooldown: time.Minute,
	}
}

func resetCooldownKey(email string) string {
	return fmt.Sprintf("auth:reset:cooldown:%s", email)
}

// Request issues a reset token for tenantID/email if the account exists and
// is active, mailing it through ResetMailer. A cooldown prevents mail-bomb
// retries; both the "no such account" and "already requested recently"
// cases return nil so the caller can't enumerate registered emails by
// timing or error shape.
func (s *PasswordResetService) Request(ctx context.Context, tenantID kernel.TenantID, email string) error {
	_, found, err := s.kv.Get(ctx, resetCooldownKey(email))
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	creds, err := s.users.FindByEmail(ctx, tenantID, email)
	if err != nil || creds == nil || !creds.Active {
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return errx.Wrap(err, "failed to generate reset token", errx.TypeInternal)
	}

	now := time.Now().UTC()
	reset := PasswordResetToken{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    creds.UserID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.SaveResetToken(ctx, reset); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, resetCooldownKey(email), "1", s.cooldown); err != nil {
		return err
	}

	if s.mailer != nil {
		_ = s.mailer.SendPasswordReset(ctx, email, token)
	}
	return nil
}

// Confirm exchanges a still-valid reset token for a new password hash,
// then consumes the token so it can't be replayed.
func (s *PasswordResetService) Confirm(ctx context.Context, tenantID kernel.TenantID, token, newPassword string) error {
	reset, err := s.repo.FindResetToken(ctx, token)
	if err != nil {
		return err
	}
	if reset == nil || !reset.IsValid() {
		return ErrInvalidRefreshToken().WithDetail("reason", "reset token is invalid or expired")
	}

	creds, err := s.users.FindByID(ctx, reset.UserID, tenantID)
	if err != nil {
		return err
	}
	if creds == nil {
		return ErrInvalidCredentials()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return errx.Wrap(err, "failed to hash new password", errx.TypeInternal)
	}
	if err := s.users.UpdatePasswordHash(ctx, reset.UserID, tenantID, hash); err != nil {
		return err
	}
	return s.repo.ConsumeResetToken(ctx, token)
}

func generateResetToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
