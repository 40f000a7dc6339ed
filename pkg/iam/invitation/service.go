package invitation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/google/uuid"
)

// Mailer sends the invite link to the invited email address.
type Mailer interface {
	SendInvitation(ctx context.Context, toEmail, inviteToken string) error
}

type Service struct {
	repo   InvitationRepository
	mailer Mailer
	ttl    time.Duration
}

func NewService(repo InvitationRepository, mailer Mailer, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{repo: repo, mailer: mailer, ttl: ttl}
}

// Invite creates a pending invitation for email at roleID within tenantID,
// rejecting the request if a pending invitation for that email already
// exists.
func (s *Service) Invite(ctx context.Context, tenantID kernel.TenantID, email, roleID string, invitedBy kernel.UserID) (*Invitation, error) {
	exists, err := s.repo.ExistsPendingForEmail(ctx, email, tenantID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrInvitationAlreadyExists().WithDetail("email", email)
	}

	token, err := generateToken()
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate invitation token", errx.TypeInternal)
	}

	now := time.Now().UTC()
	inv := Invitation{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Email:     email,
		Token:     token,
		RoleID:    roleID,
		Status:    StatusPending,
		InvitedBy: invitedBy,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Save(ctx, inv); err != nil {
		return nil, err
	}

	if s.mailer != nil {
		_ = s.mailer.SendInvitation(ctx, email, token)
	}
	return &inv, nil
}

// Accept marks the invitation identified by token as accepted by userID.
func (s *Service) Accept(ctx context.Context, token string, userID kernel.UserID) (*Invitation, error) {
	inv, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := inv.Accept(userID); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, *inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Revoke cancels a pending invitation before it is accepted.
func (s *Service) Revoke(ctx context.Context, id string) error {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	inv.Revoke()
	return s.repo.Save(ctx, *inv)
}

func (s *Service) ListPendingForTenant(ctx context.Context, tenantID kernel.TenantID) ([]*Invitation, error) {
	return s.repo.FindPendingByTenant(ctx, tenantID)
}

func generateToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
