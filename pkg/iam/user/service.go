package user

import (
	"context"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/iam/auth"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/google/uuid"
)

// MFAStatusLookup reports a user's enabled MFA methods, kept narrow here
// (rather than importing pkg/mfa) to avoid a dependency cycle: pkg/mfa
// implements this interface structurally.
type MFAStatusLookup interface {
	EnabledMethods(ctx context.Context, userID kernel.UserID) (methods []string, enabled bool, err error)
}

// Notifier delivers account lifecycle emails (verification, password
// change confirmation).
type Notifier interface {
	SendVerificationEmail(ctx context.Context, toEmail, toName, verifyToken string) error
}

type Service struct {
	repo     UserRepository
	hasher   auth.PasswordHasher
	mfa      MFAStatusLookup
	notifier Notifier
}

func NewService(repo UserRepository, hasher auth.PasswordHasher, mfaLookup MFAStatusLookup, notifier Notifier) *Service {
	return &Service{repo: repo, hasher: hasher, mfa: mfaLookup, notifier: notifier}
}

type RegisterRequest struct {
	TenantID kernel.TenantID
	Email    string
	Name     string
	Password string
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	existing, err := s.repo.FindByEmail(ctx, req.TenantID, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken()
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := User{
		ID:           kernel.NewUserID(uuid.NewString()),
		TenantID:     req.TenantID,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		verifyToken := uuid.NewString()
		_ = s.notifier.SendVerificationEmail(ctx, u.Email, u.Name, verifyToken)
	}

	return &u, nil
}

func (s *Service) GetByID(ctx context.Context, id kernel.UserID, tenantID kernel.TenantID) (*User, error) {
	u, err := s.repo.FindByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound()
	}
	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, tenantID kernel.TenantID, email string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound()
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id kernel.UserID, tenantID kernel.TenantID, name string) error {
	u, err := s.GetByID(ctx, id, tenantID)
	if err != nil {
		return err
	}
	u.Name = name
	u.UpdatedAt = time.Now()
	return s.repo.Save(ctx, *u)
}

func (s *Service) ChangePassword(ctx context.Context, id kernel.UserID, tenantID kernel.TenantID, currentPassword, newPassword string) error {
	u, err := s.GetByID(ctx, id, tenantID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(u.PasswordHash, currentPassword); err != nil {
		return ErrWrongPassword()
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	return s.repo.Save(ctx, *u)
}

func (s *Service) SetStatus(ctx context.Context, id kernel.UserID, tenantID kernel.TenantID, status Status) error {
	u, err := s.GetByID(ctx, id, tenantID)
	if err != nil {
		return err
	}
	u.Status = status
	u.UpdatedAt = time.Now()
	return s.repo.Save(ctx, *u)
}

func (s *Service) VerifyEmail(ctx context.Context, id kernel.UserID, tenantID kernel.TenantID) error {
	u, err := s.GetByID(ctx, id, tenantID)
	if err != nil {
		return err
	}
	if u.EmailVerifiedAt != nil {
		return ErrAlreadyVerified()
	}
	now := time.Now()
	u.EmailVerifiedAt = &now
	u.UpdatedAt = now
	return s.repo.Save(ctx, *u)
}
