package tenant

import (
	"context"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/google/uuid"
)

type Service struct {
	repo TenantRepository
}

func NewService(repo TenantRepository) *Service {
	return &Service{repo: repo}
}

type CreateTenantRequest struct {
	Name      string
	Slug      string
	PlanLimit int
}

func (s *Service) CreateTenant(ctx context.Context, req CreateTenantRequest) (*Tenant, error) {
	existing, err := s.repo.FindBySlug(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSlugTaken()
	}

	now := time.Now()
	t := Tenant{
		ID:        kernel.NewTenantID(uuid.NewString()),
		Name:      req.Name,
		Slug:      req.Slug,
		Status:    StatusActive,
		PlanLimit: req.PlanLimit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) GetTenant(ctx context.Context, id kernel.TenantID) (*Tenant, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTenantNotFound()
	}
	return t, nil
}

func (s *Service) SuspendTenant(ctx context.Context, id kernel.TenantID) error {
	return s.setStatus(ctx, id, StatusSuspended)
}

func (s *Service) ActivateTenant(ctx context.Context, id kernel.TenantID) error {
	return s.setStatus(ctx, id, StatusActive)
}

func (s *Service) setStatus(ctx context.Context, id kernel.TenantID, status Status) error {
	t, err := s.GetTenant(ctx, id)
	if err != nil {
		return err
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return s.repo.Save(ctx, *t)
}

func (s *Service) UpdateTenantConfig(ctx context.Context, id kernel.TenantID, planLimit int) error {
	t, err := s.GetTenant(ctx, id)
	if err != nil {
		return err
	}
	t.PlanLimit = planLimit
	t.UpdatedAt = time.Now()
	return s.repo.Save(ctx, *t)
}
