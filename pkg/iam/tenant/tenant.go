// Package tenant manages the top-level organizational boundary every
// other bounded context scopes its data to.
package tenant

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Tenant is the organizational boundary every user, role, and channel is
// scoped under.
type Tenant struct {
	ID        kernel.TenantID `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Slug      string          `db:"slug" json:"slug"`
	Status    Status          `db:"status" json:"status"`
	PlanLimit int             `db:"plan_limit" json:"plan_limit"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

func (t Tenant) IsActive() bool {
	return t.Status == StatusActive
}

var ErrRegistry = errx.NewRegistry("TENANT")

var (
	CodeTenantNotFound  = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Tenant not found")
	CodeTenantSuspended = ErrRegistry.Register("SUSPENDED", errx.TypeAuthorization, http.StatusForbidden, "Tenant is suspended")
	CodeSlugTaken       = ErrRegistry.Register("SLUG_TAKEN", errx.TypeBusiness, http.StatusConflict, "Tenant slug already in use")
)

func ErrTenantNotFound() *errx.Error  { return ErrRegistry.New(CodeTenantNotFound) }
func ErrTenantSuspended() *errx.Error { return ErrRegistry.New(CodeTenantSuspended) }
func ErrSlugTaken() *errx.Error       { return ErrRegistry.New(CodeSlugTaken) }
